// seehuhn.de/go/psvm - a PostScript execution engine
// Copyright (C) 2023  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package psvm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
)

// Scanner splits PostScript source into tokens.
type Scanner struct {
	Line int // 0-based
	Col  int // 0-based
	DSC  []Comment

	r         io.Reader
	buf       []byte
	pos, used int
	crSeen    bool
	peek      []byte

	// err is the first error returned by r.Read().
	// Once an error has been returned, all subsequent calls to .refill() will
	// return err.
	err error
}

// Comment is a DSC comment of the form "%%Key: value".
type Comment struct {
	Key   string
	Value string
}

type tokenKind uint8

const (
	tokNumber tokenKind = iota
	tokString
	tokName
	tokLiteralName
	tokImmediateName
	tokProcBegin
	tokProcEnd
)

// token is a lexical token.  Numbers are stored in obj, the contents of
// strings and the text of names in text.
type token struct {
	kind tokenKind
	obj  Object
	text []byte
	line int
}

func newScanner(r io.Reader) *Scanner {
	return &Scanner{
		r:   r,
		buf: make([]byte, 512),
	}
}

func (s *Scanner) Read(p []byte) (int, error) {
	for n := range p {
		b, err := s.Next()
		if err != nil {
			return n, err
		}
		p[n] = b
	}
	return len(p), nil
}

// scanToken reads the next token.  At the end of input, io.EOF is
// returned.
func (s *Scanner) scanToken() (token, error) {
	err := s.SkipWhiteSpace()
	if err != nil {
		return token{}, err
	}
	b, err := s.Peek()
	if err != nil {
		return token{}, err
	}
	tok := token{line: s.Line + 1}
	switch b {
	case '(':
		tok.kind = tokString
		tok.text, err = s.ReadString()
	case '<':
		bb := s.PeekN(2)
		switch string(bb) {
		case "<<": // dict
			s.SkipN(2)
			tok.kind = tokName
			tok.text = []byte("<<")
		case "<~": // base85-encoded string
			tok.kind = tokString
			tok.text, err = s.ReadBase85String()
		default: // hex string
			tok.kind = tokString
			tok.text, err = s.ReadHexString()
		}
	case '>':
		bb := s.PeekN(2)
		if string(bb) != ">>" {
			s.SkipByte()
			return tok, &Error{Kind: Syntaxerror, Msg: "unexpected '>'"}
		}
		s.SkipN(2)
		tok.kind = tokName
		tok.text = []byte(">>")
	case ')':
		s.SkipByte()
		return tok, &Error{Kind: Syntaxerror, Msg: "unexpected ')'"}
	case '{':
		s.SkipByte()
		tok.kind = tokProcBegin
	case '}':
		s.SkipByte()
		tok.kind = tokProcEnd
	case '[', ']':
		s.SkipByte()
		tok.kind = tokName
		tok.text = []byte{b}
	case '/':
		s.SkipByte()
		tok.kind = tokLiteralName
		if s.LookingAt("/") {
			s.SkipByte()
			tok.kind = tokImmediateName
		}
		tok.text, err = s.readRegular(nil)
	default:
		s.SkipByte()
		tok.text, err = s.readRegular([]byte{b})
		if err != nil {
			break
		}
		if x, ok := parseNumber(tok.text); ok {
			tok.kind = tokNumber
			tok.obj = x
		} else {
			tok.kind = tokName
		}
	}
	if err == io.EOF {
		err = &Error{Kind: Syntaxerror, Msg: "unexpected end of input"}
	}
	return tok, err
}

// readRegular appends regular characters to buf.  The single white-space
// character terminating the token, if any, is consumed.
func (s *Scanner) readRegular(buf []byte) ([]byte, error) {
	for {
		b, err := s.Peek()
		if err == io.EOF {
			return buf, nil
		} else if err != nil {
			return nil, err
		}
		if !isRegular(b) {
			if b <= 32 {
				s.SkipByte()
				if b == 13 {
					s.SkipOptionalByte(10)
				}
			}
			return buf, nil
		}
		s.SkipByte()
		buf = append(buf, b)
	}
}

// ReadString reads a string literal enclosed in parentheses.
func (s *Scanner) ReadString() ([]byte, error) {
	err := s.SkipRequiredByte('(')
	if err != nil {
		return nil, err
	}
	var res []byte
	bracketLevel := 1
	ignoreLF := false
	for {
		b, err := s.Next()
		if err != nil {
			return nil, err
		}
		if ignoreLF && b == 10 {
			continue
		}
		ignoreLF = false
		switch b {
		case '(':
			bracketLevel++
			res = append(res, b)
		case ')':
			bracketLevel--
			if bracketLevel == 0 {
				return res, nil
			}
			res = append(res, b)
		case '\\':
			b, err = s.Next()
			if err != nil {
				return nil, err
			}
			switch b {
			case 'n':
				res = append(res, '\n')
			case 'r':
				res = append(res, '\r')
			case 't':
				res = append(res, '\t')
			case 'b':
				res = append(res, '\b')
			case 'f':
				res = append(res, '\f')
			case '(': // literal (
				res = append(res, '(')
			case ')': // literal )
				res = append(res, ')')
			case '\\': // literal \
				res = append(res, '\\')
			case 10: // LF
				// ignore
			case 13: // CR or CR+LF
				// ignore
				ignoreLF = true
			case '0', '1', '2', '3', '4', '5', '6', '7':
				oct := b - '0'
				for i := 0; i < 2; i++ {
					b, err = s.Peek()
					if err == io.EOF {
						break
					} else if err != nil {
						return nil, err
					}
					if b < '0' || b > '7' {
						break
					}
					s.SkipByte()
					oct = oct*8 + (b - '0')
				}
				res = append(res, oct)
			default:
				res = append(res, b)
			}
		case 13: // CR or CR+LF
			res = append(res, '\n')
			ignoreLF = true
		default:
			res = append(res, b)
		}
	}
}

// ReadHexString reads a hexadecimal string literal <...>.
func (s *Scanner) ReadHexString() ([]byte, error) {
	err := s.SkipRequiredByte('<')
	if err != nil {
		return nil, err
	}

	var res []byte
	first := true
	var hi byte
readLoop:
	for {
		b, err := s.Next()
		if err != nil {
			return nil, err
		}
		var lo byte
		switch {
		case b == '>':
			break readLoop
		case b <= 32:
			continue
		case b >= '0' && b <= '9':
			lo = b - '0'
		case b >= 'A' && b <= 'F':
			lo = b - 'A' + 10
		case b >= 'a' && b <= 'f':
			lo = b - 'a' + 10
		default:
			return nil, &Error{Kind: Syntaxerror, Msg: fmt.Sprintf("invalid hex digit %q", b)}
		}
		if first {
			hi = lo << 4
			first = false
		} else {
			res = append(res, hi|lo)
			first = true
		}
	}
	if !first {
		res = append(res, hi)
	}

	return res, nil
}

// ReadBase85String reads an ASCII85 string literal <~...~>.
func (s *Scanner) ReadBase85String() ([]byte, error) {
	for _, b := range []byte{'<', '~'} {
		err := s.SkipRequiredByte(b)
		if err != nil {
			return nil, err
		}
	}

	var res []byte
	var pos int
	var val uint32
readLoop:
	for {
		b, err := s.Next()
		if err != nil {
			return nil, err
		}
		switch {
		case b == '~':
			break readLoop
		case b <= 32:
			continue
		case b == 'z' && pos == 0:
			res = append(res, 0, 0, 0, 0)
		case b >= '!' && b <= 'u':
			val = val*85 + uint32(b-'!')
			pos++
			if pos == 5 {
				res = append(res, byte(val>>24), byte(val>>16), byte(val>>8), byte(val))
				pos = 0
				val = 0
			}
		default:
			return nil, &Error{Kind: Syntaxerror, Msg: fmt.Sprintf("invalid base85 digit %q", b)}
		}
	}
	switch pos {
	case 0:
		// pass
	case 1:
		return nil, &Error{Kind: Syntaxerror, Msg: "unexpected end of base85 string"}
	default:
		for i := pos; i < 5; i++ {
			val = val*85 + 84
		}
		tail := []byte{byte(val >> 24), byte(val >> 16), byte(val >> 8), byte(val)}
		res = append(res, tail[:pos-1]...)
	}

	err := s.SkipRequiredByte('>')
	if err != nil {
		return nil, err
	}

	return res, nil
}

// SkipWhiteSpace skips all input (including comments) until a non-whitespace
// character is found.
func (s *Scanner) SkipWhiteSpace() error {
	for {
		b, err := s.Peek()
		if err != nil {
			return err
		}
		if b <= 32 {
			s.SkipByte()
		} else if b == '%' {
			if s.Col == 0 && s.LookingAt("%%") {
				key, val, err := s.readStructuredComment()
				if err == nil {
					s.DSC = append(s.DSC, Comment{key, val})
					continue
				}
			} else {
				err = s.SkipComment()
				if err != nil {
					return err
				}
			}
		} else {
			return nil
		}
	}
}

// readStructuredComment reads the next structured comment into a key-value pair.
func (s *Scanner) readStructuredComment() (key, value string, err error) {
	if !s.LookingAt("%%") {
		err = errors.New("not a structured comment")
		return
	}
	s.SkipN(2)

	// Read key
	key, err = s.readCommentKey()
	if err != nil {
		s.SkipToEOL()
		return
	}

	// Read value
	value, err = s.readCommentValue()
	return
}

func (s *Scanner) readCommentKey() (string, error) {
	var buf bytes.Buffer
	for {
		b, err := s.Peek()
		if err == io.EOF {
			break
		} else if err != nil {
			return "", err
		}
		if b <= 32 {
			break
		}
		s.SkipByte()
		if b == ':' {
			break
		}
		buf.WriteByte(b)
	}
	if buf.Len() == 0 {
		return "", errors.New("empty DSC key")
	}
	return buf.String(), nil
}

// ReadCommentValue reads the value of a structured comment.
// Multi-line values (using `%%+`) are supported.
// The method consumes the first EOL after the value.
func (s *Scanner) readCommentValue() (string, error) {
	var buf bytes.Buffer

commentLineLoop:
	for {
		for {
			b, err := s.Peek()
			if err == io.EOF {
				break
			} else if err != nil {
				return "", err
			}
			if b == '\n' || b == '\r' || b > 32 {
				break
			}
			s.SkipByte()
		}

		for {
			b, err := s.Next()
			if err == io.EOF {
				break
			} else if err != nil {
				return "", err
			} else if b == '\n' { // LF
				break
			} else if b == '\r' { // CR or CR+LF
				s.SkipOptionalByte(10)
				break
			}
			buf.WriteByte(b)
		}

		if s.LookingAt("%%+") {
			s.SkipN(3)
			buf.WriteByte(' ')
			continue commentLineLoop
		}

		break
	}

	return buf.String(), nil
}

// SkipComment skips everything from a % to the end of the line (buth inclusive).
func (s *Scanner) SkipComment() error {
	err := s.SkipRequiredByte('%')
	if err != nil {
		return err
	}
	return s.SkipToEOL()
}

func (s *Scanner) SkipToEOL() error {
	for {
		b, err := s.Next()
		if err != nil {
			return err
		} else if b == 10 { // LF
			return nil
		} else if b == 13 { // CR or CR+LF
			s.SkipOptionalByte(10)
			return nil
		}
	}
}

func (s *Scanner) LookingAt(pat string) bool {
	return string(s.PeekN(len(pat))) == pat
}

// SkipByte skips a single byte of input
func (s *Scanner) SkipByte() {
	s.Next()
}

func (s *Scanner) SkipRequiredByte(expected byte) error {
	seen, err := s.Next()
	if err != nil {
		return err
	}
	if seen != expected {
		return &Error{Kind: Syntaxerror, Msg: fmt.Sprintf("expected %q, got %q", expected, seen)}
	}
	return nil
}

func (s *Scanner) SkipOptionalByte(b byte) {
	next, err := s.Peek()
	if err == nil && next == b {
		s.Next()
	}
}

// SkipN skips N bytes which have already been peeked.
func (s *Scanner) SkipN(n int) {
	for i := 0; i < n; i++ {
		s.Next()
	}
}

func (s *Scanner) Peek() (byte, error) {
	for len(s.peek) == 0 {
		b, err := s.readByte()
		if err != nil {
			return 0, err
		}
		s.peek = append(s.peek, b)
	}
	return s.peek[0], nil
}

func (s *Scanner) PeekN(n int) []byte {
	for len(s.peek) < n {
		b, err := s.readByte()
		if err != nil {
			return s.peek
		}
		s.peek = append(s.peek, b)
	}
	return s.peek[:n]
}

func (s *Scanner) Next() (byte, error) {
	var b byte

	if len(s.peek) > 0 {
		b = s.peek[0]
		copy(s.peek, s.peek[1:])
		s.peek = s.peek[:len(s.peek)-1]
	} else {
		var err error
		b, err = s.readByte()
		if err != nil {
			return 0, err
		}
	}

	if s.crSeen && b == 10 {
		// ignore LF after CR
	} else if b == 10 || b == 13 {
		s.Line++
		s.Col = 0
	} else {
		s.Col++
	}
	s.crSeen = (b == 13)

	return b, nil
}

func (s *Scanner) readByte() (byte, error) {
	for s.pos >= s.used {
		err := s.refill()
		if err != nil {
			return 0, err
		}
	}

	b := s.buf[s.pos]
	s.pos++

	return b, nil
}

func (s *Scanner) refill() error {
	if s.err != nil {
		return s.err
	}
	s.used = copy(s.buf, s.buf[s.pos:s.used])
	s.pos = 0

	n, err := s.r.Read(s.buf[s.used:])
	s.used += n
	if err != nil {
		s.err = err
	}
	if n > 0 {
		err = nil
	}
	return err
}

func isRegular(b byte) bool {
	if b <= 32 {
		return false
	}
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return false
	default:
		return true
	}
}

func parseNumber(s []byte) (Object, bool) {
	if len(s) == 0 {
		return Object{}, false
	}
	x, err := strconv.ParseInt(string(s), 10, 64)
	if err == nil {
		return MakeInt(x), true
	}

	if mm := radixNumberRe.FindSubmatch(s); mm != nil {
		base, err := strconv.ParseInt(string(mm[1]), 10, 0)
		if err == nil && base >= 2 && base <= 36 {
			z, err := strconv.ParseUint(string(mm[2]), int(base), 32)
			if err == nil {
				return MakeInt(int64(int32(uint32(z)))), true
			}
		}
		return Object{}, false
	}

	// Go accepts hexadecimal floats and digit separators, PostScript does not.
	if !isNumberStart(s[0]) || bytes.ContainsAny(s, "xX_pP") {
		return Object{}, false
	}
	y, err := strconv.ParseFloat(string(s), 64)
	if err == nil && !math.IsInf(y, 0) && !math.IsNaN(y) {
		return MakeReal(y), true
	} else if errors.Is(err, strconv.ErrRange) {
		// underflow gives zero, overflow is not a number
		return MakeReal(y), !math.IsInf(y, 0)
	}
	return Object{}, false
}

// isNumberStart excludes tokens like "Inf" and "NaN" which
// strconv.ParseFloat would accept.
func isNumberStart(b byte) bool {
	return b >= '0' && b <= '9' || b == '+' || b == '-' || b == '.'
}

var radixNumberRe = regexp.MustCompile(`^([0-9]{1,2})#([0-9a-zA-Z]+)$`)
