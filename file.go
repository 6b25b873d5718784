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
	"io"

	"github.com/pkg/errors"
)

// File is a PostScript file object.  Executing a file reads and
// executes the tokens it contains.
type File struct {
	Name string

	s      *Scanner
	closer io.Closer
	closed bool
	owned  bool // opened by the interpreter, closed when unwound

	// pending holds the elements of procedures which are still being
	// read.  procStart holds the start index in pending for each open
	// brace.
	pending   []Object
	procStart []int
}

func newFile(name string, r io.Reader) *File {
	f := &File{Name: name, s: newScanner(r)}
	if c, ok := r.(io.Closer); ok {
		f.closer = c
	}
	return f
}

func (f *File) object() Object {
	return Object{typ: TypeFile, attr: AttrExecutable | AttrRead | AttrExecute, ref: f}
}

// Closed reports whether the file has been closed.
func (f *File) Closed() bool {
	return f.closed
}

func (intp *Interpreter) closeFile(f *File) error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.pending = nil
	f.procStart = nil
	intp.DSC = append(intp.DSC, f.s.DSC...)
	if f.closer != nil {
		if err := f.closer.Close(); err != nil {
			return errors.Wrapf(err, "closing %s", f.Name)
		}
	}
	return nil
}

// unwind truncates the execution stack to depth.  Files opened by the
// interpreter which are removed from the stack are closed.
func (intp *Interpreter) unwind(depth int) {
	es := intp.estack
	for i := es.depth() - 1; i >= depth; i-- {
		o := es.data[i]
		if o.typ != TypeFile || !o.file().owned {
			continue
		}
		if err := intp.closeFile(o.file()); err != nil {
			log.Warningf("%s", err)
		}
	}
	es.setDepth(depth)
}

// execFile reads the next token from f and acts on it.
//
// Tokens between "{" and "}" are collected into a procedure within a
// single call.  Otherwise each call handles one token: the file is pushed
// back onto the execution stack, literal objects are pushed onto the
// operand stack, and executable names are pushed onto the execution stack
// above the file.
func (intp *Interpreter) execFile(fo Object) error {
	f := fo.file()
	if f.closed {
		return nil
	}

	for {
		tok, err := f.s.scanToken()
		if err == io.EOF {
			if len(f.procStart) > 0 {
				f.pending = f.pending[:0]
				f.procStart = f.procStart[:0]
				return intp.e(Syntaxerror, "unexpected end of input inside procedure")
			}
			return intp.closeFile(f)
		} else if err != nil {
			f.pending = f.pending[:0]
			f.procStart = f.procStart[:0]
			if _, ok := err.(*Error); ok {
				return err
			}
			return &Error{Kind: IOError, Msg: errors.Wrap(err, f.Name).Error()}
		}

		switch tok.kind {
		case tokProcBegin:
			f.procStart = append(f.procStart, len(f.pending))
			continue
		case tokProcEnd:
			if len(f.procStart) == 0 {
				return intp.e(Syntaxerror, "unmatched '}'")
			}
			a := f.procStart[len(f.procStart)-1]
			f.procStart = f.procStart[:len(f.procStart)-1]
			elems := make([]Object, len(f.pending)-a)
			copy(elems, f.pending[a:])
			clear(f.pending[a:])
			f.pending = f.pending[:a]
			proc := intp.newProc(elems)
			proc.line = int32(tok.line)
			if len(f.procStart) > 0 {
				f.pending = append(f.pending, proc)
				continue
			}
			if err := intp.estack.Push(fo); err != nil {
				return err
			}
			return intp.ostack.Push(proc)
		}

		obj, err := intp.tokenObject(tok)
		if err != nil {
			f.pending = f.pending[:0]
			f.procStart = f.procStart[:0]
			return err
		}
		if len(f.procStart) > 0 {
			f.pending = append(f.pending, obj)
			continue
		}

		if err := intp.estack.Push(fo); err != nil {
			return err
		}
		literal := tok.kind == tokNumber || tok.kind == tokString ||
			tok.kind == tokImmediateName && obj.typ == TypeArray
		if obj.IsExecutable() && !literal {
			return intp.estack.Push(obj)
		}
		return intp.ostack.Push(obj)
	}
}

// tokenObject converts a token into a PostScript object.  Immediately
// evaluated names are looked up on the dictionary stack.
func (intp *Interpreter) tokenObject(tok token) (Object, error) {
	var obj Object
	switch tok.kind {
	case tokNumber:
		obj = tok.obj
	case tokString:
		obj = intp.vm.NewString(tok.text)
	case tokName:
		obj = intp.vm.name(string(tok.text)).Object().Executable()
	case tokLiteralName:
		obj = intp.vm.name(string(tok.text)).Object()
	case tokImmediateName:
		key := intp.vm.name(string(tok.text)).Object()
		val, ok := intp.dstack.Lookup(key)
		if !ok {
			return key, intp.e(Undefined, "//%s", tok.text)
		}
		return val, nil
	}
	obj.line = int32(tok.line)
	return obj, nil
}

// newProc creates an executable array from elements read by the scanner.
// While packing is enabled, the result is a read-only packed array.
func (intp *Interpreter) newProc(elems []Object) Object {
	proc := intp.vm.NewArray(elems).Executable()
	if intp.vm.packing {
		proc.attr |= AttrPacked
		proc = proc.ReadOnly()
	}
	return proc
}

// currentFile returns the topmost file on the execution stack.
func (intp *Interpreter) currentFile() (Object, bool) {
	es := intp.estack
	for i := es.depth() - 1; i >= 0; i-- {
		if es.data[i].typ == TypeFile {
			return es.data[i], true
		}
	}
	return Object{}, false
}

// eexecReader decrypts the eexec-encrypted portion of a file.  The
// cipher text may be binary or hexadecimal.
type eexecReader struct {
	s         *Scanner
	n         int
	R, c1, c2 uint16
	isBinary  bool
}

func newEexecReader(s *Scanner) (*eexecReader, error) {
	for {
		b, err := s.Peek()
		if err != nil {
			return nil, err
		}
		if b != ' ' && b != '\t' && b != '\r' && b != '\n' {
			break
		}
		s.SkipByte()
	}

	bb := s.PeekN(4)
	if len(bb) < 4 {
		return nil, io.ErrUnexpectedEOF
	}
	isHex := true
	for _, b := range bb {
		if !('0' <= b && b <= '9' || 'a' <= b && b <= 'f' || 'A' <= b && b <= 'F') {
			isHex = false
			break
		}
	}

	return &eexecReader{
		s:        s,
		n:        4,
		R:        55665,
		c1:       52845,
		c2:       22719,
		isBinary: !isHex,
	}, nil
}

// Read decrypts a single byte per call, so that no cipher text beyond
// what the scanner asked for is consumed from the underlying file.
func (r *eexecReader) Read(p []byte) (int, error) {
	for r.n > 0 {
		_, err := r.nextPlain()
		if err != nil {
			return 0, err
		}
		r.n--
	}
	if len(p) == 0 {
		return 0, nil
	}
	b, err := r.nextPlain()
	if err != nil {
		return 0, err
	}
	p[0] = b
	return 1, nil
}

func (r *eexecReader) nextPlain() (byte, error) {
	cipher, err := r.nextCipher()
	if err != nil {
		return 0, err
	}
	plain := cipher ^ byte(r.R>>8)
	r.R = (uint16(cipher)+r.R)*r.c1 + r.c2
	return plain, nil
}

func (r *eexecReader) nextCipher() (byte, error) {
	if r.isBinary {
		return r.s.Next()
	}

	i := 0
	var out byte
	for i < 2 {
		b, err := r.s.Next()
		var nibble byte
		switch {
		case err != nil:
			return 0, err
		case b <= 32:
			continue
		case b >= '0' && b <= '9':
			nibble = b - '0'
		case b >= 'A' && b <= 'F':
			nibble = b - 'A' + 10
		case b >= 'a' && b <= 'f':
			nibble = b - 'a' + 10
		default:
			return 0, errors.Errorf("invalid hex digit %q", b)
		}
		out = out<<4 | nibble
		i++
	}
	return out, nil
}
