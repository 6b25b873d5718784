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
	"strconv"
	"strings"
)

// maxFormatDepth limits the nesting of arrays in String.
const maxFormatDepth = 8

// String returns the PostScript syntax for o, in the form used by the
// == operator.  Objects without a syntactic representation are shown
// as e.g. "-dict-".
func (o Object) String() string {
	var b strings.Builder
	writeSyntax(&b, o, 0)
	return b.String()
}

func writeSyntax(b *strings.Builder, o Object, depth int) {
	switch o.typ {
	case TypeName:
		if o.IsLiteral() {
			b.WriteByte('/')
		}
		b.WriteString(o.name().text)
	case TypeString:
		if !o.Readable() {
			b.WriteString("-string-")
			return
		}
		b.WriteString(psString(o.bytes()))
	case TypeArray:
		if !o.Readable() {
			b.WriteString("-array-")
			return
		}
		open, close := "[", "]"
		if o.IsExecutable() {
			open, close = "{", "}"
		}
		b.WriteString(open)
		if depth >= maxFormatDepth {
			b.WriteString("...")
		} else {
			for i, elem := range o.Elems() {
				if i > 0 {
					b.WriteByte(' ')
				}
				writeSyntax(b, elem, depth+1)
			}
		}
		b.WriteString(close)
	case TypeOperator:
		b.WriteString("--")
		b.WriteString(o.op().name)
		b.WriteString("--")
	case typeControl:
		b.WriteString("--%")
		b.WriteString(o.control().kind.String())
		b.WriteString("--")
	case TypeNull, TypeInteger, TypeReal, TypeBoolean:
		b.WriteString(o.text())
	default:
		b.WriteByte('-')
		b.WriteString(strings.TrimSuffix(o.typ.String(), "type"))
		b.WriteByte('-')
	}
}

// text returns the text representation of o used by the = and cvs
// operators.
func (o Object) text() string {
	switch o.typ {
	case TypeNull:
		return "null"
	case TypeInteger:
		return strconv.FormatInt(o.n, 10)
	case TypeReal:
		return formatReal(o.r)
	case TypeBoolean:
		return strconv.FormatBool(o.Bool())
	case TypeString:
		return string(o.bytes())
	case TypeName:
		return o.name().text
	case TypeOperator:
		return o.op().name
	}
	return "--nostringval--"
}

// formatReal formats x so that it is read back as a real number.
func formatReal(x float64) string {
	s := strconv.FormatFloat(x, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eInN") {
		s += ".0"
	}
	return s
}

// psString returns the PostScript string literal for the bytes in s.
func psString(s []byte) string {
	var b strings.Builder
	b.WriteByte('(')
	for _, c := range s {
		switch c {
		case '(', ')', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if c < 32 || c >= 127 {
				b.WriteByte('\\')
				b.WriteString(strconv.FormatInt(int64(c)|0o1000, 8)[1:])
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte(')')
	return b.String()
}
