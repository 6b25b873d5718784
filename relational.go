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
)

// Relational, boolean and bitwise operators, dispatched by relational.
const (
	opEq opcode = iota
	opNe
	opGe
	opGt
	opLe
	opLt
	opAnd
	opOr
	opXor
	opNot
	opBitshift
)

var relationalOps = map[string]opcode{
	"eq":       opEq,
	"ne":       opNe,
	"ge":       opGe,
	"gt":       opGt,
	"le":       opLe,
	"lt":       opLt,
	"and":      opAnd,
	"or":       opOr,
	"xor":      opXor,
	"not":      opNot,
	"bitshift": opBitshift,
}

func relational(intp *Interpreter, op opcode) error {
	if op == opNot {
		v, err := intp.ostack.TopType(TypeBoolean.Mask() | TypeInteger.Mask())
		if err != nil {
			return err
		}
		var res Object
		if v.typ == TypeBoolean {
			res = MakeBool(!v.Bool())
		} else {
			res = MakeInt(^v.n)
		}
		intp.ostack.drop(1)
		return intp.ostack.Push(res)
	}

	if err := intp.ostack.need(2); err != nil {
		return err
	}
	args := intp.ostack.top(2)
	a, b := args[0], args[1]

	var res Object
	switch op {
	case opEq, opNe:
		eq, err := equal(a, b)
		if err != nil {
			return err
		}
		res = MakeBool(eq == (op == opEq))

	case opGe, opGt, opLe, opLt:
		c, err := compare(a, b)
		if err != nil {
			return err
		}
		switch op {
		case opGe:
			res = MakeBool(c >= 0)
		case opGt:
			res = MakeBool(c > 0)
		case opLe:
			res = MakeBool(c <= 0)
		default:
			res = MakeBool(c < 0)
		}

	case opAnd, opOr, opXor:
		switch {
		case a.typ == TypeBoolean && b.typ == TypeBoolean:
			x, y := a.Bool(), b.Bool()
			switch op {
			case opAnd:
				res = MakeBool(x && y)
			case opOr:
				res = MakeBool(x || y)
			default:
				res = MakeBool(x != y)
			}
		case a.typ == TypeInteger && b.typ == TypeInteger:
			switch op {
			case opAnd:
				res = MakeInt(a.n & b.n)
			case opOr:
				res = MakeInt(a.n | b.n)
			default:
				res = MakeInt(a.n ^ b.n)
			}
		default:
			return intp.e(Typecheck, "expected two booleans or two integers")
		}

	case opBitshift:
		if a.typ != TypeInteger || b.typ != TypeInteger {
			return intp.e(Typecheck, "bitshift: expected integers")
		}
		shift := b.n
		switch {
		case shift >= 64 || shift <= -64:
			res = MakeInt(0)
		case shift >= 0:
			res = MakeInt(a.n << uint(shift))
		default:
			res = MakeInt(int64(uint64(a.n) >> uint(-shift)))
		}
	}

	intp.ostack.drop(2)
	return intp.ostack.Push(res)
}

// equal implements the semantics of the eq operator.
func equal(a, b Object) (bool, error) {
	if a.Is(NumberMask) && b.Is(NumberMask) {
		if a.typ == TypeInteger && b.typ == TypeInteger {
			return a.n == b.n, nil
		}
		return a.Real() == b.Real(), nil
	}

	textual := TypeString.Mask() | TypeName.Mask()
	if a.Is(textual) && b.Is(textual) {
		if a.typ == TypeName && b.typ == TypeName {
			return a.ref == b.ref, nil
		}
		if a.typ == TypeString && !a.Readable() || b.typ == TypeString && !b.Readable() {
			return false, &Error{Kind: Invalidaccess, Msg: "eq: string is not readable"}
		}
		return a.Text() == b.Text(), nil
	}

	if a.typ != b.typ {
		return false, nil
	}
	switch a.typ {
	case TypeBoolean:
		return a.n == b.n, nil
	case TypeNull, TypeMark:
		return true, nil
	default:
		return sameValue(a, b), nil
	}
}

// compare orders two numbers or two strings.
func compare(a, b Object) (int, error) {
	switch {
	case a.Is(NumberMask) && b.Is(NumberMask):
		if a.typ == TypeInteger && b.typ == TypeInteger {
			switch {
			case a.n < b.n:
				return -1, nil
			case a.n > b.n:
				return 1, nil
			}
			return 0, nil
		}
		x, y := a.Real(), b.Real()
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		}
		return 0, nil
	case a.typ == TypeString && b.typ == TypeString:
		if !a.Readable() || !b.Readable() {
			return 0, &Error{Kind: Invalidaccess, Msg: "string is not readable"}
		}
		return bytes.Compare(a.bytes(), b.bytes()), nil
	}
	return 0, &Error{Kind: Typecheck, Msg: "expected two numbers or two strings"}
}
