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
	"math"
)

type opcode uint8

// Arithmetic operators, dispatched by arith.
const (
	opAdd opcode = iota
	opSub
	opMul
	opDiv
	opIdiv
	opMod
	opAbs
	opNeg
	opCeiling
	opFloor
	opRound
	opTruncate
	opSqrt
	opAtan
	opCos
	opSin
	opExp
	opLn
	opLog
)

var arithOps = map[string]opcode{
	"add":      opAdd,
	"sub":      opSub,
	"mul":      opMul,
	"div":      opDiv,
	"idiv":     opIdiv,
	"mod":      opMod,
	"abs":      opAbs,
	"neg":      opNeg,
	"ceiling":  opCeiling,
	"floor":    opFloor,
	"round":    opRound,
	"truncate": opTruncate,
	"sqrt":     opSqrt,
	"atan":     opAtan,
	"cos":      opCos,
	"sin":      opSin,
	"exp":      opExp,
	"ln":       opLn,
	"log":      opLog,
}

// arith implements the arithmetic operators.  Unary operators replace the
// top of the operand stack, binary operators the two topmost elements.
func arith(intp *Interpreter, op opcode) error {
	switch op {
	case opAdd, opSub, opMul, opDiv, opIdiv, opMod, opAtan, opExp:
		return arithBinary(intp, op)
	}

	v, err := intp.ostack.TopType(NumberMask)
	if err != nil {
		return err
	}
	var res Object
	switch op {
	case opAbs:
		switch {
		case v.typ == TypeReal:
			res = MakeReal(math.Abs(v.r))
		case v.n == math.MinInt64:
			res = MakeReal(-float64(v.n))
		case v.n < 0:
			res = MakeInt(-v.n)
		default:
			res = v
		}
	case opNeg:
		switch {
		case v.typ == TypeReal:
			res = MakeReal(-v.r)
		case v.n == math.MinInt64:
			res = MakeReal(-float64(v.n))
		default:
			res = MakeInt(-v.n)
		}
	case opCeiling, opFloor, opRound, opTruncate:
		if v.typ == TypeInteger {
			return nil
		}
		switch op {
		case opCeiling:
			res = MakeReal(math.Ceil(v.r))
		case opFloor:
			res = MakeReal(math.Floor(v.r))
		case opRound:
			// halfway cases round towards positive infinity
			res = MakeReal(math.Floor(v.r + 0.5))
		default:
			res = MakeReal(math.Trunc(v.r))
		}
	case opSqrt:
		f := v.Real()
		if f < 0 {
			return intp.e(Rangecheck, "sqrt: negative argument")
		}
		res = MakeReal(math.Sqrt(f))
	case opCos:
		res = MakeReal(math.Cos(v.Real() * math.Pi / 180))
	case opSin:
		res = MakeReal(math.Sin(v.Real() * math.Pi / 180))
	case opLn, opLog:
		f := v.Real()
		if f <= 0 {
			return intp.e(Rangecheck, "log of non-positive number")
		}
		if op == opLn {
			res = MakeReal(math.Log(f))
		} else {
			res = MakeReal(math.Log10(f))
		}
	}
	intp.ostack.drop(1)
	return intp.ostack.Push(res)
}

func arithBinary(intp *Interpreter, op opcode) error {
	if err := intp.ostack.need(2); err != nil {
		return err
	}
	args := intp.ostack.top(2)
	a, b := args[0], args[1]
	if !a.Is(NumberMask) || !b.Is(NumberMask) {
		return intp.e(Typecheck, "expected numbers, got %s and %s", a.typ, b.typ)
	}

	var res Object
	switch op {
	case opAdd:
		res = psAdd(a, b)
	case opSub:
		res = psSub(a, b)
	case opMul:
		res = psMul(a, b)
	case opDiv:
		d := b.Real()
		if d == 0 {
			return intp.e(Undefinedresult, "div: division by zero")
		}
		res = MakeReal(a.Real() / d)
	case opIdiv, opMod:
		if a.typ != TypeInteger || b.typ != TypeInteger {
			return intp.e(Typecheck, "expected integers")
		}
		if b.n == 0 {
			return intp.e(Undefinedresult, "division by zero")
		}
		if op == opIdiv {
			if a.n == math.MinInt64 && b.n == -1 {
				res = MakeReal(-float64(a.n))
			} else {
				res = MakeInt(a.n / b.n)
			}
		} else {
			if b.n == -1 {
				res = MakeInt(0)
			} else {
				res = MakeInt(a.n % b.n)
			}
		}
	case opAtan:
		num, den := a.Real(), b.Real()
		if num == 0 && den == 0 {
			return intp.e(Undefinedresult, "atan: both arguments zero")
		}
		deg := math.Atan2(num, den) * 180 / math.Pi
		if deg < 0 {
			deg += 360
		}
		res = MakeReal(deg)
	case opExp:
		base, exponent := a.Real(), b.Real()
		if base < 0 && exponent != math.Trunc(exponent) {
			return intp.e(Undefinedresult, "exp: negative base with fractional exponent")
		}
		res = MakeReal(math.Pow(base, exponent))
	}
	if res.typ == TypeReal && (math.IsInf(res.r, 0) || math.IsNaN(res.r)) {
		return intp.e(Undefinedresult, "result out of range")
	}

	intp.ostack.drop(2)
	return intp.ostack.Push(res)
}

// psAdd adds two numbers.  Integer results which overflow are
// converted to reals.
func psAdd(a, b Object) Object {
	if a.typ == TypeReal || b.typ == TypeReal {
		return MakeReal(a.Real() + b.Real())
	}
	c := a.n + b.n
	if (a.n < 0 && b.n < 0 && c >= 0) || (a.n > 0 && b.n > 0 && c <= 0) {
		return MakeReal(float64(a.n) + float64(b.n))
	}
	return MakeInt(c)
}

func psSub(a, b Object) Object {
	if a.typ == TypeReal || b.typ == TypeReal {
		return MakeReal(a.Real() - b.Real())
	}
	c := a.n - b.n
	if (a.n < 0 && b.n > 0 && c >= 0) || (a.n >= 0 && b.n < 0 && c < 0) {
		return MakeReal(float64(a.n) - float64(b.n))
	}
	return MakeInt(c)
}

func psMul(a, b Object) Object {
	if a.typ == TypeReal || b.typ == TypeReal {
		return MakeReal(a.Real() * b.Real())
	}
	c := a.n * b.n
	if a.n != 0 && (c/a.n != b.n || a.n == -1 && b.n == math.MinInt64) {
		return MakeReal(float64(a.n) * float64(b.n))
	}
	return MakeInt(c)
}
