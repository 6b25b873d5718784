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
	"math"
)

func bType(intp *Interpreter) error {
	obj, err := intp.ostack.Top()
	if err != nil {
		return intp.e(Stackunderflow, "type: not enough arguments")
	}
	tp := obj.typ.String()
	if obj.typ == TypeArray && obj.attr&AttrPacked != 0 {
		tp = "packedarraytype"
	}
	intp.ostack.drop(1)
	return intp.ostack.Push(intp.vm.name(tp).Object())
}

func bCvlit(intp *Interpreter) error {
	obj, err := intp.ostack.Top()
	if err != nil {
		return intp.e(Stackunderflow, "cvlit: not enough arguments")
	}
	intp.ostack.drop(1)
	return intp.ostack.Push(obj.Literal())
}

func bCvx(intp *Interpreter) error {
	obj, err := intp.ostack.Top()
	if err != nil {
		return intp.e(Stackunderflow, "cvx: not enough arguments")
	}
	intp.ostack.drop(1)
	return intp.ostack.Push(obj.Executable())
}

func bXcheck(intp *Interpreter) error {
	obj, err := intp.ostack.Top()
	if err != nil {
		return intp.e(Stackunderflow, "xcheck: not enough arguments")
	}
	intp.ostack.drop(1)
	return intp.ostack.Push(MakeBool(obj.IsExecutable()))
}

// accessTypes are the types which carry access attributes.
var accessTypes = CompositeMask | TypeFile.Mask()

func bRcheck(intp *Interpreter) error {
	obj, err := intp.ostack.TopType(accessTypes)
	if err != nil {
		return err
	}
	intp.ostack.drop(1)
	return intp.ostack.Push(MakeBool(obj.Readable()))
}

func bWcheck(intp *Interpreter) error {
	obj, err := intp.ostack.TopType(accessTypes)
	if err != nil {
		return err
	}
	intp.ostack.drop(1)
	return intp.ostack.Push(MakeBool(obj.Writable()))
}

func bExecuteonly(intp *Interpreter) error {
	obj, err := intp.ostack.TopType(TypeArray.Mask() | TypeString.Mask() | TypeFile.Mask())
	if err != nil {
		return err
	}
	if !obj.CanExecute() {
		return intp.e(Invalidaccess, "executeonly: object has no access")
	}
	intp.ostack.drop(1)
	return intp.ostack.Push(obj.ExecuteOnly())
}

func bNoaccess(intp *Interpreter) error {
	obj, err := intp.ostack.TopType(accessTypes)
	if err != nil {
		return err
	}
	if obj.typ == TypeDict && !obj.Writable() {
		return intp.e(Invalidaccess, "noaccess: dictionary is read-only")
	}
	intp.ostack.drop(1)
	return intp.ostack.Push(obj.NoAccess())
}

func bReadonly(intp *Interpreter) error {
	obj, err := intp.ostack.TopType(accessTypes)
	if err != nil {
		return err
	}
	intp.ostack.drop(1)
	return intp.ostack.Push(obj.ReadOnly())
}

// numberFromString parses the contents of a string as a number token.
func (intp *Interpreter) numberFromString(op string, s Object) (Object, error) {
	if !s.Readable() {
		return Object{}, intp.e(Invalidaccess, "%s: string is not readable", op)
	}
	x, ok := parseNumber(bytes.TrimSpace(s.bytes()))
	if !ok {
		return Object{}, intp.e(Typecheck, "%s: %q is not a number", op, s.bytes())
	}
	return x, nil
}

func bCvi(intp *Interpreter) error {
	obj, err := intp.ostack.TopType(NumberMask | TypeString.Mask())
	if err != nil {
		return err
	}
	if obj.typ == TypeString {
		obj, err = intp.numberFromString("cvi", obj)
		if err != nil {
			return err
		}
	}
	res := obj
	if obj.typ == TypeReal {
		f := math.Trunc(obj.r)
		if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return intp.e(Rangecheck, "cvi: %g out of range", obj.r)
		}
		res = MakeInt(int64(f))
	}
	intp.ostack.drop(1)
	return intp.ostack.Push(res)
}

func bCvr(intp *Interpreter) error {
	obj, err := intp.ostack.TopType(NumberMask | TypeString.Mask())
	if err != nil {
		return err
	}
	if obj.typ == TypeString {
		obj, err = intp.numberFromString("cvr", obj)
		if err != nil {
			return err
		}
	}
	intp.ostack.drop(1)
	return intp.ostack.Push(MakeReal(obj.Real()))
}

func bCvn(intp *Interpreter) error {
	s, err := intp.ostack.TopType(TypeString.Mask())
	if err != nil {
		return err
	}
	if !s.Readable() {
		return intp.e(Invalidaccess, "cvn: string is not readable")
	}
	name := intp.vm.name(string(s.bytes())).Object()
	if s.IsExecutable() {
		name = name.Executable()
	}
	intp.ostack.drop(1)
	return intp.ostack.Push(name)
}

func bCvs(intp *Interpreter) error {
	args, err := intp.args("cvs", 2)
	if err != nil {
		return err
	}
	obj, buf := args[0], args[1]
	if buf.typ != TypeString {
		return intp.e(Typecheck, "cvs: expected a string, got %s", buf.typ)
	}
	if obj.typ == TypeString && !obj.Readable() {
		return intp.e(Invalidaccess, "cvs: string is not readable")
	}
	text := obj.text()
	if len(text) > buf.Len() {
		return intp.e(Rangecheck, "cvs: string too short")
	}
	if err := intp.vm.stringWrite(buf, 0, []byte(text)); err != nil {
		return err
	}
	res, _ := interval(buf, 0, len(text))
	intp.ostack.drop(2)
	return intp.ostack.Push(res)
}

func bBind(intp *Interpreter) error {
	proc, err := intp.ostack.TopType(procMask)
	if err != nil {
		return err
	}
	return intp.bindProc(proc, make(map[*arrayNode]bool))
}

// bindProc replaces executable names in proc which refer to operators
// by the operators themselves.  Nested procedures are bound recursively
// and made read-only.  Procedures which are already read-only are left
// unchanged.
func (intp *Interpreter) bindProc(proc Object, seen map[*arrayNode]bool) error {
	n := proc.array()
	if seen[n] || !proc.Writable() {
		return nil
	}
	seen[n] = true

	for i, elem := range proc.Elems() {
		switch {
		case elem.typ == TypeName && elem.IsExecutable():
			val, ok := intp.dstack.Lookup(elem)
			if !ok || val.typ != TypeOperator {
				continue
			}
			val.attr |= AttrBound
			if err := intp.vm.arrayPut(proc, i, val); err != nil {
				return err
			}
		case elem.typ == TypeArray && elem.IsExecutable() && elem.Writable():
			if err := intp.bindProc(elem, seen); err != nil {
				return err
			}
			if err := intp.vm.arrayPut(proc, i, elem.ReadOnly()); err != nil {
				return err
			}
		}
	}
	return nil
}
