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

import "math"

func bSave(intp *Interpreter) error {
	if err := intp.ostack.room(1); err != nil {
		return err
	}
	s := intp.vm.Save()
	s.gsDepth = intp.gs.Save()
	return intp.ostack.Push(Object{typ: TypeSave, attr: unlimitedAccess, ref: s})
}

func bRestore(intp *Interpreter) error {
	obj, err := intp.ostack.TopType(TypeSave.Mask())
	if err != nil {
		return err
	}
	s := obj.save()
	if !s.valid {
		return intp.e(Invalidrestore, "restore: save object no longer valid")
	}
	if err := intp.checkRestore(s); err != nil {
		return err
	}
	if err := intp.vm.Restore(s); err != nil {
		return err
	}
	intp.gs.Restore(s.gsDepth)
	intp.ostack.drop(1)
	return nil
}

// checkRestore verifies that no stack refers to a local composite object
// which would be discarded by restoring s.
func (intp *Interpreter) checkRestore(s *SaveObject) error {
	stacks := []struct {
		name string
		s    *Stack
	}{
		{"operand", intp.ostack},
		{"execution", intp.estack},
		{"dictionary", &intp.dstack.Stack},
	}
	for _, st := range stacks {
		for _, o := range st.s.data {
			refs := []Object{o}
			if o.typ == typeControl {
				c := o.control()
				refs = []Object{c.proc, c.src}
			}
			for _, r := range refs {
				if s.createdAfter(r) {
					return intp.e(Invalidrestore, "restore: %s stack refers to newer %s", st.name, r.typ)
				}
			}
		}
	}
	return nil
}

func bSetglobal(intp *Interpreter) error {
	b, err := intp.ostack.PopType(TypeBoolean.Mask())
	if err != nil {
		return err
	}
	intp.vm.SetGlobal(b.Bool())
	return nil
}

func bCurrentglobal(intp *Interpreter) error {
	return intp.ostack.Push(MakeBool(intp.vm.Global()))
}

func bGcheck(intp *Interpreter) error {
	obj, err := intp.ostack.Top()
	if err != nil {
		return intp.e(Stackunderflow, "gcheck: not enough arguments")
	}
	res := true
	if obj.Is(CompositeMask) {
		res = obj.IsGlobal()
	}
	intp.ostack.drop(1)
	return intp.ostack.Push(MakeBool(res))
}

// vmstatus pushes the save level, the number of composite objects
// allocated so far and a nominal maximum.
func vmstatus(intp *Interpreter) error {
	if err := intp.ostack.room(3); err != nil {
		return err
	}
	vm := intp.vm
	intp.ostack.Push(MakeInt(int64(len(vm.saves))))
	intp.ostack.Push(MakeInt(int64(vm.allocated)))
	return intp.ostack.Push(MakeInt(math.MaxInt32))
}
