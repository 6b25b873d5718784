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

// standardCategories are the resource categories of a new interpreter.
var standardCategories = []string{"Category", "Generic", "ProcSet", "Encoding"}

// makeResources creates the instance dictionaries of the standard
// resource categories.  The Category category maps each category name to
// its implementation dictionary.
func (intp *Interpreter) makeResources() {
	vm := intp.vm
	intp.resources = vm.NewDict(len(standardCategories))
	rd := intp.resources.dict()
	impl := vm.NewDict(len(standardCategories))
	for _, cat := range standardCategories {
		inst := impl
		if cat != "Category" {
			inst = vm.NewDict(16)
		}
		rd.define(vm.name(cat), inst)
		impl.dict().define(vm.name(cat), vm.NewDict(1))
	}
}

// category returns the instance dictionary of a resource category.
func (intp *Interpreter) category(op string, name Object) (Object, error) {
	if name.typ != TypeName {
		return Object{}, intp.e(Typecheck, "%s: category must be a name, got %s", op, name.typ)
	}
	d, ok := intp.resources.dict().lookup(name)
	if !ok {
		return Object{}, intp.e(Undefined, "%s: unknown resource category %s", op, name.Text())
	}
	return d, nil
}

func (intp *Interpreter) resourceKey(op string, key Object) error {
	if key.typ != TypeName && key.typ != TypeString {
		return intp.e(Typecheck, "%s: key must be a name or string, got %s", op, key.typ)
	}
	return nil
}

func bDefineresource(intp *Interpreter) error {
	args, err := intp.args("defineresource", 3)
	if err != nil {
		return err
	}
	key, instance, catName := args[0], args[1], args[2]
	if err := intp.resourceKey("defineresource", key); err != nil {
		return err
	}
	cat, err := intp.category("defineresource", catName)
	if err != nil {
		return err
	}

	if catName.Text() == "Category" {
		if instance.typ != TypeDict {
			return intp.e(Typecheck, "defineresource: category implementation must be a dictionary")
		}
		_, known, err := intp.vm.dictGet(intp.resources, key)
		if err != nil {
			return err
		}
		if !known {
			err = intp.vm.dictPut(intp.resources, key, intp.vm.NewDict(16))
			if err != nil {
				return err
			}
		}
	}

	if err := intp.vm.dictPut(cat, key, instance); err != nil {
		return err
	}
	intp.ostack.drop(3)
	return intp.ostack.Push(instance)
}

func bUndefineresource(intp *Interpreter) error {
	args, err := intp.args("undefineresource", 2)
	if err != nil {
		return err
	}
	key, catName := args[0], args[1]
	if err := intp.resourceKey("undefineresource", key); err != nil {
		return err
	}
	cat, err := intp.category("undefineresource", catName)
	if err != nil {
		return err
	}
	if err := intp.vm.dictUndef(cat, key); err != nil {
		return err
	}
	if catName.Text() == "Category" {
		if err := intp.vm.dictUndef(intp.resources, key); err != nil {
			return err
		}
	}
	intp.ostack.drop(2)
	return nil
}

func bFindresource(intp *Interpreter) error {
	args, err := intp.args("findresource", 2)
	if err != nil {
		return err
	}
	key, catName := args[0], args[1]
	if err := intp.resourceKey("findresource", key); err != nil {
		return err
	}
	cat, err := intp.category("findresource", catName)
	if err != nil {
		return err
	}
	val, ok, err := intp.vm.dictGet(cat, key)
	if err != nil {
		return err
	}
	if !ok {
		return intp.e(Undefinedresource, "findresource: %s not found in category %s",
			key.Text(), catName.Text())
	}
	intp.ostack.drop(2)
	return intp.ostack.Push(val)
}

// bResourcestatus pushes status, size and true for a resource defined
// in VM, and false otherwise.  Sizes are not tracked and reported as -1.
func bResourcestatus(intp *Interpreter) error {
	args, err := intp.args("resourcestatus", 2)
	if err != nil {
		return err
	}
	key, catName := args[0], args[1]
	if err := intp.resourceKey("resourcestatus", key); err != nil {
		return err
	}
	cat, err := intp.category("resourcestatus", catName)
	if err != nil {
		return err
	}
	_, ok, err := intp.vm.dictGet(cat, key)
	if err != nil {
		return err
	}
	if !ok {
		intp.ostack.drop(2)
		return intp.ostack.Push(MakeBool(false))
	}
	if err := intp.ostack.room(1); err != nil {
		return err
	}
	intp.ostack.drop(2)
	intp.ostack.Push(MakeInt(0))
	intp.ostack.Push(MakeInt(-1))
	return intp.ostack.Push(MakeBool(true))
}
