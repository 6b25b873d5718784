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

// DictStack is the dictionary stack of an interpreter.
//
// The bottom entries (systemdict, globaldict and userdict) are permanent
// and can not be removed by end.
type DictStack struct {
	Stack
	vm        *VM
	permanent int
}

func newDictStack(vm *VM, limit int) *DictStack {
	return &DictStack{
		Stack: Stack{
			data:      make([]Object, 0, limit),
			limit:     limit,
			overflow:  Dictstackoverflow,
			underflow: Dictstackunderflow,
		},
		vm: vm,
	}
}

// Begin pushes d onto the dictionary stack.
func (ds *DictStack) Begin(d Object) error {
	if d.typ != TypeDict {
		return &Error{Kind: Typecheck, Msg: "begin: expected a dictionary"}
	}
	return ds.Push(d)
}

// End pops the topmost dictionary.  The permanent entries are never
// removed.
func (ds *DictStack) End() error {
	if ds.depth() <= ds.permanent {
		return &Error{Kind: Dictstackunderflow}
	}
	ds.drop(1)
	return nil
}

// clear removes all non-permanent dictionaries.
func (ds *DictStack) clear() {
	ds.setDepth(ds.permanent)
}

// Current returns the topmost dictionary.
func (ds *DictStack) Current() Object {
	return ds.data[len(ds.data)-1]
}

// Lookup searches the dictionary stack from the top for key.
func (ds *DictStack) Lookup(key Object) (Object, bool) {
	for i := len(ds.data) - 1; i >= 0; i-- {
		if val, ok := ds.data[i].dict().lookup(key); ok {
			return val, true
		}
	}
	return Object{}, false
}

// DefiningDict returns the topmost dictionary which contains key.
func (ds *DictStack) DefiningDict(key Object) (Object, bool) {
	for i := len(ds.data) - 1; i >= 0; i-- {
		d := ds.data[i]
		if _, ok := d.dict().lookup(key); ok {
			return d, true
		}
	}
	return Object{}, false
}

// Define associates key with val in the topmost dictionary.
func (ds *DictStack) Define(key, val Object) error {
	return ds.vm.dictPut(ds.Current(), key, val)
}

// Store replaces the value of key in the topmost dictionary which
// contains key.  If no dictionary contains key, Store is equivalent to
// Define.
func (ds *DictStack) Store(key, val Object) error {
	d, ok := ds.DefiningDict(key)
	if !ok {
		d = ds.Current()
	}
	return ds.vm.dictPut(d, key, val)
}
