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
	"cmp"
	"math"
	"slices"
)

// dictKey is the comparable form of a dictionary key.
type dictKey struct {
	typ  Type
	bits uint64
	ref  any
}

type dictEntry struct {
	key Object
	val Object
}

// makeKey converts a PostScript object into a dictionary key.
// Strings are converted to names and integral reals to integers.
// If intern is nil, strings whose text is not in the name table yield
// ok == false.
func makeKey(k Object, intern func(string) *Name) (key dictKey, norm Object, ok bool, err error) {
	switch k.typ {
	case TypeNull:
		return key, k, false, &Error{Kind: Typecheck, Msg: "null used as dictionary key"}
	case TypeName:
		return dictKey{typ: TypeName, ref: k.name()}, k.Literal(), true, nil
	case TypeString:
		if !k.Readable() {
			return key, k, false, &Error{Kind: Invalidaccess, Msg: "string key is not readable"}
		}
		var n *Name
		if intern != nil {
			n = intern(string(k.bytes()))
		} else {
			n, ok = LookupName(string(k.bytes()))
			if !ok {
				return key, k, false, nil
			}
		}
		return dictKey{typ: TypeName, ref: n}, n.Object(), true, nil
	case TypeInteger:
		return dictKey{typ: TypeInteger, bits: uint64(k.n)}, k, true, nil
	case TypeReal:
		if f := k.r; f == math.Trunc(f) && math.Abs(f) < 1<<62 {
			k = MakeInt(int64(f))
			return dictKey{typ: TypeInteger, bits: uint64(k.n)}, k, true, nil
		}
		return dictKey{typ: TypeReal, bits: math.Float64bits(k.r)}, k, true, nil
	case TypeBoolean:
		return dictKey{typ: TypeBoolean, bits: uint64(k.n)}, k, true, nil
	case TypeMark:
		return dictKey{typ: TypeMark}, k, true, nil
	}
	bits := uint64(uint32(k.off))<<32 | uint64(uint32(k.n))
	return dictKey{typ: k.typ, bits: bits, ref: k.ref}, k, true, nil
}

// dictGet looks up key in the dictionary d.
func (vm *VM) dictGet(d Object, key Object) (Object, bool, error) {
	n := d.dict()
	if n.access&AttrRead == 0 {
		return Object{}, false, &Error{Kind: Invalidaccess, Msg: "dictionary is not readable"}
	}
	k, _, ok, err := makeKey(key, nil)
	if err != nil || !ok {
		return Object{}, false, err
	}
	e, ok := n.data[k]
	return e.val, ok, nil
}

// lookup is dictGet without access checks, used for name resolution.
func (n *dictNode) lookup(name Object) (Object, bool) {
	var k dictKey
	if name.typ == TypeName {
		k = dictKey{typ: TypeName, ref: name.name()}
	} else {
		var ok bool
		k, _, ok, _ = makeKey(name, nil)
		if !ok {
			return Object{}, false
		}
	}
	e, ok := n.data[k]
	return e.val, ok
}

// dictPut stores val under key in the dictionary d.
func (vm *VM) dictPut(d Object, key, val Object) error {
	n := d.dict()
	if n.access&AttrWrite == 0 {
		return &Error{Kind: Invalidaccess, Msg: "dictionary is read-only"}
	}
	return vm.dictPutPrivileged(n, key, val)
}

// dictPutPrivileged stores val under key, ignoring the access attributes
// of the dictionary.
func (vm *VM) dictPutPrivileged(n *dictNode, key, val Object) error {
	k, norm, _, err := makeKey(key, vm.name)
	if err != nil {
		return err
	}
	if err := vm.checkStore(&n.nodeHeader, norm); err != nil {
		return err
	}
	if err := vm.checkStore(&n.nodeHeader, val); err != nil {
		return err
	}
	vm.prepareWrite(n)
	n.data[k] = dictEntry{key: norm, val: val}
	if len(n.data) > n.maxLength {
		n.maxLength = len(n.data)
	}
	return nil
}

// dictUndef removes key from the dictionary d.
func (vm *VM) dictUndef(d Object, key Object) error {
	n := d.dict()
	if n.access&AttrWrite == 0 {
		return &Error{Kind: Invalidaccess, Msg: "dictionary is read-only"}
	}
	k, _, ok, err := makeKey(key, nil)
	if err != nil || !ok {
		return err
	}
	if _, present := n.data[k]; !present {
		return nil
	}
	vm.prepareWrite(n)
	delete(n.data, k)
	return nil
}

// sortedEntries returns the entries of the dictionary in a deterministic
// order: names by creation order, then numbers and other keys.
func (n *dictNode) sortedEntries() []dictEntry {
	keys := make([]dictKey, 0, len(n.data))
	for k := range n.data {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b dictKey) int {
		if c := cmp.Compare(a.typ, b.typ); c != 0 {
			return c
		}
		if a.typ == TypeName {
			return cmp.Compare(a.ref.(*Name).id, b.ref.(*Name).id)
		}
		return cmp.Compare(a.bits, b.bits)
	})
	res := make([]dictEntry, len(keys))
	for i, k := range keys {
		res[i] = n.data[k]
	}
	return res
}
