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
	"slices"
)

// VM is the virtual memory of an interpreter.
//
// Composite values in local VM are versioned: the first write to a node
// after a save stores a snapshot of the old contents in the node's
// version chain and records the node in the journal.  A restore walks the
// journal back to the save point and reverts the recorded nodes.  Nodes in
// global VM are never versioned.
type VM struct {
	level   int
	journal []versioned
	saves   []*SaveObject

	global  bool // allocation mode
	packing bool

	// legacyStringWrites disables versioning of in-place string
	// modifications.  Some older documents depend on string contents
	// surviving a restore.
	legacyStringWrites bool

	allocated int

	// names holds one counted reference to every name interned by this
	// VM.  Repeated uses of a name do not change its reference count.
	names map[string]*Name
}

// SaveObject represents a VM snapshot created by the save operator.
type SaveObject struct {
	level   int
	mark    int
	global  bool
	packing bool
	gsDepth int
	valid   bool
}

// Level returns the save level at which the snapshot was taken.
func (s *SaveObject) Level() int {
	return s.level
}

func newVM() *VM {
	return &VM{level: 1, names: make(map[string]*Name)}
}

// name returns the name table entry for text.  The first use of a name
// in this VM takes a reference, which is held until releaseNames.
func (vm *VM) name(text string) *Name {
	if n, ok := vm.names[text]; ok {
		return n
	}
	n := NewName(text)
	vm.names[text] = n
	return n
}

// releaseNames drops the references taken by name.
func (vm *VM) releaseNames() {
	for text, n := range vm.names {
		n.Release()
		delete(vm.names, text)
	}
}

// Level returns the current save level.  The level is 1 before the first
// save.
func (vm *VM) Level() int {
	return vm.level
}

// Global reports whether new composite objects are allocated in global VM.
func (vm *VM) Global() bool {
	return vm.global
}

// SetGlobal selects the VM used for new composite objects.
func (vm *VM) SetGlobal(global bool) {
	vm.global = global
}

func (vm *VM) newHeader() nodeHeader {
	return nodeHeader{created: vm.level, level: vm.level, global: vm.global}
}

func (vm *VM) track(n versioned) {
	vm.allocated++
	if len(vm.saves) > 0 && !n.hdr().global {
		vm.journal = append(vm.journal, n)
	}
}

func (vm *VM) objectAttr(global bool) Attr {
	attr := unlimitedAccess
	if global {
		attr |= AttrGlobal
	}
	return attr
}

// NewArray allocates a new array holding the given elements.
// The array takes ownership of elems.
func (vm *VM) NewArray(elems []Object) Object {
	n := &arrayNode{nodeHeader: vm.newHeader(), data: elems}
	vm.track(n)
	return Object{
		typ:  TypeArray,
		attr: vm.objectAttr(n.global),
		n:    int64(len(elems)),
		ref:  n,
	}
}

// NewString allocates a new string with a copy of the given contents.
func (vm *VM) NewString(data []byte) Object {
	n := &stringNode{nodeHeader: vm.newHeader(), data: bytesData(slices.Clone(data))}
	if n.data == nil {
		n.data = bytesData{}
	}
	vm.track(n)
	return Object{
		typ:  TypeString,
		attr: vm.objectAttr(n.global),
		n:    int64(len(data)),
		ref:  n,
	}
}

// NewDict allocates a new, empty dictionary.
func (vm *VM) NewDict(capacity int) Object {
	n := &dictNode{
		node:      node[entries]{nodeHeader: vm.newHeader(), data: make(entries, capacity)},
		maxLength: capacity,
		access:    unlimitedAccess,
	}
	vm.track(n)
	return Object{
		typ:  TypeDict,
		attr: vm.objectAttr(n.global) &^ accessMask,
		ref:  n,
	}
}

// prepareWrite must be called before the contents of n are modified.
func (vm *VM) prepareWrite(n versioned) {
	h := n.hdr()
	if h.global || h.level >= vm.level {
		return
	}
	n.snapshot()
	h.level = vm.level
	vm.journal = append(vm.journal, n)
}

// checkStore enforces that global values never refer to local ones.
func (vm *VM) checkStore(container *nodeHeader, val Object) error {
	if !container.global {
		return nil
	}
	if h := val.header(); h != nil && !h.global {
		return &Error{Kind: Invalidaccess, Msg: "local value stored into global VM"}
	}
	return nil
}

// Save creates a new VM snapshot and increments the save level.
func (vm *VM) Save() *SaveObject {
	s := &SaveObject{
		level:   vm.level,
		mark:    len(vm.journal),
		global:  vm.global,
		packing: vm.packing,
		valid:   true,
	}
	vm.saves = append(vm.saves, s)
	vm.level++
	log.Debugf("save: level %d -> %d", s.level, vm.level)
	return s
}

// Restore reverts local VM to the state captured by s.
// All snapshots taken after s become invalid.
func (vm *VM) Restore(s *SaveObject) error {
	idx := slices.Index(vm.saves, s)
	if !s.valid || idx < 0 {
		return &Error{Kind: Invalidrestore, Msg: "save object no longer valid"}
	}

	tail := vm.journal[s.mark:]
	for i := len(tail) - 1; i >= 0; i-- {
		tail[i].revert(s.level)
	}
	clear(tail)
	vm.journal = vm.journal[:s.mark]

	for _, t := range vm.saves[idx:] {
		t.valid = false
	}
	clear(vm.saves[idx:])
	vm.saves = vm.saves[:idx]

	log.Debugf("restore: level %d -> %d, %d nodes reverted", vm.level, s.level, len(tail))
	vm.level = s.level
	vm.global = s.global
	vm.packing = s.packing
	return nil
}

// createdAfter reports whether o refers to a composite value which was
// allocated after s was taken.
func (s *SaveObject) createdAfter(o Object) bool {
	h := o.header()
	return h != nil && !h.global && h.created > s.level
}

// arrayPut stores val at index i of the array a.
func (vm *VM) arrayPut(a Object, i int, val Object) error {
	if !a.Writable() {
		return &Error{Kind: Invalidaccess, Msg: "array is read-only"}
	}
	if i < 0 || i >= a.Len() {
		return &Error{Kind: Rangecheck, Msg: "array index out of range"}
	}
	n := a.array()
	if err := vm.checkStore(&n.nodeHeader, val); err != nil {
		return err
	}
	vm.prepareWrite(n)
	n.data[int(a.off)+i] = val
	return nil
}

// arrayGet returns the element at index i of the array a.
func (vm *VM) arrayGet(a Object, i int) (Object, error) {
	if !a.Readable() {
		return Object{}, &Error{Kind: Invalidaccess, Msg: "array is not readable"}
	}
	if i < 0 || i >= a.Len() {
		return Object{}, &Error{Kind: Rangecheck, Msg: "array index out of range"}
	}
	return a.array().data[int(a.off)+i], nil
}

// arrayWrite copies vals into the array a, starting at index i.
func (vm *VM) arrayWrite(a Object, i int, vals []Object) error {
	if !a.Writable() {
		return &Error{Kind: Invalidaccess, Msg: "array is read-only"}
	}
	if i < 0 || i+len(vals) > a.Len() {
		return &Error{Kind: Rangecheck, Msg: "array index out of range"}
	}
	n := a.array()
	for _, val := range vals {
		if err := vm.checkStore(&n.nodeHeader, val); err != nil {
			return err
		}
	}
	vm.prepareWrite(n)
	copy(n.data[int(a.off)+i:], vals)
	return nil
}

// stringWrite copies data into the string s, starting at index i.
func (vm *VM) stringWrite(s Object, i int, data []byte) error {
	if !s.Writable() {
		return &Error{Kind: Invalidaccess, Msg: "string is read-only"}
	}
	if i < 0 || i+len(data) > s.Len() {
		return &Error{Kind: Rangecheck, Msg: "string index out of range"}
	}
	n := s.str()
	if !vm.legacyStringWrites {
		vm.prepareWrite(n)
	}
	copy(n.data[int(s.off)+i:], data)
	return nil
}

// interval returns the subinterval of an array or string object, sharing
// the underlying node.
func interval(o Object, start, count int) (Object, error) {
	if start < 0 || count < 0 || start+count > o.Len() {
		return Object{}, &Error{Kind: Rangecheck, Msg: "invalid interval"}
	}
	o.off += int32(start)
	o.n = int64(count)
	return o, nil
}

// checkAlloc checks that vals may be stored in a new composite object
// allocated in the current VM.
func (vm *VM) checkAlloc(vals []Object) error {
	h := nodeHeader{global: vm.global}
	for _, val := range vals {
		if err := vm.checkStore(&h, val); err != nil {
			return err
		}
	}
	return nil
}
