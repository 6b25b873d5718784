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

import "sync"

// Name is an entry in the process-wide name table.
//
// Two name objects are equal if and only if they refer to the same *Name.
type Name struct {
	text string
	id   uint64
	refs int
}

var names = struct {
	sync.Mutex
	byText map[string]*Name
	nextID uint64
}{
	byText: make(map[string]*Name),
}

// NewName returns the canonical table entry for text and increments its
// reference count.  The entry is created if it does not exist yet.
func NewName(text string) *Name {
	names.Lock()
	defer names.Unlock()

	n := names.byText[text]
	if n == nil {
		names.nextID++
		n = &Name{text: text, id: names.nextID}
		names.byText[text] = n
	}
	n.refs++
	return n
}

// Release decrements the reference count of n.  When the count drops to
// zero, the entry is removed from the table and a later NewName call with
// the same text creates a fresh entry.
func (n *Name) Release() {
	names.Lock()
	defer names.Unlock()

	if n.refs <= 0 {
		return
	}
	n.refs--
	if n.refs == 0 && names.byText[n.text] == n {
		delete(names.byText, n.text)
	}
}

// String returns the text of the name.
func (n *Name) String() string {
	return n.text
}

// Refs returns the current reference count of n.
func (n *Name) Refs() int {
	names.Lock()
	defer names.Unlock()
	return n.refs
}

// Object returns a literal name object referring to n.
func (n *Name) Object() Object {
	return Object{typ: TypeName, attr: unlimitedAccess, ref: n}
}

// LookupName returns the table entry for text, without changing reference
// counts.  The second return value is false if no entry exists.
func LookupName(text string) (*Name, bool) {
	names.Lock()
	defer names.Unlock()
	n, ok := names.byText[text]
	return n, ok
}

// NameCount returns the number of entries in the name table.
func NameCount() int {
	names.Lock()
	defer names.Unlock()
	return len(names.byText)
}
