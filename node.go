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
	"golang.org/x/exp/maps"
)

// nodeHeader is shared by all composite nodes.
type nodeHeader struct {
	created int // save level at allocation time
	level   int // save level at which the live contents were written
	global  bool
}

func (h *nodeHeader) hdr() *nodeHeader {
	return h
}

// contents is the payload of a composite node.
type contents[T any] interface {
	clone() T
}

// version is an immutable snapshot of the contents of a node.
// Levels decrease along the prev chain.
type version[T any] struct {
	level int
	data  T
	prev  *version[T]
}

// node is a composite value in VM.  All objects referring to the same
// value share one node, so that writes are visible through every alias.
type node[T contents[T]] struct {
	nodeHeader
	data T
	prev *version[T]
}

// snapshot pushes a copy of the live contents onto the version chain.
func (n *node[T]) snapshot() {
	n.prev = &version[T]{level: n.level, data: n.data.clone(), prev: n.prev}
}

// revert discards all versions written at levels above the given level.
func (n *node[T]) revert(level int) {
	for n.level > level && n.prev != nil {
		n.data = n.prev.data
		n.level = n.prev.level
		n.prev = n.prev.prev
	}
}

// versioned is the view of a node used by the VM journal.
type versioned interface {
	hdr() *nodeHeader
	snapshot()
	revert(level int)
}

type objects []Object

func (a objects) clone() objects {
	return append(objects(nil), a...)
}

type bytesData []byte

func (b bytesData) clone() bytesData {
	return append(bytesData(nil), b...)
}

type entries map[dictKey]dictEntry

func (m entries) clone() entries {
	return maps.Clone(m)
}

type arrayNode = node[objects]

type stringNode = node[bytesData]

// dictNode is a dictionary.  The access attributes of a dictionary are
// stored in the node, since they apply to all references.
type dictNode struct {
	node[entries]
	maxLength int
	access    Attr
}
