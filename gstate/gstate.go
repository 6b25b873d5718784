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

// Package gstate implements the part of the PostScript graphics state
// which is needed by the interpreter core.
//
// Besides the gsave/grestore stack, a State keeps track of the graphics
// states saved by the VM save operator.  grestore never pops a graphics
// state which belongs to an enclosing save.
package gstate

import (
	"seehuhn.de/go/geom/matrix"
)

// Params are the graphics state parameters.
type Params struct {
	CTM       matrix.Matrix
	LineWidth float64
}

// State is a graphics state together with its gsave stack.
type State struct {
	Params

	stack []Params
	marks []int
}

// New returns a graphics state with the identity CTM and line width 1.
func New() *State {
	return &State{
		Params: Params{
			CTM:       matrix.Identity,
			LineWidth: 1,
		},
	}
}

// Depth returns the number of entries on the gsave stack.
func (g *State) Depth() int {
	return len(g.stack)
}

// GSave pushes a copy of the current parameters.
func (g *State) GSave() {
	g.stack = append(g.stack, g.Params)
}

func (g *State) floor() int {
	if len(g.marks) == 0 {
		return 0
	}
	return g.marks[len(g.marks)-1]
}

// GRestore restores the parameters saved by the matching GSave.  If the
// matching entry was created by Save, the parameters are restored but the
// entry stays on the stack.
func (g *State) GRestore() {
	floor := g.floor()
	switch {
	case len(g.stack) > floor:
		g.Params = g.stack[len(g.stack)-1]
		g.stack = g.stack[:len(g.stack)-1]
	case floor > 0:
		g.Params = g.stack[floor-1]
	}
}

// GRestoreAll restores the parameters saved by the bottom-most GSave
// since the last Save.
func (g *State) GRestoreAll() {
	floor := g.floor()
	switch {
	case floor > 0:
		g.Params = g.stack[floor-1]
		g.stack = g.stack[:floor]
	case len(g.stack) > 0:
		g.Params = g.stack[0]
		g.stack = g.stack[:0]
	}
}

// Save saves the graphics state for a VM save.  The returned value must
// be passed to Restore.
func (g *State) Save() int {
	depth := len(g.marks)
	g.GSave()
	g.marks = append(g.marks, len(g.stack))
	return depth
}

// Restore undoes all changes since the Save call which returned depth.
func (g *State) Restore(depth int) {
	if depth < 0 || depth >= len(g.marks) {
		return
	}
	m := g.marks[depth]
	g.Params = g.stack[m-1]
	g.stack = g.stack[:m-1]
	g.marks = g.marks[:depth]
}

// Scale scales the user coordinate system.
func (g *State) Scale(sx, sy float64) {
	g.CTM = matrix.Scale(sx, sy).Mul(g.CTM)
}

// Translate moves the origin of the user coordinate system.
func (g *State) Translate(tx, ty float64) {
	g.CTM = matrix.Translate(tx, ty).Mul(g.CTM)
}

// Copy returns a detached copy of the current parameters, as used by
// gstate objects.
func (g *State) Copy() *State {
	return &State{Params: g.Params}
}

// Set replaces the current parameters by those of other.
func (g *State) Set(other *State) {
	g.Params = other.Params
}
