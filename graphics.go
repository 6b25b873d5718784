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
	"seehuhn.de/go/geom/matrix"
)

// graphicsOps are the operators which act on the graphics state.  They
// share the dispatcher graphics.
var graphicsOps = []string{
	"gsave",
	"grestore",
	"grestoreall",
	"matrix",
	"currentmatrix",
	"scale",
	"translate",
	"setlinewidth",
	"currentlinewidth",
	"gstate",
	"setgstate",
	"currentgstate",
}

func graphics(intp *Interpreter, name string) error {
	gs := intp.gs
	switch name {
	case "gsave":
		gs.GSave()
		return nil

	case "grestore":
		gs.GRestore()
		return nil

	case "grestoreall":
		gs.GRestoreAll()
		return nil

	case "matrix":
		return intp.ostack.Push(intp.matrixObject(matrix.Identity))

	case "currentmatrix":
		a, err := intp.matrixArg(name)
		if err != nil {
			return err
		}
		return intp.storeMatrix(a, gs.CTM)

	case "scale", "translate":
		top, err := intp.ostack.Top()
		if err != nil {
			return intp.e(Stackunderflow, "%s: not enough arguments", name)
		}
		n := 2
		if top.typ == TypeArray {
			n = 3
		}
		args, err := intp.args(name, n)
		if err != nil {
			return err
		}
		x, y := args[0], args[1]
		if !x.Is(NumberMask) || !y.Is(NumberMask) {
			return intp.e(Typecheck, "%s: expected numbers", name)
		}
		var m matrix.Matrix
		if name == "scale" {
			m = matrix.Scale(x.Real(), y.Real())
		} else {
			m = matrix.Translate(x.Real(), y.Real())
		}
		if n == 3 {
			a, err := intp.matrixArg(name)
			if err != nil {
				return err
			}
			if err := intp.vm.arrayWrite(a, 0, matrixElems(m)); err != nil {
				return err
			}
			intp.ostack.drop(3)
			return intp.ostack.Push(a)
		}
		gs.CTM = m.Mul(gs.CTM)
		intp.ostack.drop(2)
		return nil

	case "setlinewidth":
		w, err := intp.ostack.PopType(NumberMask)
		if err != nil {
			return err
		}
		gs.LineWidth = w.Real()
		return nil

	case "currentlinewidth":
		return intp.ostack.Push(MakeReal(gs.LineWidth))

	case "gstate":
		return intp.ostack.Push(makeGState(gs.Copy()))

	case "setgstate":
		g, err := intp.ostack.PopType(TypeGState.Mask())
		if err != nil {
			return err
		}
		gs.Set(g.gstate())
		return nil

	case "currentgstate":
		g, err := intp.ostack.TopType(TypeGState.Mask())
		if err != nil {
			return err
		}
		g.gstate().Set(gs)
		return nil
	}
	return intp.e(Undefined, "%s", name)
}

func matrixElems(m matrix.Matrix) []Object {
	elems := make([]Object, len(m))
	for i, x := range m {
		elems[i] = MakeReal(x)
	}
	return elems
}

func (intp *Interpreter) matrixObject(m matrix.Matrix) Object {
	return intp.vm.NewArray(matrixElems(m))
}

// matrixArg checks that the top of the operand stack is an array with
// six elements.
func (intp *Interpreter) matrixArg(op string) (Object, error) {
	a, err := intp.ostack.TopType(TypeArray.Mask())
	if err != nil {
		return a, err
	}
	if a.Len() != 6 {
		return a, intp.e(Rangecheck, "%s: matrix must have 6 elements", op)
	}
	return a, nil
}

// storeMatrix replaces the array a on top of the operand stack by a
// matrix holding m.
func (intp *Interpreter) storeMatrix(a Object, m matrix.Matrix) error {
	if err := intp.vm.arrayWrite(a, 0, matrixElems(m)); err != nil {
		return err
	}
	intp.ostack.drop(1)
	return intp.ostack.Push(a)
}
