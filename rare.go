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

// rareOps are operators which are seldom used.  They share the
// dispatcher rare, which selects the implementation by name.
var rareOps = []string{
	"vmstatus",
	"handleerror",
	"dictstack",
	"cleardictstack",
	"setpacking",
	"currentpacking",
}

func rare(intp *Interpreter, name string) error {
	switch name {
	case "vmstatus":
		return vmstatus(intp)

	case "handleerror":
		return handleerror(intp)

	case "dictstack":
		a, err := intp.ostack.TopType(TypeArray.Mask())
		if err != nil {
			return err
		}
		vals := intp.dstack.Values()
		if len(vals) > a.Len() {
			return intp.e(Rangecheck, "dictstack: array too short")
		}
		if err := intp.vm.arrayWrite(a, 0, vals); err != nil {
			return err
		}
		sub, _ := interval(a, 0, len(vals))
		intp.ostack.drop(1)
		return intp.ostack.Push(sub)

	case "cleardictstack":
		intp.dstack.clear()
		return nil

	case "setpacking":
		b, err := intp.ostack.PopType(TypeBoolean.Mask())
		if err != nil {
			return err
		}
		intp.vm.packing = b.Bool()
		return nil

	case "currentpacking":
		return intp.ostack.Push(MakeBool(intp.vm.packing))
	}
	return intp.e(Undefined, "%s", name)
}
