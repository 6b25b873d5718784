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
	"fmt"

	"github.com/pkg/errors"
)

func (intp *Interpreter) write(op string, data []byte) error {
	_, err := intp.out.Write(data)
	if err != nil {
		return &Error{Kind: IOError, Msg: errors.Wrap(err, op).Error()}
	}
	return nil
}

func bPrint(intp *Interpreter) error {
	s, err := intp.ostack.TopType(TypeString.Mask())
	if err != nil {
		return err
	}
	if !s.Readable() {
		return intp.e(Invalidaccess, "print: string is not readable")
	}
	if err := intp.write("print", s.bytes()); err != nil {
		return err
	}
	intp.ostack.drop(1)
	return nil
}

func bPrintText(intp *Interpreter) error {
	obj, err := intp.ostack.Top()
	if err != nil {
		return intp.e(Stackunderflow, "=: not enough arguments")
	}
	if err := intp.write("=", []byte(obj.text()+"\n")); err != nil {
		return err
	}
	intp.ostack.drop(1)
	return nil
}

func bPrintSyntax(intp *Interpreter) error {
	obj, err := intp.ostack.Top()
	if err != nil {
		return intp.e(Stackunderflow, "==: not enough arguments")
	}
	if err := intp.write("==", []byte(obj.String()+"\n")); err != nil {
		return err
	}
	intp.ostack.drop(1)
	return nil
}

// printStack writes the operand stack, top first, one object per line.
func (intp *Interpreter) printStack(op string, format func(Object) string) error {
	vals := intp.ostack.Values()
	for i := len(vals) - 1; i >= 0; i-- {
		if err := intp.write(op, []byte(format(vals[i])+"\n")); err != nil {
			return err
		}
	}
	return nil
}

func bStack(intp *Interpreter) error {
	return intp.printStack("stack", Object.text)
}

func bPstack(intp *Interpreter) error {
	return intp.printStack("pstack", Object.String)
}

func bFlush(intp *Interpreter) error {
	f, ok := intp.out.(interface{ Flush() error })
	if !ok {
		return nil
	}
	if err := f.Flush(); err != nil {
		return &Error{Kind: IOError, Msg: errors.Wrap(err, "flush").Error()}
	}
	return nil
}

// handleerror reports the error recorded in $error in the format used by
// PostScript printers.
func handleerror(intp *Interpreter) error {
	d := intp.dollarError.dict()
	newerror, _ := d.lookup(intp.vm.name("newerror").Object())
	if !newerror.Bool() {
		return nil
	}
	name, _ := d.lookup(intp.vm.name("errorname").Object())
	cmd, _ := d.lookup(intp.vm.name("command").Object())
	msg := fmt.Sprintf("%%%%[ Error: %s; OffendingCommand: %s ]%%%%\n", name.text(), cmd.text())
	if err := intp.write("handleerror", []byte(msg)); err != nil {
		return err
	}
	return intp.vm.dictPutPrivileged(d, intp.vm.name("newerror").Object(), MakeBool(false))
}
