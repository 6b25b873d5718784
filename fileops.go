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
	"io"
	"os"

	"github.com/pkg/errors"
)

func bCurrentfile(intp *Interpreter) error {
	fo, ok := intp.currentFile()
	if !ok {
		f := &File{Name: "%invalid", closed: true}
		fo = f.object()
	}
	return intp.ostack.Push(fo.Literal())
}

// fileArg checks that o is an open, readable file.
func (intp *Interpreter) fileArg(op string, o Object) (*File, error) {
	if o.typ != TypeFile {
		return nil, intp.e(Typecheck, "%s: expected a file, got %s", op, o.typ)
	}
	f := o.file()
	if f.closed {
		return nil, intp.e(IOError, "%s: file %s is closed", op, f.Name)
	}
	if !o.Readable() {
		return nil, intp.e(Invalidaccess, "%s: file is not readable", op)
	}
	return f, nil
}

func bReadstring(intp *Interpreter) error {
	args, err := intp.args("readstring", 2)
	if err != nil {
		return err
	}
	f, err := intp.fileArg("readstring", args[0])
	if err != nil {
		return err
	}
	buf := args[1]
	if buf.typ != TypeString {
		return intp.e(Typecheck, "readstring: expected a string, got %s", buf.typ)
	}
	if buf.Len() == 0 {
		return intp.e(Rangecheck, "readstring: empty string")
	}
	if !buf.Writable() {
		return intp.e(Invalidaccess, "readstring: string is read-only")
	}

	data := make([]byte, buf.Len())
	n, err := f.s.Read(data)
	if err != nil && err != io.EOF {
		return &Error{Kind: IOError, Msg: errors.Wrap(err, f.Name).Error()}
	}
	if err := intp.vm.stringWrite(buf, 0, data[:n]); err != nil {
		return err
	}
	res, _ := interval(buf, 0, n)
	intp.ostack.drop(2)
	intp.ostack.Push(res)
	return intp.ostack.Push(MakeBool(n == len(data)))
}

func bClosefile(intp *Interpreter) error {
	fo, err := intp.ostack.TopType(TypeFile.Mask())
	if err != nil {
		return err
	}
	intp.ostack.drop(1)
	if err := intp.closeFile(fo.file()); err != nil {
		return &Error{Kind: IOError, Msg: err.Error()}
	}
	return nil
}

// bEexec starts executing the encrypted portion of a file.  systemdict
// is pushed onto the dictionary stack while the decrypted text runs, and
// the dictionary stack is restored once the decrypted file is exhausted.
func bEexec(intp *Interpreter) error {
	fo, err := intp.ostack.Top()
	if err != nil {
		return intp.e(Stackunderflow, "eexec: not enough arguments")
	}
	f, err := intp.fileArg("eexec", fo)
	if err != nil {
		return err
	}
	if err := intp.estack.room(2); err != nil {
		return err
	}
	r, err := newEexecReader(f.s)
	if err != nil {
		return &Error{Kind: IOError, Msg: errors.Wrap(err, "eexec").Error()}
	}

	end := &control{kind: ctlEnd, depth: intp.dstack.depth()}
	if err := intp.dstack.Begin(intp.systemDict); err != nil {
		return err
	}
	intp.ostack.drop(1)
	intp.estack.Push(end.object())
	dec := newFile(f.Name, r)
	return intp.estack.Push(dec.object())
}

func bRun(intp *Interpreter) error {
	name, err := intp.ostack.TopType(TypeString.Mask())
	if err != nil {
		return err
	}
	if !name.Readable() {
		return intp.e(Invalidaccess, "run: string is not readable")
	}
	fname := string(name.bytes())
	fd, err := os.Open(fname)
	if err != nil {
		return intp.e(Undefinedfilename, "run: %s", fname)
	}
	log.Debugf("run %s", fname)
	f := newFile(fname, fd)
	f.owned = true
	if err := intp.estack.Push(f.object()); err != nil {
		fd.Close()
		return err
	}
	intp.ostack.drop(1)
	return nil
}
