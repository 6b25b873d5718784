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

// Operator is a built-in operator.
//
// An operator is implemented in one of three ways: by a function of its
// own, by a dispatcher shared by a family of operators and selected by an
// opcode, or by a dispatcher which selects the behaviour by the operator
// name.
type Operator struct {
	name   string
	fn     func(*Interpreter) error
	family func(*Interpreter, opcode) error
	code   opcode
	named  func(*Interpreter, string) error
}

// Name returns the name under which the operator was installed.
func (op *Operator) Name() string {
	return op.name
}

func (op *Operator) call(intp *Interpreter) error {
	switch {
	case op.fn != nil:
		return op.fn(intp)
	case op.family != nil:
		return op.family(intp, op.code)
	default:
		return op.named(intp, op.name)
	}
}

// InstallOperator defines name in systemdict as an operator implemented
// by fn.  Existing definitions are replaced.
func (intp *Interpreter) InstallOperator(name string, fn func(*Interpreter) error) error {
	return intp.install(&Operator{name: name, fn: fn})
}

func (intp *Interpreter) install(op *Operator) error {
	sd := intp.systemDict
	saved := sd.SaveAccess()
	sd.RestoreAccess(unlimitedAccess)
	defer sd.RestoreAccess(saved)
	return intp.vm.dictPut(sd, intp.vm.name(op.name).Object(), makeOperator(op))
}

// define stores an entry without access or VM checks.  It is only used
// while systemdict is constructed.
func (n *dictNode) define(name *Name, val Object) {
	n.data[dictKey{typ: TypeName, ref: name}] = dictEntry{key: name.Object(), val: val}
	if len(n.data) > n.maxLength {
		n.maxLength = len(n.data)
	}
}

// makeSystemDict creates the standard dictionaries and populates
// systemdict with the built-in operators.
func (intp *Interpreter) makeSystemDict() {
	vm := intp.vm

	vm.global = true
	intp.systemDict = vm.NewDict(len(builtins) + len(arithOps) + len(relationalOps) + 64)
	intp.globalDict = vm.NewDict(32)
	vm.global = false
	intp.userDict = vm.NewDict(200)
	intp.errorDict = vm.NewDict(int(numErrorKinds))
	intp.dollarError = vm.NewDict(16)
	intp.statusDict = vm.NewDict(16)

	sd := intp.systemDict.dict()
	for name, fn := range builtins {
		sd.define(vm.name(name), makeOperator(&Operator{name: name, fn: fn}))
	}
	for name, code := range arithOps {
		sd.define(vm.name(name), makeOperator(&Operator{name: name, family: arith, code: code}))
	}
	for name, code := range relationalOps {
		sd.define(vm.name(name), makeOperator(&Operator{name: name, family: relational, code: code}))
	}
	for _, name := range graphicsOps {
		sd.define(vm.name(name), makeOperator(&Operator{name: name, named: graphics}))
	}
	for _, name := range rareOps {
		sd.define(vm.name(name), makeOperator(&Operator{name: name, named: rare}))
	}

	sd.define(vm.name("true"), MakeBool(true))
	sd.define(vm.name("false"), MakeBool(false))
	sd.define(vm.name("null"), Null)
	sd.define(vm.name("systemdict"), intp.systemDict)
	sd.define(vm.name("globaldict"), intp.globalDict)
	sd.define(vm.name("userdict"), intp.userDict)
	sd.define(vm.name("errordict"), intp.errorDict)
	sd.define(vm.name("$error"), intp.dollarError)
	sd.define(vm.name("statusdict"), intp.statusDict)

	ed := intp.errorDict.dict()
	for k := Typecheck; k < numErrorKinds; k++ {
		name := k.String()
		ed.define(vm.name(name), makeOperator(&Operator{name: name, named: defaultErrorHandler}))
	}
	intp.dollarError.dict().define(vm.name("newerror"), MakeBool(false))
	intp.statusDict.dict().define(vm.name("product"), vm.NewString([]byte("psvm")))
	intp.makeResources()

	sd.access = AttrRead | AttrExecute

	intp.dstack.Push(intp.systemDict)
	intp.dstack.Push(intp.globalDict)
	intp.dstack.Push(intp.userDict)
	intp.dstack.permanent = intp.dstack.depth()
}

// defaultErrorHandler is installed in errordict for every error.  The run
// loop has already recorded the error in $error.  The handler removes the
// offending object and executes stop.
func defaultErrorHandler(intp *Interpreter, name string) error {
	if intp.ostack.Len() > 0 {
		intp.ostack.drop(1)
	}
	return intp.stop()
}
