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
	"bytes"
	"fmt"
	"runtime"

	"github.com/pkg/errors"
)

// run pops and executes objects from the execution stack until the stack
// depth falls to watermark.
//
// If exit or stop transfer control to a point below watermark, run
// returns errUnwound.  A haltError terminates all nested runs.  All other
// errors are delivered to the error handlers in errordict.
func (intp *Interpreter) run(watermark int) error {
	if intp.running == 0 {
		intp.ops = 0
	}
	intp.running++
	defer func() { intp.running-- }()

	es := intp.estack
	for es.depth() > watermark {
		obj := es.data[es.depth()-1]
		es.drop(1)
		before := intp.ostack.depth()

		err := intp.tick()
		if err == nil {
			err = intp.dispatch(obj)
		}
		if err == nil || err == errUnwound {
			continue
		}

		var h *haltError
		if errors.As(err, &h) {
			if es.depth() > watermark {
				intp.unwind(watermark)
			}
			return err
		}

		err = intp.signal(obj, before, err)
		if err != nil {
			if es.depth() > watermark {
				intp.unwind(watermark)
			}
			return err
		}
	}
	if es.depth() < watermark {
		return errUnwound
	}
	return nil
}

// tick counts execution steps.  Every YieldInterval steps the goroutine
// yields and pending interrupts and deadlines are checked.
func (intp *Interpreter) tick() error {
	intp.ops++
	if limit := intp.cfg.MaxOps; limit > 0 && intp.ops > limit {
		log.Infof("operation limit %d exceeded", limit)
		return &haltError{cause: intp.e(Timeout, "operation limit %d exceeded", limit)}
	}

	intp.steps++
	if intp.steps < intp.cfg.YieldInterval {
		return nil
	}
	intp.steps = 0
	runtime.Gosched()

	if intp.interrupt.Swap(false) {
		log.Infof("interrupt")
		return intp.e(Interrupt, "execution interrupted")
	}
	if intp.ctx != nil {
		if err := intp.ctx.Err(); err != nil {
			log.Infof("deadline: %s", err)
			return &haltError{cause: &Error{Kind: Timeout, Msg: err.Error()}}
		}
	}
	return nil
}

// dispatch executes a single object.
func (intp *Interpreter) dispatch(obj Object) (err error) {
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = errors.Errorf("%v", r)
			}
			err = &Error{
				Kind: Internalerror,
				Msg:  errors.Wrap(cause, "recovered panic").Error(),
			}
		}
	}()

	if obj.IsLiteral() {
		return intp.ostack.Push(obj)
	}

	switch obj.typ {
	case TypeName:
		return intp.execName(obj)
	case TypeOperator:
		return obj.op().call(intp)
	case TypeArray:
		return intp.execProc(obj)
	case TypeString:
		if !obj.CanExecute() {
			return intp.e(Invalidaccess, "string is not executable")
		}
		src := bytes.NewReader(bytes.Clone(obj.bytes()))
		return intp.estack.Push(newFile("%string", src).object())
	case TypeFile:
		return intp.execFile(obj)
	case typeControl:
		return obj.control().step(intp, obj)
	case TypeNull:
		return nil
	default:
		return intp.ostack.Push(obj)
	}
}

// execName looks up an executable name on the dictionary stack.
// Operators are invoked directly, so that error reports name the
// operator as it was written.
func (intp *Interpreter) execName(obj Object) error {
	val, ok := intp.dstack.Lookup(obj)
	if !ok {
		return intp.e(Undefined, "%s", obj.name().text)
	}
	if val.IsLiteral() {
		return intp.ostack.Push(val)
	}
	switch val.typ {
	case TypeOperator:
		return val.op().call(intp)
	case TypeArray, TypeString, TypeFile, TypeName:
		return intp.estack.Push(val)
	case TypeNull:
		return nil
	default:
		return intp.ostack.Push(val)
	}
}

// execProc executes the first element of a procedure.  The remainder of
// the procedure is pushed back onto the execution stack first, unless it
// is empty.
func (intp *Interpreter) execProc(proc Object) error {
	if !proc.CanExecute() {
		return intp.e(Invalidaccess, "procedure is not executable")
	}
	if proc.n == 0 {
		return nil
	}
	first := proc.array().data[proc.off]
	if proc.n > 1 {
		rest := proc
		rest.off++
		rest.n--
		if err := intp.estack.Push(rest); err != nil {
			return err
		}
	}
	if first.IsExecutable() && first.typ != TypeArray {
		return intp.estack.Push(first)
	}
	return intp.ostack.Push(first)
}

// signal delivers an error to the handler in errordict.
func (intp *Interpreter) signal(obj Object, before int, err error) error {
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Kind: IOError, Msg: err.Error()}
	}
	if obj.typ == TypeFile && obj.file().owned {
		// The file was popped before the error and is not resumed.
		if cerr := intp.closeFile(obj.file()); cerr != nil {
			log.Warningf("%s", cerr)
		}
	}
	if obj.typ == typeControl {
		obj = intp.vm.name("--%" + obj.control().kind.String() + "--").Object().Executable()
	}

	switch e.Kind {
	case Execstackoverflow:
		if d := intp.estack.depth(); d > 0 {
			intp.unwind(d - 1)
		}
	case Dictstackoverflow:
		for range 2 {
			if intp.dstack.depth() > intp.dstack.permanent {
				intp.dstack.drop(1)
			}
		}
	}
	intp.ostack.setDepth(before)

	if e.Command == "" {
		e.Command = commandName(obj)
	}
	if e.Line == 0 {
		e.Line = obj.Line()
		if e.Line == 0 {
			if f, ok := intp.currentFile(); ok {
				e.Line = f.file().s.Line + 1
			}
		}
	}
	intp.lastError = e
	intp.recordError(e, obj)
	log.Debugf("%s: %s, line %d", e.Kind, e.Command, e.Line)

	handler, ok := intp.errorDict.dict().lookup(intp.vm.name(e.Kind.String()).Object())
	if !ok {
		return intp.stop()
	}
	if intp.ostack.Push(obj) != nil {
		// The operand stack is full.  Make room for the offending object.
		intp.ostack.drop(1)
		intp.ostack.Push(obj)
	}
	return intp.estack.Push(handler.Executable())
}

// recordError stores the diagnostic information for e in $error.
func (intp *Interpreter) recordError(e *Error, obj Object) {
	vm := intp.vm
	global := vm.global
	vm.global = false
	defer func() { vm.global = global }()

	d := intp.dollarError.dict()
	put := func(key string, val Object) {
		_ = vm.dictPutPrivileged(d, vm.name(key).Object(), val)
	}
	put("newerror", MakeBool(true))
	put("errorname", vm.name(e.Kind.String()).Object())
	put("command", obj)
	put("line", MakeInt(int64(e.Line)))
	put("ostack", vm.NewArray(intp.ostack.Values()))
	put("estack", vm.NewArray(intp.execStackValues()))
	put("dstack", vm.NewArray(intp.dstack.Values()))
	put("message", vm.NewString([]byte(e.Msg)))
}

// execStackValues returns the contents of the execution stack, with
// internal continuations replaced by descriptive names.
func (intp *Interpreter) execStackValues() []Object {
	vals := intp.estack.Values()
	for i, o := range vals {
		if o.typ == typeControl {
			vals[i] = intp.vm.name("--%" + o.control().kind.String() + "--").Object().Executable()
		}
	}
	return vals
}

// stop unwinds the execution stack to the topmost stopped context and
// pushes true.  Without a stopped context, the outermost run is
// terminated.
func (intp *Interpreter) stop() error {
	es := intp.estack
	for i := es.depth() - 1; i >= 0; i-- {
		o := es.data[i]
		if o.typ == typeControl && o.control().kind == ctlStopped {
			intp.unwind(i)
			intp.lastError = nil
			return intp.ostack.Push(MakeBool(true))
		}
	}
	if intp.lastError != nil {
		return &haltError{cause: intp.lastError}
	}
	return &haltError{}
}

func commandName(obj Object) string {
	switch obj.typ {
	case TypeName, TypeOperator:
		return obj.Text()
	case TypeFile:
		return obj.file().Name
	default:
		return fmt.Sprintf("-%s-", obj.typ.String())
	}
}
