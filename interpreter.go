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
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"seehuhn.de/go/psvm/gstate"
)

// Interpreter executes PostScript code.
//
// An Interpreter is not safe for concurrent use, with the exception of
// the Interrupt method.
type Interpreter struct {
	// DSC collects the DSC comments of all files which have been read
	// to the end or closed.
	DSC []Comment

	cfg Config
	out io.Writer
	gs  *gstate.State

	vm     *VM
	ostack *Stack
	estack *Stack
	dstack *DictStack

	systemDict  Object
	globalDict  Object
	userDict    Object
	errorDict   Object
	dollarError Object
	statusDict  Object
	resources   Object

	ctx       context.Context
	interrupt atomic.Bool
	steps     int
	ops       int64
	running   int
	lastError *Error

	randState int64
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithConfig sets the configuration of the interpreter.
func WithConfig(cfg Config) Option {
	return func(intp *Interpreter) {
		intp.cfg = cfg
	}
}

// WithOutput sets the writer used by the output operators.
// The default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(intp *Interpreter) {
		intp.out = w
	}
}

// WithGraphics sets the graphics state used by the interpreter.
func WithGraphics(gs *gstate.State) Option {
	return func(intp *Interpreter) {
		intp.gs = gs
	}
}

// NewInterpreter creates a new interpreter with systemdict, globaldict
// and userdict on the dictionary stack.
func NewInterpreter(opts ...Option) *Interpreter {
	intp := &Interpreter{
		cfg: DefaultConfig(),
		out: os.Stdout,
	}
	for _, opt := range opts {
		opt(intp)
	}
	intp.cfg.fillDefaults()
	if intp.gs == nil {
		intp.gs = gstate.New()
	}

	intp.vm = newVM()
	intp.vm.legacyStringWrites = intp.cfg.LegacyStringWrites
	intp.ostack = newStack(64, intp.cfg.OperandStackLimit, Stackoverflow, Stackunderflow)
	intp.estack = newStack(64, intp.cfg.ExecStackLimit, Execstackoverflow, Internalerror)
	intp.dstack = newDictStack(intp.vm, intp.cfg.DictStackLimit)
	intp.randState = 1

	intp.makeSystemDict()
	return intp
}

// Config returns the configuration of the interpreter.
func (intp *Interpreter) Config() Config {
	return intp.cfg
}

// OperandStack returns the operand stack.
func (intp *Interpreter) OperandStack() *Stack {
	return intp.ostack
}

// ExecStack returns the execution stack.
func (intp *Interpreter) ExecStack() *Stack {
	return intp.estack
}

// DictStack returns the dictionary stack.
func (intp *Interpreter) DictStack() *DictStack {
	return intp.dstack
}

// VM returns the virtual memory of the interpreter.
func (intp *Interpreter) VM() *VM {
	return intp.vm
}

// Graphics returns the graphics state.
func (intp *Interpreter) Graphics() *gstate.State {
	return intp.gs
}

// SystemDict returns systemdict.
func (intp *Interpreter) SystemDict() Object {
	return intp.systemDict
}

// UserDict returns userdict.
func (intp *Interpreter) UserDict() Object {
	return intp.userDict
}

// NewArray allocates an array in the current VM.
func (intp *Interpreter) NewArray(elems []Object) Object {
	return intp.vm.NewArray(elems)
}

// NewString allocates a string in the current VM.
func (intp *Interpreter) NewString(data []byte) Object {
	return intp.vm.NewString(data)
}

// NewDict allocates a dictionary in the current VM.
func (intp *Interpreter) NewDict(capacity int) Object {
	return intp.vm.NewDict(capacity)
}

// LastError returns the error most recently recorded in $error, or nil.
func (intp *Interpreter) LastError() *Error {
	return intp.lastError
}

// Close releases the names interned by the interpreter and closes the
// files opened by run which are still being executed.  The interpreter
// must not be used after Close.
func (intp *Interpreter) Close() {
	intp.unwind(0)
	intp.vm.releaseNames()
}

// Interrupt requests (or withdraws a request) that execution be
// interrupted.  The request is honoured at the next yield point, where it
// raises an interrupt error.  Interrupt may be called from any goroutine.
func (intp *Interpreter) Interrupt(on bool) {
	intp.interrupt.Store(on)
}

// ErrNotPostScript is returned by Load and Execute if Config.CheckStart
// is set and the input does not start with "%!".
var ErrNotPostScript = errors.New("not a PostScript file")

// input creates the file object for a host-supplied reader.
func (intp *Interpreter) input(r io.Reader) (Object, error) {
	f := newFile("%stdin", r)
	if intp.cfg.CheckStart {
		if !f.s.LookingAt("%!") {
			return Object{}, ErrNotPostScript
		}
		intp.cfg.CheckStart = false
	}
	return f.object(), nil
}

// Load pushes an executable file reading from r onto the execution stack,
// without running it.  Use Drive to execute the loaded code.
func (intp *Interpreter) Load(r io.Reader) error {
	fo, err := intp.input(r)
	if err != nil {
		return err
	}
	return intp.estack.Push(fo)
}

// Drive runs the interpreter until the execution stack is empty.
func (intp *Interpreter) Drive() error {
	err := intp.run(intp.estack.Bottom())
	return intp.hostError(err)
}

// Execute reads PostScript code from r and executes it.
func (intp *Interpreter) Execute(r io.Reader) error {
	fo, err := intp.input(r)
	if err != nil {
		return err
	}
	return intp.hostError(intp.Call(fo))
}

// Exec executes the PostScript code in text.
func (intp *Interpreter) Exec(text string) error {
	return intp.Execute(strings.NewReader(text))
}

// ExecContext executes the PostScript code in text.  When ctx is done,
// execution is terminated at the next yield point and a timeout error is
// returned.
func (intp *Interpreter) ExecContext(ctx context.Context, text string) error {
	saved := intp.ctx
	intp.ctx = ctx
	defer func() { intp.ctx = saved }()
	return intp.Exec(text)
}

// Run executes the value of the given name.
func (intp *Interpreter) Run(name string) error {
	return intp.hostError(intp.Call(intp.vm.name(name).Object().Executable()))
}

// Call executes obj and returns once the execution stack is back at its
// previous depth.  Call can be used by operators implemented in Go to run
// PostScript procedures.  If Call returns an error, the operator must
// return this error without further modifying the interpreter state.
func (intp *Interpreter) Call(obj Object) error {
	mark := intp.estack.depth()
	if err := intp.estack.Push(obj); err != nil {
		return err
	}
	return intp.run(mark)
}

// hostError converts the control flow signals which reach the outermost
// run into errors for the caller.
func (intp *Interpreter) hostError(err error) error {
	if err == nil || intp.running > 0 {
		return err
	}
	var h *haltError
	if errors.As(err, &h) {
		switch {
		case h.cause == errQuit:
			return nil
		case h.cause != nil:
			return h.cause
		default:
			return ErrStopped
		}
	}
	if err == errUnwound {
		return nil
	}
	return err
}
