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

type ctlKind uint8

const (
	ctlStopped ctlKind = iota
	ctlLoop
	ctlRepeat
	ctlFor
	ctlForall
	ctlEnd
)

func (k ctlKind) String() string {
	switch k {
	case ctlStopped:
		return "stopped_push"
	case ctlLoop:
		return "loop_continue"
	case ctlRepeat:
		return "repeat_continue"
	case ctlFor:
		return "for_continue"
	case ctlForall:
		return "forall_continue"
	case ctlEnd:
		return "end_of_file"
	}
	return "control"
}

// control is a continuation on the execution stack.  Loops keep their
// state here and push themselves back before each iteration, so that
// the Go call stack does not grow with the PostScript call depth.
type control struct {
	kind ctlKind
	proc Object

	count int64

	cur, inc, limit Object

	src     Object
	pos     int
	entries []dictEntry

	depth int
}

func (c *control) object() Object {
	return Object{typ: typeControl, attr: AttrExecutable, ref: c}
}

func (c *control) isLoop() bool {
	return c.kind >= ctlLoop && c.kind <= ctlForall
}

// step is called when the continuation reaches the top of the execution
// stack.
func (c *control) step(intp *Interpreter, self Object) error {
	switch c.kind {
	case ctlStopped:
		return intp.ostack.Push(MakeBool(false))

	case ctlLoop:
		return intp.again(self, c.proc)

	case ctlRepeat:
		if c.count <= 0 {
			return nil
		}
		c.count--
		return intp.again(self, c.proc)

	case ctlFor:
		var val Object
		if c.cur.typ == TypeInteger {
			v, inc, limit := c.cur.n, c.inc.n, c.limit.n
			if inc >= 0 && v > limit || inc < 0 && v < limit {
				return nil
			}
			val = c.cur
			c.cur.n += inc
		} else {
			v, inc, limit := c.cur.r, c.inc.Real(), c.limit.Real()
			if inc >= 0 && v > limit || inc < 0 && v < limit {
				return nil
			}
			val = c.cur
			c.cur.r += inc
		}
		if err := intp.ostack.Push(val); err != nil {
			return err
		}
		return intp.again(self, c.proc)

	case ctlForall:
		switch c.src.typ {
		case TypeArray:
			if c.pos >= c.src.Len() {
				return nil
			}
			elem := c.src.array().data[int(c.src.off)+c.pos]
			c.pos++
			if err := intp.ostack.Push(elem); err != nil {
				return err
			}
		case TypeString:
			if c.pos >= c.src.Len() {
				return nil
			}
			b := c.src.str().data[int(c.src.off)+c.pos]
			c.pos++
			if err := intp.ostack.Push(MakeInt(int64(b))); err != nil {
				return err
			}
		case TypeDict:
			if c.pos >= len(c.entries) {
				return nil
			}
			e := c.entries[c.pos]
			c.pos++
			if err := intp.ostack.Push(e.key); err != nil {
				return err
			}
			if err := intp.ostack.Push(e.val); err != nil {
				return err
			}
		}
		return intp.again(self, c.proc)

	case ctlEnd:
		if intp.dstack.depth() > c.depth {
			intp.dstack.setDepth(c.depth)
		}
	}
	return nil
}

// again schedules one more iteration of a loop.
func (intp *Interpreter) again(self, proc Object) error {
	if err := intp.estack.Push(self); err != nil {
		return err
	}
	return intp.estack.Push(proc)
}

// procArg checks that o can be used as a procedure operand.
func (intp *Interpreter) procArg(op string, o Object) error {
	if o.typ != TypeArray {
		return intp.e(Typecheck, "%s: expected a procedure, got %s", op, o.typ)
	}
	return nil
}

func bExec(intp *Interpreter) error {
	obj, err := intp.ostack.Pop()
	if err != nil {
		return err
	}
	return intp.estack.Push(obj)
}

func bIf(intp *Interpreter) error {
	if err := intp.ostack.need(2); err != nil {
		return intp.e(Stackunderflow, "if: not enough arguments")
	}
	args := intp.ostack.top(2)
	cond, proc := args[0], args[1]
	if cond.typ != TypeBoolean {
		return intp.e(Typecheck, "if: expected boolean, got %s", cond.typ)
	}
	if err := intp.procArg("if", proc); err != nil {
		return err
	}
	intp.ostack.drop(2)
	if cond.Bool() {
		return intp.estack.Push(proc)
	}
	return nil
}

func bIfelse(intp *Interpreter) error {
	if err := intp.ostack.need(3); err != nil {
		return intp.e(Stackunderflow, "ifelse: not enough arguments")
	}
	args := intp.ostack.top(3)
	cond, proc1, proc2 := args[0], args[1], args[2]
	if cond.typ != TypeBoolean {
		return intp.e(Typecheck, "ifelse: expected boolean, got %s", cond.typ)
	}
	if err := intp.procArg("ifelse", proc1); err != nil {
		return err
	}
	if err := intp.procArg("ifelse", proc2); err != nil {
		return err
	}
	intp.ostack.drop(3)
	if cond.Bool() {
		return intp.estack.Push(proc1)
	}
	return intp.estack.Push(proc2)
}

func bFor(intp *Interpreter) error {
	if err := intp.ostack.need(4); err != nil {
		return intp.e(Stackunderflow, "for: not enough arguments")
	}
	args := intp.ostack.top(4)
	initial, increment, limit, proc := args[0], args[1], args[2], args[3]
	for _, x := range args[:3] {
		if !x.Is(NumberMask) {
			return intp.e(Typecheck, "for: expected number, got %s", x.typ)
		}
	}
	if err := intp.procArg("for", proc); err != nil {
		return err
	}
	intp.ostack.drop(4)

	c := &control{kind: ctlFor, proc: proc, inc: increment, limit: limit, cur: initial}
	if initial.typ != TypeInteger || increment.typ != TypeInteger || limit.typ != TypeInteger {
		c.cur = MakeReal(initial.Real())
	}
	return intp.estack.Push(c.object())
}

func bRepeat(intp *Interpreter) error {
	if err := intp.ostack.need(2); err != nil {
		return intp.e(Stackunderflow, "repeat: not enough arguments")
	}
	args := intp.ostack.top(2)
	count, proc := args[0], args[1]
	if count.typ != TypeInteger {
		return intp.e(Typecheck, "repeat: invalid argument")
	} else if count.n < 0 {
		return intp.e(Rangecheck, "repeat: negative count")
	}
	if err := intp.procArg("repeat", proc); err != nil {
		return err
	}
	intp.ostack.drop(2)
	c := &control{kind: ctlRepeat, proc: proc, count: count.n}
	return intp.estack.Push(c.object())
}

func bLoop(intp *Interpreter) error {
	proc, err := intp.ostack.Top()
	if err != nil {
		return err
	}
	if err := intp.procArg("loop", proc); err != nil {
		return err
	}
	intp.ostack.drop(1)
	c := &control{kind: ctlLoop, proc: proc}
	return intp.estack.Push(c.object())
}

func bForall(intp *Interpreter) error {
	if err := intp.ostack.need(2); err != nil {
		return intp.e(Stackunderflow, "forall: not enough arguments")
	}
	args := intp.ostack.top(2)
	obj, proc := args[0], args[1]
	if err := intp.procArg("forall", proc); err != nil {
		return err
	}
	c := &control{kind: ctlForall, proc: proc, src: obj}
	switch obj.typ {
	case TypeArray, TypeString:
		if !obj.Readable() {
			return intp.e(Invalidaccess, "forall: %s is not readable", obj.typ)
		}
	case TypeDict:
		if !obj.Readable() {
			return intp.e(Invalidaccess, "forall: dictionary is not readable")
		}
		c.entries = obj.dict().sortedEntries()
	default:
		return intp.e(Typecheck, "forall: invalid type %s", obj.typ)
	}
	intp.ostack.drop(2)
	return intp.estack.Push(c.object())
}

// bExit terminates the innermost loop.
func bExit(intp *Interpreter) error {
	es := intp.estack
	for i := es.depth() - 1; i >= 0; i-- {
		o := es.data[i]
		if o.typ != typeControl {
			continue
		}
		c := o.control()
		if c.kind == ctlStopped {
			return intp.e(Invalidexit, "exit: no loop inside stopped context")
		}
		if c.isLoop() {
			intp.unwind(i)
			return nil
		}
	}
	return intp.e(Invalidexit, "exit: no enclosing loop")
}

func bStop(intp *Interpreter) error {
	return intp.stop()
}

func bStopped(intp *Interpreter) error {
	obj, err := intp.ostack.Pop()
	if err != nil {
		return err
	}
	c := &control{kind: ctlStopped}
	if err := intp.estack.Push(c.object()); err != nil {
		return err
	}
	return intp.estack.Push(obj)
}

func bCountexecstack(intp *Interpreter) error {
	return intp.ostack.Push(MakeInt(int64(intp.estack.Len())))
}

func bExecstack(intp *Interpreter) error {
	a, err := intp.ostack.TopType(TypeArray.Mask())
	if err != nil {
		return err
	}
	vals := intp.execStackValues()
	if len(vals) > a.Len() {
		return intp.e(Rangecheck, "execstack: array too short")
	}
	if err := intp.vm.arrayWrite(a, 0, vals); err != nil {
		return err
	}
	sub, _ := interval(a, 0, len(vals))
	intp.ostack.drop(1)
	return intp.ostack.Push(sub)
}

func bQuit(intp *Interpreter) error {
	return &haltError{cause: errQuit}
}
