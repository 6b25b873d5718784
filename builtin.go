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
	"math"
)

// builtins lists the operators which are implemented by a function of
// their own.
var builtins = map[string]func(*Interpreter) error{
	// stack
	"pop":         bPop,
	"exch":        bExch,
	"dup":         bDup,
	"copy":        bCopy,
	"index":       bIndex,
	"roll":        bRoll,
	"clear":       bClear,
	"count":       bCount,
	"mark":        bMark,
	"cleartomark": bCleartomark,
	"counttomark": bCounttomark,

	// random numbers
	"rand":  bRand,
	"srand": bSrand,
	"rrand": bRrand,

	// arrays and strings
	"[":            bMark,
	"]":            bArrayEnd,
	"array":        bArray,
	"length":       bLength,
	"get":          bGet,
	"put":          bPut,
	"getinterval":  bGetinterval,
	"putinterval":  bPutinterval,
	"aload":        bAload,
	"astore":       bAstore,
	"packedarray":  bPackedarray,
	"string":       bString,
	"search":       bSearch,
	"anchorsearch": bAnchorsearch,

	// dictionaries
	"dict":           bDict,
	"<<":             bMark,
	">>":             bDictEnd,
	"maxlength":      bMaxlength,
	"begin":          bBegin,
	"end":            bEnd,
	"def":            bDef,
	"load":           bLoad,
	"store":          bStore,
	"undef":          bUndef,
	"known":          bKnown,
	"where":          bWhere,
	"currentdict":    bCurrentdict,
	"countdictstack": bCountdictstack,

	// resources
	"defineresource":   bDefineresource,
	"undefineresource": bUndefineresource,
	"findresource":     bFindresource,
	"resourcestatus":   bResourcestatus,

	// control
	"exec":           bExec,
	"if":             bIf,
	"ifelse":         bIfelse,
	"for":            bFor,
	"repeat":         bRepeat,
	"loop":           bLoop,
	"forall":         bForall,
	"exit":           bExit,
	"stop":           bStop,
	"stopped":        bStopped,
	"countexecstack": bCountexecstack,
	"execstack":      bExecstack,
	"quit":           bQuit,

	// types and attributes
	"type":        bType,
	"cvlit":       bCvlit,
	"cvx":         bCvx,
	"xcheck":      bXcheck,
	"rcheck":      bRcheck,
	"wcheck":      bWcheck,
	"executeonly": bExecuteonly,
	"noaccess":    bNoaccess,
	"readonly":    bReadonly,
	"cvi":         bCvi,
	"cvr":         bCvr,
	"cvn":         bCvn,
	"cvs":         bCvs,
	"bind":        bBind,

	// virtual memory
	"save":          bSave,
	"restore":       bRestore,
	"setglobal":     bSetglobal,
	"currentglobal": bCurrentglobal,
	"gcheck":        bGcheck,

	// files
	"currentfile": bCurrentfile,
	"readstring":  bReadstring,
	"closefile":   bClosefile,
	"eexec":       bEexec,
	"run":         bRun,

	// output
	"print":  bPrint,
	"=":      bPrintText,
	"==":     bPrintSyntax,
	"stack":  bStack,
	"pstack": bPstack,
	"flush":  bFlush,
}

// args returns the topmost n operands, bottom-most first.
func (intp *Interpreter) args(op string, n int) ([]Object, error) {
	if intp.ostack.Len() < n {
		return nil, intp.e(Stackunderflow, "%s: not enough arguments", op)
	}
	return intp.ostack.top(n), nil
}

// toIndex converts an integer operand into an index.  Values which do
// not fit into an int32 are mapped to -1, so that they fail all range
// checks.
func toIndex(o Object) int {
	if o.n < 0 || o.n > math.MaxInt32 {
		return -1
	}
	return int(o.n)
}

func bPop(intp *Interpreter) error {
	if _, err := intp.args("pop", 1); err != nil {
		return err
	}
	intp.ostack.drop(1)
	return nil
}

func bExch(intp *Interpreter) error {
	if _, err := intp.args("exch", 2); err != nil {
		return err
	}
	return intp.ostack.Exch()
}

func bDup(intp *Interpreter) error {
	if _, err := intp.args("dup", 1); err != nil {
		return err
	}
	return intp.ostack.Dup()
}

func bCopy(intp *Interpreter) error {
	top, err := intp.ostack.Top()
	if err != nil {
		return intp.e(Stackunderflow, "copy: not enough arguments")
	}
	if top.typ == TypeInteger {
		if top.n < 0 {
			return intp.e(Rangecheck, "copy: invalid count %d", top.n)
		}
		if top.n > int64(intp.ostack.Len()-1) {
			return intp.e(Stackunderflow, "copy: not enough arguments")
		}
		n := int(top.n)
		if err := intp.ostack.room(n - 1); err != nil {
			return err
		}
		intp.ostack.drop(1)
		return intp.ostack.Copy(n)
	}

	args, err := intp.args("copy", 2)
	if err != nil {
		return err
	}
	a, b := args[0], args[1]
	if a.typ != b.typ {
		return intp.e(Typecheck, "copy: mismatched argument types")
	}
	var res Object
	switch a.typ {
	case TypeArray:
		if !a.Readable() {
			return intp.e(Invalidaccess, "copy: source is not readable")
		}
		if b.Len() < a.Len() {
			return intp.e(Rangecheck, "copy: not enough space in destination")
		}
		if err := intp.vm.arrayWrite(b, 0, a.Elems()); err != nil {
			return err
		}
		res, _ = interval(b, 0, a.Len())
	case TypeString:
		if !a.Readable() {
			return intp.e(Invalidaccess, "copy: source is not readable")
		}
		if b.Len() < a.Len() {
			return intp.e(Rangecheck, "copy: not enough space in destination")
		}
		if err := intp.vm.stringWrite(b, 0, a.bytes()); err != nil {
			return err
		}
		res, _ = interval(b, 0, a.Len())
	case TypeDict:
		if !a.Readable() {
			return intp.e(Invalidaccess, "copy: source is not readable")
		}
		for _, e := range a.dict().sortedEntries() {
			if err := intp.vm.dictPut(b, e.key, e.val); err != nil {
				return err
			}
		}
		res = b
	default:
		return intp.e(Typecheck, "copy: invalid type %s", a.typ)
	}
	intp.ostack.drop(2)
	return intp.ostack.Push(res)
}

func bIndex(intp *Interpreter) error {
	n, err := intp.ostack.TopType(TypeInteger.Mask())
	if err != nil {
		return err
	}
	if n.n < 0 {
		return intp.e(Rangecheck, "index: negative argument")
	}
	if n.n >= int64(intp.ostack.Len()-1) {
		return intp.e(Stackunderflow, "index: not enough arguments")
	}
	val, err := intp.ostack.Index(int(n.n) + 1)
	if err != nil {
		return err
	}
	intp.ostack.drop(1)
	return intp.ostack.Push(val)
}

func bRoll(intp *Interpreter) error {
	args, err := intp.args("roll", 2)
	if err != nil {
		return err
	}
	n, j := args[0], args[1]
	if n.typ != TypeInteger || j.typ != TypeInteger {
		return intp.e(Typecheck, "roll: expected integers")
	}
	if n.n < 0 {
		return intp.e(Rangecheck, "roll: negative count")
	}
	if n.n > int64(intp.ostack.Len()-2) {
		return intp.e(Stackunderflow, "roll: not enough arguments")
	}
	var shift int
	if n.n > 0 {
		shift = int(j.n % n.n)
	}
	intp.ostack.drop(2)
	return intp.ostack.Roll(int(n.n), shift)
}

func bClear(intp *Interpreter) error {
	intp.ostack.Clear()
	return nil
}

func bCount(intp *Interpreter) error {
	return intp.ostack.Push(MakeInt(int64(intp.ostack.Len())))
}

func bMark(intp *Interpreter) error {
	return intp.ostack.Push(MakeMark())
}

func bCleartomark(intp *Interpreter) error {
	if err := intp.ostack.ClearToMark(); err != nil {
		return intp.e(Unmatchedmark, "cleartomark: no mark found")
	}
	return nil
}

func bCounttomark(intp *Interpreter) error {
	n, err := intp.ostack.CountToMark()
	if err != nil {
		return intp.e(Unmatchedmark, "counttomark: no mark found")
	}
	return intp.ostack.Push(MakeInt(int64(n)))
}

// The random number generator is the "minimal standard" generator of
// Park and Miller.
const (
	randModulus    = 1<<31 - 1
	randMultiplier = 16807
)

func bRand(intp *Interpreter) error {
	intp.randState = intp.randState * randMultiplier % randModulus
	return intp.ostack.Push(MakeInt(intp.randState))
}

func bSrand(intp *Interpreter) error {
	seed, err := intp.ostack.PopType(TypeInteger.Mask())
	if err != nil {
		return err
	}
	intp.setSeed(seed.n)
	return nil
}

func bRrand(intp *Interpreter) error {
	return intp.ostack.Push(MakeInt(intp.randState))
}

// setSeed initializes the random number generator.  The state of the
// generator must lie in the range 1, ..., 2^31-2.
func (intp *Interpreter) setSeed(seed int64) {
	s := seed % randModulus
	if s < 0 {
		s += randModulus
	}
	if s == 0 {
		s = 1
	}
	intp.randState = s
}

func bArrayEnd(intp *Interpreter) error {
	n, err := intp.ostack.CountToMark()
	if err != nil {
		return intp.e(Unmatchedmark, "]: missing '['")
	}
	if n > intp.cfg.MaxArraySize {
		return intp.e(Limitcheck, "]: too many elements")
	}
	elems := make([]Object, n)
	copy(elems, intp.ostack.top(n))
	if err := intp.vm.checkAlloc(elems); err != nil {
		return err
	}
	intp.ostack.drop(n + 1)
	return intp.ostack.Push(intp.vm.NewArray(elems))
}

func bArray(intp *Interpreter) error {
	n, err := intp.ostack.TopType(TypeInteger.Mask())
	if err != nil {
		return err
	}
	if n.n < 0 {
		return intp.e(Rangecheck, "array: negative size")
	} else if n.n > int64(intp.cfg.MaxArraySize) {
		return intp.e(Limitcheck, "array: size %d too large", n.n)
	}
	elems := make([]Object, n.n)
	for i := range elems {
		elems[i] = Null
	}
	intp.ostack.drop(1)
	return intp.ostack.Push(intp.vm.NewArray(elems))
}

func bLength(intp *Interpreter) error {
	obj, err := intp.ostack.TopType(TypeArray.Mask() | TypeString.Mask() | TypeDict.Mask() | TypeName.Mask())
	if err != nil {
		return err
	}
	if obj.typ != TypeName && !obj.Readable() {
		return intp.e(Invalidaccess, "length: %s is not readable", obj.typ)
	}
	intp.ostack.drop(1)
	return intp.ostack.Push(MakeInt(int64(obj.Len())))
}

func bGet(intp *Interpreter) error {
	args, err := intp.args("get", 2)
	if err != nil {
		return err
	}
	obj, key := args[0], args[1]

	var res Object
	switch obj.typ {
	case TypeArray:
		if key.typ != TypeInteger {
			return intp.e(Typecheck, "get: invalid index type %s", key.typ)
		}
		res, err = intp.vm.arrayGet(obj, toIndex(key))
		if err != nil {
			return err
		}
	case TypeString:
		if key.typ != TypeInteger {
			return intp.e(Typecheck, "get: invalid index type %s", key.typ)
		}
		if !obj.Readable() {
			return intp.e(Invalidaccess, "get: string is not readable")
		}
		i := toIndex(key)
		if i < 0 || i >= obj.Len() {
			return intp.e(Rangecheck, "get: index %d out of range", key.n)
		}
		res = MakeInt(int64(obj.bytes()[i]))
	case TypeDict:
		val, ok, err := intp.vm.dictGet(obj, key)
		if err != nil {
			return err
		}
		if !ok {
			return intp.e(Undefined, "get: key %s not found", key.String())
		}
		res = val
	default:
		return intp.e(Typecheck, "get: invalid type %s", obj.typ)
	}
	intp.ostack.drop(2)
	return intp.ostack.Push(res)
}

func bPut(intp *Interpreter) error {
	args, err := intp.args("put", 3)
	if err != nil {
		return err
	}
	obj, key, val := args[0], args[1], args[2]

	switch obj.typ {
	case TypeArray:
		if key.typ != TypeInteger {
			return intp.e(Typecheck, "put: invalid index type %s", key.typ)
		}
		err = intp.vm.arrayPut(obj, toIndex(key), val)
	case TypeString:
		if key.typ != TypeInteger || val.typ != TypeInteger {
			return intp.e(Typecheck, "put: expected integer index and value")
		}
		if val.n < 0 || val.n > 255 {
			return intp.e(Rangecheck, "put: invalid byte value %d", val.n)
		}
		err = intp.vm.stringWrite(obj, toIndex(key), []byte{byte(val.n)})
	case TypeDict:
		err = intp.vm.dictPut(obj, key, val)
	default:
		return intp.e(Typecheck, "put: invalid type %s", obj.typ)
	}
	if err != nil {
		return err
	}
	intp.ostack.drop(3)
	return nil
}

func bGetinterval(intp *Interpreter) error {
	args, err := intp.args("getinterval", 3)
	if err != nil {
		return err
	}
	obj, start, count := args[0], args[1], args[2]
	if !obj.Is(TypeArray.Mask() | TypeString.Mask()) {
		return intp.e(Typecheck, "getinterval: invalid type %s", obj.typ)
	}
	if start.typ != TypeInteger || count.typ != TypeInteger {
		return intp.e(Typecheck, "getinterval: expected integers")
	}
	if !obj.Readable() {
		return intp.e(Invalidaccess, "getinterval: %s is not readable", obj.typ)
	}
	res, err := interval(obj, toIndex(start), toIndex(count))
	if err != nil {
		return err
	}
	intp.ostack.drop(3)
	return intp.ostack.Push(res)
}

func bPutinterval(intp *Interpreter) error {
	args, err := intp.args("putinterval", 3)
	if err != nil {
		return err
	}
	dst, start, src := args[0], args[1], args[2]
	if start.typ != TypeInteger {
		return intp.e(Typecheck, "putinterval: invalid index type %s", start.typ)
	}
	switch {
	case dst.typ == TypeArray && src.typ == TypeArray:
		if !src.Readable() {
			return intp.e(Invalidaccess, "putinterval: source is not readable")
		}
		err = intp.vm.arrayWrite(dst, toIndex(start), src.Elems())
	case dst.typ == TypeString && src.typ == TypeString:
		if !src.Readable() {
			return intp.e(Invalidaccess, "putinterval: source is not readable")
		}
		err = intp.vm.stringWrite(dst, toIndex(start), src.bytes())
	default:
		return intp.e(Typecheck, "putinterval: invalid types %s and %s", dst.typ, src.typ)
	}
	if err != nil {
		return err
	}
	intp.ostack.drop(3)
	return nil
}

func bAload(intp *Interpreter) error {
	a, err := intp.ostack.TopType(TypeArray.Mask())
	if err != nil {
		return err
	}
	if !a.Readable() {
		return intp.e(Invalidaccess, "aload: array is not readable")
	}
	if err := intp.ostack.room(a.Len()); err != nil {
		return err
	}
	intp.ostack.drop(1)
	for _, elem := range a.Elems() {
		intp.ostack.Push(elem)
	}
	return intp.ostack.Push(a)
}

func bAstore(intp *Interpreter) error {
	a, err := intp.ostack.TopType(TypeArray.Mask())
	if err != nil {
		return err
	}
	n := a.Len()
	args, err := intp.args("astore", n+1)
	if err != nil {
		return err
	}
	if err := intp.vm.arrayWrite(a, 0, args[:n]); err != nil {
		return err
	}
	intp.ostack.drop(n + 1)
	return intp.ostack.Push(a)
}

func bPackedarray(intp *Interpreter) error {
	n, err := intp.ostack.TopType(TypeInteger.Mask())
	if err != nil {
		return err
	}
	if n.n < 0 {
		return intp.e(Rangecheck, "packedarray: negative size")
	} else if n.n > int64(intp.cfg.MaxArraySize) {
		return intp.e(Limitcheck, "packedarray: size %d too large", n.n)
	}
	k := int(n.n)
	args, err := intp.args("packedarray", k+1)
	if err != nil {
		return err
	}
	elems := make([]Object, k)
	copy(elems, args[:k])
	if err := intp.vm.checkAlloc(elems); err != nil {
		return err
	}
	a := intp.vm.NewArray(elems)
	a.attr |= AttrPacked
	intp.ostack.drop(k + 1)
	return intp.ostack.Push(a.ReadOnly())
}

func bString(intp *Interpreter) error {
	n, err := intp.ostack.TopType(TypeInteger.Mask())
	if err != nil {
		return err
	}
	if n.n < 0 {
		return intp.e(Rangecheck, "string: negative size")
	} else if n.n > int64(intp.cfg.MaxStringSize) {
		return intp.e(Limitcheck, "string: size %d too large", n.n)
	}
	intp.ostack.drop(1)
	return intp.ostack.Push(intp.vm.NewString(make([]byte, n.n)))
}

// stringArgs checks the operands of search and anchorsearch.
func (intp *Interpreter) stringArgs(op string) (Object, Object, error) {
	args, err := intp.args(op, 2)
	if err != nil {
		return Object{}, Object{}, err
	}
	s, seek := args[0], args[1]
	if s.typ != TypeString || seek.typ != TypeString {
		return s, seek, intp.e(Typecheck, "%s: expected strings", op)
	}
	if !s.Readable() || !seek.Readable() {
		return s, seek, intp.e(Invalidaccess, "%s: string is not readable", op)
	}
	return s, seek, nil
}

func bSearch(intp *Interpreter) error {
	s, seek, err := intp.stringArgs("search")
	if err != nil {
		return err
	}
	i := bytes.Index(s.bytes(), seek.bytes())
	if i < 0 {
		intp.ostack.drop(1)
		return intp.ostack.Push(MakeBool(false))
	}
	if err := intp.ostack.room(2); err != nil {
		return err
	}
	k := seek.Len()
	pre, _ := interval(s, 0, i)
	match, _ := interval(s, i, k)
	post, _ := interval(s, i+k, s.Len()-i-k)
	intp.ostack.drop(2)
	intp.ostack.Push(post)
	intp.ostack.Push(match)
	intp.ostack.Push(pre)
	return intp.ostack.Push(MakeBool(true))
}

func bAnchorsearch(intp *Interpreter) error {
	s, seek, err := intp.stringArgs("anchorsearch")
	if err != nil {
		return err
	}
	if !bytes.HasPrefix(s.bytes(), seek.bytes()) {
		intp.ostack.drop(1)
		return intp.ostack.Push(MakeBool(false))
	}
	if err := intp.ostack.room(1); err != nil {
		return err
	}
	k := seek.Len()
	match, _ := interval(s, 0, k)
	post, _ := interval(s, k, s.Len()-k)
	intp.ostack.drop(2)
	intp.ostack.Push(post)
	intp.ostack.Push(match)
	return intp.ostack.Push(MakeBool(true))
}

func bDict(intp *Interpreter) error {
	n, err := intp.ostack.TopType(TypeInteger.Mask())
	if err != nil {
		return err
	}
	if n.n < 0 {
		return intp.e(Rangecheck, "dict: negative size")
	} else if n.n > int64(intp.cfg.MaxDictSize) {
		return intp.e(Limitcheck, "dict: size %d too large", n.n)
	}
	intp.ostack.drop(1)
	return intp.ostack.Push(intp.vm.NewDict(int(n.n)))
}

func bDictEnd(intp *Interpreter) error {
	n, err := intp.ostack.CountToMark()
	if err != nil {
		return intp.e(Unmatchedmark, ">>: missing '<<'")
	}
	if n%2 != 0 {
		return intp.e(Rangecheck, ">>: odd number of elements")
	}
	if n/2 > intp.cfg.MaxDictSize {
		return intp.e(Limitcheck, ">>: too many entries")
	}
	d := intp.vm.NewDict(n / 2)
	args := intp.ostack.top(n)
	for i := 0; i < n; i += 2 {
		if err := intp.vm.dictPut(d, args[i], args[i+1]); err != nil {
			return err
		}
	}
	intp.ostack.drop(n + 1)
	return intp.ostack.Push(d)
}

func bMaxlength(intp *Interpreter) error {
	d, err := intp.ostack.TopType(TypeDict.Mask())
	if err != nil {
		return err
	}
	if !d.Readable() {
		return intp.e(Invalidaccess, "maxlength: dictionary is not readable")
	}
	intp.ostack.drop(1)
	return intp.ostack.Push(MakeInt(int64(d.dict().maxLength)))
}

func bBegin(intp *Interpreter) error {
	d, err := intp.ostack.TopType(TypeDict.Mask())
	if err != nil {
		return err
	}
	if err := intp.dstack.Begin(d); err != nil {
		return err
	}
	intp.ostack.drop(1)
	return nil
}

func bEnd(intp *Interpreter) error {
	if err := intp.dstack.End(); err != nil {
		return intp.e(Dictstackunderflow, "end: no dictionary to remove")
	}
	return nil
}

func bDef(intp *Interpreter) error {
	args, err := intp.args("def", 2)
	if err != nil {
		return err
	}
	if err := intp.dstack.Define(args[0], args[1]); err != nil {
		return err
	}
	intp.ostack.drop(2)
	return nil
}

func bLoad(intp *Interpreter) error {
	key, err := intp.ostack.Top()
	if err != nil {
		return intp.e(Stackunderflow, "load: not enough arguments")
	}
	if key.typ == TypeNull {
		return intp.e(Typecheck, "load: null is not a valid key")
	}
	val, ok := intp.dstack.Lookup(key)
	if !ok {
		return intp.e(Undefined, "load: %s", key.String())
	}
	intp.ostack.drop(1)
	return intp.ostack.Push(val)
}

func bStore(intp *Interpreter) error {
	args, err := intp.args("store", 2)
	if err != nil {
		return err
	}
	if err := intp.dstack.Store(args[0], args[1]); err != nil {
		return err
	}
	intp.ostack.drop(2)
	return nil
}

func bUndef(intp *Interpreter) error {
	args, err := intp.args("undef", 2)
	if err != nil {
		return err
	}
	d, key := args[0], args[1]
	if d.typ != TypeDict {
		return intp.e(Typecheck, "undef: expected a dictionary, got %s", d.typ)
	}
	if err := intp.vm.dictUndef(d, key); err != nil {
		return err
	}
	intp.ostack.drop(2)
	return nil
}

func bKnown(intp *Interpreter) error {
	args, err := intp.args("known", 2)
	if err != nil {
		return err
	}
	d, key := args[0], args[1]
	if d.typ != TypeDict {
		return intp.e(Typecheck, "known: expected a dictionary, got %s", d.typ)
	}
	_, ok, err := intp.vm.dictGet(d, key)
	if err != nil {
		return err
	}
	intp.ostack.drop(2)
	return intp.ostack.Push(MakeBool(ok))
}

func bWhere(intp *Interpreter) error {
	key, err := intp.ostack.Top()
	if err != nil {
		return intp.e(Stackunderflow, "where: not enough arguments")
	}
	if key.typ == TypeNull {
		return intp.e(Typecheck, "where: null is not a valid key")
	}
	d, ok := intp.dstack.DefiningDict(key)
	if !ok {
		intp.ostack.drop(1)
		return intp.ostack.Push(MakeBool(false))
	}
	if err := intp.ostack.room(1); err != nil {
		return err
	}
	intp.ostack.drop(1)
	intp.ostack.Push(d)
	return intp.ostack.Push(MakeBool(true))
}

func bCurrentdict(intp *Interpreter) error {
	return intp.ostack.Push(intp.dstack.Current())
}

func bCountdictstack(intp *Interpreter) error {
	return intp.ostack.Push(MakeInt(int64(intp.dstack.Len())))
}
