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
	"seehuhn.de/go/psvm/gstate"
)

// Type is the type tag of an Object.
type Type uint8

// These are the PostScript object types.
const (
	TypeNull Type = iota
	TypeInteger
	TypeReal
	TypeBoolean
	TypeName
	TypeString
	TypeArray
	TypeDict
	TypeOperator
	TypeFile
	TypeMark
	TypeSave
	TypeGState

	// typeControl marks loop and stopped continuations.  Objects of this
	// type only ever live on the execution stack.
	typeControl

	numTypes
)

var typeNames = [numTypes]string{
	TypeNull:     "nulltype",
	TypeInteger:  "integertype",
	TypeReal:     "realtype",
	TypeBoolean:  "booleantype",
	TypeName:     "nametype",
	TypeString:   "stringtype",
	TypeArray:    "arraytype",
	TypeDict:     "dicttype",
	TypeOperator: "operatortype",
	TypeFile:     "filetype",
	TypeMark:     "marktype",
	TypeSave:     "savetype",
	TypeGState:   "gstatetype",
	typeControl:  "controltype",
}

// String returns the name used by the type operator, e.g. "integertype".
func (t Type) String() string {
	if t >= numTypes {
		return "unknowntype"
	}
	return typeNames[t]
}

// Mask returns the TypeMask containing only t.
func (t Type) Mask() TypeMask {
	return 1 << t
}

// TypeMask is a set of object types.
type TypeMask uint16

// Frequently used type masks.
const (
	NumberMask    = TypeMask(1<<TypeInteger | 1<<TypeReal)
	CompositeMask = TypeMask(1<<TypeString | 1<<TypeArray | 1<<TypeDict)
	AnyMask       = TypeMask(1<<typeControl - 1)

	procMask = TypeMask(1 << TypeArray)
)

// Attr holds the attribute flags of an Object.
type Attr uint16

// These are the attribute bits.
const (
	AttrExecutable Attr = 1 << iota
	AttrRead
	AttrWrite
	AttrExecute
	AttrGlobal
	AttrBound
	AttrPacked

	accessMask      = AttrRead | AttrWrite | AttrExecute
	unlimitedAccess = accessMask
)

// Object is a PostScript object.
//
// Objects are small and are passed by value.  Strings, arrays and
// dictionaries refer to a shared node, so that copies of such an Object
// observe each other's modifications.  Arrays and strings additionally
// carry the start index and length of the visible interval.
type Object struct {
	typ  Type
	attr Attr
	line int32
	off  int32
	n    int64
	r    float64
	ref  any
}

// Null is the PostScript null object.
var Null = Object{typ: TypeNull, attr: unlimitedAccess}

// MakeInt returns a new integer object.
func MakeInt(x int64) Object {
	return Object{typ: TypeInteger, attr: unlimitedAccess, n: x}
}

// MakeReal returns a new real object.
func MakeReal(x float64) Object {
	return Object{typ: TypeReal, attr: unlimitedAccess, r: x}
}

// MakeBool returns a new boolean object.
func MakeBool(x bool) Object {
	o := Object{typ: TypeBoolean, attr: unlimitedAccess}
	if x {
		o.n = 1
	}
	return o
}

// MakeMark returns a mark object.
func MakeMark() Object {
	return Object{typ: TypeMark, attr: unlimitedAccess}
}

// MakeName returns a literal name object.
// The name is interned in the process-wide name table.
func MakeName(text string) Object {
	return NewName(text).Object()
}

func makeOperator(op *Operator) Object {
	return Object{typ: TypeOperator, attr: AttrExecutable | AttrExecute, ref: op}
}

func makeGState(g *gstate.State) Object {
	return Object{typ: TypeGState, attr: unlimitedAccess, ref: g}
}

// Type returns the type tag of o.
func (o Object) Type() Type {
	return o.typ
}

// Is reports whether the type of o is contained in mask.
func (o Object) Is(mask TypeMask) bool {
	return mask&o.typ.Mask() != 0
}

// Line returns the source line (1-based) where o was read, or 0 if the
// object was not read by the scanner.
func (o Object) Line() int {
	return int(o.line)
}

// IsExecutable reports whether o has the executable attribute.
func (o Object) IsExecutable() bool {
	return o.attr&AttrExecutable != 0
}

// IsLiteral reports whether o lacks the executable attribute.
func (o Object) IsLiteral() bool {
	return o.attr&AttrExecutable == 0
}

// Executable returns a copy of o with the executable attribute set.
func (o Object) Executable() Object {
	o.attr |= AttrExecutable
	return o
}

// Literal returns a copy of o with the executable attribute cleared.
func (o Object) Literal() Object {
	o.attr &^= AttrExecutable
	return o
}

// IsGlobal reports whether o refers to a node in global VM.
func (o Object) IsGlobal() bool {
	if h := o.header(); h != nil {
		return h.global
	}
	return false
}

func (o Object) access() Attr {
	if o.typ == TypeDict {
		return o.dict().access
	}
	return o.attr & accessMask
}

// Readable reports whether the value of o may be read.
func (o Object) Readable() bool {
	return o.access()&AttrRead != 0
}

// Writable reports whether the value of o may be modified.
func (o Object) Writable() bool {
	return o.access()&AttrWrite != 0
}

// CanExecute reports whether o may be executed.
func (o Object) CanExecute() bool {
	return o.access()&(AttrExecute|AttrRead) != 0
}

// ReadOnly removes write access.  For dictionaries, the change applies
// to the shared dictionary and thus to all references.
func (o Object) ReadOnly() Object {
	return o.narrow(AttrWrite)
}

// ExecuteOnly removes read and write access.
func (o Object) ExecuteOnly() Object {
	return o.narrow(AttrRead | AttrWrite)
}

// NoAccess removes all access.
func (o Object) NoAccess() Object {
	return o.narrow(accessMask)
}

func (o Object) narrow(remove Attr) Object {
	if o.typ == TypeDict {
		o.dict().access &^= remove
		return o
	}
	o.attr &^= remove
	return o
}

// SaveAccess returns the current access bits of o.
// Together with RestoreAccess this allows privileged code to temporarily
// lift access restrictions.
func (o *Object) SaveAccess() Attr {
	return o.access()
}

// RestoreAccess sets the access bits of o to a, which is normally a
// value previously obtained from SaveAccess.
func (o *Object) RestoreAccess(a Attr) {
	a &= accessMask
	if o.typ == TypeDict {
		o.dict().access = a
		return
	}
	o.attr = o.attr&^accessMask | a
}

// Int returns the value of an integer object, or the truncated value of
// a real object.
func (o Object) Int() int64 {
	if o.typ == TypeReal {
		return int64(o.r)
	}
	return o.n
}

// Real returns the numeric value of an integer or real object.
func (o Object) Real() float64 {
	if o.typ == TypeInteger {
		return float64(o.n)
	}
	return o.r
}

// Bool returns the value of a boolean object.
func (o Object) Bool() bool {
	return o.n != 0
}

// Len returns the number of elements of a string, array or dictionary
// object, and the length of the text of a name.
func (o Object) Len() int {
	switch o.typ {
	case TypeString, TypeArray:
		return int(o.n)
	case TypeDict:
		return len(o.dict().data)
	case TypeName:
		return len(o.name().text)
	}
	return 0
}

// Text returns the contents of a string object or the text of a name.
func (o Object) Text() string {
	switch o.typ {
	case TypeString:
		return string(o.bytes())
	case TypeName:
		return o.name().text
	case TypeOperator:
		return o.op().name
	}
	return ""
}

// Elems returns the elements of an array object.
// The returned slice aliases the array and must not be modified.
func (o Object) Elems() []Object {
	if o.typ != TypeArray {
		return nil
	}
	return o.array().data[o.off : int64(o.off)+o.n]
}

func (o Object) bytes() []byte {
	return o.str().data[o.off : int64(o.off)+o.n]
}

func (o Object) name() *Name           { return o.ref.(*Name) }
func (o Object) array() *arrayNode     { return o.ref.(*arrayNode) }
func (o Object) str() *stringNode      { return o.ref.(*stringNode) }
func (o Object) dict() *dictNode       { return o.ref.(*dictNode) }
func (o Object) op() *Operator         { return o.ref.(*Operator) }
func (o Object) file() *File           { return o.ref.(*File) }
func (o Object) save() *SaveObject     { return o.ref.(*SaveObject) }
func (o Object) control() *control     { return o.ref.(*control) }
func (o Object) gstate() *gstate.State { return o.ref.(*gstate.State) }

// header returns the VM node header of composite objects, and nil
// otherwise.
func (o Object) header() *nodeHeader {
	switch o.typ {
	case TypeString:
		return &o.str().nodeHeader
	case TypeArray:
		return &o.array().nodeHeader
	case TypeDict:
		return &o.dict().nodeHeader
	}
	return nil
}

// sameValue reports whether a and b refer to the same composite value.
func sameValue(a, b Object) bool {
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case TypeString, TypeArray:
		return a.ref == b.ref && a.off == b.off && a.n == b.n
	default:
		return a.ref == b.ref
	}
}
