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
	"math"
	"testing"
)

func TestCmdAbs(t *testing.T) {
	type testCase struct {
		in  Object
		out Object
	}
	cases := []testCase{
		{MakeInt(0), MakeInt(0)},
		{MakeInt(1), MakeInt(1)},
		{MakeInt(-1), MakeInt(1)},
		{MakeInt(-100), MakeInt(100)},
		{MakeInt(math.MinInt64), MakeReal(-float64(math.MinInt64))},
		{MakeReal(0), MakeReal(0)},
		{MakeReal(1), MakeReal(1)},
		{MakeReal(-1), MakeReal(1)},
		{MakeReal(-100), MakeReal(100)},
	}
	for _, c := range cases {
		intp := newTestInterpreter()
		if err := intp.OperandStack().Push(c.in); err != nil {
			t.Fatal(err)
		}
		err := intp.Exec("abs")
		if err != nil {
			t.Fatal(err)
		}
		vals := intp.OperandStack().Values()
		if len(vals) != 1 || vals[0] != c.out {
			t.Errorf("abs(%s): expected %s, got %v", c.in, c.out, vals)
		}
	}
}

func TestCmdAdd(t *testing.T) {
	type testCase struct {
		a, b Object
		out  Object
	}
	cases := []testCase{
		{MakeInt(1), MakeInt(2), MakeInt(3)},
		{MakeInt(1), MakeReal(2), MakeReal(3)},
		{MakeReal(1), MakeInt(2), MakeReal(3)},
		{MakeReal(1.5), MakeReal(2), MakeReal(3.5)},
		{MakeInt(math.MaxInt64), MakeInt(1), MakeReal(math.MaxInt64 + 1)},
		{MakeInt(math.MinInt64), MakeInt(-1), MakeReal(math.MinInt64 - 1)},
	}
	for _, c := range cases {
		intp := newTestInterpreter()
		s := intp.OperandStack()
		if err := s.Push(c.a); err != nil {
			t.Fatal(err)
		}
		if err := s.Push(c.b); err != nil {
			t.Fatal(err)
		}
		err := intp.Exec("add")
		if err != nil {
			t.Fatal(err)
		}
		vals := s.Values()
		if len(vals) != 1 || vals[0] != c.out {
			t.Errorf("%s %s add: expected %s, got %v", c.a, c.b, c.out, vals)
		}
	}
}

func TestArith(t *testing.T) {
	checkStacks(t, []stackCase{
		{"5 3 sub", []string{"2"}},
		{"2 3.5 mul", []string{"7.0"}},
		{"1 2.5 add", []string{"3.5"}},
		{"7 2 idiv", []string{"3"}},
		{"-7 2 idiv", []string{"-3"}},
		{"7 3 mod", []string{"1"}},
		{"-7 3 mod", []string{"-1"}},
		{"1 2 div", []string{"0.5"}},
		{"4 2 div", []string{"2.0"}},
		{"3 neg", []string{"-3"}},
		{"-3 abs", []string{"3"}},
		{"4 sqrt", []string{"2.0"}},
		{"2.5 round", []string{"3.0"}},
		{"-2.5 round", []string{"-2.0"}},
		{"2.7 truncate", []string{"2.0"}},
		{"2.3 ceiling", []string{"3.0"}},
		{"-2.3 floor", []string{"-3.0"}},
		{"7 floor", []string{"7"}},
		{"3 2 exp", []string{"9.0"}},
		{"0 1 atan", []string{"0.0"}},
		{"1 0 atan round", []string{"90.0"}},
		{"0 cos", []string{"1.0"}},
		{"0 sin", []string{"0.0"}},
		{"1 log", []string{"0.0"}},
		{"1 ln", []string{"0.0"}},
	})
	checkErrors(t, []errorCase{
		{"-1 sqrt", Rangecheck},
		{"0 ln", Rangecheck},
		{"0 0 atan", Undefinedresult},
		{"1.5 2 idiv", Typecheck},
		{"/a neg", Typecheck},
	})
}

func TestRelational(t *testing.T) {
	checkStacks(t, []stackCase{
		{"1 2 lt", []string{"true"}},
		{"2 1 ge", []string{"true"}},
		{"1 1.0 eq", []string{"true"}},
		{"1 2 ne", []string{"true"}},
		{"(a) (b) lt", []string{"true"}},
		{"(abc) (abc) eq", []string{"true"}},
		{"/abc (abc) eq", []string{"true"}},
		{"/a dup eq", []string{"true"}},
		{"[1] [1] eq", []string{"false"}},
		{"[1] dup eq", []string{"true"}},
		{"null null eq", []string{"true"}},
		{"1 (1) eq", []string{"false"}},
		{"true false and", []string{"false"}},
		{"true false or", []string{"true"}},
		{"true true xor", []string{"false"}},
		{"12 10 and", []string{"8"}},
		{"12 10 or", []string{"14"}},
		{"12 10 xor", []string{"6"}},
		{"5 not", []string{"-6"}},
		{"true not", []string{"false"}},
		{"1 3 bitshift", []string{"8"}},
		{"8 -2 bitshift", []string{"2"}},
	})
	checkErrors(t, []errorCase{
		{"1 (a) lt", Typecheck},
		{"1 true and", Typecheck},
		{"1.5 not", Typecheck},
	})
}

func TestStackOps(t *testing.T) {
	checkStacks(t, []stackCase{
		{"1 2 pop", []string{"1"}},
		{"1 2 exch", []string{"2", "1"}},
		{"1 dup", []string{"1", "1"}},
		{"1 2 3 2 copy", []string{"1", "2", "3", "2", "3"}},
		{"1 2 3 0 copy", []string{"1", "2", "3"}},
		{"1 2 3 2 index", []string{"1", "2", "3", "1"}},
		{"1 2 3 3 1 roll", []string{"3", "1", "2"}},
		{"1 2 3 3 -1 roll", []string{"2", "3", "1"}},
		{"1 2 3 3 4 roll", []string{"3", "1", "2"}},
		{"1 2 3 clear", nil},
		{"1 2 3 count", []string{"1", "2", "3", "3"}},
		{"1 mark 2 3 counttomark", []string{"1", "-mark-", "2", "3", "2"}},
		{"1 mark 2 3 cleartomark", []string{"1"}},
		{"[ 1 2 ] length", []string{"2"}},
	})
	checkErrors(t, []errorCase{
		{"1 2 exch exch pop pop pop", Stackunderflow},
		{"1 2 5 copy", Stackunderflow},
		{"1 -1 copy", Rangecheck},
		{"1 2 3 index", Stackunderflow},
		{"1 2 -1 1 roll", Rangecheck},
	})
}

func TestRand(t *testing.T) {
	checkStacks(t, []stackCase{
		{"1 srand rand", []string{"16807"}},
		{"10 srand rrand", []string{"10"}},
		{"0 srand rrand", []string{"1"}},
		{"7 srand rand 7 srand rand eq", []string{"true"}},
	})
}

func TestArraysAndStrings(t *testing.T) {
	checkStacks(t, []stackCase{
		{"3 array", []string{"[null null null]"}},
		{"3 string", []string{`(\000\000\000)`}},
		{"[1 2 3] length", []string{"3"}},
		{"(abc) length", []string{"3"}},
		{"/abc length", []string{"3"}},
		{"<< /a 1 >> length", []string{"1"}},
		{"[1 2 3] 1 get", []string{"2"}},
		{"(abc) 1 get", []string{"98"}},
		{"/a [1 2 3] def a 1 7 put a", []string{"[1 7 3]"}},
		{"/s (abc) def s 0 65 put s", []string{"(Abc)"}},
		{"[1 2 3 4] 1 2 getinterval", []string{"[2 3]"}},
		{"(hello) 1 3 getinterval", []string{"(ell)"}},
		{"/a [1 2 3 4] def a 1 [8 9] putinterval a", []string{"[1 8 9 4]"}},
		{"/s (abcd) def s 2 (XY) putinterval s", []string{"(abXY)"}},
		{"/a [1 2 3 4] def a 1 2 getinterval 0 9 put a", []string{"[1 9 3 4]"}},
		{"[1 2 3] aload", []string{"1", "2", "3", "[1 2 3]"}},
		{"1 2 3 3 array astore", []string{"[1 2 3]"}},
		{"1 2 2 packedarray", []string{"[1 2]"}},
		{"1 2 2 packedarray type", []string{"/packedarraytype"}},
		{"1 2 2 packedarray wcheck", []string{"false"}},
		{"[1 2 3] 5 array copy", []string{"[1 2 3]"}},
		{"(ab) 3 string copy", []string{"(ab)"}},
		{"(abcdef) (cd) search", []string{"(ef)", "(cd)", "(ab)", "true"}},
		{"(abc) (x) search", []string{"(abc)", "false"}},
		{"(abc) (ab) anchorsearch", []string{"(c)", "(ab)", "true"}},
		{"(abc) (bc) anchorsearch", []string{"(abc)", "false"}},
		{"(a\\(b) ", []string{`(a\(b)`}},
		{"<41 42>", []string{"(AB)"}},
		{"<~87cURDZ~>", []string{"(Hello)"}},
	})
	checkErrors(t, []errorCase{
		{"[1 2 3] 3 get", Rangecheck},
		{"[1 2 3] 2 2 getinterval", Rangecheck},
		{"(abc) 2 (XY) putinterval", Rangecheck},
		{"[1 2 3] 2 array copy", Rangecheck},
		{"(abc) readonly 0 65 put", Invalidaccess},
	})
}

func TestDicts(t *testing.T) {
	checkStacks(t, []stackCase{
		{"/d 10 dict def d /k 5 put d /k get", []string{"5"}},
		{"/d 1 dict def d /k 1 put d /k known", []string{"true"}},
		{"/d 1 dict def d /k 1 put d /k undef d /k known", []string{"false"}},
		{"/d 1 dict def d /k undef d length", []string{"0"}},
		{"5 dict maxlength", []string{"5"}},
		{"1 dict dup /a 1 put dup /b 2 put maxlength", []string{"2"}},
		{"/d 1 dict def d (k) 7 put d /k get", []string{"7"}},
		{"/d 1 dict def d 1.0 (one) put d 1 get", []string{"(one)"}},
		{"/d 1 dict def d 1.5 (x) put d 1.5 get", []string{"(x)"}},
		{"<< /a 1 /b 2 >> /b get", []string{"2"}},
		{"/x 1 def /x where pop userdict eq", []string{"true"}},
		{"/nosuchkey where", []string{"false"}},
		{"/add where pop systemdict eq", []string{"true"}},
		{"/add load type", []string{"/operatortype"}},
		{"currentdict userdict eq", []string{"true"}},
		{"1 dict begin currentdict userdict eq end", []string{"false"}},
		{"countdictstack", []string{"3"}},
		{"1 dict begin countdictstack", []string{"4"}},
		{"countdictstack array dictstack length", []string{"3"}},
		{"1 dict begin 1 dict begin cleardictstack countdictstack", []string{"3"}},
		{"<< /a 1 >> 1 dict copy /a get", []string{"1"}},
		{"statusdict /product get", []string{"(psvm)"}},
	})
	checkErrors(t, []errorCase{
		{"/nosuchkey load", Undefined},
		{"null where", Typecheck},
		{"1 dict /a get", Undefined},
		{"1 dict noaccess /a get", Invalidaccess},
		{"systemdict noaccess", Invalidaccess},
	})
}

func TestTypes(t *testing.T) {
	checkStacks(t, []stackCase{
		{"1 type", []string{"/integertype"}},
		{"1.5 type", []string{"/realtype"}},
		{"true type", []string{"/booleantype"}},
		{"/a type", []string{"/nametype"}},
		{"(a) type", []string{"/stringtype"}},
		{"[] type", []string{"/arraytype"}},
		{"{} type", []string{"/arraytype"}},
		{"1 dict type", []string{"/dicttype"}},
		{"mark type", []string{"/marktype"}},
		{"null type", []string{"/nulltype"}},
		{"save type", []string{"/savetype"}},
		{"currentfile type", []string{"/filetype"}},
		{"gstate type", []string{"/gstatetype"}},
		{"/a cvx xcheck", []string{"true"}},
		{"{1} cvlit xcheck", []string{"false"}},
		{"{1} xcheck", []string{"true"}},
		{"[1] readonly wcheck", []string{"false"}},
		{"[1] readonly rcheck", []string{"true"}},
		{"[1] executeonly rcheck", []string{"false"}},
		{"1 dict readonly wcheck", []string{"false"}},
		{"(3.5) cvr", []string{"3.5"}},
		{"2 cvr", []string{"2.0"}},
		{"(12) cvi", []string{"12"}},
		{"( 16#ff ) cvi", []string{"255"}},
		{"3.7 cvi", []string{"3"}},
		{"-3.7 cvi", []string{"-3"}},
		{"(abc) cvn", []string{"/abc"}},
		{"(abc) cvx cvn xcheck", []string{"true"}},
		{"123 10 string cvs", []string{"(123)"}},
		{"1.5 10 string cvs", []string{"(1.5)"}},
		{"/abc 10 string cvs", []string{"(abc)"}},
		{"true 10 string cvs", []string{"(true)"}},
		{"/add load 10 string cvs", []string{"(add)"}},
		{"[1] 20 string cvs", []string{"(--nostringval--)"}},
	})
	checkErrors(t, []errorCase{
		{"(abc) cvi", Typecheck},
		{"1e100 cvi", Rangecheck},
		{"1 rcheck", Typecheck},
		{"123 2 string cvs", Rangecheck},
		{"1 dict executeonly", Typecheck},
	})
}

func TestBind(t *testing.T) {
	checkStacks(t, []stackCase{
		{"/f { add } bind def /f load 0 get type", []string{"/operatortype"}},
		{"{ { add } } bind 0 get 0 get type", []string{"/operatortype"}},
		{"{ { add } } bind 0 get wcheck", []string{"false"}},
		{"{ nosuchop } bind 0 get type", []string{"/nametype"}},
		{"/x 1 def { x } bind 0 get type", []string{"/nametype"}},
		{"1 2 { add } bind exec", []string{"3"}},
	})
}

func TestBindStoreError(t *testing.T) {
	intp := newTestInterpreter()
	vm := intp.VM()
	inner := vm.NewArray([]Object{MakeInt(1)}).Executable()
	vm.SetGlobal(true)
	outer := vm.NewArray([]Object{inner}).Executable()
	vm.SetGlobal(false)
	if err := intp.OperandStack().Push(outer); err != nil {
		t.Fatal(err)
	}
	err := bBind(intp)
	if kind, _ := KindOf(err); kind != Invalidaccess {
		t.Errorf("expected invalidaccess, got %v", err)
	}
}

func TestResources(t *testing.T) {
	checkStacks(t, []stackCase{
		{"/r 5 /Generic defineresource", []string{"5"}},
		{"/r 5 /Generic defineresource pop /r /Generic findresource", []string{"5"}},
		{"(r) 5 /Generic defineresource pop /r /Generic findresource", []string{"5"}},
		{"/r /Generic resourcestatus", []string{"false"}},
		{"/r 5 /Generic defineresource pop /r /Generic resourcestatus",
			[]string{"0", "-1", "true"}},
		{"/r 5 /Generic defineresource pop /r /Generic undefineresource /r /Generic resourcestatus",
			[]string{"false"}},
		{"/ProcSet /Category findresource type", []string{"/dicttype"}},
		{"/MyCat 1 dict /Category defineresource pop /x 1 /MyCat defineresource pop /x /MyCat findresource",
			[]string{"1"}},
		{"save /r 5 /Generic defineresource pop restore /r /Generic resourcestatus",
			[]string{"false"}},
	})
	checkErrors(t, []errorCase{
		{"/r /Generic findresource", Undefinedresource},
		{"/r 5 /NoSuchCategory defineresource", Undefined},
		{"/r /NoSuchCategory findresource", Undefined},
		{"5 5 /Generic defineresource", Typecheck},
		{"/r 5 (Generic) defineresource", Typecheck},
		{"/MyCat 5 /Category defineresource", Typecheck},
	})
}

func TestPacking(t *testing.T) {
	checkStacks(t, []stackCase{
		{"currentpacking", []string{"false"}},
		{"true setpacking currentpacking", []string{"true"}},
		{"true setpacking { 1 2 } wcheck", []string{"false"}},
		{"true setpacking { 1 2 } type", []string{"/packedarraytype"}},
		{"save true setpacking restore currentpacking", []string{"false"}},
	})
}

func TestFiles(t *testing.T) {
	checkStacks(t, []stackCase{
		{"currentfile 5 string readstring HELLO", []string{"(HELLO)", "true"}},
		{"currentfile 10 string readstring abc", []string{"(abc)", "false"}},
		{"currentfile closefile 1 2 3", nil},
		{"1 (2 currentfile closefile 3) cvx exec 4", []string{"1", "2", "4"}},
	})
	checkErrors(t, []errorCase{
		{"currentfile 0 string readstring", Rangecheck},
		{"1 closefile", Typecheck},
	})
}
