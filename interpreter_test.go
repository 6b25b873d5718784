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
	"context"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func newTestInterpreter(opts ...Option) *Interpreter {
	return NewInterpreter(append([]Option{WithOutput(io.Discard)}, opts...)...)
}

// stackStrings returns the operand stack in == syntax, bottom first.
func stackStrings(intp *Interpreter) []string {
	vals := intp.OperandStack().Values()
	res := make([]string, len(vals))
	for i, v := range vals {
		res[i] = v.String()
	}
	return res
}

type stackCase struct {
	code string
	want []string
}

func checkStacks(t *testing.T, cases []stackCase) {
	t.Helper()
	for _, c := range cases {
		intp := newTestInterpreter()
		if err := intp.Exec(c.code); err != nil {
			t.Errorf("%q: %v", c.code, err)
			continue
		}
		if d := cmp.Diff(c.want, stackStrings(intp), cmpopts.EquateEmpty()); d != "" {
			t.Errorf("%q: %s", c.code, d)
		}
	}
}

type errorCase struct {
	code string
	kind ErrorKind
}

func checkErrors(t *testing.T, cases []errorCase) {
	t.Helper()
	for _, c := range cases {
		intp := newTestInterpreter()
		err := intp.Exec(c.code)
		kind, ok := KindOf(err)
		if !ok || kind != c.kind {
			t.Errorf("%q: expected %s, got %v", c.code, c.kind, err)
		}
	}
}

func TestArray(t *testing.T) {
	checkStacks(t, []stackCase{
		{"[1 2 3]", []string{"[1 2 3]"}},
		{"[1 [] 2]", []string{"[1 [] 2]"}},
		{"[ 1 2 add ]", []string{"[3]"}},
		{"[/a (b) 1.5 true null]", []string{"[/a (b) 1.5 true null]"}},
	})
}

func TestNestedProcedures(t *testing.T) {
	checkStacks(t, []stackCase{
		{"/a { {[1 2]} {3} ifelse } def true a false a", []string{"[1 2]", "3"}},
		{"{ 1 { 2 { 3 } } }", []string{"{1 {2 {3}}}"}},
		{"{ 1 2 add } exec", []string{"3"}},
	})
}

func TestDefStore(t *testing.T) {
	checkStacks(t, []stackCase{
		{"/x 1 def 5 dict begin /x 2 def x end x", []string{"2", "1"}},
		{"/x 1 def 5 dict begin /x 3 store x end x", []string{"3", "3"}},
		{"5 dict begin /y 7 store end /y where", []string{"false"}},
	})
}

func TestControl(t *testing.T) {
	checkStacks(t, []stackCase{
		{"true { 1 } { 2 } ifelse", []string{"1"}},
		{"false { 1 } { 2 } ifelse", []string{"2"}},
		{"false { 1 } if", nil},
		{"0 1 1 4 { add } for", []string{"10"}},
		{"1 1 5 {} for", []string{"1", "2", "3", "4", "5"}},
		{"{ exit } loop", nil},
		{"4 -1 1 { } for", []string{"4", "3", "2", "1"}},
		{"0 0.5 1 { } for", []string{"0.0", "0.5", "1.0"}},
		{"2 1 1 { } for", nil},
		{"1 3 { 2 mul } repeat", []string{"8"}},
		{"1 0 { 2 mul } repeat", []string{"1"}},
		{"0 [1 2 3] { add } forall", []string{"6"}},
		{"0 (ab) { add } forall", []string{"195"}},
		{"0 << /a 1 /b 2 >> { exch pop add } forall", []string{"3"}},
		{"0 { 1 add dup 5 eq { exit } if } loop", []string{"5"}},
		{"0 [1 2 3 4] { dup 3 eq { exit } if add } forall", []string{"3", "3"}},
		{"{ { exit } loop 1 } stopped", []string{"1", "false"}},
		{"{ exit } stopped", []string{"true"}},
		{"{ 1 stop 2 } stopped", []string{"1", "true"}},
		{"{ 1 0 idiv } stopped", []string{"1", "0", "true"}},
		{"1 quit 2", []string{"1"}},
		{"(1 2 add) cvx exec", []string{"3"}},
		{"/x 5 def { //x } 0 get", []string{"5"}},
		{"/p { 1 2 add } def //p", []string{"{1 2 add}"}},
		{"/p { 1 2 add } def { //p } 0 get", []string{"{1 2 add}"}},
		{"countexecstack", []string{"1"}},
		{"5 array execstack length", []string{"1"}},
	})
}

func TestErrors(t *testing.T) {
	checkErrors(t, []errorCase{
		{"pop", Stackunderflow},
		{"1 add", Stackunderflow},
		{"1 0 idiv", Undefinedresult},
		{"1 0 div", Undefinedresult},
		{"1 0 mod", Undefinedresult},
		{"1 2 ]", Unmatchedmark},
		{"counttomark", Unmatchedmark},
		{"1 2 >>", Unmatchedmark},
		{"mark 1 >>", Rangecheck},
		{"[1 2 3] readonly 0 5 put", Invalidaccess},
		{"[1 2 3] noaccess 0 get", Invalidaccess},
		{"1 dict readonly /b 2 put", Invalidaccess},
		{"systemdict /foo 1 put", Invalidaccess},
		{"globaldict /x 1 dict put", Invalidaccess},
		{"exit", Invalidexit},
		{"foo", Undefined},
		{"//nosuchname", Undefined},
		{"<< >> /x get", Undefined},
		{"(abc) 1 add", Typecheck},
		{"1 dict null 1 put", Typecheck},
		{"1 array 5 get", Rangecheck},
		{"-1 array", Rangecheck},
		{"(abc) 0 256 put", Rangecheck},
		{"end", Dictstackunderflow},
		{"}", Syntaxerror},
		{"{ 1 2", Syntaxerror},
		{"save dup restore restore", Invalidrestore},
		{"save 1 array exch restore", Invalidrestore},
		{"(/no/such/file.ps) run", Undefinedfilename},
	})
}

func TestErrorLocation(t *testing.T) {
	intp := newTestInterpreter()
	err := intp.Exec("1 2 add\n3 foo")
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if e.Kind != Undefined || e.Command != "foo" || e.Line != 2 {
		t.Errorf("unexpected error %#v", e)
	}
	if intp.LastError() != e {
		t.Error("LastError does not match")
	}
}

func TestErrorDict(t *testing.T) {
	checkStacks(t, []stackCase{
		{"{ 1 0 idiv } stopped $error /errorname get",
			[]string{"1", "0", "true", "/undefinedresult"}},
		{"{ foo } stopped pop $error /command get", []string{"foo"}},
		{"{ foo } stopped pop $error /newerror get", []string{"true"}},
		{"errordict /undefined { pop (caught) } put foo 1", []string{"(caught)", "1"}},
	})
}

func TestErrorStacks(t *testing.T) {
	checkStacks(t, []stackCase{
		{"{ 1 2 foo } stopped pop $error /ostack get", []string{"1", "2", "[1 2]"}},
		{"{ foo } stopped pop $error /dstack get length", []string{"3"}},
		{"1 dict begin { foo } stopped pop $error /dstack get length", []string{"4"}},
		{"{ foo } stopped pop $error /estack get dup length 1 sub get",
			[]string{"--%stopped_push--"}},
	})
}

func TestStopOutsideStopped(t *testing.T) {
	intp := newTestInterpreter()
	err := intp.Exec("1 stop 2")
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if d := cmp.Diff([]string{"1"}, stackStrings(intp)); d != "" {
		t.Fatal(d)
	}
}

func TestStackLimits(t *testing.T) {
	intp := newTestInterpreter(WithConfig(Config{OperandStackLimit: 3}))
	err := intp.Exec("1 2 3 4")
	if kind, _ := KindOf(err); kind != Stackoverflow {
		t.Errorf("expected stackoverflow, got %v", err)
	}

	intp = newTestInterpreter(WithConfig(Config{DictStackLimit: 5}))
	err = intp.Exec("1 dict begin 1 dict begin 1 dict begin")
	if kind, _ := KindOf(err); kind != Dictstackoverflow {
		t.Errorf("expected dictstackoverflow, got %v", err)
	}
	if n := intp.DictStack().Len(); n != 3 {
		t.Errorf("dictionary stack depth %d, expected 3", n)
	}

	intp = newTestInterpreter()
	err = intp.Exec("/f { f 1 } def f")
	if kind, _ := KindOf(err); kind != Execstackoverflow {
		t.Errorf("expected execstackoverflow, got %v", err)
	}
	if n := intp.ExecStack().Len(); n != 0 {
		t.Errorf("execution stack has %d entries after error", n)
	}
}

func TestMaxOps(t *testing.T) {
	intp := newTestInterpreter(WithConfig(Config{MaxOps: 100}))
	err := intp.Exec("{} loop")
	if kind, _ := KindOf(err); kind != Timeout {
		t.Fatalf("expected timeout, got %v", err)
	}

	// the limit applies per top-level call
	err = intp.Exec("1 2 add")
	if err != nil {
		t.Fatal(err)
	}
}

func TestTimeoutNotCatchable(t *testing.T) {
	intp := newTestInterpreter(WithConfig(Config{MaxOps: 1000}))
	err := intp.Exec("{ {} loop } stopped")
	if kind, _ := KindOf(err); kind != Timeout {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestExecContext(t *testing.T) {
	intp := newTestInterpreter(WithConfig(Config{YieldInterval: 10}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := intp.ExecContext(ctx, "{} loop")
	if kind, _ := KindOf(err); kind != Timeout {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestInterrupt(t *testing.T) {
	intp := newTestInterpreter(WithConfig(Config{YieldInterval: 10}))
	intp.Interrupt(true)
	err := intp.Exec("{} loop")
	if kind, _ := KindOf(err); kind != Interrupt {
		t.Fatalf("expected interrupt, got %v", err)
	}

	intp.Interrupt(true)
	err = intp.Exec("{ {} loop } stopped")
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff([]string{"true"}, stackStrings(intp)); d != "" {
		t.Fatal(d)
	}
}

func TestInstallOperator(t *testing.T) {
	intp := newTestInterpreter()
	err := intp.InstallOperator("twice", func(intp *Interpreter) error {
		proc, err := intp.OperandStack().Pop()
		if err != nil {
			return err
		}
		for range 2 {
			if err := intp.Call(proc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	err = intp.Exec("0 { 1 add } twice")
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff([]string{"2"}, stackStrings(intp)); d != "" {
		t.Fatal(d)
	}

	// systemdict is read-only again
	err = intp.Exec("systemdict /twice 1 put")
	if kind, _ := KindOf(err); kind != Invalidaccess {
		t.Errorf("expected invalidaccess, got %v", err)
	}
}

func TestPanicInOperator(t *testing.T) {
	intp := newTestInterpreter()
	err := intp.InstallOperator("boom", func(*Interpreter) error {
		panic("boom")
	})
	if err != nil {
		t.Fatal(err)
	}
	err = intp.Exec("boom")
	if kind, _ := KindOf(err); kind != Internalerror {
		t.Fatalf("expected internalerror, got %v", err)
	}
}

func TestLoadDrive(t *testing.T) {
	intp := newTestInterpreter()
	if err := intp.Load(strings.NewReader("1 2 add")); err != nil {
		t.Fatal(err)
	}
	if err := intp.Drive(); err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff([]string{"3"}, stackStrings(intp)); d != "" {
		t.Fatal(d)
	}
}

func TestRun(t *testing.T) {
	intp := newTestInterpreter()
	if err := intp.Exec("/f { 3 4 add } def"); err != nil {
		t.Fatal(err)
	}
	if err := intp.Run("f"); err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff([]string{"7"}, stackStrings(intp)); d != "" {
		t.Fatal(d)
	}
}

func TestRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.ps")
	err := os.WriteFile(path, []byte("/r 3 4 add def\n"), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	intp := newTestInterpreter()
	err = intp.Exec(psString([]byte(path)) + " run r")
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff([]string{"7"}, stackStrings(intp)); d != "" {
		t.Error(d)
	}
}

func TestRunClosesFile(t *testing.T) {
	for _, body := range []string{
		"/f currentfile def\nstop\n(not reached)\n",
		"/f currentfile def\n}\n",
	} {
		path := filepath.Join(t.TempDir(), "test.ps")
		err := os.WriteFile(path, []byte(body), 0o644)
		if err != nil {
			t.Fatal(err)
		}
		intp := newTestInterpreter()
		err = intp.Exec("{ " + psString([]byte(path)) + " run } stopped")
		if err != nil {
			t.Fatal(err)
		}
		if d := cmp.Diff([]string{"true"}, stackStrings(intp)); d != "" {
			t.Errorf("%q: %s", body, d)
		}
		f, ok, err := intp.vm.dictGet(intp.UserDict(), MakeName("f"))
		if err != nil || !ok || f.typ != TypeFile {
			t.Fatalf("%q: file not recorded: %v", body, err)
		}
		if !f.file().Closed() {
			t.Errorf("%q: file still open", body)
		}
	}
}

func TestCheckStart(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CheckStart = true
	intp := newTestInterpreter(WithConfig(cfg))
	if err := intp.Exec("1 2 add"); !errors.Is(err, ErrNotPostScript) {
		t.Fatalf("expected ErrNotPostScript, got %v", err)
	}
	if err := intp.Exec("%!PS\n1 2 add\n"); err != nil {
		t.Fatal(err)
	}
	if err := intp.Exec("4"); err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff([]string{"3", "4"}, stackStrings(intp)); d != "" {
		t.Error(d)
	}
}

func TestDSC(t *testing.T) {
	intp := newTestInterpreter()
	err := intp.Exec("%!PS-Adobe-3.0\n%%Title: test\n1 2 add\n")
	if err != nil {
		t.Fatal(err)
	}
	want := []Comment{{Key: "Title", Value: "test"}}
	if d := cmp.Diff(want, intp.DSC); d != "" {
		t.Fatal(d)
	}
}

func TestOutput(t *testing.T) {
	type testCase struct {
		code string
		out  string
	}
	cases := []testCase{
		{"(hello) print", "hello"},
		{"1 =", "1\n"},
		{"(a) =", "a\n"},
		{"(a) ==", "(a)\n"},
		{"{1 add} ==", "{1 add}\n"},
		{"/add load ==", "--add--\n"},
		{"1 dict ==", "-dict-\n"},
		{"1 2 stack", "2\n1\n"},
		{"/a (b) pstack", "(b)\n/a\n"},
		{"{ foo } stopped pop handleerror",
			"%%[ Error: undefined; OffendingCommand: foo ]%%\n"},
	}
	for _, c := range cases {
		buf := &bytes.Buffer{}
		intp := NewInterpreter(WithOutput(buf))
		if err := intp.Exec(c.code); err != nil {
			t.Errorf("%q: %v", c.code, err)
			continue
		}
		if got := buf.String(); got != c.out {
			t.Errorf("%q: expected %q, got %q", c.code, c.out, got)
		}
	}
}

func TestEexec(t *testing.T) {
	plain := append([]byte{0, 0, 0, 0}, "userdict /secret 42 put currentfile closefile "...)
	code := "currentfile eexec\n" + hex.EncodeToString(eexecEncrypt(plain)) + "\nsecret"

	intp := newTestInterpreter()
	if err := intp.Exec(code); err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff([]string{"42"}, stackStrings(intp)); d != "" {
		t.Fatal(d)
	}
	if n := intp.DictStack().Len(); n != 3 {
		t.Errorf("dictionary stack depth %d, expected 3", n)
	}
}

func eexecEncrypt(plain []byte) []byte {
	r := uint16(55665)
	res := make([]byte, len(plain))
	for i, p := range plain {
		c := p ^ byte(r>>8)
		r = (uint16(c)+r)*52845 + 22719
		res[i] = c
	}
	return res
}

func FuzzStrings(f *testing.F) {
	f.Add("hello world")
	f.Add("hello\nworld")
	f.Add("hello\rworld")
	f.Add("hello\r\nworld")
	f.Add("hello\n\rworld")
	f.Add("hello\\world")
	f.Add("hello(world(")
	f.Add("hello(world)")
	f.Add("hello)world(")
	f.Add("hello)world)")
	f.Add("\x00\x7f\xff")
	f.Fuzz(func(t *testing.T, a string) {
		intp := newTestInterpreter()
		err := intp.Exec(psString([]byte(a)))
		if err != nil {
			t.Fatal(err)
		}
		vals := intp.OperandStack().Values()
		if len(vals) != 1 {
			t.Fatalf("len(vals): %d != 1", len(vals))
		}
		if s := vals[0].Text(); s != a {
			t.Fatalf("vals[0]: %q != %q", s, a)
		}
	})
}
