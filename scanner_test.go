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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func tokenString(tok token) string {
	switch tok.kind {
	case tokNumber:
		return tok.obj.String()
	case tokString:
		return psString(tok.text)
	case tokLiteralName:
		return "/" + string(tok.text)
	case tokImmediateName:
		return "//" + string(tok.text)
	case tokProcBegin:
		return "{"
	case tokProcEnd:
		return "}"
	default:
		return string(tok.text)
	}
}

func TestScanToken(t *testing.T) {
	in := `
	% this is a comment
	123
	-9
	1e6
	-1.
	.5
	+3
	2#1000
	16#FF
	36#Z
	1#0
	(ABC)
	ABC
	/ABC
	23A
	23E1
	23#1
	//ABC
	{ }
	[ ]
	<< >>
	<4142>
	`
	exp := []string{
		"123",
		"-9",
		"1e+06",
		"-1.0",
		"0.5",
		"3",
		"8",
		"255",
		"35",
		"1#0",
		"(ABC)",
		"ABC",
		"/ABC",
		"23A",
		"230.0",
		"1",
		"//ABC",
		"{", "}",
		"[", "]",
		"<<", ">>",
		"(AB)",
	}
	s := newScanner(strings.NewReader(in))
	var got []string
	for {
		tok, err := s.scanToken()
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatal(err)
		}
		got = append(got, tokenString(tok))
	}
	if d := cmp.Diff(exp, got); d != "" {
		t.Errorf("unexpected tokens: %s", d)
	}
}

func TestScanNotNumbers(t *testing.T) {
	for _, in := range []string{"Inf", "+Inf", "NaN", "0x10", "1_000", "1e999", "-", "."} {
		s := newScanner(strings.NewReader(in))
		tok, err := s.scanToken()
		if err != nil {
			t.Fatal(err)
		}
		if tok.kind != tokName {
			t.Errorf("%q: got %s, expected a name", in, tokenString(tok))
		}
	}
}

func TestScanTokenLine(t *testing.T) {
	s := newScanner(strings.NewReader("a\nb\r\nc\rd"))
	var lines []int
	for {
		tok, err := s.scanToken()
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatal(err)
		}
		lines = append(lines, tok.line)
	}
	if d := cmp.Diff([]int{1, 2, 3, 4}, lines); d != "" {
		t.Error(d)
	}
}

func TestScanSyntaxErrors(t *testing.T) {
	for _, in := range []string{")", "> ", "(abc", "<12", "<~abc", "<1g>"} {
		s := newScanner(strings.NewReader(in))
		_, err := s.scanToken()
		if kind, _ := KindOf(err); kind != Syntaxerror {
			t.Errorf("%q: expected syntaxerror, got %v", in, err)
		}
	}
}

func TestScanString(t *testing.T) {
	exp := "A(BC))\n\r\t\b\f\\DE\n%*!&}^"
	r := strings.NewReader(`(A(BC)\)\
\n\r\t\b\f\\\D\105
%*!&}^)`)
	s := newScanner(r)
	o, err := s.ReadString()
	if err != nil {
		t.Fatal(err)
	}
	if string(o) != exp {
		t.Errorf("expected %q, got %q", exp, o)
	}
}

func TestScanString2(t *testing.T) {
	r := strings.NewReader("()")
	s := newScanner(r)
	o, err := s.ReadString()
	if err != nil {
		t.Fatal(err)
	}
	if string(o) != "" {
		t.Errorf("expected empty string, got %q", o)
	}
}

func TestScanString3(t *testing.T) {
	for _, nl := range []string{"\n", "\r", "\r\n"} {
		r := strings.NewReader("(A\\" + nl + "B" + nl + "C)")
		s := newScanner(r)
		o, err := s.ReadString()
		if err != nil {
			t.Fatal(err)
		}
		if string(o) != "AB\nC" {
			t.Errorf("expected %q, got %q", "AB\nC", o)
		}
	}
}

func TestScanString5(t *testing.T) {
	exp := string([]byte{1, 2, 3, 0, '4', 0o377})
	r := strings.NewReader(`(\1\02\003\0004\777)`)
	s := newScanner(r)
	o, err := s.ReadString()
	if err != nil {
		t.Fatal(err)
	}
	if string(o) != exp {
		t.Errorf("expected %q, got %q", exp, o)
	}
}

func TestScanHexString(t *testing.T) {
	type testCase struct {
		in  string
		out []byte
	}
	cases := []testCase{
		{"<901fa>", []byte{0x90, 0x1f, 0xa0}},
		{"<>", nil},
		{"< 41 4 2 >", []byte{0x41, 0x42}},
	}
	for _, c := range cases {
		s := newScanner(strings.NewReader(c.in))
		o, err := s.ReadHexString()
		if err != nil {
			t.Fatal(err)
		}
		if string(o) != string(c.out) {
			t.Errorf("%q: expected %q, got %q", c.in, c.out, o)
		}
	}
}

func TestBase85String(t *testing.T) {
	in := `<~z!<N?+"T~>`
	out := []byte{0, 0, 0, 0, 1, 2, 3, 4, 5}
	s := newScanner(strings.NewReader(in))
	o, err := s.ReadBase85String()
	if err != nil {
		t.Fatal(err)
	}
	if string(o) != string(out) {
		t.Errorf("expected %q, got %q", out, o)
	}
}

func TestLineCol(t *testing.T) {
	r := strings.NewReader("1\n12\r123\r\n\n1\n")
	s := newScanner(r)
	for {
		b, err := s.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatal(err)
		}
		switch b {
		case '1':
			if s.Col != 1 {
				t.Errorf("expected col 1, got %d", s.Col)
			}
		case '2':
			if s.Col != 2 {
				t.Errorf("expected col 2, got %d", s.Col)
			}
		case '3':
			if s.Col != 3 {
				t.Errorf("expected col 3, got %d", s.Col)
			}
		}
	}
	if s.Line != 5 {
		t.Errorf("expected line 5, got %d", s.Line)
	}
}

func TestStructuredComments(t *testing.T) {
	in := "%!PS\n%%Title: a\n%%+ b\n%%EndComments\n1"
	s := newScanner(strings.NewReader(in))
	tok, err := s.scanToken()
	if err != nil {
		t.Fatal(err)
	}
	if tokenString(tok) != "1" {
		t.Errorf("unexpected token %s", tokenString(tok))
	}
	want := []Comment{
		{Key: "Title", Value: "a b"},
		{Key: "EndComments", Value: ""},
	}
	if d := cmp.Diff(want, s.DSC); d != "" {
		t.Error(d)
	}
}
