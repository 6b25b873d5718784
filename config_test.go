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
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(`
operand_stack_limit = 10
max_ops = 5000
legacy_string_writes = true
check_start = true
`)
	if err != nil {
		t.Fatal(err)
	}
	want := DefaultConfig()
	want.OperandStackLimit = 10
	want.MaxOps = 5000
	want.LegacyStringWrites = true
	want.CheckStart = true
	if d := cmp.Diff(want, cfg); d != "" {
		t.Error(d)
	}
}

func TestParseConfigErrors(t *testing.T) {
	for _, text := range []string{
		"no_such_setting = 1",
		"operand_stack_limit = \"many\"",
		"operand_stack_limit =",
	} {
		if _, err := ParseConfig(text); err == nil {
			t.Errorf("%q: expected an error", text)
		}
	}
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig("exec_stack_limit = 0")
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(DefaultConfig(), cfg); d != "" {
		t.Error(d)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "psvm.toml")
	err := os.WriteFile(path, []byte("dict_stack_limit = 8\n"), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DictStackLimit != 8 {
		t.Errorf("dict stack limit %d, expected 8", cfg.DictStackLimit)
	}

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Error("expected an error for a missing file")
	}
}
