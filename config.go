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
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config holds the resource limits of an interpreter.
// Zero values are replaced by the defaults.
type Config struct {
	OperandStackLimit int `toml:"operand_stack_limit"`
	ExecStackLimit    int `toml:"exec_stack_limit"`
	DictStackLimit    int `toml:"dict_stack_limit"`

	MaxArraySize  int `toml:"max_array_size"`
	MaxStringSize int `toml:"max_string_size"`
	MaxDictSize   int `toml:"max_dict_size"`

	// YieldInterval is the number of execution steps between checks for
	// interrupts and deadlines.
	YieldInterval int `toml:"yield_interval"`

	// MaxOps limits the number of execution steps per top-level call.
	// Zero means no limit.
	MaxOps int64 `toml:"max_ops"`

	// LegacyStringWrites makes in-place modifications of strings survive
	// restore.
	LegacyStringWrites bool `toml:"legacy_string_writes"`

	// CheckStart requires the first input passed to Load or Execute to
	// start with "%!".
	CheckStart bool `toml:"check_start"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		OperandStackLimit: 500,
		ExecStackLimit:    250,
		DictStackLimit:    20,
		MaxArraySize:      65536,
		MaxStringSize:     65535,
		MaxDictSize:       65535,
		YieldInterval:     5000,
	}
}

func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.OperandStackLimit <= 0 {
		c.OperandStackLimit = def.OperandStackLimit
	}
	if c.ExecStackLimit <= 0 {
		c.ExecStackLimit = def.ExecStackLimit
	}
	if c.DictStackLimit <= 0 {
		c.DictStackLimit = def.DictStackLimit
	}
	if c.MaxArraySize <= 0 {
		c.MaxArraySize = def.MaxArraySize
	}
	if c.MaxStringSize <= 0 {
		c.MaxStringSize = def.MaxStringSize
	}
	if c.MaxDictSize <= 0 {
		c.MaxDictSize = def.MaxDictSize
	}
	if c.YieldInterval <= 0 {
		c.YieldInterval = def.YieldInterval
	}
}

// ParseConfig reads a configuration in TOML format.  Settings which are
// not present keep their default values.
func ParseConfig(text string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(text, &cfg)
	if err != nil {
		return cfg, errors.Wrap(err, "parsing configuration")
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return cfg, errors.Errorf("unknown configuration key %q", undec[0].String())
	}
	cfg.fillDefaults()
	return cfg, nil
}

// LoadConfig reads a configuration file in TOML format.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, errors.Wrapf(err, "loading configuration from %s", path)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return cfg, errors.Errorf("%s: unknown configuration key %q", path, undec[0].String())
	}
	cfg.fillDefaults()
	return cfg, nil
}
