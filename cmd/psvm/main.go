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

// Psvm runs PostScript programs.
//
// Without file arguments, psvm reads PostScript code from standard input.
// If standard input is a terminal, the code is executed line by line and
// a prompt shows the depth of the operand stack.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"golang.org/x/term"

	"seehuhn.de/go/psvm"
)

func main() {
	configFile := flag.String("config", "", "read resource limits from this TOML `file`")
	verbosity := flag.Int("v", 0, "log verbosity (0 = errors only)")
	maxOps := flag.Int64("max-ops", 0, "stop after this many execution steps (0 = unlimited)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: psvm [options] [file.ps ...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	commonlog.Configure(*verbosity, nil)

	cfg := psvm.DefaultConfig()
	if *configFile != "" {
		var err error
		cfg, err = psvm.LoadConfig(*configFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "psvm:", err)
			os.Exit(1)
		}
	}
	if *maxOps > 0 {
		cfg.MaxOps = *maxOps
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	intp := psvm.NewInterpreter(psvm.WithConfig(cfg), psvm.WithOutput(out))
	defer intp.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		for range sig {
			intp.Interrupt(true)
		}
	}()

	if flag.NArg() > 0 {
		for _, fname := range flag.Args() {
			if err := runFile(intp, fname); err != nil {
				out.Flush()
				fmt.Fprintf(os.Stderr, "psvm: %s: %v\n", fname, err)
				os.Exit(1)
			}
		}
		return
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		if err := intp.Execute(os.Stdin); err != nil {
			out.Flush()
			fmt.Fprintln(os.Stderr, "psvm:", err)
			os.Exit(1)
		}
		return
	}
	repl(intp, out)
}

func runFile(intp *psvm.Interpreter, fname string) error {
	fd, err := os.Open(fname)
	if err != nil {
		return err
	}
	defer fd.Close()
	return intp.Execute(fd)
}

func repl(intp *psvm.Interpreter, out *bufio.Writer) {
	lines := bufio.NewScanner(os.Stdin)
	for {
		if n := intp.OperandStack().Len(); n > 0 {
			fmt.Fprintf(out, "PS<%d>", n)
		} else {
			fmt.Fprint(out, "PS>")
		}
		out.Flush()

		if !lines.Scan() {
			break
		}
		err := intp.Exec(lines.Text())
		if err == nil {
			continue
		}
		var e *psvm.Error
		if errors.As(err, &e) {
			fmt.Fprintf(out, "%%%%[ Error: %s; OffendingCommand: %s ]%%%%\n", e.Kind, e.Command)
		} else {
			fmt.Fprintln(out, "psvm:", err)
		}
	}
	fmt.Fprintln(out)
}
