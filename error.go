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
	"errors"
	"fmt"
)

// ErrorKind identifies one of the standard PostScript errors.
type ErrorKind uint8

// These are the error kinds which can be signalled by the interpreter.
// The names follow section 8.1 of the PostScript Language Reference Manual.
const (
	Typecheck ErrorKind = iota + 1
	Rangecheck
	Stackoverflow
	Stackunderflow
	Execstackoverflow
	Dictstackoverflow
	Dictstackunderflow
	Undefined
	Undefinedresult
	Unmatchedmark
	Limitcheck
	Syntaxerror
	Invalidaccess
	Invalidexit
	Invalidrestore
	Undefinedfilename
	Undefinedresource
	Invalidfileaccess
	Invalidfont
	IOError
	Nocurrentpoint
	Securitycheck
	Interrupt
	Internalerror
	Timeout
	Dictfull
	VMerror
	Configurationerror

	numErrorKinds
)

var errorNames = [numErrorKinds]string{
	Typecheck:          "typecheck",
	Rangecheck:         "rangecheck",
	Stackoverflow:      "stackoverflow",
	Stackunderflow:     "stackunderflow",
	Execstackoverflow:  "execstackoverflow",
	Dictstackoverflow:  "dictstackoverflow",
	Dictstackunderflow: "dictstackunderflow",
	Undefined:          "undefined",
	Undefinedresult:    "undefinedresult",
	Unmatchedmark:      "unmatchedmark",
	Limitcheck:         "limitcheck",
	Syntaxerror:        "syntaxerror",
	Invalidaccess:      "invalidaccess",
	Invalidexit:        "invalidexit",
	Invalidrestore:     "invalidrestore",
	Undefinedfilename:  "undefinedfilename",
	Undefinedresource:  "undefinedresource",
	Invalidfileaccess:  "invalidfileaccess",
	Invalidfont:        "invalidfont",
	IOError:            "ioerror",
	Nocurrentpoint:     "nocurrentpoint",
	Securitycheck:      "securitycheck",
	Interrupt:          "interrupt",
	Internalerror:      "internalerror",
	Timeout:            "timeout",
	Dictfull:           "dictfull",
	VMerror:            "VMerror",
	Configurationerror: "configurationerror",
}

// String returns the PostScript name of the error, e.g. "typecheck".
func (k ErrorKind) String() string {
	if k == 0 || k >= numErrorKinds {
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
	return errorNames[k]
}

// Error is a PostScript error.
//
// The run loop fills in Command and Line before the error handler in
// errordict is invoked.
type Error struct {
	Kind    ErrorKind
	Msg     string
	Command string
	Line    int
}

func (err *Error) Error() string {
	msg := err.Kind.String()
	if err.Msg != "" {
		msg += ": " + err.Msg
	}
	if err.Command != "" {
		msg += " (offending command " + err.Command + ")"
	}
	return msg
}

// Is reports whether target is an *Error of the same kind.
// This allows errors.Is(err, &Error{Kind: Typecheck}).
func (err *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == err.Kind
}

// KindOf returns the kind of the PostScript error contained in err.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func (intp *Interpreter) e(kind ErrorKind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Control flow signals.  These travel through Go return values but are
// never delivered to PostScript code.
var (
	// errUnwound is returned by a nested run when exit or stop has
	// transferred control to a point below the run's starting depth.
	errUnwound = errors.New("execution stack unwound")

	// errQuit is the cause of the haltError produced by the quit operator.
	errQuit = errors.New("quit")

	// ErrStopped is returned to the host when stop is executed outside of
	// any stopped context and no error is pending.
	ErrStopped = errors.New("stop executed outside of a stopped context")
)

// haltError terminates all nested runs up to the host.
type haltError struct {
	cause error
}

func (h *haltError) Error() string {
	if h.cause == nil {
		return ErrStopped.Error()
	}
	return h.cause.Error()
}

func (h *haltError) Unwrap() error {
	return h.cause
}
