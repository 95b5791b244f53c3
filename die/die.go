// Package die terminates diagnostic tools on unrecoverable failures.
//
// Library code signals fatal defects (resource exhaustion, broken
// invariants) by panicking with a *Fault. Commands defer Recover in main
// to turn the fault into a message on stderr and an exit status.
package die

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Exit statuses shared by the tools.
const (
	ExitUsage       = 64 // EX_USAGE
	ExitUnavailable = 69 // EX_UNAVAILABLE
	ExitFault       = 88
	ExitOverflow    = 99
	ExitFatal       = 111
)

// Fault is a fatal defect raised with panic.
type Fault struct {
	Code int
	Err  error
}

func (f *Fault) Error() string {
	return f.Err.Error()
}

func (f *Fault) Unwrap() error {
	return f.Err
}

var (
	// Exit terminates the process. Replaced in tests.
	Exit = os.Exit

	// Stderr receives fatal messages.
	Stderr io.Writer = os.Stderr
)

// Panic raises a fault carrying the exit status.
func Panic(code int, err error) {
	panic(&Fault{Code: code, Err: err})
}

// Die prints the message to stderr and exits with the status.
func Die(code int, format string, a ...interface{}) {
	fmt.Fprintf(Stderr, format, a...)
	fmt.Fprintln(Stderr)
	Exit(code)
}

// Pdie prints the message followed by the error description and exits.
func Pdie(code int, msg string, err error) {
	Die(code, "%s: %s", msg, err)
}

// Recover converts a pending *Fault panic into Die. Other panics are
// re-raised.
//
//	defer die.Recover()
func Recover() {
	r := recover()
	if r == nil {
		return
	}

	err, ok := r.(error)
	if !ok {
		panic(r)
	}

	var fault *Fault
	if !errors.As(err, &fault) {
		panic(r)
	}

	Die(fault.Code, "%s", fault.Err)
}
