// Package waitx spawns a child process and collects it with one of the
// wait family of system calls, reporting everything the call returns.
package waitx

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects the wait system call.
type Mode int

const (
	Ignore Mode = iota
	Wait
	Waitpid
	Wait3
	Wait4
	Waitid
	Waitid5 // raw waitid syscall with rusage
)

var modeNames = [...]string{
	Ignore:  "ignore",
	Wait:    "wait",
	Waitpid: "waitpid",
	Wait3:   "wait3",
	Wait4:   "wait4",
	Waitid:  "waitid",
	Waitid5: "waitid5",
}

// ErrMode is returned for an unknown or ambiguous mode name.
var ErrMode = errors.New("invalid wait mode")

// MinPrefix is the shortest accepted abbreviation of a mode name.
const MinPrefix = 4

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode returns the mode named by s. Names may be abbreviated to
// MinPrefix characters; the first mode in the order wait, wait3, wait4,
// waitid, waitid5, waitpid, ignore that s abbreviates is chosen.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimLeft(s, "-"))
	if len(s) >= MinPrefix {
		for _, m := range []Mode{Wait, Wait3, Wait4, Waitid, Waitid5, Waitpid, Ignore} {
			if strings.HasPrefix(modeNames[m], s) {
				return m, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrMode, s)
}

// Modes returns the mode names.
func Modes() []string {
	return append([]string(nil), modeNames[:]...)
}
