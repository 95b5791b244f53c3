package waitx

import (
	"strings"

	"golang.org/x/sys/unix"
)

// Flag is a wait option bit.
type Flag struct {
	Name  string
	Value uint32
	Usage string
}

// Flags are the option bits accepted by the wait calls.
var Flags = []Flag{
	{"wall", unix.WALL, "wait for all children regardless of type (__WALL)"},
	{"wclone", unix.WCLONE, "wait for clone children only (__WCLONE)"},
	{"wcontinued", unix.WCONTINUED, "report continued children (WCONTINUED)"},
	{"wexited", unix.WEXITED, "report exited children (WEXITED)"},
	{"wnohang", unix.WNOHANG, "return immediately if no child has changed state (WNOHANG)"},
	{"wnothread", unix.WNOTHREAD, "do not wait for children of other threads (__WNOTHREAD)"},
	{"wnowait", unix.WNOWAIT, "leave the child waitable (WNOWAIT)"},
	{"wstopped", unix.WSTOPPED, "report stopped children (WSTOPPED)"},
	{"wuntraced", unix.WUNTRACED, "report stopped children (WUNTRACED)"},
}

// FormatOptions lists the names of the bits set in options.
func FormatOptions(options uint32) string {
	var names []string
	for _, f := range Flags {
		if options&f.Value != 0 {
			names = append(names, f.Name)
			options &^= f.Value
		}
	}
	if len(names) == 0 {
		return "0"
	}
	return strings.Join(names, "|")
}

// DefaultOptions returns the option bits used when none are requested:
// waitid requires one of WEXITED, WSTOPPED or WCONTINUED while wait4
// rejects them.
func DefaultOptions(m Mode) uint32 {
	switch m {
	case Waitid, Waitid5:
		return unix.WEXITED
	}
	return 0
}
