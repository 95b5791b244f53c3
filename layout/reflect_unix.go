//go:build unix

package layout

import (
	"reflect"

	"golang.org/x/sys/unix"

	"github.com/msantos/unpacker/walker"
)

func init() {
	timeKinds[reflect.TypeOf(unix.Timespec{})] = walker.Timespec
	timeKinds[reflect.TypeOf(unix.Timeval{})] = walker.Timeval
}
