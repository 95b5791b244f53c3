// Package buildenv summarizes the environment a layout was produced in.
// Layouts differ by architecture, pointer size and byte order so every
// walk can be annotated with the values in effect.
package buildenv

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"strings"
	"unsafe"
)

// PointerSize is the size of a pointer in bytes.
const PointerSize = int(unsafe.Sizeof(uintptr(0)))

// ByteOrder reads and appends integers in a fixed byte order.
type ByteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// Order returns the byte order of the running program.
func Order() ByteOrder {
	return binary.NativeEndian
}

// Endian returns "little" or "big".
func Endian() string {
	if Order().Uint16([]byte{1, 0}) == 1 {
		return "little"
	}
	return "big"
}

// String returns one line per property, each preceded by nl. An empty nl
// is treated as a newline.
func String(nl string) string {
	if nl == "" {
		nl = "\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%sARCH: %s (%d-bit pointers, %s endian)",
		nl, runtime.GOARCH, PointerSize*8, Endian())
	fmt.Fprintf(&b, "%sOS: %s", nl, runtime.GOOS)
	fmt.Fprintf(&b, "%sGO: %s %s", nl, runtime.Version(), runtime.Compiler)
	if k := kernel(); k != "" {
		fmt.Fprintf(&b, "%sKERNEL: %s", nl, k)
	}
	return b.String()
}
