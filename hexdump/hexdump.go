// Package hexdump formats raw memory for the diagnostic dumpers.
package hexdump

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes b as hex and ASCII, width bytes per line. Lines are
// aligned to multiples of width: when addr is not aligned, the first line
// is indented so byte columns line up with the following lines.
//
//	    000010 |          00 00 00 00 2e 00 |       ...... |
func Dump(w io.Writer, b []byte, addr int64, width int) {
	if width <= 0 {
		width = 16
	}

	spad := int(addr % int64(width))
	dw := width - spad
	addr -= int64(spad)

	for o := 0; o < len(b); o, addr, spad, dw = o+dw, addr+int64(width), 0, width {
		line := b[o:min(o+dw, len(b))]
		epad := dw - len(line)

		var s strings.Builder
		fmt.Fprintf(&s, "%10.5x |%s", addr, strings.Repeat(" ", spad*3))
		for _, c := range line {
			fmt.Fprintf(&s, " %02x", c)
		}
		s.WriteString(strings.Repeat(" ", epad*3))
		s.WriteString(" | ")
		s.WriteString(strings.Repeat(" ", spad))
		for _, c := range line {
			s.WriteByte(printable(c))
		}
		s.WriteString(strings.Repeat(" ", epad))
		s.WriteString(" |\n")

		io.WriteString(w, s.String())
	}
}

// Sdump returns the output of Dump as a string.
func Sdump(b []byte, addr int64, width int) string {
	var s strings.Builder
	Dump(&s, b, addr, width)
	return s.String()
}

// Rows writes b eight bytes per line, each line prefixed by the offset of
// its first byte, followed by a line holding the total length.
//
//		0	48 65 6c 6c 6f 20 77 6f
//		8	72 6c 64
//		11
func Rows(w io.Writer, b []byte) {
	var s strings.Builder
	for i, c := range b {
		if i%8 == 0 {
			if i > 0 {
				s.WriteByte('\n')
			}
			fmt.Fprintf(&s, "\t%d\t", i)
		} else {
			s.WriteByte(' ')
		}
		fmt.Fprintf(&s, "%02x", c)
	}
	if len(b) > 0 {
		s.WriteByte('\n')
	}
	fmt.Fprintf(&s, "\t%d\n", len(b))
	io.WriteString(w, s.String())
}

func printable(c byte) byte {
	if c < 0x20 || c > 0x7e {
		return '.'
	}
	return c
}
