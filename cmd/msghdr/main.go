//go:build linux

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/msantos/unpacker/buildenv"
	"github.com/msantos/unpacker/die"
	"github.com/msantos/unpacker/hexdump"
	"github.com/msantos/unpacker/layout"
	"github.com/msantos/unpacker/walker"
)

var version = "0.1.0"

func bytesOf[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

// show prints the offset, size and value of each field of the record
// followed by its raw bytes.
func show(w io.Writer, name string, raw []byte) {
	l, err := layout.Lookup(name)
	if err != nil {
		die.Panic(die.ExitFault, err)
	}

	r, err := walker.Walk(l, walker.WithOutput(io.Discard))
	if err != nil {
		die.Panic(die.ExitFault, err)
	}

	values, err := r.Decode(raw, buildenv.Order())
	if err != nil {
		die.Panic(die.ExitFault, err)
	}

	fields := make(map[string]walker.Field, len(r.Fields))
	for _, f := range r.Fields {
		fields[f.Name] = f
	}

	fmt.Fprintln(w, name)
	for _, v := range values {
		f := fields[v.Field]
		fmt.Fprintf(w, "\t%d\t%d\t%s=%s\n", f.Offset, f.Size, v.Name, v)
	}
	fmt.Fprintf(w, "\t(%d total size)\n", r.Size)
	hexdump.Rows(w, raw)
	fmt.Fprintln(w)
}

func main() {
	defer die.Recover()

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, `%s v%s
Usage: %s

Prints the layout and contents of struct iovec and struct msghdr.

Options:
`, path.Base(os.Args[0]), version, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	var iov unix.Iovec
	show(os.Stdout, "iovec", bytesOf(&iov))

	hello := []byte("Hello world")
	iov.Base = &hello[0]
	iov.SetLen(len(hello))
	show(os.Stdout, "iovec", bytesOf(&iov))
	runtime.KeepAlive(hello)

	var msg unix.Msghdr
	show(os.Stdout, "msghdr", bytesOf(&msg))
}
