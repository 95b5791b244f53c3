//go:build linux

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/msantos/unpacker/buildenv"
	"github.com/msantos/unpacker/die"
	"github.com/msantos/unpacker/layout"
	"github.com/msantos/unpacker/walker"
)

var version = "0.1.0"

// Mount flags from <sys/statvfs.h>. Not all of them are exported by
// x/sys/unix.
const (
	stRdonly      = 0x0001
	stNosuid      = 0x0002
	stNodev       = 0x0004
	stNoexec      = 0x0008
	stSynchronous = 0x0010
	stMandlock    = 0x0040
	stWrite       = 0x0080
	stAppend      = 0x0100
	stImmutable   = 0x0200
	stNoatime     = 0x0400
	stNodiratime  = 0x0800
	stRelatime    = 0x1000
)

var mountFlags = []struct {
	name  string
	value uint64
}{
	{"ST_RDONLY", stRdonly},
	{"ST_NOSUID", stNosuid},
	{"ST_NODEV", stNodev},
	{"ST_NOEXEC", stNoexec},
	{"ST_SYNCHRONOUS", stSynchronous},
	{"ST_MANDLOCK", stMandlock},
	{"ST_WRITE", stWrite},
	{"ST_APPEND", stAppend},
	{"ST_IMMUTABLE", stImmutable},
	{"ST_NOATIME", stNoatime},
	{"ST_NODIRATIME", stNodiratime},
	{"ST_RELATIME", stRelatime},
}

func formatFlags(v uint64) string {
	var names []string
	for _, f := range mountFlags {
		if v&f.value != 0 {
			names = append(names, f.name)
			v &^= f.value
		}
	}
	if v != 0 {
		names = append(names, fmt.Sprintf("%#x", v))
	}
	if len(names) == 0 {
		return "0"
	}
	return strings.Join(names, "|")
}

func run(args []string, stdout, stderr io.Writer) int {
	name := path.Base(os.Args[0])
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, `%s v%s
Usage: %s [options] <path> <...>

Prints the layout of struct statfs and the values returned for each path.

Options:
`, name, version, name)
		fs.PrintDefaults()
	}

	listFlags := fs.Bool("flags", false, "list the mount flag constants")
	verbose := fs.Bool("verbose", false, "debug output")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return die.ExitUsage
	}

	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintln(stderr, "logger:", err)
			return die.ExitFatal
		}
		defer func() { _ = l.Sync() }()
		walker.SetLogger(l)
		layout.SetLogger(l)
	}

	if *listFlags {
		for _, f := range mountFlags {
			fmt.Fprintf(stdout, "\t%s=%#x\n", f.name, f.value)
		}
	}

	l, err := layout.Lookup("statfs")
	if err != nil {
		fmt.Fprintln(stderr, "statfs:", err)
		return die.ExitFatal
	}

	r, err := walker.Walk(l,
		walker.WithOutput(stdout),
		walker.WithBuildEnv(buildenv.String("\n#   ")),
	)
	if err != nil {
		fmt.Fprintln(stderr, "statfs:", err)
		return die.ExitFatal
	}

	status := 0
	for _, name := range fs.Args() {
		var st unix.Statfs_t
		if err := unix.Statfs(name, &st); err != nil {
			fmt.Fprintf(stderr, "statfs %s; %s\n", name, err)
			status = 1
			continue
		}

		raw := unsafe.Slice((*byte)(unsafe.Pointer(&st)), unsafe.Sizeof(st))
		values, err := r.Decode(raw, buildenv.Order())
		if err != nil {
			die.Panic(die.ExitFault, err)
		}

		fmt.Fprintf(stdout, "\n%s:\n", name)
		for _, v := range values {
			fmt.Fprintf(stdout, "\t%-12s %s\n", v.Name, v)
		}
		if f, ok := walker.ByName(values)["flags"]; ok {
			fmt.Fprintf(stdout, "\t%-12s %s\n", "mount flags", formatFlags(f.Uint()))
		}
	}

	return status
}

func main() {
	defer die.Recover()

	if status := run(os.Args[1:], os.Stdout, os.Stderr); status != 0 {
		os.Exit(status)
	}
}
