//go:build linux

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/msantos/unpacker/die"
	"github.com/msantos/unpacker/dirent"
	"github.com/msantos/unpacker/hexdump"
	"github.com/msantos/unpacker/walker"
)

var version = "0.1.0"

// Exit statuses.
const (
	exitFstat    = 17
	exitRead     = 19
	exitGetdents = 20
)

type stateT struct {
	paths    []string
	oflags   int
	readFifo bool
	log      *zap.Logger
}

func args() *stateT {
	flag.CommandLine.Init(os.Args[0], flag.ContinueOnError)

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, `%s v%s
Usage: %s [options] <path|-> <...>

Dumps the raw records returned by getdents64 for directories and the
contents of regular files.

Options:
`, path.Base(os.Args[0]), version, os.Args[0])
		flag.PrintDefaults()
	}

	oflags := flag.Int("o", unix.O_RDONLY, "raw open(2) flags")
	directory := flag.Bool("d", false, "open with O_DIRECTORY")
	nofollow := flag.Bool("s", false, "open with O_NOFOLLOW")
	readFifo := flag.Bool("p", false, "dump the contents of FIFOs")
	verbose := flag.Bool("verbose", false, "debug output")

	if err := flag.CommandLine.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(die.ExitUsage)
	}

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(die.ExitUsage)
	}

	state := &stateT{
		paths:    flag.Args(),
		oflags:   *oflags | unix.O_CLOEXEC,
		readFifo: *readFifo,
		log:      zap.NewNop(),
	}
	if *directory {
		state.oflags |= unix.O_DIRECTORY
	}
	if *nofollow {
		state.oflags |= unix.O_NOFOLLOW
	}

	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			die.Pdie(die.ExitFatal, "logger", err)
		}
		state.log = l
		walker.SetLogger(l)
	}

	return state
}

func main() {
	defer die.Recover()

	state := args()
	defer func() { _ = state.log.Sync() }()

	for _, name := range state.paths {
		fd := 0
		if name != "-" {
			var err error
			fd, err = unix.Open(name, state.oflags, 0)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error opening %s; %s\n", name, err)
				continue
			}
		}

		var st unix.Stat_t
		if err := unix.Fstat(fd, &st); err != nil {
			die.Die(exitFstat, "Can't fstat fd#%d; %s", fd, err)
		}

		state.log.Debug("open", zap.String("path", name), zap.Int("fd", fd),
			zap.Uint32("mode", st.Mode))

		switch st.Mode & unix.S_IFMT {
		case unix.S_IFDIR:
			state.dir(name, fd)
		case unix.S_IFREG:
			state.file(name, fd)
		case unix.S_IFIFO:
			if state.readFifo {
				state.file(name, fd)
				break
			}
			fallthrough
		default:
			fmt.Fprintf(os.Stderr, "skipping %s, neither dir nor plain file\n", name)
		}

		if fd != 0 {
			if err := unix.Close(fd); err != nil {
				fmt.Fprintf(os.Stderr, "Error closing %s; %s\n", name, err)
			}
		}
	}
}

func (state *stateT) file(name string, fd int) {
	buf := make([]byte, 4096)
	var addr int64
	for {
		n, err := unix.Read(fd, buf)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			if addr == 0 {
				die.Die(exitRead, "Error from read of %s; %s", name, err)
			}
			return
		}
		if n == 0 {
			return
		}
		hexdump.Dump(os.Stdout, buf[:n], addr, 32)
		addr += int64(n)
	}
}

func (state *stateT) dir(name string, fd int) {
	buf := make([]byte, 8192)
	fmt.Printf("Dir fd=%d name=%s\n", fd, name)

	var addr int64
	for {
		n, err := dirent.Read(fd, buf)
		if err != nil {
			die.Die(exitGetdents, "Error from getdents on %s: %s", name, err)
		}
		if n == 0 {
			return
		}

		entries, residue, err := dirent.Parse(buf[:n])
		if err != nil {
			state.log.Debug("parse", zap.String("path", name), zap.Error(err))
		}

		for _, e := range entries {
			ra := addr + int64(e.Offset)
			fmt.Printf("%10.7x\n", ra)
			hexdump.Dump(os.Stdout, e.Record, ra, 16)

			fmt.Printf("\tname:   %q [%d]\n", e.Name, len(e.Name)+1)
			fmt.Printf("\tinode:  %d\n", e.Ino)
			fmt.Printf("\thash:   %x   (telldir)\n", e.Off)
			fmt.Printf("\treclen: %x\n", e.Reclen)
			fmt.Printf("\ttype:   %s (%#.2x)\n", dirent.TypeName(e.Type), e.Type)

			if e.NameEnd < len(e.Record) {
				hexdump.Dump(os.Stdout, e.Record[e.NameEnd:], ra+int64(e.NameEnd), 16)
			}
			fmt.Println()
		}

		if len(residue) > 0 {
			fmt.Println("Residue:")
			hexdump.Dump(os.Stdout, residue, addr+int64(n-len(residue)), 16)
		}
		fmt.Println("-----------")

		addr += int64(n)
	}
}
