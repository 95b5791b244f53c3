package main

import (
	"flag"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/msantos/unpacker/buildenv"
	"github.com/msantos/unpacker/die"
	"github.com/msantos/unpacker/layout"
	"github.com/msantos/unpacker/sxbuf"
	"github.com/msantos/unpacker/walker"
)

var version = "0.1.0"

type stateT struct {
	names    []string
	list     bool
	files    []string
	btf      bool
	btfFile  string
	strip    string
	overlap  bool
	wrap     int
	buildenv bool
	color    bool
	verbose  bool
}

type fileList []string

func (f *fileList) String() string {
	return strings.Join(*f, ",")
}

func (f *fileList) Set(s string) error {
	*f = append(*f, s)
	return nil
}

func args() *stateT {
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, `%s v%s
Usage: %s [options] <name> <...>

Prints the layout of each named record and a decode descriptor for it.

Options:
`, path.Base(os.Args[0]), version, os.Args[0])
		flag.PrintDefaults()
	}

	var files fileList

	list := flag.Bool("list", false, "list the built-in tables")
	flag.Var(&files, "f", "load tables from a YAML file (may be repeated)")
	btf := flag.Bool("btf", false, "look up names in the running kernel's BTF")
	btfFile := flag.String("btf-file", "", "look up names in a BTF or ELF file")
	strip := flag.String("strip", "", "remove prefix from field names in the descriptor")
	overlap := flag.Bool("overlap", false, "allow fields to overlap (BTF unions always do)")
	wrap := flag.Int("wrap", walker.DefaultWrap, "wrap the field name list at column")
	env := flag.Bool("buildenv", true, "append the build environment")
	color := flag.Bool("color", true, "style headers when writing to a terminal")
	verbose := flag.Bool("verbose", false, "debug output")

	flag.Parse()

	if !*list && flag.NArg() < 1 {
		flag.Usage()
		os.Exit(die.ExitUsage)
	}

	return &stateT{
		names:    flag.Args(),
		list:     *list,
		files:    files,
		btf:      *btf || *btfFile != "",
		btfFile:  *btfFile,
		strip:    *strip,
		overlap:  *overlap,
		wrap:     *wrap,
		buildenv: *env,
		color:    *color && term.IsTerminal(int(os.Stdout.Fd())),
		verbose:  *verbose,
	}
}

func run(state *stateT) int {

	if state.verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintln(os.Stderr, "logger:", err)
			return die.ExitFatal
		}
		defer func() { _ = l.Sync() }()
		sxbuf.SetLogger(l)
		walker.SetLogger(l)
		layout.SetLogger(l)
	}

	if state.list {
		for _, name := range layout.Names() {
			fmt.Println(name)
		}
		return 0
	}

	tables := make(map[string]walker.Layout)
	for _, file := range state.files {
		layouts, err := layout.LoadFile(file)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return die.ExitUsage
		}
		for _, l := range layouts {
			tables[l.Name] = l
		}
	}

	var kernel *layout.Kernel
	if state.btf {
		var opts []layout.KernelOption
		if state.btfFile != "" {
			opts = append(opts, layout.WithBTFFile(state.btfFile))
		}
		k, err := layout.NewKernel(opts...)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return die.ExitUnavailable
		}
		kernel = k
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

	status := 0
	for _, name := range state.names {
		l, err := state.lookup(name, tables, kernel)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			status = 1
			continue
		}

		if state.strip != "" {
			l.StripPrefix = state.strip
		}

		fmt.Println()
		if state.color {
			fmt.Println(title.Render(l.Name))
		}

		opts := []walker.Option{walker.WithWrap(state.wrap)}
		if state.overlap {
			opts = append(opts, walker.WithAllowOverlap(true))
		}
		if state.buildenv {
			opts = append(opts, walker.WithBuildEnv(buildenv.String("\n#   ")))
		}

		if _, err := walker.Walk(l, opts...); err != nil {
			fmt.Fprintln(os.Stderr, err)
			status = 1
		}
	}

	return status
}

func main() {
	defer die.Recover()

	if status := run(args()); status != 0 {
		os.Exit(status)
	}
}

func (state *stateT) lookup(name string, tables map[string]walker.Layout, k *layout.Kernel) (walker.Layout, error) {
	if l, ok := tables[name]; ok {
		return l, nil
	}
	if k != nil {
		return k.Layout(name)
	}
	return layout.Lookup(name)
}
