//go:build linux

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/msantos/unpacker/die"
	"github.com/msantos/unpacker/layout"
	"github.com/msantos/unpacker/walker"
	"github.com/msantos/unpacker/waitx"
)

var version = "0.1.0"

type stateT struct {
	mode      waitx.Mode
	options   uint32
	siginfo   bool
	rusage    bool
	status    bool
	child     waitx.ChildSpec
	subreaper bool
	reap      bool
	argv      []string
	verbose   bool
}

type modeValue struct {
	m *waitx.Mode
}

func (v modeValue) String() string {
	if v.m == nil {
		return waitx.Wait.String()
	}
	return v.m.String()
}

func (v modeValue) Set(s string) error {
	m, err := waitx.ParseMode(s)
	if err != nil {
		return err
	}
	*v.m = m
	return nil
}

func parseArgs(args []string, stderr io.Writer) (*stateT, error) {
	name := path.Base(os.Args[0])
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, `%s v%s
Usage: %s [options] [<command> <...>]

Starts a child and waits for it using one of the wait calls:
  %s

Without a command, the program runs itself as a child that spins, sleeps
and exits with the requested status.

Options:
`, name, version, name, strings.Join(waitx.Modes(), " "))
		fs.PrintDefaults()
	}

	mode := waitx.Wait
	fs.Var(modeValue{&mode}, "mode", "wait call (unique prefix of at least 4 characters)")

	bits := make([]*bool, len(waitx.Flags))
	for i, f := range waitx.Flags {
		bits[i] = fs.Bool(f.Name, false, f.Usage)
	}

	def := fs.Bool("default", false, "pass no option bits (default: wexited for waitid, none otherwise)")
	siginfo := fs.Bool("siginfo", true, "pass a siginfo buffer to waitid")
	rusage := fs.Bool("rusage", true, "pass an rusage buffer to wait3, wait4 and waitid5")
	status := fs.Bool("status", true, "decode the exit status")
	exit := fs.Int("exit", waitx.DefaultExit, "exit status of the child")
	sleep := fs.Duration("sleep", waitx.DefaultSleep, "time the child sleeps before exiting")
	spin := fs.Int("spin", waitx.DefaultSpin, "busy loop iterations run by the child")
	subreaper := fs.Bool("subreaper", false, "become the subreaper of the child's descendants")
	reap := fs.Bool("reap", true, "wait for remaining children before exiting")
	verbose := fs.Bool("verbose", false, "debug output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var options uint32
	for i, f := range waitx.Flags {
		if *bits[i] {
			options |= f.Value
		}
	}
	if options == 0 && !*def {
		options = waitx.DefaultOptions(mode)
	}

	return &stateT{
		mode:      mode,
		options:   options,
		siginfo:   *siginfo,
		rusage:    *rusage,
		status:    *status,
		child:     waitx.ChildSpec{Exit: *exit, Sleep: *sleep, Spin: *spin},
		subreaper: *subreaper,
		reap:      *reap,
		argv:      fs.Args(),
		verbose:   *verbose,
	}, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	state, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return die.ExitUsage
	}

	if state.verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintln(stderr, "logger:", err)
			return die.ExitFatal
		}
		defer func() { _ = l.Sync() }()
		waitx.SetLogger(l)
		walker.SetLogger(l)
		layout.SetLogger(l)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := waitx.New(
		waitx.WithMode(state.mode),
		waitx.WithOptions(state.options),
		waitx.WithSiginfo(state.siginfo),
		waitx.WithRusage(state.rusage),
		waitx.WithStatus(state.status),
		waitx.WithSubreaper(state.subreaper),
		waitx.WithReap(state.reap),
		waitx.WithCommand(state.argv),
		waitx.WithChild(state.child),
	)

	r, err := w.Run(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
		if errors.Is(err, waitx.ErrSpawn) {
			return die.ExitUnavailable
		}
		return die.ExitFatal
	}

	r.Print(stdout)
	return 0
}

func main() {
	if waitx.IsChild() {
		waitx.Child()
	}

	defer die.Recover()

	if status := run(os.Args[1:], os.Stdout, os.Stderr); status != 0 {
		os.Exit(status)
	}
}
