package waitx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/msantos/unpacker/process"
)

// ErrSpawn is returned when the child cannot be started.
var ErrSpawn = errors.New("unable to start child")

// Waiter holds the configuration of one exercise.
type Waiter struct {
	mode      Mode
	options   uint32
	siginfo   bool
	rusage    bool
	status    bool
	subreaper bool
	reap      bool

	argv  []string
	env   []string
	child ChildSpec
}

// WaiterOption configures a Waiter.
type WaiterOption func(*Waiter)

// WithMode sets the wait call. Default: Wait.
func WithMode(m Mode) WaiterOption {
	return func(w *Waiter) {
		w.mode = m
	}
}

// WithOptions sets the option bits passed to the wait call.
func WithOptions(options uint32) WaiterOption {
	return func(w *Waiter) {
		w.options = options
	}
}

// WithSiginfo requests siginfo from the waitid calls. Default: true.
func WithSiginfo(b bool) WaiterOption {
	return func(w *Waiter) {
		w.siginfo = b
	}
}

// WithRusage requests resource usage from wait3, wait4 and waitid5.
// Default: true.
func WithRusage(b bool) WaiterOption {
	return func(w *Waiter) {
		w.rusage = b
	}
}

// WithStatus reports the decoded exit status. Default: true.
func WithStatus(b bool) WaiterOption {
	return func(w *Waiter) {
		w.status = b
	}
}

// WithSubreaper marks the waiting process as the reaper of orphaned
// descendants of the child.
func WithSubreaper(b bool) WaiterOption {
	return func(w *Waiter) {
		w.subreaper = b
	}
}

// WithReap waits for any remaining children after the exercise.
// Default: true.
func WithReap(b bool) WaiterOption {
	return func(w *Waiter) {
		w.reap = b
	}
}

// WithCommand runs argv as the child instead of re-executing the
// current program.
func WithCommand(argv []string) WaiterOption {
	return func(w *Waiter) {
		w.argv = argv
	}
}

// WithEnv sets the environment of the child.
func WithEnv(env []string) WaiterOption {
	return func(w *Waiter) {
		w.env = env
	}
}

// WithChild configures the self re-exec child.
func WithChild(c ChildSpec) WaiterOption {
	return func(w *Waiter) {
		w.child = c
	}
}

// New returns a Waiter.
func New(opts ...WaiterOption) *Waiter {
	w := &Waiter{
		mode:    Wait,
		siginfo: true,
		rusage:  true,
		status:  true,
		reap:    true,
		env:     os.Environ(),
		child:   ChildSpec{Exit: DefaultExit, Sleep: DefaultSleep, Spin: DefaultSpin},
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Run starts the child, waits for it using the configured mode and
// returns the results. Failure of the wait call is part of the result;
// only failing to start the child returns an error. Cancelling ctx kills
// the child.
func (w *Waiter) Run(ctx context.Context) (*Result, error) {
	// The parent death signal is tied to the thread that forked.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if w.subreaper {
		if err := setSubreaper(); err != nil {
			return nil, fmt.Errorf("prctl(PR_SET_CHILD_SUBREAPER): %w", err)
		}
	}

	pid, err := w.spawn()
	if err != nil {
		return nil, err
	}

	r := &Result{
		Parent:  os.Getpid(),
		Child:   pid,
		Mode:    w.mode,
		Options: w.options,
	}

	Logger().Debug("spawn", zap.Int("pid", pid), zap.Stringer("mode", w.mode),
		zap.String("options", FormatOptions(w.options)))

	r.Before, r.BeforeErr = procStat(pid)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			Logger().Debug("cancel", zap.Int("pid", pid), zap.Error(ctx.Err()))
			_ = unix.Kill(pid, unix.SIGKILL)
		case <-done:
		}
	}()

	start := time.Now()
	w.wait(r)
	r.Elapsed = time.Since(start)

	Logger().Debug("wait",
		zap.Stringer("mode", w.mode),
		zap.Int("ret", r.Ret),
		zap.Error(r.Err),
		zap.Duration("elapsed", r.Elapsed),
	)

	r.After, r.AfterErr = procStat(pid)

	if w.reap {
		r.Reaped = reap()
		Logger().Debug("reap", zap.Ints("pids", r.Reaped))
	}

	return r, nil
}

func (w *Waiter) spawn() (int, error) {
	argv := w.argv
	env := w.env

	if len(argv) == 0 {
		exe, err := os.Executable()
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrSpawn, err)
		}
		argv = []string{exe}
		env = append(append([]string(nil), env...), ChildEnv+"="+w.child.String())
	}

	path := argv[0]
	if len(w.argv) > 0 {
		p, err := exec.LookPath(path)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrSpawn, err)
		}
		path = p
	}

	pid, err := syscall.ForkExec(path, argv, &syscall.ProcAttr{
		Env:   env,
		Files: []uintptr{0, 1, 2},
		Sys: &syscall.SysProcAttr{
			Pdeathsig: syscall.SIGKILL,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrSpawn, argv[0], err)
	}
	return pid, nil
}

func (w *Waiter) wait(r *Result) {
	var (
		ws   unix.WaitStatus
		ru   unix.Rusage
		info unix.Siginfo
	)

	rusage := func() *unix.Rusage {
		if w.rusage {
			return &ru
		}
		return nil
	}
	siginfo := func() *unix.Siginfo {
		if w.siginfo {
			return &info
		}
		return nil
	}

	options := int(int32(w.options))
	hasStatus, hasRusage, hasSiginfo := false, false, false

	switch w.mode {
	case Ignore:
		return
	case Wait:
		r.Ret, r.Err = wait4(-1, &ws, 0, nil)
		hasStatus = true
	case Waitpid:
		r.Ret, r.Err = wait4(r.Child, &ws, options, nil)
		hasStatus = true
	case Wait3:
		r.Ret, r.Err = wait4(-1, &ws, options, rusage())
		hasStatus, hasRusage = true, w.rusage
	case Wait4:
		r.Ret, r.Err = wait4(r.Child, &ws, options, rusage())
		hasStatus, hasRusage = true, w.rusage
	case Waitid:
		r.Err = waitid(r.Child, siginfo(), options, nil)
		hasSiginfo = w.siginfo
	case Waitid5:
		r.Err = waitid(r.Child, siginfo(), options, rusage())
		hasSiginfo, hasRusage = w.siginfo, w.rusage
	}

	r.Called = true
	if r.Err != nil {
		r.Ret = -1
		return
	}

	switch w.mode {
	case Waitid, Waitid5:
	default:
		r.HasPid = true
	}

	if hasStatus && w.status {
		r.Status = newStatus(ws)
	}
	if hasRusage {
		r.Rusage = &ru
	}
	if hasSiginfo {
		si, err := decodeSiginfo(&info)
		if err != nil {
			Logger().Debug("siginfo", zap.Error(err))
		}
		r.Siginfo = si
	}
}

func wait4(pid int, ws *unix.WaitStatus, options int, ru *unix.Rusage) (int, error) {
	for {
		wpid, err := unix.Wait4(pid, ws, options, ru)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return wpid, err
	}
}

func waitid(pid int, info *unix.Siginfo, options int, ru *unix.Rusage) error {
	for {
		err := unix.Waitid(unix.P_PID, pid, info, options, ru)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return err
	}
}

func procStat(pid int) (*process.Stat, error) {
	ps, err := process.New(process.WithPid(pid), process.WithStrategy(process.SnapshotPs))
	if err != nil {
		return nil, err
	}
	return ps.Stat()
}

// reap collects any remaining children.
func reap() []int {
	var pids []int
	for {
		pid, err := unix.Wait4(-1, nil, 0, nil)
		switch {
		case err == nil:
			pids = append(pids, pid)
		case errors.Is(err, unix.EINTR):
		default:
			return pids
		}
	}
}
