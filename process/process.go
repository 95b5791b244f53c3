// Package process reads process state from procfs(5).
package process

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Procfs is the default mount point for procfs filesystems. The default
// mountpoint can be changed by setting the PROC environment variable:
//
//	export PROC=/tmp/proc
const Procfs = "/proc"

// Process is the view of one process in procfs.
type Process interface {
	Pid() int
	Children() ([]int, error)
	Stat() (*Stat, error)
}

// PID is the relationship of a process to its parent.
type PID struct {
	Pid  int
	PPid int
}

var (
	// ErrProcNotMounted is returned if /proc is not mounted or is
	// not a procfs filesystem.
	ErrProcNotMounted = errors.New("procfs not mounted")

	// ErrParseFailProcStat is returned if /proc/<pid>/stat is
	// malformed.
	ErrParseFailProcStat = errors.New("unable to parse stat")

	// ErrSearch is returned if the process does not exist.
	ErrSearch = errors.New("process not found")

	// ErrStrategy is returned for an unknown snapshot strategy.
	ErrStrategy = errors.New("unknown snapshot strategy")
)

func getenv(s, def string) string {
	v := os.Getenv(s)
	if v == "" {
		return def
	}
	return v
}

// Opt is the configuration for New.
type Opt struct {
	procfs   string
	pid      int
	snapshot SnapshotStrategy
}

// Option sets a configuration value.
type Option func(*Opt)

// WithPid sets the process. Default: the current process.
func WithPid(pid int) Option {
	return func(o *Opt) {
		o.pid = pid
	}
}

// WithProcfs sets the procfs mount point.
func WithProcfs(procfs string) Option {
	return func(o *Opt) {
		o.procfs = procfs
	}
}

// WithStrategy sets the method for listing subprocesses.
func WithStrategy(snapshot SnapshotStrategy) Option {
	return func(o *Opt) {
		o.snapshot = snapshot
	}
}

// New returns the procfs view of a process. It returns an error if
// /proc is not mounted or is not a procfs filesystem.
func New(opts ...Option) (Process, error) {
	o := &Opt{
		pid:    os.Getpid(),
		procfs: getenv("PROC", Procfs),
	}

	for _, opt := range opts {
		opt(o)
	}

	procfs, err := procfsPath(o.procfs)
	if err != nil {
		return nil, err
	}

	ps := &Ps{
		pid:      o.pid,
		procfs:   procfs,
		snapshot: o.snapshot,
	}

	switch o.snapshot {
	case SnapshotPs:
		return ps, nil
	case SnapshotChildren:
		if !childrenSupported(procfs) {
			return nil, fmt.Errorf("%s: %w", o.snapshot, ErrStrategy)
		}
		return &ProcChildren{Ps: ps}, nil
	case SnapshotAny:
		if childrenSupported(procfs) {
			return &ProcChildren{Ps: ps}, nil
		}
		return ps, nil
	}

	return nil, fmt.Errorf("%s: %w", o.snapshot, ErrStrategy)
}

func procfsPath(path string) (string, error) {
	procfs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	if err := isProcMounted(procfs); err != nil {
		return "", fmt.Errorf("%s: %w", procfs, err)
	}
	return procfs, nil
}

func isProcMounted(procfs string) error {
	var buf unix.Statfs_t
	if err := unix.Statfs(procfs, &buf); err != nil {
		return err
	}
	if buf.Type != unix.PROC_SUPER_MAGIC {
		return ErrProcNotMounted
	}
	return nil
}

func exists(procfs string, pid int) bool {
	_, err := os.Stat(fmt.Sprintf("%s/%d", procfs, pid))
	return err == nil
}

// Snapshot scans the process table in procfs.
func Snapshot(procfs string) (p []PID, err error) {
	matches, err := filepath.Glob(
		fmt.Sprintf("%s/[0-9]*/stat", procfs),
	)
	if err != nil {
		return p, err
	}
	for _, name := range matches {
		st, err := readStat(name)
		if err != nil {
			continue
		}
		p = append(p, PID{Pid: st.Pid, PPid: st.PPid})
	}
	return p, nil
}
