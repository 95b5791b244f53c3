package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ProcChildren lists subprocesses using the procfs(5) children file:
//
//	A space-separated list of child tasks of this task.  Each child task
//	is represented by its TID.
//
// The file is present if the kernel was compiled with
// CONFIG_PROC_CHILDREN enabled. Only direct children are listed.
type ProcChildren struct {
	*Ps
}

func childrenSupported(procfs string) bool {
	_, err := os.Stat(fmt.Sprintf("%s/self/task/%d/children", procfs, os.Getpid()))
	return err == nil
}

// Children returns the subprocesses of each task of the process.
func (ps *ProcChildren) Children() ([]int, error) {
	if !exists(ps.procfs, ps.pid) {
		return nil, ErrSearch
	}

	pids := make([]int, 0)

	paths, err := filepath.Glob(
		fmt.Sprintf("%s/%d/task/*/children", ps.procfs, ps.pid),
	)
	if err != nil {
		return pids, err
	}

	for _, v := range paths {
		pid, err := readChildren(v)
		if err != nil {
			return pids, err
		}
		pids = append(pids, pid...)
	}

	return pids, nil
}

func readChildren(path string) ([]int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fields := strings.Fields(string(b))
	children := make([]int, 0, len(fields))
	for _, s := range fields {
		pid, err := strconv.Atoi(s)
		if err != nil {
			continue
		}
		children = append(children, pid)
	}

	return children, nil
}
