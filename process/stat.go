package process

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Stat is the subset of /proc/<pid>/stat used to follow a process
// through its lifecycle.
type Stat struct {
	Pid   int
	Comm  string
	State byte
	PPid  int
	Utime uint64 // clock ticks
	Stime uint64 // clock ticks
}

var stateNames = map[byte]string{
	'R': "running",
	'S': "sleeping",
	'D': "disk sleep",
	'Z': "zombie",
	'T': "stopped",
	't': "tracing stop",
	'X': "dead",
	'x': "dead",
	'I': "idle",
	'P': "parked",
	'W': "waking",
	'K': "wakekill",
}

// StateName describes a process state code.
func StateName(state byte) string {
	if s, ok := stateNames[state]; ok {
		return s
	}
	return fmt.Sprintf("unknown (%c)", state)
}

func (st *Stat) String() string {
	return fmt.Sprintf("%d (%s) %c %s ppid=%d utime=%d stime=%d",
		st.Pid, st.Comm, st.State, StateName(st.State), st.PPid, st.Utime, st.Stime)
}

func readStat(name string) (*Stat, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return parseStat(string(b))
}

// <pid> (<comm>) <state> <ppid> ... <utime> <stime> ...
// 21230 (cat) R 9985
//
// comm may contain spaces, brackets and newlines
// 21230 (cat foo) R ...
// 21230 (cat (foo) S) R ...
// 21230 (cat (foo)
// S) R ...
func parseStat(stat string) (*Stat, error) {
	st := &Stat{}

	if n, err := fmt.Sscanf(stat, "%d ", &st.Pid); err != nil || n != 1 {
		return nil, ErrParseFailProcStat
	}

	open := strings.IndexByte(stat, '(')
	bracket := strings.LastIndexByte(stat, ')')
	if open == -1 || bracket < open {
		return nil, ErrParseFailProcStat
	}
	st.Comm = stat[open+1 : bracket]

	// fields following comm, starting with state (field 3)
	fields := strings.Fields(stat[bracket+1:])
	if len(fields) < 13 || len(fields[0]) != 1 {
		return nil, ErrParseFailProcStat
	}
	st.State = fields[0][0]

	var err error
	if st.PPid, err = strconv.Atoi(fields[1]); err != nil {
		return nil, ErrParseFailProcStat
	}
	if st.Utime, err = strconv.ParseUint(fields[11], 10, 64); err != nil {
		return nil, ErrParseFailProcStat
	}
	if st.Stime, err = strconv.ParseUint(fields[12], 10, 64); err != nil {
		return nil, ErrParseFailProcStat
	}
	return st, nil
}
