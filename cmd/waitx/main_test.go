//go:build linux

package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/msantos/unpacker/die"
	"github.com/msantos/unpacker/waitx"
)

func TestParseArgsOptions(t *testing.T) {
	tests := []struct {
		args    []string
		mode    waitx.Mode
		options uint32
	}{
		{nil, waitx.Wait, 0},
		{[]string{"-mode", "waitpid"}, waitx.Waitpid, 0},
		{[]string{"-mode", "wait3"}, waitx.Wait3, 0},
		{[]string{"-mode", "wait4"}, waitx.Wait4, 0},
		{[]string{"-mode", "waitid"}, waitx.Waitid, unix.WEXITED},
		{[]string{"-mode", "waitid5"}, waitx.Waitid5, unix.WEXITED},
		{[]string{"-mode", "waitid", "-default"}, waitx.Waitid, 0},
		{[]string{"-mode", "wait4", "-wnohang"}, waitx.Wait4, unix.WNOHANG},
		{[]string{"-mode", "waitid", "-wexited", "-wnowait"}, waitx.Waitid, unix.WEXITED | unix.WNOWAIT},
	}

	for _, tt := range tests {
		state, err := parseArgs(tt.args, io.Discard)
		if err != nil {
			t.Errorf("%v: %v", tt.args, err)
			continue
		}
		if state.mode != tt.mode || state.options != tt.options {
			t.Errorf("%v: mode = %s, options = %s, want %s, %s", tt.args,
				state.mode, waitx.FormatOptions(state.options),
				tt.mode, waitx.FormatOptions(tt.options))
		}
	}
}

func TestRunUsage(t *testing.T) {
	for _, args := range [][]string{{"-nosuchflag"}, {"-mode", "wa"}} {
		if status := run(args, io.Discard, io.Discard); status != die.ExitUsage {
			t.Errorf("%v: status = %d, want %d", args, status, die.ExitUsage)
		}
	}
}

func TestRunDefaultModes(t *testing.T) {
	for _, m := range []string{"waitpid", "wait3", "wait4", "waitid"} {
		var out bytes.Buffer
		status := run([]string{"-mode", m, "sh", "-c", "exit 3"}, &out, io.Discard)
		if status != 0 {
			t.Errorf("%s: status = %d", m, status)
			continue
		}
		if strings.Contains(out.String(), "ERROR:") {
			t.Errorf("%s: wait failed:\n%s", m, out.String())
		}
	}
}

func TestRunSpawnFailure(t *testing.T) {
	status := run([]string{"-mode", "wait4", "/nonexistent/command"}, io.Discard, io.Discard)
	if status != die.ExitUnavailable {
		t.Errorf("status = %d, want %d", status, die.ExitUnavailable)
	}
}
