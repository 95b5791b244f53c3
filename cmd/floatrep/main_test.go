package main

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"testing"
)

func TestRun(t *testing.T) {
	want := map[string]int{
		"float32": 24,
		"float64": 53,
	}

	for _, r := range reprs {
		if n := run(io.Discard, r); n != want[r.name] {
			t.Errorf("%s: expected=%d, got=%d", r.name, want[r.name], n)
		}
	}
}

func TestHex(t *testing.T) {
	s := hex([]byte{0, 0, 0x80, 0x3f, 1})
	if s != " 00 00 80 3f  01" {
		t.Errorf("hex: %q", s)
	}
}

func TestMicros(t *testing.T) {
	s := micros(1e6, "2006-01-02 15:04:05")
	if s != "1970-01-01 00:00:01" {
		t.Errorf("micros: %s", s)
	}
	if !strings.Contains(micros(1e300, "2006"), "range") {
		t.Errorf("micros: expected out of range")
	}
}

func TestBytes(t *testing.T) {
	if b := reprs[0].bytes(1, binary.LittleEndian); !bytes.Equal(b, []byte{0, 0, 0x80, 0x3f}) {
		t.Errorf("float32 1.0 = %x", b)
	}
	if b := reprs[1].bytes(1, binary.BigEndian); !bytes.Equal(b, []byte{0x3f, 0xf0, 0, 0, 0, 0, 0, 0}) {
		t.Errorf("float64 1.0 = %x", b)
	}
}
