package hexdump_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/msantos/unpacker/hexdump"
)

func TestDump(t *testing.T) {
	tests := []struct {
		b     []byte
		addr  int64
		width int
		want  []string
	}{
		{
			b:     []byte("Hello world"),
			addr:  0,
			width: 16,
			want: []string{
				"     00000 | 48 65 6c 6c 6f 20 77 6f 72 6c 64" + strings.Repeat(" ", 5*3) +
					" | Hello world" + strings.Repeat(" ", 5) + " |",
			},
		},
		{
			b:     []byte{0x00, 0x01, 'a', 'b'},
			addr:  0x12,
			width: 4,
			want: []string{
				"     00010 |       00 01 |   .. |",
				"     00014 | 61 62       | ab   |",
			},
		},
		{
			b:     []byte("0123"),
			addr:  4,
			width: 4,
			want: []string{
				"     00004 | 30 31 32 33 | 0123 |",
			},
		},
	}

	for _, tt := range tests {
		got := strings.Split(strings.TrimSuffix(hexdump.Sdump(tt.b, tt.addr, tt.width), "\n"), "\n")
		if len(got) != len(tt.want) {
			t.Errorf("%q: got %d lines, want %d:\n%s", tt.b, len(got), len(tt.want), strings.Join(got, "\n"))
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%q line %d:\n%q\nwant:\n%q", tt.b, i, got[i], tt.want[i])
			}
		}
	}
}

func TestDumpEmpty(t *testing.T) {
	if s := hexdump.Sdump(nil, 0, 16); s != "" {
		t.Errorf("empty input: %q", s)
	}
}

func TestRows(t *testing.T) {
	var b bytes.Buffer
	hexdump.Rows(&b, []byte("Hello world"))

	want := "\t0\t48 65 6c 6c 6f 20 77 6f\n\t8\t72 6c 64\n\t11\n"
	if b.String() != want {
		t.Errorf("got:\n%q\nwant:\n%q", b.String(), want)
	}

	b.Reset()
	hexdump.Rows(&b, nil)
	if b.String() != "\t0\n" {
		t.Errorf("empty: %q", b.String())
	}
}
