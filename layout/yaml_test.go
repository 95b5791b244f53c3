package layout_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/msantos/unpacker/layout"
	"github.com/msantos/unpacker/walker"
)

const tables = `name: ip_auth_hdr
size: 12
fields:
  - {name: nexthdr, offset: 0, size: 1}
  - {name: hdrlen, offset: 1, size: 1, note: "/* 32 bit units */"}
  - {name: spi, offset: 4, size: 4}
  - {name: seq_no, offset: 8, size: 4}
  - {name: auth_data, offset: 12, elem: 1, kind: blob, flexible: true}
---
name: nlmsghdr
size: 16
strip: nlmsg_
fields:
  - {name: nlmsg_len, offset: 0, size: 4}
  - {name: nlmsg_type, offset: 4, size: 2}
  - {name: nlmsg_flags, offset: 6, size: 2}
  - {name: nlmsg_seq, offset: 8, size: 4}
  - {name: nlmsg_pid, offset: 12, size: 4, kind: int}
`

func TestLoad(t *testing.T) {
	layouts, err := layout.Load(strings.NewReader(tables))
	if err != nil {
		t.Errorf("%v", err)
		return
	}
	if len(layouts) != 2 {
		t.Errorf("loaded %d tables, want 2", len(layouts))
		return
	}

	tests := []struct {
		format string
		names  string
	}{
		{"CCx2LLC*", "nexthdr, hdrlen, spi, seq_no, auth_data[*]"},
		{"LSSLL", "len, type, flags, seq, pid"},
	}

	for i, tt := range tests {
		r, err := walker.Walk(layouts[i], walker.WithOutput(&bytes.Buffer{}))
		if err != nil {
			t.Errorf("%s: %v", layouts[i].Name, err)
			continue
		}
		if r.Format != tt.format {
			t.Errorf("%s: format = %q, want %q", r.Name, r.Format, tt.format)
		}
		if got := r.NameList(); got != tt.names {
			t.Errorf("%s: names = %q, want %q", r.Name, got, tt.names)
		}
	}

	if k := layouts[1].Fields[4].Kind; k != walker.Signed {
		t.Errorf("pid kind = %v", k)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	if err := os.WriteFile(path, []byte(tables), 0o600); err != nil {
		t.Errorf("%v", err)
		return
	}

	layouts, err := layout.LoadFile(path)
	if err != nil {
		t.Errorf("%v", err)
		return
	}
	if len(layouts) != 2 || layouts[0].Name != "ip_auth_hdr" {
		t.Errorf("layouts = %+v", layouts)
	}

	if _, err := layout.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		doc  string
		err  error
		want string
	}{
		{
			doc:  "name: x\nsize: 4\nfields:\n  - {name: a, offset: 0, size: 4, kind: complex}\n",
			err:  layout.ErrInvalid,
			want: "x: a",
		},
		{
			doc:  "name: x\nsize: 8\nfields:\n  - {name: a, offset: 4, size: 4}\n  - {name: b, offset: 0, size: 4}\n",
			err:  layout.ErrInvalid,
			want: "x: b",
		},
		{
			doc:  "name: x\nsize: 8\nfields:\n  - {name: a, offset: 0, elem: 4, flexible: true}\n  - {name: b, offset: 0, size: 4}\n",
			err:  layout.ErrInvalid,
			want: "flexible",
		},
		{
			doc:  "size: 8\n",
			err:  layout.ErrInvalid,
			want: "missing name",
		},
	}

	for _, tt := range tests {
		_, err := layout.Load(strings.NewReader(tt.doc))
		if !errors.Is(err, tt.err) {
			t.Errorf("%q: error = %v, want %v", tt.doc, err, tt.err)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%q: error %q does not mention %q", tt.doc, err, tt.want)
		}
	}

	if _, err := layout.Load(strings.NewReader("name: x\nbogus: 1\n")); err == nil {
		t.Errorf("unknown key accepted")
	}
}

func TestLoadEmpty(t *testing.T) {
	layouts, err := layout.Load(strings.NewReader(""))
	if err != nil || len(layouts) != 0 {
		t.Errorf("empty stream: %v, %v", layouts, err)
	}
}

func TestLoadOverlap(t *testing.T) {
	layouts, err := layout.Load(strings.NewReader(`
name: sigval
size: 8
overlap: true
fields:
  - {name: sival_int, offset: 0, size: 4, kind: int}
  - {name: sival_ptr, offset: 0, size: 8, kind: pointer}
`))
	if err != nil {
		t.Errorf("%v", err)
		return
	}

	r, err := walker.Walk(layouts[0], walker.WithOutput(&bytes.Buffer{}))
	if err != nil {
		t.Errorf("%v", err)
		return
	}
	if r.Format != "LX4Q" {
		t.Errorf("format = %q, want LX4Q", r.Format)
	}
}
