package layout_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/msantos/unpacker/buildenv"
	"github.com/msantos/unpacker/layout"
	"github.com/msantos/unpacker/walker"
)

func TestCatalog(t *testing.T) {
	for _, name := range layout.Names() {
		l, err := layout.Lookup(name)
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if err := layout.Validate(l); err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if _, err := walker.Walk(l, walker.WithOutput(&bytes.Buffer{})); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestLookupNotFound(t *testing.T) {
	if _, err := layout.Lookup("no_such_struct"); !errors.Is(err, layout.ErrNotFound) {
		t.Errorf("error = %v", err)
	}
}

func TestSiginfoChild(t *testing.T) {
	l, err := layout.Lookup("siginfo_sigchld")
	if err != nil {
		t.Errorf("%v", err)
		return
	}

	r, err := walker.Walk(l, walker.WithOutput(&bytes.Buffer{}))
	if err != nil {
		t.Errorf("%v", err)
		return
	}

	want := "LLLx4LLLx4QQx80"
	if buildenv.PointerSize == 4 {
		want = "LLLLLLLLx96"
	}
	if r.Format != want {
		t.Errorf("format = %q, want %q", r.Format, want)
	}
	if got := r.NameList(); got != "signo, errno, code, pid, uid, status, utime, stime" {
		t.Errorf("names = %q", got)
	}
}

func TestDirent64(t *testing.T) {
	r, err := walker.Walk(layout.Dirent64(), walker.WithOutput(&bytes.Buffer{}))
	if err != nil {
		t.Errorf("%v", err)
		return
	}
	if r.Format != "QQSCC*" {
		t.Errorf("format = %q", r.Format)
	}
	if got := r.NameList(); got != "ino, off, reclen, type, name[*]" {
		t.Errorf("names = %q", got)
	}
}

func TestLookupCopies(t *testing.T) {
	for _, name := range []string{"iphdr", "rtnl_link_stats", "ifla_cacheinfo"} {
		orig, err := layout.Lookup(name)
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		want := orig.Fields[0].Name

		for i := 0; i < 3; i++ {
			l, err := layout.Lookup(name)
			if err != nil {
				t.Errorf("%s: %v", name, err)
				break
			}
			if l.Fields[0].Name != want {
				t.Errorf("%s: catalog entry modified: %q", name, l.Fields[0].Name)
			}
			l.Fields[0].Name = "changed"
		}
	}
}
