package sxbuf_test

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/msantos/unpacker/die"
	"github.com/msantos/unpacker/sxbuf"
)

func TestPrintf(t *testing.T) {
	b := sxbuf.New()
	if b.Cap() != 0 {
		t.Errorf("new buffer owns %d bytes", b.Cap())
		return
	}

	var want strings.Builder
	for i := 0; i < 100; i++ {
		s := "f_" + strconv.Itoa(i) + ", "
		if n := b.Printf("f_%d, ", i); n != len(s) {
			t.Errorf("Printf returned %d, want %d", n, len(s))
		}
		want.WriteString(s)
	}

	if got := string(b.Peek()); got != want.String() {
		t.Errorf("Peek = %q, want %q", got, want.String())
	}
	if b.Len() > b.Cap() {
		t.Errorf("len %d exceeds capacity %d", b.Len(), b.Cap())
	}
	if c := b.Cap(); c&(c-1) != 0 {
		t.Errorf("capacity %d is not a power of two", c)
	}
}

func TestTake(t *testing.T) {
	b := sxbuf.New()
	b.Printf("%s", "QQLL")
	b.Printf("x%d", 4)

	got := b.Take()
	if string(got) != "QQLLx4" {
		t.Errorf("Take = %q", got)
	}
	if b.Len() != 0 || b.Cap() != 0 {
		t.Errorf("after Take: len=%d cap=%d", b.Len(), b.Cap())
	}

	b.Printf("C")
	if string(got) != "QQLLx4" {
		t.Errorf("taken storage modified: %q", got)
	}
}

func TestResetDestroy(t *testing.T) {
	b := sxbuf.New()
	b.WriteString("abcdefgh")
	c := b.Cap()

	b.Reset()
	if b.Len() != 0 || b.Cap() != c {
		t.Errorf("after Reset: len=%d cap=%d, want 0 %d", b.Len(), b.Cap(), c)
	}

	b.Destroy()
	if b.Cap() != 0 {
		t.Errorf("after Destroy: cap=%d", b.Cap())
	}
}

func TestResizePowerOfTwo(t *testing.T) {
	b := sxbuf.New()
	b.WriteString("abc")
	if b.Cap() != 4 {
		t.Errorf("cap = %d, want 4", b.Cap())
	}
	b.WriteString("de")
	if b.Cap() != 8 {
		t.Errorf("cap = %d, want 8", b.Cap())
	}
	b.WriteString("fgh")
	if b.Cap() != 8 {
		t.Errorf("cap = %d, want 8", b.Cap())
	}
}

func TestCapacityLimit(t *testing.T) {
	b := sxbuf.New()

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok {
			t.Errorf("recovered %v, want fault", r)
			return
		}
		var fault *die.Fault
		if !errors.As(err, &fault) || fault.Code != die.ExitFault {
			t.Errorf("recovered %v, want fault with status %d", err, die.ExitFault)
		}
		if !errors.Is(err, sxbuf.ErrRegrow) {
			t.Errorf("error = %v, want %v", err, sxbuf.ErrRegrow)
		}
	}()

	b.WriteString(strings.Repeat("x", sxbuf.MaxCapacity+1))
	t.Errorf("write beyond capacity succeeded")
}

func TestResizeLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sxbuf.SetLogger(zap.New(core))
	defer sxbuf.SetLogger(zap.NewNop())

	b := sxbuf.New()
	b.Printf("%s", "0123456789")

	entries := logs.FilterMessage("resize").All()
	if len(entries) != 1 {
		t.Errorf("resize logged %d times, want 1", len(entries))
		return
	}
	if to := entries[0].ContextMap()["to"]; to != int64(16) {
		t.Errorf("resize to = %v, want 16", to)
	}
}
