package layout_test

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/cilium/ebpf/btf"

	"github.com/msantos/unpacker/layout"
	"github.com/msantos/unpacker/walker"
)

func sampleBTF() *btf.Struct {
	s64 := &btf.Int{Name: "long long", Size: 8, Encoding: btf.Signed}
	i32 := &btf.Int{Name: "int", Size: 4, Encoding: btf.Signed}
	u16 := &btf.Int{Name: "unsigned short", Size: 2}
	u8 := &btf.Int{Name: "unsigned char", Size: 1}

	ts := &btf.Struct{
		Name: "timespec64",
		Size: 16,
		Members: []btf.Member{
			{Name: "tv_sec", Type: s64, Offset: 0},
			{Name: "tv_nsec", Type: s64, Offset: 64},
		},
	}

	return &btf.Struct{
		Name: "sample",
		Size: 32,
		Members: []btf.Member{
			{Name: "pid", Type: &btf.Typedef{Name: "pid_t", Type: i32}, Offset: 0},
			{Name: "ihl", Type: u8, Offset: 32, BitfieldSize: 4},
			{Name: "version", Type: u8, Offset: 36, BitfieldSize: 4},
			{Name: "port", Type: u16, Offset: 48},
			{Name: "ts", Type: ts, Offset: 64},
			{Name: "mac", Type: &btf.Array{Type: u8, Nelems: 6}, Offset: 192},
			{Name: "data", Type: &btf.Array{Type: i32, Nelems: 0}, Offset: 256},
		},
	}
}

func TestFromBTF(t *testing.T) {
	l, err := layout.FromBTF(sampleBTF())
	if err != nil {
		t.Errorf("%v", err)
		return
	}

	want := []walker.Field{
		{Offset: 0, Size: 4, Kind: walker.Signed, Name: "pid"},
		{Offset: 4, Size: 1, Kind: walker.Unsigned, Name: "ihl", Note: "/* ihl:4, version:4 */"},
		{Offset: 6, Size: 2, Kind: walker.Unsigned, Name: "port"},
		{Offset: 8, Size: 16, Kind: walker.Timespec, Name: "ts"},
		{Offset: 24, Size: 6, Kind: walker.Blob, Name: "mac"},
		{Offset: 32, Size: 0, ElemSize: 4, Kind: walker.Signed, Name: "data", Flexible: true},
	}
	if !reflect.DeepEqual(l.Fields, want) {
		t.Errorf("fields:\n%+v\nwant:\n%+v", l.Fields, want)
	}

	r, err := walker.Walk(l, walker.WithOutput(&bytes.Buffer{}))
	if err != nil {
		t.Errorf("%v", err)
		return
	}
	if r.Format != "LCxSQ2C6x2L*" {
		t.Errorf("format = %q", r.Format)
	}
}

func TestFromBTFNotStruct(t *testing.T) {
	_, err := layout.FromBTF(&btf.Int{Name: "int", Size: 4})
	if !errors.Is(err, layout.ErrNotStruct) {
		t.Errorf("error = %v", err)
	}
}

func TestKernel(t *testing.T) {
	k, err := layout.NewKernel(layout.WithCacheSize(4))
	if err != nil {
		t.Skipf("kernel BTF unavailable: %v", err)
	}

	a, err := k.Layout("list_head")
	if err != nil {
		t.Errorf("%v", err)
		return
	}
	if len(a.Fields) != 2 || a.Fields[0].Kind != walker.Pointer {
		t.Errorf("list_head = %+v", a)
	}

	b, err := k.Layout("list_head")
	if err != nil {
		t.Errorf("%v", err)
		return
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("cached layout differs: %+v", b)
	}

	if _, err := k.Layout("no_such_struct_anywhere"); !errors.Is(err, layout.ErrNotFound) {
		t.Errorf("error = %v", err)
	}
}

func TestFromBTFUnion(t *testing.T) {
	u32 := &btf.Int{Name: "unsigned int", Size: 4}
	u64 := &btf.Int{Name: "unsigned long long", Size: 8}

	l, err := layout.FromBTF(&btf.Union{
		Name: "word",
		Size: 8,
		Members: []btf.Member{
			{Name: "lo", Type: u32, Offset: 0},
			{Name: "full", Type: u64, Offset: 0},
		},
	})
	if err != nil {
		t.Errorf("%v", err)
		return
	}
	if !l.Overlap {
		t.Errorf("union layout does not allow overlap")
	}

	r, err := walker.Walk(l, walker.WithOutput(&bytes.Buffer{}))
	if err != nil {
		t.Errorf("%v", err)
		return
	}
	if r.Format != "LX4Q" {
		t.Errorf("format = %q, want LX4Q", r.Format)
	}

	_, err = walker.Walk(l, walker.WithOutput(&bytes.Buffer{}), walker.WithAllowOverlap(false))
	if !errors.Is(err, walker.ErrOverlap) {
		t.Errorf("error = %v, want %v", err, walker.ErrOverlap)
	}
}
