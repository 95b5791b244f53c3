package unpack_test

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"github.com/msantos/unpacker/unpack"
)

func TestCode(t *testing.T) {
	tests := []struct {
		size  int
		code  string
		width int
		count int
	}{
		{0, "", 0, 0},
		{1, "C", 1, 1},
		{2, "S", 2, 1},
		{3, "L", 4, 1},
		{4, "L", 4, 1},
		{5, "Q", 8, 1},
		{8, "Q", 8, 1},
		{12, "L3", 4, 3},
		{16, "Q2", 8, 2},
		{18, "S9", 2, 9},
		{27, "C27", 1, 27},
	}

	for _, tt := range tests {
		code, width, count := unpack.Code(tt.size)
		if code != tt.code || width != tt.width || count != tt.count {
			t.Errorf("Code(%d) = %q, %d, %d, want %q, %d, %d",
				tt.size, code, width, count, tt.code, tt.width, tt.count)
		}
	}
}

func TestSkip(t *testing.T) {
	tests := map[int]string{
		0:  "",
		1:  "x",
		4:  "x4",
		-1: "X",
		-6: "X6",
	}
	for n, want := range tests {
		if got := unpack.Skip(n); got != want {
			t.Errorf("Skip(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestLog2Ceil(t *testing.T) {
	tests := []struct {
		x    uint64
		max  int
		want int
	}{
		{0, 3, 0},
		{1, 3, 0},
		{2, 3, 1},
		{3, 3, 2},
		{8, 3, 3},
		{9, 3, 3},
		{1 << 30, 23, 23},
	}
	for _, tt := range tests {
		if got := unpack.Log2Ceil(tt.x, tt.max); got != tt.want {
			t.Errorf("Log2Ceil(%d, %d) = %d, want %d", tt.x, tt.max, got, tt.want)
		}
	}
}

func TestDecode(t *testing.T) {
	raw := []byte{
		0x01, 0x00, 0x00, 0x00, // L
		0xff, 0xff, // S
		0xee, 0xee, // x2
		0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // Q
		0x03, 0x04, 0x05, 0x06, // C4
	}

	tests := []struct {
		format string
		want   []uint64
	}{
		{"LSx2QC4", []uint64{1, 0xffff, 2, 3, 4, 5, 6}},
		{"LSx2Q(C2)2", []uint64{1, 0xffff, 2, 3, 4, 5, 6}},
		{"LSx2QC*", []uint64{1, 0xffff, 2, 3, 4, 5, 6}},
		{"LX4C", []uint64{1, 1}},
		{"x16S*", []uint64{0x0403, 0x0605}},
		{"", nil},
	}

	for _, tt := range tests {
		got, err := unpack.Decode(tt.format, raw, binary.LittleEndian)
		if err != nil {
			t.Errorf("Decode(%q): %v", tt.format, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Decode(%q) = %v, want %v", tt.format, got, tt.want)
		}
	}
}

func TestDecodeBigEndian(t *testing.T) {
	got, err := unpack.Decode("SL", []byte{0x01, 0x02, 0x00, 0x00, 0x00, 0x03}, binary.BigEndian)
	if err != nil {
		t.Errorf("%v", err)
		return
	}
	if want := []uint64{0x0102, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("Decode = %v, want %v", got, want)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		format string
		err    error
	}{
		{"Z", unpack.ErrSyntax},
		{"(LL", unpack.ErrSyntax},
		{"LL)", unpack.ErrSyntax},
		{"Q2", unpack.ErrShortBuffer},
		{"X", unpack.ErrSeek},
	}

	for _, tt := range tests {
		_, err := unpack.Decode(tt.format, make([]byte, 12), binary.LittleEndian)
		if !errors.Is(err, tt.err) {
			t.Errorf("Decode(%q) error = %v, want %v", tt.format, err, tt.err)
		}
	}
}
