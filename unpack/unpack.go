// Package unpack derives compact decode descriptors for fixed layout
// binary records and executes them against raw bytes.
//
// A descriptor is a string of type codes:
//
//	C  unsigned  8 bit value
//	S  unsigned 16 bit value
//	L  unsigned 32 bit value
//	Q  unsigned 64 bit value
//	x  skip forward one byte
//	X  skip backward one byte
//
// Each code may be followed by a repeat count or by '*' (repeat until the
// input is exhausted). Codes may be grouped with parentheses and the group
// repeated: "(Q2)4".
package unpack

import (
	"math/bits"
	"strconv"
)

// Type codes.
const (
	U8           = 'C'
	U16          = 'S'
	U32          = 'L'
	U64          = 'Q'
	SkipForward  = 'x'
	SkipBackward = 'X'
	Unlimited    = '*'
)

var codes = [...]byte{U8, U16, U32, U64}

// Log2Ceil returns ceil(log2(x)), limited to max.
func Log2Ceil(x uint64, max int) int {
	if x < 2 {
		return 0
	}
	i := bits.Len64(x - 1)
	if i > max {
		return max
	}
	return i
}

// Width is the number of bytes consumed by one instance of a value code.
// It returns 0 for anything else.
func Width(code byte) int {
	switch code {
	case U8:
		return 1
	case U16:
		return 2
	case U32:
		return 4
	case U64:
		return 8
	}
	return 0
}

// Code returns the descriptor for a single element of size bytes, the
// width of the chosen code and the number of values the descriptor
// yields.
//
// Elements up to 8 bytes use the smallest code at least as wide as the
// element. Wider elements are split into the widest code dividing the
// size. A zero sized element has an empty descriptor.
func Code(size int) (code string, width, count int) {
	if size <= 0 {
		return "", 0, 0
	}

	if size <= 8 {
		scale := Log2Ceil(uint64(size), len(codes)-1)
		return string(codes[scale]), 1 << scale, 1
	}

	scale := len(codes) - 1
	for ; scale > 0; scale-- {
		if size%(1<<scale) == 0 {
			break
		}
	}
	width = 1 << scale
	count = size / width
	return string(codes[scale]) + strconv.Itoa(count), width, count
}

// Skip returns the descriptor moving the cursor by n bytes: x<n> forward,
// X<n> backward. The count is omitted for a single byte.
func Skip(n int) string {
	c := byte(SkipForward)
	if n < 0 {
		c = SkipBackward
		n = -n
	}
	switch n {
	case 0:
		return ""
	case 1:
		return string(c)
	}
	return string(c) + strconv.Itoa(n)
}
