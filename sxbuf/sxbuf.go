// Package sxbuf is an append-only text buffer that grows in powers of two.
package sxbuf

import (
	"errors"
	"fmt"
	"math/bits"

	"go.uber.org/zap"

	"github.com/msantos/unpacker/die"
)

// MaxCapacity is the largest storage a buffer will allocate.
const MaxCapacity = 1 << 24

var (
	// ErrRegrow is raised when a single write needs a second resize.
	ErrRegrow = errors.New("sxbuf: resizing more than once")
)

// Buffer accumulates formatted text. The zero value is an empty buffer
// owning no storage.
type Buffer struct {
	buf []byte
}

// New returns an empty buffer.
func New() *Buffer {
	return &Buffer{}
}

// Len is the number of bytes written.
func (b *Buffer) Len() int {
	return len(b.buf)
}

// Cap is the size of the owned storage.
func (b *Buffer) Cap() int {
	return cap(b.buf)
}

// Printf appends formatted text and returns the number of bytes written.
func (b *Buffer) Printf(format string, a ...interface{}) int {
	return b.WriteString(fmt.Sprintf(format, a...))
}

// WriteString appends s and returns the number of bytes written.
func (b *Buffer) WriteString(s string) int {
	n := len(s)
	for once := false; cap(b.buf)-len(b.buf) < n; once = true {
		if once {
			die.Panic(die.ExitFault, fmt.Errorf("%w: need %d bytes, capacity %d",
				ErrRegrow, len(b.buf)+n, cap(b.buf)))
		}
		b.resize(len(b.buf) + n)
	}
	b.buf = append(b.buf, s...)
	return n
}

// resize rounds the request up to a power of 2, capped at MaxCapacity.
func (b *Buffer) resize(request int) {
	capacity := MaxCapacity
	if request <= MaxCapacity {
		capacity = 1 << bits.Len(uint(request-1))
	}
	if capacity == cap(b.buf) {
		return
	}

	buf := make([]byte, len(b.buf), capacity)
	copy(buf, b.buf)

	Logger().Debug("resize",
		zap.Int("request", request),
		zap.Int("from", cap(b.buf)),
		zap.Int("to", capacity),
	)

	b.buf = buf
}

// Peek returns the contents without copying. The slice is only valid
// until the next write.
func (b *Buffer) Peek() []byte {
	return b.buf[:len(b.buf):len(b.buf)]
}

// String returns a copy of the contents.
func (b *Buffer) String() string {
	return string(b.buf)
}

// Take hands the storage to the caller and leaves the buffer empty.
func (b *Buffer) Take() []byte {
	buf := b.buf
	b.buf = nil
	return buf
}

// Reset discards the contents but keeps the storage.
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
}

// Destroy releases the storage.
func (b *Buffer) Destroy() {
	b.buf = nil
}
