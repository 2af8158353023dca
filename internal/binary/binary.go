// Package binary provides the low-level encoding used by the HDF5 container:
// little-endian integers of variable width for file offsets and lengths,
// the "undefined address" sentinel, in-memory staging buffers and the
// metadata checksums.
package binary

import (
	"encoding/binary"
	"errors"
)

// ErrInvalidSize is returned when an invalid offset or length size is specified.
var ErrInvalidSize = errors.New("invalid offset/length size: must be 2, 4, or 8")

// Config holds the sizing of offsets and lengths, as declared in the superblock.
type Config struct {
	ByteOrder  binary.ByteOrder
	OffsetSize int // 2, 4, or 8 bytes
	LengthSize int // 2, 4, or 8 bytes
}

// DefaultConfig returns little-endian byte order with 8-byte offsets and lengths.
func DefaultConfig() Config {
	return Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: 8,
		LengthSize: 8,
	}
}

// Validate checks the offset and length sizes.
func (c Config) Validate() error {
	for _, s := range []int{c.OffsetSize, c.LengthSize} {
		if s != 2 && s != 4 && s != 8 {
			return ErrInvalidSize
		}
	}
	return nil
}

// Undefined returns the all-ones sentinel HDF5 uses for an unset field of
// the given width.
func Undefined(size int) uint64 {
	if size >= 8 {
		return ^uint64(0)
	}
	return uint64(1)<<(uint(size)*8) - 1
}

// PutUint stores v little-endian in the first size bytes of b.
func PutUint(b []byte, v uint64, size int) {
	for i := 0; i < size; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// Uint decodes a little-endian unsigned integer from the first size bytes of b.
func Uint(b []byte, size int) uint64 {
	var v uint64
	for i := size - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// BytesFor returns the smallest number of bytes able to hold v.
func BytesFor(v uint64) int {
	n := 1
	for v > 0xFF {
		v >>= 8
		n++
	}
	return n
}

// Buffer is a growable in-memory io.WriterAt and io.ReaderAt. Metadata blocks
// are staged in a Buffer so their checksum can be computed before the bytes
// reach the file.
type Buffer struct {
	buf []byte
}

// NewBuffer returns a buffer with the given initial length.
func NewBuffer(size int) *Buffer {
	return &Buffer{buf: make([]byte, size)}
}

// WriteAt implements io.WriterAt, growing the buffer as needed.
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("binary: negative offset")
	}
	end := int(off) + len(p)
	if end > len(b.buf) {
		grown := make([]byte, end)
		copy(grown, b.buf)
		b.buf = grown
	}
	copy(b.buf[off:], p)
	return len(p), nil
}

// ReadAt implements io.ReaderAt.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || int(off) > len(b.buf) {
		return 0, errors.New("binary: offset out of range")
	}
	n := copy(p, b.buf[off:])
	if n < len(p) {
		return n, errShortRead
	}
	return n, nil
}

// Bytes returns the buffer contents.
func (b *Buffer) Bytes() []byte {
	return b.buf
}

// Len returns the buffer length.
func (b *Buffer) Len() int {
	return len(b.buf)
}
