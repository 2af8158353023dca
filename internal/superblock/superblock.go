// Package superblock reads and writes version 2 and 3 HDF5 superblocks.
//
// The superblock is the entry point of an HDF5 file: it records the widths
// of file offsets and lengths, the logical end of file and the address of
// the root group's object header. Mask files are always written with a
// version 3 superblock at offset 0; [Read] also finds superblocks at the
// other offsets the format allows, for files with a user block.
package superblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/go-shadowmask/internal/binary"
)

// Signature is the HDF5 format signature: 0x89 H D F \r \n 0x1a \n
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

// Possible superblock locations (searched in order)
var superblockOffsets = []int64{0, 512, 1024, 2048}

// Errors
var (
	ErrNotHDF5            = errors.New("not an HDF5 file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrInvalidSuperblock  = errors.New("invalid superblock structure")
)

/*
Version 2/3 superblock layout:

	0       8  signature
	8       1  version
	9       1  size of offsets (O)
	10      1  size of lengths
	11      1  file consistency flags
	12      O  base address
	12+O    O  superblock extension address
	12+2O   O  end of file address
	12+3O   O  root group object header address
	12+4O   4  lookup3 checksum
*/

// Superblock holds the fields of a version 2 or 3 superblock.
type Superblock struct {
	Version              uint8
	OffsetSize           uint8
	LengthSize           uint8
	FileConsistencyFlags uint8
	BaseAddress          uint64
	ExtensionAddress     uint64
	EOFAddress           uint64
	RootGroupAddress     uint64

	// FileOffset is where the superblock was found.
	FileOffset int64
}

// New returns a version 3 superblock with 8-byte offsets and lengths.
func New() *Superblock {
	return &Superblock{
		Version:          3,
		OffsetSize:       8,
		LengthSize:       8,
		ExtensionAddress: binpkg.Undefined(8),
	}
}

// Config returns the binary configuration described by the superblock.
func (sb *Superblock) Config() binpkg.Config {
	return binpkg.Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: int(sb.OffsetSize),
		LengthSize: int(sb.LengthSize),
	}
}

// Size returns the encoded size of the superblock.
func (sb *Superblock) Size() int {
	return 12 + 4*int(sb.OffsetSize) + 4
}

// Write writes the superblock at the writer's position.
func (sb *Superblock) Write(w *binpkg.Writer) error {
	if sb.Version != 2 && sb.Version != 3 {
		return fmt.Errorf("%w: cannot write version %d", ErrUnsupportedVersion, sb.Version)
	}
	if int(sb.OffsetSize) != w.OffsetSize() || int(sb.LengthSize) != w.LengthSize() {
		return fmt.Errorf("%w: sizes %d/%d do not match writer", ErrInvalidSuperblock, sb.OffsetSize, sb.LengthSize)
	}
	bw, buf := w.Staging(sb.Size())
	if err := bw.WriteBytes(Signature); err != nil {
		return err
	}
	if err := bw.WriteBytes([]byte{sb.Version, sb.OffsetSize, sb.LengthSize, sb.FileConsistencyFlags}); err != nil {
		return err
	}
	for _, addr := range []uint64{sb.BaseAddress, sb.ExtensionAddress, sb.EOFAddress, sb.RootGroupAddress} {
		if err := bw.WriteOffset(addr); err != nil {
			return err
		}
	}
	b := buf.Bytes()
	binpkg.Seal(b)
	return w.WriteBytes(b)
}

// Read locates and parses the superblock of an HDF5 file.
func Read(r io.ReaderAt) (*Superblock, error) {
	head := make([]byte, 12)
	for _, offset := range superblockOffsets {
		if n, err := r.ReadAt(head, offset); n < len(head) {
			if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, err
		}
		if !bytes.Equal(head[:8], Signature) {
			continue
		}
		switch head[8] {
		case 2, 3:
		case 0, 1:
			return nil, fmt.Errorf("%w: version %d files are not supported", ErrUnsupportedVersion, head[8])
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, head[8])
		}
		sb, err := readV2(r, offset, head)
		if err != nil {
			return nil, err
		}
		sb.FileOffset = offset
		return sb, nil
	}
	return nil, ErrNotHDF5
}

func readV2(r io.ReaderAt, offset int64, head []byte) (*Superblock, error) {
	sb := &Superblock{
		Version:              head[8],
		OffsetSize:           head[9],
		LengthSize:           head[10],
		FileConsistencyFlags: head[11],
	}
	if err := sb.Config().Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSuperblock, err)
	}
	block := make([]byte, sb.Size())
	if _, err := r.ReadAt(block, offset); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	if !binpkg.Verify(block) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidSuperblock)
	}
	o := int(sb.OffsetSize)
	fields := []*uint64{&sb.BaseAddress, &sb.ExtensionAddress, &sb.EOFAddress, &sb.RootGroupAddress}
	for i, f := range fields {
		*f = binpkg.Uint(block[12+i*o:], o)
	}
	return sb, nil
}
