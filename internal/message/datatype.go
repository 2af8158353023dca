package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/go-shadowmask/internal/binary"
)

// DatatypeClass represents the class of an HDF5 datatype.
type DatatypeClass uint8

const (
	ClassFixedPoint DatatypeClass = 0
	ClassFloatPoint DatatypeClass = 1
	ClassString     DatatypeClass = 3
	ClassCompound   DatatypeClass = 6
)

// Datatype represents a datatype message (type 0x0003). Only integer types
// carry decoded properties; other classes keep their raw property bytes.
type Datatype struct {
	Class        DatatypeClass
	Version      uint8
	Size         uint32
	BigEndian    bool
	Signed       bool
	BitOffset    uint16
	BitPrecision uint16
	Properties   []byte
}

func (m *Datatype) Type() Type { return TypeDatatype }

// NewInteger returns a little-endian integer datatype of size bytes.
func NewInteger(size uint32, signed bool) *Datatype {
	return &Datatype{
		Class:        ClassFixedPoint,
		Version:      1,
		Size:         size,
		Signed:       signed,
		BitPrecision: uint16(size * 8),
	}
}

// NewInt8 returns the HDF5 equivalent of H5T_STD_I8LE.
func NewInt8() *Datatype { return NewInteger(1, true) }

// String describes integer types the way h5dump names them.
func (m *Datatype) String() string {
	if m.Class != ClassFixedPoint {
		return fmt.Sprintf("class %d, %d bytes", m.Class, m.Size)
	}
	sign, order := "U", "LE"
	if m.Signed {
		sign = "I"
	}
	if m.BigEndian {
		order = "BE"
	}
	return fmt.Sprintf("H5T_STD_%s%d%s", sign, m.Size*8, order)
}

func (m *Datatype) classBits() uint32 {
	var bits uint32
	if m.Class == ClassFixedPoint {
		if m.BigEndian {
			bits |= 0x01
		}
		if m.Signed {
			bits |= 0x08
		}
	}
	return bits
}

// Serialize writes the datatype: class and version nibbles, 24 class bits,
// size, then class properties.
func (m *Datatype) Serialize(w *binpkg.Writer) error {
	version := m.Version
	if version == 0 {
		version = 1
	}
	if err := w.WriteUint8(uint8(m.Class) | version<<4); err != nil {
		return err
	}
	if err := w.WriteUintN(uint64(m.classBits()), 3); err != nil {
		return err
	}
	if err := w.WriteUint32(m.Size); err != nil {
		return err
	}
	if m.Class != ClassFixedPoint {
		return w.WriteBytes(m.Properties)
	}
	if err := w.WriteUint16(m.BitOffset); err != nil {
		return err
	}
	return w.WriteUint16(m.BitPrecision)
}

// SerializedSize returns the size in bytes when serialized.
func (m *Datatype) SerializedSize(w *binpkg.Writer) int {
	if m.Class != ClassFixedPoint {
		return 8 + len(m.Properties)
	}
	return 8 + 4
}

func parseDatatype(r *binpkg.Reader) (*Datatype, error) {
	hdr, err := r.ReadBytes(8)
	if err != nil {
		return nil, fmt.Errorf("datatype message too short: %w", err)
	}
	dt := &Datatype{
		Class:   DatatypeClass(hdr[0] & 0x0F),
		Version: hdr[0] >> 4,
		Size:    uint32(binpkg.Uint(hdr[4:8], 4)),
	}
	bits := binpkg.Uint(hdr[1:4], 3)
	if dt.Class != ClassFixedPoint {
		return dt, nil
	}
	dt.BigEndian = bits&0x01 != 0
	dt.Signed = bits&0x08 != 0
	if dt.BitOffset, err = r.ReadUint16(); err != nil {
		return nil, fmt.Errorf("integer properties truncated: %w", err)
	}
	if dt.BitPrecision, err = r.ReadUint16(); err != nil {
		return nil, fmt.Errorf("integer properties truncated: %w", err)
	}
	return dt, nil
}
