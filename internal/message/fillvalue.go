package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/go-shadowmask/internal/binary"
)

// Space allocation times.
const (
	AllocEarly       uint8 = 1
	AllocLate        uint8 = 2
	AllocIncremental uint8 = 3
)

// Fill value write times.
const (
	FillWriteOnAlloc uint8 = 0
	FillWriteNever   uint8 = 1
	FillWriteIfSet   uint8 = 2
)

// FillValue represents a fill value message (type 0x0005).
type FillValue struct {
	SpaceAllocTime uint8
	FillWriteTime  uint8
	Defined        bool
	Value          []byte // nil when the library default (all zero bytes) applies
}

func (m *FillValue) Type() Type { return TypeFillValue }

// NewFillValue returns a user-defined fill value with the settings h5py uses
// for chunked datasets: incremental allocation, written if set.
func NewFillValue(value []byte) *FillValue {
	return &FillValue{
		SpaceAllocTime: AllocIncremental,
		FillWriteTime:  FillWriteIfSet,
		Defined:        true,
		Value:          value,
	}
}

// Serialize writes the version 3 encoding: a flags byte, then size and
// value when a value is present.
func (m *FillValue) Serialize(w *binpkg.Writer) error {
	if err := w.WriteUint8(3); err != nil {
		return err
	}
	flags := m.SpaceAllocTime&0x03 | (m.FillWriteTime&0x03)<<2
	if !m.Defined {
		flags |= 0x10
	} else if m.Value != nil {
		flags |= 0x20
	}
	if err := w.WriteUint8(flags); err != nil {
		return err
	}
	if flags&0x20 == 0 {
		return nil
	}
	if err := w.WriteUint32(uint32(len(m.Value))); err != nil {
		return err
	}
	return w.WriteBytes(m.Value)
}

// SerializedSize returns the size in bytes when serialized.
func (m *FillValue) SerializedSize(w *binpkg.Writer) int {
	if m.Defined && m.Value != nil {
		return 2 + 4 + len(m.Value)
	}
	return 2
}

func parseFillValue(r *binpkg.Reader) (*FillValue, error) {
	version, err := r.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("fill value message too short: %w", err)
	}
	fv := &FillValue{}
	switch version {
	case 1, 2:
		hdr, err := r.ReadBytes(3)
		if err != nil {
			return nil, fmt.Errorf("fill value v%d too short: %w", version, err)
		}
		fv.SpaceAllocTime, fv.FillWriteTime, fv.Defined = hdr[0], hdr[1], hdr[2] != 0
		if !fv.Defined {
			return fv, nil
		}
	case 3:
		flags, err := r.ReadUint8()
		if err != nil {
			return nil, fmt.Errorf("fill value v3 too short: %w", err)
		}
		fv.SpaceAllocTime = flags & 0x03
		fv.FillWriteTime = (flags >> 2) & 0x03
		fv.Defined = flags&0x10 == 0
		if flags&0x20 == 0 {
			return fv, nil
		}
	default:
		return nil, fmt.Errorf("unsupported fill value version %d", version)
	}
	size, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("fill value size truncated: %w", err)
	}
	if fv.Value, err = r.ReadBytes(int(size)); err != nil {
		return nil, fmt.Errorf("fill value data truncated: %w", err)
	}
	return fv, nil
}
