package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/go-shadowmask/internal/binary"
)

// DataspaceType represents the type of dataspace.
type DataspaceType uint8

const (
	DataspaceScalar DataspaceType = 0
	DataspaceSimple DataspaceType = 1
	DataspaceNull   DataspaceType = 2
)

// Dataspace represents a dataspace message (type 0x0001).
type Dataspace struct {
	Version    uint8
	SpaceType  DataspaceType
	Dimensions []uint64
	MaxDims    []uint64 // nil means same as Dimensions
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// Rank returns the number of dimensions.
func (m *Dataspace) Rank() int { return len(m.Dimensions) }

// NumElements returns the total number of elements in the dataspace.
func (m *Dataspace) NumElements() uint64 {
	switch m.SpaceType {
	case DataspaceScalar:
		return 1
	case DataspaceSimple:
		n := uint64(1)
		for _, d := range m.Dimensions {
			n *= d
		}
		return n
	}
	return 0
}

// NewDataspace creates a fixed-size simple dataspace.
func NewDataspace(dims []uint64) *Dataspace {
	return &Dataspace{
		Version:    2,
		SpaceType:  DataspaceSimple,
		Dimensions: dims,
	}
}

// Serialize writes the dataspace in version 2 format:
// version, rank, flags (bit 0: max dims present), type, then dimensions.
func (m *Dataspace) Serialize(w *binpkg.Writer) error {
	flags := uint8(0)
	if len(m.MaxDims) > 0 {
		flags |= 0x01
	}
	for _, b := range []uint8{2, uint8(len(m.Dimensions)), flags, uint8(m.SpaceType)} {
		if err := w.WriteUint8(b); err != nil {
			return err
		}
	}
	for _, d := range m.Dimensions {
		if err := w.WriteLength(d); err != nil {
			return err
		}
	}
	for _, d := range m.MaxDims {
		if err := w.WriteLength(d); err != nil {
			return err
		}
	}
	return nil
}

// SerializedSize returns the size in bytes when serialized.
func (m *Dataspace) SerializedSize(w *binpkg.Writer) int {
	return 4 + (len(m.Dimensions)+len(m.MaxDims))*w.LengthSize()
}

func parseDataspace(r *binpkg.Reader) (*Dataspace, error) {
	hdr, err := r.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("dataspace message too short: %w", err)
	}
	ds := &Dataspace{Version: hdr[0]}
	rank := int(hdr[1])
	hasMax := hdr[2]&0x01 != 0

	switch ds.Version {
	case 1:
		// rank-based type, then 4 reserved bytes
		ds.SpaceType = DataspaceSimple
		if rank == 0 {
			ds.SpaceType = DataspaceScalar
		}
		r.Skip(4)
	case 2:
		ds.SpaceType = DataspaceType(hdr[3])
	default:
		return nil, fmt.Errorf("unsupported dataspace version %d", ds.Version)
	}
	if ds.SpaceType != DataspaceSimple {
		return ds, nil
	}

	ds.Dimensions = make([]uint64, rank)
	for i := range ds.Dimensions {
		if ds.Dimensions[i], err = r.ReadLength(); err != nil {
			return nil, fmt.Errorf("dataspace dimensions truncated: %w", err)
		}
	}
	if hasMax {
		ds.MaxDims = make([]uint64, rank)
		for i := range ds.MaxDims {
			if ds.MaxDims[i], err = r.ReadLength(); err != nil {
				return nil, fmt.Errorf("dataspace max dimensions truncated: %w", err)
			}
		}
	}
	return ds, nil
}
