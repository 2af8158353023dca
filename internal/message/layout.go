package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/go-shadowmask/internal/binary"
)

// LayoutClass represents the storage layout class.
type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0
	LayoutContiguous LayoutClass = 1
	LayoutChunked    LayoutClass = 2
)

// ChunkIndexType is the chunk index of a version 4 chunked layout.
type ChunkIndexType uint8

const (
	ChunkIndexSingleChunk     ChunkIndexType = 1
	ChunkIndexImplicit        ChunkIndexType = 2
	ChunkIndexFixedArray      ChunkIndexType = 3
	ChunkIndexExtensibleArray ChunkIndexType = 4
	ChunkIndexBTreeV2         ChunkIndexType = 5
)

func (t ChunkIndexType) String() string {
	switch t {
	case ChunkIndexSingleChunk:
		return "single chunk"
	case ChunkIndexImplicit:
		return "implicit"
	case ChunkIndexFixedArray:
		return "fixed array"
	case ChunkIndexExtensibleArray:
		return "extensible array"
	case ChunkIndexBTreeV2:
		return "v2 B-tree"
	}
	return fmt.Sprintf("index type %d", uint8(t))
}

// DataLayout represents a data layout message (type 0x0008).
type DataLayout struct {
	Version uint8
	Class   LayoutClass

	// Contiguous layout
	Address uint64
	Size    uint64

	// Chunked layout. ChunkDims has one more entry than the dataspace rank:
	// the last one is the element size in bytes.
	ChunkFlags     uint8
	ChunkDims      []uint64
	ChunkIndexType ChunkIndexType
	PageBits       uint8 // fixed array only
	ChunkIndexAddr uint64
}

func (m *DataLayout) Type() Type { return TypeDataLayout }

// NewFixedArrayLayout creates a version 4 chunked layout indexed by a fixed
// array. chunkDims are the user-facing chunk dimensions.
func NewFixedArrayLayout(chunkDims []uint64, elementSize uint32, pageBits uint8, indexAddr uint64) *DataLayout {
	dims := make([]uint64, len(chunkDims)+1)
	copy(dims, chunkDims)
	dims[len(chunkDims)] = uint64(elementSize)
	return &DataLayout{
		Version:        4,
		Class:          LayoutChunked,
		ChunkDims:      dims,
		ChunkIndexType: ChunkIndexFixedArray,
		PageBits:       pageBits,
		ChunkIndexAddr: indexAddr,
	}
}

// ChunkShape returns the chunk dimensions without the element size entry.
func (m *DataLayout) ChunkShape() []uint64 {
	if len(m.ChunkDims) == 0 {
		return nil
	}
	return m.ChunkDims[:len(m.ChunkDims)-1]
}

// ElementSize returns the element size recorded with the chunk dimensions.
func (m *DataLayout) ElementSize() uint64 {
	if len(m.ChunkDims) == 0 {
		return 0
	}
	return m.ChunkDims[len(m.ChunkDims)-1]
}

func (m *DataLayout) dimSizeBytes() int {
	var largest uint64
	for _, d := range m.ChunkDims {
		if d > largest {
			largest = d
		}
	}
	return binpkg.BytesFor(largest)
}

func (m *DataLayout) indexInfoSize() int {
	switch m.ChunkIndexType {
	case ChunkIndexFixedArray:
		return 1
	case ChunkIndexExtensibleArray:
		return 5
	case ChunkIndexBTreeV2:
		return 6
	}
	return 0
}

// Serialize writes the layout. Chunked layouts use version 4, the only
// version that can reference a fixed array index.
func (m *DataLayout) Serialize(w *binpkg.Writer) error {
	version := uint8(3)
	if m.Class == LayoutChunked {
		version = 4
	}
	if err := w.WriteUint8(version); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(m.Class)); err != nil {
		return err
	}

	switch m.Class {
	case LayoutContiguous:
		if err := w.WriteOffset(m.Address); err != nil {
			return err
		}
		return w.WriteLength(m.Size)
	case LayoutChunked:
		dimBytes := m.dimSizeBytes()
		for _, b := range []uint8{m.ChunkFlags, uint8(len(m.ChunkDims)), uint8(dimBytes)} {
			if err := w.WriteUint8(b); err != nil {
				return err
			}
		}
		for _, d := range m.ChunkDims {
			if err := w.WriteUintN(d, dimBytes); err != nil {
				return err
			}
		}
		if err := w.WriteUint8(uint8(m.ChunkIndexType)); err != nil {
			return err
		}
		if m.ChunkIndexType != ChunkIndexFixedArray {
			return fmt.Errorf("writing %s chunk index: not supported", m.ChunkIndexType)
		}
		if err := w.WriteUint8(m.PageBits); err != nil {
			return err
		}
		return w.WriteOffset(m.ChunkIndexAddr)
	}
	return fmt.Errorf("writing layout class %d: not supported", m.Class)
}

// SerializedSize returns the size in bytes when serialized.
func (m *DataLayout) SerializedSize(w *binpkg.Writer) int {
	size := 2
	switch m.Class {
	case LayoutContiguous:
		size += w.OffsetSize() + w.LengthSize()
	case LayoutChunked:
		size += 3 + len(m.ChunkDims)*m.dimSizeBytes()
		size += 1 + m.indexInfoSize() + w.OffsetSize()
	}
	return size
}

func parseDataLayout(r *binpkg.Reader) (*DataLayout, error) {
	hdr, err := r.ReadBytes(2)
	if err != nil {
		return nil, fmt.Errorf("data layout message too short: %w", err)
	}
	m := &DataLayout{Version: hdr[0], Class: LayoutClass(hdr[1])}
	if m.Version < 3 || m.Version > 4 {
		return nil, fmt.Errorf("unsupported data layout version %d", m.Version)
	}

	switch m.Class {
	case LayoutContiguous:
		if m.Address, err = r.ReadOffset(); err != nil {
			return nil, err
		}
		if m.Size, err = r.ReadLength(); err != nil {
			return nil, err
		}
		return m, nil
	case LayoutChunked:
		if m.Version != 4 {
			return nil, fmt.Errorf("chunked layout version %d not supported", m.Version)
		}
		return parseChunkedV4(r, m)
	}
	return nil, fmt.Errorf("layout class %d not supported", m.Class)
}

func parseChunkedV4(r *binpkg.Reader, m *DataLayout) (*DataLayout, error) {
	hdr, err := r.ReadBytes(3)
	if err != nil {
		return nil, fmt.Errorf("chunked layout truncated: %w", err)
	}
	m.ChunkFlags = hdr[0]
	ndims, dimBytes := int(hdr[1]), int(hdr[2])
	m.ChunkDims = make([]uint64, ndims)
	for i := range m.ChunkDims {
		if m.ChunkDims[i], err = r.ReadUintN(dimBytes); err != nil {
			return nil, fmt.Errorf("chunk dimensions truncated: %w", err)
		}
	}
	idx, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	m.ChunkIndexType = ChunkIndexType(idx)
	switch m.ChunkIndexType {
	case ChunkIndexFixedArray:
		if m.PageBits, err = r.ReadUint8(); err != nil {
			return nil, err
		}
	default:
		r.Skip(int64(m.indexInfoSize()))
	}
	if m.ChunkIndexAddr, err = r.ReadOffset(); err != nil {
		return nil, fmt.Errorf("chunk index address truncated: %w", err)
	}
	return m, nil
}
