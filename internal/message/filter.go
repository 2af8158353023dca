package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/go-shadowmask/internal/binary"
)

// Filter IDs. IDs below 256 are reserved by the HDF5 library; the rest are
// registered third-party plugins.
const (
	FilterDeflate     uint16 = 1
	FilterShuffle     uint16 = 2
	FilterFletcher32  uint16 = 3
	FilterSZIP        uint16 = 4
	FilterNBit        uint16 = 5
	FilterScaleOffset uint16 = 6
	FilterLZF         uint16 = 32000
	FilterLZ4         uint16 = 32004
)

// FilterOptional marks a filter that may be skipped for a chunk it cannot help.
const FilterOptional uint16 = 0x0001

// FilterInfo describes a single filter in the pipeline.
type FilterInfo struct {
	ID         uint16
	Flags      uint16
	Name       string
	ClientData []uint32
}

// IsOptional returns true if this filter is optional.
func (f *FilterInfo) IsOptional() bool {
	return f.Flags&FilterOptional != 0
}

// nameField returns the encoded name: NUL terminated, present only for
// plugin filters in a version 2 pipeline.
func (f *FilterInfo) nameField() []byte {
	if f.ID < 256 || f.Name == "" {
		return nil
	}
	return append([]byte(f.Name), 0)
}

// FilterPipeline represents a filter pipeline message (type 0x000B).
type FilterPipeline struct {
	Version uint8
	Filters []FilterInfo
}

func (m *FilterPipeline) Type() Type { return TypeFilterPipeline }

// NewFilterPipeline returns a version 2 pipeline.
func NewFilterPipeline(filters ...FilterInfo) *FilterPipeline {
	return &FilterPipeline{Version: 2, Filters: filters}
}

// HasFilter returns true if the pipeline contains the given filter ID.
func (m *FilterPipeline) HasFilter(id uint16) bool {
	for _, f := range m.Filters {
		if f.ID == id {
			return true
		}
	}
	return false
}

// Serialize writes the pipeline in version 2 format.
func (m *FilterPipeline) Serialize(w *binpkg.Writer) error {
	if err := w.WriteUint8(2); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(len(m.Filters))); err != nil {
		return err
	}
	for _, f := range m.Filters {
		if err := w.WriteUint16(f.ID); err != nil {
			return err
		}
		name := f.nameField()
		if f.ID >= 256 {
			if err := w.WriteUint16(uint16(len(name))); err != nil {
				return err
			}
		}
		if err := w.WriteUint16(f.Flags); err != nil {
			return err
		}
		if err := w.WriteUint16(uint16(len(f.ClientData))); err != nil {
			return err
		}
		if err := w.WriteBytes(name); err != nil {
			return err
		}
		for _, cd := range f.ClientData {
			if err := w.WriteUint32(cd); err != nil {
				return err
			}
		}
	}
	return nil
}

// SerializedSize returns the size in bytes when serialized.
func (m *FilterPipeline) SerializedSize(w *binpkg.Writer) int {
	size := 2
	for _, f := range m.Filters {
		size += 6 + len(f.nameField()) + 4*len(f.ClientData)
		if f.ID >= 256 {
			size += 2
		}
	}
	return size
}

func parseFilterPipeline(r *binpkg.Reader) (*FilterPipeline, error) {
	hdr, err := r.ReadBytes(2)
	if err != nil {
		return nil, fmt.Errorf("filter pipeline message too short: %w", err)
	}
	fp := &FilterPipeline{Version: hdr[0], Filters: make([]FilterInfo, hdr[1])}
	switch fp.Version {
	case 1:
		r.Skip(6)
	case 2:
	default:
		return nil, fmt.Errorf("unsupported filter pipeline version %d", fp.Version)
	}
	for i := range fp.Filters {
		if fp.Filters[i], err = parseFilterInfo(r, fp.Version); err != nil {
			return nil, fmt.Errorf("parsing filter %d: %w", i, err)
		}
	}
	return fp, nil
}

func parseFilterInfo(r *binpkg.Reader, version uint8) (FilterInfo, error) {
	var f FilterInfo
	var err error
	if f.ID, err = r.ReadUint16(); err != nil {
		return f, err
	}
	var nameLen uint16
	if version == 1 || f.ID >= 256 {
		if nameLen, err = r.ReadUint16(); err != nil {
			return f, err
		}
	}
	if f.Flags, err = r.ReadUint16(); err != nil {
		return f, err
	}
	numCD, err := r.ReadUint16()
	if err != nil {
		return f, err
	}
	if nameLen > 0 {
		raw, err := r.ReadBytes(int(nameLen))
		if err != nil {
			return f, fmt.Errorf("filter name truncated: %w", err)
		}
		end := 0
		for end < len(raw) && raw[end] != 0 {
			end++
		}
		f.Name = string(raw[:end])
		if version == 1 && nameLen%8 != 0 {
			r.Skip(int64(8 - nameLen%8))
		}
	}
	f.ClientData = make([]uint32, numCD)
	for j := range f.ClientData {
		if f.ClientData[j], err = r.ReadUint32(); err != nil {
			return f, fmt.Errorf("client data truncated: %w", err)
		}
	}
	if version == 1 && numCD%2 != 0 {
		r.Skip(4)
	}
	return f, nil
}
