package filter

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-shadowmask/internal/message"
)

// Errors
var (
	ErrUnknownFilter  = errors.New("unknown filter")
	ErrIncompressible = errors.New("data does not compress")
)

// Filter transforms chunk data on its way to and from the file.
type Filter interface {
	// ID returns the HDF5 filter identifier.
	ID() uint16

	// Encode applies the filter to raw chunk data.
	Encode(input []byte) ([]byte, error)

	// Decode reverses Encode.
	Decode(input []byte) ([]byte, error)
}

// Registry maps filter IDs to their constructors.
var Registry = map[uint16]func([]uint32) Filter{
	message.FilterDeflate:    func(cd []uint32) Filter { return NewDeflate(cd) },
	message.FilterShuffle:    func(cd []uint32) Filter { return NewShuffle(cd) },
	message.FilterFletcher32: func(cd []uint32) Filter { return NewFletcher32(cd) },
	message.FilterLZF:        func(cd []uint32) Filter { return NewLZF(cd) },
	message.FilterLZ4:        func(cd []uint32) Filter { return NewLZ4(cd) },
}

var filterNames = map[uint16]string{
	message.FilterDeflate:     "deflate",
	message.FilterShuffle:     "shuffle",
	message.FilterFletcher32:  "fletcher32",
	message.FilterSZIP:        "szip",
	message.FilterNBit:        "nbit",
	message.FilterScaleOffset: "scaleoffset",
	message.FilterLZF:         "lzf",
	message.FilterLZ4:         "lz4",
}

// Name returns a short human readable name for a filter ID.
func Name(id uint16) string {
	if name, ok := filterNames[id]; ok {
		return name
	}
	return fmt.Sprintf("filter %d", id)
}

// New creates a filter from its pipeline description.
func New(info message.FilterInfo) (Filter, error) {
	constructor, ok := Registry[info.ID]
	if !ok {
		if name, known := filterNames[info.ID]; known {
			return nil, fmt.Errorf("%w: %s (ID %d) is not implemented", ErrUnknownFilter, name, info.ID)
		}
		return nil, fmt.Errorf("%w: ID %d", ErrUnknownFilter, info.ID)
	}
	return constructor(info.ClientData), nil
}

// Lookup returns the pipeline entry for a filter given by name, with the
// client data h5py records for a chunk of chunkBytes bytes. Plugin filters
// are marked optional so chunks they cannot shrink are stored raw.
func Lookup(name string, chunkBytes int) (message.FilterInfo, error) {
	switch name {
	case "gzip", "deflate":
		return message.FilterInfo{ID: message.FilterDeflate, ClientData: []uint32{DefaultDeflateLevel}}, nil
	case "shuffle":
		return message.FilterInfo{ID: message.FilterShuffle, ClientData: []uint32{1}}, nil
	case "fletcher32":
		return message.FilterInfo{ID: message.FilterFletcher32}, nil
	case "lzf":
		return message.FilterInfo{
			ID:         message.FilterLZF,
			Flags:      message.FilterOptional,
			Name:       "lzf",
			ClientData: LZFClientData(chunkBytes),
		}, nil
	case "lz4":
		return message.FilterInfo{
			ID:         message.FilterLZ4,
			Flags:      message.FilterOptional,
			Name:       "lz4",
			ClientData: []uint32{0},
		}, nil
	}
	return message.FilterInfo{}, fmt.Errorf("%w: %q", ErrUnknownFilter, name)
}
