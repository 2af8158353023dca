package shadow

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/robert-malhotra/go-shadowmask/internal/filter"
	"github.com/robert-malhotra/go-shadowmask/internal/h5"
	"github.com/robert-malhotra/go-shadowmask/internal/message"
)

// Compression names understood without help from the storage layer.
const (
	CompressionGzip = "gzip"
	CompressionLZF  = "lzf"
	CompressionLZ4  = "lz4"
	CompressionNone = "none"
)

// Compression is a resolved codec choice. FilterID is the HDF5 filter
// identifier, 0 when the volume is stored uncompressed or when the name is
// handed to the storage layer unresolved.
type Compression struct {
	Name     string
	FilterID uint16
	opaque   bool
}

// Resolved reports whether the codec was mapped to a filter identifier (or
// to no compression) before reaching the storage layer.
func (c Compression) Resolved() bool { return !c.opaque }

// String returns the codec name, with the filter identifier when known.
func (c Compression) String() string {
	switch {
	case c.opaque:
		return c.Name
	case c.FilterID == 0:
		return CompressionNone
	case c.Name == "":
		return filter.Name(c.FilterID)
	}
	return c.Name + " (filter " + strconv.Itoa(int(c.FilterID)) + ")"
}

// ResolveCompression maps a codec name to an HDF5 filter. gzip, lzf and lz4
// map to their registered identifiers, none or an empty name to no filter,
// and a decimal number is taken as a filter identifier verbatim. Any other
// name is passed through unresolved; the storage layer decides whether it
// knows it. Names containing whitespace or control characters are rejected
// with an UnsupportedCompressionError.
func ResolveCompression(name string) (Compression, error) {
	if strings.IndexFunc(name, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return Compression{}, &UnsupportedCompressionError{Name: name}
	}
	switch lower := strings.ToLower(name); lower {
	case "", CompressionNone:
		return Compression{Name: CompressionNone}, nil
	case CompressionGzip:
		return Compression{Name: lower, FilterID: message.FilterDeflate}, nil
	case CompressionLZF:
		return Compression{Name: lower, FilterID: message.FilterLZF}, nil
	case CompressionLZ4:
		return Compression{Name: lower, FilterID: message.FilterLZ4}, nil
	}
	if strings.Trim(name, "0123456789") == "" {
		id, err := strconv.ParseUint(name, 10, 16)
		if err != nil || id == 0 {
			return Compression{}, &UnsupportedCompressionError{Name: name}
		}
		return Compression{FilterID: uint16(id)}, nil
	}
	return Compression{Name: name, opaque: true}, nil
}

// datasetOption translates the codec into the storage layer's terms.
func (c Compression) datasetOption(chunkBytes int) h5.DatasetOption {
	switch {
	case c.opaque:
		return h5.WithNamedFilter(c.Name)
	case c.FilterID == 0:
		return nil
	case c.Name != "":
		if info, err := filter.Lookup(c.Name, chunkBytes); err == nil {
			return h5.WithFilters(info)
		}
	}
	return h5.WithFilters(message.FilterInfo{ID: c.FilterID})
}
