package h5

import (
	"github.com/robert-malhotra/go-shadowmask/internal/layout"
	"github.com/robert-malhotra/go-shadowmask/internal/message"
)

// DatasetOption configures dataset creation options.
type DatasetOption func(*datasetOptions)

type datasetOptions struct {
	filters  []message.FilterInfo
	named    []string
	fill     []byte
	pageBits uint8
}

func defaultDatasetOptions() *datasetOptions {
	return &datasetOptions{pageBits: layout.DefaultPageBits}
}

// WithFilters sets the dataset's filter pipeline, applied in order on write.
func WithFilters(filters ...message.FilterInfo) DatasetOption {
	return func(o *datasetOptions) {
		o.filters = append(o.filters, filters...)
	}
}

// WithNamedFilter appends a filter given by name. The name is resolved when
// the dataset is created; unknown names fail creation.
func WithNamedFilter(name string) DatasetOption {
	return func(o *datasetOptions) {
		o.named = append(o.named, name)
	}
}

// WithFillValue sets the value unwritten chunks read back as. The value must
// be one element wide.
func WithFillValue(value []byte) DatasetOption {
	return func(o *datasetOptions) {
		o.fill = value
	}
}

// WithPageBits sets log2 of the number of index entries per page.
func WithPageBits(bits uint8) DatasetOption {
	return func(o *datasetOptions) {
		if bits > 0 && bits < 32 {
			o.pageBits = bits
		}
	}
}
