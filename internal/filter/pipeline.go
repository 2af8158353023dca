package filter

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-shadowmask/internal/message"
)

// Pipeline applies a dataset's filters to chunk data.
type Pipeline struct {
	filters  []Filter
	optional []bool
}

// NewPipeline creates a filter pipeline from a FilterPipeline message.
func NewPipeline(fp *message.FilterPipeline) (*Pipeline, error) {
	if fp == nil || len(fp.Filters) == 0 {
		return &Pipeline{}, nil
	}
	p := &Pipeline{
		filters:  make([]Filter, 0, len(fp.Filters)),
		optional: make([]bool, 0, len(fp.Filters)),
	}
	for _, info := range fp.Filters {
		f, err := New(info)
		if err != nil {
			return nil, fmt.Errorf("creating filter %d: %w", info.ID, err)
		}
		p.filters = append(p.filters, f)
		p.optional = append(p.optional, info.IsOptional())
	}
	return p, nil
}

// Encode runs data through the filters in order and returns the stored
// bytes with the chunk's filter mask.
func (p *Pipeline) Encode(input []byte) ([]byte, uint32, error) {
	data := input
	var mask uint32
	for i, f := range p.filters {
		out, err := f.Encode(data)
		if err != nil {
			if p.optional[i] {
				mask |= 1 << uint(i)
				continue
			}
			if errors.Is(err, ErrIncompressible) {
				return nil, 0, fmt.Errorf("%s filter is mandatory: %w", Name(f.ID()), err)
			}
			return nil, 0, fmt.Errorf("filter %d encode: %w", f.ID(), err)
		}
		data = out
	}
	return data, mask, nil
}

// Decode applies the filter pipeline to encoded data.
// The filterMask specifies which filters to skip (bit i = skip filter i).
// Filters are applied in reverse order (last filter first).
func (p *Pipeline) Decode(input []byte, filterMask uint32) ([]byte, error) {
	data := input
	for i := len(p.filters) - 1; i >= 0; i-- {
		if filterMask&(1<<uint(i)) != 0 {
			continue
		}
		var err error
		data, err = p.filters[i].Decode(data)
		if err != nil {
			return nil, fmt.Errorf("filter %d decode: %w", p.filters[i].ID(), err)
		}
	}
	return data, nil
}

// Empty returns true if the pipeline has no filters.
func (p *Pipeline) Empty() bool {
	return len(p.filters) == 0
}

// Len returns the number of filters in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.filters)
}
