package h5

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/go-shadowmask/internal/alloc"
	"github.com/robert-malhotra/go-shadowmask/internal/filter"
	"github.com/robert-malhotra/go-shadowmask/internal/layout"
	"github.com/robert-malhotra/go-shadowmask/internal/message"
	"github.com/robert-malhotra/go-shadowmask/internal/object"
)

// Dataset is a fixed-shape chunked dataset.
type Dataset struct {
	file *File
	path string
	addr uint64

	dataspace *message.Dataspace
	datatype  *message.Datatype
	fill      []byte
	filters   *message.FilterPipeline
	layout    *message.DataLayout

	pipeline   *filter.Pipeline
	chunkGrid  []uint64
	chunkBytes int

	store *layout.ChunkStore // writable files
	index *layout.FixedArray // files opened for reading
}

// CreateChunkedDataset creates a dataset of the given shape split into
// chunks of the given shape. Every chunk starts unallocated and reads back
// as the fill value until written.
func (g *Group) CreateChunkedDataset(name string, dt *message.Datatype, shape, chunk []uint64, opts ...DatasetOption) (*Dataset, error) {
	if err := g.file.checkWritable(); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, err
	}
	if g.Has(name) {
		return nil, fmt.Errorf("%w: %s", ErrExists, g.childPath(name))
	}
	if len(shape) == 0 || len(shape) != len(chunk) {
		return nil, fmt.Errorf("chunk rank %d does not match dataset rank %d", len(chunk), len(shape))
	}
	for i := range shape {
		if shape[i] == 0 || chunk[i] == 0 || chunk[i] > shape[i] {
			return nil, fmt.Errorf("chunk shape %v does not fit dataset shape %v", chunk, shape)
		}
	}

	options := defaultDatasetOptions()
	for _, opt := range opts {
		opt(options)
	}
	fill := options.fill
	if fill == nil {
		fill = make([]byte, dt.Size)
	}
	if len(fill) != int(dt.Size) {
		return nil, fmt.Errorf("fill value is %d bytes, element is %d", len(fill), dt.Size)
	}

	chunkBytes := int(dt.Size)
	for _, c := range chunk {
		chunkBytes *= int(c)
	}
	for _, fname := range options.named {
		info, err := filter.Lookup(fname, chunkBytes)
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", g.childPath(name), err)
		}
		options.filters = append(options.filters, info)
	}

	var pipelineMsg *message.FilterPipeline
	if len(options.filters) > 0 {
		pipelineMsg = message.NewFilterPipeline(options.filters...)
	}
	pipeline, err := filter.NewPipeline(pipelineMsg)
	if err != nil {
		return nil, err
	}

	d := &Dataset{
		file:      g.file,
		path:      g.childPath(name),
		dataspace: message.NewDataspace(shape),
		datatype:  dt,
		fill:      fill,
		filters:   pipelineMsg,
		pipeline:  pipeline,
	}
	d.initGrid(chunk)

	d.store, err = layout.NewChunkStore(g.file.writer, g.file.allocator, pipeline, d.NumChunks(), d.chunkBytes, options.pageBits)
	if err != nil {
		return nil, fmt.Errorf("creating chunk index for %s: %w", d.path, err)
	}
	d.layout = message.NewFixedArrayLayout(chunk, dt.Size, options.pageBits, d.store.IndexAddress())

	msgs := object.NewDatasetHeader(d.dataspace, dt, message.NewFillValue(fill), pipelineMsg, d.layout)
	size, err := object.HeaderSize(g.file.writer.Config(), msgs, 0)
	if err != nil {
		return nil, err
	}
	d.addr = g.file.allocator.Alloc(uint64(size), alloc.TagObjectHeader)
	if _, err := object.WriteHeader(g.file.writer.At(int64(d.addr)), msgs, 0); err != nil {
		return nil, fmt.Errorf("writing dataset header: %w", err)
	}
	if err := g.addLink(message.NewHardLink(name, d.addr)); err != nil {
		return nil, fmt.Errorf("adding link to parent: %w", err)
	}
	g.file.datasets = append(g.file.datasets, d)
	return d, nil
}

func (d *Dataset) initGrid(chunk []uint64) {
	d.chunkGrid = make([]uint64, len(chunk))
	d.chunkBytes = int(d.datatype.Size)
	for i, c := range chunk {
		d.chunkGrid[i] = (d.dataspace.Dimensions[i] + c - 1) / c
		d.chunkBytes *= int(c)
	}
}

// OpenDataset opens the member dataset called name.
func (g *Group) OpenDataset(name string) (*Dataset, error) {
	l, err := g.link(name)
	if err != nil {
		return nil, err
	}
	if l.LinkType != message.LinkTypeHard {
		return nil, fmt.Errorf("%w: %s is not a hard link", ErrUnsupported, g.childPath(name))
	}
	for _, d := range g.file.datasets {
		if d.addr == l.ObjectAddress {
			return d, nil
		}
	}

	hdr, err := object.Read(g.file.reader, l.ObjectAddress)
	if err != nil {
		return nil, err
	}
	if !hdr.IsDataset() {
		return nil, fmt.Errorf("%w: %s", ErrNotDataset, g.childPath(name))
	}
	d := &Dataset{
		file:      g.file,
		path:      g.childPath(name),
		addr:      l.ObjectAddress,
		dataspace: hdr.Dataspace(),
		datatype:  hdr.Datatype(),
		filters:   hdr.FilterPipeline(),
		layout:    hdr.DataLayout(),
	}
	if d.dataspace == nil || d.datatype == nil {
		return nil, fmt.Errorf("%w: %s lacks a dataspace or datatype", ErrNotDataset, d.path)
	}
	if d.layout.Class != message.LayoutChunked || d.layout.ChunkIndexType != message.ChunkIndexFixedArray {
		return nil, fmt.Errorf("%w: %s is not chunked with a fixed array index", ErrUnsupported, d.path)
	}
	if len(d.layout.ChunkShape()) != d.dataspace.Rank() {
		return nil, fmt.Errorf("%w: %s chunk rank mismatch", ErrUnsupported, d.path)
	}

	d.fill = make([]byte, d.datatype.Size)
	if fv := hdr.FillValue(); fv != nil && fv.Defined && len(fv.Value) == int(d.datatype.Size) {
		d.fill = fv.Value
	}
	if d.pipeline, err = filter.NewPipeline(d.filters); err != nil {
		return nil, fmt.Errorf("%s: %w", d.path, err)
	}
	d.initGrid(d.layout.ChunkShape())
	if d.index, err = layout.ReadFixedArray(g.file.reader, d.layout.ChunkIndexAddr); err != nil {
		return nil, fmt.Errorf("%s: %w", d.path, err)
	}
	if d.index.Len() != d.NumChunks() {
		return nil, fmt.Errorf("%w: %s index has %d entries for %d chunks", ErrUnsupported, d.path, d.index.Len(), d.NumChunks())
	}
	return d, nil
}

// Path returns the absolute path of the dataset.
func (d *Dataset) Path() string { return d.path }

// Shape returns the dataset dimensions.
func (d *Dataset) Shape() []uint64 { return d.dataspace.Dimensions }

// ChunkShape returns the chunk dimensions.
func (d *Dataset) ChunkShape() []uint64 { return d.layout.ChunkShape() }

// Datatype returns the element type.
func (d *Dataset) Datatype() *message.Datatype { return d.datatype }

// FillValue returns the bytes of one fill element.
func (d *Dataset) FillValue() []byte { return d.fill }

// Filters returns the dataset's filter pipeline, empty when unfiltered.
func (d *Dataset) Filters() []message.FilterInfo {
	if d.filters == nil {
		return nil
	}
	return d.filters.Filters
}

// NumChunks returns the number of chunks in the dataset.
func (d *Dataset) NumChunks() int {
	n := 1
	for _, c := range d.chunkGrid {
		n *= int(c)
	}
	return n
}

// ChunkBytes returns the uncompressed size of one chunk.
func (d *Dataset) ChunkBytes() int { return d.chunkBytes }

// ChunkIndex returns the linear index of the chunk with the given grid
// coordinates, in row-major order.
func (d *Dataset) ChunkIndex(coords ...uint64) (int, error) {
	if len(coords) != len(d.chunkGrid) {
		return 0, fmt.Errorf("%d chunk coordinates for a rank %d dataset", len(coords), len(d.chunkGrid))
	}
	idx := 0
	for i, c := range coords {
		if c >= d.chunkGrid[i] {
			return 0, fmt.Errorf("%w: coordinate %d is %d, grid is %v", layout.ErrOutOfRange, i, c, d.chunkGrid)
		}
		idx = idx*int(d.chunkGrid[i]) + int(c)
	}
	return idx, nil
}

func (d *Dataset) checkWritable() error {
	if err := d.file.checkWritable(); err != nil {
		return err
	}
	if d.store == nil {
		return ErrReadOnly
	}
	return nil
}

// WriteChunk stores data as chunk i. data must be exactly ChunkBytes long.
func (d *Dataset) WriteChunk(i int, data []byte) error {
	if err := d.checkWritable(); err != nil {
		return err
	}
	_, err := d.store.WriteChunk(i, data)
	return err
}

// ShareChunk stores data once so it can be linked to several chunks.
func (d *Dataset) ShareChunk(data []byte) (layout.Entry, error) {
	if err := d.checkWritable(); err != nil {
		return layout.Entry{}, err
	}
	return d.store.StoreShared(data)
}

// LinkChunk makes chunk i refer to a chunk stored by ShareChunk.
func (d *Dataset) LinkChunk(i int, e layout.Entry) error {
	if err := d.checkWritable(); err != nil {
		return err
	}
	return d.store.Link(i, e)
}

func (d *Dataset) entries() *layout.FixedArray {
	if d.store != nil {
		return d.store.Index()
	}
	return d.index
}

// ChunkEntry returns where chunk i is stored and whether it is allocated.
func (d *Dataset) ChunkEntry(i int) (layout.Entry, bool, error) {
	if d.file.closed {
		return layout.Entry{}, false, ErrClosed
	}
	idx := d.entries()
	e, err := idx.Entry(i)
	if err != nil {
		return layout.Entry{}, false, err
	}
	return e, idx.Allocated(e), nil
}

// ReadChunk returns the decoded contents of chunk i and whether it was ever
// written. Unwritten chunks come back filled with the fill value.
func (d *Dataset) ReadChunk(i int) ([]byte, bool, error) {
	e, ok, err := d.ChunkEntry(i)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return bytes.Repeat(d.fill, d.chunkBytes/len(d.fill)), false, nil
	}
	data, err := layout.ReadChunk(d.file.reader, e, d.pipeline, d.chunkBytes)
	if err != nil {
		return nil, false, fmt.Errorf("%s chunk %d: %w", d.path, i, err)
	}
	return data, true, nil
}
