package layout

import (
	"fmt"

	"github.com/robert-malhotra/go-shadowmask/internal/alloc"
	"github.com/robert-malhotra/go-shadowmask/internal/binary"
	"github.com/robert-malhotra/go-shadowmask/internal/filter"
)

// ChunkStore writes the chunks of one dataset and keeps its index.
//
// Stored chunks are reference counted by address so several entries can
// point at the same bytes. A chunk is rewritten in place only when exactly
// one entry refers to it and the new encoding has the same size; otherwise
// new space is allocated and the old block released once nothing refers to
// it.
type ChunkStore struct {
	w          *binary.Writer
	alloc      *alloc.Allocator
	pipeline   *filter.Pipeline
	index      *FixedArray
	chunkBytes int
	refs       map[uint64]int
	dirty      bool
}

// NewChunkStore allocates an empty index of numChunks entries for chunks of
// chunkBytes uncompressed bytes and writes it to the file.
func NewChunkStore(w *binary.Writer, a *alloc.Allocator, pipeline *filter.Pipeline, numChunks, chunkBytes int, pageBits uint8) (*ChunkStore, error) {
	if numChunks <= 0 || chunkBytes <= 0 {
		return nil, fmt.Errorf("chunk store needs at least one non-empty chunk, got %d of %d bytes", numChunks, chunkBytes)
	}
	index := NewFixedArray(w.Config(), numChunks, uint64(chunkBytes), !pipeline.Empty(), pageBits)
	index.Place(
		a.Alloc(uint64(index.HeaderSize()), alloc.TagChunkIndex),
		a.Alloc(uint64(index.DataBlockSize()), alloc.TagChunkIndex),
	)
	s := &ChunkStore{
		w:          w,
		alloc:      a,
		pipeline:   pipeline,
		index:      index,
		chunkBytes: chunkBytes,
		refs:       make(map[uint64]int),
	}
	if err := index.Write(w); err != nil {
		return nil, err
	}
	return s, nil
}

// IndexAddress returns the address the layout message must point at.
func (s *ChunkStore) IndexAddress() uint64 {
	return s.index.HeaderAddress()
}

// Index returns the in-memory index.
func (s *ChunkStore) Index() *FixedArray {
	return s.index
}

// NumChunks returns the number of index entries.
func (s *ChunkStore) NumChunks() int {
	return s.index.Len()
}

// WriteChunk encodes data and stores it as chunk i.
func (s *ChunkStore) WriteChunk(i int, data []byte) (Entry, error) {
	old, err := s.index.Entry(i)
	if err != nil {
		return Entry{}, err
	}
	if len(data) != s.chunkBytes {
		return Entry{}, fmt.Errorf("chunk %d is %d bytes, expected %d", i, len(data), s.chunkBytes)
	}
	encoded, mask, err := s.pipeline.Encode(data)
	if err != nil {
		return Entry{}, fmt.Errorf("encoding chunk %d: %w", i, err)
	}

	e := Entry{Size: uint64(len(encoded)), FilterMask: mask}
	if s.index.Allocated(old) && s.refs[old.Address] == 1 && s.storedSize(old) == e.Size {
		e.Address = old.Address
	} else {
		e.Address = s.alloc.Alloc(e.Size, alloc.TagChunk)
		s.unref(old)
		s.refs[e.Address]++
	}
	if err := s.w.At(int64(e.Address)).WriteBytes(encoded); err != nil {
		return Entry{}, fmt.Errorf("writing chunk %d: %w", i, err)
	}
	if !s.index.Filtered() {
		e.Size = 0
	}
	s.dirty = true
	return e, s.index.Set(i, e)
}

// StoreShared encodes data and stores it without assigning it to an entry.
// The returned entry can be linked to any number of chunks with Link and
// stays alive for the lifetime of the store.
func (s *ChunkStore) StoreShared(data []byte) (Entry, error) {
	if len(data) != s.chunkBytes {
		return Entry{}, fmt.Errorf("shared chunk is %d bytes, expected %d", len(data), s.chunkBytes)
	}
	encoded, mask, err := s.pipeline.Encode(data)
	if err != nil {
		return Entry{}, fmt.Errorf("encoding shared chunk: %w", err)
	}
	e := Entry{Address: s.alloc.Alloc(uint64(len(encoded)), alloc.TagChunk), Size: uint64(len(encoded)), FilterMask: mask}
	if err := s.w.At(int64(e.Address)).WriteBytes(encoded); err != nil {
		return Entry{}, fmt.Errorf("writing shared chunk: %w", err)
	}
	if !s.index.Filtered() {
		e.Size = 0
	}
	// pinned
	s.refs[e.Address]++
	return e, nil
}

// Link points chunk i at an already stored chunk.
func (s *ChunkStore) Link(i int, e Entry) error {
	if s.refs[e.Address] == 0 {
		return fmt.Errorf("linking chunk %d: no stored chunk at 0x%x", i, e.Address)
	}
	old, err := s.index.Entry(i)
	if err != nil {
		return err
	}
	if old == e {
		return nil
	}
	s.refs[e.Address]++
	s.unref(old)
	s.dirty = true
	return s.index.Set(i, e)
}

func (s *ChunkStore) unref(e Entry) {
	if !s.index.Allocated(e) {
		return
	}
	s.refs[e.Address]--
	if s.refs[e.Address] > 0 {
		return
	}
	delete(s.refs, e.Address)
	s.alloc.Release(e.Address, s.storedSize(e))
}

func (s *ChunkStore) storedSize(e Entry) uint64 {
	if s.index.Filtered() {
		return e.Size
	}
	return uint64(s.chunkBytes)
}

// Flush rewrites the index if any entry changed since the last flush.
func (s *ChunkStore) Flush() error {
	if !s.dirty {
		return nil
	}
	if err := s.index.Write(s.w); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// ReadChunk loads and decodes the chunk described by e. Unfiltered entries
// carry no size, so chunkBytes is read.
func ReadChunk(r *binary.Reader, e Entry, pipeline *filter.Pipeline, chunkBytes int) ([]byte, error) {
	size := int(e.Size)
	if pipeline.Empty() {
		size = chunkBytes
	}
	raw, err := r.At(int64(e.Address)).ReadBytes(size)
	if err != nil {
		return nil, fmt.Errorf("reading chunk at 0x%x: %w", e.Address, err)
	}
	data, err := pipeline.Decode(raw, e.FilterMask)
	if err != nil {
		return nil, fmt.Errorf("decoding chunk at 0x%x: %w", e.Address, err)
	}
	if len(data) != chunkBytes {
		return nil, fmt.Errorf("chunk at 0x%x decoded to %d bytes, expected %d", e.Address, len(data), chunkBytes)
	}
	return data, nil
}
