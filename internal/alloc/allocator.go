// Package alloc manages file space for the HDF5 writer.
//
// Space is handed out append-only from the current end of file. Every block is
// tagged with the kind of structure it holds so tests and the inspect tool can
// account for where the bytes of a mask file went. Blocks abandoned when a
// frame is rewritten with a different encoded size are recorded as stale; the
// space is not reused.
//
// An Allocator belongs to exactly one open file and is not safe for
// concurrent use.
package alloc

import "fmt"

// Tags used by the writer.
const (
	TagObjectHeader = "ohdr"
	TagChunk        = "chunk"
	TagChunkIndex   = "index"
)

// Allocator hands out file addresses.
type Allocator struct {
	eofAddr  uint64
	baseAddr uint64

	allocations []Allocation
	stats       Stats
}

// Allocation is a single block handed out by the allocator.
type Allocation struct {
	Addr uint64
	Size uint64
	Tag  string
}

// Stats summarises allocator activity.
type Stats struct {
	TotalAllocations uint64
	TotalBytesAlloc  uint64
	StaleBytes       uint64 // bytes of blocks released after a rewrite
	LargestAlloc     uint64
	BytesByTag       map[string]uint64
}

// New creates an Allocator whose first block starts at baseAddr, normally
// right after the superblock and root group header.
func New(baseAddr uint64) *Allocator {
	return &Allocator{
		eofAddr:  baseAddr,
		baseAddr: baseAddr,
		stats:    Stats{BytesByTag: make(map[string]uint64)},
	}
}

// Alloc reserves size bytes at the end of file and returns their address.
// A zero-sized request returns the current end of file without reserving.
func (a *Allocator) Alloc(size uint64, tag string) uint64 {
	if size == 0 {
		return a.eofAddr
	}
	addr := a.eofAddr
	a.eofAddr += size

	a.allocations = append(a.allocations, Allocation{Addr: addr, Size: size, Tag: tag})
	a.stats.TotalAllocations++
	a.stats.TotalBytesAlloc += size
	a.stats.BytesByTag[tag] += size
	if size > a.stats.LargestAlloc {
		a.stats.LargestAlloc = size
	}
	return addr
}

// Release marks a previously allocated block as stale.
func (a *Allocator) Release(addr, size uint64) {
	a.stats.StaleBytes += size
}

// EOFAddr returns the current end-of-file address.
func (a *Allocator) EOFAddr() uint64 {
	return a.eofAddr
}

// BaseAddr returns the first allocatable address.
func (a *Allocator) BaseAddr() uint64 {
	return a.baseAddr
}

// Stats returns a copy of the allocation statistics.
func (a *Allocator) Stats() Stats {
	s := a.stats
	s.BytesByTag = make(map[string]uint64, len(a.stats.BytesByTag))
	for k, v := range a.stats.BytesByTag {
		s.BytesByTag[k] = v
	}
	return s
}

// Allocations returns a copy of all blocks handed out so far.
func (a *Allocator) Allocations() []Allocation {
	out := make([]Allocation, len(a.allocations))
	copy(out, a.allocations)
	return out
}

// Validate checks that blocks lie within [base, eof) and do not overlap.
// Blocks are handed out in address order, so neighbours are enough.
func (a *Allocator) Validate() error {
	prevEnd := a.baseAddr
	for _, blk := range a.allocations {
		if blk.Addr < prevEnd {
			return fmt.Errorf("block at 0x%x (%s) overlaps previous block ending at 0x%x", blk.Addr, blk.Tag, prevEnd)
		}
		prevEnd = blk.Addr + blk.Size
	}
	if prevEnd > a.eofAddr {
		return fmt.Errorf("block ends at 0x%x past EOF 0x%x", prevEnd, a.eofAddr)
	}
	return nil
}
