// Package layout stores the chunks of a chunked HDF5 dataset and maintains
// their Fixed Array index.
//
// A mask volume has a fixed shape known at creation time, so its chunk count
// never changes and the Fixed Array ("FAHD"/"FADB") is the natural index: one
// entry per chunk, in row-major order over the chunk grid. The index is
// allocated up front with every entry undefined, and entries are filled in as
// chunks are written. Unallocated entries read back as the dataset's fill
// value.
//
// # Index Layout
//
// The header records the entry size, the page bits and the number of
// entries. When the entry count exceeds 1<<pageBits the data block is paged:
// it carries a page initialisation bitmap instead of the entries, and the
// pages follow it, each with its own checksum.
//
// Unfiltered datasets store a bare chunk address per entry. Filtered ones
// store the address, the encoded chunk size and the chunk's filter mask; the
// size field width is derived from the uncompressed chunk size the same way
// the HDF5 library derives it.
//
// # Key Types
//
//   - [FixedArray]: the in-memory index, its encoding and decoding
//   - [ChunkStore]: writes chunks through a filter pipeline and keeps the
//     index current, sharing stored chunks between entries when asked
//   - [ReadChunk]: loads and decodes one stored chunk
package layout
