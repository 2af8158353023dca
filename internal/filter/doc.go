// Package filter implements the HDF5 filter pipeline in both directions.
//
// Chunks pass through the pipeline's filters in order when written and in
// reverse order when read. Each stored chunk carries a filter mask; bit i
// set means filter i was skipped for that chunk.
//
// # Supported Filters
//
//   - DEFLATE (ID 1): zlib compression via [Deflate], using compress/zlib.
//     This is what h5py writes for compression="gzip".
//
//   - Shuffle (ID 2): byte shuffling via [Shuffle].
//
//   - Fletcher32 (ID 3): a trailing checksum via [Fletcher32Filter].
//
//   - LZF (ID 32000): the h5py LZF filter via [LZF], backed by
//     github.com/zhuyie/golzf.
//
//   - LZ4 (ID 32004): the HDF5 LZ4 plugin via [LZ4], backed by
//     github.com/pierrec/lz4/v4. Chunks use the plugin's framing: an 8-byte
//     big-endian original size, a 4-byte block size, then per block a
//     4-byte compressed size and the block bytes.
//
// # Optional Filters
//
// A filter may report [ErrIncompressible] when its output would not be
// smaller than its input. If the filter is marked optional in the pipeline,
// [Pipeline.Encode] stores the data untouched and sets the filter's mask bit;
// a mandatory filter turns the condition into an error.
package filter
