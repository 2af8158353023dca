package filter

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/robert-malhotra/go-shadowmask/internal/message"
)

// DefaultLZ4BlockSize is the plugin's block size when client data gives none.
const DefaultLZ4BlockSize = 1 << 30

const lz4HeaderSize = 12

// LZ4 implements the HDF5 LZ4 plugin filter.
type LZ4 struct {
	blockSize int
}

// NewLZ4 creates a new LZ4 filter.
// Client data: [0] = block size in bytes (0 selects the default)
func NewLZ4(clientData []uint32) *LZ4 {
	blockSize := DefaultLZ4BlockSize
	if len(clientData) > 0 && clientData[0] > 0 {
		blockSize = int(clientData[0])
	}
	return &LZ4{blockSize: blockSize}
}

func (f *LZ4) ID() uint16 {
	return message.FilterLZ4
}

// Encode compresses input block by block. A block that does not compress is
// stored raw with its compressed size equal to its original size. The
// framing always adds a few bytes, so output that ends up no smaller than
// the input reports ErrIncompressible.
func (f *LZ4) Encode(input []byte) ([]byte, error) {
	blockSize := f.blockSize
	if blockSize > len(input) {
		blockSize = len(input)
	}
	if blockSize == 0 {
		return nil, ErrIncompressible
	}
	nBlocks := (len(input)-1)/blockSize + 1

	output := make([]byte, lz4HeaderSize, lz4HeaderSize+4*nBlocks+lz4.CompressBlockBound(len(input)))
	binary.BigEndian.PutUint64(output[0:8], uint64(len(input)))
	binary.BigEndian.PutUint32(output[8:12], uint32(blockSize))

	var c lz4.Compressor
	scratch := make([]byte, lz4.CompressBlockBound(blockSize))
	for start := 0; start < len(input); start += blockSize {
		end := min(start+blockSize, len(input))
		block := input[start:end]
		n, err := c.CompressBlock(block, scratch)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		output = binary.BigEndian.AppendUint32(output, 0)
		sizeAt := len(output) - 4
		if n == 0 || n >= len(block) {
			output = append(output, block...)
			n = len(block)
		} else {
			output = append(output, scratch[:n]...)
		}
		binary.BigEndian.PutUint32(output[sizeAt:], uint32(n))
	}
	if len(output) >= len(input) {
		return nil, ErrIncompressible
	}
	return output, nil
}

// Decode reverses Encode.
func (f *LZ4) Decode(input []byte) ([]byte, error) {
	if len(input) < lz4HeaderSize {
		return nil, fmt.Errorf("lz4: input too short for header")
	}
	origSize := binary.BigEndian.Uint64(input[0:8])
	blockSize := int(binary.BigEndian.Uint32(input[8:12]))
	if blockSize == 0 && origSize > 0 {
		return nil, fmt.Errorf("lz4: zero block size")
	}
	output := make([]byte, origSize)
	pos := lz4HeaderSize
	for start := 0; start < len(output); start += blockSize {
		end := min(start+blockSize, len(output))
		if pos+4 > len(input) {
			return nil, fmt.Errorf("lz4: block header truncated at %d", pos)
		}
		n := int(binary.BigEndian.Uint32(input[pos:]))
		pos += 4
		if pos+n > len(input) {
			return nil, fmt.Errorf("lz4: block of %d bytes truncated at %d", n, pos)
		}
		block := input[pos : pos+n]
		pos += n
		if n == end-start {
			copy(output[start:end], block)
			continue
		}
		got, err := lz4.UncompressBlock(block, output[start:end])
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if got != end-start {
			return nil, fmt.Errorf("lz4: block decompressed to %d bytes, expected %d", got, end-start)
		}
	}
	return output, nil
}
