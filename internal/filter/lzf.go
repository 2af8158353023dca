package filter

import (
	"errors"
	"fmt"

	lzf "github.com/zhuyie/golzf"

	"github.com/robert-malhotra/go-shadowmask/internal/message"
)

// LZFVersion is the filter version h5py records in client data slot 0.
const LZFVersion = 4

// lzfCodecVersion is liblzf 1.5, recorded in client data slot 1.
const lzfCodecVersion = 0x0105

// LZF implements the h5py LZF filter. Chunks are a bare LZF stream with no
// framing; the uncompressed size comes from the client data.
type LZF struct {
	chunkBytes int
}

// NewLZF creates a new LZF filter.
// Client data: [0] = filter version, [1] = codec version, [2] = chunk size in bytes
func NewLZF(clientData []uint32) *LZF {
	f := &LZF{}
	if len(clientData) > 2 {
		f.chunkBytes = int(clientData[2])
	}
	return f
}

// LZFClientData returns the client data h5py stores for a chunk of the given
// size in bytes.
func LZFClientData(chunkBytes int) []uint32 {
	return []uint32{LZFVersion, lzfCodecVersion, uint32(chunkBytes)}
}

func (f *LZF) ID() uint16 {
	return message.FilterLZF
}

// Encode compresses input. The output buffer is no larger than the input, so
// data that would grow reports ErrIncompressible.
func (f *LZF) Encode(input []byte) ([]byte, error) {
	// nothing this short can shrink
	if len(input) < 4 {
		return nil, ErrIncompressible
	}
	output := make([]byte, len(input)-1)
	n, err := lzf.Compress(input, output)
	if errors.Is(err, lzf.ErrInsufficientBuffer) || (err == nil && n == 0) {
		return nil, ErrIncompressible
	}
	if err != nil {
		return nil, fmt.Errorf("lzf compress: %w", err)
	}
	return output[:n], nil
}

// Decode decompresses input. Without a recorded chunk size the output buffer
// is grown until the stream fits.
func (f *LZF) Decode(input []byte) ([]byte, error) {
	size := f.chunkBytes
	if size <= 0 {
		size = 4 * len(input)
	}
	for {
		output := make([]byte, size)
		n, err := lzf.Decompress(input, output)
		if err == nil {
			return output[:n], nil
		}
		if !errors.Is(err, lzf.ErrInsufficientBuffer) || f.chunkBytes > 0 || size > 1<<31 {
			return nil, fmt.Errorf("lzf decompress: %w", err)
		}
		size *= 2
	}
}
