package layout

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/robert-malhotra/go-shadowmask/internal/binary"
)

// DefaultPageBits is the page size h5py's library default gives fixed arrays.
const DefaultPageBits = 10

var (
	signatureHeader    = []byte("FAHD")
	signatureDataBlock = []byte("FADB")
)

// Errors
var (
	ErrInvalidIndex = errors.New("invalid fixed array index")
	ErrOutOfRange   = errors.New("chunk index out of range")
)

// Entry locates one stored chunk.
type Entry struct {
	Address    uint64
	Size       uint64 // encoded size; only stored for filtered datasets
	FilterMask uint32
}

// FixedArray is a Fixed Array chunk index.
type FixedArray struct {
	cfg          binary.Config
	filtered     bool
	chunkSizeLen int
	pageBits     uint8
	entries      []Entry

	headerAddr    uint64
	dataBlockAddr uint64
}

// ChunkSizeLen returns the width of the chunk size field of a filtered entry
// for chunks of chunkBytes uncompressed bytes.
func ChunkSizeLen(chunkBytes uint64) int {
	n := 1 + (log2(chunkBytes)+8)/8
	if n > 8 {
		n = 8
	}
	return n
}

func log2(v uint64) int {
	if v == 0 {
		return 0
	}
	return bits.Len64(v) - 1
}

// NewFixedArray returns an index of numEntries undefined entries.
func NewFixedArray(cfg binary.Config, numEntries int, chunkBytes uint64, filtered bool, pageBits uint8) *FixedArray {
	fa := &FixedArray{
		cfg:          cfg,
		filtered:     filtered,
		chunkSizeLen: ChunkSizeLen(chunkBytes),
		pageBits:     pageBits,
		entries:      make([]Entry, numEntries),
	}
	undef := binary.Undefined(cfg.OffsetSize)
	for i := range fa.entries {
		fa.entries[i].Address = undef
	}
	return fa
}

// Len returns the number of entries.
func (fa *FixedArray) Len() int { return len(fa.entries) }

// Filtered reports whether entries carry a size and filter mask.
func (fa *FixedArray) Filtered() bool { return fa.filtered }

// PageBits returns log2 of the entries per page.
func (fa *FixedArray) PageBits() uint8 { return fa.pageBits }

// HeaderAddress returns the address of the FAHD block.
func (fa *FixedArray) HeaderAddress() uint64 { return fa.headerAddr }

// Entry returns entry i.
func (fa *FixedArray) Entry(i int) (Entry, error) {
	if i < 0 || i >= len(fa.entries) {
		return Entry{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, len(fa.entries))
	}
	return fa.entries[i], nil
}

// Set replaces entry i.
func (fa *FixedArray) Set(i int, e Entry) error {
	if i < 0 || i >= len(fa.entries) {
		return fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, len(fa.entries))
	}
	fa.entries[i] = e
	return nil
}

// Allocated reports whether entry e points at stored data.
func (fa *FixedArray) Allocated(e Entry) bool {
	return e.Address != binary.Undefined(fa.cfg.OffsetSize)
}

func (fa *FixedArray) entrySize() int {
	if fa.filtered {
		return fa.cfg.OffsetSize + fa.chunkSizeLen + 4
	}
	return fa.cfg.OffsetSize
}

func (fa *FixedArray) clientID() uint8 {
	if fa.filtered {
		return 1
	}
	return 0
}

func (fa *FixedArray) pageEntries() int { return 1 << fa.pageBits }

func (fa *FixedArray) paged() bool { return len(fa.entries) > fa.pageEntries() }

func (fa *FixedArray) numPages() int {
	return (len(fa.entries) + fa.pageEntries() - 1) / fa.pageEntries()
}

// HeaderSize returns the size of the FAHD block.
func (fa *FixedArray) HeaderSize() int {
	return 4 + 1 + 1 + 1 + 1 + fa.cfg.LengthSize + fa.cfg.OffsetSize + 4
}

func (fa *FixedArray) prefixSize() int {
	size := 4 + 1 + 1 + fa.cfg.OffsetSize
	if fa.paged() {
		size += (fa.numPages() + 7) / 8
	}
	return size
}

// DataBlockSize returns the size of the FADB block including its pages.
func (fa *FixedArray) DataBlockSize() int {
	if !fa.paged() {
		return fa.prefixSize() + len(fa.entries)*fa.entrySize() + 4
	}
	return fa.prefixSize() + 4 + len(fa.entries)*fa.entrySize() + 4*fa.numPages()
}

// Place records where the header and data block live in the file.
func (fa *FixedArray) Place(headerAddr, dataBlockAddr uint64) {
	fa.headerAddr = headerAddr
	fa.dataBlockAddr = dataBlockAddr
}

// Write encodes the header and data block at their placed addresses.
func (fa *FixedArray) Write(w *binary.Writer) error {
	if err := fa.writeHeader(w.At(int64(fa.headerAddr))); err != nil {
		return fmt.Errorf("writing fixed array header: %w", err)
	}
	if err := fa.writeDataBlock(w.At(int64(fa.dataBlockAddr))); err != nil {
		return fmt.Errorf("writing fixed array data block: %w", err)
	}
	return nil
}

func (fa *FixedArray) writeHeader(w *binary.Writer) error {
	bw, buf := w.Staging(fa.HeaderSize())
	if err := bw.WriteBytes(signatureHeader); err != nil {
		return err
	}
	if err := bw.WriteBytes([]byte{0, fa.clientID(), uint8(fa.entrySize()), fa.pageBits}); err != nil {
		return err
	}
	if err := bw.WriteLength(uint64(len(fa.entries))); err != nil {
		return err
	}
	if err := bw.WriteOffset(fa.dataBlockAddr); err != nil {
		return err
	}
	b := buf.Bytes()
	binary.Seal(b)
	return w.WriteBytes(b)
}

func (fa *FixedArray) writeDataBlock(w *binary.Writer) error {
	size := fa.prefixSize() + 4
	if !fa.paged() {
		size += len(fa.entries) * fa.entrySize()
	}
	bw, buf := w.Staging(size)
	if err := bw.WriteBytes(signatureDataBlock); err != nil {
		return err
	}
	if err := bw.WriteBytes([]byte{0, fa.clientID()}); err != nil {
		return err
	}
	if err := bw.WriteOffset(fa.headerAddr); err != nil {
		return err
	}
	if !fa.paged() {
		if err := fa.writeEntries(bw, fa.entries); err != nil {
			return err
		}
		b := buf.Bytes()
		binary.Seal(b)
		return w.WriteBytes(b)
	}

	// every page is written, so every page is initialised
	bitmap := make([]byte, (fa.numPages()+7)/8)
	for p := 0; p < fa.numPages(); p++ {
		bitmap[p/8] |= 0x80 >> (p % 8)
	}
	if err := bw.WriteBytes(bitmap); err != nil {
		return err
	}
	b := buf.Bytes()
	binary.Seal(b)
	if err := w.WriteBytes(b); err != nil {
		return err
	}
	for start := 0; start < len(fa.entries); start += fa.pageEntries() {
		page := fa.entries[start:min(start+fa.pageEntries(), len(fa.entries))]
		pw, pbuf := w.Staging(len(page)*fa.entrySize() + 4)
		if err := fa.writeEntries(pw, page); err != nil {
			return err
		}
		pb := pbuf.Bytes()
		binary.Seal(pb)
		if err := w.WriteBytes(pb); err != nil {
			return err
		}
	}
	return nil
}

func (fa *FixedArray) writeEntries(w *binary.Writer, entries []Entry) error {
	for _, e := range entries {
		if err := w.WriteOffset(e.Address); err != nil {
			return err
		}
		if !fa.filtered {
			continue
		}
		if err := w.WriteUintN(e.Size, fa.chunkSizeLen); err != nil {
			return err
		}
		if err := w.WriteUint32(e.FilterMask); err != nil {
			return err
		}
	}
	return nil
}

// ReadFixedArray decodes the index whose header is at addr, verifying the
// checksum of every block.
func ReadFixedArray(r *binary.Reader, addr uint64) (*FixedArray, error) {
	cfg := binary.Config{ByteOrder: r.ByteOrder(), OffsetSize: r.OffsetSize(), LengthSize: r.LengthSize()}
	fa := &FixedArray{cfg: cfg, headerAddr: addr}

	hdr, err := r.At(int64(addr)).ReadBytes(fa.HeaderSize())
	if err != nil {
		return nil, fmt.Errorf("reading fixed array header: %w", err)
	}
	if string(hdr[:4]) != string(signatureHeader) {
		return nil, fmt.Errorf("%w: got signature %q, expected \"FAHD\"", ErrInvalidIndex, hdr[:4])
	}
	if hdr[4] != 0 {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidIndex, hdr[4])
	}
	if !binary.Verify(hdr) {
		return nil, fmt.Errorf("%w: header checksum mismatch", ErrInvalidIndex)
	}
	fa.filtered = hdr[5] == 1
	entrySize := int(hdr[6])
	fa.pageBits = hdr[7]
	numEntries := binary.Uint(hdr[8:], cfg.LengthSize)
	fa.dataBlockAddr = binary.Uint(hdr[8+cfg.LengthSize:], cfg.OffsetSize)
	if fa.filtered {
		fa.chunkSizeLen = entrySize - cfg.OffsetSize - 4
		if fa.chunkSizeLen < 1 || fa.chunkSizeLen > 8 {
			return nil, fmt.Errorf("%w: entry size %d", ErrInvalidIndex, entrySize)
		}
	} else if entrySize != cfg.OffsetSize {
		return nil, fmt.Errorf("%w: entry size %d", ErrInvalidIndex, entrySize)
	}
	if numEntries > 1<<32 {
		return nil, fmt.Errorf("%w: %d entries", ErrInvalidIndex, numEntries)
	}
	fa.entries = make([]Entry, numEntries)

	prefix, err := r.At(int64(fa.dataBlockAddr)).ReadBytes(fa.prefixSize())
	if err != nil {
		return nil, fmt.Errorf("reading fixed array data block: %w", err)
	}
	if string(prefix[:4]) != string(signatureDataBlock) {
		return nil, fmt.Errorf("%w: got signature %q, expected \"FADB\"", ErrInvalidIndex, prefix[:4])
	}

	pos := int64(fa.dataBlockAddr)
	if !fa.paged() {
		block, err := r.At(pos).ReadBytes(fa.DataBlockSize())
		if err != nil {
			return nil, fmt.Errorf("reading fixed array data block: %w", err)
		}
		if !binary.Verify(block) {
			return nil, fmt.Errorf("%w: data block checksum mismatch", ErrInvalidIndex)
		}
		fa.readEntries(block[fa.prefixSize():], fa.entries)
		return fa, nil
	}

	block, err := r.At(pos).ReadBytes(fa.prefixSize() + 4)
	if err != nil {
		return nil, err
	}
	if !binary.Verify(block) {
		return nil, fmt.Errorf("%w: data block checksum mismatch", ErrInvalidIndex)
	}
	bitmap := block[4+1+1+cfg.OffsetSize : fa.prefixSize()]
	pos += int64(len(block))
	undef := binary.Undefined(cfg.OffsetSize)
	for p, start := 0, 0; start < len(fa.entries); p, start = p+1, start+fa.pageEntries() {
		page := fa.entries[start:min(start+fa.pageEntries(), len(fa.entries))]
		size := len(page)*fa.entrySize() + 4
		if bitmap[p/8]&(0x80>>(p%8)) == 0 {
			for i := range page {
				page[i] = Entry{Address: undef}
			}
			pos += int64(size)
			continue
		}
		pb, err := r.At(pos).ReadBytes(size)
		if err != nil {
			return nil, fmt.Errorf("reading fixed array page %d: %w", p, err)
		}
		if !binary.Verify(pb) {
			return nil, fmt.Errorf("%w: page %d checksum mismatch", ErrInvalidIndex, p)
		}
		fa.readEntries(pb, page)
		pos += int64(size)
	}
	return fa, nil
}

func (fa *FixedArray) readEntries(b []byte, entries []Entry) {
	o := fa.cfg.OffsetSize
	for i := range entries {
		e := Entry{Address: binary.Uint(b, o)}
		if fa.filtered {
			e.Size = binary.Uint(b[o:], fa.chunkSizeLen)
			e.FilterMask = fa.cfg.ByteOrder.Uint32(b[o+fa.chunkSizeLen:])
		}
		entries[i] = e
		b = b[fa.entrySize():]
	}
}
