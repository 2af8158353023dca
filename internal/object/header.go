// Package object reads and writes version 2 HDF5 object headers.
//
// An object header is the metadata record of a group or dataset: a
// checksummed "OHDR" block holding a sequence of header messages. Writing is
// done in one piece; the whole block is staged in memory, sealed with its
// lookup3 checksum and then copied to the file. Because message sizes are
// known up front, a header can be allocated first and rewritten in place
// later as long as its messages keep their sizes.
package object

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-shadowmask/internal/binary"
	"github.com/robert-malhotra/go-shadowmask/internal/message"
)

// SignatureV2 opens every version 2 object header.
var SignatureV2 = []byte{'O', 'H', 'D', 'R'}

var signatureContinuation = []byte{'O', 'C', 'H', 'K'}

// Errors
var (
	ErrInvalidHeader      = errors.New("invalid object header")
	ErrUnsupportedVersion = errors.New("unsupported object header version")
	ErrChecksumMismatch   = errors.New("object header checksum mismatch")
)

// Header is a decoded object header.
type Header struct {
	Address  uint64
	Flags    uint8
	Messages []message.Message
}

// GetMessage returns the first message of the given type, or nil if not found.
func (h *Header) GetMessage(typ message.Type) message.Message {
	for _, msg := range h.Messages {
		if msg.Type() == typ {
			return msg
		}
	}
	return nil
}

// Links returns the link messages of a group header.
func (h *Header) Links() []*message.Link {
	var links []*message.Link
	for _, msg := range h.Messages {
		if l, ok := msg.(*message.Link); ok {
			links = append(links, l)
		}
	}
	return links
}

// Dataspace returns the dataspace message if present.
func (h *Header) Dataspace() *message.Dataspace {
	m, _ := h.GetMessage(message.TypeDataspace).(*message.Dataspace)
	return m
}

// Datatype returns the datatype message if present.
func (h *Header) Datatype() *message.Datatype {
	m, _ := h.GetMessage(message.TypeDatatype).(*message.Datatype)
	return m
}

// DataLayout returns the data layout message if present.
func (h *Header) DataLayout() *message.DataLayout {
	m, _ := h.GetMessage(message.TypeDataLayout).(*message.DataLayout)
	return m
}

// FilterPipeline returns the filter pipeline message if present.
func (h *Header) FilterPipeline() *message.FilterPipeline {
	m, _ := h.GetMessage(message.TypeFilterPipeline).(*message.FilterPipeline)
	return m
}

// FillValue returns the fill value message if present.
func (h *Header) FillValue() *message.FillValue {
	m, _ := h.GetMessage(message.TypeFillValue).(*message.FillValue)
	return m
}

// IsDataset reports whether the header describes a dataset.
func (h *Header) IsDataset() bool {
	return h.DataLayout() != nil
}

/*
Version 2 object header layout:

	"OHDR" | version (2) | flags | [times] | [attr phase] | chunk#0 size (1<<(flags&3) bytes)
	messages: type (1) | size (2) | flags (1) | [creation order (2)] | body
	checksum (4)

The chunk#0 size counts the messages only, not the checksum.
*/

// Read decodes the object header at address, verifying its checksum.
func Read(r *binary.Reader, address uint64) (*Header, error) {
	hr := r.At(int64(address))
	prefix, err := hr.ReadBytes(6)
	if err != nil {
		return nil, fmt.Errorf("reading object header at 0x%x: %w", address, err)
	}
	if string(prefix[:4]) != string(SignatureV2) {
		return nil, fmt.Errorf("%w: no OHDR signature at 0x%x", ErrInvalidHeader, address)
	}
	if prefix[4] != 2 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, prefix[4])
	}
	hdr := &Header{Address: address, Flags: prefix[5]}

	if hdr.Flags&0x20 != 0 {
		hr.Skip(16)
	}
	if hdr.Flags&0x10 != 0 {
		hr.Skip(4)
	}
	chunkSize, err := hr.ReadUintN(1 << (hdr.Flags & 0x03))
	if err != nil {
		return nil, err
	}
	start := hr.Pos()

	block, err := r.At(int64(address)).ReadBytes(int(start-int64(address)) + int(chunkSize) + 4)
	if err != nil {
		return nil, fmt.Errorf("reading object header at 0x%x: %w", address, err)
	}
	if !binary.Verify(block) {
		return nil, fmt.Errorf("%w at 0x%x", ErrChecksumMismatch, address)
	}

	msgs, err := readMessages(r, hr, start+int64(chunkSize), hdr.Flags&0x04 != 0)
	if err != nil {
		return nil, err
	}
	hdr.Messages = msgs
	return hdr, nil
}

func readMessages(root, r *binary.Reader, end int64, creationOrder bool) ([]message.Message, error) {
	cfg := binary.Config{ByteOrder: r.ByteOrder(), OffsetSize: r.OffsetSize(), LengthSize: r.LengthSize()}
	var msgs []message.Message
	// a message prefix is at least 4 bytes; anything shorter is gap padding
	for r.Pos()+4 <= end {
		typ, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		size, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		r.Skip(1) // message flags
		if creationOrder {
			r.Skip(2)
		}
		body, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, fmt.Errorf("message body truncated: %w", err)
		}
		if message.Type(typ) == message.TypeNIL {
			continue
		}
		msg, err := message.Parse(message.Type(typ), body, cfg)
		if err != nil {
			return nil, err
		}
		if cont, ok := msg.(*message.Continuation); ok {
			more, err := readContinuation(root, cont, creationOrder)
			if err != nil {
				return nil, err
			}
			msgs = append(msgs, more...)
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func readContinuation(root *binary.Reader, cont *message.Continuation, creationOrder bool) ([]message.Message, error) {
	cr := root.At(int64(cont.Offset))
	sig, err := cr.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if string(sig) != string(signatureContinuation) {
		return nil, fmt.Errorf("%w: bad continuation signature %q", ErrInvalidHeader, sig)
	}
	return readMessages(root, cr, int64(cont.Offset+cont.Length)-4, creationOrder)
}
