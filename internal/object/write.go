package object

import (
	"fmt"

	"github.com/robert-malhotra/go-shadowmask/internal/binary"
	"github.com/robert-malhotra/go-shadowmask/internal/message"
)

// MinGroupChunkSize is the minimum chunk size for group object headers.
// h5py leaves this much room so a few links can be added in place.
const MinGroupChunkSize = 120

// nilPrefixSize is the type, size and flags prefix of a message.
const nilPrefixSize = 4

// HeaderSize returns the encoded size of a header holding messages, padded to
// at least minChunk bytes of message space.
func HeaderSize(cfg binary.Config, messages []message.Serializable, minChunk int) (int, error) {
	w := binary.NewWriter(binary.NewBuffer(0), cfg)
	chunk, err := chunkSize(w, messages, minChunk)
	if err != nil {
		return 0, err
	}
	return prefixSize(chunk) + chunk + 4, nil
}

func chunkSize(w *binary.Writer, messages []message.Serializable, minChunk int) (int, error) {
	size := 0
	for _, msg := range messages {
		body := msg.SerializedSize(w)
		if body > 0xFFFF {
			return 0, fmt.Errorf("message 0x%04x is %d bytes, too large for an object header", uint16(msg.Type()), body)
		}
		size += nilPrefixSize + body
	}
	if size < minChunk {
		pad := minChunk - size
		// a gap smaller than a message prefix can't hold a NIL message
		if pad < nilPrefixSize {
			pad = nilPrefixSize
		}
		size += pad
	}
	return size, nil
}

func chunkSizeFieldBytes(chunk int) int {
	switch {
	case chunk <= 0xFF:
		return 1
	case chunk <= 0xFFFF:
		return 2
	default:
		return 4
	}
}

func prefixSize(chunk int) int {
	return 4 + 1 + 1 + chunkSizeFieldBytes(chunk)
}

// WriteHeader writes a version 2 object header at the writer's position and
// returns the number of bytes written. The header is staged in memory and
// sealed with its checksum before it reaches w.
func WriteHeader(w *binary.Writer, messages []message.Serializable, minChunk int) (int, error) {
	chunk, err := chunkSize(w, messages, minChunk)
	if err != nil {
		return 0, err
	}
	fieldBytes := chunkSizeFieldBytes(chunk)
	total := prefixSize(chunk) + chunk + 4

	bw, buf := w.Staging(total)
	if err := bw.WriteBytes(SignatureV2); err != nil {
		return 0, err
	}
	if err := bw.WriteUint8(2); err != nil {
		return 0, err
	}
	// flags: only the chunk#0 size width
	if err := bw.WriteUint8(uint8(fieldBytes>>1) & 0x03); err != nil {
		return 0, err
	}
	if err := bw.WriteUintN(uint64(chunk), fieldBytes); err != nil {
		return 0, err
	}

	written := 0
	for _, msg := range messages {
		n, err := writeMessage(bw, msg)
		if err != nil {
			return 0, err
		}
		written += n
	}
	if pad := chunk - written; pad > 0 {
		if err := writeNIL(bw, pad); err != nil {
			return 0, err
		}
	}

	b := buf.Bytes()
	binary.Seal(b)
	if err := w.WriteBytes(b); err != nil {
		return 0, fmt.Errorf("writing object header: %w", err)
	}
	return total, nil
}

func writeMessage(w *binary.Writer, msg message.Serializable) (int, error) {
	size := msg.SerializedSize(w)
	if err := w.WriteUint8(uint8(msg.Type())); err != nil {
		return 0, err
	}
	if err := w.WriteUint16(uint16(size)); err != nil {
		return 0, err
	}
	flags := uint8(0)
	if msg.Type() == message.TypeDatatype {
		flags = 0x01 // constant
	}
	if err := w.WriteUint8(flags); err != nil {
		return 0, err
	}
	start := w.Pos()
	if err := msg.Serialize(w); err != nil {
		return 0, fmt.Errorf("serializing message 0x%04x: %w", uint16(msg.Type()), err)
	}
	if got := int(w.Pos() - start); got != size {
		return 0, fmt.Errorf("message 0x%04x wrote %d bytes, expected %d", uint16(msg.Type()), got, size)
	}
	return nilPrefixSize + size, nil
}

// writeNIL fills n bytes with a single NIL message.
func writeNIL(w *binary.Writer, n int) error {
	if err := w.WriteUint8(uint8(message.TypeNIL)); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(n - nilPrefixSize)); err != nil {
		return err
	}
	if err := w.WriteUint8(0); err != nil {
		return err
	}
	return w.WriteZeros(n - nilPrefixSize)
}

// NewGroupHeader returns the messages of a group whose links are stored
// compactly in its header.
func NewGroupHeader(links ...*message.Link) []message.Serializable {
	msgs := []message.Serializable{&message.LinkInfo{}, &message.GroupInfo{}}
	for _, l := range links {
		msgs = append(msgs, l)
	}
	return msgs
}

// NewDatasetHeader returns the messages of a chunked dataset. pipeline may be
// nil for an unfiltered dataset.
func NewDatasetHeader(ds *message.Dataspace, dt *message.Datatype, fv *message.FillValue, pipeline *message.FilterPipeline, layout *message.DataLayout) []message.Serializable {
	msgs := []message.Serializable{ds, dt, fv}
	if pipeline != nil && len(pipeline.Filters) > 0 {
		msgs = append(msgs, pipeline)
	}
	return append(msgs, layout)
}
