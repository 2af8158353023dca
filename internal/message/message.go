// Package message encodes and decodes the HDF5 object header messages a
// shadow mask file is made of: dataspace, datatype, fill value, data layout,
// filter pipeline and the link messages of its groups.
//
// Every message knows its encoded size up front so object headers can be
// allocated before they are written, and so a header can later be rewritten
// in place once the chunk index address is final.
package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/go-shadowmask/internal/binary"
)

// Type represents an HDF5 header message type.
type Type uint16

// Header message types.
const (
	TypeNIL                      Type = 0x0000
	TypeDataspace                Type = 0x0001
	TypeLinkInfo                 Type = 0x0002
	TypeDatatype                 Type = 0x0003
	TypeFillValue                Type = 0x0005
	TypeLink                     Type = 0x0006
	TypeDataLayout               Type = 0x0008
	TypeGroupInfo                Type = 0x000A
	TypeFilterPipeline           Type = 0x000B
	TypeAttribute                Type = 0x000C
	TypeObjectHeaderContinuation Type = 0x0010
)

// UndefinedAddress is the HDF5 undefined address value for 8-byte offsets.
const UndefinedAddress = ^uint64(0)

// Message is the interface implemented by all header messages.
type Message interface {
	Type() Type
}

// Serializable is implemented by messages that can be written.
type Serializable interface {
	Message
	// Serialize writes the message body to the writer.
	Serialize(w *binpkg.Writer) error
	// SerializedSize returns the size of the body in bytes.
	SerializedSize(w *binpkg.Writer) int
}

// Parse decodes a message body. Types the mask file never uses come back as
// *Unknown so that headers written by other tools can still be walked.
func Parse(typ Type, data []byte, cfg binpkg.Config) (Message, error) {
	r := binpkg.NewReader(bodyReader(data), cfg)
	var (
		msg Message
		err error
	)
	switch typ {
	case TypeDataspace:
		msg, err = parseDataspace(r)
	case TypeDatatype:
		msg, err = parseDatatype(r)
	case TypeFillValue:
		msg, err = parseFillValue(r)
	case TypeDataLayout:
		msg, err = parseDataLayout(r)
	case TypeFilterPipeline:
		msg, err = parseFilterPipeline(r)
	case TypeLink:
		msg, err = parseLink(r)
	case TypeObjectHeaderContinuation:
		msg, err = parseContinuation(r)
	default:
		return &Unknown{typ: typ, data: data}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("message 0x%04x: %w", uint16(typ), err)
	}
	return msg, nil
}

func bodyReader(data []byte) *binpkg.Buffer {
	buf := binpkg.NewBuffer(0)
	_, _ = buf.WriteAt(data, 0)
	return buf
}

// Unknown represents a message type this package does not decode.
type Unknown struct {
	typ  Type
	data []byte
}

func (m *Unknown) Type() Type   { return m.typ }
func (m *Unknown) Data() []byte { return m.data }

// Continuation points at a further block of header messages.
type Continuation struct {
	Offset uint64
	Length uint64
}

func (m *Continuation) Type() Type { return TypeObjectHeaderContinuation }

func parseContinuation(r *binpkg.Reader) (*Continuation, error) {
	off, err := r.ReadOffset()
	if err != nil {
		return nil, err
	}
	length, err := r.ReadLength()
	if err != nil {
		return nil, err
	}
	return &Continuation{Offset: off, Length: length}, nil
}
