package message

import (
	"fmt"

	binpkg "github.com/robert-malhotra/go-shadowmask/internal/binary"
)

// LinkType identifies hard, soft and external links.
type LinkType uint8

const (
	LinkTypeHard     LinkType = 0
	LinkTypeSoft     LinkType = 1
	LinkTypeExternal LinkType = 64
)

// Link represents a link message (type 0x0006) stored in a group header.
type Link struct {
	LinkType      LinkType
	Name          string
	ObjectAddress uint64 // hard links
	Target        string // soft links
}

func (m *Link) Type() Type { return TypeLink }

// NewHardLink creates a new hard link message.
func NewHardLink(name string, objectAddress uint64) *Link {
	return &Link{LinkType: LinkTypeHard, Name: name, ObjectAddress: objectAddress}
}

// nameLenSize returns the width of the name length field and its flag bits.
func (m *Link) nameLenSize() (int, uint8) {
	switch n := len(m.Name); {
	case n <= 0xFF:
		return 1, 0
	case n <= 0xFFFF:
		return 2, 1
	default:
		return 4, 2
	}
}

// Serialize writes the link in version 1 format. Only hard links are written;
// the mask file never needs anything else.
func (m *Link) Serialize(w *binpkg.Writer) error {
	if m.LinkType != LinkTypeHard {
		return fmt.Errorf("writing link %q: only hard links are supported", m.Name)
	}
	size, bits := m.nameLenSize()
	if err := w.WriteUint8(1); err != nil {
		return err
	}
	if err := w.WriteUint8(bits); err != nil {
		return err
	}
	if err := w.WriteUintN(uint64(len(m.Name)), size); err != nil {
		return err
	}
	if err := w.WriteBytes([]byte(m.Name)); err != nil {
		return err
	}
	return w.WriteOffset(m.ObjectAddress)
}

// SerializedSize returns the size in bytes when serialized.
func (m *Link) SerializedSize(w *binpkg.Writer) int {
	size, _ := m.nameLenSize()
	return 2 + size + len(m.Name) + w.OffsetSize()
}

func parseLink(r *binpkg.Reader) (*Link, error) {
	hdr, err := r.ReadBytes(2)
	if err != nil {
		return nil, fmt.Errorf("link message too short: %w", err)
	}
	if hdr[0] != 1 {
		return nil, fmt.Errorf("unsupported link message version %d", hdr[0])
	}
	flags := hdr[1]
	l := &Link{}
	if flags&0x08 != 0 {
		t, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		l.LinkType = LinkType(t)
	}
	if flags&0x04 != 0 {
		r.Skip(8) // creation order
	}
	if flags&0x10 != 0 {
		r.Skip(1) // character set
	}
	nameLen, err := r.ReadUintN(1 << (flags & 0x03))
	if err != nil {
		return nil, err
	}
	name, err := r.ReadBytes(int(nameLen))
	if err != nil {
		return nil, fmt.Errorf("link name truncated: %w", err)
	}
	l.Name = string(name)

	switch l.LinkType {
	case LinkTypeHard:
		if l.ObjectAddress, err = r.ReadOffset(); err != nil {
			return nil, err
		}
	case LinkTypeSoft:
		n, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		target, err := r.ReadBytes(int(n))
		if err != nil {
			return nil, err
		}
		l.Target = string(target)
	}
	return l, nil
}

// LinkInfo represents a link info message (type 0x0002). The mask file keeps
// its links compact in the group header, so heap addresses stay undefined.
type LinkInfo struct{}

func (m *LinkInfo) Type() Type { return TypeLinkInfo }

// Serialize writes version 0 with no flags and undefined fractal heap and
// name index addresses, which the HDF5 library expects to be present.
func (m *LinkInfo) Serialize(w *binpkg.Writer) error {
	if err := w.WriteUint8(0); err != nil {
		return err
	}
	if err := w.WriteUint8(0); err != nil {
		return err
	}
	if err := w.WriteOffset(w.UndefinedOffset()); err != nil {
		return err
	}
	return w.WriteOffset(w.UndefinedOffset())
}

// SerializedSize returns the size in bytes when serialized.
func (m *LinkInfo) SerializedSize(w *binpkg.Writer) int {
	return 2 + 2*w.OffsetSize()
}

// GroupInfo represents a group info message (type 0x000A) with default
// link storage thresholds.
type GroupInfo struct{}

func (m *GroupInfo) Type() Type { return TypeGroupInfo }

// Serialize writes version 0 with no flags.
func (m *GroupInfo) Serialize(w *binpkg.Writer) error {
	if err := w.WriteUint8(0); err != nil {
		return err
	}
	return w.WriteUint8(0)
}

// SerializedSize returns the size in bytes when serialized.
func (m *GroupInfo) SerializedSize(w *binpkg.Writer) int {
	return 2
}
