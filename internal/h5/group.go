package h5

import (
	"fmt"
	"path"

	"github.com/robert-malhotra/go-shadowmask/internal/alloc"
	"github.com/robert-malhotra/go-shadowmask/internal/message"
	"github.com/robert-malhotra/go-shadowmask/internal/object"
)

// Group is an HDF5 group whose links are stored compactly in its header.
type Group struct {
	file   *File
	path   string
	name   string
	parent *Group
	addr   uint64
	size   int // encoded header size, for in-place rewrites

	loaded   bool
	links    []*message.Link
	children map[string]*Group
}

// Path returns the absolute path of the group.
func (g *Group) Path() string {
	return g.path
}

// Address returns the address of the group's object header.
func (g *Group) Address() uint64 {
	return g.addr
}

func (g *Group) load() error {
	if g.loaded {
		return nil
	}
	hdr, err := object.Read(g.file.reader, g.addr)
	if err != nil {
		return err
	}
	if hdr.IsDataset() {
		return fmt.Errorf("%s: %w", g.path, ErrNotGroup)
	}
	g.links = hdr.Links()
	g.loaded = true
	return nil
}

// Names returns the names of the group's members in link order.
func (g *Group) Names() ([]string, error) {
	if err := g.load(); err != nil {
		return nil, err
	}
	names := make([]string, len(g.links))
	for i, l := range g.links {
		names[i] = l.Name
	}
	return names, nil
}

func (g *Group) link(name string) (*message.Link, error) {
	if err := g.load(); err != nil {
		return nil, err
	}
	for _, l := range g.links {
		if l.Name == name {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, g.childPath(name))
}

func (g *Group) childPath(name string) string {
	return path.Join(g.path, name)
}

// Has reports whether the group has a member called name.
func (g *Group) Has(name string) bool {
	_, err := g.link(name)
	return err == nil
}

// OpenGroup opens the member group called name.
func (g *Group) OpenGroup(name string) (*Group, error) {
	if child, ok := g.children[name]; ok {
		return child, nil
	}
	l, err := g.link(name)
	if err != nil {
		return nil, err
	}
	if l.LinkType != message.LinkTypeHard {
		return nil, fmt.Errorf("%w: %s is not a hard link", ErrUnsupported, g.childPath(name))
	}
	child := &Group{file: g.file, path: g.childPath(name), name: name, parent: g, addr: l.ObjectAddress}
	if err := child.load(); err != nil {
		return nil, err
	}
	g.remember(child)
	return child, nil
}

func (g *Group) remember(child *Group) {
	if g.children == nil {
		g.children = make(map[string]*Group)
	}
	g.children[child.name] = child
}

// CreateGroup creates a new empty subgroup.
func (g *Group) CreateGroup(name string) (*Group, error) {
	if err := g.file.checkWritable(); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, err
	}
	if g.Has(name) {
		return nil, fmt.Errorf("%w: %s", ErrExists, g.childPath(name))
	}

	msgs := object.NewGroupHeader()
	size, err := object.HeaderSize(g.file.writer.Config(), msgs, object.MinGroupChunkSize)
	if err != nil {
		return nil, err
	}
	addr := g.file.allocator.Alloc(uint64(size), alloc.TagObjectHeader)
	if _, err := object.WriteHeader(g.file.writer.At(int64(addr)), msgs, object.MinGroupChunkSize); err != nil {
		return nil, fmt.Errorf("writing group header: %w", err)
	}

	child := &Group{file: g.file, path: g.childPath(name), name: name, parent: g, addr: addr, size: size, loaded: true}
	if err := g.addLink(message.NewHardLink(name, addr)); err != nil {
		return nil, fmt.Errorf("adding link to parent: %w", err)
	}
	g.remember(child)
	return child, nil
}

// RequireGroup opens the member group called name, creating it if needed.
func (g *Group) RequireGroup(name string) (*Group, error) {
	if g.Has(name) {
		return g.OpenGroup(name)
	}
	return g.CreateGroup(name)
}

func (g *Group) addLink(link *message.Link) error {
	if err := g.load(); err != nil {
		return err
	}
	g.links = append(g.links, link)
	return g.rewriteHeader()
}

// rewriteHeader writes the group's header with its current links. The header
// stays where it is while it fits; otherwise it moves and the parent's link
// (or the superblock, for the root group) follows it.
func (g *Group) rewriteHeader() error {
	msgs := object.NewGroupHeader(g.links...)
	size, err := object.HeaderSize(g.file.writer.Config(), msgs, object.MinGroupChunkSize)
	if err != nil {
		return err
	}
	addr := g.addr
	if size != g.size {
		addr = g.file.allocator.Alloc(uint64(size), alloc.TagObjectHeader)
	}
	if _, err := object.WriteHeader(g.file.writer.At(int64(addr)), msgs, object.MinGroupChunkSize); err != nil {
		return fmt.Errorf("writing header of %s: %w", g.path, err)
	}
	if addr == g.addr {
		return nil
	}

	if g.size > 0 {
		g.file.allocator.Release(g.addr, uint64(g.size))
	}
	g.addr, g.size = addr, size
	if g.parent == nil {
		g.file.superblock.RootGroupAddress = addr
		return g.file.superblock.Write(g.file.writer.At(0))
	}
	return g.parent.updateLink(g.name, addr)
}

func (g *Group) updateLink(name string, addr uint64) error {
	for i, l := range g.links {
		if l.Name == name {
			g.links[i] = message.NewHardLink(name, addr)
			return g.rewriteHeader()
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, g.childPath(name))
}
