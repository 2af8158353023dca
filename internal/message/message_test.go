package message

import (
	"bytes"
	"testing"

	binpkg "github.com/robert-malhotra/go-shadowmask/internal/binary"
)

// encode serializes msg and checks that SerializedSize agreed with the bytes written.
func encode(t *testing.T, msg Serializable) []byte {
	t.Helper()
	buf := binpkg.NewBuffer(0)
	w := binpkg.NewWriter(buf, binpkg.DefaultConfig())
	if err := msg.Serialize(w); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if got, want := int(w.Pos()), msg.SerializedSize(w); got != want {
		t.Fatalf("wrote %d bytes, SerializedSize reported %d", got, want)
	}
	return buf.Bytes()
}

func decode(t *testing.T, typ Type, data []byte) Message {
	t.Helper()
	msg, err := Parse(typ, data, binpkg.DefaultConfig())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return msg
}

func TestDataspaceEncoding(t *testing.T) {
	ds := NewDataspace([]uint64{2, 3, 4})
	data := encode(t, ds)
	if !bytes.Equal(data[:4], []byte{2, 3, 0, 1}) {
		t.Errorf("unexpected dataspace prefix % x", data[:4])
	}
	got := decode(t, TypeDataspace, data).(*Dataspace)
	if got.Rank() != 3 || got.NumElements() != 24 || got.MaxDims != nil {
		t.Errorf("decoded dataspace %+v", got)
	}
}

func TestInt8Datatype(t *testing.T) {
	data := encode(t, NewInt8())
	want := []byte{0x10, 0x08, 0, 0, 1, 0, 0, 0, 0, 0, 8, 0}
	if !bytes.Equal(data, want) {
		t.Errorf("int8 datatype\n got % x\nwant % x", data, want)
	}
	dt := decode(t, TypeDatatype, data).(*Datatype)
	if dt.String() != "H5T_STD_I8LE" {
		t.Errorf("decoded %s", dt)
	}
}

func TestFillValueFlags(t *testing.T) {
	data := encode(t, NewFillValue([]byte{0}))
	// version 3, incremental alloc | write-if-set | value present
	if !bytes.Equal(data, []byte{3, 0x2B, 1, 0, 0, 0, 0}) {
		t.Errorf("fill value bytes % x", data)
	}
	fv := decode(t, TypeFillValue, data).(*FillValue)
	if !fv.Defined || fv.SpaceAllocTime != AllocIncremental || !bytes.Equal(fv.Value, []byte{0}) {
		t.Errorf("decoded fill value %+v", fv)
	}
}

func TestFixedArrayLayout(t *testing.T) {
	l := NewFixedArrayLayout([]uint64{1, 2527, 2463}, 1, 12, 0x1234)
	data := encode(t, l)

	got := decode(t, TypeDataLayout, data).(*DataLayout)
	if got.ChunkIndexType != ChunkIndexFixedArray {
		t.Fatalf("index type %s", got.ChunkIndexType)
	}
	if got.PageBits != 12 || got.ChunkIndexAddr != 0x1234 {
		t.Errorf("page bits %d, index addr 0x%x", got.PageBits, got.ChunkIndexAddr)
	}
	shape := got.ChunkShape()
	if len(shape) != 3 || shape[1] != 2527 || shape[2] != 2463 || got.ElementSize() != 1 {
		t.Errorf("chunk shape %v element size %d", shape, got.ElementSize())
	}
}

func TestLayoutSizeIndependentOfAddress(t *testing.T) {
	// Dataset headers are rewritten in place once the index address is known.
	w := binpkg.NewWriter(binpkg.NewBuffer(0), binpkg.DefaultConfig())
	a := NewFixedArrayLayout([]uint64{1, 4, 4}, 1, 10, UndefinedAddress)
	b := NewFixedArrayLayout([]uint64{1, 4, 4}, 1, 10, 96)
	if a.SerializedSize(w) != b.SerializedSize(w) {
		t.Error("layout size depends on index address")
	}
}

func TestFilterPipelinePluginNames(t *testing.T) {
	fp := NewFilterPipeline(
		FilterInfo{ID: FilterShuffle, ClientData: []uint32{1}},
		FilterInfo{ID: FilterLZ4, Flags: FilterOptional, Name: "lz4", ClientData: []uint32{0}},
	)
	got := decode(t, TypeFilterPipeline, encode(t, fp)).(*FilterPipeline)
	if len(got.Filters) != 2 {
		t.Fatalf("expected 2 filters, got %d", len(got.Filters))
	}
	lz4 := got.Filters[1]
	if lz4.ID != FilterLZ4 || lz4.Name != "lz4" || !lz4.IsOptional() {
		t.Errorf("decoded plugin filter %+v", lz4)
	}
	if got.Filters[0].Name != "" || got.Filters[0].ClientData[0] != 1 {
		t.Errorf("decoded builtin filter %+v", got.Filters[0])
	}
	if !got.HasFilter(FilterShuffle) || got.HasFilter(FilterDeflate) {
		t.Error("HasFilter mismatch")
	}
}

func TestHardLink(t *testing.T) {
	l := decode(t, TypeLink, encode(t, NewHardLink("dynamic_mask", 0x800))).(*Link)
	if l.Name != "dynamic_mask" || l.ObjectAddress != 0x800 || l.LinkType != LinkTypeHard {
		t.Errorf("decoded link %+v", l)
	}
}

func TestUnknownMessagePassesThrough(t *testing.T) {
	msg := decode(t, TypeAttribute, []byte{1, 2, 3})
	if u, ok := msg.(*Unknown); !ok || u.Type() != TypeAttribute || len(u.Data()) != 3 {
		t.Errorf("unexpected %T", msg)
	}
}
