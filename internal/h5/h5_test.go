package h5

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/robert-malhotra/go-shadowmask/internal/message"
)

func tempPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.h5")
}

func mustCreate(t *testing.T, path string) *File {
	t.Helper()
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return f
}

func TestCreateEmptyFile(t *testing.T) {
	path := tempPath(t)
	f := mustCreate(t, path)
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()
	names, err := r.Root().Names()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Errorf("expected an empty root group, got %v", names)
	}
	if r.IsWritable() {
		t.Error("opened file should be read-only")
	}
}

func TestNestedGroups(t *testing.T) {
	path := tempPath(t)
	f := mustCreate(t, path)
	shadow, err := f.Root().CreateGroup("shadow")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := shadow.CreateGroup("inner"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Root().CreateGroup("shadow"); !errors.Is(err, ErrExists) {
		t.Errorf("expected ErrExists, got %v", err)
	}
	if _, err := f.Root().CreateGroup("a/b"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath, got %v", err)
	}
	again, err := f.Root().RequireGroup("shadow")
	if err != nil || again != shadow {
		t.Errorf("RequireGroup returned %v, %v", again, err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	g, err := r.OpenGroup("/shadow/inner")
	if err != nil {
		t.Fatalf("OpenGroup failed: %v", err)
	}
	if g.Path() != "/shadow/inner" {
		t.Errorf("path %s", g.Path())
	}
	if _, err := r.OpenGroup("/missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGroupHeaderMoves(t *testing.T) {
	path := tempPath(t)
	f := mustCreate(t, path)
	rootAddr := f.Root().Address()
	for i := 0; i < 8; i++ {
		if _, err := f.Root().CreateGroup(fmt.Sprintf("group_with_a_long_name_%02d", i)); err != nil {
			t.Fatal(err)
		}
	}
	if f.Root().Address() == rootAddr {
		t.Error("root header should have outgrown its first block")
	}
	if f.AllocStats().StaleBytes == 0 {
		t.Error("the old root header should be released")
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	names, err := r.Root().Names()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 8 || names[7] != "group_with_a_long_name_07" {
		t.Errorf("names %v", names)
	}
}

func createMaskDataset(t *testing.T, f *File, opts ...DatasetOption) *Dataset {
	t.Helper()
	g, err := f.Root().CreateGroup("shadow")
	if err != nil {
		t.Fatal(err)
	}
	d, err := g.CreateChunkedDataset("dynamic_mask", message.NewInt8(), []uint64{4, 3, 5}, []uint64{1, 3, 5}, opts...)
	if err != nil {
		t.Fatalf("CreateChunkedDataset failed: %v", err)
	}
	return d
}

func TestChunkedDatasetRoundTrip(t *testing.T) {
	path := tempPath(t)
	f := mustCreate(t, path)
	d := createMaskDataset(t, f, WithFilters(message.FilterInfo{ID: message.FilterDeflate, ClientData: []uint32{4}}))
	if d.NumChunks() != 4 || d.ChunkBytes() != 15 {
		t.Fatalf("chunks %d of %d bytes", d.NumChunks(), d.ChunkBytes())
	}

	frame := []byte{1, 1, 1, 1, 1, 0, 0, 0, 1, 1, 1, 1, 1, 1, 1}
	if err := d.WriteChunk(0, frame); err != nil {
		t.Fatal(err)
	}
	ones := bytes.Repeat([]byte{1}, 15)
	shared, err := d.ShareChunk(ones)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.LinkChunk(1, shared); err != nil {
		t.Fatal(err)
	}
	if err := d.LinkChunk(3, shared); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	rd, err := r.OpenDataset("/shadow/dynamic_mask")
	if err != nil {
		t.Fatalf("OpenDataset failed: %v", err)
	}
	if got := rd.Shape(); len(got) != 3 || got[0] != 4 || got[1] != 3 || got[2] != 5 {
		t.Errorf("shape %v", got)
	}
	if got := rd.ChunkShape(); got[0] != 1 || got[1] != 3 || got[2] != 5 {
		t.Errorf("chunk shape %v", got)
	}
	if rd.Datatype().String() != "H5T_STD_I8LE" {
		t.Errorf("datatype %s", rd.Datatype())
	}
	if len(rd.Filters()) != 1 || rd.Filters()[0].ID != message.FilterDeflate {
		t.Errorf("filters %+v", rd.Filters())
	}
	if !bytes.Equal(rd.FillValue(), []byte{0}) {
		t.Errorf("fill value %v", rd.FillValue())
	}

	want := map[int][]byte{0: frame, 1: ones, 2: make([]byte, 15), 3: ones}
	for i := 0; i < 4; i++ {
		data, written, err := rd.ReadChunk(i)
		if err != nil {
			t.Fatalf("ReadChunk(%d) failed: %v", i, err)
		}
		if written != (i != 2) {
			t.Errorf("chunk %d written=%v", i, written)
		}
		if !bytes.Equal(data, want[i]) {
			t.Errorf("chunk %d = %v, want %v", i, data, want[i])
		}
	}
	if err := rd.WriteChunk(0, frame); !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
}

func TestUnfilteredDataset(t *testing.T) {
	path := tempPath(t)
	f := mustCreate(t, path)
	d := createMaskDataset(t, f, WithFillValue([]byte{7}), WithPageBits(1))
	if err := d.WriteChunk(2, bytes.Repeat([]byte{1}, 15)); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	rd, err := r.OpenDataset("shadow/dynamic_mask")
	if err != nil {
		t.Fatal(err)
	}
	if len(rd.Filters()) != 0 {
		t.Errorf("unexpected filters %+v", rd.Filters())
	}
	data, written, err := rd.ReadChunk(0)
	if err != nil || written || !bytes.Equal(data, bytes.Repeat([]byte{7}, 15)) {
		t.Errorf("chunk 0 = %v written=%v err=%v", data, written, err)
	}
	data, written, err = rd.ReadChunk(2)
	if err != nil || !written || data[14] != 1 {
		t.Errorf("chunk 2 = %v written=%v err=%v", data, written, err)
	}
}

func TestChunkIndex(t *testing.T) {
	f := mustCreate(t, tempPath(t))
	defer f.Close()
	d := createMaskDataset(t, f)
	idx, err := d.ChunkIndex(3, 0, 0)
	if err != nil || idx != 3 {
		t.Errorf("ChunkIndex = %d, %v", idx, err)
	}
	if _, err := d.ChunkIndex(4, 0, 0); err == nil {
		t.Error("expected an out of range error")
	}
}

func TestInvalidChunkShape(t *testing.T) {
	f := mustCreate(t, tempPath(t))
	defer f.Close()
	_, err := f.Root().CreateChunkedDataset("d", message.NewInt8(), []uint64{2, 2}, []uint64{1, 3})
	if err == nil {
		t.Error("expected an error for a chunk larger than the dataset")
	}
	_, err = f.Root().CreateChunkedDataset("d", message.NewInt8(), []uint64{2, 2}, []uint64{1})
	if err == nil {
		t.Error("expected an error for a rank mismatch")
	}
}

func TestWriteAfterClose(t *testing.T) {
	f := mustCreate(t, tempPath(t))
	d := createMaskDataset(t, f)
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("second Close returned %v", err)
	}
	if err := d.WriteChunk(0, make([]byte, 15)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := f.Flush(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Flush, got %v", err)
	}
}

func TestOpenNotHDF5(t *testing.T) {
	path := tempPath(t)
	if err := os.WriteFile(path, []byte("definitely not an HDF5 file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); !errors.Is(err, ErrNotHDF5) {
		t.Errorf("expected ErrNotHDF5, got %v", err)
	}
}

func TestAbandonSkipsFlush(t *testing.T) {
	path := tempPath(t)
	f := mustCreate(t, path)
	d := createMaskDataset(t, f)
	if err := d.WriteChunk(0, bytes.Repeat([]byte{1}, 15)); err != nil {
		t.Fatal(err)
	}
	if err := f.Abandon(); err != nil {
		t.Fatal(err)
	}
	if err := d.WriteChunk(1, make([]byte, 15)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestNamedFilter(t *testing.T) {
	f := mustCreate(t, tempPath(t))
	defer f.Close()
	d := createMaskDataset(t, f, WithNamedFilter("lzf"))
	if fs := d.Filters(); len(fs) != 1 || fs[0].ID != message.FilterLZF || fs[0].ClientData[2] != 15 {
		t.Errorf("filters %+v", fs)
	}

	_, err := f.Root().CreateChunkedDataset("bad", message.NewInt8(), []uint64{2}, []uint64{1}, WithNamedFilter("zzz"))
	if !errors.Is(err, ErrUnknownFilter) {
		t.Fatalf("expected ErrUnknownFilter, got %v", err)
	}
	if f.Root().Has("bad") {
		t.Error("failed dataset was linked")
	}
}
