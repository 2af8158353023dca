package superblock

import (
	"errors"
	"testing"

	binpkg "github.com/robert-malhotra/go-shadowmask/internal/binary"
)

func TestWriteReadRoundTrip(t *testing.T) {
	sb := New()
	sb.EOFAddress = 0x4000
	sb.RootGroupAddress = 48

	buf := binpkg.NewBuffer(0)
	if err := sb.Write(binpkg.NewWriter(buf, sb.Config())); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if buf.Len() != sb.Size() || sb.Size() != 48 {
		t.Fatalf("superblock is %d bytes, Size reports %d", buf.Len(), sb.Size())
	}

	got, err := Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Version != 3 || got.EOFAddress != 0x4000 || got.RootGroupAddress != 48 {
		t.Errorf("decoded %+v", got)
	}
	if got.ExtensionAddress != binpkg.Undefined(8) {
		t.Errorf("extension address 0x%x", got.ExtensionAddress)
	}
}

func TestReadAfterUserBlock(t *testing.T) {
	sb := New()
	sb.RootGroupAddress = 560
	buf := binpkg.NewBuffer(1024)
	if err := sb.Write(binpkg.NewWriter(buf, sb.Config()).At(512)); err != nil {
		t.Fatal(err)
	}
	got, err := Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.FileOffset != 512 || got.RootGroupAddress != 560 {
		t.Errorf("decoded %+v", got)
	}
}

func TestReadNotHDF5(t *testing.T) {
	if _, err := Read(binpkg.NewBuffer(4096)); !errors.Is(err, ErrNotHDF5) {
		t.Errorf("expected ErrNotHDF5, got %v", err)
	}
	if _, err := Read(binpkg.NewBuffer(3)); !errors.Is(err, ErrNotHDF5) {
		t.Errorf("short file: expected ErrNotHDF5, got %v", err)
	}
}

func TestReadRejectsOldVersions(t *testing.T) {
	buf := binpkg.NewBuffer(256)
	_, _ = buf.WriteAt(Signature, 0)
	_, _ = buf.WriteAt([]byte{0}, 8)
	if _, err := Read(buf); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestReadDetectsChecksumMismatch(t *testing.T) {
	sb := New()
	buf := binpkg.NewBuffer(0)
	if err := sb.Write(binpkg.NewWriter(buf, sb.Config())); err != nil {
		t.Fatal(err)
	}
	buf.Bytes()[30] ^= 0x01
	if _, err := Read(buf); !errors.Is(err, ErrInvalidSuperblock) {
		t.Errorf("expected ErrInvalidSuperblock, got %v", err)
	}
}

func TestWriteRejectsVersion0(t *testing.T) {
	sb := New()
	sb.Version = 0
	err := sb.Write(binpkg.NewWriter(binpkg.NewBuffer(0), sb.Config()))
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}
