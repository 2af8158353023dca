package alloc

import "testing"

func TestAllocatorBasic(t *testing.T) {
	a := New(1024)

	addr1 := a.Alloc(100, TagObjectHeader)
	if addr1 != 1024 {
		t.Errorf("first allocation: got 0x%x, want 0x%x", addr1, 1024)
	}
	addr2 := a.Alloc(200, TagChunk)
	if addr2 != 1124 {
		t.Errorf("second allocation: got 0x%x, want 0x%x", addr2, 1124)
	}
	if a.EOFAddr() != 1324 {
		t.Errorf("EOF: got 0x%x, want 0x%x", a.EOFAddr(), 1324)
	}
}

func TestAllocatorZeroSize(t *testing.T) {
	a := New(100)
	if addr := a.Alloc(0, TagChunk); addr != 100 {
		t.Errorf("zero allocation: got 0x%x, want 0x%x", addr, 100)
	}
	if a.EOFAddr() != 100 {
		t.Errorf("EOF after zero alloc: got 0x%x, want 0x%x", a.EOFAddr(), 100)
	}
	if len(a.Allocations()) != 0 {
		t.Error("zero allocation must not be recorded")
	}
}

func TestAllocatorStats(t *testing.T) {
	a := New(0)
	a.Alloc(100, TagChunk)
	a.Alloc(200, TagChunk)
	a.Alloc(50, TagChunkIndex)
	a.Release(0, 100)

	stats := a.Stats()
	tests := []struct {
		name      string
		got, want uint64
	}{
		{"TotalAllocations", stats.TotalAllocations, 3},
		{"TotalBytesAlloc", stats.TotalBytesAlloc, 350},
		{"LargestAlloc", stats.LargestAlloc, 200},
		{"StaleBytes", stats.StaleBytes, 100},
		{"chunk bytes", stats.BytesByTag[TagChunk], 300},
		{"index bytes", stats.BytesByTag[TagChunkIndex], 50},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.name, tt.got, tt.want)
		}
	}

	stats.BytesByTag[TagChunk] = 0
	if a.Stats().BytesByTag[TagChunk] != 300 {
		t.Error("Stats must return a copy")
	}
}

func TestAllocatorValidate(t *testing.T) {
	a := New(100)
	a.Alloc(50, TagObjectHeader)
	a.Alloc(75, TagChunk)
	if err := a.Validate(); err != nil {
		t.Errorf("valid allocations reported invalid: %v", err)
	}

	a.allocations = append(a.allocations, Allocation{Addr: 120, Size: 10, Tag: "bogus"})
	if err := a.Validate(); err == nil {
		t.Error("expected overlap to be reported")
	}
}
