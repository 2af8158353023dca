package binary

import "testing"

func TestWriterReaderRoundTrip(t *testing.T) {
	buf := NewBuffer(0)
	w := NewWriter(buf, DefaultConfig())

	if err := w.WriteUint8(0x12); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteUint16(0x3456); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteUint32(0x789abcde); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteOffset(0x0102030405060708); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteUintN(0xabcdef, 3); err != nil {
		t.Fatal(err)
	}
	if w.Pos() != 1+2+4+8+3 {
		t.Fatalf("unexpected position %d", w.Pos())
	}

	r := NewReader(buf, DefaultConfig())
	if v, _ := r.ReadUint8(); v != 0x12 {
		t.Errorf("uint8: got 0x%x", v)
	}
	if v, _ := r.ReadUint16(); v != 0x3456 {
		t.Errorf("uint16: got 0x%x", v)
	}
	if v, _ := r.ReadUint32(); v != 0x789abcde {
		t.Errorf("uint32: got 0x%x", v)
	}
	if v, _ := r.ReadOffset(); v != 0x0102030405060708 {
		t.Errorf("offset: got 0x%x", v)
	}
	if v, _ := r.ReadUintN(3); v != 0xabcdef {
		t.Errorf("uint24: got 0x%x", v)
	}
	if _, err := r.ReadUint8(); err == nil {
		t.Error("expected error reading past end")
	}
}

func TestWriterAtIndependentPositions(t *testing.T) {
	buf := NewBuffer(16)
	w := NewWriter(buf, DefaultConfig())
	w2 := w.At(8)
	if err := w2.WriteUint8(0xff); err != nil {
		t.Fatal(err)
	}
	if w.Pos() != 0 || w2.Pos() != 9 {
		t.Errorf("positions not independent: %d %d", w.Pos(), w2.Pos())
	}
	if buf.Bytes()[8] != 0xff {
		t.Error("byte not written at offset 8")
	}
}

func TestUndefined(t *testing.T) {
	tests := []struct {
		size int
		want uint64
	}{
		{2, 0xFFFF},
		{4, 0xFFFFFFFF},
		{8, 0xFFFFFFFFFFFFFFFF},
	}
	for _, tt := range tests {
		if got := Undefined(tt.size); got != tt.want {
			t.Errorf("Undefined(%d) = 0x%x, want 0x%x", tt.size, got, tt.want)
		}
	}
	r := NewReader(NewBuffer(0), Config{OffsetSize: 4, LengthSize: 4})
	if !r.IsUndefinedOffset(0xFFFFFFFF) {
		t.Error("expected 4-byte all-ones to be undefined")
	}
}

func TestBytesFor(t *testing.T) {
	tests := map[uint64]int{0: 1, 0xff: 1, 0x100: 2, 0xffff: 2, 0x10000: 3, 1 << 40: 6}
	for v, want := range tests {
		if got := BytesFor(v); got != want {
			t.Errorf("BytesFor(0x%x) = %d, want %d", v, got, want)
		}
	}
}

func TestLookup3KnownValues(t *testing.T) {
	// Reference values of hashlittle(key, len, 0).
	if got := Lookup3Checksum(nil); got != 0xdeadbeef {
		t.Errorf("empty input: got 0x%08x", got)
	}
	if got := Lookup3Checksum([]byte("Four score and seven years ago")); got != 0x17770551 {
		t.Errorf("reference string: got 0x%08x, want 0x17770551", got)
	}
}

func TestLookup3LengthVariations(t *testing.T) {
	seen := make(map[uint32]int)
	for length := 0; length <= 24; length++ {
		data := make([]byte, length)
		for i := range data {
			data[i] = byte(i)
		}
		seen[Lookup3Checksum(data)] = length
	}
	if len(seen) != 25 {
		t.Errorf("expected 25 unique checksums for lengths 0-24, got %d", len(seen))
	}
}

func TestSealVerify(t *testing.T) {
	block := append([]byte("FAHD metadata block"), 0, 0, 0, 0)
	Seal(block)
	if !Verify(block) {
		t.Fatal("sealed block does not verify")
	}
	block[0] ^= 1
	if Verify(block) {
		t.Error("corrupted block verified")
	}
}

func TestFletcher32(t *testing.T) {
	ones := make([]byte, 1000)
	for i := range ones {
		ones[i] = 0xff
	}
	tests := []struct {
		name string
		data []byte
		want uint32
	}{
		{"empty", nil, 0},
		{"big-endian words", []byte{0x01, 0x02, 0x03, 0x04}, 0x05080406},
		{"odd trailing byte", []byte{0x01, 0x02, 0x03, 0x04, 0x05}, 0x0e0e0906},
		{"ones complement fold", ones, 0xffffffff},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fletcher32(tt.data); got != tt.want {
				t.Errorf("Fletcher32 = 0x%08x, want 0x%08x", got, tt.want)
			}
		})
	}
}
