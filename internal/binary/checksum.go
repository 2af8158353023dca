package binary

import "encoding/binary"

// Lookup3Checksum computes Bob Jenkins' lookup3 "hashlittle" with an initial
// value of 0. HDF5 uses it for every checksummed metadata block (superblock
// v2+, object header v2, fixed array header and data block).
func Lookup3Checksum(data []byte) uint32 {
	initval := uint32(0xdeadbeef) + uint32(len(data))
	a, b, c := initval, initval, initval
	k := data

	// Strictly more than 12: the last 1-12 bytes always go through the final mix.
	for len(k) > 12 {
		a += binary.LittleEndian.Uint32(k[0:])
		b += binary.LittleEndian.Uint32(k[4:])
		c += binary.LittleEndian.Uint32(k[8:])
		a, b, c = lookup3Mix(a, b, c)
		k = k[12:]
	}

	switch len(k) {
	case 12:
		c += uint32(k[11]) << 24
		fallthrough
	case 11:
		c += uint32(k[10]) << 16
		fallthrough
	case 10:
		c += uint32(k[9]) << 8
		fallthrough
	case 9:
		c += uint32(k[8])
		fallthrough
	case 8:
		b += uint32(k[7]) << 24
		fallthrough
	case 7:
		b += uint32(k[6]) << 16
		fallthrough
	case 6:
		b += uint32(k[5]) << 8
		fallthrough
	case 5:
		b += uint32(k[4])
		fallthrough
	case 4:
		a += uint32(k[3]) << 24
		fallthrough
	case 3:
		a += uint32(k[2]) << 16
		fallthrough
	case 2:
		a += uint32(k[1]) << 8
		fallthrough
	case 1:
		a += uint32(k[0])
	case 0:
		return c
	}

	_, _, c = lookup3Final(a, b, c)
	return c
}

func lookup3Mix(a, b, c uint32) (uint32, uint32, uint32) {
	a -= c
	a ^= rotl32(c, 4)
	c += b
	b -= a
	b ^= rotl32(a, 6)
	a += c
	c -= b
	c ^= rotl32(b, 8)
	b += a
	a -= c
	a ^= rotl32(c, 16)
	c += b
	b -= a
	b ^= rotl32(a, 19)
	a += c
	c -= b
	c ^= rotl32(b, 4)
	b += a
	return a, b, c
}

func lookup3Final(a, b, c uint32) (uint32, uint32, uint32) {
	c ^= b
	c -= rotl32(b, 14)
	a ^= c
	a -= rotl32(c, 11)
	b ^= a
	b -= rotl32(a, 25)
	c ^= b
	c -= rotl32(b, 16)
	a ^= c
	a -= rotl32(c, 4)
	b ^= a
	b -= rotl32(a, 14)
	c ^= b
	c -= rotl32(b, 24)
	return a, b, c
}

func rotl32(x uint32, k uint) uint32 {
	return (x << k) | (x >> (32 - k))
}

// Seal writes the lookup3 checksum of b[:len(b)-4] into the last four bytes
// of b. Metadata blocks are staged with room for their trailing checksum.
func Seal(b []byte) {
	n := len(b) - 4
	binary.LittleEndian.PutUint32(b[n:], Lookup3Checksum(b[:n]))
}

// Verify reports whether the trailing four bytes of b hold the lookup3
// checksum of the rest.
func Verify(b []byte) bool {
	if len(b) < 4 {
		return false
	}
	n := len(b) - 4
	return binary.LittleEndian.Uint32(b[n:]) == Lookup3Checksum(b[:n])
}

// Fletcher32 computes the Fletcher-32 checksum of the HDF5 fletcher32 filter.
// The input is read as 16-bit big-endian words; an odd trailing byte is the
// high byte of a final word. Sums are folded in one's complement, so a sum
// of 0xffff is kept rather than reduced to zero.
func Fletcher32(data []byte) uint32 {
	var sum1, sum2 uint32
	fold := func() {
		sum1 = sum1&0xffff + sum1>>16
		sum2 = sum2&0xffff + sum2>>16
	}
	words := len(data) / 2
	i := 0
	for words > 0 {
		// 360 words keep both sums within 32 bits between folds.
		n := min(words, 360)
		words -= n
		for ; n > 0; n-- {
			sum1 += uint32(data[i])<<8 | uint32(data[i+1])
			sum2 += sum1
			i += 2
		}
		fold()
	}
	if len(data)%2 != 0 {
		sum1 += uint32(data[i]) << 8
		sum2 += sum1
		fold()
	}
	fold()
	return sum2<<16 | sum1
}
