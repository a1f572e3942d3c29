// internal/bitmap/bitmap.go

// Package bitmap provides a simple, memory-efficient bitmap implementation
// for representing sets of non-negative integer IDs. The normalizer uses one
// per entity kind as its index of accepted ids ("was this film accepted?").
//
// Dump ids are dense (tt0000001 … tt9999999 and beyond), so a bitset costs a
// few megabytes where a hash set would cost hundreds.
package bitmap

// Bitmap represents a bitset backed by a slice of uint64 words.
// Each bit corresponds to a non-negative integer ID. The zero value is an
// empty set ready to use.
type Bitmap struct {
	data  []uint64
	count int
}

// Add sets the bit corresponding to id, growing the backing storage when id
// lies beyond the current capacity.
func (b *Bitmap) Add(id uint64) {
	word := id / 64
	if word >= uint64(len(b.data)) {
		b.grow(word)
	}
	mask := uint64(1) << (id % 64)
	if b.data[word]&mask == 0 {
		b.data[word] |= mask
		b.count++
	}
}

// grow extends data so that index word is addressable. Capacity doubles to
// keep amortized Add cost constant on ascending id streams.
func (b *Bitmap) grow(word uint64) {
	n := uint64(cap(b.data))
	if n == 0 {
		n = 1024
	}
	for n <= word {
		n *= 2
	}
	next := make([]uint64, word+1, n)
	copy(next, b.data)
	b.data = next
}

// Has reports whether the bit corresponding to id is set.
// IDs beyond the current capacity are reported as absent.
func (b *Bitmap) Has(id uint64) bool {
	word := id / 64
	if word >= uint64(len(b.data)) {
		return false
	}
	return b.data[word]&(uint64(1)<<(id%64)) != 0
}

// Len returns the number of distinct ids in the set.
func (b *Bitmap) Len() int { return b.count }
