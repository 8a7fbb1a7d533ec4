package lib

import "math/bits"

// Bitmap of fixed length, every bit is addressed by its index.
type Bitmap []uint64

// NewBitmap return a bitmap that can hold `nbits` bits, all cleared.
func NewBitmap(nbits int64) Bitmap {
	return make(Bitmap, (nbits+63)/64)
}

// Len return the number of addressable bits.
func (bm Bitmap) Len() int64 {
	return int64(len(bm)) * 64
}

// Isset return true if bit at `i` is set.
func (bm Bitmap) Isset(i int64) bool {
	return (bm[i>>6] & (1 << uint(i&0x3f))) != 0
}

// Set bit at `i`.
func (bm Bitmap) Set(i int64) {
	bm[i>>6] |= 1 << uint(i&0x3f)
}

// Clear bit at `i`.
func (bm Bitmap) Clear(i int64) {
	bm[i>>6] &^= 1 << uint(i&0x3f)
}

// Setrange set bits [from, till).
func (bm Bitmap) Setrange(from, till int64) {
	for i := from; i < till; i++ {
		if (i&0x3f) == 0 && (till-i) >= 64 {
			bm[i>>6], i = 0xffffffffffffffff, i+63
			continue
		}
		bm.Set(i)
	}
}

// Clearrange clear bits [from, till).
func (bm Bitmap) Clearrange(from, till int64) {
	for i := from; i < till; i++ {
		if (i&0x3f) == 0 && (till-i) >= 64 {
			bm[i>>6], i = 0, i+63
			continue
		}
		bm.Clear(i)
	}
}

// Reset clear all bits.
func (bm Bitmap) Reset() {
	for i := range bm {
		bm[i] = 0
	}
}

// Ones return the number of set bits.
func (bm Bitmap) Ones() int64 {
	n := int64(0)
	for _, word := range bm {
		n += int64(Bit64(word).Ones())
	}
	return n
}

// Nextset return the index of first set bit at or after `from`, -1 if
// there is none.
func (bm Bitmap) Nextset(from int64) int64 {
	if from >= bm.Len() {
		return -1
	}
	q, r := from>>6, uint(from&0x3f)
	if word := bm[q] >> r; word != 0 {
		return from + int64(bits.TrailingZeros64(word))
	}
	for q++; q < int64(len(bm)); q++ {
		if bm[q] != 0 {
			return (q << 6) + int64(bits.TrailingZeros64(bm[q]))
		}
	}
	return -1
}

// Equal return true if both bitmaps have identical bits.
func (bm Bitmap) Equal(other Bitmap) bool {
	if len(bm) != len(other) {
		return false
	}
	for i, word := range bm {
		if other[i] != word {
			return false
		}
	}
	return true
}
