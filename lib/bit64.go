package lib

import "math/bits"

// Bit64 alias for uint64, provides bit twiddling methods on 64-bit number.
type Bit64 uint64

// Ones return number of bits set.
func (b Bit64) Ones() int8 {
	return int8(bits.OnesCount64(uint64(b)))
}

// Zeros return number of bits cleared.
func (b Bit64) Zeros() int8 {
	return 64 - b.Ones()
}

// Findfirstset return the position of least significant set bit, -1 if
// no bit is set.
func (b Bit64) Findfirstset() int8 {
	if b == 0 {
		return -1
	}
	return int8(bits.TrailingZeros64(uint64(b)))
}
