package malloc

import "github.com/pkg/errors"

// ErrorOutofMemory is fatal, raised as panic when OS refuses to map more
// memory or when the configured capacity is exhausted.
var ErrorOutofMemory = errors.New("malloc.outofmemory")

// Slotsfor return number of slots required to hold `size` bytes, a zero
// sized allocation still consumes a slot.
func Slotsfor(size int64) int64 {
	if n := ceil(size, Slotsize); n > 0 {
		return n
	}
	return 1
}

// Binfor return the free-list bin for a run of `nslots` slots.
func Binfor(nslots int64) int {
	if nslots >= Numbins-1 {
		return Numbins - 1
	}
	return int(nslots)
}

func ceil(divident, divisor int64) int64 {
	if divident%divisor == 0 {
		return divident / divisor
	}
	return (divident / divisor) + 1
}

func panicerr(fmsg string, args ...interface{}) {
	panic(errors.Errorf(fmsg, args...))
}
