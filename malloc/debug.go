//go:build debug

package malloc

// Debugchecks enable verification bitmaps and poisoning of freed memory.
const Debugchecks = true

// poisonblock fill freed memory with 0xff so that a dangling reference
// reads garbage loudly.
func poisonblock(block []byte) {
	for i := range block {
		block[i] = 0xff
	}
}
