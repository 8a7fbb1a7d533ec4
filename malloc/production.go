//go:build !debug

package malloc

// Debugchecks enable verification bitmaps and poisoning of freed memory.
const Debugchecks = false

func poisonblock(block []byte) {
}
