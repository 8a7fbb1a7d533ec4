package malloc

import "github.com/bnclabs/mheap/lib"

// freebits track free chunks within a segment, a set bit marks the chunk
// as free.
type freebits struct {
	bitmap  lib.Bitmap
	nblocks int64
	nfree   int64
	hint    int64 // no free chunk below this index
}

func newfreebits(nblocks int64) *freebits {
	if nblocks <= 0 || (nblocks%Minsegmentchunks) != 0 {
		panicerr("segment of %v chunks, should be multiples of %v", nblocks, Minsegmentchunks)
	}
	fbits := &freebits{
		bitmap: lib.NewBitmap(nblocks), nblocks: nblocks, nfree: nblocks,
	}
	fbits.bitmap.Setrange(0, nblocks)
	return fbits
}

func (fbits *freebits) alloc() (int64, bool) {
	if fbits.nfree == 0 {
		return -1, false
	}
	nth := fbits.bitmap.Nextset(fbits.hint)
	if nth < 0 || nth >= fbits.nblocks {
		panicerr("freebits count %v, but no free bit after %v", fbits.nfree, fbits.hint)
	}
	fbits.bitmap.Clear(nth)
	fbits.nfree, fbits.hint = fbits.nfree-1, nth+1
	return nth, true
}

func (fbits *freebits) free(nth int64) {
	if nth < 0 || nth >= fbits.nblocks {
		panicerr("free chunk %v outside segment of %v", nth, fbits.nblocks)
	} else if fbits.bitmap.Isset(nth) {
		panicerr("chunk %v freed twice", nth)
	}
	fbits.bitmap.Set(nth)
	fbits.nfree++
	if nth < fbits.hint {
		fbits.hint = nth
	}
}

func (fbits *freebits) freeblocks() int64 {
	return fbits.nfree
}

func (fbits *freebits) isfull() bool {
	return fbits.nfree == fbits.nblocks
}
