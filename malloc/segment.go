package malloc

import "github.com/pkg/errors"

// segment is a contiguous block of memory mapped from OS and sliced into
// chunks. Dedicated segments back a single huge object and are never
// shared.
type segment struct {
	base      []byte
	nchunks   int64
	fbits     *freebits
	dedicated bool
}

func newsegment(nchunks int64, dedicated bool) *segment {
	size := nchunks * Chunksize
	base, err := osmap(size)
	if err != nil {
		panic(errors.Wrapf(ErrorOutofMemory, "mapping %v bytes: %v", size, err))
	}
	seg := &segment{base: base, nchunks: nchunks, dedicated: dedicated}
	if !dedicated {
		seg.fbits = newfreebits(nchunks)
	}
	return seg
}

// allocchunk return the index and memory of a free chunk.
func (seg *segment) allocchunk() (int64, []byte, bool) {
	nth, ok := seg.fbits.alloc()
	if !ok {
		return -1, nil, false
	}
	off := nth * Chunksize
	return nth, seg.base[off : off+Chunksize : off+Chunksize], true
}

// freechunk return chunk back to segment, chunk memory shall be zeroed
// by the caller.
func (seg *segment) freechunk(nth int64) {
	seg.fbits.free(nth)
}

func (seg *segment) isempty() bool {
	return seg.fbits.isfull()
}

func (seg *segment) capacity() int64 {
	return int64(len(seg.base))
}

func (seg *segment) release() {
	if err := osunmap(seg.base); err != nil {
		panicerr("unmapping %v bytes: %v", len(seg.base), err)
	}
	seg.base, seg.fbits = nil, nil
}
