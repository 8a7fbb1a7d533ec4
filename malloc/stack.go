package malloc

import "github.com/bnclabs/mheap/api"

// Stackallocator hand out fixed size records in LIFO order. Records are
// packed into chunks, a chunk is obtained when the current one is full
// and released as soon as it is emptied.
type Stackallocator struct {
	ca       *Chunkallocator
	reqslots int64
	limit    int64 // usable slots per chunk
	chunks   []*Chunk
	cursor   int64 // next free slot in last chunk

	// statistics
	n_allocs int64
	n_frees  int64
}

// NewStackallocator create a stack allocator for records of
// `recordsize` bytes.
func NewStackallocator(ca *Chunkallocator, recordsize int64) *Stackallocator {
	reqslots := Slotsfor(recordsize)
	if recordsize <= 0 || reqslots > Numslots {
		panicerr("invalid stack record size %v", recordsize)
	}
	return &Stackallocator{
		ca: ca, reqslots: reqslots, limit: (Numslots / reqslots) * reqslots,
	}
}

// Allocate a zeroed record on top of the stack.
func (sa *Stackallocator) Allocate() api.Ref {
	if len(sa.chunks) == 0 || sa.cursor == sa.limit {
		sa.chunks = append(sa.chunks, sa.ca.Allocate(Chunkstack, Chunksize))
		sa.cursor = 0
	}
	chunk, slot := sa.chunks[len(sa.chunks)-1], sa.cursor
	chunk.setobject(slot, sa.reqslots)
	clear(chunk.Bytes(slot, sa.reqslots*Slotsize))
	sa.cursor += sa.reqslots
	sa.n_allocs++
	return chunk.Ref(slot)
}

// Free the record on top of the stack.
func (sa *Stackallocator) Free() {
	if len(sa.chunks) == 0 {
		panicerr("free on empty stack allocator")
	}
	chunk := sa.chunks[len(sa.chunks)-1]
	sa.cursor -= sa.reqslots
	nslots := chunk.clearobject(sa.cursor)
	poisonblock(chunk.Bytes(sa.cursor, nslots*Slotsize))
	sa.n_frees++
	if sa.cursor == 0 {
		sa.ca.Release(chunk)
		sa.chunks[len(sa.chunks)-1] = nil
		sa.chunks = sa.chunks[:len(sa.chunks)-1]
		if len(sa.chunks) > 0 {
			sa.cursor = sa.limit
		}
	}
}

// Top return reference to the record on top of the stack, Nilref if
// stack is empty.
func (sa *Stackallocator) Top() api.Ref {
	if len(sa.chunks) == 0 {
		return api.Nilref
	}
	return sa.chunks[len(sa.chunks)-1].Ref(sa.cursor - sa.reqslots)
}

// Walk every live record from bottom to top.
func (sa *Stackallocator) Walk(fn func(ref api.Ref)) {
	for i, chunk := range sa.chunks {
		till := sa.limit
		if i == len(sa.chunks)-1 {
			till = sa.cursor
		}
		for slot := int64(0); slot < till; slot += sa.reqslots {
			fn(chunk.Ref(slot))
		}
	}
}

// Depth return number of live records.
func (sa *Stackallocator) Depth() int64 {
	if len(sa.chunks) == 0 {
		return 0
	}
	full := int64(len(sa.chunks)-1) * (sa.limit / sa.reqslots)
	return full + (sa.cursor / sa.reqslots)
}

// Cursor return the next free slot in the top chunk.
func (sa *Stackallocator) Cursor() int64 {
	return sa.cursor
}

// Chunks return number of chunks held.
func (sa *Stackallocator) Chunks() int64 {
	return int64(len(sa.chunks))
}

// Recordsize return bytes consumed by each record.
func (sa *Stackallocator) Recordsize() int64 {
	return sa.reqslots * Slotsize
}

// Clearmarks clear marks on all records.
func (sa *Stackallocator) Clearmarks() {
	for _, chunk := range sa.chunks {
		chunk.Clearmarks()
	}
}

// Sweep implement api.Mallocer interface. Stack records are freed only
// in LIFO order by their owner, sweep clears marks and call destroy on
// none of them.
func (sa *Stackallocator) Sweep(destroy func(ref api.Ref)) {
	sa.Clearmarks()
}

// Freeall implement api.Mallocer interface.
func (sa *Stackallocator) Freeall() {
	for _, chunk := range sa.chunks {
		sa.ca.Release(chunk)
	}
	sa.chunks, sa.cursor = nil, 0
}

// Usedmem implement api.Mallocer interface.
func (sa *Stackallocator) Usedmem() int64 {
	return sa.Depth() * sa.reqslots * Slotsize
}

// Allocatedmem implement api.Mallocer interface.
func (sa *Stackallocator) Allocatedmem() int64 {
	return int64(len(sa.chunks)) * Chunksize
}

// Stats return statistics for stack allocator.
func (sa *Stackallocator) Stats() map[string]interface{} {
	return map[string]interface{}{
		"recordsize": sa.Recordsize(),
		"depth":      sa.Depth(),
		"chunks":     int64(len(sa.chunks)),
		"n_allocs":   sa.n_allocs,
		"n_frees":    sa.n_frees,
	}
}
