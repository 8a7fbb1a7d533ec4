package malloc

import "fmt"

import "github.com/bnclabs/mheap/api"
import "github.com/bnclabs/mheap/lib"
import "github.com/pkg/errors"

// Chunkkind identify the allocator owning a chunk.
type Chunkkind uint8

const (
	// Chunkfree chunk is released back to Chunkallocator.
	Chunkfree Chunkkind = iota
	// Chunkblock chunk is owned by Blockallocator.
	Chunkblock
	// Chunkstack chunk is owned by Stackallocator.
	Chunkstack
	// Chunkhuge chunk, and its trailing chunks, hold a single huge object.
	Chunkhuge
)

func (kind Chunkkind) String() string {
	switch kind {
	case Chunkfree:
		return "free"
	case Chunkblock:
		return "block"
	case Chunkstack:
		return "stack"
	case Chunkhuge:
		return "huge"
	}
	return fmt.Sprintf("kind(%d)", uint8(kind))
}

// Chunk of memory handed out by Chunkallocator. Every slot in the chunk
// is in one of three states, start of an object, an extent of the object
// before it or free. Objects start on a slot boundary and never cross a
// chunk boundary, except for huge objects which own all their chunks.
type Chunk struct {
	id      uint32
	kind    Chunkkind
	nchunks int64
	data    []byte
	seg     *segment
	nth     int64 // index within segment
	nused   int64

	objects lib.Bitmap
	extents lib.Bitmap
	marks   lib.Bitmap
	verify  lib.Bitmap // only with Debugchecks
}

func newchunk(kind Chunkkind, data []byte, seg *segment, nth int64) *Chunk {
	chunk := &Chunk{
		kind:    kind,
		nchunks: int64(len(data)) / Chunksize,
		data:    data,
		seg:     seg,
		nth:     nth,
		objects: lib.NewBitmap(Numslots),
		extents: lib.NewBitmap(Numslots),
		marks:   lib.NewBitmap(Numslots),
	}
	if Debugchecks {
		chunk.verify = lib.NewBitmap(Numslots)
	}
	return chunk
}

// ID of this chunk, ids are unique among live chunks of an allocator.
func (chunk *Chunk) ID() uint32 {
	return chunk.id
}

// Kind of allocator owning this chunk.
func (chunk *Chunk) Kind() Chunkkind {
	return chunk.kind
}

// Size of chunk memory in bytes.
func (chunk *Chunk) Size() int64 {
	return int64(len(chunk.data))
}

// Nchunks number of Chunksize units covered by this chunk.
func (chunk *Chunk) Nchunks() int64 {
	return chunk.nchunks
}

// Ref return reference to slot.
func (chunk *Chunk) Ref(slot int64) api.Ref {
	return api.Makeref(chunk.id, slot)
}

// Bytes return `n` bytes of chunk memory starting at slot.
func (chunk *Chunk) Bytes(slot, n int64) []byte {
	off := slot * Slotsize
	return chunk.data[off : off+n : off+n]
}

// Isobject return true if an object starts at slot.
func (chunk *Chunk) Isobject(slot int64) bool {
	if slot < 0 || slot >= Numslots {
		return false
	}
	return chunk.objects.Isset(slot)
}

// Ismarked return true if object at slot is marked.
func (chunk *Chunk) Ismarked(slot int64) bool {
	return chunk.marks.Isset(slot)
}

// Setmark mark object at slot, return false if it was already marked.
func (chunk *Chunk) Setmark(slot int64) bool {
	if chunk.marks.Isset(slot) {
		return false
	}
	chunk.marks.Set(slot)
	return true
}

// Clearmarks clear all marks in this chunk.
func (chunk *Chunk) Clearmarks() {
	chunk.marks.Reset()
}

// Nused return number of slots held by objects.
func (chunk *Chunk) Nused() int64 {
	return chunk.nused
}

// Nfree return number of slots not held by any object.
func (chunk *Chunk) Nfree() int64 {
	nfree := int64(0)
	for i, word := range chunk.objects {
		nfree += int64(lib.Bit64(word | chunk.extents[i]).Zeros())
	}
	return nfree
}

// Objects call fn for every object starting slot, in ascending order.
func (chunk *Chunk) Objects(fn func(slot int64) bool) {
	for slot := chunk.objects.Nextset(0); slot >= 0; {
		if !fn(slot) {
			return
		}
		slot = chunk.objects.Nextset(slot + 1)
	}
}

// Objectslots return number of slots held by object at slot.
func (chunk *Chunk) Objectslots(slot int64) int64 {
	n := int64(1)
	for slot+n < Numslots && chunk.extents.Isset(slot+n) {
		n++
	}
	return n
}

func (chunk *Chunk) setobject(slot, nslots int64) {
	if chunk.objects.Isset(slot) || chunk.extents.Isset(slot) {
		panicerr("chunk %v slot %v already in use", chunk.id, slot)
	}
	chunk.objects.Set(slot)
	chunk.extents.Setrange(slot+1, slot+nslots)
	chunk.nused += nslots
	if Debugchecks {
		chunk.verify.Set(slot)
	}
}

func (chunk *Chunk) clearobject(slot int64) int64 {
	if !chunk.objects.Isset(slot) {
		panicerr("chunk %v slot %v is not an object", chunk.id, slot)
	}
	nslots := chunk.Objectslots(slot)
	chunk.objects.Clear(slot)
	chunk.extents.Clearrange(slot+1, slot+nslots)
	chunk.marks.Clear(slot)
	chunk.nused -= nslots
	if Debugchecks {
		chunk.verify.Clear(slot)
	}
	return nslots
}

func (chunk *Chunk) resetmeta() {
	chunk.objects.Reset()
	chunk.extents.Reset()
	chunk.marks.Reset()
	if chunk.verify != nil {
		chunk.verify.Reset()
	}
	chunk.nused = 0
}

// Validate slot accounting within this chunk.
func (chunk *Chunk) Validate() error {
	for i, word := range chunk.objects {
		if x := word & chunk.extents[i]; x != 0 {
			return errors.Errorf("chunk %v: slots %x both object and extent", chunk.id, x)
		}
	}
	if used := chunk.objects.Ones() + chunk.extents.Ones(); used != chunk.nused {
		return errors.Errorf("chunk %v: nused %v, bitmaps have %v", chunk.id, chunk.nused, used)
	}
	if nfree := chunk.Nfree(); nfree+chunk.nused != Numslots {
		return errors.Errorf("chunk %v: used %v + free %v != %v", chunk.id, chunk.nused, nfree, Numslots)
	}
	if chunk.verify != nil && !chunk.verify.Equal(chunk.objects) {
		return errors.Errorf("chunk %v: verify bitmap mismatch", chunk.id)
	}
	if first := chunk.extents.Nextset(0); first == 0 {
		return errors.Errorf("chunk %v: slot 0 is an extent", chunk.id)
	}
	return nil
}

func (chunk *Chunk) String() string {
	return fmt.Sprintf("chunk<%v,%v,%vx%v>", chunk.id, chunk.kind, chunk.nchunks, Chunksize)
}
