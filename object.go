package mheap

import "encoding/binary"

import "github.com/bnclabs/mheap/api"
import "github.com/bnclabs/mheap/malloc"

// Headersize bytes at the start of every managed object, holding its
// type id and its size. Object fields follow the header.
const Headersize = int64(16)

const (
	hdrTypeid = 0
	hdrSize   = 8
)

func (mm *MemoryManager) writeheader(ref api.Ref, typeid uint32, size int64) {
	hdr := mm.chunkof(ref).Bytes(ref.Slot(), Headersize)
	binary.LittleEndian.PutUint32(hdr[hdrTypeid:], typeid)
	binary.LittleEndian.PutUint64(hdr[hdrSize:], uint64(size))
}

// chunkof return chunk holding the object, panic if ref does not refer
// to a live object.
func (mm *MemoryManager) chunkof(ref api.Ref) *malloc.Chunk {
	chunk := mm.ca.Chunkfor(ref)
	if chunk == nil || !chunk.Isobject(ref.Slot()) {
		panicerr("%v stale or invalid reference %v", mm.logprefix, ref)
	}
	return chunk
}

func (mm *MemoryManager) typeid(ref api.Ref) uint32 {
	hdr := mm.chunkof(ref).Bytes(ref.Slot(), Headersize)
	return binary.LittleEndian.Uint32(hdr[hdrTypeid:])
}

// Typeof return the descriptor object was allocated with, nil for raw
// objects.
func (mm *MemoryManager) Typeof(ref api.Ref) *Typedesc {
	if info := mm.typeinfo(ref); info != nil {
		return info.desc
	}
	return nil
}

// Sizeof return the size requested for the object, header included.
func (mm *MemoryManager) Sizeof(ref api.Ref) int64 {
	hdr := mm.chunkof(ref).Bytes(ref.Slot(), Headersize)
	return int64(binary.LittleEndian.Uint64(hdr[hdrSize:]))
}

// Memory return object's memory, header included. Returned slice is
// valid until the object is reclaimed.
func (mm *MemoryManager) Memory(ref api.Ref) []byte {
	return mm.chunkof(ref).Bytes(ref.Slot(), mm.Sizeof(ref))
}

// Fields return object's memory following the header.
func (mm *MemoryManager) Fields(ref api.Ref) []byte {
	return mm.Memory(ref)[Headersize:]
}

// Loadref load reference stored at offset `off` within object.
func (mm *MemoryManager) Loadref(ref api.Ref, off int64) api.Ref {
	return api.Ref(mm.Loaduint64(ref, off))
}

// Storeref store reference `val` at offset `off` within object.
func (mm *MemoryManager) Storeref(ref api.Ref, off int64, val api.Ref) {
	mm.Storeuint64(ref, off, uint64(val))
}

// Loaduint64 load 64-bit word stored at offset `off` within object.
func (mm *MemoryManager) Loaduint64(ref api.Ref, off int64) uint64 {
	return binary.LittleEndian.Uint64(mm.field(ref, off))
}

// Storeuint64 store 64-bit word at offset `off` within object.
func (mm *MemoryManager) Storeuint64(ref api.Ref, off int64, val uint64) {
	binary.LittleEndian.PutUint64(mm.field(ref, off), val)
}

func (mm *MemoryManager) field(ref api.Ref, off int64) []byte {
	size := mm.Sizeof(ref)
	if off < Headersize || off+8 > size {
		panicerr("object %v of %v bytes: field offset %v out of bounds", ref, size, off)
	}
	return mm.chunkof(ref).Bytes(ref.Slot(), size)[off : off+8]
}
