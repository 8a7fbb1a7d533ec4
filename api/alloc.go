package api

import "fmt"

// Ref is a reference to a managed object. Upper 32 bits locate the chunk
// by its id and lower 32 bits locate the object's first slot within that
// chunk.
type Ref uint64

// Nilref is the null reference, chunk ids start from 1.
const Nilref = Ref(0)

// Makeref compose a reference from chunk-id and slot.
func Makeref(chunkid uint32, slot int64) Ref {
	return Ref(uint64(chunkid)<<32 | uint64(uint32(slot)))
}

// Chunkid return the id of the chunk referred by ref.
func (ref Ref) Chunkid() uint32 {
	return uint32(ref >> 32)
}

// Slot return the slot index, within the chunk, referred by ref.
func (ref Ref) Slot() int64 {
	return int64(uint32(ref))
}

// Isnil return true for Nilref.
func (ref Ref) Isnil() bool {
	return ref == Nilref
}

func (ref Ref) String() string {
	if ref == Nilref {
		return "nil"
	}
	return fmt.Sprintf("%v:%v", ref.Chunkid(), ref.Slot())
}
