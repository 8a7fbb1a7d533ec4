package mheap

import "github.com/bnclabs/mheap/api"

// Markstack worklist of objects marked but not yet scanned. Implements
// api.Marker, engines and Vtable.Markobjects push references using
// Mark().
type Markstack struct {
	mm       *MemoryManager
	stack    []api.Ref
	nmarked  int64
	maxdepth int
}

func newmarkstack(mm *MemoryManager) *Markstack {
	return &Markstack{mm: mm, stack: make([]api.Ref, 0, 1024)}
}

// Mark implement api.Marker interface. Marking an object already marked
// is a no-op, marking a reference that does not refer to a live object
// panics.
func (ms *Markstack) Mark(ref api.Ref) {
	if ref == api.Nilref {
		return
	}
	chunk := ms.mm.chunkof(ref)
	if chunk.Setmark(ref.Slot()) {
		ms.stack = append(ms.stack, ref)
		ms.nmarked++
		if len(ms.stack) > ms.maxdepth {
			ms.maxdepth = len(ms.stack)
		}
	}
}

// drain scan objects until worklist is empty, every object reachable
// from marked objects gets marked.
func (ms *Markstack) drain() {
	for n := len(ms.stack); n > 0; n = len(ms.stack) {
		ref := ms.stack[n-1]
		ms.stack = ms.stack[:n-1]
		ms.scan(ref)
	}
}

func (ms *Markstack) scan(ref api.Ref) {
	info := ms.mm.typeinfo(ref)
	if info == nil {
		return
	}
	for _, off := range info.refs {
		ms.Mark(ms.mm.Loadref(ref, off))
	}
	if info.markobjects != nil {
		info.markobjects(ms.mm, ref, ms)
	}
}

func (ms *Markstack) reset() {
	ms.stack = ms.stack[:0]
	ms.nmarked, ms.maxdepth = 0, 0
}
