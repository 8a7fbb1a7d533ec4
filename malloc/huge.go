package malloc

import "github.com/bnclabs/mheap/api"

type hugeitem struct {
	chunk *Chunk
	size  int64
}

// Hugeallocator give every object its own chunk, sized to the object
// and rounded up to Chunksize.
type Hugeallocator struct {
	ca       *Chunkallocator
	items    []hugeitem
	sweeping bool

	// statistics
	n_allocs int64
	n_frees  int64
}

// NewHugeallocator create a huge allocator obtaining chunks from `ca`.
func NewHugeallocator(ca *Chunkallocator) *Hugeallocator {
	return &Hugeallocator{ca: ca}
}

// Allocate `size` bytes of zeroed memory.
func (ha *Hugeallocator) Allocate(size int64) api.Ref {
	chunk := ha.ca.Allocate(Chunkhuge, size)
	chunk.setobject(0, Numslots)
	if ha.sweeping {
		chunk.marks.Set(0)
	}
	ha.items = append(ha.items, hugeitem{chunk: chunk, size: size})
	ha.n_allocs++
	return chunk.Ref(0)
}

// Setsweeping mark objects allocated from now on, so that they survive
// the sweep in progress. Clearing it clears marks on every item.
func (ha *Hugeallocator) Setsweeping(on bool) {
	ha.sweeping = on
	if !on {
		for _, item := range ha.items {
			item.chunk.marks.Clear(0)
		}
	}
}

// Sweep implement api.Mallocer interface. Objects allocated by `destroy`
// survive this sweep.
func (ha *Hugeallocator) Sweep(destroy func(ref api.Ref)) {
	if !ha.sweeping {
		ha.sweeping = true
		defer ha.Setsweeping(false)
	}
	items := ha.items
	ha.items = make([]hugeitem, 0, len(items))
	for _, item := range items {
		if item.chunk.marks.Isset(0) {
			item.chunk.marks.Clear(0)
			ha.items = append(ha.items, item)
			continue
		}
		if destroy != nil {
			destroy(item.chunk.Ref(0))
		}
		item.chunk.clearobject(0)
		ha.ca.Release(item.chunk)
		ha.n_frees++
	}
}

// Freeall implement api.Mallocer interface.
func (ha *Hugeallocator) Freeall() {
	for _, item := range ha.items {
		ha.ca.Release(item.chunk)
	}
	ha.items = nil
}

// Usedmem implement api.Mallocer interface, exact sum of requested sizes.
func (ha *Hugeallocator) Usedmem() int64 {
	used := int64(0)
	for _, item := range ha.items {
		used += item.size
	}
	return used
}

// Allocatedmem implement api.Mallocer interface.
func (ha *Hugeallocator) Allocatedmem() int64 {
	allocated := int64(0)
	for _, item := range ha.items {
		allocated += item.chunk.Size()
	}
	return allocated
}

// Count return number of live huge objects.
func (ha *Hugeallocator) Count() int64 {
	return int64(len(ha.items))
}

// Stats return statistics for huge allocator.
func (ha *Hugeallocator) Stats() map[string]interface{} {
	return map[string]interface{}{
		"count":        int64(len(ha.items)),
		"usedmem":      ha.Usedmem(),
		"allocatedmem": ha.Allocatedmem(),
		"n_allocs":     ha.n_allocs,
		"n_frees":      ha.n_frees,
	}
}
