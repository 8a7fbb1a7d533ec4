package mheap

import "github.com/bnclabs/mheap/api"

// Valuestorage table of references held outside managed memory. Entries
// of the persistent table are roots, entries of the weak table don't keep
// their target alive and are cleared when the target is reclaimed.
type Valuestorage struct {
	mm       *MemoryManager
	weak     bool
	values   []api.Ref
	live     []bool
	freelist []int
	count    int
}

func newvaluestorage(mm *MemoryManager, weak bool) *Valuestorage {
	return &Valuestorage{mm: mm, weak: weak}
}

// Allocate an entry holding ref, return its index.
func (vs *Valuestorage) Allocate(ref api.Ref) int {
	var idx int
	if n := len(vs.freelist); n > 0 {
		idx, vs.freelist = vs.freelist[n-1], vs.freelist[:n-1]
		vs.values[idx], vs.live[idx] = ref, true
	} else {
		idx = len(vs.values)
		vs.values, vs.live = append(vs.values, ref), append(vs.live, true)
	}
	vs.count++
	return idx
}

// Get reference held at idx.
func (vs *Valuestorage) Get(idx int) api.Ref {
	vs.check(idx)
	return vs.values[idx]
}

// Set reference held at idx.
func (vs *Valuestorage) Set(idx int, ref api.Ref) {
	vs.check(idx)
	vs.values[idx] = ref
}

// Free entry at idx, idx can be reissued by a later Allocate.
func (vs *Valuestorage) Free(idx int) {
	vs.check(idx)
	vs.values[idx], vs.live[idx] = api.Nilref, false
	vs.freelist = append(vs.freelist, idx)
	vs.count--
}

// Count return number of live entries.
func (vs *Valuestorage) Count() int {
	return vs.count
}

func (vs *Valuestorage) check(idx int) {
	if idx < 0 || idx >= len(vs.values) || !vs.live[idx] {
		panicerr("value storage: invalid index %v", idx)
	}
}

func (vs *Valuestorage) markall(ms *Markstack) {
	for idx, ref := range vs.values {
		if vs.live[idx] {
			ms.Mark(ref)
		}
	}
}

// clearunmarked reset entries whose target did not survive marking,
// return number of entries cleared.
func (vs *Valuestorage) clearunmarked() int {
	n := 0
	for idx, ref := range vs.values {
		if !vs.live[idx] || ref == api.Nilref {
			continue
		}
		if chunk := vs.mm.ca.Chunkfor(ref); chunk == nil || !chunk.Ismarked(ref.Slot()) {
			vs.values[idx] = api.Nilref
			n++
		}
	}
	return n
}

func (vs *Valuestorage) reset() {
	vs.values, vs.live, vs.freelist, vs.count = nil, nil, nil, 0
}
