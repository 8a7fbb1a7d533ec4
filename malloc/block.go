package malloc

import "encoding/binary"

import s "github.com/bnclabs/gosettings"
import "github.com/bnclabs/mheap/api"
import "github.com/pkg/errors"

// Free runs are linked through their own memory, first 8 bytes carry the
// reference to next run in the bin and next 8 bytes carry the run length
// in slots.
const freenodesize = 16

// Blockallocator allocate objects upto Chunksize bytes out of chunks it
// owns. Free memory is tracked in Numbins segregated free-lists and a
// bump region at the tail of the most recently obtained chunk.
type Blockallocator struct {
	ca       *Chunkallocator
	chunks   []*Chunk
	bins     [Numbins]api.Ref
	binlens  [Numbins]int64
	nextfree api.Ref // bump region
	nfree    int64   // slots in bump region
	retain   int64
	sweeping bool

	usedslotsafter int64

	// statistics
	n_allocs    int64
	n_frees     int64
	n_splits    int64
	n_newchunks int64
	n_released  int64
}

// NewBlockallocator create a block allocator obtaining chunks from `ca`.
func NewBlockallocator(ca *Chunkallocator, setts s.Settings) *Blockallocator {
	setts = make(s.Settings).Mixin(Defaultsettings(), setts)
	retain := setts.Int64("block.retainchunks")
	if retain < 0 {
		panicerr("block.retainchunks %v cannot be negative", retain)
	}
	return &Blockallocator{ca: ca, retain: retain}
}

// Allocate `size` bytes, size is rounded up to Slotsize. If there is no
// free memory in chunks already held, a new chunk is obtained only when
// `force` is true, else return false. Returned memory is zeroed.
func (ba *Blockallocator) Allocate(size int64, force bool) (api.Ref, bool) {
	nslots := Slotsfor(size)
	if nslots > Numslots {
		panicerr("block allocation of %v bytes exceeds chunk", size)
	}

	var ref api.Ref
	bin := Binfor(nslots)
	if bin < Numbins-1 && ba.bins[bin] != api.Nilref {
		ref = ba.popbin(bin)
	} else if bin == Numbins-1 {
		ref = ba.searchlarge(nslots)
	}
	if ref == api.Nilref && ba.nfree >= nslots {
		ref = ba.bump(nslots)
	}
	if ref == api.Nilref && bin < Numbins-1 {
		if ref = ba.splitsmall(nslots); ref == api.Nilref {
			ref = ba.searchlarge(nslots)
		}
	}
	if ref == api.Nilref {
		if !force {
			return api.Nilref, false
		}
		ref = ba.newchunk(nslots)
	}

	chunk, slot := ba.ca.Chunkfor(ref), ref.Slot()
	chunk.setobject(slot, nslots)
	if ba.sweeping {
		chunk.marks.Set(slot)
	}
	clear(chunk.Bytes(slot, nslots*Slotsize))
	ba.n_allocs++
	return ref, true
}

func (ba *Blockallocator) bump(nslots int64) api.Ref {
	ref := ba.nextfree
	ba.nfree -= nslots
	if ba.nfree == 0 {
		ba.nextfree = api.Nilref
	} else {
		ba.nextfree = api.Makeref(ref.Chunkid(), ref.Slot()+nslots)
	}
	return ref
}

// splitsmall pop a run from the nearest larger small-bin and return the
// remainder to its bin.
func (ba *Blockallocator) splitsmall(nslots int64) api.Ref {
	for bin := Binfor(nslots) + 1; bin < Numbins-1; bin++ {
		if ba.bins[bin] == api.Nilref {
			continue
		}
		ref := ba.popbin(bin)
		rest := api.Makeref(ref.Chunkid(), ref.Slot()+nslots)
		ba.pushbin(rest, int64(bin)-nslots)
		ba.n_splits++
		return ref
	}
	return api.Nilref
}

// searchlarge first-fit search in the last bin, split off the remainder.
func (ba *Blockallocator) searchlarge(nslots int64) api.Ref {
	prev := api.Nilref
	for cur := ba.bins[Numbins-1]; cur != api.Nilref; {
		next, n := ba.readnode(cur)
		if n < nslots {
			prev, cur = cur, next
			continue
		}
		if prev == api.Nilref {
			ba.bins[Numbins-1] = next
		} else {
			_, pn := ba.readnode(prev)
			ba.writenode(prev, next, pn)
		}
		ba.binlens[Numbins-1]--
		if n > nslots {
			ba.pushbin(api.Makeref(cur.Chunkid(), cur.Slot()+nslots), n-nslots)
			ba.n_splits++
		}
		return cur
	}
	return api.Nilref
}

func (ba *Blockallocator) newchunk(nslots int64) api.Ref {
	if ba.nfree > 0 {
		ba.pushbin(ba.nextfree, ba.nfree)
	}
	chunk := ba.ca.Allocate(Chunkblock, Chunksize)
	ba.chunks = append(ba.chunks, chunk)
	ba.n_newchunks++
	ba.nextfree, ba.nfree = chunk.Ref(nslots), Numslots-nslots
	if ba.nfree == 0 {
		ba.nextfree = api.Nilref
	}
	return chunk.Ref(0)
}

func (ba *Blockallocator) popbin(bin int) api.Ref {
	ref := ba.bins[bin]
	next, _ := ba.readnode(ref)
	ba.bins[bin] = next
	ba.binlens[bin]--
	return ref
}

func (ba *Blockallocator) pushbin(ref api.Ref, nslots int64) {
	bin := Binfor(nslots)
	ba.writenode(ref, ba.bins[bin], nslots)
	ba.bins[bin] = ref
	ba.binlens[bin]++
}

func (ba *Blockallocator) readnode(ref api.Ref) (api.Ref, int64) {
	node := ba.ca.Chunkfor(ref).Bytes(ref.Slot(), freenodesize)
	next := api.Ref(binary.LittleEndian.Uint64(node[:8]))
	return next, int64(binary.LittleEndian.Uint64(node[8:]))
}

func (ba *Blockallocator) writenode(ref, next api.Ref, nslots int64) {
	node := ba.ca.Chunkfor(ref).Bytes(ref.Slot(), freenodesize)
	binary.LittleEndian.PutUint64(node[:8], uint64(next))
	binary.LittleEndian.PutUint64(node[8:], uint64(nslots))
}

// Sweep implement api.Mallocer interface. Every unmarked object is
// destroyed and its slots pushed to the bin for its size, adjacent free
// runs are not coalesced. Chunks without live objects are released,
// except for `block.retainchunks` chunks. Objects allocated by `destroy`
// survive this sweep.
func (ba *Blockallocator) Sweep(destroy func(ref api.Ref)) {
	ba.sweeping = true
	chunks := ba.chunks
	for _, chunk := range chunks {
		for slot := chunk.objects.Nextset(0); slot >= 0; {
			if !chunk.marks.Isset(slot) {
				ref := chunk.Ref(slot)
				if destroy != nil {
					destroy(ref)
				}
				nslots := chunk.clearobject(slot)
				poisonblock(chunk.Bytes(slot, nslots*Slotsize))
				ba.pushbin(ref, nslots)
				ba.n_frees++
			}
			slot = chunk.objects.Nextset(slot + 1)
		}
	}
	ba.sweeping = false
	for _, chunk := range ba.chunks {
		chunk.marks.Reset()
	}
	ba.releaseempty()
	ba.usedslotsafter = ba.Usedslots()
}

func (ba *Blockallocator) releaseempty() {
	nchunks := int64(len(ba.chunks))
	var dropped map[uint32]*Chunk
	kept := make([]*Chunk, 0, len(ba.chunks))
	for _, chunk := range ba.chunks {
		if chunk.nused == 0 && nchunks > ba.retain {
			if dropped == nil {
				dropped = make(map[uint32]*Chunk)
			}
			dropped[chunk.id] = chunk
			nchunks--
			continue
		}
		kept = append(kept, chunk)
	}
	if len(dropped) == 0 {
		return
	}

	// free-list nodes live in chunk memory, unlink them before release.
	for bin := 0; bin < Numbins; bin++ {
		var runs []api.Ref
		var lens []int64
		for cur := ba.bins[bin]; cur != api.Nilref; {
			next, n := ba.readnode(cur)
			if _, ok := dropped[cur.Chunkid()]; !ok {
				runs, lens = append(runs, cur), append(lens, n)
			}
			cur = next
		}
		ba.bins[bin], ba.binlens[bin] = api.Nilref, 0
		for i := len(runs) - 1; i >= 0; i-- {
			ba.pushbin(runs[i], lens[i])
		}
	}
	if _, ok := dropped[ba.nextfree.Chunkid()]; ok {
		ba.nextfree, ba.nfree = api.Nilref, 0
	}
	for _, chunk := range dropped {
		ba.ca.Release(chunk)
		ba.n_released++
	}
	ba.chunks = kept
	debugf("block allocator released %v chunks, %v kept\n", len(dropped), len(kept))
}

// Freeall implement api.Mallocer interface.
func (ba *Blockallocator) Freeall() {
	for _, chunk := range ba.chunks {
		ba.ca.Release(chunk)
	}
	ba.chunks = nil
	ba.bins, ba.binlens = [Numbins]api.Ref{}, [Numbins]int64{}
	ba.nextfree, ba.nfree, ba.usedslotsafter = api.Nilref, 0, 0
}

// Totalslots return number of slots in all chunks held.
func (ba *Blockallocator) Totalslots() int64 {
	return int64(len(ba.chunks)) * Numslots
}

// Usedslots return number of slots held by objects.
func (ba *Blockallocator) Usedslots() int64 {
	used := int64(0)
	for _, chunk := range ba.chunks {
		used += chunk.nused
	}
	return used
}

// Freeslots return number of slots not held by any object.
func (ba *Blockallocator) Freeslots() int64 {
	free := int64(0)
	for _, chunk := range ba.chunks {
		free += chunk.Nfree()
	}
	return free
}

// Usedslotsafter return number of used slots at the end of last sweep.
func (ba *Blockallocator) Usedslotsafter() int64 {
	return ba.usedslotsafter
}

// Usedmem implement api.Mallocer interface.
func (ba *Blockallocator) Usedmem() int64 {
	return ba.Usedslots() * Slotsize
}

// Allocatedmem implement api.Mallocer interface.
func (ba *Blockallocator) Allocatedmem() int64 {
	return int64(len(ba.chunks)) * Chunksize
}

// Chunks return number of chunks held.
func (ba *Blockallocator) Chunks() int64 {
	return int64(len(ba.chunks))
}

// Binlen return number of free runs in bin.
func (ba *Blockallocator) Binlen(bin int) int64 {
	return ba.binlens[bin]
}

// Owns return true if ref points into a chunk held by this allocator.
func (ba *Blockallocator) Owns(ref api.Ref) bool {
	chunk := ba.ca.Chunkfor(ref)
	return chunk != nil && chunk.kind == Chunkblock
}

// Validate free-lists and slot accounting, return the first
// inconsistency found.
func (ba *Blockallocator) Validate() error {
	owned := make(map[uint32]*Chunk, len(ba.chunks))
	for _, chunk := range ba.chunks {
		if err := chunk.Validate(); err != nil {
			return err
		}
		owned[chunk.id] = chunk
	}
	check := func(ref api.Ref, nslots int64) error {
		chunk, ok := owned[ref.Chunkid()]
		if !ok {
			return errors.Errorf("free run %v outside owned chunks", ref)
		} else if ref.Slot()+nslots > Numslots {
			return errors.Errorf("free run %v of %v slots crosses chunk", ref, nslots)
		}
		for slot := ref.Slot(); slot < ref.Slot()+nslots; slot++ {
			if chunk.objects.Isset(slot) || chunk.extents.Isset(slot) {
				return errors.Errorf("free run %v overlaps object at slot %v", ref, slot)
			}
		}
		return nil
	}
	for bin := 0; bin < Numbins; bin++ {
		count := int64(0)
		for cur := ba.bins[bin]; cur != api.Nilref; count++ {
			next, n := ba.readnode(cur)
			if Binfor(n) != bin {
				return errors.Errorf("run %v of %v slots in bin %v", cur, n, bin)
			} else if err := check(cur, n); err != nil {
				return err
			}
			cur = next
		}
		if count != ba.binlens[bin] {
			return errors.Errorf("bin %v has %v runs, expected %v", bin, count, ba.binlens[bin])
		}
	}
	if ba.nfree > 0 {
		if err := check(ba.nextfree, ba.nfree); err != nil {
			return err
		}
	}
	return nil
}

// Stats return statistics for block allocator.
func (ba *Blockallocator) Stats() map[string]interface{} {
	binlens := make([]int64, Numbins)
	copy(binlens, ba.binlens[:])
	return map[string]interface{}{
		"chunks":         int64(len(ba.chunks)),
		"usedslots":      ba.Usedslots(),
		"totalslots":     ba.Totalslots(),
		"usedslotsafter": ba.usedslotsafter,
		"bumpslots":      ba.nfree,
		"binlens":        binlens,
		"n_allocs":       ba.n_allocs,
		"n_frees":        ba.n_frees,
		"n_splits":       ba.n_splits,
		"n_newchunks":    ba.n_newchunks,
		"n_released":     ba.n_released,
	}
}
