package malloc

import "math"

import s "github.com/bnclabs/gosettings"
import humanize "github.com/dustin/go-humanize"
import "github.com/bnclabs/mheap/api"
import "github.com/pkg/errors"

// Chunkallocator obtain memory from OS in segments and hand it out as
// chunks. Requests larger than Chunksize get a dedicated segment sized
// to the request, rounded up to Chunksize.
type Chunkallocator struct {
	segchunks int64 // chunks per shared segment
	capacity  int64
	mapped    int64

	segments  []*segment // shared segments, in mapping order
	dedicated int64
	chunks    []*Chunk // indexed by chunk id, id 0 is never issued
	freeids   []uint32
	nlive     int64

	// statistics
	n_allocs  int64
	n_frees   int64
	n_mmaps   int64
	n_munmaps int64
}

// NewChunkallocator create a chunk allocator, refer to Defaultsettings()
// for configurable parameters.
func NewChunkallocator(setts s.Settings) *Chunkallocator {
	setts = make(s.Settings).Mixin(Defaultsettings(), setts)
	maxchunksize, capacity := setts.Int64("maxchunksize"), setts.Int64("capacity")
	if unit := Minsegmentchunks * Chunksize; maxchunksize <= 0 || maxchunksize%unit != 0 {
		panicerr("maxchunksize %v should be multiples of %v", maxchunksize, unit)
	} else if capacity < maxchunksize {
		panicerr("capacity %v less than maxchunksize %v", capacity, maxchunksize)
	}
	ca := &Chunkallocator{
		segchunks: maxchunksize / Chunksize,
		capacity:  capacity,
		chunks:    make([]*Chunk, 1),
	}
	infof("chunk allocator: segments of %v, capacity %v\n",
		humanize.Bytes(uint64(maxchunksize)), humanize.Bytes(uint64(capacity)))
	return ca
}

// Allocate a chunk of at least `size` bytes for allocator `kind`. Chunk
// memory is zeroed.
func (ca *Chunkallocator) Allocate(kind Chunkkind, size int64) *Chunk {
	if size <= 0 {
		panicerr("invalid chunk size %v", size)
	} else if kind == Chunkfree {
		panicerr("chunk kind cannot be %v", kind)
	}

	var chunk *Chunk
	if nchunks := ceil(size, Chunksize); nchunks > 1 {
		seg := ca.mmap(nchunks, true /*dedicated*/)
		ca.dedicated++
		chunk = newchunk(kind, seg.base, seg, 0)
	} else {
		chunk = ca.allocshared(kind)
	}
	ca.issue(chunk)
	ca.n_allocs++
	return chunk
}

// Fits return true if a chunk of `size` bytes can be allocated without
// exceeding capacity.
func (ca *Chunkallocator) Fits(size int64) bool {
	if nchunks := ceil(size, Chunksize); nchunks > 1 {
		return ca.mapped+nchunks*Chunksize <= ca.capacity
	}
	for _, seg := range ca.segments {
		if seg.fbits.freeblocks() > 0 {
			return true
		}
	}
	return ca.mapped+ca.segchunks*Chunksize <= ca.capacity
}

func (ca *Chunkallocator) allocshared(kind Chunkkind) *Chunk {
	for _, seg := range ca.segments {
		if nth, data, ok := seg.allocchunk(); ok {
			return newchunk(kind, data, seg, nth)
		}
	}
	seg := ca.mmap(ca.segchunks, false /*dedicated*/)
	ca.segments = append(ca.segments, seg)
	nth, data, _ := seg.allocchunk()
	return newchunk(kind, data, seg, nth)
}

func (ca *Chunkallocator) mmap(nchunks int64, dedicated bool) *segment {
	size := nchunks * Chunksize
	if ca.mapped+size > ca.capacity {
		err := errors.Wrapf(ErrorOutofMemory,
			"mapped %v + %v exceeds capacity %v", ca.mapped, size, ca.capacity)
		errorf("%v\n", err)
		panic(err)
	}
	seg := newsegment(nchunks, dedicated)
	ca.mapped += size
	ca.n_mmaps++
	debugf("mapped segment of %v chunks, dedicated:%v\n", nchunks, dedicated)
	return seg
}

func (ca *Chunkallocator) issue(chunk *Chunk) {
	if n := len(ca.freeids); n > 0 {
		chunk.id, ca.freeids = ca.freeids[n-1], ca.freeids[:n-1]
		ca.chunks[chunk.id] = chunk
	} else if int64(len(ca.chunks)) > math.MaxUint32 {
		panic(errors.Wrap(ErrorOutofMemory, "chunk ids exhausted"))
	} else {
		chunk.id = uint32(len(ca.chunks))
		ca.chunks = append(ca.chunks, chunk)
	}
	ca.nlive++
}

// Release chunk back to allocator, chunk shall not be used after this
// call. A shared segment left empty is unmapped as long as some other
// segment remains.
func (ca *Chunkallocator) Release(chunk *Chunk) {
	if chunk.kind == Chunkfree {
		panicerr("chunk %v released twice", chunk.id)
	} else if ca.Lookup(chunk.id) != chunk {
		panicerr("chunk %v not owned by this allocator", chunk.id)
	}

	seg := chunk.seg
	if seg.dedicated {
		ca.unmap(seg)
		ca.dedicated--
	} else {
		clear(chunk.data)
		seg.freechunk(chunk.nth)
		if seg.isempty() && len(ca.segments) > 1 {
			ca.dropsegment(seg)
		}
	}

	ca.chunks[chunk.id] = nil
	ca.freeids = append(ca.freeids, chunk.id)
	ca.nlive--
	ca.n_frees++

	chunk.kind, chunk.data, chunk.seg = Chunkfree, nil, nil
	chunk.resetmeta()
}

func (ca *Chunkallocator) dropsegment(seg *segment) {
	for i, x := range ca.segments {
		if x == seg {
			copy(ca.segments[i:], ca.segments[i+1:])
			ca.segments[len(ca.segments)-1] = nil
			ca.segments = ca.segments[:len(ca.segments)-1]
			break
		}
	}
	ca.unmap(seg)
}

func (ca *Chunkallocator) unmap(seg *segment) {
	ca.mapped -= seg.capacity()
	seg.release()
	ca.n_munmaps++
	debugf("unmapped segment of %v chunks\n", seg.nchunks)
}

// Lookup chunk by id, return nil if id does not refer to a live chunk.
func (ca *Chunkallocator) Lookup(id uint32) *Chunk {
	if int64(id) >= int64(len(ca.chunks)) {
		return nil
	}
	return ca.chunks[id]
}

// Chunkfor return the chunk holding ref, nil if there is none.
func (ca *Chunkallocator) Chunkfor(ref api.Ref) *Chunk {
	return ca.Lookup(ref.Chunkid())
}

// Mapped return bytes currently mapped from OS.
func (ca *Chunkallocator) Mapped() int64 {
	return ca.mapped
}

// Capacity return the upper limit on mapped memory.
func (ca *Chunkallocator) Capacity() int64 {
	return ca.capacity
}

// Segments return number of segments mapped from OS, shared and
// dedicated.
func (ca *Chunkallocator) Segments() int64 {
	return int64(len(ca.segments)) + ca.dedicated
}

// Nchunks return number of live chunks.
func (ca *Chunkallocator) Nchunks() int64 {
	return ca.nlive
}

// Releaseall unmap every segment, all chunks issued so far are invalid
// after this call.
func (ca *Chunkallocator) Releaseall() {
	for id, chunk := range ca.chunks {
		if chunk != nil && chunk.seg != nil && chunk.seg.dedicated {
			ca.unmap(chunk.seg)
		}
		if chunk != nil {
			chunk.kind, chunk.data, chunk.seg = Chunkfree, nil, nil
		}
		ca.chunks[id] = nil
	}
	for _, seg := range ca.segments {
		ca.unmap(seg)
	}
	ca.segments, ca.dedicated, ca.nlive = nil, 0, 0
	ca.chunks, ca.freeids = make([]*Chunk, 1), nil
}

// Stats return statistics for chunk allocator.
func (ca *Chunkallocator) Stats() map[string]interface{} {
	return map[string]interface{}{
		"capacity":  ca.capacity,
		"mapped":    ca.mapped,
		"segments":  ca.Segments(),
		"chunks":    ca.nlive,
		"n_allocs":  ca.n_allocs,
		"n_frees":   ca.n_frees,
		"n_mmaps":   ca.n_mmaps,
		"n_munmaps": ca.n_munmaps,
	}
}
