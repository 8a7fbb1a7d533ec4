package mheap

import "fmt"

import s "github.com/bnclabs/gosettings"
import humanize "github.com/dustin/go-humanize"
import "github.com/bnclabs/mheap/api"
import "github.com/bnclabs/mheap/lib"
import "github.com/bnclabs/mheap/malloc"

var mmcount = 0

// MemoryManager own all managed memory of an engine instance. Objects
// upto the block threshold come from block allocator, larger objects
// from huge-item allocator and call contexts from stack allocator.
type MemoryManager struct {
	engine api.Engine
	ca     *malloc.Chunkallocator
	blocks *malloc.Blockallocator
	huge   *malloc.Hugeallocator
	stack  *malloc.Stackallocator

	types   []*typeinfo
	typeids map[*Typedesc]uint32

	persistents *Valuestorage
	weaks       *Valuestorage
	markstack   *Markstack

	gcstate   Gcstate
	gcblocked bool
	released  bool

	unmanagedsize  int64
	unmanagedlimit int64
	hugesince      int64 // huge bytes allocated since last cycle
	largeafter     int64 // huge bytes live after last cycle

	// statistics
	cycles      uint64
	n_allocs    int64
	n_destroyed int64
	h_pause     *lib.HistogramInt64 // in microseconds
	lastcycle   cyclestats

	// settings
	threshold      int64
	stats          bool
	aggressive     bool
	minslots       int64
	overallocation int64
	unmanagedmin   int64
	setts          s.Settings
	logprefix      string
}

// NewMemoryManager create a managed heap for `engine`. Engine supply the
// roots during collection, it can be nil when all roots are held by
// call contexts and persistent values. Refer Defaultsettings() for
// configurable parameters.
func NewMemoryManager(engine api.Engine, setts s.Settings) *MemoryManager {
	mmcount++
	mm := &MemoryManager{
		engine:    engine,
		types:     make([]*typeinfo, 1),
		typeids:   make(map[*Typedesc]uint32),
		logprefix: fmt.Sprintf("MHEAP [%v]", mmcount),
	}
	setts = make(s.Settings).Mixin(Defaultsettings(), setts)
	mm.readsettings(setts)
	mm.setts = setts

	mm.ca = malloc.NewChunkallocator(setts)
	mm.blocks = malloc.NewBlockallocator(mm.ca, setts)
	mm.huge = malloc.NewHugeallocator(mm.ca)
	mm.stack = malloc.NewStackallocator(mm.ca, Callcontextsize)
	mm.persistents = newvaluestorage(mm, false /*weak*/)
	mm.weaks = newvaluestorage(mm, true /*weak*/)
	mm.markstack = newmarkstack(mm)
	mm.h_pause = lib.NewhistorgramInt64(0, 100000, 1000)

	infof("%v started with block threshold %v, aggressive:%v\n",
		mm.logprefix, humanize.Bytes(uint64(mm.threshold)), mm.aggressive)
	return mm
}

// AllocManaged allocate `size` bytes, header included, for a managed
// object and bind it to `obj`. Size shall not be less than the type's
// instance size.
func (mm *MemoryManager) AllocManaged(obj Managed, size int64) api.Ref {
	ref := mm.Alloc(obj.Typedesc(), size)
	obj.Bind(mm, ref)
	return ref
}

// AllocObject allocate a managed object of its type's instance size and
// bind it to `obj`.
func (mm *MemoryManager) AllocObject(obj Managed) api.Ref {
	return mm.AllocManaged(obj, obj.Typedesc().Size)
}

// Alloc allocate `size` bytes, header included, for an object described
// by `desc`. A nil desc allocate a raw object, its memory is not scanned
// for references. Memory following the header is zeroed.
func (mm *MemoryManager) Alloc(desc *Typedesc, size int64) api.Ref {
	mm.checkreleased()
	if size < Headersize {
		panicerr("%v allocation of %v bytes less than header", mm.logprefix, size)
	} else if desc != nil && size < desc.Size {
		panicerr("%v allocation of %v bytes less than %v size %v", mm.logprefix, size, desc, desc.Size)
	}
	typeid := mm.register(desc)

	var ref api.Ref
	if size <= mm.threshold {
		ref = mm.allocblock(size)
	} else {
		if mm.ShouldRunGC() || !mm.ca.Fits(size) {
			mm.RunGC()
		}
		ref = mm.huge.Allocate(size)
		mm.hugesince += size
	}
	mm.writeheader(ref, typeid, size)
	mm.n_allocs++
	return ref
}

func (mm *MemoryManager) allocblock(size int64) api.Ref {
	if mm.gcstate != GcIdle {
		ref, _ := mm.blocks.Allocate(size, true /*force*/)
		return ref
	}
	if mm.aggressive {
		mm.RunGC()
	}
	if ref, ok := mm.blocks.Allocate(size, false /*force*/); ok {
		return ref
	}
	if mm.ShouldRunGC() || !mm.ca.Fits(malloc.Chunksize) {
		mm.RunGC()
	}
	ref, _ := mm.blocks.Allocate(size, true /*force*/)
	return ref
}

// Persistents return the table of persistent values, every entry is a
// root.
func (mm *MemoryManager) Persistents() *Valuestorage {
	return mm.persistents
}

// Weaks return the table of weak values, entries are cleared when their
// target is reclaimed.
func (mm *MemoryManager) Weaks() *Valuestorage {
	return mm.weaks
}

// Isblock return true if ref is allocated by block allocator.
func (mm *MemoryManager) Isblock(ref api.Ref) bool {
	return mm.chunkof(ref).Kind() == malloc.Chunkblock
}

// Ishuge return true if ref is allocated by huge-item allocator.
func (mm *MemoryManager) Ishuge(ref api.Ref) bool {
	return mm.chunkof(ref).Kind() == malloc.Chunkhuge
}

// Validate allocator bookkeeping, return the first inconsistency.
func (mm *MemoryManager) Validate() error {
	return mm.blocks.Validate()
}

// Release destroy every object and return all memory to OS. Manager
// shall not be used after this call.
func (mm *MemoryManager) Release() {
	if mm.released {
		return
	}
	mm.gcstate = GcSweep
	destroy := mm.destroyer()
	mm.huge.Setsweeping(true)
	mm.blocks.Sweep(destroy)
	mm.huge.Sweep(destroy)
	mm.huge.Setsweeping(false)
	mm.gcstate = GcIdle

	mm.blocks.Freeall()
	mm.huge.Freeall()
	mm.stack.Freeall()
	mm.ca.Releaseall()
	mm.persistents.reset()
	mm.weaks.reset()
	mm.released = true
	infof("%v released after %v cycles\n", mm.logprefix, mm.cycles)
}

func (mm *MemoryManager) checkreleased() {
	if mm.released {
		panicerr("%v used after release", mm.logprefix)
	}
}
