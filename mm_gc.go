package mheap

import "time"

import "github.com/bnclabs/mheap/api"
import "github.com/bnclabs/mheap/malloc"

// Gcstate of a collection cycle.
type Gcstate int

const (
	// GcIdle no collection in progress.
	GcIdle Gcstate = iota
	// GcRootscan marking roots.
	GcRootscan
	// GcMark draining mark stack.
	GcMark
	// GcSweep reclaiming unmarked objects.
	GcSweep
)

func (state Gcstate) String() string {
	switch state {
	case GcIdle:
		return "idle"
	case GcRootscan:
		return "rootscan"
	case GcMark:
		return "mark"
	case GcSweep:
		return "sweep"
	}
	return "unknown"
}

type cyclestats struct {
	usedbefore   int64
	usedafter    int64
	largebefore  int64
	largeafter   int64
	marked       int64
	maxdepth     int64
	destroyed    int64
	weakscleared int64
	markpause    time.Duration
	sweeppause   time.Duration
}

// RunGC run a full collection cycle. Return false, without doing
// anything, when collection is blocked or a cycle is already running.
func (mm *MemoryManager) RunGC() bool {
	if mm.gcblocked || mm.gcstate != GcIdle || mm.released {
		return false
	}
	cs := cyclestats{
		usedbefore:  mm.GetUsedMem(),
		largebefore: mm.GetLargeItemsMem(),
	}
	ndestroyed := mm.n_destroyed
	start := time.Now()

	mm.gcstate = GcRootscan
	mm.markstack.reset()
	mm.collectroots()

	mm.gcstate = GcMark
	mm.markstack.drain()
	cs.weakscleared = int64(mm.weaks.clearunmarked())
	cs.marked, cs.maxdepth = mm.markstack.nmarked, int64(mm.markstack.maxdepth)
	cs.markpause = time.Since(start)

	mm.gcstate = GcSweep
	mm.sweep()
	cs.sweeppause = time.Since(start) - cs.markpause

	mm.gcstate = GcIdle
	mm.cycles++
	mm.adjustunmanaged()

	cs.usedafter, cs.largeafter = mm.GetUsedMem(), mm.GetLargeItemsMem()
	cs.destroyed = mm.n_destroyed - ndestroyed
	mm.lastcycle = cs
	mm.h_pause.Add(int64(time.Since(start) / time.Microsecond))
	if mm.stats {
		mm.logcycle(cs)
	}
	return true
}

// collectroots mark engine roots, live call contexts and persistent
// values.
func (mm *MemoryManager) collectroots() {
	ms := mm.markstack
	if mm.engine != nil {
		mm.engine.Markroots(ms)
		ms.drain()
	}
	mm.stack.Walk(ms.Mark)
	ms.drain()
	mm.persistents.markall(ms)
}

func (mm *MemoryManager) sweep() {
	destroy := mm.destroyer()
	mm.huge.Setsweeping(true)
	mm.blocks.Sweep(destroy)
	mm.huge.Sweep(destroy)
	mm.huge.Setsweeping(false)
	mm.stack.Sweep(nil)
	mm.hugesince, mm.largeafter = 0, mm.huge.Usedmem()
}

func (mm *MemoryManager) destroyer() func(ref api.Ref) {
	return func(ref api.Ref) {
		if info := mm.typeinfo(ref); info != nil && info.destroy != nil {
			info.destroy(mm, ref)
		}
		mm.n_destroyed++
	}
}

// ShouldRunGC return true if allocators have grown enough since last
// collection, or unmanaged usage exceeded its limit.
func (mm *MemoryManager) ShouldRunGC() bool {
	if mm.gcblocked || mm.gcstate != GcIdle {
		return false
	} else if mm.aggressive {
		return true
	}
	total := mm.blocks.Totalslots()
	if total > mm.minslots && mm.blocks.Usedslotsafter()*mm.overallocation < total*100 {
		return true
	}
	// huge items grown by gc.overallocation since last cycle.
	if mm.hugesince > mm.minslots*malloc.Slotsize &&
		(mm.largeafter+mm.hugesince)*100 > mm.largeafter*mm.overallocation {
		return true
	}
	return mm.unmanagedsize > mm.unmanagedlimit
}

// SetGCBlocked block or unblock collection, return the previous value.
func (mm *MemoryManager) SetGCBlocked(blocked bool) bool {
	prev := mm.gcblocked
	mm.gcblocked = blocked
	return prev
}

// GCBlocked return true if collection is blocked.
func (mm *MemoryManager) GCBlocked() bool {
	return mm.gcblocked
}

// Gcstate return the state of collection cycle.
func (mm *MemoryManager) Gcstate() Gcstate {
	return mm.gcstate
}

// Cycles return number of collection cycles completed.
func (mm *MemoryManager) Cycles() uint64 {
	return mm.cycles
}

// ChangeUnmanagedHeapSizeUsage account for `delta` bytes of memory held
// by managed objects outside the managed heap. Growing past the limit
// triggers a collection.
func (mm *MemoryManager) ChangeUnmanagedHeapSizeUsage(delta int64) {
	mm.unmanagedsize += delta
	if mm.unmanagedsize < 0 {
		panicerr("%v unmanaged heap usage %v is negative", mm.logprefix, mm.unmanagedsize)
	}
	if delta > 0 && mm.unmanagedsize > mm.unmanagedlimit {
		debugf("%v unmanaged usage %v over limit %v\n",
			mm.logprefix, mm.unmanagedsize, mm.unmanagedlimit)
		mm.RunGC()
	}
}

// UnmanagedHeapSize return current unmanaged usage and the limit that
// trigger collection.
func (mm *MemoryManager) UnmanagedHeapSize() (size, limit int64) {
	return mm.unmanagedsize, mm.unmanagedlimit
}

func (mm *MemoryManager) adjustunmanaged() {
	if mm.unmanagedsize > mm.unmanagedlimit/4*3 {
		mm.unmanagedlimit *= 2
	} else if mm.unmanagedsize < mm.unmanagedlimit/4 {
		if mm.unmanagedlimit /= 2; mm.unmanagedlimit < mm.unmanagedmin {
			mm.unmanagedlimit = mm.unmanagedmin
		}
	}
}
