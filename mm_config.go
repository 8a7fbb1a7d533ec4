package mheap

import s "github.com/bnclabs/gosettings"
import "github.com/bnclabs/mheap/malloc"

// Defaultsettings for memory manager, along with settings for its
// chunk and block allocators, refer malloc.Defaultsettings().
//
// "maxblockshift" (int64, default: 16)
//		Objects upto 1<<maxblockshift bytes, header included, are
//		allocated from block allocator, larger objects get dedicated
//		chunks from huge-item allocator. Shall be in range [5, 16].
//
// "stats" (bool, default: false)
//		Log statistics at the end of every collection cycle.
//
// "aggressive" (bool, default: false)
//		Collect on every allocation, useful to flush out missing roots.
//
// "gc.minslots" (int64, default: 2*malloc.Numslots)
//		Block allocator shall hold more than these many slots before
//		the growth heuristic can trigger a collection.
//
// "gc.overallocation" (int64, default: 200)
//		Collect when allocated slots grow beyond this percentage of the
//		slots that survived the last collection.
//
// "unmanaged.gclimit" (int64, default: 128KB)
//		Initial and minimum limit on unmanaged heap usage reported via
//		ChangeUnmanagedHeapSizeUsage, exceeding the limit triggers a
//		collection.
func Defaultsettings() s.Settings {
	setts := s.Settings{
		"maxblockshift":     int64(16),
		"stats":             false,
		"aggressive":        false,
		"gc.minslots":       int64(2 * malloc.Numslots),
		"gc.overallocation": int64(200),
		"unmanaged.gclimit": int64(128 * 1024),
	}
	return make(s.Settings).Mixin(malloc.Defaultsettings(), setts)
}

func (mm *MemoryManager) readsettings(setts s.Settings) {
	shift := setts.Int64("maxblockshift")
	if shift < 5 || (int64(1)<<uint(shift)) > malloc.Chunksize {
		panicerr("maxblockshift %v out of range [5, 16]", shift)
	}
	mm.threshold = int64(1) << uint(shift)
	mm.stats = setts.Bool("stats")
	mm.aggressive = setts.Bool("aggressive")
	mm.minslots = setts.Int64("gc.minslots")
	mm.overallocation = setts.Int64("gc.overallocation")
	mm.unmanagedmin = setts.Int64("unmanaged.gclimit")
	if mm.overallocation <= 0 {
		panicerr("gc.overallocation %v shall be positive", mm.overallocation)
	} else if mm.unmanagedmin <= 0 {
		panicerr("unmanaged.gclimit %v shall be positive", mm.unmanagedmin)
	}
	mm.unmanagedlimit = mm.unmanagedmin
}
