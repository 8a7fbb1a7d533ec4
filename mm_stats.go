package mheap

import "fmt"
import "strings"
import "encoding/json"

import humanize "github.com/dustin/go-humanize"
import "github.com/bnclabs/mheap/log"

// GetUsedMem return bytes held by live objects in block allocator and
// call contexts.
func (mm *MemoryManager) GetUsedMem() int64 {
	return mm.blocks.Usedmem() + mm.stack.Usedmem()
}

// GetAllocatedMem return bytes held by all allocators, in chunks.
func (mm *MemoryManager) GetAllocatedMem() int64 {
	return mm.blocks.Allocatedmem() + mm.huge.Allocatedmem() + mm.stack.Allocatedmem()
}

// GetLargeItemsMem return exact bytes requested for live huge objects.
func (mm *MemoryManager) GetLargeItemsMem() int64 {
	return mm.huge.Usedmem()
}

// Stats return statistics for memory manager and its allocators.
func (mm *MemoryManager) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"gc.cycles":       mm.cycles,
		"gc.state":        mm.gcstate.String(),
		"gc.blocked":      mm.gcblocked,
		"usedmem":         mm.GetUsedMem(),
		"allocatedmem":    mm.GetAllocatedMem(),
		"largeitemsmem":   mm.GetLargeItemsMem(),
		"unmanaged.size":  mm.unmanagedsize,
		"unmanaged.limit": mm.unmanagedlimit,
		"types":           int64(len(mm.types) - 1),
		"persistents":     int64(mm.persistents.Count()),
		"weaks":           int64(mm.weaks.Count()),
		"n_allocs":        mm.n_allocs,
		"n_destroyed":     mm.n_destroyed,
		"h_pause":         mm.h_pause.Fullstats(),
	}
	for prefix, substats := range map[string]map[string]interface{}{
		"chunk.": mm.ca.Stats(),
		"block.": mm.blocks.Stats(),
		"huge.":  mm.huge.Stats(),
		"stack.": mm.stack.Stats(),
	} {
		for key, value := range substats {
			stats[prefix+key] = value
		}
	}
	return stats
}

// DumpStats log memory statistics, humanized summary followed by the
// full statistics as JSON.
func (mm *MemoryManager) DumpStats() {
	hb := func(n int64) string { return humanize.Bytes(uint64(n)) }
	lines := []string{
		fmt.Sprintf("%v cycles:%v state:%v blocked:%v", mm.logprefix,
			mm.cycles, mm.gcstate, mm.gcblocked),
		fmt.Sprintf("%v used:%v allocated:%v large:%v mapped:%v", mm.logprefix,
			hb(mm.GetUsedMem()), hb(mm.GetAllocatedMem()),
			hb(mm.GetLargeItemsMem()), hb(mm.ca.Mapped())),
		fmt.Sprintf("%v chunks:%v segments:%v unmanaged:%v/%v", mm.logprefix,
			mm.ca.Nchunks(), mm.ca.Segments(), hb(mm.unmanagedsize),
			hb(mm.unmanagedlimit)),
		fmt.Sprintf("%v pause(us): %v", mm.logprefix, mm.h_pause.Logstring()),
	}
	log.Infof("%v\n", strings.Join(lines, "\n"))

	data, err := json.Marshal(mm.Stats())
	if err != nil {
		errorf("%v stats: %v\n", mm.logprefix, err)
		return
	}
	log.Infof("%v stats: %s\n", mm.logprefix, data)
}

func (mm *MemoryManager) logcycle(cs cyclestats) {
	hb := func(n int64) string { return humanize.Bytes(uint64(n)) }
	fmsg := "%v cycle %v marked %v objects (depth %v) in %v, destroyed %v in %v\n"
	log.Infof(fmsg, mm.logprefix, mm.cycles, cs.marked, cs.maxdepth,
		cs.markpause, cs.destroyed, cs.sweeppause)
	fmsg = "%v cycle %v used %v -> %v, large %v -> %v, weaks cleared %v\n"
	log.Infof(fmsg, mm.logprefix, mm.cycles, hb(cs.usedbefore),
		hb(cs.usedafter), hb(cs.largebefore), hb(cs.largeafter),
		cs.weakscleared)
	verbosef("%v block bins %v\n", mm.logprefix, mm.blocks.Stats()["binlens"])
}
