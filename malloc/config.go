package malloc

import s "github.com/bnclabs/gosettings"
import "github.com/cloudfoundry/gosigar"

// Slotsize minimum addressable unit within a chunk.
const Slotsize = int64(32)

// Chunksize size of a chunk, all allocators get their memory in multiples
// of this size.
const Chunksize = int64(64 * 1024)

// Numslots number of slots in a chunk.
const Numslots = Chunksize / Slotsize

// Numbins number of free-list bins in Blockallocator. Bin n, for n less
// than Numbins-1, hold free runs of exactly n slots. Last bin hold runs
// of Numbins-1 slots or more.
const Numbins = 8

// Minsegmentchunks minimum number of chunks mapped from OS in a segment.
const Minsegmentchunks = int64(8)

// Maxcapacity default limit on memory mapped from OS when free memory
// cannot be learnt from the system.
const Maxcapacity = int64(1024 * 1024 * 1024 * 1024)

// Defaultsettings for chunk and block allocators.
//
// "maxchunksize" (int64, default: 4MB)
//		Bytes mapped from OS for every segment of chunks, shall be a
//		multiple of Minsegmentchunks * Chunksize.
//
// "capacity" (int64, default: <free RAM>)
//		Upper limit on memory mapped from OS. Exceeding this is fatal.
//
// "block.retainchunks" (int64, default: 1)
//		Number of chunks Blockallocator keeps across sweeps even when
//		they don't hold any live object.
func Defaultsettings() s.Settings {
	capacity := Maxcapacity
	if _, _, free := getsysmem(); free > 0 && free < uint64(Maxcapacity) {
		capacity = int64(free)
	}
	return s.Settings{
		"maxchunksize":       int64(4 * 1024 * 1024),
		"capacity":           capacity,
		"block.retainchunks": int64(1),
	}
}

func getsysmem() (total, used, free uint64) {
	mem := sigar.Mem{}
	if err := mem.Get(); err != nil {
		return 0, 0, 0
	}
	return mem.Total, mem.ActualUsed, mem.ActualFree
}
