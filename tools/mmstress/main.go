package main

import "fmt"
import "flag"
import "time"
import "math/rand"

import s "github.com/bnclabs/gosettings"
import humanize "github.com/dustin/go-humanize"
import "github.com/bnclabs/mheap"
import "github.com/bnclabs/mheap/api"
import "github.com/bnclabs/mheap/log"

var options struct {
	rounds     int
	nodes      int
	drop       int
	maxsize    int
	hugeevery  int
	seed       int64
	aggressive bool
	stats      bool
	loglevel   string
}

func argParse() {
	flag.IntVar(&options.rounds, "rounds", 10,
		"number of rounds to allocate and collect")
	flag.IntVar(&options.nodes, "nodes", 100000,
		"number of nodes added to the graph in every round")
	flag.IntVar(&options.drop, "drop", 50,
		"percentage of the graph dropped at the end of every round")
	flag.IntVar(&options.maxsize, "maxsize", 256,
		"maximum payload bytes per node")
	flag.IntVar(&options.hugeevery, "hugeevery", 10000,
		"allocate a huge payload every so many nodes, 0 to disable")
	flag.Int64Var(&options.seed, "seed", time.Now().UnixNano(),
		"seed for random number generator")
	flag.BoolVar(&options.aggressive, "aggressive", false,
		"collect on every allocation")
	flag.BoolVar(&options.stats, "stats", false,
		"log statistics for every collection cycle")
	flag.StringVar(&options.loglevel, "log", "info",
		"log level, one of ignore, fatal, error, warn, info, verbose, debug, trace")
	flag.Parse()
}

const (
	nodeNext    = mheap.Headersize
	nodePayload = mheap.Headersize + 8
	nodeSize    = mheap.Headersize + 16
)

var nodedesc = &mheap.Typedesc{
	Name: "node",
	Size: nodeSize,
	Refs: []int64{nodeNext, nodePayload},
}

// roots of the synthetic graph, every root is head of a linked list.
type engine struct {
	heads []api.Ref
}

func (e *engine) Markroots(m api.Marker) {
	for _, head := range e.heads {
		m.Mark(head)
	}
}

func main() {
	argParse()
	log.SetLogger(nil, map[string]interface{}{"log.level": options.loglevel})
	mheap.LogComponents("all")

	fmt.Printf("seed: %v\n", options.seed)
	rnd := rand.New(rand.NewSource(options.seed))

	e := &engine{}
	setts := s.Settings{"aggressive": options.aggressive, "stats": options.stats}
	mm := mheap.NewMemoryManager(e, setts)
	defer mm.Release()

	start := time.Now()
	for round := 0; round < options.rounds; round++ {
		addnodes(mm, e, rnd)
		dropheads(e, rnd)
		cycles := mm.Cycles()
		mm.RunGC()
		if err := mm.Validate(); err != nil {
			fmt.Printf("round %v: validate failed: %v\n", round, err)
			return
		}
		fmt.Printf("round %v: lists %v used %v allocated %v large %v cycles +%v\n",
			round, len(e.heads), humanize.Bytes(uint64(mm.GetUsedMem())),
			humanize.Bytes(uint64(mm.GetAllocatedMem())),
			humanize.Bytes(uint64(mm.GetLargeItemsMem())), mm.Cycles()-cycles)
	}
	fmt.Printf("took %v for %v rounds\n", time.Since(start), options.rounds)
	mm.DumpStats()
}

func addnodes(mm *mheap.MemoryManager, e *engine, rnd *rand.Rand) {
	ctx := mm.AllocSimpleCallContext()
	defer mm.FreeSimpleCallContext(ctx)
	cc := mm.Callcontext(ctx)

	for i := 0; i < options.nodes; i++ {
		if len(e.heads) == 0 || rnd.Intn(100) == 0 {
			e.heads = append(e.heads, api.Nilref)
		}
		nth := rnd.Intn(len(e.heads))
		// keep the node reachable via call context while payload is
		// allocated, allocation can trigger a collection.
		node := mm.Alloc(nodedesc, nodeSize)
		cc.SetLocals(node)
		size := int64(rnd.Intn(options.maxsize+1)) + mheap.Headersize
		if options.hugeevery > 0 && i%options.hugeevery == options.hugeevery-1 {
			size = int64(1<<17) + int64(rnd.Intn(1<<17))
		}
		mm.Storeref(node, nodePayload, mm.Alloc(nil, size))
		mm.Storeref(node, nodeNext, e.heads[nth])
		e.heads[nth] = node
	}
	cc.SetLocals(api.Nilref)
}

func dropheads(e *engine, rnd *rand.Rand) {
	kept := e.heads[:0]
	for _, head := range e.heads {
		if rnd.Intn(100) >= options.drop {
			kept = append(kept, head)
		}
	}
	e.heads = kept
}
