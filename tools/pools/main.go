package main

import "fmt"
import "flag"

import "github.com/bnclabs/mheap/malloc"

var options struct {
	minblock int64
	maxblock int64
	step     int64
}

func argParse() {
	flag.Int64Var(&options.minblock, "minblock", 16,
		"minimum object size, header included")
	flag.Int64Var(&options.maxblock, "maxblock", 1024,
		"maximum object size, header included")
	flag.Int64Var(&options.step, "step", 8,
		"increment in object size")
	flag.Parse()
}

func main() {
	argParse()
	tellutilization()
}

func tellutilization() {
	if options.step <= 0 || options.minblock <= 0 {
		fmt.Println("minblock and step shall be positive")
		return
	}
	if options.maxblock > malloc.Chunksize {
		options.maxblock = malloc.Chunksize
	}
	bins := make([]int64, malloc.Numbins)
	for size := options.minblock; size <= options.maxblock; size += options.step {
		nslots := malloc.Slotsfor(size)
		bin := malloc.Binfor(nslots)
		u := float64(size) / float64(nslots*malloc.Slotsize)
		fmt.Printf("size %5v, slots %4v, bin %v, util %.2f\n", size, nslots, bin, u)
		bins[bin]++
	}
	for bin, n := range bins {
		fmt.Printf("bin %v: %v sizes\n", bin, n)
	}
}
