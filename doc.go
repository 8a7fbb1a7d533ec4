// Package mheap implement a managed heap for a script engine. Objects
// are allocated out of chunks obtained from OS and reclaimed by a
// stop-the-world mark and sweep collector.
//
// api:
//
// References, api.Ref, and interfaces shared between the heap and the
// engine hosting it.
//
// lib:
//
// Bitmaps, bit twiddling and histograms. Package shall not import
// packages other than golang's standard packages.
//
// log:
//
// Leveled logging, compatible with github.com/bnclabs/golog interface.
//
// malloc:
//
// Chunk allocator and the block, huge-item and stack allocators built
// on top of it.
//
// MemoryManager, defined by this package, route allocation requests by
// size and nature to one of the allocators, and run collection cycles
// when allocators run short of memory. Objects are described by a
// Typedesc registered with the manager, every object begins with a
// header identifying its type and size.
//
// Memory manager is not thread safe, applications shall serialize all
// calls on a manager.
package mheap
