// Package api define types and interfaces shared between the memory
// manager, its allocators and the execution engine hosting them.
package api

// Marker is handed to the execution engine when a collection cycle scans
// for roots. Every reference marked is treated as reachable along with
// everything reachable from it.
type Marker interface {
	// Mark reference `ref` as reachable. Marking Nilref is a no-op.
	Mark(ref Ref)
}

// Engine is the execution engine owning a memory manager. It supplies the
// root set, typically references held by its value stack and by native
// frames that are not visible to the manager.
type Engine interface {
	// Markroots mark every reference held directly by the engine.
	Markroots(m Marker)
}

// Mallocer interface implemented by allocators that are swept by the
// collector.
type Mallocer interface {
	// Sweep reclaim every object that is not marked, `destroy` is called
	// for each reclaimed object before its memory is recycled.
	Sweep(destroy func(ref Ref))

	// Usedmem return memory held by live objects, in bytes.
	Usedmem() int64

	// Allocatedmem return memory obtained from chunk allocator, in bytes.
	Allocatedmem() int64

	// Freeall release every chunk held by this allocator.
	Freeall()
}
