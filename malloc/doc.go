// Package malloc supplies the raw memory layers of the managed heap:
//
//  * Types and Functions exported by this package are not thread safe.
//  * Memory is obtained from OS in large blocks, called segments, where
//    each segment is sliced up into chunks of Chunksize bytes.
//  * Chunks are divided into slots of Slotsize bytes, every allocation
//    consumes a contiguous run of slots within a single chunk.
//  * Objects larger than a configured threshold get a dedicated run of
//    chunks, mapped from OS for that object alone.
//  * There is no pointer re-write, objects don't move once allocated.
//
// Chunkallocator is the only component talking to OS. Blockallocator,
// Hugeallocator and Stackallocator request chunks from it and own them
// exclusively until they are released back.
//
// Object metadata, like which slot starts an object and whether it is
// marked, is kept outside chunk memory in bitmaps maintained per chunk.
// Memory is addressed by api.Ref, a chunk-id and slot pair, and every
// access is bounds checked by the slice it goes through.
package malloc
