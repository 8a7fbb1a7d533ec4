// Package lib provide small, self-contained helpers used by the memory
// manager and its allocators: bitmaps, bit twiddling and histograms. They
// shall not depend on anything other than the standard library.
package lib
