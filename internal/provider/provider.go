// Package provider abstracts the page-granular virtual-memory source
// backing the whole allocator: map, unmap, and a discard hint. This is
// the one external collaborator the core allocator never tries to
// replace -- every partition and huge allocation ultimately bottoms out
// here.
package provider

import "errors"

// ErrOutOfMemory is the only failure mode a Provider may report.
var ErrOutOfMemory = errors.New("vam: out of memory")

// PageSize is the system page granularity every Provider implementation
// maps and aligns to. 4096 covers every platform this allocator targets.
// The Provider interface does not report the OS page size; callers
// outside a Provider implementation use this constant.
const PageSize = 4096

// Provider is the page source required from the host OS.
type Provider interface {
	// Map returns a region of size bytes aligned to align, both
	// multiples of the system page size, align a power of two.
	Map(size, align uintptr) (uintptr, error)

	// Unmap releases a region previously returned by Map.
	Unmap(addr, size uintptr) error

	// Discard hints that the physical backing of [addr, addr+size) may
	// be dropped; subsequent reads must observe zeros.
	Discard(addr, size uintptr) error
}
