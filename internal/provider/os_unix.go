//go:build unix

package provider

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// OS is the default Provider, backed by anonymous mmap regions. Grounded
// on the runtime's own sysAlloc/sysUnused: reserve with mmap, release
// with munmap, and hint reclaim with madvise(MADV_DONTNEED).
type OS struct{}

var _ Provider = OS{}

// Map reserves size bytes of anonymous memory aligned to align. mmap on
// every supported unix already returns page-aligned addresses; when a
// caller asks for a coarser alignment than the page size we over-map and
// trim the slop on both sides, the same trick alignedmmapheap.h uses.
func (OS) Map(size, align uintptr) (uintptr, error) {
	if align <= uintptr(unix.Getpagesize()) {
		return mapExact(size)
	}

	raw, err := mapExact(size + align)
	if err != nil {
		return 0, err
	}

	aligned := (raw + align - 1) &^ (align - 1)
	if head := aligned - raw; head > 0 {
		if err := unmapExact(raw, head); err != nil {
			return 0, err
		}
	}
	if tail := (raw + size + align) - (aligned + size); tail > 0 {
		if err := unmapExact(aligned+size, tail); err != nil {
			return 0, err
		}
	}
	return aligned, nil
}

func mapExact(size uintptr) (uintptr, error) {
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0, fmt.Errorf("%w: mmap: %v", ErrOutOfMemory, err)
	}
	return uintptrOf(b), nil
}

func unmapExact(addr, size uintptr) error {
	return (Provider)(OS{}).Unmap(addr, size)
}

// Unmap releases a region previously returned by Map.
func (OS) Unmap(addr, size uintptr) error {
	b := sliceAt(addr, size)
	if err := unix.Munmap(b); err != nil {
		return fmt.Errorf("%w: munmap: %v", ErrOutOfMemory, err)
	}
	return nil
}

// Discard hints that physical pages backing the region may be dropped.
func (OS) Discard(addr, size uintptr) error {
	b := sliceAt(addr, size)
	if err := unix.Madvise(b, unix.MADV_DONTNEED); err != nil {
		return fmt.Errorf("%w: madvise: %v", ErrOutOfMemory, err)
	}
	return nil
}
