// Package twoheap implements the two-heap (C8): routes low-frequency
// requests either to the split-coalesce heap or, for huge sizes, directly
// to the page source as a dedicated region tagged with a single object
// header.
package twoheap

import (
	"github.com/plasma-umass/vam/config"
	"github.com/plasma-umass/vam/internal/objheader"
)

// SplitCoalesce is the collaborator huge-sized requests bypass.
type SplitCoalesce interface {
	Allocate(size uintptr) (uintptr, error)
	Free(ptr uintptr)
	SizeOf(ptr uintptr) uintptr
}

// HugeSource is the upstream page source huge allocations draw directly
// from, bypassing the split-coalesce/seg-fit machinery entirely.
type HugeSource interface {
	Allocate(clusterSize uintptr, typ int) (uintptr, error)
	Free(ptr uintptr)
}

// Heap routes by size: everything up to maxObjectSize goes through sc;
// anything larger is mapped directly, padded up to at least one whole
// partition so it remains classifiable via the partition type tag.
type Heap struct {
	sc            SplitCoalesce
	huge          HugeSource
	maxObjectSize uintptr
	partitionSize uintptr
	pageSize      uintptr
}

// New constructs a two-heap routing between sc (for size <=
// maxObjectSize) and a direct huge path through huge.
func New(sc SplitCoalesce, huge HugeSource, maxObjectSize, partitionSize, pageSize uintptr) *Heap {
	return &Heap{
		sc:            sc,
		huge:          huge,
		maxObjectSize: maxObjectSize,
		partitionSize: partitionSize,
		pageSize:      pageSize,
	}
}

// Allocate returns at least size bytes.
func (h *Heap) Allocate(size uintptr) (uintptr, error) {
	if size <= h.maxObjectSize {
		return h.sc.Allocate(size)
	}
	return h.allocateHuge(size)
}

func (h *Heap) allocateHuge(size uintptr) (uintptr, error) {
	need := roundUpPage(size+objheader.Size, h.pageSize)
	min := h.partitionSize + h.pageSize
	if need < min {
		need = min
	}

	base, err := h.huge.Allocate(need, config.LowFreqType)
	if err != nil {
		return 0, err
	}

	hdr := objheader.At(base + objheader.Size)
	hdr.Size = need - objheader.Size
	return hdr.Object(), nil
}

func roundUpPage(size, pageSize uintptr) uintptr {
	return (size + pageSize - 1) / pageSize * pageSize
}

// Free routes ptr back to whichever path allocated it, reading its
// header to decide.
func (h *Heap) Free(ptr uintptr) {
	size := h.SizeOf(ptr)
	if size <= h.maxObjectSize {
		h.sc.Free(ptr)
		return
	}
	hdr := objheader.At(ptr)
	h.huge.Free(hdr.Object() - objheader.Size)
}

// SizeOf returns the usable payload size of the live block at ptr.
func (h *Heap) SizeOf(ptr uintptr) uintptr {
	return objheader.At(ptr).Size
}
