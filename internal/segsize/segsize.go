// Package segsize implements the seg-size heap (C5): a fixed-length
// array of one-size heaps, indexed directly by size class, so dispatch
// is a single array access with no search.
package segsize

import (
	"github.com/plasma-umass/vam/config"
	"github.com/plasma-umass/vam/internal/cache"
	"github.com/plasma-umass/vam/internal/fatal"
	"github.com/plasma-umass/vam/internal/onesize"
)

// classHeap is the surface a size class needs, whether it is a bare
// one-size heap or one fronted by a C11 object cache.
type classHeap interface {
	Allocate() (uintptr, error)
	Free(ptr uintptr)
}

// Heap routes allocations of size <= maxSize to one lazily-created
// onesize.Heap per size class, optionally fronted by a caching heap.
type Heap struct {
	source       onesize.PageSource
	pageSize     uintptr
	maxOrder     uint8
	workhorse    config.Reap
	cacheEnabled bool

	classes []classHeap // index by config.Index(size)
}

// New constructs a seg-size heap covering size classes up to and
// including maxSize. When cacheEnabled is set, every lazily-created
// class is fronted by a caching heap (C11).
func New(source onesize.PageSource, pageSize uintptr, maxSize uintptr, maxOrder uint8, workhorse config.Reap, cacheEnabled bool) *Heap {
	n := config.Index(maxSize) + 1
	return &Heap{
		source:       source,
		pageSize:     pageSize,
		maxOrder:     maxOrder,
		workhorse:    workhorse,
		cacheEnabled: cacheEnabled,
		classes:      make([]classHeap, n),
	}
}

// Allocate dispatches to (lazily creating) the one-size heap for size's
// class.
func (h *Heap) Allocate(size uintptr) (uintptr, error) {
	idx := config.Index(size)
	if idx < 0 || idx >= len(h.classes) {
		fatal.Throw("segsize: size out of dedicated range")
	}
	cls := h.classes[idx]
	if cls == nil {
		one := onesize.New(h.source, h.pageSize, config.SizeOfIndex(idx), h.maxOrder, h.workhorse)
		if h.cacheEnabled {
			cls = cache.New(one)
		} else {
			cls = one
		}
		h.classes[idx] = cls
	}
	return cls.Allocate()
}

// Free routes ptr to the one-size heap for its size class. The class is
// derived from the owning Reap's object size, the "size_of query of the
// owning partition/subheap" the spec describes, rather than re-supplied
// by the caller.
func (h *Heap) Free(ptr uintptr) {
	cluster, ok := h.source.SubheapFor(ptr)
	if !ok {
		fatal.Throw("segsize: free of pointer outside any page-cluster heap")
		return
	}
	r, ok := cluster.OwnerOf(ptr)
	if !ok {
		fatal.Throw("segsize: free of pointer with no owning reap")
		return
	}

	idx := config.Index(r.ObjectSize())
	if idx < 0 || idx >= len(h.classes) || h.classes[idx] == nil {
		fatal.Throw("segsize: free for an unallocated size class")
		return
	}
	h.classes[idx].Free(ptr)
}

// SizeOf returns the fixed object size of the class owning ptr.
func (h *Heap) SizeOf(ptr uintptr) uintptr {
	cluster, ok := h.source.SubheapFor(ptr)
	if !ok {
		fatal.Throw("segsize: size_of a pointer outside any page-cluster heap")
		return 0
	}
	r, ok := cluster.OwnerOf(ptr)
	if !ok {
		fatal.Throw("segsize: size_of a pointer with no owning reap")
		return 0
	}
	return r.ObjectSize()
}
