// Package cache implements the optional caching heap (C11): a LIFO
// stack of freed fixed-size objects in front of any fixed-size
// allocator, threaded directly through the freed objects themselves the
// way reap.Freelist threads its own chain. It amortizes upstream
// allocate/free calls by moving in batches that grow and shrink with
// observed traffic, rather than one object at a time.
package cache

import (
	"unsafe"

	"github.com/plasma-umass/vam/config"
	"github.com/plasma-umass/vam/internal/fatal"
)

// Upstream is the fixed-size allocator a cache sits in front of: every
// object it hands out is the same size, so no size argument travels
// with Allocate/Free.
type Upstream interface {
	Allocate() (uintptr, error)
	Free(ptr uintptr)
}

// Heap caches freed objects from source, growing its target batch size
// on repeated misses and shrinking it on repeated excess frees.
type Heap struct {
	source          Upstream
	head            uintptr
	hasHead         bool
	numCached       int
	targetCacheSize int
}

// New constructs a caching heap over source, starting with a target
// batch size of one object.
func New(source Upstream) *Heap {
	return &Heap{source: source, targetCacheSize: 1}
}

func next(ptr uintptr) uintptr { return *(*uintptr)(unsafe.Pointer(ptr)) }
func setNext(ptr, v uintptr)   { *(*uintptr)(unsafe.Pointer(ptr)) = v }

// Allocate pops a cached object if one is available, otherwise refills
// the cache with a fresh batch from source and returns the first of it.
func (h *Heap) Allocate() (uintptr, error) {
	if h.numCached > 0 {
		if !h.hasHead {
			fatal.Throw("cache: cached count positive but cache empty")
			return 0, nil
		}
		ptr := h.head
		h.head = next(ptr)
		h.numCached--
		h.hasHead = h.numCached > 0
		return ptr, nil
	}
	return h.refill()
}

// refill grows the target batch size (up to config.MaxCacheSize) and
// draws that many fresh objects from source, returning the first and
// caching the rest.
func (h *Heap) refill() (uintptr, error) {
	if h.targetCacheSize < config.MaxCacheSize {
		h.targetCacheSize <<= 1
	}

	first, err := h.source.Allocate()
	if err != nil {
		return 0, err
	}

	last := first
	for h.numCached+1 < h.targetCacheSize {
		ptr, err := h.source.Allocate()
		if err != nil {
			break
		}
		setNext(last, ptr)
		last = ptr
		h.numCached++
	}
	setNext(last, 0)
	if last != first {
		h.head = next(first)
		h.hasHead = h.head != 0
	} else {
		h.hasHead = false
	}

	return first, nil
}

// Free pushes ptr onto the cache. Once the cache reaches
// config.MaxCacheSize, one object is flushed upstream immediately, the
// target batch size is halved (floor 1), and the cache is drained back
// down to the new target.
func (h *Heap) Free(ptr uintptr) {
	if h.numCached < config.MaxCacheSize {
		setNext(ptr, h.head)
		h.head = ptr
		h.hasHead = true
		h.numCached++
		return
	}

	h.source.Free(ptr)

	if h.targetCacheSize > 1 {
		h.targetCacheSize >>= 1
	}

	for h.numCached > h.targetCacheSize {
		if !h.hasHead {
			fatal.Throw("cache: cached count positive but cache empty")
			return
		}
		freed := h.head
		h.head = next(freed)
		h.numCached--
		h.hasHead = h.numCached > 0
		h.source.Free(freed)
	}
}
