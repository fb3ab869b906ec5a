// Package freq implements the frequency heap (C10): classifies requests
// by how popular their size has been and dispatches to either the
// low-frequency (boundary-tag) or high-frequency (segregated) path.
package freq

import (
	"github.com/plasma-umass/vam/config"
	"github.com/plasma-umass/vam/internal/fatal"
)

// LowFreq and HighFreq are the two downstream allocators a frequency
// heap dispatches to.
type LowFreq interface {
	Allocate(size uintptr) (uintptr, error)
	Free(ptr uintptr)
	SizeOf(ptr uintptr) uintptr
}

type HighFreq interface {
	Allocate(size uintptr) (uintptr, error)
	Free(ptr uintptr)
	SizeOf(ptr uintptr) uintptr
}

// Router exposes partition-type classification so Free and SizeOf can
// pick the right downstream path for an arbitrary live pointer.
type Router interface {
	TypeOf(ptr uintptr) int
}

// Predicate decides whether a size should be promoted to the
// high-frequency path, given its size and cumulative request count.
type Predicate func(size uintptr, count int) bool

// DefaultPredicate promotes a size once its cumulative allocated bytes
// exceed one page: size*count > pageSize.
func DefaultPredicate(pageSize uintptr) Predicate {
	return func(size uintptr, count int) bool {
		return size*uintptr(count) > pageSize
	}
}

// Heap is the classifier described above.
type Heap struct {
	maxFreqSize uintptr
	predicate   Predicate
	low         LowFreq
	high        HighFreq
	router      Router

	isHot []bool
	count []int
}

// New constructs a frequency heap dispatching sizes <= maxFreqSize
// between low and high by predicate, and sizes above maxFreqSize always
// to low.
func New(low LowFreq, high HighFreq, router Router, maxFreqSize uintptr, predicate Predicate) *Heap {
	n := config.Index(maxFreqSize) + 1
	return &Heap{
		maxFreqSize: maxFreqSize,
		predicate:   predicate,
		low:         low,
		high:        high,
		router:      router,
		isHot:       make([]bool, n),
		count:       make([]int, n),
	}
}

// Allocate dispatches size to the low- or high-frequency path, updating
// the popularity counters along the way.
func (h *Heap) Allocate(size uintptr) (uintptr, error) {
	if size > h.maxFreqSize {
		return h.low.Allocate(size)
	}

	idx := config.Index(size)
	if h.isHot[idx] {
		return h.high.Allocate(size)
	}

	h.count[idx]++
	if h.predicate(size, h.count[idx]) {
		h.isHot[idx] = true
		return h.high.Allocate(size)
	}
	return h.low.Allocate(size)
}

// Free routes ptr by reading the partition type of its owning region:
// LowFreqType means the low-frequency heap owns it, anything else means
// the high-frequency heap does.
func (h *Heap) Free(ptr uintptr) {
	typ := h.router.TypeOf(ptr)
	if typ == config.InvalidType {
		fatal.Throw("freq: free of pointer with no partition type")
		return
	}
	if typ == config.LowFreqType {
		h.low.Free(ptr)
		return
	}
	h.high.Free(ptr)
}

// SizeOf returns the usable size of any live pointer, low- or
// high-frequency alike.
func (h *Heap) SizeOf(ptr uintptr) uintptr {
	if h.router.TypeOf(ptr) == config.LowFreqType {
		return h.low.SizeOf(ptr)
	}
	return h.high.SizeOf(ptr)
}
