// Package onesize implements the one-size heap (C4): an array of Reaps
// all serving the same fixed object size, grown one exponentially-larger
// subheap at a time as existing ones fill, and shrunk as they empty.
package onesize

import (
	"github.com/plasma-umass/vam/config"
	"github.com/plasma-umass/vam/internal/fatal"
	"github.com/plasma-umass/vam/internal/list"
	"github.com/plasma-umass/vam/internal/pagecluster"
	"github.com/plasma-umass/vam/internal/reap"
	"github.com/plasma-umass/vam/internal/vlog"
)

// PageSource is the upstream collaborator a one-size heap draws fresh
// subheap clusters from and returns them to. partition.Heap satisfies
// this.
type PageSource interface {
	Allocate(clusterSize uintptr, typ int) (uintptr, error)
	Free(ptr uintptr)
	SubheapFor(ptr uintptr) (*pagecluster.Heap, bool)
}

// Heap owns every Reap serving one fixed object size.
type Heap struct {
	objectSize uintptr
	pageSize   uintptr
	maxOrder   uint8
	workhorse  config.Reap
	source     PageSource

	nextType uint8 // 1..maxOrder, saturating

	avai  list.List[reap.Reap]
	full  list.List[reap.Reap]
	count int // avai+full
}

// New constructs a one-size heap for objectSize-byte objects, drawing
// subheap clusters of page_size*2^(order-1) bytes from source.
func New(source PageSource, pageSize, objectSize uintptr, maxOrder uint8, workhorse config.Reap) *Heap {
	return &Heap{
		objectSize: objectSize,
		pageSize:   pageSize,
		maxOrder:   maxOrder,
		workhorse:  workhorse,
		source:     source,
		nextType:   1,
	}
}

// ObjectSize reports the fixed size this heap serves.
func (h *Heap) ObjectSize() uintptr { return h.objectSize }

// Allocate returns one objectSize-byte slot, growing the heap with a
// fresh subheap if every existing one is full.
func (h *Heap) Allocate() (uintptr, error) {
	for node := h.avai.First(); node != nil; node = h.avai.First() {
		r := node.Owner()
		if ptr, ok := r.Allocate(); ok {
			return ptr, nil
		}
		list.MoveTo(node, &h.full)
	}
	return h.grow()
}

func (h *Heap) grow() (uintptr, error) {
	clusterSize := h.pageSize << (h.nextType - 1)
	typ := int(h.nextType)

	base, err := h.source.Allocate(clusterSize, typ)
	if err != nil {
		return 0, err
	}

	r := reap.New(h.workhorse, base, clusterSize, h.objectSize)
	cluster, ok := h.source.SubheapFor(base)
	if !ok {
		fatal.Throw("onesize: fresh cluster has no owning page-cluster heap")
	} else {
		cluster.SetOwner(base, r)
	}

	ptr, ok := r.Allocate()
	if !ok {
		fatal.Throw("onesize: fresh subheap could not satisfy its own allocation")
	}

	if r.NumFree() > 0 {
		h.avai.PushBack(r.Link(), r)
	} else {
		h.full.PushBack(r.Link(), r)
	}
	h.count++

	if h.nextType < h.maxOrder {
		h.nextType++
	}
	vlog.Debugf("onesize: grew objectSize=%d clusterSize=%d type=%d", h.objectSize, clusterSize, typ)

	return ptr, nil
}

// Free returns ptr to its owning Reap, shrinking the heap if that
// subheap becomes empty and is not the last one.
func (h *Heap) Free(ptr uintptr) {
	cluster, ok := h.source.SubheapFor(ptr)
	if !ok {
		fatal.Throw("onesize: free of pointer outside any page-cluster heap")
		return
	}
	r, ok := cluster.OwnerOf(ptr)
	if !ok {
		fatal.Throw("onesize: free of pointer with no owning reap")
		return
	}

	wasFull := r.NumFree() == 0
	r.Free(ptr)

	if r.NumFree() == r.NumTotal() && h.count > 1 {
		list.Remove(r.Link())
		h.count--
		if h.nextType > 1 {
			h.nextType--
		}
		vlog.Debugf("onesize: shrinking empty subheap objectSize=%d", h.objectSize)
		h.source.Free(r.Base())
		return
	}

	if wasFull {
		list.MoveTo(r.Link(), &h.avai)
	}
}
