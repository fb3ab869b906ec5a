// Package pagecluster implements the page-cluster heap: one partition's
// worth of virtual memory carved into fixed-size page clusters, handed
// out and reclaimed a whole cluster at a time. Cluster metadata (flags,
// free-list link, owning reap) lives in a parallel table indexed by
// cluster number rather than self-embedded in the cluster itself -- the
// arena-plus-offset translation of the original's self-embedded design,
// since Go code can't placement-construct into raw mmap'd bytes as
// casually as the C++ original does.
package pagecluster

import (
	"github.com/plasma-umass/vam/internal/fatal"
	"github.com/plasma-umass/vam/internal/list"
	"github.com/plasma-umass/vam/internal/provider"
	"github.com/plasma-umass/vam/internal/reap"
)

const (
	flagFree      = 1 << iota // cluster is not currently handed out
	flagDiscarded             // backing pages have been discard-hinted
)

type clusterEntry struct {
	flags int
	owner reap.Reap
	node  list.Node[*clusterEntry]
}

// Heap owns one partition-sized region, subdivided into num clusters of
// clusterSize bytes each.
type Heap struct {
	base        uintptr
	size        uintptr
	clusterSize uintptr
	numClusters int

	numFree      int
	numDiscarded int

	entries  []clusterEntry
	freeList list.List[*clusterEntry]

	aggressiveDiscard bool
	prov              provider.Provider
}

// New carves heapSize bytes, aligned to heapAlignment, from prov, and
// subdivides it into clusters of clusterSize bytes. All three sizes must
// already be multiples of the system page size; heapSize must be a
// multiple of clusterSize.
func New(prov provider.Provider, heapSize, heapAlignment, clusterSize uintptr, aggressiveDiscard bool) (*Heap, error) {
	if heapSize == 0 || heapSize%clusterSize != 0 {
		fatal.Throw("pagecluster: heap size not a multiple of cluster size")
	}

	base, err := prov.Map(heapSize, heapAlignment)
	if err != nil {
		return nil, err
	}

	n := int(heapSize / clusterSize)
	h := &Heap{
		base:              base,
		size:              heapSize,
		clusterSize:       clusterSize,
		numClusters:       n,
		numFree:           n,
		numDiscarded:      n,
		entries:           make([]clusterEntry, n),
		aggressiveDiscard: aggressiveDiscard,
		prov:              prov,
	}
	for i := range h.entries {
		h.entries[i].flags = flagFree | flagDiscarded
		h.freeList.PushBack(&h.entries[i].node, &h.entries[i])
	}
	return h, nil
}

// Base returns the start of the underlying region.
func (h *Heap) Base() uintptr { return h.base }

// AllocateCluster hands out one free cluster, or (0, false) if full.
func (h *Heap) AllocateCluster() (uintptr, bool) {
	node := h.freeList.First()
	if node == nil {
		return 0, false
	}
	entry := node.Owner()
	list.Remove(&entry.node)
	h.numFree--

	if entry.flags&flagFree == 0 {
		fatal.Throw("pagecluster: free-list entry not marked free")
	}
	entry.flags &^= flagFree
	if entry.flags&flagDiscarded != 0 {
		entry.flags &^= flagDiscarded
		h.numDiscarded--
	}

	return h.clusterPtr(entry), true
}

// FreeCluster returns a previously-allocated cluster to the free list.
func (h *Heap) FreeCluster(ptr uintptr) {
	entry := h.entryFor(ptr)
	if entry.flags&flagFree != 0 {
		fatal.Throw("pagecluster: double free of cluster")
	}
	entry.flags |= flagFree
	entry.owner = nil
	h.freeList.PushFront(&entry.node, entry)
	h.numFree++

	if h.aggressiveDiscard {
		_ = h.prov.Discard(h.clusterPtr(entry), h.clusterSize)
		entry.flags |= flagDiscarded
		h.numDiscarded++
	}
}

// SetOwner records the reap instance constructed inside the cluster
// starting at ptr, so a later pointer inside that cluster can be routed
// back to it in O(1).
func (h *Heap) SetOwner(ptr uintptr, owner reap.Reap) {
	h.entryFor(ptr).owner = owner
}

// OwnerOf returns the reap owning the cluster containing ptr.
func (h *Heap) OwnerOf(ptr uintptr) (reap.Reap, bool) {
	entry := h.entryFor(ptr)
	if entry.owner == nil {
		return nil, false
	}
	return entry.owner, true
}

// IsDiscarded reports whether the cluster containing ptr is currently
// discard-hinted.
func (h *Heap) IsDiscarded(ptr uintptr) bool {
	return h.entryFor(ptr).flags&flagDiscarded != 0
}

// IsEmpty reports whether every cluster is free.
func (h *Heap) IsEmpty() bool { return h.numFree == h.numClusters }

// IsFull reports whether no cluster is free.
func (h *Heap) IsFull() bool { return h.numFree == 0 }

// ClusterSize returns the fixed size of every cluster in this heap.
func (h *Heap) ClusterSize() uintptr { return h.clusterSize }

// Destroy releases the whole region back to the page provider. Callers
// must ensure IsEmpty() first.
func (h *Heap) Destroy() error {
	if !h.IsEmpty() {
		fatal.Throw("pagecluster: destroying a non-empty heap")
	}
	return h.prov.Unmap(h.base, h.size)
}

func (h *Heap) clusterPtr(e *clusterEntry) uintptr {
	idx := e - &h.entries[0]
	return h.base + uintptr(idx)*h.clusterSize
}

func (h *Heap) entryFor(ptr uintptr) *clusterEntry {
	idx := (ptr - h.base) / h.clusterSize
	if int(idx) >= h.numClusters {
		fatal.Throw("pagecluster: pointer outside heap range")
	}
	return &h.entries[idx]
}
