// Package partition implements the partition heap: a single global
// router that owns the whole high- and low-frequency address space,
// carved into fixed-size partitions, each wholly owned by one
// page-cluster subheap of one type. Classifying an arbitrary pointer
// back to its owning subheap is then a single map lookup keyed by
// partition index, never a search.
package partition

import (
	"sync"

	"github.com/plasma-umass/vam/config"
	"github.com/plasma-umass/vam/internal/fatal"
	"github.com/plasma-umass/vam/internal/list"
	"github.com/plasma-umass/vam/internal/pagecluster"
	"github.com/plasma-umass/vam/internal/provider"
	"github.com/plasma-umass/vam/internal/vlog"
)

// InvalidType marks a partition slot with no owning subheap.
const InvalidType = config.InvalidType

type subheapStatus int

const (
	statusAvailable subheapStatus = iota
	statusFull
)

type subheapEntry struct {
	heap   *pagecluster.Heap
	status subheapStatus
	node   list.Node[*subheapEntry]
}

type typeList struct {
	avai  list.List[*subheapEntry]
	full  list.List[*subheapEntry]
	count int // subheaps of this type, avai+full
}

// Heap is the partition-addressed heap described above: Types distinct
// typeLists, each holding zero or more page-cluster subheaps of
// partitionSize bytes, plus a map from partition index to type giving
// O(1) ptr -> type -> subheap classification.
type Heap struct {
	mu sync.Mutex

	prov              provider.Provider
	partitionSize     uintptr
	numTypes          int
	aggressiveDiscard bool

	lists []typeList

	typeOf    map[uintptr]int // partition index -> type, or InvalidType
	ownerOf   map[uintptr]*subheapEntry
	numActive int
}

// New constructs a partition heap with the given number of distinct
// owner types (see config.Config.MaxPageOrder+1) and partition size.
func New(prov provider.Provider, partitionSize uintptr, numTypes int, aggressiveDiscard bool) *Heap {
	h := &Heap{
		prov:              prov,
		partitionSize:     partitionSize,
		numTypes:          numTypes,
		aggressiveDiscard: aggressiveDiscard,
		lists:             make([]typeList, numTypes),
		typeOf:            make(map[uintptr]int),
		ownerOf:           make(map[uintptr]*subheapEntry),
	}
	return h
}

func (h *Heap) partitionIndex(ptr uintptr) uintptr {
	return ptr / h.partitionSize
}

// Allocate returns a clusterSize-byte page cluster tagged with the given
// type, creating a new partition-sized subheap if no existing subheap of
// that type has room. clusterSize <= PartitionSize is the "regular"
// path (many clusters share one partition-sized subheap); clusterSize >
// PartitionSize is the huge path (a dedicated, single-cluster subheap
// sized exactly to the request).
func (h *Heap) Allocate(clusterSize uintptr, typ int) (uintptr, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if typ < 0 || typ >= h.numTypes {
		fatal.Throw("partition: type out of range")
	}
	tl := &h.lists[typ]

	if clusterSize <= h.partitionSize {
		for node := tl.avai.First(); node != nil; {
			entry := node.Owner()
			next := tl.avai.Next(node)

			if ptr, ok := entry.heap.AllocateCluster(); ok {
				return ptr, nil
			}
			list.Remove(&entry.node)
			tl.full.PushBack(&entry.node, entry)
			entry.status = statusFull
			node = next
		}

		heap, err := pagecluster.New(h.prov, h.partitionSize, h.partitionSize, clusterSize, h.aggressiveDiscard)
		if err != nil {
			return 0, err
		}
		return h.bindNewSubheap(heap, tl, typ)
	}

	heap, err := pagecluster.New(h.prov, clusterSize, provider.PageSize, clusterSize, h.aggressiveDiscard)
	if err != nil {
		return 0, err
	}
	ptr, err := h.bindNewSubheap(heap, tl, typ)
	if err != nil {
		return 0, err
	}
	if entry := h.ownerOf[h.partitionIndex(heap.Base())]; entry != nil && !heap.IsFull() {
		fatal.Throw("partition: huge subheap not full after its sole allocation")
	}
	return ptr, nil
}

func (h *Heap) bindNewSubheap(heap *pagecluster.Heap, tl *typeList, typ int) (uintptr, error) {
	ptr, ok := heap.AllocateCluster()
	if !ok {
		fatal.Throw("partition: fresh subheap could not satisfy its own allocation")
		return 0, provider.ErrOutOfMemory
	}

	entry := &subheapEntry{heap: heap, status: statusAvailable}
	idx := h.partitionIndex(heap.Base())
	h.typeOf[idx] = typ
	h.ownerOf[idx] = entry
	h.numActive++
	vlog.Debugf("partition: new subheap type=%d partition=%d clusterSize=%d", typ, idx, heap.ClusterSize())

	if heap.IsFull() {
		tl.full.PushBack(&entry.node, entry)
		entry.status = statusFull
	} else {
		tl.avai.PushBack(&entry.node, entry)
	}
	tl.count++
	return ptr, nil
}

// Free returns ptr's cluster to its owning subheap, destroying the
// subheap (and unmapping its region) if that empties it and it is not
// the last subheap of its type.
func (h *Heap) Free(ptr uintptr) {
	h.mu.Lock()
	defer h.mu.Unlock()

	typ := h.typeAt(ptr)
	if typ == InvalidType {
		return
	}
	tl := &h.lists[typ]

	idx := h.partitionIndex(ptr)
	entry := h.ownerOf[idx]
	if entry == nil {
		fatal.Throw("partition: no subheap registered for pointer's partition")
		return
	}

	entry.heap.FreeCluster(ptr)

	if entry.heap.IsEmpty() && tl.count > 1 {
		list.Remove(&entry.node)
		delete(h.typeOf, idx)
		delete(h.ownerOf, idx)
		h.numActive--
		tl.count--
		vlog.Debugf("partition: destroying empty subheap type=%d partition=%d", typ, idx)
		_ = entry.heap.Destroy()
		return
	}

	if entry.status == statusFull {
		list.MoveTo(&entry.node, &tl.avai)
		entry.status = statusAvailable
	}
}

// TypeOf reports the owner type tagged against ptr's partition, or
// InvalidType if no subheap currently owns it.
func (h *Heap) TypeOf(ptr uintptr) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.typeAt(ptr)
}

func (h *Heap) typeAt(ptr uintptr) int {
	idx := h.partitionIndex(ptr)
	typ, ok := h.typeOf[idx]
	if !ok {
		return InvalidType
	}
	return typ
}

// SubheapFor returns the pagecluster.Heap that owns ptr, for callers
// that need to set/query per-cluster reap ownership once they've
// obtained a fresh cluster or need to classify an existing pointer.
func (h *Heap) SubheapFor(ptr uintptr) (*pagecluster.Heap, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry := h.ownerOf[h.partitionIndex(ptr)]
	if entry == nil {
		return nil, false
	}
	return entry.heap, true
}
