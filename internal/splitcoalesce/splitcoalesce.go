// Package splitcoalesce implements the split-coalesce heap (C7):
// boundary-tag splitting and O(1) coalescing layered on top of the
// seg-fit free-block index. When seg-fit has nothing to offer, a fresh
// superchunk is carved from the upstream page source, bounded by two
// sentinel object headers so coalescing can never walk out of bounds.
package splitcoalesce

import (
	"github.com/plasma-umass/vam/config"
	"github.com/plasma-umass/vam/internal/fatal"
	"github.com/plasma-umass/vam/internal/objheader"
	"github.com/plasma-umass/vam/internal/segfit"
	"github.com/plasma-umass/vam/internal/vlog"
)

// minFreeBlock is the smallest payload a free block can shrink to and
// still carry the two free-list link words seg-fit threads through it.
const minFreeBlock = 2 * 8 // two uintptr-sized link words

// SuperSource is the upstream collaborator superchunks are carved from.
// partition.Heap satisfies this with its low-frequency type.
type SuperSource interface {
	Allocate(clusterSize uintptr, typ int) (uintptr, error)
}

// Heap splits and coalesces boundary-tagged blocks drawn from a seg-fit
// index, growing by whole superchunks when that index runs dry.
type Heap struct {
	fit            *segfit.Heap
	source         SuperSource
	superChunkSize uintptr
}

// New constructs a split-coalesce heap over a fresh seg-fit index,
// drawing superChunkSize-byte superchunks from source as needed.
func New(source SuperSource, maxDedicated, superChunkSize uintptr) *Heap {
	return &Heap{
		fit:            segfit.New(maxDedicated),
		source:         source,
		superChunkSize: superChunkSize,
	}
}

func roundUp(size, quantum uintptr) uintptr {
	return (size + quantum - 1) / quantum * quantum
}

// Allocate returns a payload pointer for size bytes, growing the
// underlying seg-fit index by a fresh superchunk if necessary.
func (h *Heap) Allocate(size uintptr) (uintptr, error) {
	want := roundUp(size, config.Quantum)
	if want < minFreeBlock {
		want = minFreeBlock
	}

	ptr, ok := h.fit.Allocate(want)
	if !ok {
		if err := h.growSuperchunk(); err != nil {
			return 0, err
		}
		ptr, ok = h.fit.Allocate(want)
		if !ok {
			fatal.Throw("splitcoalesce: fresh superchunk could not satisfy its own allocation")
			return 0, nil
		}
	}

	h.take(ptr, want)
	return ptr, nil
}

// growSuperchunk carves one superChunkSize-byte region from source and
// seeds it as a single giant free block bounded by two sentinel headers:
// a zero-size head sentinel (so the giant object's PrevFree is always
// false, preventing any attempt to coalesce left out of the superchunk)
// and a zero-size tail guard at the far end (nothing is ever placed past
// it, so there is nothing to coalesce right into).
func (h *Heap) growSuperchunk() error {
	base, err := h.source.Allocate(h.superChunkSize, config.LowFreqType)
	if err != nil {
		return err
	}

	head := objheader.At(base + objheader.Size)
	head.SetPrevSize(0)
	head.SetPrevFree(false)
	head.Size = 0

	giant := objheader.At(base + 2*objheader.Size)
	giant.SetPrevSize(0)
	giant.SetPrevFree(false)
	giant.Size = h.superChunkSize - 3*objheader.Size

	guard := objheader.At(base + 2*objheader.Size + giant.Size + objheader.Size)
	guard.SetPrevSize(giant.Size)
	guard.SetPrevFree(true)
	guard.Size = 0

	vlog.Debugf("splitcoalesce: new superchunk size=%d giant=%d", h.superChunkSize, giant.Size)

	h.fit.Free(giant.Object(), giant.Size)
	return nil
}

// take marks the block at ptr in use, splitting off and returning any
// sufficiently large remainder to the seg-fit index.
func (h *Heap) take(ptr uintptr, want uintptr) {
	hdr := objheader.At(ptr)
	origSize := hdr.Size

	if origSize-want >= objheader.Size+minFreeBlock {
		remainder := origSize - want - objheader.Size
		hdr.Size = want

		newHdr := objheader.At(hdr.Object() + want + objheader.Size)
		newHdr.Size = remainder
		newHdr.SetPrevSize(want)
		newHdr.SetPrevFree(false) // hdr, now shrunk, is allocated
		newHdr.SetFree(true)      // remainder itself starts out free
		newHdr.Next().SetPrevSize(remainder)

		h.fit.Free(newHdr.Object(), remainder)
		return
	}

	hdr.SetFree(false)
}

// Free coalesces ptr with any free neighbours and returns the resulting
// block to the seg-fit index.
func (h *Heap) Free(ptr uintptr) {
	hdr := objheader.At(ptr)

	if hdr.PrevFree() {
		prev := hdr.Prev()
		h.fit.Remove(prev.Object(), prev.Size)
		prev.Size += objheader.Size + hdr.Size
		hdr = prev
	}

	// A zero-size next header is the tail guard, whose own free bit would
	// lie past the end of the superchunk; it is never coalesced.
	if next := hdr.Next(); next.Size != 0 && next.IsFree() {
		h.fit.Remove(next.Object(), next.Size)
		hdr.Size += objheader.Size + next.Size
	}

	boundary := hdr.Next()
	boundary.SetPrevSize(hdr.Size)
	boundary.SetPrevFree(true)

	h.fit.Free(hdr.Object(), hdr.Size)
}

// SizeOf returns the usable payload size of the live block at ptr.
func (h *Heap) SizeOf(ptr uintptr) uintptr {
	return objheader.At(ptr).Size
}
