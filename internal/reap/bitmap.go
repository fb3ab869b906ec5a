package reap

import (
	"github.com/plasma-umass/vam/internal/bitmap"
	"github.com/plasma-umass/vam/internal/fatal"
	"github.com/plasma-umass/vam/internal/list"
)

// Bitmap recycles freed slots with one bit per slot, 1 meaning free.
// lowestBit is a monotone hint: allocation never needs to rescan slots
// below it, since free() keeps it pulled down to the lowest slot that
// could be free.
type Bitmap struct {
	base
	bits      bitmap.Bitmap
	lowestBit int
}

var _ Reap = (*Bitmap)(nil)

// NewBitmap constructs a bitmap reap over [basePtr, basePtr+size) for
// objects of the given size. The bitmap starts empty: a slot's bit is
// only ever set once it has actually been freed, never for a
// never-touched slot still waiting on base.bump.
func NewBitmap(basePtr, size, objectSize uintptr) *Bitmap {
	n := numObjects(size, objectSize)
	r := &Bitmap{bits: bitmap.New(n), lowestBit: n}
	r.init(basePtr, objectSize, n)
	return r
}

func (r *Bitmap) Allocate() (uintptr, bool) {
	if ptr, ok := r.bump(); ok {
		return ptr, true
	}
	if r.numFree == 0 {
		return 0, false
	}

	offset, ok := r.bits.FirstSetFrom(r.lowestBit)
	if !ok {
		fatal.Throw("bitmap reap: free count positive but bitmap empty")
		return 0, false
	}
	r.bits.Clear(offset)
	r.lowestBit = offset + 1
	r.numFree--
	return r.basePtr + uintptr(offset)*r.objectSize, true
}

func (r *Bitmap) Free(ptr uintptr) {
	offset := r.slotOf(ptr)
	r.bits.Set(offset)
	r.numFree++
	if offset < r.lowestBit {
		r.lowestBit = offset
	}
}

func (r *Bitmap) Link() *list.Node[Reap] { return &r.link }
