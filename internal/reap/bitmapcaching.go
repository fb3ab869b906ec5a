package reap

import (
	"github.com/plasma-umass/vam/internal/bitmap"
	"github.com/plasma-umass/vam/internal/fatal"
	"github.com/plasma-umass/vam/internal/list"
)

// cacheSize mirrors CACHE_SIZE = SIZE_T_BIT in the original: one word's
// worth of cached offsets, enough to drain or refill in one bitmap scan.
const cacheSize = 64

// BitmapCaching is the default workhorse reap: a bitmap recycler with a
// small LIFO stack of free-slot offsets in front of it, so that the
// common allocate/free pair touches the stack, not the bitmap.
type BitmapCaching struct {
	base
	bits      bitmap.Bitmap
	lowestBit int
	cached    [cacheSize]int
	numCached int
}

var _ Reap = (*BitmapCaching)(nil)

// NewBitmapCaching constructs a bitmap+cache reap over the given arena.
// The bitmap starts empty, exactly as in Bitmap: only a freed slot ever
// sets a bit, never a never-touched slot still waiting on base.bump.
func NewBitmapCaching(basePtr, size, objectSize uintptr) *BitmapCaching {
	n := numObjects(size, objectSize)
	r := &BitmapCaching{bits: bitmap.New(n), lowestBit: n}
	r.init(basePtr, objectSize, n)
	return r
}

func (r *BitmapCaching) Allocate() (uintptr, bool) {
	if ptr, ok := r.bump(); ok {
		return ptr, true
	}
	if r.numFree == 0 {
		return 0, false
	}

	if r.numCached == 0 {
		r.refill()
	}

	r.numCached--
	offset := r.cached[r.numCached]
	r.numFree--
	return r.basePtr + uintptr(offset)*r.objectSize, true
}

// refill finds the first non-zero bitmap word, pushes every set bit as a
// cached offset (highest first, so pops deliver the lowest slots), and
// clears the word.
func (r *BitmapCaching) refill() {
	wordIdx, word, ok := r.bits.FirstSetWordFrom(r.lowestBit)
	if !ok {
		fatal.Throw("bitmap-caching reap: free count positive but bitmap empty")
		return
	}

	base := wordIdx * 64
	r.lowestBit = base + 64

	for bit := 63; bit >= 0; bit-- {
		if word&(uint64(1)<<uint(bit)) != 0 {
			r.cached[r.numCached] = base + bit
			r.numCached++
		}
	}
	r.bits = clearWord(r.bits, wordIdx)

	if r.numCached == 0 {
		fatal.Throw("bitmap-caching reap: scanned word was zero")
	}
}

func clearWord(b bitmap.Bitmap, idx int) bitmap.Bitmap {
	b[idx] = 0
	return b
}

func (r *BitmapCaching) Free(ptr uintptr) {
	offset := r.slotOf(ptr)
	r.cached[r.numCached] = offset
	r.numCached++
	r.numFree++

	if r.numCached == cacheSize {
		r.drain()
	}
}

// drain pushes every cached offset back into the bitmap, used once the
// cache stack fills up.
func (r *BitmapCaching) drain() {
	for i := 0; i < r.numCached; i++ {
		offset := r.cached[i]
		r.bits.Set(offset)
		if offset < r.lowestBit {
			r.lowestBit = offset
		}
	}
	r.numCached = 0
}

func (r *BitmapCaching) Link() *list.Node[Reap] { return &r.link }
