package reap

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// arena backs a reap's object slots in ordinary, pinned Go memory.
func arena(t *testing.T, numTotal int, objectSize uintptr) uintptr {
	t.Helper()
	buf := make([]byte, numTotal*int(objectSize))
	return uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
}

// bumpAll exhausts r's bump allocator, returning every slot it hands out
// in order.
func bumpAll(r Reap, n int) []uintptr {
	ptrs := make([]uintptr, n)
	for i := 0; i < n; i++ {
		ptr, ok := r.Allocate()
		if !ok {
			panic("bump allocation failed before exhausting numTotal")
		}
		ptrs[i] = ptr
	}
	return ptrs
}

// TestBitmapRecycleDoesNotAliasLiveBumpedSlot is the maintainer's
// concrete failure scenario: bump 3 slots, free slots 0 and 2 (leaving
// slot 1 live), then recycle-allocate twice. Before the fix, the
// constructor preset every bit to "free", so the second recycle
// allocation handed back the still-live slot 1 instead of the
// genuinely-free slot 2.
func TestBitmapRecycleDoesNotAliasLiveBumpedSlot(t *testing.T) {
	const objectSize = 16
	const n = 3
	base := arena(t, n, objectSize)
	r := NewBitmap(base, n*objectSize, objectSize)

	slots := bumpAll(r, n)
	require.Equal(t, 0, r.NumFree())

	r.Free(slots[0])
	r.Free(slots[2])
	require.Equal(t, 2, r.NumFree())

	first, ok := r.Allocate()
	require.True(t, ok)
	second, ok := r.Allocate()
	require.True(t, ok)

	require.ElementsMatch(t, []uintptr{slots[0], slots[2]}, []uintptr{first, second})
	require.NotEqual(t, slots[1], first)
	require.NotEqual(t, slots[1], second)
	require.Equal(t, 0, r.NumFree())

	_, ok = r.Allocate()
	require.False(t, ok, "no slots remain: live slot 1 must never be handed out")
}

func TestBytemapRecycleDoesNotAliasLiveBumpedSlot(t *testing.T) {
	const objectSize = 16
	const n = 3
	base := arena(t, n, objectSize)
	r := NewBytemap(base, n*objectSize, objectSize)

	slots := bumpAll(r, n)
	require.Equal(t, 0, r.NumFree())

	r.Free(slots[0])
	r.Free(slots[2])
	require.Equal(t, 2, r.NumFree())

	first, ok := r.Allocate()
	require.True(t, ok)
	second, ok := r.Allocate()
	require.True(t, ok)

	require.ElementsMatch(t, []uintptr{slots[0], slots[2]}, []uintptr{first, second})
	require.NotEqual(t, slots[1], first)
	require.NotEqual(t, slots[1], second)
	require.Equal(t, 0, r.NumFree())

	_, ok = r.Allocate()
	require.False(t, ok, "no slots remain: live slot 1 must never be handed out")
}

func TestFreelistRecycleDoesNotAliasLiveBumpedSlot(t *testing.T) {
	const objectSize = 16
	const n = 3
	base := arena(t, n, objectSize)
	r := NewFreelist(base, n*objectSize, objectSize)

	slots := bumpAll(r, n)
	require.Equal(t, 0, r.NumFree())

	r.Free(slots[0])
	r.Free(slots[2])
	require.Equal(t, 2, r.NumFree())

	first, ok := r.Allocate()
	require.True(t, ok)
	second, ok := r.Allocate()
	require.True(t, ok)

	require.ElementsMatch(t, []uintptr{slots[0], slots[2]}, []uintptr{first, second})
	require.NotEqual(t, slots[1], first)
	require.NotEqual(t, slots[1], second)
	require.Equal(t, 0, r.NumFree())

	_, ok = r.Allocate()
	require.False(t, ok, "no slots remain: live slot 1 must never be handed out")
}

// TestBitmapCachingRecycleDoesNotAliasLiveBumpedSlot exercises the same
// hole-in-the-middle scenario at the granularity BitmapCaching actually
// operates at: its cache only drains into the bitmap, and its refill
// only rescans the bitmap, a whole 64-bit word at a time. Two words'
// worth of slots are bumped, every even-offset slot is freed (exactly
// cacheSize frees, so the cache drains on schedule), and every
// odd-offset slot is left live and must never come back out.
func TestBitmapCachingRecycleDoesNotAliasLiveBumpedSlot(t *testing.T) {
	const objectSize = 16
	const n = 2 * cacheSize // two words
	base := arena(t, n, objectSize)
	r := NewBitmapCaching(base, n*objectSize, objectSize)

	slots := bumpAll(r, n)
	require.Equal(t, 0, r.NumFree())

	live := make(map[uintptr]bool, n/2)
	freed := make(map[uintptr]bool, n/2)
	for i, ptr := range slots {
		if i%2 == 0 {
			r.Free(ptr)
			freed[ptr] = true
		} else {
			live[ptr] = true
		}
	}
	require.Equal(t, n/2, r.NumFree())

	seen := make(map[uintptr]bool, n/2)
	for i := 0; i < n/2; i++ {
		ptr, ok := r.Allocate()
		require.True(t, ok)
		require.False(t, live[ptr], "recycled a still-live bumped slot")
		require.True(t, freed[ptr], "recycled a pointer that was never freed")
		require.False(t, seen[ptr], "recycled the same slot twice")
		seen[ptr] = true
	}
	require.Equal(t, 0, r.NumFree())

	_, ok := r.Allocate()
	require.False(t, ok, "no slots remain: live odd-offset slots must never be handed out")
}
