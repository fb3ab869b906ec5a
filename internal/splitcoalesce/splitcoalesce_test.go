package splitcoalesce

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// fakeSource hands out pinned, zeroed superchunk-sized buffers the way
// partition.Heap's low-frequency type would.
type fakeSource struct {
	pinned [][]byte
	calls  int
}

func (s *fakeSource) Allocate(clusterSize uintptr, typ int) (uintptr, error) {
	s.calls++
	buf := make([]byte, int(clusterSize))
	s.pinned = append(s.pinned, buf)
	return uintptr(unsafe.Pointer(unsafe.SliceData(buf))), nil
}

const testSuperChunk = 4096

func TestAllocateGrowsExactlyOneSuperchunkOnFirstUse(t *testing.T) {
	src := &fakeSource{}
	h := New(src, 1024, testSuperChunk)

	_, err := h.Allocate(64)
	require.NoError(t, err)
	require.Equal(t, 1, src.calls)

	_, err = h.Allocate(64)
	require.NoError(t, err)
	require.Equal(t, 1, src.calls, "second allocation must be served from the same superchunk")
}

func TestAllocateSplitsRemainderBackIntoIndex(t *testing.T) {
	src := &fakeSource{}
	h := New(src, 1024, testSuperChunk)

	a, err := h.Allocate(32)
	require.NoError(t, err)
	require.Equal(t, uintptr(32), h.SizeOf(a))

	// The remainder of the superchunk must still be available: a second,
	// much larger allocation should succeed without growing again.
	b, err := h.Allocate(512)
	require.NoError(t, err)
	require.Equal(t, 1, src.calls)
	require.NotEqual(t, a, b)
}

func TestFreeThenAllocateSmallerReusesBlockWithRemainder(t *testing.T) {
	src := &fakeSource{}
	h := New(src, 1024, testSuperChunk)

	a, err := h.Allocate(64)
	require.NoError(t, err)
	b, err := h.Allocate(256)
	require.NoError(t, err)
	c, err := h.Allocate(64)
	require.NoError(t, err)
	require.NotEqual(t, a, c)

	h.Free(b)

	d, err := h.Allocate(32)
	require.NoError(t, err)
	require.Equal(t, b, d, "smaller request should reuse b's freed region")
	require.Equal(t, uintptr(32), h.SizeOf(d))

	// b's leftover space went back to the index as a free remainder, so a
	// further modest allocation is still served without growing again.
	_, err = h.Allocate(64)
	require.NoError(t, err)
	require.Equal(t, 1, src.calls)
}

func TestFreeCoalescesWithFreeNextNeighbour(t *testing.T) {
	src := &fakeSource{}
	h := New(src, 1024, testSuperChunk)

	a, err := h.Allocate(64)
	require.NoError(t, err)
	b, err := h.Allocate(64)
	require.NoError(t, err)
	_, err = h.Allocate(64) // keeps b's right neighbour pinned as allocated-adjacent tail guard consumer
	require.NoError(t, err)

	h.Free(b)
	// Freeing a (whose right neighbour b is free) must coalesce into one
	// block at least as large as both originals combined.
	h.Free(a)

	merged, err := h.Allocate(64 + 64)
	require.NoError(t, err)
	require.Equal(t, a, merged, "coalesced block starts at the lower address")
}

func TestFreeCoalescesWithFreePrevNeighbour(t *testing.T) {
	src := &fakeSource{}
	h := New(src, 1024, testSuperChunk)

	a, err := h.Allocate(64)
	require.NoError(t, err)
	b, err := h.Allocate(64)
	require.NoError(t, err)

	h.Free(a)
	h.Free(b)

	merged, err := h.Allocate(64 + 64)
	require.NoError(t, err)
	require.Equal(t, a, merged, "coalescing left must keep the lower-address header")
}

func TestSizeOfReflectsRequestedSizeAfterSplit(t *testing.T) {
	src := &fakeSource{}
	h := New(src, 1024, testSuperChunk)

	ptr, err := h.Allocate(48)
	require.NoError(t, err)
	require.GreaterOrEqual(t, h.SizeOf(ptr), uintptr(48))
}
