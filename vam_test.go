package vam

import (
	"testing"
	"unsafe"

	"github.com/plasma-umass/vam/config"
	"github.com/plasma-umass/vam/internal/provider"
	"github.com/stretchr/testify/require"
)

// testConfig scales every dimension down so provider.Fake (backed by
// ordinary Go-heap byte slices) can exercise partition growth, superchunk
// growth, and frequency promotion without allocating real gigabytes.
func testConfig() config.Config {
	return config.Config{
		PageSize:          4096,
		PartitionSize:     64 * 1024,
		MaxDedicatedSize:  1024,
		MaxPageOrder:      3,
		MaxFreqSize:       512,
		Workhorse:         config.ReapBitmap,
		ThreadSafe:        true,
		AggressiveDiscard: false,
		SuperChunkSize:    64 * 1024,
		CacheEnabled:      false,
	}
}

func newTestVam(t *testing.T) *Vam {
	t.Helper()
	return New(testConfig(), provider.NewFake())
}

func TestAllocateReturnsNonNilAndFreeRoundTrips(t *testing.T) {
	v := newTestVam(t)

	p, err := v.Allocate(64)
	require.NoError(t, err)
	require.NotNil(t, p)
	v.Free(p)
}

func TestAllocateZeroReturnsUniqueNonNilPlaceholder(t *testing.T) {
	v := newTestVam(t)

	p, err := v.Allocate(0)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, uintptr(0), v.SizeOf(p))

	// Freeing or sizing the placeholder must never reach a downstream
	// layer.
	v.Free(p)
}

func TestFreeNilIsNoOp(t *testing.T) {
	v := newTestVam(t)
	v.Free(nil)
}

func TestSizeOfIsAtLeastRequested(t *testing.T) {
	v := newTestVam(t)

	for _, n := range []uintptr{1, 8, 17, 100, 513, 2000, 20000} {
		p, err := v.Allocate(n)
		require.NoError(t, err)
		require.GreaterOrEqual(t, v.SizeOf(p), n, "size for request %d", n)
		v.Free(p)
	}
}

func TestConcurrentAllocationsAreNonAliasing(t *testing.T) {
	v := newTestVam(t)

	const n = 500
	ptrs := make([]unsafe.Pointer, n)
	seen := make(map[unsafe.Pointer]bool, n)
	for i := range ptrs {
		p, err := v.Allocate(uintptr(16 + (i % 64)))
		require.NoError(t, err)
		require.False(t, seen[p], "pointer handed out twice while still live")
		seen[p] = true
		ptrs[i] = p
	}
	for _, p := range ptrs {
		v.Free(p)
	}
}

func TestAllocatedMemoryIsWritableAcrossItsFullReportedSize(t *testing.T) {
	v := newTestVam(t)

	p, err := v.Allocate(200)
	require.NoError(t, err)
	size := v.SizeOf(p)

	b := unsafe.Slice((*byte)(p), int(size))
	for i := range b {
		b[i] = byte(i)
	}
	for i := range b {
		require.Equal(t, byte(i), b[i])
	}
	v.Free(p)
}

func TestHugeAllocationExceedsOnePartition(t *testing.T) {
	v := newTestVam(t)
	cfg := testConfig()

	hugeSize := 10*cfg.PartitionSize + cfg.PageSize
	p, err := v.Allocate(hugeSize)
	require.NoError(t, err)
	require.GreaterOrEqual(t, v.SizeOf(p), hugeSize)
	v.Free(p)
}

func TestMixedSizeAllocationFreeStreamSurvives(t *testing.T) {
	v := newTestVam(t)
	sizes := []uintptr{8, 16, 32, 48, 100, 256, 300, 600, 1024, 2048, 5000}

	live := make([]unsafe.Pointer, 0, len(sizes)*4)
	for round := 0; round < 4; round++ {
		for _, s := range sizes {
			p, err := v.Allocate(s)
			require.NoError(t, err)
			live = append(live, p)
		}
	}
	for i, p := range live {
		if i%2 == 0 {
			v.Free(p)
		}
	}
	for i, p := range live {
		if i%2 != 0 {
			v.Free(p)
		}
	}
}

func TestRepeatedSmallAllocationStaysLiveAcrossPromotion(t *testing.T) {
	v := newTestVam(t)

	// Enough repeats of the same small size to cross DefaultPredicate's
	// promotion threshold (size*count > PageSize) partway through,
	// exercising the frequency heap's mid-stream switch from the
	// low-frequency to the high-frequency path for one size class.
	const size = 40
	ptrs := make([]unsafe.Pointer, 0, 2000)
	for i := 0; i < 2000; i++ {
		p, err := v.Allocate(size)
		require.NoError(t, err)
		ptrs = append(ptrs, p)
	}
	for _, p := range ptrs {
		require.GreaterOrEqual(t, v.SizeOf(p), uintptr(size))
	}
	for _, p := range ptrs {
		v.Free(p)
	}
}
