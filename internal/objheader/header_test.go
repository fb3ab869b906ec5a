package objheader

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// arena backs a run of adjacent headers the way a superchunk would.
func arena(t *testing.T, n int) uintptr {
	t.Helper()
	buf := make([]byte, n)
	return uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
}

func TestAtObjectRoundTrip(t *testing.T) {
	base := arena(t, 256)
	payload := base + Size

	hdr := At(payload)
	require.Equal(t, payload, hdr.Object())
}

func TestPrevSizeFreeBitsDoNotCollide(t *testing.T) {
	base := arena(t, 256)
	hdr := At(base + Size)

	hdr.SetPrevSize(128)
	hdr.SetPrevFree(true)
	require.Equal(t, uintptr(128), hdr.PrevSize())
	require.True(t, hdr.PrevFree())

	hdr.SetPrevFree(false)
	require.Equal(t, uintptr(128), hdr.PrevSize())
	require.False(t, hdr.PrevFree())

	hdr.SetPrevSize(64)
	require.Equal(t, uintptr(64), hdr.PrevSize())
	require.False(t, hdr.PrevFree())
}

func TestNextPrevChain(t *testing.T) {
	base := arena(t, 256)

	first := At(base + Size)
	first.Size = 32

	second := first.Next()
	second.SetPrevSize(first.Size)
	second.Size = 16

	require.Equal(t, second.Object(), first.Object()+first.Size+Size)
	require.Equal(t, first.Object(), second.Prev().Object())
}

func TestSetFreeReadsThroughNextHeader(t *testing.T) {
	base := arena(t, 256)

	first := At(base + Size)
	first.Size = 32
	second := first.Next()
	second.Size = 16

	require.False(t, first.IsFree())
	first.SetFree(true)
	require.True(t, first.IsFree())
	require.True(t, second.PrevFree())
}
