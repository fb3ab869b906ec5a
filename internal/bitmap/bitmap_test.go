package bitmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetClearTest(t *testing.T) {
	b := New(130)
	require.False(t, b.Test(0))
	require.False(t, b.Test(129))

	b.Set(0)
	b.Set(64)
	b.Set(129)
	require.True(t, b.Test(0))
	require.True(t, b.Test(64))
	require.True(t, b.Test(129))

	b.Clear(64)
	require.False(t, b.Test(64))
}

func TestFirstSetFromSameWord(t *testing.T) {
	b := New(64)
	b.Set(5)
	b.Set(10)

	idx, ok := b.FirstSetFrom(0)
	require.True(t, ok)
	require.Equal(t, 5, idx)

	idx, ok = b.FirstSetFrom(6)
	require.True(t, ok)
	require.Equal(t, 10, idx)

	_, ok = b.FirstSetFrom(11)
	require.False(t, ok)
}

func TestFirstSetFromCrossesWords(t *testing.T) {
	b := New(200)
	b.Set(150)

	idx, ok := b.FirstSetFrom(64)
	require.True(t, ok)
	require.Equal(t, 150, idx)

	idx, ok = b.FirstSetFrom(150)
	require.True(t, ok)
	require.Equal(t, 150, idx)

	_, ok = b.FirstSetFrom(151)
	require.False(t, ok)
}

func TestFirstSetFromOutOfRange(t *testing.T) {
	b := New(10)
	_, ok := b.FirstSetFrom(64)
	require.False(t, ok)
}
