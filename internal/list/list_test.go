package list

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushBackOrderAndOwner(t *testing.T) {
	var l List[string]
	var a, b, c Node[string]

	l.PushBack(&a, "a")
	l.PushBack(&b, "b")
	l.PushBack(&c, "c")

	var got []string
	l.Each(func(n *Node[string]) bool {
		got = append(got, n.Owner())
		return true
	})
	require.Equal(t, []string{"a", "b", "c"}, got)
	require.Equal(t, 3, l.Len())
}

func TestPushFrontInsertsAtHead(t *testing.T) {
	var l List[int]
	var a, b Node[int]

	l.PushBack(&a, 1)
	l.PushFront(&b, 2)

	first := l.First()
	require.Equal(t, 2, first.Owner())
}

func TestRemoveUnlinksAndIsIdempotent(t *testing.T) {
	var l List[int]
	var a, b Node[int]
	l.PushBack(&a, 1)
	l.PushBack(&b, 2)

	Remove(&a)
	require.False(t, a.Linked())
	require.Equal(t, 1, l.Len())

	Remove(&a) // no-op, must not panic or double-decrement anything
	require.Equal(t, 1, l.Len())
}

func TestMoveToPreservesOwnerAndMovesList(t *testing.T) {
	var src, dst List[string]
	var n Node[string]
	src.PushBack(&n, "x")

	MoveTo(&n, &dst)

	require.True(t, src.Empty())
	require.Equal(t, 1, dst.Len())
	require.Equal(t, "x", dst.First().Owner())
}

func TestEmptyListHasNoFirst(t *testing.T) {
	var l List[int]
	require.True(t, l.Empty())
	require.Nil(t, l.First())
}
