// Package list implements an intrusive doubly-linked list.
//
// Every element carries its own Node rather than being held by an owning
// container, matching the way the reap and partition subheaps thread
// themselves onto the avai/full lists of their owner.
package list

// Node is embedded by value in whatever struct wants list membership.
// Owner lets a list walk recover the containing struct without a
// container_of-style offset trick.
type Node[T any] struct {
	prev, next *Node[T]
	owner      T
	linked     bool
}

// Owner returns the value this node was initialized with.
func (n *Node[T]) Owner() T { return n.owner }

// Linked reports whether the node is currently part of a list.
func (n *Node[T]) Linked() bool { return n.linked }

// List is a circular, sentinel-headed doubly-linked list of Node[T].
type List[T any] struct {
	head Node[T]
}

// Init (re)initializes an empty list. The zero value is not ready to use.
func (l *List[T]) Init() {
	l.head.prev = &l.head
	l.head.next = &l.head
}

func (l *List[T]) ensureInit() {
	if l.head.next == nil {
		l.Init()
	}
}

// Empty reports whether the list has no elements.
func (l *List[T]) Empty() bool {
	l.ensureInit()
	return l.head.next == &l.head
}

// PushFront links n at the head of the list, owned by owner.
func (l *List[T]) PushFront(n *Node[T], owner T) {
	l.ensureInit()
	n.owner = owner
	insertAfter(&l.head, n)
}

// PushBack links n at the tail of the list, owned by owner.
func (l *List[T]) PushBack(n *Node[T], owner T) {
	l.ensureInit()
	n.owner = owner
	insertAfter(l.head.prev, n)
}

func insertAfter[T any](at, n *Node[T]) {
	n.prev = at
	n.next = at.next
	at.next.prev = n
	at.next = n
	n.linked = true
}

// Remove unlinks n from whatever list it is on. A no-op if n is not linked.
func Remove[T any](n *Node[T]) {
	if !n.linked {
		return
	}
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = nil
	n.next = nil
	n.linked = false
}

// MoveTo unlinks n and relinks it at the front of dst, preserving owner.
func MoveTo[T any](n *Node[T], dst *List[T]) {
	owner := n.owner
	Remove(n)
	dst.PushFront(n, owner)
}

// First returns the head element's node, or nil if the list is empty.
func (l *List[T]) First() *Node[T] {
	l.ensureInit()
	if l.head.next == &l.head {
		return nil
	}
	return l.head.next
}

// Next returns the node following n, or nil at the end of the list.
func (l *List[T]) Next(n *Node[T]) *Node[T] {
	if n.next == &l.head {
		return nil
	}
	return n.next
}

// Each calls fn for every node currently in the list, in order. fn may
// safely remove the current node but must not remove other nodes.
func (l *List[T]) Each(fn func(*Node[T]) bool) {
	for n := l.First(); n != nil; {
		next := l.Next(n)
		if !fn(n) {
			return
		}
		n = next
	}
}

// Len walks the list and counts its elements. Intended for invariant
// checks and tests, not the hot path.
func (l *List[T]) Len() int {
	n := 0
	l.Each(func(*Node[T]) bool { n++; return true })
	return n
}
