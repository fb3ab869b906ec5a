// Package reap implements the one-size subheap family: bump allocation
// for never-touched slots, handed off to a recycling structure
// (bitmap, bitmap+cache, bytemap, or freelist) once the bump pointer is
// exhausted. Each variant backs its recycling metadata with ordinary Go
// memory rather than self-embedding it in the raw cluster -- the arena
// is reserved purely for object slots, the way the design notes suggest
// for allocators that can't rely on C-style placement new into
// unmanaged bytes.
package reap

import (
	"github.com/plasma-umass/vam/internal/list"
)

// Reap is the common surface every subheap variant implements.
type Reap interface {
	Allocate() (uintptr, bool)
	Free(ptr uintptr)
	ObjectSize() uintptr
	NumTotal() int
	NumFree() int
	Base() uintptr
	Link() *list.Node[Reap]
}

// base implements the bump-allocation half shared by every variant; the
// recycling half is layered on top by each concrete type.
type base struct {
	objectSize uintptr
	numTotal   int
	numFree    int
	numBumped  int
	basePtr    uintptr
	link       list.Node[Reap]
}

func (b *base) init(basePtr, objectSize uintptr, numTotal int) {
	b.basePtr = basePtr
	b.objectSize = objectSize
	b.numTotal = numTotal
	b.numFree = numTotal
	b.numBumped = 0
}

// bump returns the next never-touched slot, or (0, false) once every
// slot has been bumped at least once.
func (b *base) bump() (uintptr, bool) {
	if b.numBumped >= b.numTotal {
		return 0, false
	}
	ptr := b.basePtr + uintptr(b.numBumped)*b.objectSize
	b.numBumped++
	b.numFree--
	return ptr, true
}

func (b *base) ObjectSize() uintptr { return b.objectSize }
func (b *base) NumTotal() int       { return b.numTotal }
func (b *base) NumFree() int        { return b.numFree }
func (b *base) Base() uintptr       { return b.basePtr }

func (b *base) slotOf(ptr uintptr) int {
	return int((ptr - b.basePtr) / b.objectSize)
}

// numObjects computes how many whole objects of objectSize fit in a
// region of size bytes -- the count every variant uses once it has
// reserved whatever bookkeeping memory it needs (none, here, since that
// bookkeeping lives off-arena).
func numObjects(size, objectSize uintptr) int {
	return int(size / objectSize)
}
