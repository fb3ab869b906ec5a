package segfit

import "unsafe"

// A free block threads its own doubly-linked list pointers through its
// payload -- the same trick reap.Freelist uses for its singly-linked
// chain, extended to two links since seg-fit needs O(1) removal from
// the middle of a list when split-coalesce coalesces a free neighbour.
const wordSize = unsafe.Sizeof(uintptr(0))

func linkNext(ptr uintptr) uintptr { return *(*uintptr)(unsafe.Pointer(ptr)) }

func setLinkNext(ptr, v uintptr) { *(*uintptr)(unsafe.Pointer(ptr)) = v }

func linkPrev(ptr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(ptr + wordSize))
}

func setLinkPrev(ptr, v uintptr) {
	*(*uintptr)(unsafe.Pointer(ptr + wordSize)) = v
}
