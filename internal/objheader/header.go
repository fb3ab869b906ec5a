// Package objheader implements the boundary-tag object header prepended
// to every low-frequency allocation: two machine words, double-aligned,
// carrying {prev_free, prev_size, size}. The free bit of an object lives
// in its successor's header, exactly as in the original allocator, so a
// single header pair is enough to splice or coalesce in O(1).
package objheader

import "unsafe"

// Size is the footprint of a Header, always one double-word aligned unit.
const Size = unsafe.Sizeof(Header{})

// Header sits immediately before the object it describes. prevSizeFree
// packs prev_size in its upper bits and prev_free in bit 0, mirroring the
// C bitfield {prev_free:1, prev_size:31} without relying on Go struct
// bitfields, which don't exist.
type Header struct {
	prevSizeFree uintptr
	Size         uintptr
}

// At reinterprets the double-word immediately before ptr as a Header.
func At(ptr uintptr) *Header {
	return (*Header)(unsafe.Pointer(ptr - Size))
}

// Object returns the address of the payload this header describes.
func (h *Header) Object() uintptr {
	return uintptr(unsafe.Pointer(h)) + Size
}

// PrevSize returns the size of the preceding object in the chain.
func (h *Header) PrevSize() uintptr {
	return h.prevSizeFree >> 1
}

// SetPrevSize records the size of the preceding object.
func (h *Header) SetPrevSize(size uintptr) {
	h.prevSizeFree = size<<1 | (h.prevSizeFree & 1)
}

// PrevFree reports whether the preceding object is free. This bit lives
// in this header even though it describes the *previous* object -- that
// previous object's IsFree() reads it via its own Next().
func (h *Header) PrevFree() bool {
	return h.prevSizeFree&1 != 0
}

// SetPrevFree records whether the preceding object is free.
func (h *Header) SetPrevFree(free bool) {
	if free {
		h.prevSizeFree |= 1
	} else {
		h.prevSizeFree &^= 1
	}
}

// Prev returns the header immediately before h in the boundary-tag chain.
func (h *Header) Prev() *Header {
	addr := uintptr(unsafe.Pointer(h))
	return (*Header)(unsafe.Pointer(addr - h.PrevSize() - Size))
}

// Next returns the header immediately after h in the boundary-tag chain.
func (h *Header) Next() *Header {
	addr := uintptr(unsafe.Pointer(h))
	return (*Header)(unsafe.Pointer(addr + Size + h.Size))
}

// IsFree reports whether h's object is currently free: the free bit for
// an object lives in its successor's header, not its own.
func (h *Header) IsFree() bool {
	return h.Next().PrevFree()
}

// SetFree records h's object as free or in-use, in its successor.
func (h *Header) SetFree(free bool) {
	h.Next().SetPrevFree(free)
}
