package provider

import "unsafe"

// Fake is a Provider backed by ordinary Go-heap byte slices, used by the
// test suite so it can run without mmap or root privileges. It still
// honors the alignment contract by over-allocating and rounding the
// start up, like the real OS provider, but never actually unmaps: each
// mapped region's slice stays pinned so the GC can't reclaim the backing
// array out from under the allocator under test, and Unmap just drops
// that pin.
type Fake struct {
	regions map[uintptr][]byte
}

// NewFake constructs an empty Fake provider.
func NewFake() *Fake {
	return &Fake{regions: make(map[uintptr][]byte)}
}

var _ Provider = (*Fake)(nil)

func (f *Fake) Map(size, align uintptr) (uintptr, error) {
	raw := make([]byte, size+align)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	aligned := (base + align - 1) &^ (align - 1)

	f.regions[aligned] = raw
	return aligned, nil
}

func (f *Fake) Unmap(addr, size uintptr) error {
	delete(f.regions, addr)
	return nil
}

func (f *Fake) Discard(addr, size uintptr) error {
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	for i := range b {
		b[i] = 0
	}
	return nil
}
