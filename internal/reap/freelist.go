package reap

import (
	"unsafe"

	"github.com/plasma-umass/vam/internal/fatal"
	"github.com/plasma-umass/vam/internal/list"
)

// Freelist recycles freed slots via a LIFO chain threaded directly
// through the freed objects themselves -- no scanning, but it requires
// objectSize to be at least a pointer wide.
type Freelist struct {
	base
	head    uintptr
	hasHead bool
}

var _ Reap = (*Freelist)(nil)

// NewFreelist constructs a freelist reap over the given arena.
func NewFreelist(basePtr, size, objectSize uintptr) *Freelist {
	n := numObjects(size, objectSize)
	r := &Freelist{}
	r.init(basePtr, objectSize, n)
	return r
}

func (r *Freelist) Allocate() (uintptr, bool) {
	if ptr, ok := r.bump(); ok {
		return ptr, true
	}
	if r.numFree == 0 {
		return 0, false
	}
	if !r.hasHead {
		fatal.Throw("freelist reap: free count positive but freelist empty")
		return 0, false
	}

	ptr := r.head
	r.head = *(*uintptr)(unsafe.Pointer(ptr))
	r.hasHead = r.head != 0
	r.numFree--
	return ptr, true
}

func (r *Freelist) Free(ptr uintptr) {
	*(*uintptr)(unsafe.Pointer(ptr)) = r.head
	r.head = ptr
	r.hasHead = true
	r.numFree++
}

func (r *Freelist) Link() *list.Node[Reap] { return &r.link }
