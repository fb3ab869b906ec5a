package reap

import (
	"github.com/plasma-umass/vam/internal/fatal"
	"github.com/plasma-umass/vam/internal/list"
)

// Bytemap recycles freed slots with one byte per slot (1 meaning free),
// trading memory for a plain byte-at-a-time scan compared to Bitmap.
type Bytemap struct {
	base
	bytes      []byte
	lowestByte int
}

var _ Reap = (*Bytemap)(nil)

// NewBytemap constructs a bytemap reap over the given arena. The
// bytemap starts all-zero: a slot's byte is only ever set to 1 once it
// has actually been freed, never for a never-touched slot still
// waiting on base.bump.
func NewBytemap(basePtr, size, objectSize uintptr) *Bytemap {
	n := numObjects(size, objectSize)
	r := &Bytemap{bytes: make([]byte, n), lowestByte: n}
	r.init(basePtr, objectSize, n)
	return r
}

func (r *Bytemap) Allocate() (uintptr, bool) {
	if ptr, ok := r.bump(); ok {
		return ptr, true
	}
	if r.numFree == 0 {
		return 0, false
	}

	i := r.lowestByte
	for i < len(r.bytes) && r.bytes[i] == 0 {
		i++
	}
	if i == len(r.bytes) {
		fatal.Throw("bytemap reap: free count positive but bytemap empty")
		return 0, false
	}

	r.bytes[i] = 0
	r.lowestByte = i + 1
	r.numFree--
	return r.basePtr + uintptr(i)*r.objectSize, true
}

func (r *Bytemap) Free(ptr uintptr) {
	offset := r.slotOf(ptr)
	r.bytes[offset] = 1
	r.numFree++
	if offset < r.lowestByte {
		r.lowestByte = offset
	}
}

func (r *Bytemap) Link() *list.Node[Reap] { return &r.link }
