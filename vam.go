package vam

import (
	"io"
	"sync"
	"unsafe"

	"github.com/plasma-umass/vam/config"
	"github.com/plasma-umass/vam/internal/freq"
	"github.com/plasma-umass/vam/internal/locked"
	"github.com/plasma-umass/vam/internal/partition"
	"github.com/plasma-umass/vam/internal/provider"
	"github.com/plasma-umass/vam/internal/segsize"
	"github.com/plasma-umass/vam/internal/splitcoalesce"
	"github.com/plasma-umass/vam/internal/twoheap"
	"github.com/plasma-umass/vam/internal/vlog"
)

// zeroObject is the process-wide zero-size placeholder Allocate(0)
// returns a pointer to. It is never touched and never freed back to any
// layer -- Free and SizeOf recognize its address and short-circuit.
var zeroObject byte

// allocator is the surface every composition of the high/low-frequency
// paths exposes, locked or not -- freq.LowFreq and freq.HighFreq both
// already agree on this shape.
type allocator interface {
	Allocate(size uintptr) (uintptr, error)
	Free(ptr uintptr)
	SizeOf(ptr uintptr) uintptr
}

// Vam is one allocator instance: a page provider, a shared partition
// router, and the frequency classifier sitting on top of the
// high-frequency (segregated-fit) and low-frequency (boundary-tag)
// paths. The zero value is not usable; construct with New.
type Vam struct {
	cfg  config.Config
	prov provider.Provider
	top  allocator
}

// New constructs a Vam instance over prov with the given configuration.
// Most callers want the package-level Allocate/Free/SizeOf against the
// default instance instead; New exists for tests that need a
// provider.Fake or a non-default config.Config side by side with it.
func New(cfg config.Config, prov provider.Provider) *Vam {
	if cfg.PageSize == 0 || cfg.PartitionSize == 0 {
		panic("vam: zero-valued PageSize/PartitionSize in config.Config")
	}

	numTypes := int(cfg.MaxPageOrder) + 1
	part := partition.New(prov, cfg.PartitionSize, numTypes, cfg.AggressiveDiscard)

	high := buildHighFreq(part, cfg)
	low := buildLowFreq(part, cfg)

	return &Vam{
		cfg:  cfg,
		prov: prov,
		top:  buildTop(low, high, part, cfg),
	}
}

func buildHighFreq(part *partition.Heap, cfg config.Config) allocator {
	h := segsize.New(part, cfg.PageSize, cfg.MaxFreqSize, cfg.MaxPageOrder, cfg.Workhorse, cfg.CacheEnabled)
	if cfg.ThreadSafe {
		return locked.New[*segsize.Heap](h)
	}
	return h
}

func buildLowFreq(part *partition.Heap, cfg config.Config) allocator {
	sc := splitcoalesce.New(part, cfg.MaxDedicatedSize, cfg.SuperChunkSize)

	// Two-Heap's own dedicated/huge split threshold: anything that would
	// leave a superchunk with little room for anything else is routed
	// directly to the page source instead, padded to whole partitions so
	// it stays classifiable via the partition type tag (see twoheap.h's
	// PartitionSize+page_size rounding, carried unchanged in
	// internal/twoheap).
	maxObjectSize := cfg.SuperChunkSize / 4

	two := twoheap.New(sc, part, maxObjectSize, cfg.PartitionSize, cfg.PageSize)
	if cfg.ThreadSafe {
		return locked.New[*twoheap.Heap](two)
	}
	return two
}

func buildTop(low, high allocator, part *partition.Heap, cfg config.Config) allocator {
	predicate := freq.DefaultPredicate(cfg.PageSize)
	return freq.New(low.(freq.LowFreq), high.(freq.HighFreq), part, cfg.MaxFreqSize, predicate)
}

// Allocate returns a region of at least n bytes, double-word aligned,
// or ErrOutOfMemory if the page provider cannot supply more memory.
// n == 0 returns a unique non-null pointer to a process-wide
// zero-size placeholder rather than indexing into any size class.
func (v *Vam) Allocate(n uintptr) (unsafe.Pointer, error) {
	if n == 0 {
		return unsafe.Pointer(&zeroObject), nil
	}

	ptr, err := v.top.Allocate(n)
	if err != nil {
		return nil, err
	}
	return unsafe.Pointer(ptr), nil
}

// Free releases a pointer previously returned by Allocate. Freeing the
// zero-size placeholder, or calling Free(nil), is a no-op. Freeing
// anything else is undefined.
func (v *Vam) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	if p == unsafe.Pointer(&zeroObject) {
		return
	}
	v.top.Free(uintptr(p))
}

// SizeOf returns the usable size of the live block at p, which may be
// larger than what was originally requested.
func (v *Vam) SizeOf(p unsafe.Pointer) uintptr {
	if p == nil {
		return 0
	}
	if p == unsafe.Pointer(&zeroObject) {
		return 0
	}
	return v.top.SizeOf(uintptr(p))
}

var (
	defaultOnce sync.Once
	defaultVam  *Vam
)

func instance() *Vam {
	defaultOnce.Do(func() {
		defaultVam = New(config.Default(), provider.OS{})
	})
	return defaultVam
}

// Allocate returns a region of at least n bytes from the default,
// lazily-initialized instance. See (*Vam).Allocate.
func Allocate(n uintptr) (unsafe.Pointer, error) {
	return instance().Allocate(n)
}

// Free releases a pointer returned by Allocate, against the default
// instance. See (*Vam).Free.
func Free(p unsafe.Pointer) {
	instance().Free(p)
}

// SizeOf reports the usable size of a live pointer, against the default
// instance. See (*Vam).SizeOf.
func SizeOf(p unsafe.Pointer) uintptr {
	return instance().SizeOf(p)
}

// SetLogger redirects diagnostic output (subheap and superchunk
// lifecycle events) to w. Pass io.Discard, the default, to silence it
// again.
func SetLogger(w io.Writer) {
	vlog.SetOutput(w)
}
