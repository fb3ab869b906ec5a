package reap

import "github.com/plasma-umass/vam/config"

// New constructs the configured workhorse variant over the given arena.
func New(kind config.Reap, basePtr, size, objectSize uintptr) Reap {
	switch kind {
	case config.ReapBitmap:
		return NewBitmap(basePtr, size, objectSize)
	case config.ReapBitmapCaching:
		return NewBitmapCaching(basePtr, size, objectSize)
	case config.ReapBytemap:
		return NewBytemap(basePtr, size, objectSize)
	case config.ReapFreelist:
		return NewFreelist(basePtr, size, objectSize)
	default:
		return NewBitmapCaching(basePtr, size, objectSize)
	}
}
