// Package vam is a general-purpose layered memory allocator.
//
// Requests flow through a fixed stack of composable layers: a page
// provider backed by anonymous mmap (internal/provider), a
// partition-addressed page-cluster router giving O(1) pointer->owner
// classification (internal/partition, internal/pagecluster), a
// frequency classifier that promotes repeatedly-requested sizes onto a
// segregated-fit high-frequency path and leaves the rest on a
// boundary-tag split/coalesce low-frequency path (internal/freq,
// internal/segsize, internal/onesize, internal/reap,
// internal/splitcoalesce, internal/segfit, internal/twoheap), and an
// optional per-size object cache in front of the high-frequency path
// (internal/cache).
//
// Allocate, Free, and SizeOf operate against a lazily-initialized
// default instance built from config.Default(); construct a dedicated
// instance with New for a non-default configuration or a test-only
// provider.Provider.
package vam
