package vam

import "github.com/plasma-umass/vam/internal/provider"

// ErrOutOfMemory is returned when the page provider cannot satisfy a
// request. It is the only error any public function returns; every
// other failure mode is either a BAD_ARGUMENT panic at construction
// time or an INVARIANT_VIOLATION reported through internal/fatal.
var ErrOutOfMemory = provider.ErrOutOfMemory
