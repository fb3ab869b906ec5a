//go:build vamdebug

package fatal

func init() {
	Throw = throwDebug
}

func throwDebug(reason string) {
	panic("vam: invariant violation: " + reason)
}
