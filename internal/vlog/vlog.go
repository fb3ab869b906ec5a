// Package vlog provides the package-level diagnostic logger shared by
// the composition layers that want to report lifecycle events (subheap
// creation/destruction, superchunk acquisition).
// It defaults to a discarded-output logger so the hot allocate/free path
// never pays for formatting unless a caller opts in.
package vlog

import (
	"io"

	"github.com/sirupsen/logrus"
)

var log = newDisabled()

func newDisabled() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// SetOutput redirects diagnostic output, e.g. to os.Stderr, and raises
// the level to Debug. Passing io.Discard restores the default silence.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
	if w == io.Discard {
		log.SetLevel(logrus.PanicLevel)
	} else {
		log.SetLevel(logrus.DebugLevel)
	}
}

// Debugf reports a diagnostic event. Cheap no-op when output is disabled.
func Debugf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}
