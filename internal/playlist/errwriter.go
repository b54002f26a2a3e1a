package playlist

import (
	"fmt"
	"io"
)

// errWriter accumulates the first write error and no-ops subsequent
// writes, so a playlist generator's long sequence of Fprint* calls reads
// top-to-bottom instead of interleaved with error checks — the single
// deferred err check at the end matches pkg/m3u.Writer's one-error-per-call
// discipline without repeating it at every line.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

func (e *errWriter) println(s string) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintln(e.w, s)
}
