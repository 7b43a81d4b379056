package errcoll

import (
	"context"
	"fmt"
	"io"
	"path"
	"runtime"
	"time"
)

// WriterErrorCollector is an [Interface] implementation that writes errors to
// an io.Writer.
type WriterErrorCollector struct {
	w io.Writer
}

// NewWriterErrorCollector returns a new WriterErrorCollector.
func NewWriterErrorCollector(w io.Writer) (c *WriterErrorCollector) {
	return &WriterErrorCollector{
		w: w,
	}
}

// type check
var _ Interface = (*WriterErrorCollector)(nil)

// Collect implements the [Interface] interface for *WriterErrorCollector.
func (c *WriterErrorCollector) Collect(ctx context.Context, err error) {
	_, _ = fmt.Fprintf(c.w, "%s: %s: caught error: %s\n", time.Now(), caller(2), err)
}

// caller returns the caller position as a "file.go:123" string.  skip is the
// number of stack frames to ascend, not counting caller itself.
func caller(skip int) (pos string) {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "<position unknown>"
	}

	return fmt.Sprintf("%s:%d", path.Base(file), line)
}
