package output

import (
	"bufio"
	"io"
	"strings"
)

// RawWriter prints only the body: the content, or one link per line when
// the result carries links.
type RawWriter struct {
	w *bufio.Writer
}

// NewRawWriter creates a raw writer.
func NewRawWriter(w io.Writer) *RawWriter {
	return &RawWriter{w: bufio.NewWriter(w)}
}

// Write prints r's body followed by a newline if it lacks one.
func (w *RawWriter) Write(r Result) error {
	body := r.Content
	if len(r.Links) > 0 {
		body = strings.Join(r.Links, "\n")
	}
	if _, err := w.w.WriteString(body); err != nil {
		return err
	}
	if body != "" && !strings.HasSuffix(body, "\n") {
		if err := w.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return w.w.Flush()
}

// Close flushes the writer.
func (w *RawWriter) Close() error {
	return w.w.Flush()
}
