package output

import (
	"bufio"
	"encoding/json"
	"io"
)

// JSONWriter buffers results and writes them on Close: a single result as an
// object, several as an array.
type JSONWriter struct {
	w       *bufio.Writer
	pretty  bool
	indent  string
	results []Result
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{
		w:      bufio.NewWriter(w),
		pretty: pretty,
		indent: indent,
	}
}

// Write buffers r.
func (w *JSONWriter) Write(r Result) error {
	w.results = append(w.results, r)
	return nil
}

// Close writes the buffered results. Nothing is written when none were
// buffered.
func (w *JSONWriter) Close() error {
	if len(w.results) == 0 {
		return w.w.Flush()
	}

	var data any = w.results
	if len(w.results) == 1 {
		data = w.results[0]
	}

	var (
		out []byte
		err error
	)
	if w.pretty {
		out, err = json.MarshalIndent(data, "", w.indent)
	} else {
		out, err = json.Marshal(data)
	}
	if err != nil {
		return err
	}

	w.results = nil
	if _, err := w.w.Write(append(out, '\n')); err != nil {
		return err
	}
	return w.w.Flush()
}

// JSONLWriter writes one JSON object per line as results arrive.
type JSONLWriter struct {
	enc *json.Encoder
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{enc: json.NewEncoder(w)}
}

// Write writes r as a single line.
func (w *JSONLWriter) Write(r Result) error {
	return w.enc.Encode(r)
}

// Close is a no-op; lines are written unbuffered.
func (w *JSONLWriter) Close() error {
	return nil
}
