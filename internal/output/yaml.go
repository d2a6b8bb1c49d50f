package output

import (
	"bufio"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLWriter buffers results and writes them on Close.
type YAMLWriter struct {
	w       *bufio.Writer
	results []Result
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{w: bufio.NewWriter(w)}
}

// Write buffers r.
func (w *YAMLWriter) Write(r Result) error {
	w.results = append(w.results, r)
	return nil
}

// Close writes a single result as a mapping, several as a sequence.
func (w *YAMLWriter) Close() error {
	if len(w.results) == 0 {
		return w.w.Flush()
	}

	encoder := yaml.NewEncoder(w.w)
	encoder.SetIndent(2)

	var data any = w.results
	if len(w.results) == 1 {
		data = w.results[0]
	}
	if err := encoder.Encode(data); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}

	w.results = nil
	return w.w.Flush()
}
