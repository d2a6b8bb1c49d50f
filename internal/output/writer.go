// Package output renders fetch results for the CLI.
package output

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// Format represents output format types.
type Format string

const (
	FormatRaw   Format = "raw"
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// Formats lists every supported format, for flag help.
var Formats = []Format{FormatRaw, FormatJSON, FormatJSONL, FormatYAML}

// Result is one fetched URL as presented to the user.
type Result struct {
	URL        string      `json:"url" yaml:"url"`
	StatusCode int         `json:"status_code" yaml:"status_code"`
	Headers    http.Header `json:"headers,omitempty" yaml:"headers,omitempty"`
	Title      string      `json:"title,omitempty" yaml:"title,omitempty"`
	Content    string      `json:"content,omitempty" yaml:"content,omitempty"`
	Links      []string    `json:"links,omitempty" yaml:"links,omitempty"`
	Size       int         `json:"size" yaml:"size"`
	FetchedAt  time.Time   `json:"fetched_at" yaml:"fetched_at"`
}

// Writer handles output serialization.
type Writer interface {
	// Write outputs a single result. Buffered formats emit on Close.
	Write(r Result) error

	// Close flushes anything buffered.
	Close() error
}

// WriterOption configures a writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	pretty bool
	indent string
}

// WithPretty enables pretty-printing.
func WithPretty(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.pretty = enabled
	}
}

// WithIndent sets the indentation string.
func WithIndent(indent string) WriterOption {
	return func(c *writerConfig) {
		c.indent = indent
	}
}

// NewWriter creates a writer for the specified format.
func NewWriter(w io.Writer, format Format, opts ...WriterOption) (Writer, error) {
	cfg := &writerConfig{
		pretty: true,
		indent: "  ",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	switch format {
	case FormatRaw, "":
		return NewRawWriter(w), nil
	case FormatJSON:
		return NewJSONWriter(w, cfg.pretty, cfg.indent), nil
	case FormatJSONL:
		return NewJSONLWriter(w), nil
	case FormatYAML:
		return NewYAMLWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
