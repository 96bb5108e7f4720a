package output

import (
	"bufio"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLWriter buffers records and writes one YAML document on Flush.
type YAMLWriter struct {
	w     *bufio.Writer
	items []any
	list  bool
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{w: bufio.NewWriter(w)}
}

func (w *YAMLWriter) Write(data any) error {
	w.items = append(w.items, data)
	return nil
}

func (w *YAMLWriter) WriteAll(data []any) error {
	w.list = true
	w.items = append(w.items, data...)
	return nil
}

func (w *YAMLWriter) Flush() error {
	var doc any = w.items
	switch {
	case !w.list && len(w.items) == 1:
		doc = w.items[0]
	case len(w.items) == 0:
		doc = []any{}
	}

	enc := yaml.NewEncoder(w.w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	w.items, w.list = nil, false
	return w.w.Flush()
}
