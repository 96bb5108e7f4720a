package output

import (
	"bufio"
	"encoding/json"
	"io"
)

// JSONWriter buffers records and writes them as one JSON document on Flush.
// A single Write produces an object; WriteAll always produces an array, even
// when empty.
type JSONWriter struct {
	w      *bufio.Writer
	pretty bool
	indent string
	items  []any
	list   bool
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{w: bufio.NewWriter(w), pretty: pretty, indent: indent}
}

func (w *JSONWriter) Write(data any) error {
	w.items = append(w.items, data)
	return nil
}

func (w *JSONWriter) WriteAll(data []any) error {
	w.list = true
	w.items = append(w.items, data...)
	return nil
}

func (w *JSONWriter) Flush() error {
	var doc any = w.items
	switch {
	case !w.list && len(w.items) == 1:
		doc = w.items[0]
	case len(w.items) == 0:
		doc = []any{}
	}

	enc := json.NewEncoder(w.w)
	enc.SetEscapeHTML(false)
	if w.pretty {
		enc.SetIndent("", w.indent)
	}
	if err := enc.Encode(doc); err != nil {
		return err
	}
	w.items, w.list = nil, false
	return w.w.Flush()
}

// JSONLWriter writes one record per line as soon as it is written.
type JSONLWriter struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{w: bw, enc: enc}
}

func (w *JSONLWriter) Write(data any) error {
	if err := w.enc.Encode(data); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLWriter) WriteAll(data []any) error {
	for _, item := range data {
		if err := w.Write(item); err != nil {
			return err
		}
	}
	return nil
}

func (w *JSONLWriter) Flush() error {
	return w.w.Flush()
}
