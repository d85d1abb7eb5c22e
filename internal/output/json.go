package output

import (
	"bufio"
	"encoding/json"
	"io"
)

// encodeFunc renders a whole item sequence to out.
type encodeFunc func(out io.Writer, items []any) error

// document collects items and renders them once as a single sequence, so a
// file always holds one array even for zero or one record.
type document struct {
	out      *bufio.Writer
	items    []any
	encode   encodeFunc
	rendered bool
}

func newDocument(w io.Writer, encode encodeFunc) document {
	return document{out: bufio.NewWriter(w), items: []any{}, encode: encode}
}

// Write buffers one item.
func (d *document) Write(item any) error {
	d.items = append(d.items, item)
	return nil
}

// WriteAll buffers items in order.
func (d *document) WriteAll(items []any) error {
	d.items = append(d.items, items...)
	return nil
}

// Flush renders the buffered sequence on the first call. Later calls only
// flush the underlying buffer.
func (d *document) Flush() error {
	if !d.rendered {
		if err := d.encode(d.out, d.items); err != nil {
			return err
		}
		d.rendered = true
	}
	return d.out.Flush()
}

// Close is Flush.
func (d *document) Close() error {
	return d.Flush()
}

// JSONWriter writes one JSON array. HTML characters are left unescaped
// since product names routinely contain "&".
type JSONWriter struct {
	document
}

// NewJSONWriter creates a JSON writer. indent applies only when pretty.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{newDocument(w, func(out io.Writer, items []any) error {
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		if pretty {
			enc.SetIndent("", indent)
		}
		return enc.Encode(items)
	})}
}

// JSONLWriter streams one JSON object per line.
type JSONLWriter struct {
	out *bufio.Writer
	enc *json.Encoder
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	out := bufio.NewWriter(w)
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{out: out, enc: enc}
}

func (w *JSONLWriter) Write(item any) error {
	return w.enc.Encode(item)
}

func (w *JSONLWriter) WriteAll(items []any) error {
	for _, item := range items {
		if err := w.enc.Encode(item); err != nil {
			return err
		}
	}
	return nil
}

func (w *JSONLWriter) Flush() error { return w.out.Flush() }
func (w *JSONLWriter) Close() error { return w.out.Flush() }
