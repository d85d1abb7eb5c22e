package output

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVWriter writes Tabular items as CSV. The header of the first item is
// written once before its row.
type CSVWriter struct {
	w       *csv.Writer
	started bool
}

// NewCSVWriter creates a CSV writer using comma as the field separator.
func NewCSVWriter(w io.Writer, comma rune) *CSVWriter {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	return &CSVWriter{w: cw}
}

// Write writes one row.
func (w *CSVWriter) Write(data any) error {
	row, ok := data.(Tabular)
	if !ok {
		return fmt.Errorf("csv output requires tabular items, got %T", data)
	}
	if !w.started {
		if err := w.w.Write(row.Header()); err != nil {
			return err
		}
		w.started = true
	}
	return w.w.Write(row.Row())
}

// WriteAll writes multiple rows.
func (w *CSVWriter) WriteAll(data []any) error {
	for _, item := range data {
		if err := w.Write(item); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes buffered rows.
func (w *CSVWriter) Flush() error {
	w.w.Flush()
	return w.w.Error()
}

// Close flushes the writer.
func (w *CSVWriter) Close() error {
	return w.Flush()
}
