package output

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet names the single sheet written by XLSXWriter.
const DefaultSheet = "Produtos"

const (
	maxSheetName = 31
	maxColWidth  = 50
)

// Workbook builds a spreadsheet one sheet at a time. Each sheet holds
// Tabular items under the header of the first one, with columns sized to
// their content.
type Workbook struct {
	file   *excelize.File
	sheets []string
}

// NewWorkbook creates an empty workbook.
func NewWorkbook() *Workbook {
	return &Workbook{file: excelize.NewFile()}
}

// Sheets returns the sheet names in the order they were added.
func (b *Workbook) Sheets() []string {
	return append([]string(nil), b.sheets...)
}

// AddSheet appends a sheet called name. Names longer than the spreadsheet
// limit are truncated.
func (b *Workbook) AddSheet(name string, items []any) error {
	if utf8.RuneCountInString(name) > maxSheetName {
		name = string([]rune(name)[:maxSheetName])
	}

	if len(b.sheets) == 0 {
		if err := b.file.SetSheetName(b.file.GetSheetName(0), name); err != nil {
			return fmt.Errorf("name sheet %s: %w", name, err)
		}
	} else if _, err := b.file.NewSheet(name); err != nil {
		return fmt.Errorf("add sheet %s: %w", name, err)
	}
	b.sheets = append(b.sheets, name)

	var widths []int
	for i, item := range items {
		t, ok := item.(Tabular)
		if !ok {
			return fmt.Errorf("xlsx output requires tabular items, got %T", item)
		}
		if i == 0 {
			if err := b.row(name, 1, t.Header(), &widths); err != nil {
				return err
			}
		}
		if err := b.row(name, i+2, t.Row(), &widths); err != nil {
			return err
		}
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := b.file.SetColWidth(name, col, col, float64(min(w+2, maxColWidth))); err != nil {
			return fmt.Errorf("size column %s: %w", col, err)
		}
	}
	return nil
}

func (b *Workbook) row(sheet string, n int, cells []string, widths *[]int) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	values := make([]any, len(cells))
	for i, c := range cells {
		values[i] = c
		if i >= len(*widths) {
			*widths = append(*widths, 0)
		}
		(*widths)[i] = max((*widths)[i], utf8.RuneCountInString(c))
	}
	if err := b.file.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, n, err)
	}
	return nil
}

// WriteTo serializes the workbook.
func (b *Workbook) WriteTo(w io.Writer) (int64, error) {
	return b.file.WriteTo(w)
}

// Close releases the workbook's temporary resources.
func (b *Workbook) Close() error {
	return b.file.Close()
}

// XLSXWriter writes a one-sheet workbook of Tabular items.
type XLSXWriter struct {
	document
}

// NewXLSXWriter creates a spreadsheet writer whose sheet is called sheet.
func NewXLSXWriter(w io.Writer, sheet string) *XLSXWriter {
	return &XLSXWriter{newDocument(w, func(out io.Writer, items []any) error {
		book := NewWorkbook()
		defer book.Close()
		if err := book.AddSheet(sheet, items); err != nil {
			return err
		}
		_, err := book.WriteTo(out)
		return err
	})}
}
