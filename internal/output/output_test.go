package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

type testItem struct {
	Name  string `json:"name" yaml:"name"`
	Value int    `json:"value" yaml:"value"`
}

type testRow struct {
	Name  string
	Price string
}

func (r testRow) Header() []string { return []string{"name", "price"} }
func (r testRow) Row() []string    { return []string{r.Name, r.Price} }

// --- NewWriter Factory Tests ---

func TestNewWriter_Formats(t *testing.T) {
	cases := map[Format]string{
		FormatCSV:   "*output.CSVWriter",
		FormatJSON:  "*output.JSONWriter",
		FormatJSONL: "*output.JSONLWriter",
		FormatYAML:  "*output.YAMLWriter",
		FormatXLSX:  "*output.XLSXWriter",
	}
	for format, want := range cases {
		w, err := NewWriter(&bytes.Buffer{}, format)
		if err != nil {
			t.Fatalf("NewWriter(%s) error = %v", format, err)
		}
		switch w.(type) {
		case *CSVWriter, *JSONWriter, *JSONLWriter, *YAMLWriter, *XLSXWriter:
		default:
			t.Errorf("NewWriter(%s) = %T, want %s", format, w, want)
		}
	}
}

func TestNewWriter_UnsupportedFormat(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, Format("ods"))
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("expected error containing 'unsupported', got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" JSON ")
	if err != nil {
		t.Fatalf("ParseFormat() error = %v", err)
	}
	if f != FormatJSON {
		t.Errorf("ParseFormat() = %q, want %q", f, FormatJSON)
	}
	if f.Ext() != ".json" {
		t.Errorf("Ext() = %q, want .json", f.Ext())
	}

	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

// --- JSONWriter Tests ---

func TestJSONWriter_SingleItem_StillArray(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, true, "  ")

	if err := w.Write(testItem{Name: "test", Value: 42}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var result []testItem
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal output: %v", err)
	}
	if len(result) != 1 || result[0].Name != "test" || result[0].Value != 42 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestJSONWriter_WriteAll_KeepsOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, false, "")

	items := []any{testItem{Name: "first", Value: 1}, testItem{Name: "second", Value: 2}}
	if err := w.WriteAll(items); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var result []testItem
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal output: %v", err)
	}
	if len(result) != 2 || result[0].Name != "first" || result[1].Name != "second" {
		t.Errorf("unexpected result: %+v", result)
	}
	if strings.Contains(buf.String(), "\n  ") {
		t.Error("compact output should not be indented")
	}
}

func TestJSONWriter_FlushThenClose_WritesOnce(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, false, "")
	_ = w.Write(testItem{Name: "once"})

	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if n := strings.Count(buf.String(), "once"); n != 1 {
		t.Errorf("item written %d times, want 1", n)
	}
}

func TestJSONWriter_Empty(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, true, "  ")
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("expected empty array, got %q", buf.String())
	}
}

func TestJSONWriter_KeepsAmpersand(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, false, "")
	_ = w.Write(testItem{Name: "Cães & Gatos"})
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Cães & Gatos") {
		t.Errorf("expected raw ampersand, got %q", buf.String())
	}
}

// --- JSONLWriter Tests ---

func TestJSONLWriter_OneLinePerItem(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONLWriter(buf)

	if err := w.WriteAll([]any{testItem{Name: "a", Value: 1}, testItem{Name: "b", Value: 2}}); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	var second testItem
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("line 2 is not JSON: %v", err)
	}
	if second.Name != "b" {
		t.Errorf("second line name = %q, want b", second.Name)
	}
}

// --- YAMLWriter Tests ---

func TestYAMLWriter_Sequence(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewYAMLWriter(buf)

	_ = w.Write(testItem{Name: "only", Value: 7})
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var result []testItem
	if err := yaml.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal yaml: %v", err)
	}
	if len(result) != 1 || result[0].Value != 7 {
		t.Errorf("unexpected result: %+v", result)
	}
}

// --- CSVWriter Tests ---

func TestCSVWriter_HeaderOnce(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewCSVWriter(buf, ',')

	rows := []any{testRow{Name: "Bravecto", Price: "R$ 189.90"}, testRow{Name: "Simparic, 3 un", Price: "inquire"}}
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	want := "name,price\nBravecto,R$ 189.90\n\"Simparic, 3 un\",inquire\n"
	if buf.String() != want {
		t.Errorf("csv output = %q, want %q", buf.String(), want)
	}
}

func TestCSVWriter_Semicolon(t *testing.T) {
	buf := &bytes.Buffer{}
	w, err := NewWriter(buf, FormatCSV, WithComma(';'))
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	_ = w.Write(testRow{Name: "a", Price: "b"})
	_ = w.Close()

	if !strings.HasPrefix(buf.String(), "name;price\n") {
		t.Errorf("unexpected header: %q", buf.String())
	}
}

func TestCSVWriter_RejectsNonTabular(t *testing.T) {
	w := NewCSVWriter(&bytes.Buffer{}, ',')
	if err := w.Write(testItem{Name: "x"}); err == nil {
		t.Error("expected error for non-tabular item")
	}
}

// --- XLSX Tests ---

func openBook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a workbook: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestXLSXWriter_SingleSheet(t *testing.T) {
	buf := &bytes.Buffer{}
	w, err := NewWriter(buf, FormatXLSX)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	rows := []any{testRow{Name: "Bravecto", Price: "R$ 189.90"}, testRow{Name: "Simparic", Price: "inquire"}}
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	f := openBook(t, buf.Bytes())
	if diff := cmp.Diff([]string{DefaultSheet}, f.GetSheetList()); diff != "" {
		t.Errorf("sheets mismatch (-want +got):\n%s", diff)
	}
	got, err := f.GetRows(DefaultSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	want := [][]string{{"name", "price"}, {"Bravecto", "R$ 189.90"}, {"Simparic", "inquire"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestWorkbook_SheetsInOrder(t *testing.T) {
	book := NewWorkbook()
	defer book.Close()

	long := strings.Repeat("x", 40)
	for _, name := range []string{"Todos_Sites", "cobasi", long} {
		if err := book.AddSheet(name, []any{testRow{Name: name, Price: "1"}}); err != nil {
			t.Fatalf("AddSheet(%s) error = %v", name, err)
		}
	}
	buf := &bytes.Buffer{}
	if _, err := book.WriteTo(buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}

	want := []string{"Todos_Sites", "cobasi", strings.Repeat("x", 31)}
	if diff := cmp.Diff(want, book.Sheets()); diff != "" {
		t.Errorf("Sheets() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, openBook(t, buf.Bytes()).GetSheetList()); diff != "" {
		t.Errorf("written sheets mismatch (-want +got):\n%s", diff)
	}
}

func TestWorkbook_RejectsNonTabular(t *testing.T) {
	book := NewWorkbook()
	defer book.Close()
	if err := book.AddSheet("x", []any{testItem{Name: "x"}}); err == nil {
		t.Error("expected error for non-tabular item")
	}
}
