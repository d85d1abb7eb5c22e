// Package sink persists scan results as files under a run directory.
package sink

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/vetprice/internal/logger"
	"github.com/jmylchreest/vetprice/internal/output"
	"github.com/jmylchreest/vetprice/pkg/product"
)

// Directory names under the base output directory.
const (
	CollectedDir = "dados_coletados"
	TestDir      = "dados_testes"
)

// ConsolidatedPrefix names the cross-site report file.
const ConsolidatedPrefix = "relatorio_consolidado"

// Sheets of the consolidated workbook, around one sheet per site.
const (
	AllSitesSheet = "Todos_Sites"
	StatsSheet    = "Estatisticas"
)

// FileSink writes one file per site plus a consolidated statistics file.
type FileSink struct {
	dir    string
	format output.Format
	opts   []output.WriterOption
	now    func() time.Time
}

// Option configures a FileSink.
type Option func(*FileSink)

// WithClock replaces time.Now for file stamps and statistics.
func WithClock(now func() time.Time) Option {
	return func(s *FileSink) {
		s.now = now
	}
}

// WithWriterOptions passes options to every output writer.
func WithWriterOptions(opts ...output.WriterOption) Option {
	return func(s *FileSink) {
		s.opts = append(s.opts, opts...)
	}
}

// NewFileSink creates the run directory under base. Test runs write to
// TestDir, others to CollectedDir.
func NewFileSink(base string, testMode bool, format output.Format, opts ...Option) (*FileSink, error) {
	if _, err := output.ParseFormat(string(format)); err != nil {
		return nil, err
	}
	sub := CollectedDir
	if testMode {
		sub = TestDir
	}
	dir := filepath.Join(base, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	s := &FileSink{dir: dir, format: format, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	logger.Debug("output directory ready", "dir", dir, "format", format)
	return s, nil
}

// Dir returns the directory files are written to.
func (s *FileSink) Dir() string {
	return s.dir
}

// Path returns the file path used for name.
func (s *FileSink) Path(name string) string {
	return filepath.Join(s.dir, name+s.format.Ext())
}

// Save writes records to <dir>/<name><ext>. Empty input writes nothing and
// reports false.
func (s *FileSink) Save(records []product.Record, name string) (bool, error) {
	if len(records) == 0 {
		logger.Warn("no records to save", "name", name)
		return false, nil
	}

	path := s.Path(name)
	if err := s.write(path, recordItems(records)); err != nil {
		return false, err
	}
	logger.Info("results saved", "path", path, "records", len(records))
	return true, nil
}

// SaveConsolidated writes the cross-site report and returns its path. The
// xlsx format gets a workbook with every record, one sheet per site and the
// statistics; other formats get the statistics rows only.
func (s *FileSink) SaveConsolidated(results map[string][]product.Record) (string, error) {
	now := s.now()
	stats := Summarize(results, now)
	if len(stats) == 0 {
		return "", nil
	}

	path := s.Path(ConsolidatedPrefix + "_" + now.Format("20060102_150405"))
	var err error
	if s.format == output.FormatXLSX {
		err = s.writeWorkbook(path, results, stats)
	} else {
		err = s.write(path, statItems(stats))
	}
	if err != nil {
		return "", err
	}
	logger.Info("consolidated report saved", "path", path, "sites", len(stats))
	return path, nil
}

func (s *FileSink) writeWorkbook(path string, results map[string][]product.Record, stats []SiteStats) error {
	book := output.NewWorkbook()
	defer book.Close()

	var all []any
	for _, st := range stats {
		all = append(all, recordItems(results[st.Site])...)
	}
	if err := book.AddSheet(AllSitesSheet, all); err != nil {
		return err
	}
	for _, st := range stats {
		if err := book.AddSheet(st.Site, recordItems(results[st.Site])); err != nil {
			return err
		}
	}
	if err := book.AddSheet(StatsSheet, statItems(stats)); err != nil {
		return err
	}

	return create(path, func(w io.Writer) error {
		_, err := book.WriteTo(w)
		return err
	})
}

func (s *FileSink) write(path string, items []any) error {
	return create(path, func(f io.Writer) error {
		w, err := output.NewWriter(f, s.format, s.opts...)
		if err != nil {
			return err
		}
		if err := w.WriteAll(items); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("flush %s: %w", path, err)
		}
		return nil
	})
}

// create opens path, hands it to fill and closes it, keeping the first error.
func create(path string, fill func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return fill(f)
}

func recordItems(records []product.Record) []any {
	items := make([]any, len(records))
	for i, r := range records {
		items[i] = r
	}
	return items
}

func statItems(stats []SiteStats) []any {
	items := make([]any, len(stats))
	for i, st := range stats {
		items[i] = st
	}
	return items
}

// FolderInfo describes the files in the output directory.
type FolderInfo struct {
	Dir   string
	Files int
	Bytes uint64
}

// String renders e.g. "dados_coletados: 4 files, 12 kB".
func (i FolderInfo) String() string {
	return fmt.Sprintf("%s: %d files, %s", i.Dir, i.Files, humanize.Bytes(i.Bytes))
}

// Info counts the files written so far with the sink's extension.
func (s *FileSink) Info() (FolderInfo, error) {
	info := FolderInfo{Dir: s.dir}
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != s.format.Ext() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		info.Files++
		info.Bytes += uint64(fi.Size())
		return nil
	})
	if err != nil {
		return FolderInfo{}, fmt.Errorf("inspect output directory: %w", err)
	}
	return info, nil
}
