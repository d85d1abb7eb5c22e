package scan

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/jmylchreest/vetprice/pkg/fetcher"
	"github.com/jmylchreest/vetprice/pkg/product"
	"github.com/jmylchreest/vetprice/pkg/sites"
)

var clock = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type fakeFetcher struct {
	fail     map[string]bool
	calls    []string
	prepared []string
}

func (f *fakeFetcher) FetchPage(_ context.Context, url string) fetcher.Outcome {
	f.calls = append(f.calls, url)
	if f.fail[url] {
		return fetcher.Outcome{URL: url, Err: fetcher.ErrExhausted, CompletedAt: clock}
	}
	return fetcher.Outcome{URL: url, Document: "<html></html>", Strategy: fetcher.StrategyFast, StatusCode: 200, CompletedAt: clock}
}

func (f *fakeFetcher) PrepareSite(_ context.Context, baseURL string) {
	f.prepared = append(f.prepared, baseURL)
}

func (f *fakeFetcher) Statistics() fetcher.Statistics {
	return fetcher.Statistics{FastSuccesses: len(f.calls), Total: len(f.calls)}
}

type fakeAdapter struct {
	name    string
	perTerm int
	panicOn string
}

func (a *fakeAdapter) Name() string    { return a.name }
func (a *fakeAdapter) BaseURL() string { return "https://" + a.name + ".test" }

func (a *fakeAdapter) SearchURL(term string) string {
	return a.BaseURL() + "/search?q=" + term
}

func (a *fakeAdapter) Extract(_ context.Context, page sites.Page, term string) []product.Record {
	if term == a.panicOn {
		panic("boom")
	}
	var out []product.Record
	for range a.perTerm {
		out = append(out, product.Record{
			Brand:          term,
			SourceSite:     a.name,
			CollectionDate: product.CollectionDateOf(page.CompletedAt),
			CurrentPrice:   "R$ 10.00",
		})
	}
	return out
}

type terms []string

func (t terms) Terms() []string { return append([]string(nil), t...) }

type fakeSink struct {
	saved        map[string][]product.Record
	consolidated map[string][]product.Record
	saveErr      error
}

func (s *fakeSink) Save(records []product.Record, name string) (bool, error) {
	if s.saveErr != nil {
		return false, s.saveErr
	}
	if len(records) == 0 {
		return false, nil
	}
	if s.saved == nil {
		s.saved = map[string][]product.Record{}
	}
	s.saved[name] = records
	return true, nil
}

func (s *fakeSink) SaveConsolidated(results map[string][]product.Record) (string, error) {
	s.consolidated = results
	return "relatorio_consolidado", nil
}

type hookPacer struct {
	waits  int
	onWait func(n int) error
}

func (p *hookPacer) Wait(ctx context.Context) error {
	p.waits++
	if p.onWait != nil {
		if err := p.onWait(p.waits); err != nil {
			return err
		}
	}
	return ctx.Err()
}

type sleepLog struct{ sleeps []time.Duration }

func (s *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	s.sleeps = append(s.sleeps, d)
	return ctx.Err()
}

func newTestOrchestrator(f *fakeFetcher, sink *fakeSink, pacer sites.Pacer, s *sleepLog, adapters ...sites.Adapter) *Orchestrator {
	return New(f, adapters, terms{"Simparic", "Bravecto", "Apoquel"}, sink, pacer,
		WithClock(func() time.Time { return clock }),
		WithSiteDelay(2*time.Second),
		WithSleep(s.sleep))
}

func TestScanAll_SitesAndTermsInOrder(t *testing.T) {
	f := &fakeFetcher{}
	sink := &fakeSink{}
	pacer := &hookPacer{}
	sl := &sleepLog{}
	o := newTestOrchestrator(f, sink, pacer, sl,
		&fakeAdapter{name: "alpha", perTerm: 2}, &fakeAdapter{name: "beta", perTerm: 1})

	report, err := o.ScanAll(context.Background())
	if err != nil {
		t.Fatalf("ScanAll() error = %v", err)
	}

	wantCalls := []string{
		"https://alpha.test/search?q=Simparic", "https://alpha.test/search?q=Bravecto", "https://alpha.test/search?q=Apoquel",
		"https://beta.test/search?q=Simparic", "https://beta.test/search?q=Bravecto", "https://beta.test/search?q=Apoquel",
	}
	if diff := cmp.Diff(wantCalls, f.calls); diff != "" {
		t.Errorf("fetch order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"https://alpha.test", "https://beta.test"}, f.prepared); diff != "" {
		t.Errorf("PrepareSite calls mismatch (-want +got):\n%s", diff)
	}

	wantSites := []SiteSummary{
		{Name: "alpha", Records: 6, Terms: 3, File: "alpha_20260314_093000"},
		{Name: "beta", Records: 3, Terms: 3, File: "beta_20260314_093000"},
	}
	if diff := cmp.Diff(wantSites, report.Sites); diff != "" {
		t.Errorf("site summaries mismatch (-want +got):\n%s", diff)
	}
	if report.Records() != 9 || report.Interrupted {
		t.Errorf("unexpected report totals: records=%d interrupted=%v", report.Records(), report.Interrupted)
	}
	if report.Consolidated != "relatorio_consolidado" || len(sink.consolidated) != 2 {
		t.Errorf("consolidated report not written: %q %d", report.Consolidated, len(sink.consolidated))
	}
	if report.Stats.Total != 6 {
		t.Errorf("Stats.Total = %d, want 6", report.Stats.Total)
	}
	if _, err := uuid.Parse(report.RunID); err != nil {
		t.Errorf("RunID %q is not a uuid: %v", report.RunID, err)
	}

	// Two pauses between three terms per site; one site delay between two sites.
	if pacer.waits != 4 {
		t.Errorf("pacer waits = %d, want 4", pacer.waits)
	}
	if diff := cmp.Diff([]time.Duration{2 * time.Second}, sl.sleeps); diff != "" {
		t.Errorf("site delays mismatch (-want +got):\n%s", diff)
	}
	if got := sink.saved["alpha_20260314_093000"][0].Brand; got != "Simparic" {
		t.Errorf("first saved record term = %q, want Simparic", got)
	}
	if len(report.Results["alpha"]) != 6 || len(report.Results["beta"]) != 3 {
		t.Errorf("Results sizes = %d/%d, want 6/3", len(report.Results["alpha"]), len(report.Results["beta"]))
	}
	if diff := cmp.Diff(sink.saved["beta_20260314_093000"], report.Results["beta"]); diff != "" {
		t.Errorf("Results differ from saved records (-saved +results):\n%s", diff)
	}
}

func TestScanAll_FailedFetchIsolated(t *testing.T) {
	f := &fakeFetcher{fail: map[string]bool{"https://alpha.test/search?q=Bravecto": true}}
	sink := &fakeSink{}
	o := newTestOrchestrator(f, sink, nil, &sleepLog{}, &fakeAdapter{name: "alpha", perTerm: 1})

	report, err := o.ScanAll(context.Background())
	if err != nil {
		t.Fatalf("ScanAll() error = %v", err)
	}
	want := SiteSummary{Name: "alpha", Records: 2, Terms: 3, EmptyTerms: 1, File: "alpha_20260314_093000"}
	if diff := cmp.Diff(want, report.Sites[0]); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
	if len(f.calls) != 3 {
		t.Errorf("expected the scan to continue after a failure, got %d calls", len(f.calls))
	}
}

func TestScanAll_ExtractPanicIsolated(t *testing.T) {
	f := &fakeFetcher{}
	o := newTestOrchestrator(f, &fakeSink{}, nil, &sleepLog{}, &fakeAdapter{name: "alpha", perTerm: 1, panicOn: "Simparic"})

	report, err := o.ScanAll(context.Background())
	if err != nil {
		t.Fatalf("ScanAll() error = %v", err)
	}
	if report.Sites[0].Records != 2 || report.Sites[0].EmptyTerms != 1 {
		t.Errorf("unexpected summary after panic: %+v", report.Sites[0])
	}
}

func TestScanAll_CancelStopsAndStillSaves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &fakeFetcher{}
	sink := &fakeSink{}
	pacer := &hookPacer{onWait: func(int) error {
		cancel()
		return nil
	}}
	o := newTestOrchestrator(f, sink, pacer, &sleepLog{},
		&fakeAdapter{name: "alpha", perTerm: 1}, &fakeAdapter{name: "beta", perTerm: 1})

	report, err := o.ScanAll(ctx)
	if err != nil {
		t.Fatalf("ScanAll() error = %v", err)
	}
	if !report.Interrupted {
		t.Error("expected Interrupted")
	}
	if len(f.calls) != 1 {
		t.Errorf("expected 1 fetch before cancel, got %d", len(f.calls))
	}
	if len(report.Sites) != 1 || report.Sites[0].Records != 1 {
		t.Fatalf("unexpected sites: %+v", report.Sites)
	}
	if _, ok := sink.saved["alpha_20260314_093000"]; !ok {
		t.Error("partial results should still be saved")
	}
}

func TestScanAll_EmptySiteNotSaved(t *testing.T) {
	sink := &fakeSink{}
	o := newTestOrchestrator(&fakeFetcher{}, sink, nil, &sleepLog{}, &fakeAdapter{name: "alpha"})

	report, err := o.ScanAll(context.Background())
	if err != nil {
		t.Fatalf("ScanAll() error = %v", err)
	}
	if report.Sites[0].File != "" || len(sink.saved) != 0 {
		t.Errorf("empty site should not be saved: %+v", report.Sites[0])
	}
	if report.Consolidated != "" || sink.consolidated != nil {
		t.Error("no consolidated report expected without records")
	}
	if report.Sites[0].EmptyTerms != 3 {
		t.Errorf("EmptyTerms = %d, want 3", report.Sites[0].EmptyTerms)
	}
}

func TestScanAll_SaveErrorReturned(t *testing.T) {
	sink := &fakeSink{saveErr: errors.New("disk full")}
	o := newTestOrchestrator(&fakeFetcher{}, sink, nil, &sleepLog{}, &fakeAdapter{name: "alpha", perTerm: 1})

	report, err := o.ScanAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected save error, got %v", err)
	}
	if report.Sites[0].Records != 3 {
		t.Errorf("report should still carry counts, got %+v", report.Sites[0])
	}
}

func TestScanOne(t *testing.T) {
	f := &fakeFetcher{}
	o := newTestOrchestrator(f, &fakeSink{}, nil, &sleepLog{},
		&fakeAdapter{name: "alpha", perTerm: 1}, &fakeAdapter{name: "beta", perTerm: 1})

	report, err := o.ScanOne(context.Background(), "BETA")
	if err != nil {
		t.Fatalf("ScanOne() error = %v", err)
	}
	if len(report.Sites) != 1 || report.Sites[0].Name != "beta" {
		t.Errorf("unexpected sites: %+v", report.Sites)
	}
	for _, c := range f.calls {
		if !strings.HasPrefix(c, "https://beta.test") {
			t.Errorf("unexpected fetch %q", c)
		}
	}
}

func TestScanOne_Unknown(t *testing.T) {
	o := newTestOrchestrator(&fakeFetcher{}, &fakeSink{}, nil, &sleepLog{}, &fakeAdapter{name: "alpha"})
	if _, err := o.ScanOne(context.Background(), "gamma"); err == nil {
		t.Error("expected error for unknown site")
	}
}

func TestScanAll_TestModeFlag(t *testing.T) {
	o := New(&fakeFetcher{}, nil, terms{}, &fakeSink{}, nil, WithTestMode(true))
	report, err := o.ScanAll(context.Background())
	if err != nil {
		t.Fatalf("ScanAll() error = %v", err)
	}
	if !report.TestMode {
		t.Error("expected TestMode in report")
	}
}

func TestRandomPacer_Bounds(t *testing.T) {
	p := RandomPacer{Min: 500 * time.Millisecond, Max: 1500 * time.Millisecond}
	for range 200 {
		d := p.Delay()
		if d < p.Min || d > p.Max {
			t.Fatalf("Delay() = %v outside [%v, %v]", d, p.Min, p.Max)
		}
	}

	fixed := RandomPacer{Min: time.Second, Max: time.Second}
	if fixed.Delay() != time.Second {
		t.Errorf("Delay() = %v, want 1s", fixed.Delay())
	}
}

func TestRandomPacer_WaitUsesSleep(t *testing.T) {
	sl := &sleepLog{}
	p := RandomPacer{Min: time.Second, Max: time.Second, Sleep: sl.sleep}
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if diff := cmp.Diff([]time.Duration{time.Second}, sl.sleeps); diff != "" {
		t.Errorf("sleeps mismatch (-want +got):\n%s", diff)
	}
}

func TestRandomPacer_CanceledReturnsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := RandomPacer{Min: time.Hour, Max: time.Hour}.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Wait() did not return early")
	}
}
