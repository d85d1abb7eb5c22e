// Package scan drives a catalog scan: every search term against every site,
// one fetch at a time, with results handed to a Sink at the end.
package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jmylchreest/vetprice/internal/logger"
	"github.com/jmylchreest/vetprice/pkg/fetcher"
	"github.com/jmylchreest/vetprice/pkg/product"
	"github.com/jmylchreest/vetprice/pkg/sites"
)

// FileTimeLayout is the timestamp suffix of saved result names.
const FileTimeLayout = "20060102_150405"

// Fetcher is the acquisition side of a scan, normally a *fetcher.Coordinator.
type Fetcher interface {
	sites.PageFetcher
	PrepareSite(ctx context.Context, baseURL string)
	Statistics() fetcher.Statistics
}

// Catalog supplies the ordered search terms.
type Catalog interface {
	Terms() []string
}

// Sink persists scan results.
type Sink interface {
	// Save stores one site's records under name. It reports false without
	// error when records is empty.
	Save(records []product.Record, name string) (bool, error)

	// SaveConsolidated writes a cross-site summary and returns its location.
	SaveConsolidated(results map[string][]product.Record) (string, error)
}

// Orchestrator runs scans. It is not safe for concurrent use.
type Orchestrator struct {
	fetch     Fetcher
	adapters  []sites.Adapter
	catalog   Catalog
	sink      Sink
	pacer     sites.Pacer
	siteDelay time.Duration
	testMode  bool
	now       func() time.Time
	sleep     fetcher.SleepFunc
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSiteDelay sets the pause between sites.
func WithSiteDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.siteDelay = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithSleep replaces the sleep used for the site delay.
func WithSleep(fn fetcher.SleepFunc) Option {
	return func(o *Orchestrator) {
		o.sleep = fn
	}
}

// WithTestMode marks reports as test runs.
func WithTestMode(on bool) Option {
	return func(o *Orchestrator) {
		o.testMode = on
	}
}

// New creates an Orchestrator. A nil pacer does not wait between terms.
func New(fetch Fetcher, adapters []sites.Adapter, catalog Catalog, sink Sink, pacer sites.Pacer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetch:     fetch,
		adapters:  adapters,
		catalog:   catalog,
		sink:      sink,
		pacer:     pacer,
		siteDelay: 2 * time.Second,
		now:       time.Now,
		sleep:     fetcher.Sleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ScanAll scans every adapter in order.
func (o *Orchestrator) ScanAll(ctx context.Context) (Report, error) {
	return o.run(ctx, o.adapters)
}

// ScanOne scans the adapter called name.
func (o *Orchestrator) ScanOne(ctx context.Context, name string) (Report, error) {
	a, err := sites.Find(o.adapters, name)
	if err != nil {
		return Report{}, err
	}
	return o.run(ctx, []sites.Adapter{a})
}

func (o *Orchestrator) run(ctx context.Context, adapters []sites.Adapter) (Report, error) {
	report := Report{
		RunID:     uuid.NewString(),
		StartedAt: o.now(),
		TestMode:  o.testMode,
	}
	logger.Info("scan starting",
		"run_id", report.RunID,
		"sites", len(adapters),
		"terms", len(o.catalog.Terms()),
		"test_mode", o.testMode)

	results := make(map[string][]product.Record, len(adapters))
	for i, a := range adapters {
		if i > 0 {
			if err := o.sleep(ctx, o.siteDelay); err != nil {
				report.Interrupted = true
				break
			}
		}
		summary, records := o.scanSite(ctx, a)
		report.Sites = append(report.Sites, summary)
		results[a.Name()] = records
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}
	}

	report.Results = results
	err := o.finalize(&report, results)
	report.Stats = o.fetch.Statistics()
	report.FinishedAt = o.now()

	logger.Info("scan finished",
		"run_id", report.RunID,
		"records", report.Records(),
		"interrupted", report.Interrupted,
		"stats", report.Stats.String())
	return report, err
}

func (o *Orchestrator) scanSite(ctx context.Context, a sites.Adapter) (SiteSummary, []product.Record) {
	log := logger.ForSite(a.Name())
	summary := SiteSummary{Name: a.Name()}

	log.Info("site starting", "url", a.BaseURL())
	o.fetch.PrepareSite(ctx, a.BaseURL())

	var records []product.Record
	terms := o.catalog.Terms()
	for i, term := range terms {
		if ctx.Err() != nil {
			break
		}
		found := o.scanTerm(ctx, a, term)
		summary.Terms++
		if len(found) == 0 {
			summary.EmptyTerms++
		}
		records = append(records, found...)

		if i < len(terms)-1 && o.pacer != nil {
			if err := o.pacer.Wait(ctx); err != nil {
				break
			}
		}
	}

	summary.Records = len(records)
	log.Info("site finished", "records", summary.Records, "terms", summary.Terms, "empty_terms", summary.EmptyTerms)
	return summary, records
}

// scanTerm fetches and extracts one term. Failures and extractor panics
// yield no records.
func (o *Orchestrator) scanTerm(ctx context.Context, a sites.Adapter, term string) (records []product.Record) {
	log := logger.ForSite(a.Name())
	defer func() {
		if r := recover(); r != nil {
			log.Error("extraction panicked", "term", term, "panic", r)
			records = nil
		}
	}()

	url := a.SearchURL(term)
	outcome := o.fetch.FetchPage(ctx, url)
	if !outcome.OK() {
		log.Warn("fetch failed", "term", term, "url", url, "error", outcome.Err)
		return nil
	}

	records = a.Extract(ctx, sites.PageFrom(outcome), term)
	log.Info("term scanned",
		"term", term,
		"records", len(records),
		"strategy", outcome.Strategy.String())
	return records
}

func (o *Orchestrator) finalize(report *Report, results map[string][]product.Record) error {
	stamp := o.now().Format(FileTimeLayout)

	var errs []error
	for i := range report.Sites {
		s := &report.Sites[i]
		name := s.Name + "_" + stamp
		saved, err := o.sink.Save(results[s.Name], name)
		if err != nil {
			logger.Error("save failed", "site", s.Name, "error", err)
			errs = append(errs, fmt.Errorf("save %s: %w", s.Name, err))
			continue
		}
		if saved {
			s.File = name
		}
	}

	if report.Records() > 0 {
		path, err := o.sink.SaveConsolidated(results)
		if err != nil {
			logger.Error("consolidated report failed", "error", err)
			errs = append(errs, fmt.Errorf("save consolidated report: %w", err))
		} else {
			report.Consolidated = path
		}
	}
	return errors.Join(errs...)
}
