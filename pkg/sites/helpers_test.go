package sites

import (
	"context"
	"sync"
	"time"

	"github.com/jmylchreest/vetprice/pkg/catalog"
	"github.com/jmylchreest/vetprice/pkg/fetcher"
)

var fetchedAt = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func testDeps(testMode bool) Deps {
	return Deps{Catalog: catalog.Default(), TestMode: testMode}
}

func fastPage(url, html string) Page {
	return Page{URL: url, Document: html, Strategy: fetcher.StrategyFast, CompletedAt: fetchedAt}
}

// fakeFetcher serves canned documents by URL. Unknown URLs fail.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (f *fakeFetcher) FetchPage(_ context.Context, url string) fetcher.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	doc, ok := f.pages[url]
	if !ok {
		return fetcher.Outcome{URL: url, Err: fetcher.ErrExhausted, CompletedAt: fetchedAt}
	}
	return fetcher.Outcome{
		URL:         url,
		Document:    doc,
		Strategy:    fetcher.StrategyBrowser,
		StatusCode:  200,
		Attempts:    1,
		CompletedAt: fetchedAt.Add(24 * time.Hour),
	}
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// countingPacer counts waits and returns err from each.
type countingPacer struct {
	waits int
	err   error
}

func (p *countingPacer) Wait(context.Context) error {
	p.waits++
	return p.err
}
