// Package sites turns search-result pages of each supported store into
// product.Record values.
//
// Every adapter tries the store's embedded structured payload first and falls
// back to the visible markup when the payload is missing or malformed. The
// set of adapters is closed and listed by Registry.
package sites

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/antzucaro/matchr"

	"github.com/jmylchreest/vetprice/pkg/catalog"
	"github.com/jmylchreest/vetprice/pkg/fetcher"
	"github.com/jmylchreest/vetprice/pkg/product"
)

// Adapter knows one store's search URL and page layout.
type Adapter interface {
	// Name is the short lowercase site name, e.g. "cobasi".
	Name() string

	// BaseURL is the store's home page.
	BaseURL() string

	// SearchURL returns the search-results URL for term.
	SearchURL(term string) string

	// Extract returns one record per sellable variant found on page. It
	// never fails: unreadable pages yield no records.
	Extract(ctx context.Context, page Page, term string) []product.Record
}

// Page is a fetched document handed to an adapter.
type Page struct {
	URL         string
	Document    string
	Strategy    fetcher.Strategy
	CompletedAt time.Time
}

// PageFrom converts a successful fetch outcome into a Page.
func PageFrom(o fetcher.Outcome) Page {
	return Page{
		URL:         o.URL,
		Document:    o.Document,
		Strategy:    o.Strategy,
		CompletedAt: o.CompletedAt,
	}
}

// Lookup resolves catalog metadata for a search term.
type Lookup interface {
	Lookup(term string) catalog.Metadata
}

// PageFetcher acquires secondary pages, such as product details.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) fetcher.Outcome
}

// Pacer spaces out consecutive requests.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Deps are the collaborators shared by every adapter.
type Deps struct {
	Catalog  Lookup
	Fetcher  PageFetcher
	Pacer    Pacer
	TestMode bool
}

func (d Deps) lookup(term string) catalog.Metadata {
	if d.Catalog == nil {
		return catalog.Unknown
	}
	return d.Catalog.Lookup(term)
}

// Registry returns every supported adapter in scan order.
func Registry(deps Deps) []Adapter {
	return []Adapter{
		NewCobasi(deps),
		NewPetlove(deps),
		NewPetz(deps),
	}
}

// Names returns the adapter names in order.
func Names(adapters []Adapter) []string {
	names := make([]string, len(adapters))
	for i, a := range adapters {
		names[i] = a.Name()
	}
	return names
}

// suggestThreshold is the minimum Jaro-Winkler similarity for a suggestion.
const suggestThreshold = 0.7

// Find returns the adapter whose name matches name, ignoring case. When
// nothing matches, the error suggests the closest known name.
func Find(adapters []Adapter, name string) (Adapter, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, a := range adapters {
		if strings.EqualFold(a.Name(), want) {
			return a, nil
		}
	}

	best, score := "", 0.0
	for _, a := range adapters {
		if s := matchr.JaroWinkler(want, a.Name(), false); s > score {
			best, score = a.Name(), s
		}
	}
	if score >= suggestThreshold {
		return nil, fmt.Errorf("unknown site %q (did you mean %q?)", name, best)
	}
	return nil, fmt.Errorf("unknown site %q (available: %s)", name, strings.Join(Names(adapters), ", "))
}
