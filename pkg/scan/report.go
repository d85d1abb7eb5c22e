package scan

import (
	"time"

	"github.com/jmylchreest/vetprice/pkg/fetcher"
	"github.com/jmylchreest/vetprice/pkg/product"
)

// Report summarizes one scan run.
type Report struct {
	RunID        string             `json:"run_id" yaml:"run_id"`
	StartedAt    time.Time          `json:"started_at" yaml:"started_at"`
	FinishedAt   time.Time          `json:"finished_at" yaml:"finished_at"`
	TestMode     bool               `json:"test_mode" yaml:"test_mode"`
	Interrupted  bool               `json:"interrupted" yaml:"interrupted"`
	Sites        []SiteSummary      `json:"sites" yaml:"sites"`
	Consolidated string             `json:"consolidated,omitempty" yaml:"consolidated,omitempty"`
	Stats        fetcher.Statistics `json:"stats" yaml:"stats"`

	// Results holds every site's records keyed by site name, in the order
	// they were collected. It is left out of serialized reports.
	Results map[string][]product.Record `json:"-" yaml:"-"`
}

// SiteSummary is the per-site part of a Report.
type SiteSummary struct {
	Name       string `json:"name" yaml:"name"`
	Records    int    `json:"records" yaml:"records"`
	Terms      int    `json:"terms" yaml:"terms"`
	EmptyTerms int    `json:"empty_terms" yaml:"empty_terms"`
	File       string `json:"file,omitempty" yaml:"file,omitempty"`
}

// Records returns the total record count across sites.
func (r Report) Records() int {
	n := 0
	for _, s := range r.Sites {
		n += s.Records
	}
	return n
}

// Duration returns how long the run took.
func (r Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
