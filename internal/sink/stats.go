package sink

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/jmylchreest/vetprice/pkg/product"
)

// SiteStats summarizes one site's records for the consolidated report.
type SiteStats struct {
	Site          string `json:"site" yaml:"site"`
	TotalProducts int    `json:"total_products" yaml:"total_products"`
	Categories    int    `json:"categories" yaml:"categories"`
	TopCategory   string `json:"top_category" yaml:"top_category"`
	PricedRecords int    `json:"priced_records" yaml:"priced_records"`
	AveragePrice  string `json:"average_price" yaml:"average_price"`
	MinPrice      string `json:"min_price" yaml:"min_price"`
	MaxPrice      string `json:"max_price" yaml:"max_price"`
	CollectedAt   string `json:"collected_at" yaml:"collected_at"`
}

// Header implements output.Tabular.
func (s SiteStats) Header() []string {
	return []string{
		"site", "total_products", "categories", "top_category", "priced_records",
		"average_price", "min_price", "max_price", "collected_at",
	}
}

// Row implements output.Tabular.
func (s SiteStats) Row() []string {
	return []string{
		s.Site, strconv.Itoa(s.TotalProducts), strconv.Itoa(s.Categories), s.TopCategory,
		strconv.Itoa(s.PricedRecords), s.AveragePrice, s.MinPrice, s.MaxPrice, s.CollectedAt,
	}
}

// Summarize computes per-site statistics, sorted by site name. Sites with no
// records are omitted. Prices that do not parse, such as the price-on-request
// sentinel, are left out of the price figures.
func Summarize(results map[string][]product.Record, at time.Time) []SiteStats {
	names := make([]string, 0, len(results))
	for name, records := range results {
		if len(records) > 0 {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	stats := make([]SiteStats, 0, len(names))
	for _, name := range names {
		records := results[name]
		categories := map[string]int{}
		var prices []float64
		for _, r := range records {
			cat := r.Category
			if cat == "" {
				cat = product.NotFound
			}
			categories[cat]++
			if p, ok := product.ParsePrice(r.CurrentPrice); ok {
				prices = append(prices, p)
			}
		}

		st := SiteStats{
			Site:          name,
			TotalProducts: len(records),
			Categories:    len(categories),
			TopCategory:   topCategory(categories),
			PricedRecords: len(prices),
			CollectedAt:   at.Format("2006-01-02 15:04:05"),
		}
		var sum float64
		for _, p := range prices {
			sum += p
		}
		var avg, lo, hi float64
		if len(prices) > 0 {
			avg = sum / float64(len(prices))
			lo, hi = slices.Min(prices), slices.Max(prices)
		}
		st.AveragePrice = money(avg)
		st.MinPrice = money(lo)
		st.MaxPrice = money(hi)
		stats = append(stats, st)
	}
	return stats
}

// topCategory picks the most frequent category, breaking ties by name.
func topCategory(counts map[string]int) string {
	best, n := product.NotFound, 0
	for cat, c := range counts {
		if c > n || (c == n && cat < best) {
			best, n = cat, c
		}
	}
	return best
}

func money(f float64) string {
	return fmt.Sprintf("R$ %.2f", f)
}
