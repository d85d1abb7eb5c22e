package sites

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/vetprice/pkg/catalog"
	"github.com/jmylchreest/vetprice/pkg/product"
)

// baseRecord fills the fields shared by every record of one page.
func baseRecord(site string, meta catalog.Metadata, term string, page Page, tier product.Tier) product.Record {
	return product.Record{
		Category:         meta.Category,
		Brand:            term,
		SourceSite:       site,
		CollectionDate:   product.CollectionDateOf(page.CompletedAt),
		SourceURL:        page.URL,
		ExtractionMethod: tier,
		FetchStrategy:    page.Strategy.String(),
		Manufacturer:     meta.Manufacturer,
		TargetSpecies:    meta.TargetSpecies,
		SizeClass:        meta.SizeClass,
		EfficacyWindow:   meta.EfficacyWindow,
	}
}

// firstN caps items to the first one in test mode.
func firstN[T any](items []T, testMode bool) []T {
	if testMode && len(items) > 1 {
		return items[:1]
	}
	return items
}

func parseDoc(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// decodeJSON decodes with numbers preserved as json.Number.
func decodeJSON(data string, v any) error {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// textOf returns the collapsed text of the first match of selector inside s,
// or fallback when there is no match or the text is empty.
func textOf(s *goquery.Selection, selector, fallback string) string {
	found := s.Find(selector).First()
	if found.Length() == 0 {
		return fallback
	}
	if t := cleanText(found.Text()); t != "" {
		return t
	}
	return fallback
}

// firstText tries each selector in turn.
func firstText(s *goquery.Selection, fallback string, selectors ...string) string {
	for _, sel := range selectors {
		if t := textOf(s, sel, ""); t != "" {
			return t
		}
	}
	return fallback
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// absURL resolves href against base. Empty hrefs yield "".
func absURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return ref.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

// idString renders a JSON id that may arrive as a string or a number.
func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(id)
	default:
		return ""
	}
}

// availability normalizes an availability flag. ok is false when the flag
// is absent.
func availability(v any) (label string, available, ok bool) {
	switch a := v.(type) {
	case nil:
		return "", false, false
	case bool:
		if a {
			return "available", true, true
		}
		return "unavailable", false, true
	case string:
		s := strings.TrimSpace(a)
		if s == "" {
			return "", false, false
		}
		switch strings.ToUpper(s) {
		case "AVAILABLE", "IN_STOCK", "INSTOCK", "TRUE",
			"HTTP://SCHEMA.ORG/INSTOCK", "HTTPS://SCHEMA.ORG/INSTOCK":
			return "available", true, true
		}
		return strings.ToLower(s), false, true
	default:
		return "", false, false
	}
}

// sellable reports whether a listed variant should be emitted. Only
// variants flagged available are; a missing flag counts as unavailable.
func sellable(v any) (label string, keep bool) {
	label, available, _ := availability(v)
	return label, available
}

// positive reports whether a JSON price value is a positive number.
func positive(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		var err error
		if f, err = n.Float64(); err != nil {
			return 0, false
		}
	case float64:
		f = n
	case string:
		return product.ParsePrice(n)
	default:
		return 0, false
	}
	return f, f > 0
}

// previousPrice returns the formatted list price when it is positive and
// differs from the current one.
func previousPrice(old, current any) string {
	o, ok := positive(old)
	if !ok {
		return ""
	}
	if c, ok := positive(current); ok && o == c {
		return ""
	}
	return product.FormatPrice(old)
}

func orDefault(s, fallback string) string {
	if t := cleanText(s); t != "" {
		return t
	}
	return fallback
}
