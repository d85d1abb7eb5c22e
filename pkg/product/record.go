// Package product defines the normalized record emitted for every
// purchasable product variant, plus the price and discount formatting
// shared by all site adapters.
package product

import (
	"time"
)

// Sentinel values used when a field could not be determined.
const (
	SingleSize     = "single size"
	PriceOnRequest = "inquire"
	NotFound       = "N/A"
)

// Tier names the extraction path that produced a record.
type Tier string

const (
	TierJSON Tier = "json"
	TierHTML Tier = "html"
)

// DateLayout is the layout of Record.CollectionDate.
const DateLayout = "2006-01-02"

// Record is one purchasable variant (size, SKU) of a product as listed by
// one site on one day.
type Record struct {
	Category        string `json:"category" yaml:"category"`
	Brand           string `json:"brand" yaml:"brand"`
	ProductName     string `json:"product_name" yaml:"product_name"`
	VariantLabel    string `json:"variant_label" yaml:"variant_label"`
	CurrentPrice    string `json:"current_price" yaml:"current_price"`
	PreviousPrice   string `json:"previous_price,omitempty" yaml:"previous_price,omitempty"`
	DiscountPercent string `json:"discount_percent,omitempty" yaml:"discount_percent,omitempty"`
	Availability    string `json:"availability,omitempty" yaml:"availability,omitempty"`
	SourceSite      string `json:"source_site" yaml:"source_site"`
	CollectionDate  string `json:"collection_date" yaml:"collection_date"`
	ProductID       string `json:"product_id,omitempty" yaml:"product_id,omitempty"`
	VariantID       string `json:"variant_id,omitempty" yaml:"variant_id,omitempty"`
	SourceURL       string `json:"source_url,omitempty" yaml:"source_url,omitempty"`

	ExtractionMethod Tier   `json:"extraction_method" yaml:"extraction_method"`
	FetchStrategy    string `json:"fetch_strategy" yaml:"fetch_strategy"`

	Manufacturer   string `json:"manufacturer" yaml:"manufacturer"`
	TargetSpecies  string `json:"target_species" yaml:"target_species"`
	SizeClass      string `json:"size_class" yaml:"size_class"`
	EfficacyWindow string `json:"efficacy_window" yaml:"efficacy_window"`
}

// Method returns the combined tier and fetch strategy label, e.g. "json_fast".
func (r Record) Method() string {
	if r.FetchStrategy == "" {
		return string(r.ExtractionMethod)
	}
	return string(r.ExtractionMethod) + "_" + r.FetchStrategy
}

// CollectionDateOf formats t as a collection date.
func CollectionDateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// Columns returns the tabular column names in output order.
func Columns() []string {
	return []string{
		"category", "brand", "product_name", "variant_label",
		"current_price", "previous_price", "discount_percent", "availability",
		"source_site", "collection_date", "product_id", "variant_id", "source_url",
		"method", "manufacturer", "target_species", "size_class", "efficacy_window",
	}
}

// Header implements output.Tabular.
func (r Record) Header() []string {
	return Columns()
}

// Row implements output.Tabular.
func (r Record) Row() []string {
	return []string{
		r.Category, r.Brand, r.ProductName, r.VariantLabel,
		r.CurrentPrice, r.PreviousPrice, r.DiscountPercent, r.Availability,
		r.SourceSite, r.CollectionDate, r.ProductID, r.VariantID, r.SourceURL,
		r.Method(), r.Manufacturer, r.TargetSpecies, r.SizeClass, r.EfficacyWindow,
	}
}
