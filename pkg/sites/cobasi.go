package sites

import (
	"context"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/vetprice/internal/logger"
	"github.com/jmylchreest/vetprice/pkg/product"
)

const cobasiBase = "https://www.cobasi.com.br"

// Cobasi reads the Next.js hydration payload of cobasi.com.br search pages.
type Cobasi struct {
	deps Deps
}

// NewCobasi creates the Cobasi adapter.
func NewCobasi(deps Deps) *Cobasi {
	return &Cobasi{deps: deps}
}

func (c *Cobasi) Name() string    { return "cobasi" }
func (c *Cobasi) BaseURL() string { return cobasiBase }

func (c *Cobasi) SearchURL(term string) string {
	return cobasiBase + "/pesquisa?terms=" + url.QueryEscape(term)
}

type cobasiPayload struct {
	Props struct {
		PageProps struct {
			SearchResult struct {
				Products []cobasiProduct `json:"products"`
			} `json:"searchResult"`
		} `json:"pageProps"`
	} `json:"props"`
}

type cobasiProduct struct {
	ID    any         `json:"id"`
	Name  string      `json:"name"`
	Price any         `json:"price"`
	SKUs  []cobasiSKU `json:"skus"`
}

type cobasiSKU struct {
	SKU             any    `json:"sku"`
	Name            string `json:"name"`
	Price           any    `json:"price"`
	OldPrice        any    `json:"oldPrice"`
	DiscountPercent any    `json:"discountPercent"`
	Available       any    `json:"available"`
}

// Extract implements Adapter.
func (c *Cobasi) Extract(_ context.Context, page Page, term string) []product.Record {
	log := logger.ForSite(c.Name())
	doc, err := parseDoc(page.Document)
	if err != nil {
		log.Warn("unparseable document", "term", term, "error", err)
		return nil
	}

	if script := doc.Find("script#__NEXT_DATA__").First(); script.Length() > 0 {
		if records, err := c.fromPayload(script.Text(), page, term); err != nil {
			log.Warn("malformed payload, using markup", "term", term, "error", err)
		} else if len(records) > 0 {
			log.Debug("extracted from payload", "term", term, "records", len(records))
			return records
		}
	}

	return c.fromMarkup(doc, page, term)
}

func (c *Cobasi) fromPayload(data string, page Page, term string) ([]product.Record, error) {
	var payload cobasiPayload
	if err := decodeJSON(data, &payload); err != nil {
		return nil, err
	}

	meta := c.deps.lookup(term)
	items := firstN(payload.Props.PageProps.SearchResult.Products, c.deps.TestMode)

	var records []product.Record
	for _, p := range items {
		base := baseRecord(c.Name(), meta, term, page, product.TierJSON)
		base.ProductName = orDefault(p.Name, product.NotFound)
		base.ProductID = idString(p.ID)

		if len(p.SKUs) == 0 {
			r := base
			r.VariantLabel = product.SingleSize
			r.CurrentPrice = product.FormatPrice(p.Price)
			records = append(records, r)
			continue
		}

		for _, sku := range p.SKUs {
			label, keep := sellable(sku.Available)
			if !keep {
				continue
			}
			r := base
			r.VariantLabel = orDefault(sku.Name, product.NotFound)
			r.CurrentPrice = product.FormatPrice(sku.Price)
			r.PreviousPrice = previousPrice(sku.OldPrice, sku.Price)
			r.DiscountPercent = product.FormatDiscount(sku.DiscountPercent)
			r.Availability = label
			r.VariantID = idString(sku.SKU)
			records = append(records, r)
		}
	}
	return records, nil
}

func (c *Cobasi) fromMarkup(doc *goquery.Document, page Page, term string) []product.Record {
	meta := c.deps.lookup(term)
	cards := doc.Find(`a[data-testid="product-item-v4"]`)
	if c.deps.TestMode {
		cards = cards.First()
	}

	var records []product.Record
	cards.Each(func(_ int, card *goquery.Selection) {
		r := baseRecord(c.Name(), meta, term, page, product.TierHTML)
		r.ProductName = textOf(card, "h3.body-text-sm", product.NotFound)
		r.VariantLabel = product.SingleSize
		r.CurrentPrice = product.FormatPrice(textOf(card, "span.card-price", ""))
		if href, ok := card.Attr("href"); ok {
			r.SourceURL = absURL(cobasiBase, href)
		}
		records = append(records, r)
	})
	return records
}
