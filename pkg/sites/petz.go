package sites

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/vetprice/internal/logger"
	"github.com/jmylchreest/vetprice/pkg/product"
)

const petzBase = "https://www.petz.com.br"

// Petz reads the product-details attribute that petz.com.br renders on its
// product-card custom elements.
type Petz struct {
	deps Deps
}

// NewPetz creates the Petz adapter.
func NewPetz(deps Deps) *Petz {
	return &Petz{deps: deps}
}

func (p *Petz) Name() string    { return "petz" }
func (p *Petz) BaseURL() string { return petzBase }

func (p *Petz) SearchURL(term string) string {
	return petzBase + "/busca?q=" + url.QueryEscape(term)
}

type petzProduct struct {
	ID                   any             `json:"id"`
	Name                 string          `json:"name"`
	URL                  string          `json:"url"`
	SKU                  any             `json:"sku"`
	Price                any             `json:"price"`
	PromotionalPrice     any             `json:"promotional_price"`
	DiscountPercentage   any             `json:"discountPercentage"`
	Availability         any             `json:"availability"`
	VariationAbreviation string          `json:"variationAbreviation"`
	Variations           []petzVariation `json:"variations"`
}

type petzVariation struct {
	ID                 any    `json:"id"`
	SKU                any    `json:"sku"`
	Name               string `json:"name"`
	Price              any    `json:"price"`
	PromotionalPrice   any    `json:"promotionalPrice"`
	DiscountPercentage any    `json:"discountPercentage"`
	Availability       any    `json:"availability"`
}

// Extract implements Adapter.
func (p *Petz) Extract(_ context.Context, page Page, term string) []product.Record {
	log := logger.ForSite(p.Name())
	doc, err := parseDoc(page.Document)
	if err != nil {
		log.Warn("unparseable document", "term", term, "error", err)
		return nil
	}

	cards := doc.Find("product-card")
	if cards.Length() == 0 {
		cards = doc.Find("li.card-product")
	}
	if p.deps.TestMode {
		cards = cards.First()
	}

	if records := p.fromPayload(cards, page, term); len(records) > 0 {
		log.Debug("extracted from payload", "term", term, "records", len(records))
		return records
	}
	return p.fromMarkup(cards, page, term)
}

// decodePetz decodes a product-details attribute. Some pages render it with
// single quotes, which are normalized before a second attempt.
func decodePetz(raw string) (petzProduct, error) {
	var prod petzProduct
	raw = strings.TrimSpace(raw)
	err := decodeJSON(raw, &prod)
	if err == nil {
		return prod, nil
	}
	prod = petzProduct{}
	if err2 := decodeJSON(strings.ReplaceAll(raw, "'", `"`), &prod); err2 != nil {
		return petzProduct{}, err
	}
	return prod, nil
}

func (p *Petz) fromPayload(cards *goquery.Selection, page Page, term string) []product.Record {
	log := logger.ForSite(p.Name())
	meta := p.deps.lookup(term)

	var records []product.Record
	cards.Each(func(_ int, card *goquery.Selection) {
		raw, ok := card.Attr("product-details")
		if !ok || strings.TrimSpace(raw) == "" {
			return
		}
		prod, err := decodePetz(raw)
		if err != nil {
			log.Warn("malformed product-details", "term", term, "error", err)
			return
		}

		base := baseRecord(p.Name(), meta, term, page, product.TierJSON)
		base.ProductName = orDefault(prod.Name, product.NotFound)
		base.ProductID = idString(prod.ID)
		if prod.URL != "" {
			base.SourceURL = absURL(petzBase, prod.URL)
		}

		if len(prod.Variations) == 0 {
			r := base
			r.VariantLabel = orDefault(prod.VariationAbreviation, product.SingleSize)
			r.CurrentPrice, r.PreviousPrice = petzPrices(prod.Price, prod.PromotionalPrice)
			r.DiscountPercent = product.FormatDiscount(prod.DiscountPercentage)
			r.Availability, _, _ = availability(prod.Availability)
			r.VariantID = idString(prod.SKU)
			records = append(records, r)
			return
		}

		for _, v := range prod.Variations {
			label, keep := sellable(v.Availability)
			if !keep {
				continue
			}
			r := base
			r.VariantLabel = orDefault(v.Name, product.SingleSize)
			r.CurrentPrice, r.PreviousPrice = petzPrices(v.Price, v.PromotionalPrice)
			r.DiscountPercent = product.FormatDiscount(v.DiscountPercentage)
			r.Availability = label
			r.VariantID = idString(v.SKU)
			if r.VariantID == "" {
				r.VariantID = idString(v.ID)
			}
			records = append(records, r)
		}
	})
	return records
}

// petzPrices returns the current and previous price. The promotional price
// wins when positive; the list price is then reported as previous if it
// differs.
func petzPrices(price, promotional any) (current, previous string) {
	if _, ok := positive(promotional); ok {
		return product.FormatPrice(promotional), previousPrice(price, promotional)
	}
	return product.FormatPrice(price), ""
}

func (p *Petz) fromMarkup(cards *goquery.Selection, page Page, term string) []product.Record {
	meta := p.deps.lookup(term)

	var records []product.Record
	cards.Each(func(_ int, card *goquery.Selection) {
		r := baseRecord(p.Name(), meta, term, page, product.TierHTML)
		r.ProductName = firstText(card, product.NotFound,
			".nome-produto", "[itemprop=name]", "h3", "p.name")
		r.VariantLabel = product.SingleSize
		r.CurrentPrice = product.FormatPrice(firstText(card, "",
			".price-current", ".preco-promocional", "[itemprop=price]", ".price"))
		if href, ok := card.Find("a[href]").First().Attr("href"); ok {
			r.SourceURL = absURL(petzBase, href)
		}
		records = append(records, r)
	})
	return records
}
