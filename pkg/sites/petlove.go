package sites

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/vetprice/internal/logger"
	"github.com/jmylchreest/vetprice/pkg/product"
)

const (
	petloveBase = "https://www.petlove.com.br"

	// moreOptions is the card button label shown when a product has sizes
	// that are only listed on its detail page.
	moreOptions = "+opções"

	// consultar is the site's own price-on-request label.
	consultar = "Consultar"
)

// Petlove scrapes petlove.com.br result cards and, for cards that hide their
// sizes, the product detail page.
type Petlove struct {
	deps Deps
}

// NewPetlove creates the Petlove adapter.
func NewPetlove(deps Deps) *Petlove {
	return &Petlove{deps: deps}
}

func (p *Petlove) Name() string    { return "petlove" }
func (p *Petlove) BaseURL() string { return petloveBase }

func (p *Petlove) SearchURL(term string) string {
	return petloveBase + "/busca?q=" + url.QueryEscape(term)
}

// Extract implements Adapter.
func (p *Petlove) Extract(ctx context.Context, page Page, term string) []product.Record {
	log := logger.ForSite(p.Name())
	doc, err := parseDoc(page.Document)
	if err != nil {
		log.Warn("unparseable document", "term", term, "error", err)
		return nil
	}

	if records := p.fromLinkedData(doc, page, term); len(records) > 0 {
		log.Debug("extracted from linked data", "term", term, "records", len(records))
		return records
	}
	return p.fromMarkup(ctx, doc, page, term)
}

// Linked data (schema.org ItemList) embedded as application/ld+json.

type ldNode struct {
	Type            any          `json:"@type"`
	ItemListElement []ldListItem `json:"itemListElement"`
	Graph           []ldNode     `json:"@graph"`
}

type ldListItem struct {
	ldProduct
	Item *ldProduct `json:"item"`
}

type ldProduct struct {
	Type      any             `json:"@type"`
	Name      string          `json:"name"`
	URL       string          `json:"url"`
	SKU       any             `json:"sku"`
	ProductID any             `json:"productID"`
	Offers    json.RawMessage `json:"offers"`
}

type ldOffer struct {
	Name         string `json:"name"`
	SKU          any    `json:"sku"`
	Price        any    `json:"price"`
	LowPrice     any    `json:"lowPrice"`
	Availability any    `json:"availability"`
}

func hasType(t any, want string) bool {
	switch v := t.(type) {
	case string:
		return strings.EqualFold(v, want)
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok && strings.EqualFold(s, want) {
				return true
			}
		}
	}
	return false
}

// decodeLDNodes accepts a single node or an array of nodes and flattens
// @graph containers.
func decodeLDNodes(data string) ([]ldNode, error) {
	trimmed := bytes.TrimSpace([]byte(data))
	var nodes []ldNode
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := decodeJSON(string(trimmed), &nodes); err != nil {
			return nil, err
		}
	} else {
		var n ldNode
		if err := decodeJSON(string(trimmed), &n); err != nil {
			return nil, err
		}
		nodes = []ldNode{n}
	}

	var flat []ldNode
	for _, n := range nodes {
		flat = append(flat, n)
		flat = append(flat, n.Graph...)
	}
	return flat, nil
}

// fromLinkedData reads schema.org ItemList blocks. The tier is used only when
// every listed product carries a priced offer; plain ListItem entries (name
// and url only) leave the page to the card markup.
func (p *Petlove) fromLinkedData(doc *goquery.Document, page Page, term string) []product.Record {
	log := logger.ForSite(p.Name())

	var items []ldProduct
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		nodes, err := decodeLDNodes(s.Text())
		if err != nil {
			log.Warn("malformed linked data", "term", term, "error", err)
			return
		}
		for _, n := range nodes {
			if !hasType(n.Type, "ItemList") {
				continue
			}
			for _, li := range n.ItemListElement {
				prod := li.ldProduct
				if li.Item != nil {
					prod = *li.Item
				}
				if prod.Name != "" {
					items = append(items, prod)
				}
			}
		}
	})

	meta := p.deps.lookup(term)
	var records []product.Record
	for _, prod := range firstN(items, p.deps.TestMode) {
		offers, single := decodeOffers(prod.Offers)
		if single != nil {
			offers = []ldOffer{*single}
		}
		if !anyPriced(offers) {
			log.Debug("linked data without prices, using markup", "term", term, "product", prod.Name)
			return nil
		}

		base := baseRecord(p.Name(), meta, term, page, product.TierJSON)
		base.ProductName = orDefault(prod.Name, product.NotFound)
		base.ProductID = idString(prod.ProductID)
		if base.ProductID == "" {
			base.ProductID = idString(prod.SKU)
		}
		if prod.URL != "" {
			base.SourceURL = absURL(petloveBase, prod.URL)
		}

		if single != nil {
			r := base
			r.VariantLabel = product.SingleSize
			r.CurrentPrice, _ = offerPrice(*single)
			r.Availability, _, _ = availability(single.Availability)
			records = append(records, r)
			continue
		}

		for _, o := range offers {
			label, keep := sellable(o.Availability)
			if !keep {
				continue
			}
			r := base
			r.VariantLabel = orDefault(o.Name, product.SingleSize)
			r.CurrentPrice, _ = offerPrice(o)
			r.Availability = label
			r.VariantID = idString(o.SKU)
			records = append(records, r)
		}
	}
	return records
}

func anyPriced(offers []ldOffer) bool {
	for _, o := range offers {
		if _, ok := offerPrice(o); ok {
			return true
		}
	}
	return false
}

// decodeOffers returns either a list of offers or a single offer object.
func decodeOffers(raw json.RawMessage) ([]ldOffer, *ldOffer) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var offers []ldOffer
		if err := decodeJSON(string(trimmed), &offers); err != nil {
			return nil, nil
		}
		return offers, nil
	}
	var o ldOffer
	if err := decodeJSON(string(trimmed), &o); err != nil {
		return nil, nil
	}
	return nil, &o
}

// offerPrice formats an offer price and reports whether it is a positive
// amount. schema.org prices are plain decimals ("210.00"), so strings are
// parsed as numbers here instead of passing through like scraped labels.
func offerPrice(o ldOffer) (string, bool) {
	for _, v := range []any{o.Price, o.LowPrice} {
		if f, ok := positive(v); ok {
			return product.FormatPrice(f), true
		}
	}
	return product.PriceOnRequest, false
}

// Result cards.

type petloveCard struct {
	name     string
	price    string
	quantity string
	link     string
	options  bool
}

type petloveVariant struct {
	label string
	price string
}

func readPetloveCard(card *goquery.Selection) petloveCard {
	c := petloveCard{
		name:  textOf(card, "h2.product-card__name", product.NotFound),
		price: firstText(card, product.PriceOnRequest, `p[data-testid="price"]`, "p.font-bold.font-body-s"),
	}

	c.quantity = product.SingleSize
	if q := textOf(card, "span.button__label", ""); q != "" && q != moreOptions {
		c.quantity = q
	}

	if href, ok := card.Find(`a[itemprop="url"]`).First().Attr("href"); ok {
		c.link = absURL(petloveBase, href)
	}

	card.Find("button.button span.button__label").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if cleanText(s.Text()) == moreOptions {
			c.options = true
			return false
		}
		return true
	})
	return c
}

func (p *Petlove) fromMarkup(ctx context.Context, doc *goquery.Document, page Page, term string) []product.Record {
	meta := p.deps.lookup(term)
	cards := doc.Find("div.list__item")
	if p.deps.TestMode {
		cards = cards.First()
	}

	var records []product.Record
	cards.Each(func(_ int, s *goquery.Selection) {
		card := readPetloveCard(s)

		if card.options && card.link != "" {
			if detail, variants := p.variants(ctx, card.link, term); len(variants) > 0 {
				for _, v := range variants {
					r := baseRecord(p.Name(), meta, term, detail, product.TierHTML)
					r.ProductName = card.name
					r.VariantLabel = v.label
					r.CurrentPrice = product.FormatPrice(v.price)
					r.SourceURL = card.link
					records = append(records, r)
				}
				return
			}
		}

		r := baseRecord(p.Name(), meta, term, page, product.TierHTML)
		r.ProductName = card.name
		r.VariantLabel = card.quantity
		r.CurrentPrice = product.FormatPrice(card.price)
		if card.link != "" {
			r.SourceURL = card.link
		}
		records = append(records, r)
	})
	return records
}

// variants fetches a product detail page and lists its sizes. It returns no
// variants when pacing is interrupted, the fetch fails, or the page lists
// nothing.
func (p *Petlove) variants(ctx context.Context, link, term string) (Page, []petloveVariant) {
	if p.deps.Fetcher == nil {
		return Page{}, nil
	}
	log := logger.ForSite(p.Name())

	if p.deps.Pacer != nil {
		if err := p.deps.Pacer.Wait(ctx); err != nil {
			return Page{}, nil
		}
	}

	outcome := p.deps.Fetcher.FetchPage(ctx, link)
	if !outcome.OK() {
		log.Warn("detail page unavailable", "term", term, "url", link, "error", outcome.Err)
		return Page{}, nil
	}

	doc, err := parseDoc(outcome.Document)
	if err != nil {
		return Page{}, nil
	}
	detail := PageFrom(outcome)

	var variants []petloveVariant
	doc.Find("div.variant-list div.badge__container.variant-selector__badge").Each(func(_ int, s *goquery.Selection) {
		price := textOf(s, "div.font-body-s", "")
		if price == "" || price == product.PriceOnRequest || strings.EqualFold(price, consultar) {
			return
		}
		variants = append(variants, petloveVariant{
			label: textOf(s, "span.font-bold.mb-2", product.SingleSize),
			price: price,
		})
	})
	if len(variants) > 0 {
		return detail, variants
	}

	pagePrice := firstText(doc.Selection, product.PriceOnRequest, "span.price-value", "div.price")
	doc.Find("button.size-select-button").Each(func(_ int, s *goquery.Selection) {
		variants = append(variants, petloveVariant{
			label: textOf(s, "b", product.SingleSize),
			price: pagePrice,
		})
	})
	return detail, variants
}
