package parser

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// ProductDataExtractor reads schema.org Product records from JSON-LD blocks.
// Vendor storefronts embed these on product and category pages, and they
// survive layout changes that break CSS selectors.
type ProductDataExtractor struct {
	logger *slog.Logger
}

// NewProductDataExtractor creates a new JSON-LD product extractor.
func NewProductDataExtractor(logger *slog.Logger) *ProductDataExtractor {
	return &ProductDataExtractor{
		logger: logger.With("component", "product_data"),
	}
}

// Extract returns one listing per Product found in the page's JSON-LD.
func (sde *ProductDataExtractor) Extract(resp *types.Response, source string) ([]*types.Listing, error) {
	doc, err := resp.Document()
	if err != nil {
		return nil, &types.ParseError{URL: resp.Request.URLString(), Err: err}
	}
	return sde.ExtractDocument(doc, resp.FinalURL, source), nil
}

// ExtractDocument is Extract for an already parsed document.
func (sde *ProductDataExtractor) ExtractDocument(doc *goquery.Document, pageURL, source string) []*types.Listing {
	var listings []*types.Listing

	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, sel *goquery.Selection) {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return
		}

		var nodes []map[string]any
		var single map[string]any
		if err := json.Unmarshal([]byte(raw), &single); err == nil {
			nodes = append(nodes, single)
		} else if err := json.Unmarshal([]byte(raw), &nodes); err != nil {
			sde.logger.Debug("skipping malformed json-ld", "url", pageURL, "error", err)
			return
		}

		for _, n := range nodes {
			sde.collect(n, pageURL, source, &listings)
		}
	})

	return listings
}

// collect walks @graph and ItemList wrappers down to Product nodes.
func (sde *ProductDataExtractor) collect(node map[string]any, pageURL, source string, out *[]*types.Listing) {
	if graph, ok := node["@graph"].([]any); ok {
		for _, g := range graph {
			if m, ok := g.(map[string]any); ok {
				sde.collect(m, pageURL, source, out)
			}
		}
		return
	}

	switch typeOf(node) {
	case "ItemList":
		elems, _ := node["itemListElement"].([]any)
		for _, e := range elems {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			if item, ok := m["item"].(map[string]any); ok {
				m = item
			}
			sde.collect(m, pageURL, source, out)
		}
	case "Product":
		name, _ := node["name"].(string)
		if strings.TrimSpace(name) == "" {
			return
		}
		link, _ := node["url"].(string)
		if link == "" {
			link = pageURL
		} else {
			link = resolve(pageURL, link)
		}
		*out = append(*out, types.NewListing(source, strings.TrimSpace(name), offerPrice(node["offers"]), link))
	}
}

func typeOf(node map[string]any) string {
	switch t := node["@type"].(type) {
	case string:
		return t
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && (s == "Product" || s == "ItemList") {
				return s
			}
		}
	}
	return ""
}

// offerPrice returns the price text of the first offer, preferring lowPrice
// on AggregateOffer.
func offerPrice(v any) string {
	switch o := v.(type) {
	case []any:
		for _, e := range o {
			if p := offerPrice(e); p != "" {
				return p
			}
		}
	case map[string]any:
		for _, key := range []string{"price", "lowPrice"} {
			switch p := o[key].(type) {
			case string:
				if p != "" {
					return p
				}
			case float64:
				return fmt.Sprintf("%.2f", p)
			}
		}
	}
	return ""
}
