package parser

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// CSSExtractor extracts listings using CSS selectors via goquery.
type CSSExtractor struct {
	logger *slog.Logger
}

// NewCSSExtractor creates a new CSS selector extractor.
func NewCSSExtractor(logger *slog.Logger) *CSSExtractor {
	return &CSSExtractor{
		logger: logger.With("component", "css_extractor"),
	}
}

// Extract implements Extractor.
func (p *CSSExtractor) Extract(resp *types.Response, source string, sel Selectors) ([]*types.Listing, string, error) {
	doc, err := resp.Document()
	if err != nil {
		return nil, "", &types.ParseError{
			URL: resp.Request.URLString(),
			Err: err,
		}
	}
	return p.ExtractDocument(doc, resp.FinalURL, source, sel), p.nextLink(doc, resp.FinalURL, sel.Next), nil
}

// ExtractDocument applies selectors to an already parsed document. Products
// without a title are skipped.
func (p *CSSExtractor) ExtractDocument(doc *goquery.Document, pageURL, source string, sel Selectors) []*types.Listing {
	attr := sel.LinkAttr
	if attr == "" {
		attr = "href"
	}

	var listings []*types.Listing
	doc.Find(sel.Container).Each(func(i int, card *goquery.Selection) {
		title := text(card, sel.Title)
		if title == "" {
			return
		}
		price := text(card, sel.Price)

		var link string
		if sel.Link != "" {
			if href, ok := card.Find(sel.Link).First().Attr(attr); ok {
				link = resolve(pageURL, href)
			}
		} else if href, ok := card.Attr(attr); ok {
			link = resolve(pageURL, href)
		}

		listings = append(listings, types.NewListing(source, title, price, link))
	})

	p.logger.Debug("extracted listings", "url", pageURL, "count", len(listings))
	return listings
}

func (p *CSSExtractor) nextLink(doc *goquery.Document, pageURL, selector string) string {
	if selector == "" {
		return ""
	}
	href, ok := doc.Find(selector).First().Attr("href")
	if !ok {
		return ""
	}
	next := resolve(pageURL, href)
	if next == pageURL {
		return ""
	}
	return next
}

func text(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.Join(strings.Fields(s.Find(selector).First().Text()), " ")
}

// resolve makes href absolute against base. Anchors and non-http schemes resolve to "".
func resolve(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") {
		return ""
	}

	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	h, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := b.ResolveReference(h)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}
