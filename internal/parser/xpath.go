package parser

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// XPathExtractor extracts listings using XPath expressions. It also backs the
// inspect command, which evaluates ad-hoc expressions against a live page.
type XPathExtractor struct {
	logger *slog.Logger
}

// NewXPathExtractor creates a new XPath extractor.
func NewXPathExtractor(logger *slog.Logger) *XPathExtractor {
	return &XPathExtractor{
		logger: logger.With("component", "xpath_extractor"),
	}
}

// Extract implements Extractor. Title, Price and Link are relative to each Container node.
func (p *XPathExtractor) Extract(resp *types.Response, source string, sel Selectors) ([]*types.Listing, string, error) {
	doc, err := p.parse(resp)
	if err != nil {
		return nil, "", err
	}

	cards, err := htmlquery.QueryAll(doc, sel.Container)
	if err != nil {
		return nil, "", &types.ParseError{URL: resp.Request.URLString(), Selector: sel.Container, Err: err}
	}

	attr := sel.LinkAttr
	if attr == "" {
		attr = "href"
	}

	var listings []*types.Listing
	for _, card := range cards {
		title := p.first(card, sel.Title, "text")
		if title == "" {
			continue
		}
		link := p.first(card, sel.Link, attr)
		if link != "" {
			link = resolve(resp.FinalURL, link)
		}
		listings = append(listings, types.NewListing(source, title, p.first(card, sel.Price, "text"), link))
	}

	var next string
	if sel.Next != "" {
		if href := p.first(doc, sel.Next, "href"); href != "" {
			next = resolve(resp.FinalURL, href)
		}
	}
	return listings, next, nil
}

// Query evaluates expr against the page and returns one value per matched node.
// attr selects what is returned: "text" (default), "html", "outerHTML" or an attribute name.
func (p *XPathExtractor) Query(resp *types.Response, expr, attr string) ([]string, error) {
	doc, err := p.parse(resp)
	if err != nil {
		return nil, err
	}

	nodes, err := htmlquery.QueryAll(doc, expr)
	if err != nil {
		return nil, &types.ParseError{URL: resp.Request.URLString(), Selector: expr, Err: err}
	}

	var values []string
	for _, node := range nodes {
		if val := nodeValue(node, attr); val != "" {
			values = append(values, val)
		}
	}
	return values, nil
}

func (p *XPathExtractor) parse(resp *types.Response) (*html.Node, error) {
	if len(resp.Body) == 0 {
		return nil, &types.ParseError{URL: resp.Request.URLString(), Err: types.ErrEmptyResponse}
	}
	doc, err := html.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, &types.ParseError{
			URL: resp.Request.URLString(),
			Err: fmt.Errorf("parse html: %w", err),
		}
	}
	return doc, nil
}

func (p *XPathExtractor) first(node *html.Node, expr, attr string) string {
	if expr == "" {
		return ""
	}
	n, err := htmlquery.Query(node, expr)
	if err != nil {
		p.logger.Warn("invalid xpath", "selector", expr, "error", err)
		return ""
	}
	if n == nil {
		return ""
	}
	return nodeValue(n, attr)
}

func nodeValue(node *html.Node, attr string) string {
	switch attr {
	case "", "text":
		return strings.Join(strings.Fields(htmlquery.InnerText(node)), " ")
	case "html", "innerHTML":
		return htmlquery.OutputHTML(node, false)
	case "outerHTML":
		return htmlquery.OutputHTML(node, true)
	default:
		return htmlquery.SelectAttr(node, attr)
	}
}
