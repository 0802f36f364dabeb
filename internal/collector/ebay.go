package collector

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/IshaanNene/HelmetPulse/internal/catalog"
	"github.com/IshaanNene/HelmetPulse/internal/config"
	"github.com/IshaanNene/HelmetPulse/internal/fetcher"
	"github.com/IshaanNene/HelmetPulse/internal/pipeline"
	"github.com/IshaanNene/HelmetPulse/internal/pricing"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// eBay sold-search result markup (old and new card layouts).
const (
	ebayResultSelector = "li.s-item, li.s-card"
	ebayTitleSelector  = ".s-item__title, .s-card__title"
	ebayPriceSelector  = ".s-item__price, .s-card__price"
)

// ItemSource pages through the catalog.
type ItemSource interface {
	ScanItems(ctx context.Context, fn func(page []catalog.Item) error) error
}

// EbayCollector re-prices every active catalog item from eBay sold listings.
// Each item with results yields one listing carrying HelmetID and the
// median/min/max of the sold prices.
type EbayCollector struct {
	cfg     config.SourceConfig
	items   ItemSource
	base    *colly.Collector
	service fetcher.Fetcher
	filter  *pipeline.TitleFilterMiddleware
	logger  *slog.Logger
}

// NewEbay creates the eBay collector. When service is non-nil searches go
// through it (hosted crawl service) instead of direct colly requests.
func NewEbay(cfg config.SourceConfig, fcfg config.FetcherConfig, items ItemSource, service fetcher.Fetcher, logger *slog.Logger) *EbayCollector {
	c := colly.NewCollector(
		colly.UserAgent(fcfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(fcfg.RequestTimeout)
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       cfg.Delay,
	})

	return &EbayCollector{
		cfg:     cfg,
		items:   items,
		base:    c,
		service: service,
		filter:  pipeline.NewTitleFilterMiddleware(pipeline.DefaultExcludePattern),
		logger:  logger.With("component", "collector", "source", string(catalog.SourceEbay)),
	}
}

func (e *EbayCollector) Name() catalog.Source { return catalog.SourceEbay }

func (e *EbayCollector) DefaultHelmetType() catalog.HelmetType { return helmetType(e.cfg) }

// Collect searches sold listings for every active item with a search query.
func (e *EbayCollector) Collect(ctx context.Context) ([]*types.Listing, error) {
	if err := requireBaseURL(e.cfg, catalog.SourceEbay); err != nil {
		return nil, err
	}
	start := time.Now()

	var targets []catalog.Item
	err := e.items.ScanItems(ctx, func(page []catalog.Item) error {
		for _, item := range page {
			if item.IsActive && strings.TrimSpace(item.EbaySearchQuery) != "" {
				targets = append(targets, item)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	if e.service == nil {
		e.base.WithTransport(&contextTransport{ctx: ctx, next: http.DefaultTransport})
	}

	var listings []*types.Listing
	for i, item := range targets {
		if ctx.Err() != nil {
			return listings, ctx.Err()
		}

		searchURL := SoldSearchURL(e.cfg.BaseURL, item.EbaySearchQuery)
		prices, err := e.search(ctx, searchURL, i)
		if err != nil {
			e.logger.Warn("search failed", "item_id", item.ID, "query", item.EbaySearchQuery, "error", err)
			continue
		}

		stats := pricing.Summarize(prices)
		if stats == nil {
			e.logger.Debug("no sold results", "item_id", item.ID, "query", item.EbaySearchQuery)
			continue
		}

		l := types.NewListing(string(catalog.SourceEbay), item.Name, "", searchURL)
		l.HelmetID = item.ID
		l.Stats = stats
		listings = append(listings, l)

		e.logger.Debug("item priced",
			"item_id", item.ID,
			"median", stats.Median,
			"total", stats.Total,
		)
	}

	logSummary(e.logger, catalog.SourceEbay, len(targets), len(listings), start)
	return listings, nil
}

// search returns the sold prices on one results page.
func (e *EbayCollector) search(ctx context.Context, searchURL string, n int) ([]float64, error) {
	if e.service != nil {
		if n > 0 {
			if err := pause(ctx, e.cfg.Delay); err != nil {
				return nil, err
			}
		}
		resp, err := fetcher.Get(ctx, e.service, searchURL)
		if err != nil {
			return nil, err
		}
		doc, err := resp.Document()
		if err != nil {
			return nil, &types.ParseError{URL: searchURL, Err: err}
		}
		var prices []float64
		doc.Find(ebayResultSelector).Each(func(_ int, s *goquery.Selection) {
			prices = e.appendPrice(prices, s)
		})
		return prices, nil
	}

	c := e.base.Clone()
	var prices []float64
	var fetchErr error
	c.OnHTML(ebayResultSelector, func(el *colly.HTMLElement) {
		prices = e.appendPrice(prices, el.DOM)
	})
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = &types.FetchError{URL: r.Request.URL.String(), StatusCode: r.StatusCode, Err: err}
	})

	err := c.Visit(searchURL)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		if fetchErr != nil {
			return nil, fetchErr
		}
		return nil, &types.FetchError{URL: searchURL, Err: err}
	}
	return prices, fetchErr
}

// contextTransport binds outgoing colly requests to ctx so a cancelled run
// drops the request in flight.
type contextTransport struct {
	ctx  context.Context
	next http.RoundTripper
}

func (t *contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.next.RoundTrip(req.WithContext(t.ctx))
}

// appendPrice adds the result's price unless its title is a placeholder or
// not a helmet. Ranges ("$85.00 to $120.00") count at their low end.
func (e *EbayCollector) appendPrice(prices []float64, s *goquery.Selection) []float64 {
	title := strings.Join(strings.Fields(s.Find(ebayTitleSelector).First().Text()), " ")
	if title == "" || strings.EqualFold(title, "Shop on eBay") {
		return prices
	}
	if kept, _ := e.filter.Process(types.NewListing(string(catalog.SourceEbay), title, "", "")); kept == nil {
		return prices
	}

	raw := strings.TrimSpace(s.Find(ebayPriceSelector).First().Text())
	if i := strings.Index(raw, " to "); i > 0 {
		raw = raw[:i]
	}
	d, err := pricing.ParseMoney(raw)
	if err != nil {
		return prices
	}
	f, _ := d.Round(2).Float64()
	return append(prices, f)
}

// SoldSearchURL builds the completed-and-sold search URL for a query.
func SoldSearchURL(baseURL, query string) string {
	q := url.Values{}
	q.Set("_nkw", query)
	q.Set("LH_Sold", "1")
	q.Set("LH_Complete", "1")
	q.Set("_ipg", "120")
	return strings.TrimRight(baseURL, "/") + "/sch/i.html?" + q.Encode()
}
