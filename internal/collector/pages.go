package collector

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/IshaanNene/HelmetPulse/internal/catalog"
	"github.com/IshaanNene/HelmetPulse/internal/config"
	"github.com/IshaanNene/HelmetPulse/internal/fetcher"
	"github.com/IshaanNene/HelmetPulse/internal/parser"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// PageCollector walks paginated HTML category pages. Listings come from CSS
// selectors, falling back to the page's JSON-LD product data when the
// selectors match nothing. Pagination follows the Next selector when it
// matches and otherwise sets PageParam=N on the category URL. A page that
// yields no new product is the last one.
type PageCollector struct {
	source     catalog.Source
	cfg        config.SourceConfig
	fetcher    fetcher.Fetcher
	extractor  parser.Extractor
	structured *parser.ProductDataExtractor
	selectors  parser.Selectors
	pageParam  string
	meta       map[string]any
	logger     *slog.Logger
}

// PageOption configures a PageCollector.
type PageOption func(*PageCollector)

// WithPageParam sets the query parameter carrying the page number.
func WithPageParam(name string) PageOption {
	return func(pc *PageCollector) { pc.pageParam = name }
}

// WithRequestMeta attaches fetcher meta (wait selector, script) to every request.
func WithRequestMeta(key string, value any) PageOption {
	return func(pc *PageCollector) { pc.meta[key] = value }
}

// NewPageCollector creates a paginated HTML collector.
func NewPageCollector(source catalog.Source, cfg config.SourceConfig, f fetcher.Fetcher, sel parser.Selectors, logger *slog.Logger, opts ...PageOption) *PageCollector {
	pc := &PageCollector{
		source:     source,
		cfg:        cfg,
		fetcher:    f,
		extractor:  parser.NewCSSExtractor(logger),
		structured: parser.NewProductDataExtractor(logger),
		selectors:  sel,
		pageParam:  "page",
		meta:       make(map[string]any),
		logger:     logger.With("component", "collector", "source", string(source)),
	}
	for _, opt := range opts {
		opt(pc)
	}
	return pc
}

func (pc *PageCollector) Name() catalog.Source { return pc.source }

func (pc *PageCollector) DefaultHelmetType() catalog.HelmetType { return helmetType(pc.cfg) }

// Collect walks every configured path.
func (pc *PageCollector) Collect(ctx context.Context) ([]*types.Listing, error) {
	if err := requireBaseURL(pc.cfg, pc.source); err != nil {
		return nil, err
	}
	start := time.Now()

	var all []*types.Listing
	seen := make(map[string]bool)
	pages := 0

	for _, path := range pc.cfg.Paths {
		next := strings.TrimRight(pc.cfg.BaseURL, "/") + path
		for page := 1; next != "" && (pc.cfg.MaxPages <= 0 || page <= pc.cfg.MaxPages); page++ {
			if pages > 0 {
				if err := pause(ctx, pc.cfg.Delay); err != nil {
					return all, err
				}
			}

			listings, link, err := pc.page(ctx, next)
			pages++
			if err != nil {
				pc.logger.Warn("page failed", "url", next, "error", err)
				break
			}

			fresh := 0
			for _, l := range listings {
				key := l.URL
				if key == "" {
					key = l.Title + "|" + l.RawPrice
				}
				if seen[key] {
					continue
				}
				seen[key] = true
				all = append(all, l)
				fresh++
			}
			pc.logger.Debug("page collected", "url", next, "listings", len(listings), "new", fresh)
			if fresh == 0 {
				break
			}

			if link != "" {
				next = link
			} else {
				next = withPage(next, pc.pageParam, page+1)
			}
		}
	}

	logSummary(pc.logger, pc.source, pages, len(all), start)
	return all, nil
}

func (pc *PageCollector) page(ctx context.Context, pageURL string) ([]*types.Listing, string, error) {
	req, err := types.NewRequest(pageURL)
	if err != nil {
		return nil, "", err
	}
	for k, v := range pc.meta {
		req.Meta[k] = v
	}

	resp, err := pc.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, "", err
	}

	listings, next, err := pc.extractor.Extract(resp, string(pc.source), pc.selectors)
	if err != nil {
		return nil, "", err
	}
	if len(listings) == 0 {
		listings, err = pc.structured.Extract(resp, string(pc.source))
		if err != nil {
			return nil, "", err
		}
	}
	return listings, next, nil
}

// withPage sets param=n on rawURL.
func withPage(rawURL, param string, n int) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set(param, strconv.Itoa(n))
	u.RawQuery = q.Encode()
	return u.String()
}

// RadtkeSelectors match the Radtke Sports collection grid.
var RadtkeSelectors = parser.Selectors{
	Container: ".product-item, .grid-product, .product-card",
	Title:     ".product-item__title, .grid-product__title, .product-card__title",
	Price:     ".price--highlight, .price-item--sale, .product-item__price, .grid-product__price, .price",
	Link:      "a[href*='/products/']",
	Next:      "a.pagination__next, link[rel='next']",
}

// FanaticsSelectors match the Fanatics product grid.
var FanaticsSelectors = parser.Selectors{
	Container: ".product-card, [data-talos='productCard']",
	Title:     ".product-card-title, [data-talos='productCardTitle']",
	Price:     ".price .sr-only, .money-value, .price",
	Link:      "a",
	Next:      "a[aria-label='next page'], a[data-talos='linkNextPage']",
}

// fanaticsScroll loads the lazily rendered lower half of the grid.
const fanaticsScroll = `() => window.scrollTo(0, document.body.scrollHeight)`

// NewRadtke builds the Radtke Sports collector on a plain HTTP fetcher.
func NewRadtke(cfg config.SourceConfig, f fetcher.Fetcher, logger *slog.Logger) *PageCollector {
	return NewPageCollector(catalog.SourceRadtke, cfg, f, RadtkeSelectors, logger)
}

// NewFanatics builds the Fanatics collector on a headless browser fetcher.
func NewFanatics(cfg config.SourceConfig, f fetcher.Fetcher, logger *slog.Logger) *PageCollector {
	return NewPageCollector(catalog.SourceFanatics, cfg, f, FanaticsSelectors, logger,
		WithPageParam("pageNumber"),
		WithRequestMeta(fetcher.MetaWaitSelector, strings.Split(FanaticsSelectors.Container, ",")[0]),
		WithRequestMeta(fetcher.MetaJSEval, fanaticsScroll),
	)
}
