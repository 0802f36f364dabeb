package collector

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/IshaanNene/HelmetPulse/internal/catalog"
	"github.com/IshaanNene/HelmetPulse/internal/config"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// shopifyPageSize is the largest page the storefront products.json endpoint serves.
const shopifyPageSize = 250

type shopifyProducts struct {
	Products []shopifyProduct `json:"products"`
}

type shopifyProduct struct {
	Title    string           `json:"title"`
	Handle   string           `json:"handle"`
	Variants []shopifyVariant `json:"variants"`
}

type shopifyVariant struct {
	Price     string `json:"price"`
	Available bool   `json:"available"`
}

// price returns the first available variant's price, else the first variant's.
func (p shopifyProduct) price() string {
	for _, v := range p.Variants {
		if v.Available && v.Price != "" {
			return v.Price
		}
	}
	if len(p.Variants) > 0 {
		return p.Variants[0].Price
	}
	return ""
}

// ShopifyCollector reads a Shopify storefront's public products.json feed.
// Used for Shop RSA.
type ShopifyCollector struct {
	source catalog.Source
	cfg    config.SourceConfig
	client *resty.Client
	logger *slog.Logger
}

// NewShopify creates a Shopify feed collector.
func NewShopify(source catalog.Source, cfg config.SourceConfig, fcfg config.FetcherConfig, logger *slog.Logger) *ShopifyCollector {
	client := resty.New()
	client.SetTimeout(fcfg.RequestTimeout)
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	if fcfg.UserAgent != "" {
		client.SetHeader("User-Agent", fcfg.UserAgent)
	}
	client.SetHeader("Accept", "application/json")

	return &ShopifyCollector{
		source: source,
		cfg:    cfg,
		client: client,
		logger: logger.With("component", "collector", "source", string(source)),
	}
}

// NewRSA builds the Shop RSA collector.
func NewRSA(cfg config.SourceConfig, fcfg config.FetcherConfig, logger *slog.Logger) *ShopifyCollector {
	return NewShopify(catalog.SourceRSA, cfg, fcfg, logger)
}

func (sc *ShopifyCollector) Name() catalog.Source { return sc.source }

func (sc *ShopifyCollector) DefaultHelmetType() catalog.HelmetType { return helmetType(sc.cfg) }

// Collect pages through products.json for every configured collection path
// until a page comes back empty.
func (sc *ShopifyCollector) Collect(ctx context.Context) ([]*types.Listing, error) {
	if err := requireBaseURL(sc.cfg, sc.source); err != nil {
		return nil, err
	}
	start := time.Now()

	paths := sc.cfg.Paths
	if len(paths) == 0 {
		paths = []string{""}
	}

	var all []*types.Listing
	pages := 0
	for _, path := range paths {
		endpoint := strings.TrimRight(path, "/") + "/products.json"
		for page := 1; sc.cfg.MaxPages <= 0 || page <= sc.cfg.MaxPages; page++ {
			if pages > 0 {
				if err := pause(ctx, sc.cfg.Delay); err != nil {
					return all, err
				}
			}
			pages++

			products, err := sc.fetchPage(ctx, endpoint, page)
			if err != nil {
				sc.logger.Warn("page failed", "path", endpoint, "page", page, "error", err)
				break
			}
			if len(products) == 0 {
				break
			}

			for _, p := range products {
				if strings.TrimSpace(p.Title) == "" {
					continue
				}
				l := types.NewListing(string(sc.source), p.Title, p.price(), strings.TrimRight(sc.cfg.BaseURL, "/")+"/products/"+p.Handle)
				all = append(all, l)
			}
			sc.logger.Debug("page collected", "path", endpoint, "page", page, "products", len(products))
		}
	}

	logSummary(sc.logger, sc.source, pages, len(all), start)
	return all, nil
}

func (sc *ShopifyCollector) fetchPage(ctx context.Context, endpoint string, page int) ([]shopifyProduct, error) {
	var body shopifyProducts
	resp, err := sc.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"limit": strconv.Itoa(shopifyPageSize),
			"page":  strconv.Itoa(page),
		}).
		SetResult(&body).
		Get(endpoint)
	if err != nil {
		return nil, &types.FetchError{URL: endpoint, Err: err, Retryable: true}
	}
	if resp.IsError() {
		return nil, &types.FetchError{
			URL:        resp.Request.URL,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("HTTP %d", resp.StatusCode()),
			Retryable:  resp.StatusCode() >= 500,
		}
	}
	return body.Products, nil
}
