package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/IshaanNene/HelmetPulse/internal/pricing"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// PricePath is the lookup endpoint served by "helmetpulse serve".
const PricePath = "/api/helmets/price"

// PriceClient looks up current prices from the price API.
type PriceClient struct {
	client *resty.Client
	logger *slog.Logger
}

// NewPriceClient creates a client for the API at baseURL.
func NewPriceClient(baseURL string, timeout time.Duration, logger *slog.Logger) *PriceClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &PriceClient{
		client: c,
		logger: logger.With("component", "price_client"),
	}
}

// Lookup returns the quote for one watch item, or types.ErrNotFound when the
// API has no priced helmet for it.
func (pc *PriceClient) Lookup(ctx context.Context, w WatchItem) (*pricing.Quote, error) {
	var q pricing.Quote
	resp, err := pc.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"player": w.Player,
			"team":   w.Team,
			"type":   w.HelmetType,
		}).
		SetResult(&q).
		Get(PricePath)
	if err != nil {
		return nil, &types.FetchError{URL: PricePath, Err: err}
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", w.Label(), types.ErrNotFound)
	case resp.IsError():
		return nil, &types.FetchError{
			URL:        resp.Request.URL,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("price api: %s", resp.Status()),
		}
	}
	pc.logger.Debug("price looked up", "item", w.Label(), "median", q.MedianPrice, "source", q.Source)
	return &q, nil
}
