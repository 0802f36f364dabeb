package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/IshaanNene/HelmetPulse/internal/config"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// CrawlService fetches pages through a hosted scraping API
// (GET {endpoint}?api_key=...&url=...&render=...). It is used for sites that
// block direct requests.
type CrawlService struct {
	client *resty.Client
	cfg    *config.ScrapingServiceConfig
	logger *slog.Logger
}

// NewCrawlService creates a crawl service client. It returns
// types.ErrServiceUnavailable when no API key is configured.
func NewCrawlService(cfg *config.ScrapingServiceConfig, timeout time.Duration, logger *slog.Logger) (*CrawlService, error) {
	if cfg.APIKey == "" {
		return nil, types.ErrServiceUnavailable
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetBaseURL(cfg.Endpoint)

	return &CrawlService{
		client: client,
		cfg:    cfg,
		logger: logger.With("component", "crawl_service"),
	}, nil
}

// Fetch retrieves the target page through the service.
func (cs *CrawlService) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	start := time.Now()

	resp, err := cs.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"api_key": cs.cfg.APIKey,
			"url":     req.URLString(),
			"render":  strconv.FormatBool(cs.cfg.Render),
		}).
		Get("/")
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: true}
	}

	if resp.IsError() {
		body := resp.Body()
		if len(body) > 512 {
			body = body[:512]
		}
		return nil, &types.FetchError{
			URL:        req.URLString(),
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("crawl service HTTP %d: %s", resp.StatusCode(), body),
			Retryable:  resp.StatusCode() >= 500 || resp.StatusCode() == http.StatusTooManyRequests,
		}
	}

	duration := time.Since(start)
	out := types.NewBrowserResponse(req, resp.StatusCode(), resp.Body(), req.URLString(), duration)
	if ct := resp.Header().Get("Content-Type"); ct != "" {
		out.ContentType = ct
	}

	cs.logger.Debug("crawl service fetch complete",
		"url", req.URLString(),
		"status", resp.StatusCode(),
		"size", len(resp.Body()),
		"duration", duration,
	)
	return out, nil
}

// Close drops idle connections.
func (cs *CrawlService) Close() error {
	cs.client.GetClient().CloseIdleConnections()
	return nil
}

// Type returns the fetcher type identifier.
func (cs *CrawlService) Type() string {
	return "crawl_service"
}
