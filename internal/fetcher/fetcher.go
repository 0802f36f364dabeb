package fetcher

import (
	"context"

	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// Fetcher is the interface for all page fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the content at the given request's URL.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// Get builds a GET request for rawURL and fetches it.
func Get(ctx context.Context, f Fetcher, rawURL string) (*types.Response, error) {
	req, err := types.NewRequest(rawURL)
	if err != nil {
		return nil, err
	}
	return f.Fetch(ctx, req)
}
