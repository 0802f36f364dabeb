// Package cache keeps the raw listings of the last collection run per source
// so a run can be replayed with --use-cache.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/HelmetPulse/internal/config"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// Cache is the interface for listing cache backends.
type Cache interface {
	// Save replaces the cached listings of source.
	Save(ctx context.Context, source string, listings []*types.Listing) error

	// Load returns the cached listings of source and when they were saved.
	// It returns types.ErrCacheMiss when nothing fresh enough is cached.
	Load(ctx context.Context, source string) ([]*types.Listing, time.Time, error)

	// Close releases resources.
	Close() error

	// Name returns the backend identifier.
	Name() string
}

// New creates the backend selected by cfg.Type.
func New(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (Cache, error) {
	switch cfg.Type {
	case "", "file":
		return NewFileCache(cfg.Path, cfg.MaxAge, logger)
	case "mongo":
		return NewMongoCache(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, cfg.MaxAge, logger)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// stale reports whether an entry saved at savedAt is older than maxAge.
// A zero maxAge never expires.
func stale(savedAt time.Time, maxAge time.Duration) bool {
	return maxAge > 0 && time.Since(savedAt) > maxAge
}
