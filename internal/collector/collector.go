// Package collector scrapes marketplace listings.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/HelmetPulse/internal/catalog"
	"github.com/IshaanNene/HelmetPulse/internal/config"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// Collector scrapes one marketplace. A failed page is logged and ends that
// listing path; Collect only returns an error when nothing could be attempted.
type Collector interface {
	// Name returns the price source the listings belong to.
	Name() catalog.Source

	// DefaultHelmetType is used for titles that name no helmet type.
	DefaultHelmetType() catalog.HelmetType

	// Collect returns the raw listings.
	Collect(ctx context.Context) ([]*types.Listing, error)
}

// Names lists the collectors in the order "run all" executes them.
var Names = []string{"radtke", "rsa", "fanatics", "ebay"}

// helmetType converts a configured default, falling back to fullsize-replica.
func helmetType(cfg config.SourceConfig) catalog.HelmetType {
	if ht := catalog.HelmetType(cfg.DefaultHelmetType); ht.Valid() {
		return ht
	}
	return catalog.HelmetReplica
}

// pause waits d between requests. It returns early with ctx.Err() on cancel.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func logSummary(logger *slog.Logger, source catalog.Source, pages, listings int, start time.Time) {
	logger.Info("collection complete",
		"source", string(source),
		"pages", pages,
		"listings", listings,
		"duration", time.Since(start).Round(time.Millisecond),
	)
}

func requireBaseURL(cfg config.SourceConfig, source catalog.Source) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("%s: base_url is not configured", source)
	}
	return nil
}
