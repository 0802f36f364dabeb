package collector

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/HelmetPulse/internal/catalog"
	"github.com/IshaanNene/HelmetPulse/internal/config"
	"github.com/IshaanNene/HelmetPulse/internal/fetcher"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// Build constructs the named collector and its fetcher. The returned close
// function releases the fetcher (browser process, idle connections).
func Build(name string, cfg *config.Config, items ItemSource, logger *slog.Logger) (Collector, func() error, error) {
	noop := func() error { return nil }

	switch catalog.Source(name) {
	case catalog.SourceRSA:
		return NewRSA(cfg.Collectors.RSA, cfg.Fetcher, logger), noop, nil

	case catalog.SourceRadtke:
		f, err := fetcher.NewHTTPFetcher(&cfg.Fetcher, logger)
		if err != nil {
			return nil, nil, err
		}
		return NewRadtke(cfg.Collectors.Radtke, f, logger), f.Close, nil

	case catalog.SourceFanatics:
		f, err := fetcher.NewBrowserFetcher(&cfg.Fetcher, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("fanatics: %w", err)
		}
		return NewFanatics(cfg.Collectors.Fanatics, f, logger), f.Close, nil

	case catalog.SourceEbay:
		if items == nil {
			return nil, nil, fmt.Errorf("ebay: catalog is required")
		}
		var service fetcher.Fetcher
		cs, err := fetcher.NewCrawlService(&cfg.ScrapingService, cfg.Fetcher.RequestTimeout, logger)
		switch {
		case err == nil:
			service = cs
		case !errors.Is(err, types.ErrServiceUnavailable):
			return nil, nil, err
		}
		c := NewEbay(cfg.Collectors.Ebay, cfg.Fetcher, items, service, logger)
		if service != nil {
			return c, service.Close, nil
		}
		return c, noop, nil
	}

	return nil, nil, fmt.Errorf("%w: no collector named %q", types.ErrUnknownSource, name)
}

// DefaultType returns the helmet type the named collector assigns to titles
// without a type keyword. It does not build the collector.
func DefaultType(cfg *config.CollectorsConfig, name string) catalog.HelmetType {
	sc, _ := cfg.Source(name)
	return helmetType(sc)
}
