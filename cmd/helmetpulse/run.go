package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/HelmetPulse/internal/cache"
	"github.com/IshaanNene/HelmetPulse/internal/catalog"
	"github.com/IshaanNene/HelmetPulse/internal/collector"
	"github.com/IshaanNene/HelmetPulse/internal/importer"
	"github.com/IshaanNene/HelmetPulse/internal/ingest"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

var (
	useCache   bool
	watchAfter bool
)

// runCmd creates the "run" subcommand, the master controller.
func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <radtke|rsa|fanatics|ebay|all|status>",
		Short: "Collect one source, every source, or show catalog status",
		Long: `Collect listings from a marketplace and record their prices.

  all      run radtke, rsa, fanatics and ebay in order
  status   print catalog and cache counts without collecting

With --watch the imports directory is watched once collection finishes.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: append(slices.Clone(collector.Names), "all", "status"),
		RunE:      runRun,
	}

	cmd.Flags().BoolVar(&useCache, "use-cache", false, "read listings from the listing cache instead of scraping")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and match without writing to the database")
	cmd.Flags().BoolVar(&watchAfter, "watch", false, "watch the imports directory after collecting")

	return cmd
}

// collectCmd creates the "collect" subcommand for a single marketplace.
func collectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "collect <radtke|rsa|fanatics|ebay>",
		Short:     "Scrape one marketplace",
		Args:      cobra.ExactArgs(1),
		ValidArgs: collector.Names,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(collector.Names, args[0]) {
				return fmt.Errorf("%w: %q", types.ErrUnknownSource, args[0])
			}
			return runRun(cmd, args)
		},
	}

	cmd.Flags().BoolVar(&useCache, "use-cache", false, "read listings from the listing cache instead of scraping")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and match without writing to the database")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	target := strings.ToLower(args[0])

	var sources []string
	switch {
	case target == "all":
		sources = collector.Names
	case target == "status":
	case slices.Contains(collector.Names, target):
		sources = []string{target}
	default:
		return fmt.Errorf("%w: %q (choose %s, all or status)", types.ErrUnknownSource, target, strings.Join(collector.Names, ", "))
	}

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	lc, err := cache.New(a.ctx, a.cfg.Cache, a.logger)
	if err != nil {
		if useCache {
			return fmt.Errorf("open listing cache: %w", err)
		}
		a.logger.Warn("listing cache unavailable; results will not be cached", "error", err)
		lc = nil
	} else {
		a.closers = append(a.closers, lc.Close)
	}

	if target == "status" {
		return printStatus(a, lc)
	}

	a.startMetrics()
	in := a.ingestor(dryRun)

	start := time.Now()
	var total ingest.Stats
	var failed []string
	for _, name := range sources {
		if err := a.ctx.Err(); err != nil {
			return err
		}
		stats, err := collectSource(a, in, lc, name)
		total.Add(stats)
		if err != nil {
			a.metrics.CollectorFailures.Add(1)
			a.logger.Error("collector failed", "source", name, "error", err)
			failed = append(failed, name)
			continue
		}
		fmt.Printf("   %-9s %s\n", name+":", stats)
	}

	mode := "complete"
	if dryRun {
		mode = "complete (dry run)"
	}
	fmt.Printf("\n✅ Run %s in %s\n", mode, time.Since(start).Round(time.Millisecond))
	fmt.Printf("   Listings:  %d seen, %d skipped\n", total.Seen, total.Skipped)
	fmt.Printf("   Catalog:   %d created, %d matched\n", total.Created, total.Matched)
	fmt.Printf("   Prices:    %d written, %d errors\n", total.PricesWritten, total.Errors)
	if len(failed) > 0 {
		fmt.Printf("   Failed:    %s\n", strings.Join(failed, ", "))
	}

	if watchAfter {
		im := importer.New(in, a.cfg.Collectors, a.logger)
		w := importer.NewWatcher(im, a.cfg.Importer, a.logger, importer.WithMetrics(a.metrics))
		fmt.Printf("\n👀 Watching %s (Ctrl+C to stop)\n", a.cfg.Importer.Dir)
		return w.Run(a.ctx)
	}

	if len(failed) == len(sources) {
		return fmt.Errorf("every collector failed")
	}
	return nil
}

// collectSource gets listings for one source, from the cache when --use-cache
// finds a fresh entry and from the marketplace otherwise, and ingests them.
func collectSource(a *app, in *ingest.Ingestor, lc cache.Cache, name string) (ingest.Stats, error) {
	log := a.logger.With("source", name)
	defaultType := collector.DefaultType(&a.cfg.Collectors, name)

	var listings []*types.Listing
	if useCache && lc != nil {
		cached, savedAt, err := lc.Load(a.ctx, name)
		switch {
		case err == nil:
			log.Info("using cached listings", "listings", len(cached), "saved_at", savedAt.Format(time.RFC3339))
			listings = cached
		case errors.Is(err, types.ErrCacheMiss):
			log.Info("cache miss, scraping")
		default:
			log.Warn("cache read failed, scraping", "error", err)
		}
	}

	if listings == nil {
		c, closeFn, err := collector.Build(name, a.cfg, a.store, a.logger)
		if err != nil {
			return ingest.Stats{}, err
		}
		defer closeFn()

		a.metrics.CollectorRuns.Add(1)
		listings, err = c.Collect(a.ctx)
		if err != nil {
			return ingest.Stats{}, err
		}
		defaultType = c.DefaultHelmetType()

		saveListings(a.ctx, lc, name, listings, dryRun, log)
	}

	stats := in.Ingest(a.ctx, listings, defaultType)
	a.metrics.RecordIngest(stats)
	log.Info("ingest complete", "stats", stats.String())
	return stats, a.ctx.Err()
}

// saveListings refreshes the cached listings of source. A dry run leaves the
// cache as it was.
func saveListings(ctx context.Context, lc cache.Cache, source string, listings []*types.Listing, dry bool, log *slog.Logger) bool {
	if lc == nil || dry || len(listings) == 0 {
		return false
	}
	if err := lc.Save(ctx, source, listings); err != nil {
		log.Warn("cache write failed", "error", err)
		return false
	}
	return true
}

// printStatus prints catalog counts, per-source price counts and cache ages.
func printStatus(a *app, lc cache.Cache) error {
	items, err := a.store.CountItems(a.ctx)
	if err != nil {
		return err
	}
	unpriced, err := a.store.ItemsWithoutPrices(a.ctx)
	if err != nil {
		return err
	}

	perSource := make(map[catalog.Source]int)
	latest := make(map[catalog.Source]time.Time)
	err = a.store.ScanPrices(a.ctx, func(page []catalog.PriceObservation) error {
		for _, p := range page {
			perSource[p.Source]++
			if p.ScrapedAt.After(latest[p.Source]) {
				latest[p.Source] = p.ScrapedAt
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Catalog:\n")
	fmt.Printf("  Helmets:           %d\n", items)
	fmt.Printf("  Without prices:    %d\n", len(unpriced))
	fmt.Printf("\nPrices:\n")
	sources := make([]string, 0, len(perSource))
	for src := range perSource {
		sources = append(sources, string(src))
	}
	sort.Strings(sources)
	for _, src := range sources {
		s := catalog.Source(src)
		fmt.Printf("  %-18s %6d   last %s\n", src+":", perSource[s], latest[s].Local().Format("2006-01-02 15:04"))
	}
	if len(sources) == 0 {
		fmt.Printf("  (none)\n")
	}

	if lc != nil {
		fmt.Printf("\nListing cache (%s):\n", lc.Name())
		for _, name := range collector.Names {
			cached, savedAt, err := lc.Load(a.ctx, name)
			switch {
			case err == nil:
				fmt.Printf("  %-18s %6d   saved %s\n", name+":", len(cached), savedAt.Local().Format("2006-01-02 15:04"))
			case errors.Is(err, types.ErrCacheMiss):
				fmt.Printf("  %-18s      -\n", name+":")
			default:
				fmt.Printf("  %-18s error: %v\n", name+":", err)
			}
		}
	}
	return nil
}
