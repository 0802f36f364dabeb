// Package ingest turns raw listings into catalog items and price rows.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/HelmetPulse/internal/catalog"
	"github.com/IshaanNene/HelmetPulse/internal/parser"
	"github.com/IshaanNene/HelmetPulse/internal/pipeline"
	"github.com/IshaanNene/HelmetPulse/internal/pricing"
	"github.com/IshaanNene/HelmetPulse/internal/reconcile"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// Stats counts what happened to each listing of a batch.
type Stats struct {
	Seen          int `json:"seen"`
	Skipped       int `json:"skipped"`
	Created       int `json:"created"`
	Matched       int `json:"matched"`
	PricesWritten int `json:"prices_written"`
	Errors        int `json:"errors"`
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Seen += o.Seen
	s.Skipped += o.Skipped
	s.Created += o.Created
	s.Matched += o.Matched
	s.PricesWritten += o.PricesWritten
	s.Errors += o.Errors
}

func (s Stats) String() string {
	return fmt.Sprintf("seen=%d skipped=%d created=%d matched=%d prices=%d errors=%d",
		s.Seen, s.Skipped, s.Created, s.Matched, s.PricesWritten, s.Errors)
}

// Options configures an Ingestor.
type Options struct {
	// DryRun parses and reconciles read-only and logs what would be written.
	DryRun bool
}

// Ingestor runs listings through cleanup, parsing, reconciliation and price recording.
type Ingestor struct {
	pipeline   *pipeline.Pipeline
	parser     *parser.Parser
	reconciler *reconcile.Reconciler
	recorder   *pricing.Recorder
	opts       Options
	logger     *slog.Logger
}

// New creates an Ingestor.
func New(p *pipeline.Pipeline, tp *parser.Parser, r *reconcile.Reconciler, rec *pricing.Recorder, opts Options, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		pipeline:   p,
		parser:     tp,
		reconciler: r,
		recorder:   rec,
		opts:       opts,
		logger:     logger.With("component", "ingest"),
	}
}

// Ingest processes listings one at a time. Each call is one run for
// duplicate detection. Per-listing failures are counted
// and logged; the batch never aborts except on context cancellation.
// defaultType is the helmet type used when a title names none.
func (in *Ingestor) Ingest(ctx context.Context, listings []*types.Listing, defaultType catalog.HelmetType) Stats {
	var stats Stats
	in.pipeline.Reset()

	for _, l := range listings {
		if ctx.Err() != nil {
			in.logger.Warn("ingest interrupted", "remaining", len(listings)-stats.Seen)
			break
		}
		stats.Seen++
		in.one(ctx, l, defaultType, &stats)
	}

	in.logger.Info("ingest complete",
		"seen", stats.Seen,
		"skipped", stats.Skipped,
		"created", stats.Created,
		"matched", stats.Matched,
		"prices_written", stats.PricesWritten,
		"errors", stats.Errors,
		"dry_run", in.opts.DryRun,
	)
	return stats
}

func (in *Ingestor) one(ctx context.Context, l *types.Listing, defaultType catalog.HelmetType, stats *Stats) {
	cleaned, stage, err := in.pipeline.Process(l)
	if err != nil {
		stats.Errors++
		in.logger.Warn("pipeline failed", "title", l.Title, "error", err)
		return
	}
	if cleaned == nil {
		stats.Skipped++
		in.logger.Debug("listing skipped", "reason", stage, "title", l.Title, "source", l.Source)
		return
	}

	// Listings collected for a known item bypass parsing.
	if cleaned.HelmetID > 0 {
		stats.Matched++
		in.record(ctx, cleaned.HelmetID, cleaned, stats)
		return
	}

	c := in.parser.ParseListing(cleaned, defaultType)
	if !c.IsValid {
		stats.Skipped++
		in.logger.Debug("listing skipped", "reason", "no_player", "title", cleaned.Title, "source", cleaned.Source)
		return
	}

	if in.opts.DryRun {
		in.dryRun(ctx, c, cleaned, stats)
		return
	}

	item, outcome, err := in.reconciler.FindOrCreate(ctx, c)
	if err != nil {
		stats.Errors++
		in.logger.Warn("reconcile failed", "candidate", c.String(), "error", err)
		return
	}
	if outcome.Created {
		stats.Created++
	} else {
		stats.Matched++
	}

	in.record(ctx, item.ID, cleaned, stats)
}

func (in *Ingestor) dryRun(ctx context.Context, c parser.Candidate, l *types.Listing, stats *Stats) {
	item, level, err := in.reconciler.Find(ctx, c)
	switch {
	case errors.Is(err, types.ErrNotFound):
		stats.Created++
		in.logger.Info("dry run: would create item",
			"name", reconcile.NewItem(c).Name,
			"source", l.Source,
			"price", l.Price,
		)
	case err != nil:
		stats.Errors++
		in.logger.Warn("reconcile failed", "candidate", c.String(), "error", err)
	default:
		stats.Matched++
		in.logger.Info("dry run: would record price",
			"item_id", item.ID,
			"name", item.Name,
			"level", level.String(),
			"source", l.Source,
			"price", l.Price,
		)
	}
}

func (in *Ingestor) record(ctx context.Context, helmetID int64, l *types.Listing, stats *Stats) {
	obs := Observation(helmetID, l)

	if in.opts.DryRun {
		in.logger.Info("dry run: would record price", "item_id", helmetID, "source", l.Source, "price", obs.Median)
		return
	}

	res := in.recorder.Upsert(ctx, obs)
	if !res.OK {
		stats.Errors++
		in.logger.Warn("price not recorded", "item_id", helmetID, "source", l.Source, "error", res.Error)
		return
	}
	stats.PricesWritten++
}

// Observation converts a cleaned listing into a price observation for helmetID.
// Pre-aggregated stats supply min, max and total; a single price stands for all three.
func Observation(helmetID int64, l *types.Listing) pricing.Observation {
	obs := pricing.Observation{
		HelmetID:  helmetID,
		Source:    l.Source,
		Median:    l.Price,
		URL:       l.URL,
		ScrapedAt: l.ScrapedAt,
	}
	if l.Stats != nil {
		obs.Median = l.Stats.Median
		obs.Min = l.Stats.Min
		obs.Max = l.Stats.Max
		obs.TotalResults = l.Stats.Total
	}
	return obs
}
