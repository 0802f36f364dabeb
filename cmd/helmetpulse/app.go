package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/HelmetPulse/internal/config"
	"github.com/IshaanNene/HelmetPulse/internal/ingest"
	"github.com/IshaanNene/HelmetPulse/internal/observability"
	"github.com/IshaanNene/HelmetPulse/internal/parser"
	"github.com/IshaanNene/HelmetPulse/internal/pipeline"
	"github.com/IshaanNene/HelmetPulse/internal/pricing"
	"github.com/IshaanNene/HelmetPulse/internal/reconcile"
	"github.com/IshaanNene/HelmetPulse/internal/store"
)

// app holds the dependencies every database-backed command constructs once.
type app struct {
	ctx     context.Context
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	parser  *parser.Parser
	metrics *observability.Metrics

	closers []func() error
}

// newApp loads config, connects to the database and runs the schema
// pre-check. Set checkSchema to false for commands that repair the schema.
func newApp(checkSchema bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, closeLog := setupLogger(cfg.Logging)
	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, closeLog)

	ctx, cancel := signalContext(logger)
	a.ctx = ctx
	a.closers = append(a.closers, func() error { cancel(); return nil })

	a.store, err = store.Open(ctx, cfg.Database.Driver, cfg.Database.URL, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, a.store.Close)
	if cfg.Database.PageSize > 0 {
		a.store.SetPageSize(cfg.Database.PageSize)
	}
	if cfg.Database.MaxOpenConns > 0 && cfg.Database.Driver != "sqlite" {
		a.store.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}

	if checkSchema {
		report, err := a.store.CheckSchema(ctx)
		if err != nil {
			logger.Error("schema pre-check failed",
				"missing_columns", report.MissingColumns,
				"missing_indexes", report.MissingIndexes,
				"error", err,
			)
			a.close()
			return nil, fmt.Errorf("%w: %w", errSchema, err)
		}
	}

	a.parser, err = buildParser(cfg.Parser, logger)
	if err != nil {
		a.close()
		return nil, err
	}

	a.metrics = observability.NewMetrics(logger)
	return a, nil
}

// startMetrics serves counters for long-running commands when enabled.
func (a *app) startMetrics() {
	if a.cfg.Metrics.Enabled {
		a.metrics.StartServer(a.ctx, a.cfg.Metrics.Port, a.cfg.Metrics.Path)
	}
}

// ingestor wires the pipeline, reconciler and price recorder over the store.
func (a *app) ingestor(dryRun bool) *ingest.Ingestor {
	if a.cfg.Reconcile.Strict {
		a.logger.Info("strict matching enabled; relaxed catalog lookups are off")
	}
	return ingest.New(
		pipeline.NewDefault(a.logger),
		a.parser,
		reconcile.New(a.store, reconcile.Options{Strict: a.cfg.Reconcile.Strict}, a.logger),
		pricing.NewRecorder(a.store, a.logger),
		ingest.Options{DryRun: dryRun},
		a.logger,
	)
}

// close releases everything in reverse construction order.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

func buildParser(cfg config.ParserConfig, logger *slog.Logger) (*parser.Parser, error) {
	if cfg.RulesFile == "" {
		return parser.NewDefault(logger)
	}
	rules, err := parser.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}
	return parser.New(rules, logger)
}
