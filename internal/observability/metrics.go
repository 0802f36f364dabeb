// Package observability exposes run counters for the long-running commands
// (watch, notify --schedule, run --watch).
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/HelmetPulse/internal/ingest"
)

// Metrics tracks operational counters.
type Metrics struct {
	// Collection
	CollectorRuns     atomic.Int64
	CollectorFailures atomic.Int64
	ListingsCollected atomic.Int64

	// Ingest
	ListingsSkipped atomic.Int64
	ItemsCreated    atomic.Int64
	ItemsMatched    atomic.Int64
	PricesWritten   atomic.Int64
	IngestErrors    atomic.Int64

	// Imports
	FilesImported atomic.Int64
	FilesFailed   atomic.Int64

	// Notifications
	EmailsSent   atomic.Int64
	EmailsFailed atomic.Int64

	LastRunUnix atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// RecordIngest adds one ingest batch to the counters.
func (m *Metrics) RecordIngest(s ingest.Stats) {
	m.ListingsCollected.Add(int64(s.Seen))
	m.ListingsSkipped.Add(int64(s.Skipped))
	m.ItemsCreated.Add(int64(s.Created))
	m.ItemsMatched.Add(int64(s.Matched))
	m.PricesWritten.Add(int64(s.PricesWritten))
	m.IngestErrors.Add(int64(s.Errors))
	m.LastRunUnix.Store(time.Now().Unix())
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		kind  string
		value int64
	}{
		{"helmetpulse_collector_runs_total", "Collector runs started", "counter", m.CollectorRuns.Load()},
		{"helmetpulse_collector_failures_total", "Collector runs that failed", "counter", m.CollectorFailures.Load()},
		{"helmetpulse_listings_total", "Listings ingested", "counter", m.ListingsCollected.Load()},
		{"helmetpulse_listings_skipped_total", "Listings skipped by cleanup or parsing", "counter", m.ListingsSkipped.Load()},
		{"helmetpulse_items_created_total", "Catalog items created", "counter", m.ItemsCreated.Load()},
		{"helmetpulse_items_matched_total", "Listings matched to existing items", "counter", m.ItemsMatched.Load()},
		{"helmetpulse_prices_written_total", "Price rows written", "counter", m.PricesWritten.Load()},
		{"helmetpulse_ingest_errors_total", "Listings that failed to ingest", "counter", m.IngestErrors.Load()},
		{"helmetpulse_files_imported_total", "Spreadsheets imported", "counter", m.FilesImported.Load()},
		{"helmetpulse_files_failed_total", "Spreadsheets that failed to import", "counter", m.FilesFailed.Load()},
		{"helmetpulse_emails_sent_total", "Price report emails sent", "counter", m.EmailsSent.Load()},
		{"helmetpulse_emails_failed_total", "Price report emails that failed", "counter", m.EmailsFailed.Load()},
		{"helmetpulse_last_run_timestamp_seconds", "Unix time of the last ingest batch", "gauge", m.LastRunUnix.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", metric.name, metric.kind)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer serves metrics and /health until ctx is cancelled.
func (m *Metrics) StartServer(ctx context.Context, port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

// Snapshot returns all counters as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"collector_runs":     m.CollectorRuns.Load(),
		"collector_failures": m.CollectorFailures.Load(),
		"listings":           m.ListingsCollected.Load(),
		"listings_skipped":   m.ListingsSkipped.Load(),
		"items_created":      m.ItemsCreated.Load(),
		"items_matched":      m.ItemsMatched.Load(),
		"prices_written":     m.PricesWritten.Load(),
		"ingest_errors":      m.IngestErrors.Load(),
		"files_imported":     m.FilesImported.Load(),
		"files_failed":       m.FilesFailed.Load(),
		"emails_sent":        m.EmailsSent.Load(),
		"emails_failed":      m.EmailsFailed.Load(),
	}
}
