package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/IshaanNene/HelmetPulse/internal/config"
	"github.com/IshaanNene/HelmetPulse/internal/observability"
)

// processedTimeFormat prefixes moved files so repeated uploads never collide.
const processedTimeFormat = "20060102-150405"

// Watcher imports spreadsheets dropped into an inbox directory.
// Imported files move to the processed directory; files that fail move to
// its failed/ subdirectory so they are not retried on every event.
type Watcher struct {
	importer     *Importer
	dir          string
	processedDir string
	settle       time.Duration
	metrics      *observability.Metrics
	now          func() time.Time
	logger       *slog.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithMetrics records per-file outcomes and ingest counters.
func WithMetrics(m *observability.Metrics) WatcherOption {
	return func(w *Watcher) { w.metrics = m }
}

// NewWatcher creates a Watcher for cfg.Dir.
func NewWatcher(im *Importer, cfg config.ImporterConfig, logger *slog.Logger, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		importer:     im,
		dir:          cfg.Dir,
		processedDir: cfg.ProcessedDir,
		settle:       cfg.SettleTime,
		now:          time.Now,
		logger:       logger.With("component", "import_watcher"),
	}
	if w.processedDir == "" {
		w.processedDir = filepath.Join(w.dir, "processed")
	}
	if w.settle <= 0 {
		w.settle = 2 * time.Second
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run processes files already in the inbox, then imports new ones as they
// settle until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	for _, d := range []string{w.dir, w.processedDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching for vendor files", "dir", w.dir, "settle", w.settle)

	w.ProcessExisting(ctx)

	// A file is imported once no event has touched it for the settle time,
	// so half-copied uploads are not read.
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped", "pending", len(pending))
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			switch {
			case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
				if Supported(ev.Name) {
					pending[ev.Name] = w.now()
				}
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				delete(pending, ev.Name)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-ticker.C:
			now := w.now()
			for path, last := range pending {
				if now.Sub(last) < w.settle {
					continue
				}
				delete(pending, path)
				w.Process(ctx, path)
			}
		}
	}
}

// ProcessExisting imports every supported file currently in the inbox.
func (w *Watcher) ProcessExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Error("list inbox", "dir", w.dir, "error", err)
		return
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		w.Process(ctx, filepath.Join(w.dir, e.Name()))
	}
}

// Process imports one file and moves it out of the inbox. It returns the
// import error, if any; a file interrupted by cancellation stays in place.
func (w *Watcher) Process(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		w.logger.Debug("file vanished before import", "file", path)
		return err
	}

	start := w.now()
	stats, err := w.importer.ImportFile(ctx, path)
	if err != nil && ctx.Err() != nil {
		w.logger.Warn("import interrupted", "file", filepath.Base(path))
		return err
	}

	dest := w.processedDir
	if err != nil {
		dest = filepath.Join(w.processedDir, "failed")
		w.logger.Error("import failed", "file", filepath.Base(path), "error", err)
		if w.metrics != nil {
			w.metrics.FilesFailed.Add(1)
		}
	} else {
		w.logger.Info("file imported",
			"file", filepath.Base(path),
			"stats", stats.String(),
			"duration", w.now().Sub(start).Round(time.Millisecond),
		)
		if w.metrics != nil {
			w.metrics.FilesImported.Add(1)
			w.metrics.RecordIngest(stats)
		}
	}

	if moveErr := w.move(path, dest); moveErr != nil {
		w.logger.Error("move processed file", "file", path, "error", moveErr)
	}
	return err
}

func (w *Watcher) move(path, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	target := filepath.Join(dir, w.now().Format(processedTimeFormat)+"_"+filepath.Base(path))
	return os.Rename(path, target)
}
