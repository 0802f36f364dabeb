package cache

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// maxLineSize bounds one JSONL record.
const maxLineSize = 1 << 20

// FileCache stores one JSONL file per source (<dir>/<source>.jsonl).
// The file's modification time is the save time.
type FileCache struct {
	dir    string
	maxAge time.Duration
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileCache creates a file cache rooted at dir.
func NewFileCache(dir string, maxAge time.Duration, logger *slog.Logger) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileCache{
		dir:    dir,
		maxAge: maxAge,
		logger: logger.With("component", "file_cache"),
	}, nil
}

func (c *FileCache) Name() string { return "file" }

func (c *FileCache) path(source string) string {
	return filepath.Join(c.dir, strings.ToLower(source)+".jsonl")
}

// Save writes listings to a temp file and renames it over the previous snapshot.
func (c *FileCache) Save(ctx context.Context, source string, listings []*types.Listing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tmp, err := os.CreateTemp(c.dir, source+"-*.tmp")
	if err != nil {
		return &types.StorageError{Backend: c.Name(), Op: "save", Err: err}
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, l := range listings {
		if err := enc.Encode(l); err != nil {
			tmp.Close()
			return &types.StorageError{Backend: c.Name(), Op: "save", Err: fmt.Errorf("encode JSONL: %w", err)}
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return &types.StorageError{Backend: c.Name(), Op: "save", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &types.StorageError{Backend: c.Name(), Op: "save", Err: err}
	}
	if err := os.Rename(tmp.Name(), c.path(source)); err != nil {
		return &types.StorageError{Backend: c.Name(), Op: "save", Err: err}
	}

	c.logger.Info("listings cached", "source", source, "path", c.path(source), "listings", len(listings))
	return nil
}

// Load reads the snapshot of source. Malformed lines are skipped.
func (c *FileCache) Load(ctx context.Context, source string) ([]*types.Listing, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.path(source)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, time.Time{}, fmt.Errorf("%w for %s", types.ErrCacheMiss, source)
	}
	if err != nil {
		return nil, time.Time{}, &types.StorageError{Backend: c.Name(), Op: "load", Err: err}
	}
	savedAt := info.ModTime()
	if stale(savedAt, c.maxAge) {
		return nil, savedAt, fmt.Errorf("%w for %s: saved %s ago", types.ErrCacheMiss, source, time.Since(savedAt).Round(time.Minute))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, savedAt, &types.StorageError{Backend: c.Name(), Op: "load", Err: err}
	}
	defer f.Close()

	var listings []*types.Listing
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		if ctx.Err() != nil {
			return nil, savedAt, ctx.Err()
		}
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var l types.Listing
		if err := json.Unmarshal([]byte(raw), &l); err != nil {
			c.logger.Warn("skipping malformed cache line", "path", path, "line", line, "error", err)
			continue
		}
		listings = append(listings, &l)
	}
	if err := sc.Err(); err != nil {
		return nil, savedAt, &types.StorageError{Backend: c.Name(), Op: "load", Err: err}
	}

	c.logger.Debug("cache loaded", "source", source, "listings", len(listings), "saved_at", savedAt)
	return listings, savedAt, nil
}

func (c *FileCache) Close() error { return nil }
