package cache

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IshaanNene/HelmetPulse/internal/config"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func sampleListings() []*types.Listing {
	a := types.NewListing("radtke", "Bo Nix Signed Broncos Mini Helmet", "$189.99", "https://radtke.example/products/nix")
	a.SetHint(types.HintAuthCompany, "Beckett")

	b := types.NewListing("ebay", "Josh Allen Bills Mini Helmet", "", "https://ebay.example/sch")
	b.HelmetID = 12
	b.Stats = &types.PriceStats{Median: 200, Min: 100, Max: 300, Total: 3}
	return []*types.Listing{a, b}
}

func TestFileCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir(), time.Hour, testLogger)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	defer c.Close()

	if err := c.Save(ctx, "radtke", sampleListings()); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, savedAt, err := c.Load(ctx, "radtke")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if time.Since(savedAt) > time.Minute {
		t.Errorf("unexpected save time %s", savedAt)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(got))
	}
	if got[0].Title != "Bo Nix Signed Broncos Mini Helmet" || got[0].Hint(types.HintAuthCompany) != "Beckett" {
		t.Errorf("unexpected first listing %+v", got[0])
	}
	if got[1].HelmetID != 12 || got[1].Stats == nil || got[1].Stats.Median != 200 {
		t.Errorf("unexpected second listing %+v", got[1])
	}

	// a second save replaces the snapshot
	if err := c.Save(ctx, "radtke", sampleListings()[:1]); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _, _ = c.Load(ctx, "radtke")
	if len(got) != 1 {
		t.Errorf("expected snapshot replaced, got %d listings", len(got))
	}
}

func TestFileCacheMiss(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := NewFileCache(dir, time.Hour, testLogger)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	if _, _, err := c.Load(ctx, "rsa"); !errors.Is(err, types.ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss for missing source, got %v", err)
	}

	if err := c.Save(ctx, "rsa", sampleListings()); err != nil {
		t.Fatalf("save: %v", err)
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "rsa.jsonl"), old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if _, _, err := c.Load(ctx, "rsa"); !errors.Is(err, types.ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss for stale cache, got %v", err)
	}

	forever, _ := NewFileCache(dir, 0, testLogger)
	if got, _, err := forever.Load(ctx, "rsa"); err != nil || len(got) != 2 {
		t.Errorf("zero max age should never expire: %d listings, err=%v", len(got), err)
	}
}

func TestFileCacheSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	content := `{"source":"rsa","title":"Josh Allen Signed Mini Helmet","raw_price":"$150"}
not json at all

{"source":"rsa","title":"Tom Brady Signed Mini Helmet","raw_price":"$400"}
`
	if err := os.WriteFile(filepath.Join(dir, "rsa.jsonl"), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, _ := NewFileCache(dir, 0, testLogger)
	got, _, err := c.Load(context.Background(), "rsa")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[1].RawPrice != "$400" {
		t.Errorf("expected 2 valid listings, got %+v", got)
	}
}

func TestNewUnsupportedType(t *testing.T) {
	cfg := config.DefaultConfig().Cache
	cfg.Type = "redis"
	if _, err := New(context.Background(), cfg, testLogger); err == nil {
		t.Error("expected error for unsupported cache type")
	}

	cfg = config.DefaultConfig().Cache
	cfg.Type = "mongo"
	cfg.MongoURI = ""
	if _, err := New(context.Background(), cfg, testLogger); err == nil {
		t.Error("expected error for mongo cache without uri")
	}

	cfg = config.DefaultConfig().Cache
	cfg.Path = t.TempDir()
	c, err := New(context.Background(), cfg, testLogger)
	if err != nil || c.Name() != "file" {
		t.Errorf("expected file cache, got %v (err=%v)", c, err)
	}
}
