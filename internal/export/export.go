// Package export writes the priced catalog to CSV or Excel for vendors and
// spot checks.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/IshaanNene/HelmetPulse/internal/catalog"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// Row is one (item, source) price line. Items without prices appear once
// with an empty source.
type Row struct {
	HelmetID     int64
	Name         string
	Player       string
	Team         string
	HelmetType   string
	DesignType   string
	Source       string
	MedianPrice  float64
	MinPrice     float64
	MaxPrice     float64
	TotalResults int
	ScrapedAt    time.Time
}

// Headers is the column order of every export.
var Headers = []string{
	"helmet_id", "name", "player", "team", "helmet_type", "design_type",
	"source", "median_price", "min_price", "max_price", "total_results", "scraped_at",
}

func (r Row) cells() []string {
	c := []string{
		strconv.FormatInt(r.HelmetID, 10), r.Name, r.Player, r.Team, r.HelmetType, r.DesignType,
		r.Source, "", "", "", "", "",
	}
	if r.Source != "" {
		c[7] = strconv.FormatFloat(r.MedianPrice, 'f', 2, 64)
		c[8] = strconv.FormatFloat(r.MinPrice, 'f', 2, 64)
		c[9] = strconv.FormatFloat(r.MaxPrice, 'f', 2, 64)
		c[10] = strconv.Itoa(r.TotalResults)
		c[11] = r.ScrapedAt.UTC().Format(time.RFC3339)
	}
	return c
}

// Source pages through the catalog tables.
type Source interface {
	ScanItems(ctx context.Context, fn func(page []catalog.Item) error) error
	ScanPrices(ctx context.Context, fn func(page []catalog.PriceObservation) error) error
}

// Rows joins every item with its prices, ordered by item id then source.
func Rows(ctx context.Context, src Source) ([]Row, error) {
	var items []catalog.Item
	if err := src.ScanItems(ctx, func(page []catalog.Item) error {
		items = append(items, page...)
		return nil
	}); err != nil {
		return nil, err
	}

	prices := make(map[int64][]catalog.PriceObservation)
	if err := src.ScanPrices(ctx, func(page []catalog.PriceObservation) error {
		for _, p := range page {
			prices[p.HelmetID] = append(prices[p.HelmetID], p)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(items))
	for _, it := range items {
		base := Row{
			HelmetID:   it.ID,
			Name:       it.Name,
			Player:     it.PlayerName(),
			Team:       it.TeamName(),
			HelmetType: string(it.HelmetType),
			DesignType: string(it.DesignType),
		}
		ps := prices[it.ID]
		if len(ps) == 0 {
			rows = append(rows, base)
			continue
		}
		sort.Slice(ps, func(i, j int) bool { return ps[i].Source < ps[j].Source })
		for _, p := range ps {
			r := base
			r.Source = string(p.Source)
			r.MedianPrice = p.MedianPrice
			r.MinPrice = p.MinPrice
			r.MaxPrice = p.MaxPrice
			r.TotalResults = p.TotalResults
			r.ScrapedAt = p.ScrapedAt
			rows = append(rows, r)
		}
	}
	return rows, nil
}

// Writer is the interface for export formats.
type Writer interface {
	// Write appends rows.
	Write(rows []Row) error

	// Close flushes and releases the file.
	Close() error

	// Name returns the format identifier.
	Name() string
}

// New creates the writer matching path's extension (.csv or .xlsx).
func New(path string, logger *slog.Logger) (Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return NewCSVWriter(path, logger)
	case ".xlsx":
		return NewXLSXWriter(path, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s (use .csv or .xlsx)", types.ErrUnsupportedFormat, ext)
	}
}
