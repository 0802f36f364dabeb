package pricing

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/IshaanNene/HelmetPulse/internal/catalog"
	"github.com/IshaanNene/HelmetPulse/internal/store"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestValidatePrice(t *testing.T) {
	tests := []struct {
		in       any
		expected float64
	}{
		{250, 250},
		{int64(99), 99},
		{249.999, 250},
		{12.345, 12.35},
		{12.344, 12.34},
		{float32(19.5), 19.5},
		{"$1,250.00", 1250},
		{"  85 ", 85},
		{"US $129.99", 129.99},
		{"85.00 USD", 85},
		{decimal.RequireFromString("0.005"), 0.01},
	}

	for _, tt := range tests {
		got, err := ValidatePrice(tt.in)
		if err != nil {
			t.Errorf("%v: unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("%v: expected %.2f, got %v", tt.in, tt.expected, got)
		}
	}
}

func TestValidatePriceRejects(t *testing.T) {
	rejects := []any{
		0, -5, 0.0, -0.01, 0.004, math.NaN(), math.Inf(1),
		"", "free", "$", "-$10", "12abc", nil, true, []int{1},
	}

	for _, v := range rejects {
		if _, err := ValidatePrice(v); !errors.Is(err, types.ErrInvalidPrice) {
			t.Errorf("%v: expected ErrInvalidPrice, got %v", v, err)
		}
	}
}

func TestBuildDefaults(t *testing.T) {
	row, err := Build(Observation{HelmetID: 3, Source: "Radtke", Median: "$150"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if row.Source != catalog.SourceRadtke {
		t.Errorf("source not normalized: %q", row.Source)
	}
	if row.MinPrice != 150 || row.MaxPrice != 150 || row.TotalResults != 1 {
		t.Errorf("defaults not applied: %+v", row)
	}
	if row.EbayURL != nil {
		t.Error("empty url should stay nil")
	}

	if _, err := Build(Observation{HelmetID: 3, Source: "craigslist", Median: 10}); !errors.Is(err, types.ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource, got %v", err)
	}
	if _, err := Build(Observation{HelmetID: 3, Source: "ebay", Median: 10, Min: 20, Max: 15}); err == nil {
		t.Error("expected error for min > max")
	}
	if _, err := Build(Observation{Source: "ebay", Median: 10}); err == nil {
		t.Error("expected error for missing helmet id")
	}
}

func TestRecorderUpsertTwice(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(ctx, "sqlite", "file:"+filepath.Join(t.TempDir(), "p.db"), testLogger)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.Migrate(ctx); err != nil {
		t.Fatal(err)
	}

	item, _, err := s.InsertItem(ctx, &catalog.Item{
		Name: "Josh Allen Bills Mini Helmet", Player: catalog.StrPtr("Josh Allen"), Team: catalog.StrPtr("Bills"),
		HelmetType: catalog.HelmetMini, DesignType: catalog.DesignRegular, IsActive: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	r := NewRecorder(s, testLogger)

	res := r.Upsert(ctx, Observation{HelmetID: item.ID, Source: "ebay", Median: 250})
	if !res.OK || !res.Created {
		t.Fatalf("first upsert: %+v", res)
	}
	res = r.Upsert(ctx, Observation{HelmetID: item.ID, Source: "ebay", Median: "275"})
	if !res.OK || res.Created {
		t.Fatalf("second upsert: %+v", res)
	}

	prices, err := s.PricesForItem(ctx, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(prices) != 1 || prices[0].MedianPrice != 275 {
		t.Errorf("expected one row at 275, got %+v", prices)
	}

	res = r.Upsert(ctx, Observation{HelmetID: item.ID, Source: "ebay", Median: 0})
	if res.OK || res.Error == "" {
		t.Errorf("zero price should fail with a message, got %+v", res)
	}
}

type failingWriter struct{}

func (failingWriter) UpsertPrice(context.Context, *catalog.PriceObservation) (bool, error) {
	panic("connection reset")
}

func TestRecorderNeverPanics(t *testing.T) {
	r := NewRecorder(failingWriter{}, testLogger)
	res := r.Upsert(context.Background(), Observation{HelmetID: 1, Source: "rsa", Median: 10})
	if res.OK || res.Error == "" {
		t.Errorf("expected error result, got %+v", res)
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   *types.PriceStats
	}{
		{"empty", nil, nil},
		{"only invalid", []float64{0, -3}, nil},
		{"odd", []float64{300, 100, 200}, &types.PriceStats{Median: 200, Min: 100, Max: 300, Total: 3}},
		{"even", []float64{100, 400, 200, 301}, &types.PriceStats{Median: 250.5, Min: 100, Max: 400, Total: 4}},
		{"rounded", []float64{10.01, 10.02}, &types.PriceStats{Median: 10.02, Min: 10.01, Max: 10.02, Total: 2}},
		{"skips zero", []float64{0, 150}, &types.PriceStats{Median: 150, Min: 150, Max: 150, Total: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.prices)
			if tt.want == nil {
				if got != nil {
					t.Errorf("expected nil, got %+v", got)
				}
				return
			}
			if got == nil || *got != *tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}
