// Package pricing validates and records price observations.
package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/IshaanNene/HelmetPulse/internal/catalog"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// Observation is one price to record. Min and Max may be nil, in which case
// they default to the median. Prices may be numbers or numeric strings.
type Observation struct {
	HelmetID     int64
	Source       string
	Median       any
	Min          any
	Max          any
	TotalResults int
	URL          string
	ScrapedAt    time.Time
}

// Result reports the outcome of one upsert. Error is empty when OK.
type Result struct {
	OK      bool
	Created bool
	Error   string
}

// PriceWriter is implemented by the store.
type PriceWriter interface {
	UpsertPrice(ctx context.Context, p *catalog.PriceObservation) (bool, error)
}

// Recorder validates observations and writes them, one row per (helmet, source).
type Recorder struct {
	store  PriceWriter
	logger *slog.Logger
}

// NewRecorder creates a Recorder.
func NewRecorder(store PriceWriter, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger.With("component", "price_recorder"),
	}
}

// Upsert validates obs and writes it. Failures are reported in the Result,
// never returned or panicked.
func (r *Recorder) Upsert(ctx context.Context, obs Observation) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Result{Error: fmt.Sprintf("price upsert panicked: %v", p)}
		}
	}()

	row, err := Build(obs)
	if err != nil {
		return Result{Error: err.Error()}
	}

	created, err := r.store.UpsertPrice(ctx, row)
	if err != nil {
		return Result{Error: err.Error()}
	}

	r.logger.Debug("price recorded",
		"helmet_id", row.HelmetID,
		"source", row.Source,
		"median", row.MedianPrice,
		"created", created,
	)
	return Result{OK: true, Created: created}
}

// Build validates obs and converts it to a storable row.
func Build(obs Observation) (*catalog.PriceObservation, error) {
	if obs.HelmetID <= 0 {
		return nil, fmt.Errorf("invalid helmet id %d", obs.HelmetID)
	}
	source, err := catalog.ParseSource(obs.Source)
	if err != nil {
		return nil, err
	}

	median, err := ValidatePrice(obs.Median)
	if err != nil {
		return nil, fmt.Errorf("median: %w", err)
	}
	lo, hi := median, median
	if obs.Min != nil {
		if lo, err = ValidatePrice(obs.Min); err != nil {
			return nil, fmt.Errorf("min: %w", err)
		}
	}
	if obs.Max != nil {
		if hi, err = ValidatePrice(obs.Max); err != nil {
			return nil, fmt.Errorf("max: %w", err)
		}
	}
	if lo > hi {
		return nil, fmt.Errorf("%w: min %.2f exceeds max %.2f", types.ErrInvalidPrice, lo, hi)
	}

	total := obs.TotalResults
	if total <= 0 {
		total = 1
	}

	return &catalog.PriceObservation{
		HelmetID:     obs.HelmetID,
		Source:       source,
		MedianPrice:  median,
		MinPrice:     lo,
		MaxPrice:     hi,
		TotalResults: total,
		EbayURL:      catalog.StrPtr(obs.URL),
		ScrapedAt:    obs.ScrapedAt,
	}, nil
}

// ValidatePrice accepts positive numbers and numeric strings ("$1,250.00")
// and rounds half away from zero to cents. Zero, negative, NaN, infinite and
// non-numeric values are rejected with types.ErrInvalidPrice.
func ValidatePrice(v any) (float64, error) {
	var d decimal.Decimal

	switch p := v.(type) {
	case nil:
		return 0, fmt.Errorf("%w: missing", types.ErrInvalidPrice)
	case float64:
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return 0, fmt.Errorf("%w: %v", types.ErrInvalidPrice, p)
		}
		d = decimal.NewFromFloat(p)
	case float32:
		f := float64(p)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("%w: %v", types.ErrInvalidPrice, p)
		}
		d = decimal.NewFromFloat32(p)
	case int:
		d = decimal.NewFromInt(int64(p))
	case int64:
		d = decimal.NewFromInt(p)
	case int32:
		d = decimal.NewFromInt32(p)
	case decimal.Decimal:
		d = p
	case string:
		parsed, err := ParseMoney(p)
		if err != nil {
			return 0, err
		}
		d = parsed
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", types.ErrInvalidPrice, v)
	}

	d = d.Round(2)
	if !d.IsPositive() {
		return 0, fmt.Errorf("%w: %s is not positive", types.ErrInvalidPrice, d.StringFixed(2))
	}
	f, _ := d.Float64()
	return f, nil
}

// ParseMoney parses price text such as "$1,299.99", "US $85" or "85.00 USD".
// Commas are always thousands separators.
func ParseMoney(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimSuffix(clean, "USD")
	clean = strings.TrimPrefix(strings.TrimPrefix(clean, "USD"), "US")
	clean = strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', ' ', '\u00a0', '\t':
			return -1
		}
		return r
	}, clean)

	if clean == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", types.ErrInvalidPrice, s)
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", types.ErrInvalidPrice, s)
	}
	return d, nil
}
