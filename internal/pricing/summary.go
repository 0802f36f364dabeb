package pricing

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// Summarize reduces a set of sold prices to median, min, max and count.
// Non-positive prices are ignored; nil is returned when none remain.
// An even count takes the mean of the two middle prices, rounded to cents.
func Summarize(prices []float64) *types.PriceStats {
	valid := make([]float64, 0, len(prices))
	for _, p := range prices {
		if p > 0 {
			valid = append(valid, p)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	sort.Float64s(valid)

	n := len(valid)
	median := decimal.NewFromFloat(valid[n/2])
	if n%2 == 0 {
		median = decimal.NewFromFloat(valid[n/2-1]).Add(median).Div(decimal.NewFromInt(2))
	}
	m, _ := median.Round(2).Float64()

	return &types.PriceStats{
		Median: m,
		Min:    valid[0],
		Max:    valid[n-1],
		Total:  n,
	}
}
