package pricing

import (
	"time"

	"github.com/IshaanNene/HelmetPulse/internal/catalog"
)

// Quote is the price summary served by the price API and mailed to subscribers.
type Quote struct {
	HelmetID     int64     `json:"helmet_id"`
	Name         string    `json:"name"`
	MedianPrice  float64   `json:"median_price"`
	MinPrice     float64   `json:"min_price"`
	MaxPrice     float64   `json:"max_price"`
	TotalResults int       `json:"total_results"`
	Source       string    `json:"source"`
	ScrapedAt    time.Time `json:"scraped_at"`
}

// BestQuote picks the observation to quote for item: eBay sold data when
// present, otherwise the most recently scraped source.
func BestQuote(item *catalog.Item, prices []catalog.PriceObservation) (*Quote, bool) {
	var best *catalog.PriceObservation
	for i := range prices {
		p := &prices[i]
		switch {
		case best == nil:
			best = p
		case best.Source == catalog.SourceEbay:
		case p.Source == catalog.SourceEbay, p.ScrapedAt.After(best.ScrapedAt):
			best = p
		}
	}
	if best == nil {
		return nil, false
	}
	return &Quote{
		HelmetID:     item.ID,
		Name:         item.Name,
		MedianPrice:  best.MedianPrice,
		MinPrice:     best.MinPrice,
		MaxPrice:     best.MaxPrice,
		TotalResults: best.TotalResults,
		Source:       string(best.Source),
		ScrapedAt:    best.ScrapedAt,
	}, true
}
