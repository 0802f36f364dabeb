package types

import (
	"time"
)

// Hint keys a collector or importer may set when the source already knows a field.
const (
	HintPlayer      = "player"
	HintTeam        = "team"
	HintHelmetType  = "helmet_type"
	HintDesignType  = "design_type"
	HintAuthCompany = "auth_company"
)

// Listing is one raw product record from a marketplace page or a spreadsheet row.
type Listing struct {
	// Source is the price source name (ebay, rsa, ...).
	Source string `json:"source" bson:"source"`

	// Title is the unstructured product title.
	Title string `json:"title" bson:"title"`

	// RawPrice is the price text as scraped ("$1,299.99").
	RawPrice string `json:"raw_price,omitempty" bson:"raw_price,omitempty"`

	// Price is the numeric price, filled by the currency stage when zero.
	Price float64 `json:"price,omitempty" bson:"price,omitempty"`

	// URL is the product page the listing came from.
	URL string `json:"url,omitempty" bson:"url,omitempty"`

	// Hints are source-provided overrides for parsed fields.
	Hints map[string]string `json:"hints,omitempty" bson:"hints,omitempty"`

	// Stats carries pre-aggregated prices (eBay sold searches).
	Stats *PriceStats `json:"stats,omitempty" bson:"stats,omitempty"`

	// HelmetID is set when the listing was collected for a known catalog item.
	HelmetID int64 `json:"helmet_id,omitempty" bson:"helmet_id,omitempty"`

	// ScrapedAt is when the listing was collected.
	ScrapedAt time.Time `json:"scraped_at" bson:"scraped_at"`
}

// PriceStats summarizes a set of observed prices.
type PriceStats struct {
	Median float64 `json:"median" bson:"median"`
	Min    float64 `json:"min" bson:"min"`
	Max    float64 `json:"max" bson:"max"`
	Total  int     `json:"total" bson:"total"`
}

// NewListing creates a listing stamped with the current time.
func NewListing(source, title, rawPrice, url string) *Listing {
	return &Listing{
		Source:    source,
		Title:     title,
		RawPrice:  rawPrice,
		URL:       url,
		Hints:     make(map[string]string),
		ScrapedAt: time.Now(),
	}
}

// SetHint records a source-provided field value. Empty values are ignored.
func (l *Listing) SetHint(key, value string) {
	if value == "" {
		return
	}
	if l.Hints == nil {
		l.Hints = make(map[string]string)
	}
	l.Hints[key] = value
}

// Hint returns a hint value or "".
func (l *Listing) Hint(key string) string {
	if l.Hints == nil {
		return ""
	}
	return l.Hints[key]
}

// Clone creates a deep copy of the listing.
func (l *Listing) Clone() *Listing {
	clone := *l
	clone.Hints = make(map[string]string, len(l.Hints))
	for k, v := range l.Hints {
		clone.Hints[k] = v
	}
	if l.Stats != nil {
		s := *l.Stats
		clone.Stats = &s
	}
	return &clone
}
