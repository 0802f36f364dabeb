package parser

import (
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// Selectors describe where listings live on a vendor page. Container selects
// one element per product; the other selectors are evaluated inside it.
type Selectors struct {
	Container string
	Title     string
	Price     string
	Link      string
	// LinkAttr defaults to "href".
	LinkAttr string
	// Next selects the pagination link to the following results page.
	Next string
}

// Extractor pulls raw listings out of a fetched page.
type Extractor interface {
	// Extract returns the listings on the page and the next page URL ("" when last).
	Extract(resp *types.Response, source string, sel Selectors) ([]*types.Listing, string, error)
}
