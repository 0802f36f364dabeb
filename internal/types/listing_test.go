package types

import "testing"

func TestListingHints(t *testing.T) {
	l := NewListing("rsa", "Josh Allen Bills Mini Helmet", "$99.99", "https://example.com/p/1")
	l.SetHint(HintPlayer, "Josh Allen")
	l.SetHint(HintTeam, "")

	if got := l.Hint(HintPlayer); got != "Josh Allen" {
		t.Errorf("expected player hint, got %q", got)
	}
	if _, ok := l.Hints[HintTeam]; ok {
		t.Error("empty hint should not be recorded")
	}

	var zero Listing
	if zero.Hint(HintPlayer) != "" {
		t.Error("nil hints should read as empty")
	}
}

func TestListingClone(t *testing.T) {
	l := NewListing("ebay", "title", "", "")
	l.Stats = &PriceStats{Median: 100, Min: 50, Max: 150, Total: 3}
	l.SetHint(HintTeam, "Bills")

	c := l.Clone()
	c.Stats.Median = 1
	c.Hints[HintTeam] = "Jets"

	if l.Stats.Median != 100 {
		t.Error("clone shares stats")
	}
	if l.Hint(HintTeam) != "Bills" {
		t.Error("clone shares hints")
	}
}

func TestNewRequestRejectsBadScheme(t *testing.T) {
	if _, err := NewRequest("ftp://example.com"); err == nil {
		t.Error("expected error for ftp scheme")
	}
	req, err := NewRequest("https://shoprsa.com/products.json?page=2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Domain() != "shoprsa.com" {
		t.Errorf("unexpected domain %q", req.Domain())
	}
}
