package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/IshaanNene/HelmetPulse/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestPipelineBasic(t *testing.T) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})

	l := types.NewListing("rsa", "  Josh Allen Signed Mini Helmet  ", " $150 ", " https://example.com/p/1 ")
	l.Hints["team"] = " Bills "
	l.Hints["player"] = "   "

	result, stage, err := p.Process(l)
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if stage != "" {
		t.Errorf("expected no drop stage, got %q", stage)
	}
	if result.Title != "Josh Allen Signed Mini Helmet" {
		t.Errorf("expected trimmed title, got %q", result.Title)
	}
	if result.RawPrice != "$150" || result.URL != "https://example.com/p/1" {
		t.Errorf("expected trimmed price and url, got %q %q", result.RawPrice, result.URL)
	}
	if result.Hint("team") != "Bills" {
		t.Errorf("expected trimmed hint, got %q", result.Hint("team"))
	}
	if _, ok := result.Hints["player"]; ok {
		t.Error("blank hint should be removed")
	}
}

type failingMiddleware struct{}

func (failingMiddleware) Name() string { return "failing" }

func (failingMiddleware) Process(*types.Listing) (*types.Listing, error) {
	return nil, errors.New("boom")
}

func TestPipelineError(t *testing.T) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})
	p.Use(failingMiddleware{})

	_, stage, err := p.Process(types.NewListing("rsa", "title", "", ""))
	if err == nil {
		t.Fatal("expected error")
	}
	var pe *types.PipelineError
	if !errors.As(err, &pe) || pe.Stage != "failing" {
		t.Errorf("expected PipelineError from failing stage, got %v", err)
	}
	if stage != "failing" {
		t.Errorf("expected stage failing, got %q", stage)
	}
}

func TestRequiredFieldsMiddleware(t *testing.T) {
	m := &RequiredFieldsMiddleware{Title: true, Price: true}

	tests := []struct {
		name  string
		title string
		price float64
		keep  bool
	}{
		{"complete", "Josh Allen Signed Mini Helmet", 150, true},
		{"no title", "", 150, false},
		{"no price", "Josh Allen Signed Mini Helmet", 0, false},
		{"negative price", "Josh Allen Signed Mini Helmet", -5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := types.NewListing("rsa", tt.title, "", "")
			l.Price = tt.price
			result, err := m.Process(l)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (result != nil) != tt.keep {
				t.Errorf("keep: expected %v, got %v", tt.keep, result != nil)
			}
		})
	}
}

func TestHTMLSanitizeMiddleware(t *testing.T) {
	m := NewHTMLSanitizeMiddleware()
	l := types.NewListing("radtke", `<span>Jerry Rice</span> <b>Signed</b> 49ers &amp; Mini Helmet`, "", "")
	l.Hints["auth_company"] = "<em>PSA/DNA</em>"

	result, err := m.Process(l)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if result.Title != "Jerry Rice Signed 49ers & Mini Helmet" {
		t.Errorf("unexpected sanitized title: %q", result.Title)
	}
	if result.Hint("auth_company") != "PSA/DNA" {
		t.Errorf("unexpected sanitized hint: %q", result.Hint("auth_company"))
	}
}

func TestCurrencyNormalizeMiddleware(t *testing.T) {
	m := NewCurrencyNormalizeMiddleware()

	tests := []struct {
		raw      string
		expected float64
	}{
		{"$1,299.99", 1299.99},
		{"$1,299", 1299},
		{"1.299,99 €", 1299.99},
		{"12,50", 12.50},
		{"USD 450.00", 450},
		{"$85 - $120", 85},
		{"$85 to $120", 85},
		{"Sold out", 0},
		{"", 0},
	}

	for _, tt := range tests {
		l := types.NewListing("rsa", "title", tt.raw, "")
		result, err := m.Process(l)
		if err != nil {
			t.Fatalf("%q: error: %v", tt.raw, err)
		}
		if result.Price != tt.expected {
			t.Errorf("%q: expected %v, got %v", tt.raw, tt.expected, result.Price)
		}
	}
}

func TestCurrencyNormalizePrefersStats(t *testing.T) {
	m := NewCurrencyNormalizeMiddleware()
	l := types.NewListing("ebay", "title", "$10", "")
	l.Stats = &types.PriceStats{Median: 325, Min: 300, Max: 350, Total: 4}

	result, _ := m.Process(l)
	if result.Price != 325 {
		t.Errorf("expected median 325, got %v", result.Price)
	}

	l = types.NewListing("rsa", "title", "$10", "")
	l.Price = 99
	result, _ = m.Process(l)
	if result.Price != 99 {
		t.Errorf("existing price should be kept, got %v", result.Price)
	}
}

func TestTitleFilterMiddleware(t *testing.T) {
	m := NewTitleFilterMiddleware(DefaultExcludePattern)

	tests := []struct {
		title string
		keep  bool
	}{
		{"Patrick Mahomes Signed Mini Helmet", true},
		{"Patrick Mahomes Signed 8x10 Photo", false},
		{"Josh Allen Signed Jersey", false},
		{"Lot of 3 Mini Helmets", false},
		{"Tom Brady Signed Card", false},
	}

	for _, tt := range tests {
		result, err := m.Process(types.NewListing("ebay", tt.title, "", ""))
		if err != nil {
			t.Fatalf("error: %v", err)
		}
		if (result != nil) != tt.keep {
			t.Errorf("%q: keep expected %v", tt.title, tt.keep)
		}
	}

	if _, err := CompileTitleFilter("(bad"); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestDedupMiddleware(t *testing.T) {
	m := NewDedupMiddleware()

	first := types.NewListing("rsa", "Josh Allen Mini", "$150", "https://example.com/a")
	dup := types.NewListing("rsa", "Josh Allen Mini (copy)", "$150", "https://example.com/a")
	other := types.NewListing("radtke", "Josh Allen Mini", "$150", "https://example.com/a")
	noURL := types.NewListing("rsa", "Josh Allen Mini", "$150", "")
	noURLDup := types.NewListing("rsa", "JOSH ALLEN MINI", "$150", "")

	if r, _ := m.Process(first); r == nil {
		t.Error("first listing should pass")
	}
	if r, _ := m.Process(dup); r != nil {
		t.Error("same source and url should be dropped")
	}
	if r, _ := m.Process(other); r == nil {
		t.Error("same url from another source should pass")
	}
	if r, _ := m.Process(noURL); r == nil {
		t.Error("listing without url should pass")
	}
	if r, _ := m.Process(noURLDup); r != nil {
		t.Error("same title and price without url should be dropped")
	}

	m.Reset()
	if r, _ := m.Process(types.NewListing("rsa", "Josh Allen Mini", "$150", "https://example.com/a")); r == nil {
		t.Error("listing should pass again after reset")
	}
}

func TestDefaultPipeline(t *testing.T) {
	p := NewDefault(testLogger)
	if p.Len() != 6 {
		t.Fatalf("expected 6 stages, got %d", p.Len())
	}

	l := types.NewListing("rsa", " <b>Josh Allen</b> Signed Mini Helmet ", "$1,150.00", "https://example.com/a")
	result, stage, err := p.Process(l)
	if err != nil || result == nil {
		t.Fatalf("expected listing to pass, stage=%q err=%v", stage, err)
	}
	if result.Price != 1150 {
		t.Errorf("expected 1150, got %v", result.Price)
	}

	_, stage, _ = p.Process(types.NewListing("rsa", "Josh Allen Signed Mini Helmet", "Sold out", "https://example.com/b"))
	if stage != "required_fields" {
		t.Errorf("expected drop at required_fields, got %q", stage)
	}
}

func BenchmarkPipeline(b *testing.B) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})
	p.Use(NewHTMLSanitizeMiddleware())
	p.Use(NewCurrencyNormalizeMiddleware())
	p.Use(&RequiredFieldsMiddleware{Title: true, Price: true})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l := types.NewListing("rsa", "  <b>Josh Allen</b> Signed Mini Helmet  ", "$150.00", "https://example.com")
		p.Process(l)
	}
}
