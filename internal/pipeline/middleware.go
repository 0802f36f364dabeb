package pipeline

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// --- Advanced Middleware ---

// HTMLSanitizeMiddleware strips HTML tags and entities from the title and hints.
type HTMLSanitizeMiddleware struct {
	stripRe *regexp.Regexp
}

func NewHTMLSanitizeMiddleware() *HTMLSanitizeMiddleware {
	return &HTMLSanitizeMiddleware{
		stripRe: regexp.MustCompile(`<[^>]*>`),
	}
}

func (m *HTMLSanitizeMiddleware) Name() string { return "html_sanitize" }

func (m *HTMLSanitizeMiddleware) Process(l *types.Listing) (*types.Listing, error) {
	l.Title = m.clean(l.Title)
	for k, v := range l.Hints {
		l.Hints[k] = m.clean(v)
	}
	return l, nil
}

func (m *HTMLSanitizeMiddleware) clean(s string) string {
	cleaned := m.stripRe.ReplaceAllString(s, " ")
	cleaned = html.UnescapeString(cleaned)
	return strings.Join(strings.Fields(cleaned), " ")
}

// CurrencyNormalizeMiddleware fills Price from RawPrice ("$1,299.99",
// "1.299,99 €", "$85 - $120"). Pre-aggregated stats win over the raw text.
// Unparseable prices leave Price at zero for RequiredFields to drop.
type CurrencyNormalizeMiddleware struct {
	stripRe *regexp.Regexp
}

func NewCurrencyNormalizeMiddleware() *CurrencyNormalizeMiddleware {
	return &CurrencyNormalizeMiddleware{
		stripRe: regexp.MustCompile(`[^0-9.,\-]`),
	}
}

func (m *CurrencyNormalizeMiddleware) Name() string { return "currency_normalize" }

func (m *CurrencyNormalizeMiddleware) Process(l *types.Listing) (*types.Listing, error) {
	if l.Stats != nil && l.Stats.Median > 0 {
		l.Price = l.Stats.Median
		return l, nil
	}
	if l.Price > 0 || l.RawPrice == "" {
		return l, nil
	}

	// A range ("$85 - $120") is priced at its low end.
	raw := l.RawPrice
	if i := strings.Index(raw, " - "); i > 0 {
		raw = raw[:i]
	} else if i := strings.Index(raw, " to "); i > 0 {
		raw = raw[:i]
	}

	numeric := m.stripRe.ReplaceAllString(raw, "")
	numeric = strings.Trim(numeric, "-.,")

	if strings.Contains(numeric, ",") {
		lastComma := strings.LastIndex(numeric, ",")
		lastDot := strings.LastIndex(numeric, ".")
		if lastComma > lastDot && len(numeric)-lastComma == 3 {
			// European: 1.234,56
			numeric = strings.ReplaceAll(numeric, ".", "")
			numeric = strings.Replace(numeric, ",", ".", 1)
		} else {
			// US: 1,234.56
			numeric = strings.ReplaceAll(numeric, ",", "")
		}
	}

	d, err := decimal.NewFromString(numeric)
	if err != nil {
		return l, nil
	}
	l.Price, _ = d.Round(2).Float64()
	return l, nil
}

// DefaultExcludePattern matches listings that are not helmets: photos, cards,
// jerseys and other memorabilia that share player names with helmet listings.
const DefaultExcludePattern = `(?i)\b(photo|photograph|8x10|11x14|16x20|card|jersey|cleats?|gloves?|lot\s+of)\b`

// TitleFilterMiddleware drops listings whose title matches an exclusion pattern.
type TitleFilterMiddleware struct {
	exclude *regexp.Regexp
}

// NewTitleFilterMiddleware compiles pattern; it panics on an invalid pattern
// like regexp.MustCompile. Use CompileTitleFilter for user-supplied patterns.
func NewTitleFilterMiddleware(pattern string) *TitleFilterMiddleware {
	m, err := CompileTitleFilter(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// CompileTitleFilter compiles a user-supplied exclusion pattern.
func CompileTitleFilter(pattern string) (*TitleFilterMiddleware, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid title filter %q: %w", pattern, err)
	}
	return &TitleFilterMiddleware{exclude: re}, nil
}

func (m *TitleFilterMiddleware) Name() string { return "title_filter" }

func (m *TitleFilterMiddleware) Process(l *types.Listing) (*types.Listing, error) {
	if m.exclude.MatchString(l.Title) {
		return nil, nil
	}
	return l, nil
}
