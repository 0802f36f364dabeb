package pipeline

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// Middleware processes a listing and returns the (possibly modified) listing.
// Return nil to drop the listing from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a listing. Return nil to drop it.
	Process(l *types.Listing) (*types.Listing, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// NewDefault builds the standard listing cleanup chain:
// trim, HTML sanitize, title filter, currency normalize, required fields, dedup.
func NewDefault(logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(&TrimMiddleware{})
	p.Use(NewHTMLSanitizeMiddleware())
	p.Use(NewTitleFilterMiddleware(DefaultExcludePattern))
	p.Use(NewCurrencyNormalizeMiddleware())
	p.Use(&RequiredFieldsMiddleware{Title: true, Price: true})
	p.Use(NewDedupMiddleware())
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the listing through all middleware in order. A nil listing
// with a nil error means a stage dropped it; stage names that stage.
func (p *Pipeline) Process(l *types.Listing) (out *types.Listing, stage string, err error) {
	current := l

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, mw.Name(), &types.PipelineError{
				Stage:   mw.Name(),
				Listing: current,
				Err:     err,
			}
		}
		if result == nil {
			p.logger.Debug("listing dropped", "stage", mw.Name(), "title", l.Title)
			return nil, mw.Name(), nil
		}
		current = result
	}

	return current, "", nil
}

// Reset clears per-run state (the dedup set) so the next batch starts fresh.
func (p *Pipeline) Reset() {
	for _, mw := range p.middlewares {
		if r, ok := mw.(interface{ Reset() }); ok {
			r.Reset()
		}
	}
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// --- Built-in Middleware ---

// RequiredFieldsMiddleware drops listings without a title or a positive price.
type RequiredFieldsMiddleware struct {
	Title bool
	Price bool
}

func (m *RequiredFieldsMiddleware) Name() string { return "required_fields" }

func (m *RequiredFieldsMiddleware) Process(l *types.Listing) (*types.Listing, error) {
	if m.Title && l.Title == "" {
		return nil, nil
	}
	if m.Price && l.Price <= 0 {
		return nil, nil
	}
	return l, nil
}

// DedupMiddleware drops listings already seen in this run. The key is the
// source plus product URL, or plus title and price when there is no URL.
type DedupMiddleware struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDedupMiddleware() *DedupMiddleware {
	return &DedupMiddleware{
		seen: make(map[string]struct{}),
	}
}

func (m *DedupMiddleware) Name() string { return "dedup" }

func (m *DedupMiddleware) Process(l *types.Listing) (*types.Listing, error) {
	key := l.Source + "|" + l.URL
	if l.URL == "" {
		key = l.Source + "|" + strings.ToLower(l.Title) + "|" + l.RawPrice
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.seen[key]; exists {
		return nil, nil
	}
	m.seen[key] = struct{}{}
	return l, nil
}

// Reset forgets every key seen so far.
func (m *DedupMiddleware) Reset() {
	m.mu.Lock()
	m.seen = make(map[string]struct{})
	m.mu.Unlock()
}

// TrimMiddleware trims whitespace from every text field and hint.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(l *types.Listing) (*types.Listing, error) {
	l.Title = strings.TrimSpace(l.Title)
	l.RawPrice = strings.TrimSpace(l.RawPrice)
	l.URL = strings.TrimSpace(l.URL)
	for k, v := range l.Hints {
		if v = strings.TrimSpace(v); v == "" {
			delete(l.Hints, k)
		} else {
			l.Hints[k] = v
		}
	}
	return l, nil
}
