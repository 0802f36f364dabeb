// Package api serves catalog prices over HTTP. The notifier's weekly report
// reads from GET /api/helmets/price.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/IshaanNene/HelmetPulse/internal/catalog"
	"github.com/IshaanNene/HelmetPulse/internal/config"
	"github.com/IshaanNene/HelmetPulse/internal/observability"
	"github.com/IshaanNene/HelmetPulse/internal/parser"
	"github.com/IshaanNene/HelmetPulse/internal/pricing"
	"github.com/IshaanNene/HelmetPulse/internal/store"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// Catalog is the read side of the store the API needs.
type Catalog interface {
	FindItem(ctx context.Context, q store.ItemQuery) (*catalog.Item, error)
	GetItem(ctx context.Context, id int64) (*catalog.Item, error)
	PricesForItem(ctx context.Context, helmetID int64) ([]catalog.PriceObservation, error)
	CountItems(ctx context.Context) (int64, error)
}

// Server provides the read-only price API.
type Server struct {
	mux     *http.ServeMux
	port    int
	catalog Catalog
	parser  *parser.Parser
	metrics *observability.Metrics
	logger  *slog.Logger
}

// ItemResponse is an item with all of its price rows.
type ItemResponse struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	Player     string         `json:"player"`
	Team       string         `json:"team"`
	HelmetType string         `json:"helmet_type"`
	DesignType string         `json:"design_type"`
	Prices     []PriceRecord  `json:"prices"`
	Quote      *pricing.Quote `json:"quote,omitempty"`
}

// PriceRecord is one source's observation.
type PriceRecord struct {
	Source       string    `json:"source"`
	MedianPrice  float64   `json:"median_price"`
	MinPrice     float64   `json:"min_price"`
	MaxPrice     float64   `json:"max_price"`
	TotalResults int       `json:"total_results"`
	ScrapedAt    time.Time `json:"scraped_at"`
}

// NewServer creates a new API server. The parser canonicalizes team names
// and known misspellings in lookups.
func NewServer(port int, c Catalog, p *parser.Parser, logger *slog.Logger) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		port:    port,
		catalog: c,
		parser:  p,
		logger:  logger.With("component", "api_server"),
	}

	s.registerRoutes()
	return s
}

// SetMetrics exposes run counters on /api/stats.
func (s *Server) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("API server starting", "addr", srv.Addr)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	s.logger.Info("API server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/helmets/price", s.handlePrice)
	s.mux.HandleFunc("GET /api/helmets/{id}", s.handleItem)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}

// handlePrice answers ?player=&team=&type= with the best quote. Team and type
// are optional; without them an item of any team or type may match, regular
// designs first.
func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	player := strings.TrimSpace(q.Get("player"))
	if player == "" {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "player is required"})
		return
	}
	if fixed, ok := s.parser.Correct(player); ok {
		player = fixed
	}

	iq := store.ItemQuery{Player: player, AnyTeam: true}
	if team := strings.TrimSpace(q.Get("team")); team != "" {
		iq.Team, iq.AnyTeam = team, false
		if canonical, ok := s.parser.Team(team); ok {
			iq.Team = canonical
		}
	}

	if raw := strings.TrimSpace(q.Get("type")); raw != "" {
		ht, ok := s.parser.LookupHelmetType(raw)
		if !ok {
			s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown helmet type %q", raw)})
			return
		}
		iq.HelmetType = ht
	}

	item, err := s.catalog.FindItem(r.Context(), iq)
	if errors.Is(err, types.ErrNotFound) {
		s.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "helmet not found"})
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}

	prices, err := s.catalog.PricesForItem(r.Context(), item.ID)
	if err != nil {
		s.serverError(w, err)
		return
	}
	quote, ok := pricing.BestQuote(item, prices)
	if !ok {
		s.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "no prices recorded"})
		return
	}
	s.jsonResponse(w, http.StatusOK, quote)
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid helmet id"})
		return
	}

	item, err := s.catalog.GetItem(r.Context(), id)
	if errors.Is(err, types.ErrNotFound) {
		s.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "helmet not found"})
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}
	prices, err := s.catalog.PricesForItem(r.Context(), id)
	if err != nil {
		s.serverError(w, err)
		return
	}

	resp := ItemResponse{
		ID:         item.ID,
		Name:       item.Name,
		Player:     item.PlayerName(),
		Team:       item.TeamName(),
		HelmetType: string(item.HelmetType),
		DesignType: string(item.DesignType),
		Prices:     make([]PriceRecord, 0, len(prices)),
	}
	for _, p := range prices {
		resp.Prices = append(resp.Prices, PriceRecord{
			Source:       string(p.Source),
			MedianPrice:  p.MedianPrice,
			MinPrice:     p.MinPrice,
			MaxPrice:     p.MaxPrice,
			TotalResults: p.TotalResults,
			ScrapedAt:    p.ScrapedAt,
		})
	}
	if q, ok := pricing.BestQuote(item, prices); ok {
		resp.Quote = q
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	n, err := s.catalog.CountItems(r.Context())
	if err != nil {
		s.serverError(w, err)
		return
	}
	stats := map[string]any{"items": n}
	if s.metrics != nil {
		stats["counters"] = s.metrics.Snapshot()
	}
	s.jsonResponse(w, http.StatusOK, stats)
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", "error", err)
	s.jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
