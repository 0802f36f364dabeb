// Package reconcile links parsed candidates to catalog rows.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/HelmetPulse/internal/catalog"
	"github.com/IshaanNene/HelmetPulse/internal/parser"
	"github.com/IshaanNene/HelmetPulse/internal/store"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// ErrNoPlayer is returned for candidates the parser could not attach a player to.
var ErrNoPlayer = errors.New("candidate has no player")

// Level says which lookup key produced a match.
type Level int

const (
	MatchNone Level = iota
	// MatchExact is (player, team, helmet_type, design_type).
	MatchExact
	// MatchAnyDesign is (player, team, helmet_type).
	MatchAnyDesign
	// MatchPlayerTeam is (player, team).
	MatchPlayerTeam
)

func (l Level) String() string {
	switch l {
	case MatchExact:
		return "exact"
	case MatchAnyDesign:
		return "any_design"
	case MatchPlayerTeam:
		return "player_team"
	default:
		return "none"
	}
}

// Relaxed reports whether the match ignored part of the natural key.
func (l Level) Relaxed() bool { return l == MatchAnyDesign || l == MatchPlayerTeam }

// Catalog is the subset of the store the reconciler needs.
type Catalog interface {
	FindItem(ctx context.Context, q store.ItemQuery) (*catalog.Item, error)
	InsertItem(ctx context.Context, item *catalog.Item) (*catalog.Item, bool, error)
}

// Options tunes matching.
type Options struct {
	// Strict restricts matching to the exact natural key.
	Strict bool
}

// Outcome describes a FindOrCreate call.
type Outcome struct {
	Level   Level
	Created bool
}

// Reconciler decides whether a candidate refers to an existing catalog item.
type Reconciler struct {
	catalog Catalog
	opts    Options
	logger  *slog.Logger
}

// New creates a Reconciler.
func New(c Catalog, opts Options, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		catalog: c,
		opts:    opts,
		logger:  logger.With("component", "reconciler"),
	}
}

// Find returns the first item matching c, trying the exact key and then, unless
// strict, the relaxed keys. It never writes. types.ErrNotFound means no match.
func (r *Reconciler) Find(ctx context.Context, c parser.Candidate) (*catalog.Item, Level, error) {
	if c.Player == nil {
		return nil, MatchNone, ErrNoPlayer
	}
	return r.find(ctx, c, !r.opts.Strict)
}

func (r *Reconciler) find(ctx context.Context, c parser.Candidate, relaxed bool) (*catalog.Item, Level, error) {
	steps := []struct {
		level Level
		q     store.ItemQuery
	}{
		{MatchExact, store.ItemQuery{Player: c.PlayerName(), Team: c.TeamName(), HelmetType: c.HelmetType, DesignType: designOf(c)}},
		{MatchAnyDesign, store.ItemQuery{Player: c.PlayerName(), Team: c.TeamName(), HelmetType: c.HelmetType}},
		{MatchPlayerTeam, store.ItemQuery{Player: c.PlayerName(), Team: c.TeamName()}},
	}
	if !relaxed {
		steps = steps[:1]
	}

	for _, step := range steps {
		item, err := r.catalog.FindItem(ctx, step.q)
		if errors.Is(err, types.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, MatchNone, err
		}
		if step.level.Relaxed() {
			r.logger.Warn("relaxed catalog match",
				"level", step.level.String(),
				"candidate", c.String(),
				"item_id", item.ID,
				"item_helmet_type", item.HelmetType,
				"item_design_type", item.DesignType,
			)
		}
		return item, step.level, nil
	}
	return nil, MatchNone, types.ErrNotFound
}

// FindOrCreate returns the catalog item for c, inserting one when none exists.
// Relaxed matches are only accepted for regular-design candidates; a variant
// candidate always gets its own row. The insert is idempotent on the natural key.
func (r *Reconciler) FindOrCreate(ctx context.Context, c parser.Candidate) (*catalog.Item, Outcome, error) {
	if c.Player == nil {
		return nil, Outcome{}, ErrNoPlayer
	}

	relaxed := !r.opts.Strict && designOf(c) == catalog.DesignRegular
	item, level, err := r.find(ctx, c, relaxed)
	if err == nil {
		return item, Outcome{Level: level}, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, Outcome{}, err
	}

	fresh := NewItem(c)
	item, created, err := r.catalog.InsertItem(ctx, fresh)
	if err != nil {
		return nil, Outcome{}, fmt.Errorf("create %q: %w", fresh.Name, err)
	}
	if created {
		r.logger.Info("catalog item created", "id", item.ID, "name", item.Name)
	}
	return item, Outcome{Level: MatchExact, Created: created}, nil
}

// NewItem builds an unsaved catalog item from a candidate.
func NewItem(c parser.Candidate) *catalog.Item {
	player, team, dt := c.PlayerName(), c.TeamName(), designOf(c)
	return &catalog.Item{
		Name:            catalog.DisplayName(player, team, c.HelmetType, dt),
		Player:          catalog.StrPtr(player),
		Team:            catalog.StrPtr(team),
		HelmetType:      c.HelmetType,
		DesignType:      dt,
		AuthCompany:     c.AuthCompany,
		EbaySearchQuery: catalog.SearchQuery(player, team, c.HelmetType, dt),
		IsActive:        true,
	}
}

func designOf(c parser.Candidate) catalog.DesignType {
	if c.DesignType == "" {
		return catalog.DesignRegular
	}
	return c.DesignType
}
