// Package cleanup holds the catalog repair jobs. Each job scans whole tables
// page by page, reports what it found and, unless running dry, fixes it.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/IshaanNene/HelmetPulse/internal/catalog"
	"github.com/IshaanNene/HelmetPulse/internal/parser"
	"github.com/IshaanNene/HelmetPulse/internal/store"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// Job names accepted by Run.
const (
	JobOrphans         = "orphans"
	JobNames           = "names"
	JobJunk            = "junk"
	JobDuplicates      = "duplicates"
	JobPriceDuplicates = "price-duplicates"
)

// Jobs lists the scan-and-fix jobs in the order "cleanup all" runs them.
// Names go before duplicates so corrected spellings merge in the same pass.
var Jobs = []string{JobOrphans, JobNames, JobJunk, JobDuplicates, JobPriceDuplicates}

// ErrUnknownJob is returned by Run for a name not in Jobs.
var ErrUnknownJob = errors.New("unknown cleanup job")

// Report describes one job run.
type Report struct {
	Job      string
	DryRun   bool
	Examined int
	Changed  int
	Details  []string
}

func (r *Report) note(format string, args ...any) {
	r.Details = append(r.Details, fmt.Sprintf(format, args...))
}

// Print writes a human-readable report.
func (r Report) Print(w io.Writer) {
	verb := "changed"
	if r.DryRun {
		verb = "would change"
	}
	fmt.Fprintf(w, "%s: examined %d, %s %d\n", r.Job, r.Examined, verb, r.Changed)
	for _, d := range r.Details {
		fmt.Fprintf(w, "  %s\n", d)
	}
}

// Cleaner runs repair jobs against one store.
type Cleaner struct {
	store  *store.Store
	parser *parser.Parser
	dryRun bool
	logger *slog.Logger
}

// New creates a Cleaner. With dryRun set every job only reports.
func New(s *store.Store, p *parser.Parser, dryRun bool, logger *slog.Logger) *Cleaner {
	return &Cleaner{
		store:  s,
		parser: p,
		dryRun: dryRun,
		logger: logger.With("component", "cleanup"),
	}
}

// Run executes the named job.
func (c *Cleaner) Run(ctx context.Context, job string) (Report, error) {
	var (
		r   Report
		err error
	)
	switch job {
	case JobOrphans:
		r, err = c.Orphans(ctx)
	case JobNames:
		r, err = c.Names(ctx)
	case JobJunk:
		r, err = c.Junk(ctx)
	case JobDuplicates:
		r, err = c.Duplicates(ctx)
	case JobPriceDuplicates:
		r, err = c.PriceDuplicates(ctx)
	default:
		return Report{}, fmt.Errorf("%w: %q", ErrUnknownJob, job)
	}
	if err != nil {
		return r, fmt.Errorf("cleanup %s: %w", job, err)
	}
	c.logger.Info("cleanup job finished",
		"job", r.Job,
		"examined", r.Examined,
		"changed", r.Changed,
		"dry_run", r.DryRun,
	)
	return r, nil
}

func (c *Cleaner) report(job string) Report {
	return Report{Job: job, DryRun: c.dryRun}
}

// Orphans deletes price rows whose helmet no longer exists.
func (c *Cleaner) Orphans(ctx context.Context) (Report, error) {
	r := c.report(JobOrphans)

	ids, err := c.itemIDs(ctx)
	if err != nil {
		return r, err
	}

	var orphans []int64
	err = c.store.ScanPrices(ctx, func(page []catalog.PriceObservation) error {
		for _, p := range page {
			r.Examined++
			if !ids[p.HelmetID] {
				orphans = append(orphans, p.ID)
				r.note("price %d: helmet %d missing (%s $%.2f)", p.ID, p.HelmetID, p.Source, p.MedianPrice)
			}
		}
		return nil
	})
	if err != nil {
		return r, err
	}

	r.Changed = len(orphans)
	if c.dryRun || len(orphans) == 0 {
		return r, nil
	}
	_, err = c.store.DeletePrices(ctx, orphans)
	return r, err
}

// Names applies the spelling corrections table to every player. When the
// corrected item already exists the misspelled one is merged into it.
func (c *Cleaner) Names(ctx context.Context) (Report, error) {
	r := c.report(JobNames)

	type fix struct {
		item  catalog.Item
		fixed string
	}
	var fixes []fix
	err := c.store.ScanItems(ctx, func(page []catalog.Item) error {
		for _, it := range page {
			r.Examined++
			if fixed, ok := c.parser.Correct(it.PlayerName()); ok {
				fixes = append(fixes, fix{it, fixed})
			}
		}
		return nil
	})
	if err != nil {
		return r, err
	}

	for _, f := range fixes {
		it := f.item
		existing, err := c.store.FindItem(ctx, store.ItemQuery{
			Player:     f.fixed,
			Team:       it.TeamName(),
			HelmetType: it.HelmetType,
			DesignType: it.DesignType,
		})
		if err != nil && !errors.Is(err, types.ErrNotFound) {
			return r, err
		}

		r.Changed++
		if existing != nil && existing.ID != it.ID {
			r.note("helmet %d: %q -> %q, merged into %d", it.ID, it.PlayerName(), f.fixed, existing.ID)
			if !c.dryRun {
				if _, err := c.store.MergeItems(ctx, existing.ID, []int64{it.ID}); err != nil {
					return r, err
				}
			}
			continue
		}

		r.note("helmet %d: %q -> %q", it.ID, it.PlayerName(), f.fixed)
		if c.dryRun {
			continue
		}
		name := catalog.DisplayName(f.fixed, it.TeamName(), it.HelmetType, it.DesignType)
		query := catalog.SearchQuery(f.fixed, it.TeamName(), it.HelmetType, it.DesignType)
		if err := c.store.UpdateItemPlayer(ctx, it.ID, f.fixed, name, query); err != nil {
			return r, err
		}
	}
	return r, nil
}

var boilerplate = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(nfl|riddell|full\s*-?\s*size|mini|midi|signed|autographed|authentic|replica|speed\s*flex)\b`),
	regexp.MustCompile(`(?i)\b(helmets?|signed|autographed)$`),
	regexp.MustCompile(`\d`),
	regexp.MustCompile(`^[^A-Za-z]*$`),
}

// JunkReason returns why a player value cannot be a real player, or "".
func (c *Cleaner) JunkReason(player string) string {
	player = strings.TrimSpace(player)
	switch {
	case player == "":
		return "no player"
	case c.parser.IsKnownPlayer(player):
		return ""
	case c.parser.IsTeamName(player):
		return "team name"
	case c.parser.IsBlocked(player):
		return "blocked word"
	}
	for _, re := range boilerplate {
		if re.MatchString(player) {
			return "boilerplate"
		}
	}
	return ""
}

// Junk deletes items whose player is empty, a team name, or product
// boilerplate, together with their price rows.
func (c *Cleaner) Junk(ctx context.Context) (Report, error) {
	r := c.report(JobJunk)

	var junk []int64
	err := c.store.ScanItems(ctx, func(page []catalog.Item) error {
		for _, it := range page {
			r.Examined++
			if reason := c.JunkReason(it.PlayerName()); reason != "" {
				junk = append(junk, it.ID)
				r.note("helmet %d %q: %s", it.ID, it.Name, reason)
			}
		}
		return nil
	})
	if err != nil {
		return r, err
	}

	r.Changed = len(junk)
	if c.dryRun || len(junk) == 0 {
		return r, nil
	}
	_, err = c.store.DeleteItems(ctx, junk)
	return r, err
}

// Duplicates merges items sharing a normalized natural key into the lowest id.
func (c *Cleaner) Duplicates(ctx context.Context) (Report, error) {
	r := c.report(JobDuplicates)

	groups := make(map[catalog.NaturalKey][]int64)
	var order []catalog.NaturalKey
	err := c.store.ScanItems(ctx, func(page []catalog.Item) error {
		for _, it := range page {
			r.Examined++
			k := it.Key()
			if _, seen := groups[k]; !seen {
				order = append(order, k)
			}
			groups[k] = append(groups[k], it.ID)
		}
		return nil
	})
	if err != nil {
		return r, err
	}

	for _, k := range order {
		ids := groups[k]
		if len(ids) < 2 {
			continue
		}
		// ScanItems yields ids in ascending order.
		keep, drop := ids[0], ids[1:]
		r.Changed += len(drop)
		r.note("%s: keep %d, drop %v", k, keep, drop)
		if c.dryRun {
			continue
		}
		res, err := c.store.MergeItems(ctx, keep, drop)
		if err != nil {
			return r, err
		}
		c.logger.Debug("duplicates merged", "keep", keep, "drop", drop,
			"moved", res.Moved, "replaced", res.Replaced, "dropped", res.Dropped)
	}
	return r, nil
}

type priceKey struct {
	helmetID int64
	source   catalog.Source
}

// StalePriceIDs returns the ids of every price row that is not the newest
// for its (helmet, source) pair. Ties on scraped_at keep the higher id.
func StalePriceIDs(prices []catalog.PriceObservation) []int64 {
	newest := make(map[priceKey]catalog.PriceObservation)
	var stale []int64
	for _, p := range prices {
		k := priceKey{p.HelmetID, p.Source}
		cur, ok := newest[k]
		switch {
		case !ok:
			newest[k] = p
		case p.ScrapedAt.After(cur.ScrapedAt) || (p.ScrapedAt.Equal(cur.ScrapedAt) && p.ID > cur.ID):
			stale = append(stale, cur.ID)
			newest[k] = p
		default:
			stale = append(stale, p.ID)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i] < stale[j] })
	return stale
}

// PriceDuplicates keeps only the newest price row per (helmet, source).
// Databases created before the unique price index can hold several.
func (c *Cleaner) PriceDuplicates(ctx context.Context) (Report, error) {
	r := c.report(JobPriceDuplicates)

	var all []catalog.PriceObservation
	err := c.store.ScanPrices(ctx, func(page []catalog.PriceObservation) error {
		r.Examined += len(page)
		all = append(all, page...)
		return nil
	})
	if err != nil {
		return r, err
	}

	stale := StalePriceIDs(all)
	r.Changed = len(stale)
	if len(stale) > 0 {
		r.note("stale price rows: %v", stale)
	}
	if c.dryRun || len(stale) == 0 {
		return r, nil
	}
	_, err = c.store.DeletePrices(ctx, stale)
	return r, err
}

// Merge folds the drop items into keep by id.
func (c *Cleaner) Merge(ctx context.Context, keep int64, drop []int64) (Report, error) {
	r := c.report("merge")

	kept, err := c.store.GetItem(ctx, keep)
	if err != nil {
		return r, err
	}
	for _, id := range drop {
		if id == keep {
			return r, fmt.Errorf("helmet %d is both kept and dropped", id)
		}
		it, err := c.store.GetItem(ctx, id)
		if err != nil {
			return r, err
		}
		r.Examined++
		r.note("merge %d %q into %d %q", it.ID, it.Name, kept.ID, kept.Name)
	}
	r.Changed = len(drop)

	if c.dryRun {
		return r, nil
	}
	res, err := c.store.MergeItems(ctx, keep, drop)
	if err != nil {
		return r, err
	}
	r.note("prices moved %d, replaced %d, dropped %d; items deleted %d",
		res.Moved, res.Replaced, res.Dropped, res.Deleted)
	return r, nil
}

// MissingPrices lists active items with no price rows. It never changes anything.
func (c *Cleaner) MissingPrices(ctx context.Context) (Report, error) {
	r := Report{Job: "missing-prices", DryRun: true}

	items, err := c.store.ItemsWithoutPrices(ctx)
	if err != nil {
		return r, err
	}
	r.Examined = len(items)
	for _, it := range items {
		r.note("%d\t%s\t%s", it.ID, it.Name, it.EbaySearchQuery)
	}
	return r, nil
}

func (c *Cleaner) itemIDs(ctx context.Context) (map[int64]bool, error) {
	ids := make(map[int64]bool)
	err := c.store.ScanItems(ctx, func(page []catalog.Item) error {
		for _, it := range page {
			ids[it.ID] = true
		}
		return nil
	})
	return ids, err
}
