package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IshaanNene/HelmetPulse/internal/catalog"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

var priceSelect = "SELECT " + strings.Join(priceColumns, ", ") + " FROM helmet_prices"

// UpsertPrice writes the observation for (HelmetID, Source), replacing any
// previous values for that pair. created reports whether a new row was added.
func (s *Store) UpsertPrice(ctx context.Context, p *catalog.PriceObservation) (bool, error) {
	if p.ScrapedAt.IsZero() {
		p.ScrapedAt = time.Now().UTC()
	}

	var existing int64
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id FROM helmet_prices WHERE helmet_id = ? AND source = ?`),
		p.HelmetID, string(p.Source)).Scan(&existing)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, s.wrap("upsert price", err)
	}
	created := errors.Is(err, sql.ErrNoRows)

	const q = `INSERT INTO helmet_prices
    (helmet_id, source, median_price, min_price, max_price, total_results, ebay_url, scraped_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (helmet_id, source) DO UPDATE SET
    median_price  = excluded.median_price,
    min_price     = excluded.min_price,
    max_price     = excluded.max_price,
    total_results = excluded.total_results,
    ebay_url      = COALESCE(excluded.ebay_url, helmet_prices.ebay_url),
    scraped_at    = excluded.scraped_at
RETURNING id`

	if err := s.db.QueryRowContext(ctx, s.rebind(q),
		p.HelmetID, string(p.Source), p.MedianPrice, p.MinPrice, p.MaxPrice,
		p.TotalResults, stringArg(p.EbayURL), p.ScrapedAt,
	).Scan(&p.ID); err != nil {
		return false, s.wrap("upsert price", err)
	}
	return created, nil
}

// PricesForItem returns every price row of one helmet, ordered by source.
func (s *Store) PricesForItem(ctx context.Context, helmetID int64) ([]catalog.PriceObservation, error) {
	return s.pricesForItem(ctx, s.db, helmetID)
}

func (s *Store) pricesForItem(ctx context.Context, db queryer, helmetID int64) ([]catalog.PriceObservation, error) {
	rows, err := db.QueryContext(ctx, s.rebind(priceSelect+" WHERE helmet_id = ? ORDER BY source, id"), helmetID)
	if err != nil {
		return nil, s.wrap("prices for item", err)
	}
	defer rows.Close()

	var out []catalog.PriceObservation
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, s.wrap("prices for item", err)
		}
		out = append(out, *p)
	}
	return out, s.wrap("prices for item", rows.Err())
}

// DeletePrices removes price rows by id.
func (s *Store) DeletePrices(ctx context.Context, ids []int64) (int64, error) {
	var deleted int64
	for _, chunk := range chunkIDs(ids, s.pageSize) {
		res, err := s.db.ExecContext(ctx,
			s.rebind("DELETE FROM helmet_prices WHERE id IN ("+placeholders(len(chunk))+")"),
			int64Args(chunk)...)
		if err != nil {
			return deleted, s.wrap("delete prices", err)
		}
		n, _ := res.RowsAffected()
		deleted += n
	}
	return deleted, nil
}

// ItemsWithoutPrices lists active items that have no price rows.
func (s *Store) ItemsWithoutPrices(ctx context.Context) ([]catalog.Item, error) {
	q := itemSelect + ` WHERE is_active = ? AND NOT EXISTS (
    SELECT 1 FROM helmet_prices p WHERE p.helmet_id = helmets.id
) ORDER BY id`

	rows, err := s.db.QueryContext(ctx, s.rebind(q), true)
	if err != nil {
		return nil, s.wrap("items without prices", err)
	}
	defer rows.Close()

	var out []catalog.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, s.wrap("items without prices", err)
		}
		out = append(out, *it)
	}
	return out, s.wrap("items without prices", rows.Err())
}

// MergeResult counts what MergeItems did.
type MergeResult struct {
	Moved    int
	Replaced int
	Dropped  int
	Deleted  int
}

// MergeItems folds dropIDs into keepID in one transaction. Price rows move to
// the kept item; when both have a row for the same source the newer one wins.
// Dropped items are deleted.
func (s *Store) MergeItems(ctx context.Context, keepID int64, dropIDs []int64) (MergeResult, error) {
	var res MergeResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, s.wrap("merge", err)
	}
	defer tx.Rollback()

	var one int
	if err := tx.QueryRowContext(ctx, s.rebind("SELECT 1 FROM helmets WHERE id = ?"), keepID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return res, fmt.Errorf("keep helmet %d: %w", keepID, types.ErrNotFound)
		}
		return res, s.wrap("merge", err)
	}

	for _, dropID := range dropIDs {
		if dropID == keepID {
			continue
		}
		kept, err := s.pricesForItem(ctx, tx, keepID)
		if err != nil {
			return res, err
		}
		bySource := make(map[catalog.Source]catalog.PriceObservation, len(kept))
		for _, p := range kept {
			bySource[p.Source] = p
		}

		moving, err := s.pricesForItem(ctx, tx, dropID)
		if err != nil {
			return res, err
		}
		for _, p := range moving {
			current, clash := bySource[p.Source]
			switch {
			case !clash:
				res.Moved++
			case p.ScrapedAt.After(current.ScrapedAt):
				if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM helmet_prices WHERE id = ?"), current.ID); err != nil {
					return res, s.wrap("merge", err)
				}
				res.Replaced++
			default:
				if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM helmet_prices WHERE id = ?"), p.ID); err != nil {
					return res, s.wrap("merge", err)
				}
				res.Dropped++
				continue
			}
			if _, err := tx.ExecContext(ctx, s.rebind("UPDATE helmet_prices SET helmet_id = ? WHERE id = ?"), keepID, p.ID); err != nil {
				return res, s.wrap("merge", err)
			}
			bySource[p.Source] = p
		}

		r, err := tx.ExecContext(ctx, s.rebind("DELETE FROM helmets WHERE id = ?"), dropID)
		if err != nil {
			return res, s.wrap("merge", err)
		}
		if n, _ := r.RowsAffected(); n > 0 {
			res.Deleted++
		}
	}

	if err := tx.Commit(); err != nil {
		return res, s.wrap("merge", err)
	}
	return res, nil
}

func scanPrice(row rowScanner) (*catalog.PriceObservation, error) {
	var (
		p      catalog.PriceObservation
		source string
		url    sql.NullString
	)
	if err := row.Scan(&p.ID, &p.HelmetID, &source, &p.MedianPrice, &p.MinPrice, &p.MaxPrice,
		&p.TotalResults, &url, &p.ScrapedAt); err != nil {
		return nil, err
	}
	p.Source = catalog.Source(source)
	p.EbayURL = nullString(url)
	return &p, nil
}
