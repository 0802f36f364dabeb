package store

import (
	"context"

	"github.com/IshaanNene/HelmetPulse/internal/catalog"
)

// ScanItems pages through helmets in id order, pageSize rows at a time,
// until a short page. Each page's rows are closed before fn runs, so fn may
// issue its own queries.
func (s *Store) ScanItems(ctx context.Context, fn func(page []catalog.Item) error) error {
	var lastID int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := s.itemPage(ctx, lastID)
		if err != nil {
			return err
		}
		if len(page) > 0 {
			if err := fn(page); err != nil {
				return err
			}
			lastID = page[len(page)-1].ID
		}
		if len(page) < s.pageSize {
			return nil
		}
	}
}

func (s *Store) itemPage(ctx context.Context, afterID int64) ([]catalog.Item, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(itemSelect+" WHERE id > ? ORDER BY id LIMIT ?"), afterID, s.pageSize)
	if err != nil {
		return nil, s.wrap("scan items", err)
	}
	defer rows.Close()

	page := make([]catalog.Item, 0, s.pageSize)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, s.wrap("scan items", err)
		}
		page = append(page, *it)
	}
	return page, s.wrap("scan items", rows.Err())
}

// AllItems collects every helmet via ScanItems.
func (s *Store) AllItems(ctx context.Context) ([]catalog.Item, error) {
	var all []catalog.Item
	err := s.ScanItems(ctx, func(page []catalog.Item) error {
		all = append(all, page...)
		return nil
	})
	return all, err
}

// ScanPrices pages through helmet_prices the same way ScanItems does.
func (s *Store) ScanPrices(ctx context.Context, fn func(page []catalog.PriceObservation) error) error {
	var lastID int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := s.pricePage(ctx, lastID)
		if err != nil {
			return err
		}
		if len(page) > 0 {
			if err := fn(page); err != nil {
				return err
			}
			lastID = page[len(page)-1].ID
		}
		if len(page) < s.pageSize {
			return nil
		}
	}
}

func (s *Store) pricePage(ctx context.Context, afterID int64) ([]catalog.PriceObservation, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(priceSelect+" WHERE id > ? ORDER BY id LIMIT ?"), afterID, s.pageSize)
	if err != nil {
		return nil, s.wrap("scan prices", err)
	}
	defer rows.Close()

	page := make([]catalog.PriceObservation, 0, s.pageSize)
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, s.wrap("scan prices", err)
		}
		page = append(page, *p)
	}
	return page, s.wrap("scan prices", rows.Err())
}

// AllPrices collects every price row via ScanPrices.
func (s *Store) AllPrices(ctx context.Context) ([]catalog.PriceObservation, error) {
	var all []catalog.PriceObservation
	err := s.ScanPrices(ctx, func(page []catalog.PriceObservation) error {
		all = append(all, page...)
		return nil
	})
	return all, err
}
