package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IshaanNene/HelmetPulse/internal/catalog"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "helmets.db") + "?_pragma=synchronous(off)"
	s, err := Open(context.Background(), "sqlite", dsn, testLogger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func newItem(player, team string, ht catalog.HelmetType, dt catalog.DesignType) *catalog.Item {
	return &catalog.Item{
		Name:            catalog.DisplayName(player, team, ht, dt),
		Player:          catalog.StrPtr(player),
		Team:            catalog.StrPtr(team),
		HelmetType:      ht,
		DesignType:      dt,
		EbaySearchQuery: catalog.SearchQuery(player, team, ht, dt),
		IsActive:        true,
	}
}

func mustInsert(t *testing.T, s *Store, item *catalog.Item) *catalog.Item {
	t.Helper()
	got, _, err := s.InsertItem(context.Background(), item)
	if err != nil {
		t.Fatalf("insert %s: %v", item.Name, err)
	}
	return got
}

func TestCheckSchema(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "empty.db")
	s, err := Open(ctx, "sqlite", dsn, testLogger)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	report, err := s.CheckSchema(ctx)
	if !errors.Is(err, types.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch before migrate, got %v", err)
	}
	if len(report.MissingColumns) != len(helmetColumns)+len(priceColumns) {
		t.Errorf("expected every column missing, got %v", report.MissingColumns)
	}

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second migrate should be a no-op: %v", err)
	}
	if report, err := s.CheckSchema(ctx); err != nil || !report.OK() {
		t.Fatalf("expected clean schema, got %+v (%v)", report, err)
	}
}

func TestInsertItemIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, created, err := s.InsertItem(ctx, newItem("Patrick Mahomes", "Chiefs", catalog.HelmetMini, catalog.DesignRegular))
	if err != nil || !created {
		t.Fatalf("first insert: created=%v err=%v", created, err)
	}

	second, created, err := s.InsertItem(ctx, newItem("Patrick Mahomes", "Chiefs", catalog.HelmetMini, catalog.DesignRegular))
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if created {
		t.Error("second insert should not create a row")
	}
	if second.ID != first.ID {
		t.Errorf("expected id %d, got %d", first.ID, second.ID)
	}

	// NULL team participates in the natural key.
	a := mustInsert(t, s, newItem("Bo Jackson", "", catalog.HelmetMini, catalog.DesignRegular))
	b := mustInsert(t, s, newItem("Bo Jackson", "", catalog.HelmetMini, catalog.DesignRegular))
	if a.ID != b.ID {
		t.Errorf("NULL team duplicate created: %d vs %d", a.ID, b.ID)
	}

	if n, _ := s.CountItems(ctx); n != 2 {
		t.Errorf("expected 2 items, got %d", n)
	}
}

func TestFindItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	eclipse := mustInsert(t, s, newItem("Josh Allen", "Bills", catalog.HelmetMini, catalog.DesignEclipse))
	regular := mustInsert(t, s, newItem("Josh Allen", "Bills", catalog.HelmetMini, catalog.DesignRegular))
	auth := mustInsert(t, s, newItem("Josh Allen", "Bills", catalog.HelmetAuthentic, catalog.DesignRegular))

	tests := []struct {
		name     string
		q        ItemQuery
		expected int64
	}{
		{"exact eclipse", ItemQuery{Player: "Josh Allen", Team: "Bills", HelmetType: catalog.HelmetMini, DesignType: catalog.DesignEclipse}, eclipse.ID},
		{"exact authentic", ItemQuery{Player: "Josh Allen", Team: "Bills", HelmetType: catalog.HelmetAuthentic, DesignType: catalog.DesignRegular}, auth.ID},
		{"any design prefers regular", ItemQuery{Player: "Josh Allen", Team: "Bills", HelmetType: catalog.HelmetMini}, regular.ID},
		{"player and team", ItemQuery{Player: "Josh Allen", Team: "Bills"}, regular.ID},
		{"any team", ItemQuery{Player: "Josh Allen", HelmetType: catalog.HelmetAuthentic, AnyTeam: true}, auth.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindItem(ctx, tt.q)
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			if got.ID != tt.expected {
				t.Errorf("expected id %d, got %d", tt.expected, got.ID)
			}
		})
	}

	_, err := s.FindItem(ctx, ItemQuery{Player: "Josh Allen", Team: "Bills", HelmetType: catalog.HelmetMini, DesignType: catalog.DesignCamo})
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.FindItem(ctx, ItemQuery{Player: "Josh Allen"}); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("empty team should only match a NULL team, got %v", err)
	}
}

func TestUpsertPriceReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var helmet *catalog.Item
	for i := 1; i <= 5; i++ {
		helmet = mustInsert(t, s, newItem(fmt.Sprintf("Player Number%d", i), "Chiefs", catalog.HelmetMini, catalog.DesignRegular))
	}
	if helmet.ID != 5 {
		t.Fatalf("expected helmet id 5, got %d", helmet.ID)
	}

	created, err := s.UpsertPrice(ctx, &catalog.PriceObservation{
		HelmetID: 5, Source: catalog.SourceEbay, MedianPrice: 250, MinPrice: 250, MaxPrice: 250, TotalResults: 1,
	})
	if err != nil || !created {
		t.Fatalf("first upsert: created=%v err=%v", created, err)
	}

	created, err = s.UpsertPrice(ctx, &catalog.PriceObservation{
		HelmetID: 5, Source: catalog.SourceEbay, MedianPrice: 275, MinPrice: 260, MaxPrice: 300, TotalResults: 4,
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if created {
		t.Error("second upsert should update in place")
	}

	prices, err := s.PricesForItem(ctx, 5)
	if err != nil {
		t.Fatalf("prices: %v", err)
	}
	if len(prices) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(prices))
	}
	if prices[0].MedianPrice != 275 || prices[0].TotalResults != 4 {
		t.Errorf("unexpected row %+v", prices[0])
	}
}

func TestScanItemsPaging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.SetPageSize(50)

	for _, total := range []int{0, 50, 123} {
		t.Run(fmt.Sprint(total), func(t *testing.T) {
			existing, _ := s.CountItems(ctx)
			for i := int(existing); i < total; i++ {
				mustInsert(t, s, newItem(fmt.Sprintf("Player Number%d", i), "Rams", catalog.HelmetMini, catalog.DesignRegular))
			}

			pages, seen := 0, make(map[int64]bool)
			err := s.ScanItems(ctx, func(page []catalog.Item) error {
				pages++
				if len(page) > 50 {
					t.Errorf("page too large: %d", len(page))
				}
				for _, it := range page {
					if seen[it.ID] {
						t.Errorf("item %d returned twice", it.ID)
					}
					seen[it.ID] = true
				}
				return nil
			})
			if err != nil {
				t.Fatalf("scan: %v", err)
			}
			if len(seen) != total {
				t.Errorf("expected %d items, saw %d", total, len(seen))
			}
		})
	}
}

func TestMergeItems(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	keep := mustInsert(t, s, newItem("Tom Brady", "Buccaneers", catalog.HelmetMini, catalog.DesignRegular))
	drop := mustInsert(t, s, newItem("Tom Brady", "Buccaneers", catalog.HelmetMini, catalog.DesignEclipse))

	old := time.Now().Add(-48 * time.Hour).UTC()
	recent := time.Now().UTC()

	upsert := func(id int64, src catalog.Source, price float64, at time.Time) {
		t.Helper()
		if _, err := s.UpsertPrice(ctx, &catalog.PriceObservation{
			HelmetID: id, Source: src, MedianPrice: price, MinPrice: price, MaxPrice: price, TotalResults: 1, ScrapedAt: at,
		}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	upsert(keep.ID, catalog.SourceEbay, 100, old)
	upsert(keep.ID, catalog.SourceRSA, 150, recent)
	upsert(drop.ID, catalog.SourceEbay, 120, recent)
	upsert(drop.ID, catalog.SourceRSA, 90, old)
	upsert(drop.ID, catalog.SourceRadtke, 140, old)

	res, err := s.MergeItems(ctx, keep.ID, []int64{drop.ID})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if res.Moved != 1 || res.Replaced != 1 || res.Dropped != 1 || res.Deleted != 1 {
		t.Errorf("unexpected merge result %+v", res)
	}

	prices, _ := s.PricesForItem(ctx, keep.ID)
	got := make(map[catalog.Source]float64)
	for _, p := range prices {
		got[p.Source] = p.MedianPrice
	}
	expected := map[catalog.Source]float64{catalog.SourceEbay: 120, catalog.SourceRSA: 150, catalog.SourceRadtke: 140}
	for src, price := range expected {
		if got[src] != price {
			t.Errorf("%s: expected %.0f, got %.0f", src, price, got[src])
		}
	}
	if len(prices) != 3 {
		t.Errorf("expected 3 prices, got %d", len(prices))
	}

	if _, err := s.GetItem(ctx, drop.ID); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("dropped item still present: %v", err)
	}
	if _, err := s.MergeItems(ctx, 9999, []int64{keep.ID}); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing keep id, got %v", err)
	}
}

func TestDeleteItemsAndMissingPrices(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	priced := mustInsert(t, s, newItem("Jerry Rice", "49ers", catalog.HelmetMini, catalog.DesignRegular))
	bare := mustInsert(t, s, newItem("Steve Young", "49ers", catalog.HelmetMini, catalog.DesignRegular))
	junk := mustInsert(t, s, newItem("Chiefs", "Chiefs", catalog.HelmetMini, catalog.DesignRegular))

	for _, id := range []int64{priced.ID, junk.ID} {
		if _, err := s.UpsertPrice(ctx, &catalog.PriceObservation{
			HelmetID: id, Source: catalog.SourceRadtke, MedianPrice: 99, MinPrice: 99, MaxPrice: 99, TotalResults: 1,
		}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	missing, err := s.ItemsWithoutPrices(ctx)
	if err != nil {
		t.Fatalf("missing prices: %v", err)
	}
	if len(missing) != 1 || missing[0].ID != bare.ID {
		t.Errorf("expected only %d without prices, got %+v", bare.ID, missing)
	}

	n, err := s.DeleteItems(ctx, []int64{junk.ID})
	if err != nil || n != 1 {
		t.Fatalf("delete: n=%d err=%v", n, err)
	}
	prices, _ := s.AllPrices(ctx)
	if len(prices) != 1 || prices[0].HelmetID != priced.ID {
		t.Errorf("junk prices not removed: %+v", prices)
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: "postgres"}
	if got := pg.rebind("SELECT * FROM helmets WHERE id = ? AND source IN (?, ?)"); got != "SELECT * FROM helmets WHERE id = $1 AND source IN ($2, $3)" {
		t.Errorf("unexpected rebind: %s", got)
	}
	lite := &Store{driver: "sqlite"}
	if got := lite.rebind("id = ?"); got != "id = ?" {
		t.Errorf("sqlite query should be unchanged: %s", got)
	}
}
