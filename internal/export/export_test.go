package export

import (
	"context"
	"encoding/csv"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/IshaanNene/HelmetPulse/internal/catalog"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeSource struct {
	items  []catalog.Item
	prices []catalog.PriceObservation
}

func (f *fakeSource) ScanItems(_ context.Context, fn func([]catalog.Item) error) error {
	return fn(f.items)
}

func (f *fakeSource) ScanPrices(_ context.Context, fn func([]catalog.PriceObservation) error) error {
	return fn(f.prices)
}

var scraped = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testSource() *fakeSource {
	return &fakeSource{
		items: []catalog.Item{
			{ID: 1, Name: "Josh Allen Bills Mini Helmet", Player: catalog.StrPtr("Josh Allen"), Team: catalog.StrPtr("Bills"),
				HelmetType: catalog.HelmetMini, DesignType: catalog.DesignRegular},
			{ID: 2, Name: "Tom Brady Patriots Authentic Helmet", Player: catalog.StrPtr("Tom Brady"), Team: catalog.StrPtr("Patriots"),
				HelmetType: catalog.HelmetAuthentic, DesignType: catalog.DesignRegular},
		},
		prices: []catalog.PriceObservation{
			{ID: 10, HelmetID: 1, Source: catalog.SourceRSA, MedianPrice: 149.99, MinPrice: 149.99, MaxPrice: 149.99, TotalResults: 1, ScrapedAt: scraped},
			{ID: 11, HelmetID: 1, Source: catalog.SourceEbay, MedianPrice: 120, MinPrice: 90, MaxPrice: 200, TotalResults: 14, ScrapedAt: scraped},
		},
	}
}

func TestRows(t *testing.T) {
	rows, err := Rows(context.Background(), testSource())
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Source != "ebay" || rows[1].Source != "rsa" {
		t.Errorf("expected sources ordered ebay, rsa; got %q, %q", rows[0].Source, rows[1].Source)
	}
	if rows[2].HelmetID != 2 || rows[2].Source != "" {
		t.Errorf("unpriced item should appear once without a source, got %+v", rows[2])
	}
	if rows[0].Player != "Josh Allen" || rows[0].TotalResults != 14 {
		t.Errorf("unexpected first row %+v", rows[0])
	}
}

func TestCSVWriter(t *testing.T) {
	rows, _ := Rows(context.Background(), testSource())
	path := filepath.Join(t.TempDir(), "out", "prices.csv")

	w, err := New(path, testLogger)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if w.Name() != "csv" {
		t.Errorf("expected csv writer, got %s", w.Name())
	}
	if err := w.Write(rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header + 3 records, got %d", len(records))
	}
	if records[0][0] != "helmet_id" {
		t.Errorf("expected header row, got %v", records[0])
	}
	if records[2][6] != "rsa" || records[2][7] != "149.99" || records[2][11] != "2024-03-01T12:00:00Z" {
		t.Errorf("unexpected rsa record %v", records[2])
	}
	if records[3][6] != "" || records[3][7] != "" {
		t.Errorf("unpriced record should have empty price cells, got %v", records[3])
	}
}

func TestXLSXWriter(t *testing.T) {
	rows, _ := Rows(context.Background(), testSource())
	path := filepath.Join(t.TempDir(), "prices.xlsx")

	w, err := New(path, testLogger)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := w.Write(rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	got, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(got))
	}
	if got[1][1] != "Josh Allen Bills Mini Helmet" || got[1][6] != "ebay" {
		t.Errorf("unexpected first data row %v", got[1])
	}
}

func TestNewUnsupported(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "prices.json"), testLogger)
	if !errors.Is(err, types.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}
