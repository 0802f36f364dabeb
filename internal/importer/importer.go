// Package importer loads vendor price spreadsheets and watches an inbox
// directory for new ones.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/IshaanNene/HelmetPulse/internal/catalog"
	"github.com/IshaanNene/HelmetPulse/internal/config"
	"github.com/IshaanNene/HelmetPulse/internal/ingest"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// Importer turns spreadsheet rows into listings and ingests them.
type Importer struct {
	ingestor *ingest.Ingestor
	defaults map[catalog.Source]catalog.HelmetType
	logger   *slog.Logger
}

// New creates an Importer. Per-vendor default helmet types come from the
// matching collector config; vendors without one default to fullsize-replica.
func New(in *ingest.Ingestor, collectors config.CollectorsConfig, logger *slog.Logger) *Importer {
	defaults := make(map[catalog.Source]catalog.HelmetType)
	for _, v := range vendorKeywords {
		defaults[v.source] = catalog.HelmetReplica
		if sc, ok := collectors.Source(string(v.source)); ok {
			if ht := catalog.HelmetType(sc.DefaultHelmetType); ht.Valid() {
				defaults[v.source] = ht
			}
		}
	}
	return &Importer{
		ingestor: in,
		defaults: defaults,
		logger:   logger.With("component", "importer"),
	}
}

// ImportFile routes path to its vendor, reads every sheet and ingests the rows.
func (im *Importer) ImportFile(ctx context.Context, path string) (ingest.Stats, error) {
	source, listings, err := Listings(path)
	if err != nil {
		return ingest.Stats{}, err
	}

	im.logger.Info("importing file", "file", filepath.Base(path), "source", source, "rows", len(listings))
	stats := im.ingestor.Ingest(ctx, listings, im.defaults[source])
	return stats, ctx.Err()
}

// Listings parses a vendor file into listings without touching the database.
// Sheets without a recognisable header row are skipped; the file fails only
// when none of its sheets has one.
func Listings(path string) (catalog.Source, []*types.Listing, error) {
	name := filepath.Base(path)

	source, err := RouteVendor(path)
	if err != nil {
		return "", nil, &types.ImportError{File: name, Err: err}
	}
	sheets, err := ReadSheets(path)
	if err != nil {
		return "", nil, &types.ImportError{File: name, Err: err}
	}

	var listings []*types.Listing
	found := false
	for _, sh := range sheets {
		cols, headerRow, err := FindHeader(sh.Rows)
		if errors.Is(err, types.ErrNoHeaderRow) {
			continue
		}
		found = true
		for _, row := range sh.Rows[headerRow+1:] {
			if l := rowListing(string(source), cols, row); l != nil {
				listings = append(listings, l)
			}
		}
	}
	if !found {
		return "", nil, &types.ImportError{File: name, Err: fmt.Errorf("%w in any sheet", types.ErrNoHeaderRow)}
	}
	return source, listings, nil
}

// rowListing maps one data row to a listing; blank rows yield nil.
func rowListing(source string, cols Columns, row []string) *types.Listing {
	title := cell(row, cols.Title)
	price := cell(row, cols.Price)
	player := cell(row, cols.Player)
	if title == "" && player == "" {
		return nil
	}
	if title == "" {
		// Some vendor sheets only carry player and type columns.
		title = player + " Signed " + cell(row, cols.Type) + " Helmet"
	}

	l := types.NewListing(source, title, price, "")
	l.SetHint(types.HintPlayer, player)
	l.SetHint(types.HintTeam, cell(row, cols.Team))
	l.SetHint(types.HintHelmetType, cell(row, cols.Type))
	l.SetHint(types.HintDesignType, cell(row, cols.Design))
	l.SetHint(types.HintAuthCompany, cell(row, cols.Auth))
	return l
}
