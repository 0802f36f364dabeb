package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/IshaanNene/HelmetPulse/internal/types"
)

const (
	naturalKeyIndex  = "helmets_natural_key"
	priceSourceIndex = "helmet_prices_helmet_source"
)

var helmetColumns = []string{
	"id", "name", "player", "team", "helmet_type", "design_type",
	"auth_company", "ebay_search_query", "is_active", "created_at",
}

var priceColumns = []string{
	"id", "helmet_id", "source", "median_price", "min_price", "max_price",
	"total_results", "ebay_url", "scraped_at",
}

// SchemaSQL returns the DDL for the given driver. The unique indexes turn
// find-or-create and price upserts into single idempotent statements; they
// can only be created once existing duplicates have been cleaned up.
func SchemaSQL(driver string) string {
	id, ts := "BIGSERIAL PRIMARY KEY", "TIMESTAMPTZ"
	if driver == "sqlite" {
		id, ts = "INTEGER PRIMARY KEY AUTOINCREMENT", "TIMESTAMP"
	}

	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS helmets (
    id                %[1]s,
    name              TEXT NOT NULL,
    player            TEXT,
    team              TEXT,
    helmet_type       TEXT NOT NULL,
    design_type       TEXT NOT NULL DEFAULT 'regular',
    auth_company      TEXT,
    ebay_search_query TEXT NOT NULL DEFAULT '',
    is_active         BOOLEAN NOT NULL DEFAULT TRUE,
    created_at        %[2]s NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS helmet_prices (
    id            %[1]s,
    helmet_id     BIGINT NOT NULL,
    source        TEXT NOT NULL,
    median_price  DOUBLE PRECISION NOT NULL,
    min_price     DOUBLE PRECISION NOT NULL,
    max_price     DOUBLE PRECISION NOT NULL,
    total_results INTEGER NOT NULL DEFAULT 1,
    ebay_url      TEXT,
    scraped_at    %[2]s NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS helmets_search_query ON helmets (ebay_search_query);

CREATE UNIQUE INDEX IF NOT EXISTS %[3]s
    ON helmets (COALESCE(player, ''), COALESCE(team, ''), helmet_type, design_type);

CREATE UNIQUE INDEX IF NOT EXISTS %[4]s
    ON helmet_prices (helmet_id, source);
`, id, ts, naturalKeyIndex, priceSourceIndex)
}

// Migrate creates missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range splitStatements(SchemaSQL(s.driver)) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			if strings.Contains(stmt, "UNIQUE INDEX") {
				return s.wrap("migrate", fmt.Errorf("%w (run `cleanup duplicates` and `cleanup price-duplicates` first)", err))
			}
			return s.wrap("migrate", err)
		}
	}
	s.logger.Info("schema migrated")
	return nil
}

// SchemaReport describes what CheckSchema found.
type SchemaReport struct {
	MissingColumns []string
	MissingIndexes []string
}

// OK reports whether nothing is missing.
func (r SchemaReport) OK() bool {
	return len(r.MissingColumns) == 0 && len(r.MissingIndexes) == 0
}

// CheckSchema verifies both tables expose the expected columns and that the
// unique indexes exist. It returns the report and types.ErrSchemaMismatch when
// anything is missing.
func (s *Store) CheckSchema(ctx context.Context) (SchemaReport, error) {
	var report SchemaReport

	tables := []struct {
		name string
		cols []string
	}{
		{"helmets", helmetColumns},
		{"helmet_prices", priceColumns},
	}
	for _, table := range tables {
		for _, col := range table.cols {
			q := fmt.Sprintf("SELECT %s FROM %s WHERE 1 = 0", col, table.name)
			rows, err := s.db.QueryContext(ctx, q)
			if err != nil {
				report.MissingColumns = append(report.MissingColumns, table.name+"."+col)
				continue
			}
			rows.Close()
		}
	}

	indexes, err := s.indexNames(ctx)
	if err != nil {
		return report, s.wrap("check schema", err)
	}
	for _, name := range []string{naturalKeyIndex, priceSourceIndex} {
		if !indexes[name] {
			report.MissingIndexes = append(report.MissingIndexes, name)
		}
	}

	if !report.OK() {
		return report, fmt.Errorf("%w: missing columns %v, missing indexes %v",
			types.ErrSchemaMismatch, report.MissingColumns, report.MissingIndexes)
	}
	return report, nil
}

func (s *Store) indexNames(ctx context.Context) (map[string]bool, error) {
	q := `SELECT name FROM sqlite_master WHERE type = 'index'`
	if s.driver == "postgres" {
		q = `SELECT indexname FROM pg_indexes WHERE schemaname = current_schema()`
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names[name] = true
	}
	return names, rows.Err()
}

func splitStatements(sqlText string) []string {
	var out []string
	for _, stmt := range strings.Split(sqlText, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
