// Package store persists the helmet catalog and its price observations in a
// relational database (PostgreSQL in production, SQLite locally and in tests).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// DefaultPageSize matches the row cap of the hosted database's REST client,
// which is what every full-table scan has to page around.
const DefaultPageSize = 1000

// Store is the catalog and price repository. It is safe for concurrent use.
type Store struct {
	db       *sql.DB
	driver   string
	pageSize int
	logger   *slog.Logger
}

// Open connects to the database. driver is "postgres" or "sqlite".
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*Store, error) {
	var sqlDriver string
	switch driver {
	case "postgres":
		sqlDriver = "pgx"
	case "sqlite":
		sqlDriver = "sqlite"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, &types.StorageError{Backend: driver, Op: "open", Err: err}
	}
	if driver == "sqlite" {
		// One writer; avoids SQLITE_BUSY between pooled connections.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, &types.StorageError{Backend: driver, Op: "ping", Err: err}
	}

	return New(db, driver, logger), nil
}

// New wraps an existing handle.
func New(db *sql.DB, driver string, logger *slog.Logger) *Store {
	return &Store{
		db:       db,
		driver:   driver,
		pageSize: DefaultPageSize,
		logger:   logger.With("component", "store", "driver", driver),
	}
}

// SetPageSize changes the page size used by full-table scans.
func (s *Store) SetPageSize(n int) {
	if n > 0 {
		s.pageSize = n
	}
}

// SetMaxOpenConns forwards to the pool. SQLite stays at one connection.
func (s *Store) SetMaxOpenConns(n int) {
	if s.driver != "sqlite" && n > 0 {
		s.db.SetMaxOpenConns(n)
	}
}

// Driver returns "postgres" or "sqlite".
func (s *Store) Driver() string { return s.driver }

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind converts ? placeholders to $N for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &types.StorageError{Backend: s.driver, Op: op, Err: err}
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func stringArg(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
