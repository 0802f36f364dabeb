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

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

var itemSelect = "SELECT " + strings.Join(helmetColumns, ", ") + " FROM helmets"

// ItemQuery is a catalog lookup key. Player is always compared and so is
// Team unless AnyTeam is set ("" matches NULL); an empty HelmetType or
// DesignType is not constrained.
type ItemQuery struct {
	Player     string
	Team       string
	HelmetType catalog.HelmetType
	DesignType catalog.DesignType
	AnyTeam    bool
}

// FindItem returns the lowest-id item matching q, preferring regular designs
// when the design is unconstrained. It returns types.ErrNotFound when nothing matches.
func (s *Store) FindItem(ctx context.Context, q ItemQuery) (*catalog.Item, error) {
	return s.findItem(ctx, s.db, q)
}

func (s *Store) findItem(ctx context.Context, db queryer, q ItemQuery) (*catalog.Item, error) {
	where := []string{"COALESCE(player, '') = ?"}
	args := []any{q.Player}
	if !q.AnyTeam {
		where = append(where, "COALESCE(team, '') = ?")
		args = append(args, q.Team)
	}
	if q.HelmetType != "" {
		where = append(where, "helmet_type = ?")
		args = append(args, string(q.HelmetType))
	}
	if q.DesignType != "" {
		where = append(where, "design_type = ?")
		args = append(args, string(q.DesignType))
	}

	query := itemSelect + " WHERE " + strings.Join(where, " AND ") +
		" ORDER BY CASE WHEN design_type = 'regular' THEN 0 ELSE 1 END, id LIMIT 1"

	item, err := scanItem(db.QueryRowContext(ctx, s.rebind(query), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, s.wrap("find item", err)
	}
	return item, nil
}

// GetItem loads one item by id.
func (s *Store) GetItem(ctx context.Context, id int64) (*catalog.Item, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx, s.rebind(itemSelect+" WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("helmet %d: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, s.wrap("get item", err)
	}
	return item, nil
}

// InsertItem inserts item unless an item with the same natural key exists,
// in which case the existing row is returned and created is false.
func (s *Store) InsertItem(ctx context.Context, item *catalog.Item) (*catalog.Item, bool, error) {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if item.DesignType == "" {
		item.DesignType = catalog.DesignRegular
	}

	const q = `INSERT INTO helmets
    (name, player, team, helmet_type, design_type, auth_company, ebay_search_query, is_active, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING
RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(q),
		item.Name, stringArg(item.Player), stringArg(item.Team),
		string(item.HelmetType), string(item.DesignType), stringArg(item.AuthCompany),
		item.EbaySearchQuery, item.IsActive, item.CreatedAt,
	).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		existing, findErr := s.FindItem(ctx, ItemQuery{
			Player:     item.PlayerName(),
			Team:       item.TeamName(),
			HelmetType: item.HelmetType,
			DesignType: item.DesignType,
		})
		if findErr != nil {
			return nil, false, findErr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, s.wrap("insert item", err)
	}

	created := *item
	created.ID = id
	s.logger.Debug("item created", "id", id, "name", item.Name)
	return &created, true, nil
}

// UpdateItemPlayer rewrites an item's player along with the derived name and search query.
func (s *Store) UpdateItemPlayer(ctx context.Context, id int64, player, name, searchQuery string) error {
	res, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE helmets SET player = ?, name = ?, ebay_search_query = ? WHERE id = ?`),
		player, name, searchQuery, id)
	if err != nil {
		return s.wrap("update item", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("helmet %d: %w", id, types.ErrNotFound)
	}
	return nil
}

// DeleteItems removes items and their price rows in one transaction.
func (s *Store) DeleteItems(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, s.wrap("delete items", err)
	}
	defer tx.Rollback()

	var deleted int64
	for _, chunk := range chunkIDs(ids, s.pageSize) {
		in := placeholders(len(chunk))
		if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM helmet_prices WHERE helmet_id IN ("+in+")"), int64Args(chunk)...); err != nil {
			return 0, s.wrap("delete item prices", err)
		}
		res, err := tx.ExecContext(ctx, s.rebind("DELETE FROM helmets WHERE id IN ("+in+")"), int64Args(chunk)...)
		if err != nil {
			return 0, s.wrap("delete items", err)
		}
		n, _ := res.RowsAffected()
		deleted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, s.wrap("delete items", err)
	}
	return deleted, nil
}

// CountItems returns the number of catalog rows.
func (s *Store) CountItems(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM helmets").Scan(&n); err != nil {
		return 0, s.wrap("count items", err)
	}
	return n, nil
}

func scanItem(row rowScanner) (*catalog.Item, error) {
	var (
		it                        catalog.Item
		player, team, authCompany sql.NullString
		helmetType, designType    string
	)
	if err := row.Scan(&it.ID, &it.Name, &player, &team, &helmetType, &designType,
		&authCompany, &it.EbaySearchQuery, &it.IsActive, &it.CreatedAt); err != nil {
		return nil, err
	}
	it.Player = nullString(player)
	it.Team = nullString(team)
	it.AuthCompany = nullString(authCompany)
	it.HelmetType = catalog.HelmetType(helmetType)
	it.DesignType = catalog.DesignType(designType)
	return &it, nil
}

func chunkIDs(ids []int64, size int) [][]int64 {
	if size <= 0 {
		size = DefaultPageSize
	}
	var chunks [][]int64
	for len(ids) > size {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}
