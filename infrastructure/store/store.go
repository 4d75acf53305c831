// Package store implements the relational capability surface behind search:
// row fetches, filtered id scans and the store-native full-text match, all
// parameterized by table name at call time.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/findexhq/findex/domain/search"
	"github.com/findexhq/findex/internal/database"
	"gorm.io/gorm"
)

// Store executes table-scoped reads against the configured database. Table
// and column names are validated before they reach SQL text; every value is
// bound as a parameter.
type Store struct {
	db     database.Database
	logger *slog.Logger
}

var _ search.Store = (*Store)(nil)

// NewStore creates a Store.
func NewStore(db database.Database, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// FetchAll returns every row of the table. Used only for full rebuilds.
func (s *Store) FetchAll(ctx context.Context, table string) ([]search.Row, error) {
	if !database.ValidIdentifier(table) {
		return nil, fmt.Errorf("table %q: %w", table, database.ErrBadIdentifier)
	}

	var raw []map[string]any
	if err := s.db.Session(ctx).Table(table).Find(&raw).Error; err != nil {
		return nil, fmt.Errorf("fetch all from %s: %w", table, err)
	}
	return toRows(raw), nil
}

// FetchByID returns a single row, or an error wrapping database.ErrNotFound
// when the id is absent.
func (s *Store) FetchByID(ctx context.Context, table string, id int64) (search.Row, error) {
	if !database.ValidIdentifier(table) {
		return nil, fmt.Errorf("table %q: %w", table, database.ErrBadIdentifier)
	}

	row := map[string]any{}
	err := s.db.Session(ctx).Table(table).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("table %s id %d: %w", table, id, database.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s id %d: %w", table, id, err)
	}
	return search.Row(row), nil
}

// FetchByIDs returns the rows for the given ids in unspecified order.
func (s *Store) FetchByIDs(ctx context.Context, table string, ids []int64) ([]search.Row, error) {
	if !database.ValidIdentifier(table) {
		return nil, fmt.Errorf("table %q: %w", table, database.ErrBadIdentifier)
	}
	if len(ids) == 0 {
		return []search.Row{}, nil
	}

	var raw []map[string]any
	err := s.db.Session(ctx).Table(table).Where("id IN ?", ids).Find(&raw).Error
	if err != nil {
		return nil, fmt.Errorf("fetch %s by ids: %w", table, err)
	}
	return toRows(raw), nil
}

// FilteredIDs returns every id matching the filters, unbounded. It
// materializes the allowed set for filtered vector search.
func (s *Store) FilteredIDs(ctx context.Context, table string, filters search.Filters) ([]int64, error) {
	return s.filteredIDs(ctx, table, filters, 0)
}

// FilteredIDsLimited returns up to limit ids matching the filters, in
// store-native order.
func (s *Store) FilteredIDsLimited(ctx context.Context, table string, filters search.Filters, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = search.DefaultTop
	}
	return s.filteredIDs(ctx, table, filters, limit)
}

func (s *Store) filteredIDs(ctx context.Context, table string, filters search.Filters, limit int) ([]int64, error) {
	if !database.ValidIdentifier(table) {
		return nil, fmt.Errorf("table %q: %w", table, database.ErrBadIdentifier)
	}

	q := translate(filters)
	if limit > 0 {
		q = q.Limit(limit)
	}

	tx, err := q.Apply(s.db.Session(ctx).Table(table))
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", table, err)
	}

	var ids []int64
	if err := tx.Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("filtered ids from %s: %w", table, err)
	}
	return ids, nil
}

// translate renders the compiled filter conjunction onto the query builder.
// An empty in-set contributes nothing rather than an always-false condition.
func translate(filters search.Filters) database.Query {
	q := database.NewQuery()
	for _, pred := range filters.Predicates() {
		switch p := pred.(type) {
		case search.Equal:
			q = q.Equal(p.Column(), p.Value())
		case search.InSet:
			if values := p.Values(); len(values) > 0 {
				q = q.In(p.Column(), values)
			}
		case search.RangeMin:
			q = q.AtLeast(p.Column(), p.Min())
		case search.RangeMax:
			q = q.AtMost(p.Column(), p.Max())
		case search.RangeBoth:
			q = q.Between(p.Column(), p.Min(), p.Max())
		case search.Like:
			q = q.Contains(p.Column(), p.Value())
		case search.Within:
			q = q.WithinKm(p.LatColumn(), p.LonColumn(), p.CenterLat(), p.CenterLon(), p.MaxKm())
		}
	}
	return q
}

func toRows(raw []map[string]any) []search.Row {
	rows := make([]search.Row, len(raw))
	for i, r := range raw {
		rows[i] = search.Row(r)
	}
	return rows
}
