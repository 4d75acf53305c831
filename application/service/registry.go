package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/findexhq/findex/domain/schema"
	"github.com/findexhq/findex/domain/search"
	"github.com/findexhq/findex/domain/vector"
)

// ErrNoIndex indicates the table has no vector index registered.
var ErrNoIndex = errors.New("findex: no vector index for table")

// tableIndex pairs a vector index with the lock that serializes its writers
// against readers. Searches take the read lock; upserts and rebuilds take
// the write lock, so a rebuild is never concurrent with queries on the same
// table.
type tableIndex struct {
	mu    sync.RWMutex
	index *vector.Index
}

// IndexRegistry owns the in-memory vector index of every hybrid table and
// the files they persist to under indexesDir. Tables without semantic
// search get no index and every write on them is a no-op.
type IndexRegistry struct {
	schemas    schema.Registry
	store      search.Store
	embedder   search.Embedder
	indexesDir string
	logger     *slog.Logger

	mu      sync.Mutex
	indexes map[string]*tableIndex
}

// NewIndexRegistry creates an IndexRegistry persisting under indexesDir.
// Indexes are not loaded until LoadOrBuildAll or the first write.
func NewIndexRegistry(schemas schema.Registry, store search.Store, embedder search.Embedder, indexesDir string, logger *slog.Logger) *IndexRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexRegistry{
		schemas:    schemas,
		store:      store,
		embedder:   embedder,
		indexesDir: indexesDir,
		logger:     logger,
		indexes:    make(map[string]*tableIndex),
	}
}

// IndexPath returns the file a table's vector index persists to.
func (r *IndexRegistry) IndexPath(table string) string {
	return filepath.Join(r.indexesDir, table+".index")
}

// LoadOrBuildAll prepares the vector index of every hybrid table: load the
// persisted file when one exists, otherwise fetch all rows, embed them and
// write a fresh index. An unreadable file is treated as missing.
func (r *IndexRegistry) LoadOrBuildAll(ctx context.Context) error {
	for _, tbl := range r.schemas.Tables() {
		if !tbl.Hybrid() {
			continue
		}
		entry := r.entry(tbl.Name())
		entry.mu.Lock()
		idx, err := r.loadOrBuild(ctx, tbl, true)
		if err != nil {
			entry.mu.Unlock()
			return fmt.Errorf("preparing index for table %s: %w", tbl.Name(), err)
		}
		entry.index = idx
		entry.mu.Unlock()
	}
	return nil
}

// Rebuild discards the table's vector index and rebuilds it from the store.
// Queries on the table wait until the new index is in place.
func (r *IndexRegistry) Rebuild(ctx context.Context, table string) error {
	tbl, ok := r.schemas.Lookup(table)
	if !ok {
		return ErrUnknownTable
	}
	if !tbl.Hybrid() {
		return nil
	}

	entry := r.entry(table)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	idx, err := r.loadOrBuild(ctx, tbl, false)
	if err != nil {
		return fmt.Errorf("rebuilding index for table %s: %w", table, err)
	}
	entry.index = idx
	return nil
}

// RebuildAll rebuilds every table's index in sequence.
func (r *IndexRegistry) RebuildAll(ctx context.Context) error {
	for _, name := range r.schemas.Names() {
		if err := r.Rebuild(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// UpsertRecord fetches one row, embeds its text columns and replaces the
// row's entry in the table's vector index, persisting the index afterwards.
// The row must exist; a missing id surfaces the store's not-found error. A
// row whose text columns are all empty is removed from the index instead,
// matching what a full rebuild would produce.
func (r *IndexRegistry) UpsertRecord(ctx context.Context, table string, id int64) error {
	tbl, ok := r.schemas.Lookup(table)
	if !ok {
		return ErrUnknownTable
	}

	row, err := r.store.FetchByID(ctx, table, id)
	if err != nil {
		return err
	}
	if !tbl.Hybrid() {
		return nil
	}

	text := rowText(tbl, row)

	var vec []float32
	if text != "" {
		vecs, err := r.embedder.Embed(ctx, []string{text})
		if err != nil {
			return fmt.Errorf("embedding row %d: %w", id, err)
		}
		if len(vecs) != 1 {
			return fmt.Errorf("embedder returned %d vectors for one row", len(vecs))
		}
		vec = vecs[0]
	}

	entry := r.entry(table)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.index == nil {
		entry.index = vector.NewIndex(r.embedder.Dim())
	}
	if vec == nil {
		r.logger.Warn("row has no text to embed", "table", table, "id", id)
		if !entry.index.Remove(id) {
			return nil
		}
	} else if err := entry.index.Upsert(id, vec); err != nil {
		return fmt.Errorf("upserting row %d: %w", id, err)
	}
	return entry.index.Save(r.IndexPath(table))
}

// Search embeds the query text and returns the nearest row ids from the
// table's vector index, nearest first.
func (r *IndexRegistry) Search(ctx context.Context, table, text string, top int) ([]int64, error) {
	return r.searchIndex(ctx, table, text, top, nil)
}

// SearchFiltered is Search restricted to the allowed id set. An empty set
// means nothing is allowed and yields no results.
func (r *IndexRegistry) SearchFiltered(ctx context.Context, table, text string, top int, allowed map[int64]struct{}) ([]int64, error) {
	if allowed == nil {
		allowed = map[int64]struct{}{}
	}
	return r.searchIndex(ctx, table, text, top, allowed)
}

func (r *IndexRegistry) searchIndex(ctx context.Context, table, text string, top int, allowed map[int64]struct{}) ([]int64, error) {
	entry, ok := r.lookup(table)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoIndex, table)
	}

	vecs, err := r.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vecs))
	}

	entry.mu.RLock()
	defer entry.mu.RUnlock()
	if entry.index == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoIndex, table)
	}

	var matches []vector.Match
	if allowed == nil {
		matches, err = entry.index.SearchTopK(vecs[0], top)
	} else {
		matches, err = entry.index.SearchTopKFiltered(vecs[0], top, allowed)
	}
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(matches))
	for _, m := range matches {
		// Negative ids mark empty result slots, not rows.
		if m.ID() < 0 {
			continue
		}
		ids = append(ids, m.ID())
	}
	return ids, nil
}

func (r *IndexRegistry) loadOrBuild(ctx context.Context, tbl schema.Table, allowLoad bool) (*vector.Index, error) {
	path := r.IndexPath(tbl.Name())
	if allowLoad {
		idx, err := vector.LoadIndex(path)
		switch {
		case err == nil && idx.Dim() == r.embedder.Dim():
			r.logger.Info("loaded vector index", "table", tbl.Name(), "entries", idx.Len())
			return idx, nil
		case err == nil:
			r.logger.Warn("vector index dimension changed, rebuilding",
				"table", tbl.Name(), "have", idx.Dim(), "want", r.embedder.Dim())
		case errors.Is(err, fs.ErrNotExist):
		default:
			r.logger.Warn("vector index unreadable, rebuilding", "table", tbl.Name(), "error", err)
		}
	}
	return r.build(ctx, tbl)
}

// build embeds every row of the table and writes a fresh index file.
func (r *IndexRegistry) build(ctx context.Context, tbl schema.Table) (*vector.Index, error) {
	rows, err := r.store.FetchAll(ctx, tbl.Name())
	if err != nil {
		return nil, fmt.Errorf("fetching rows: %w", err)
	}

	ids := make([]int64, 0, len(rows))
	texts := make([]string, 0, len(rows))
	for _, row := range rows {
		id, ok := row.ID()
		if !ok {
			r.logger.Warn("skipping row without numeric id", "table", tbl.Name())
			continue
		}
		text := rowText(tbl, row)
		if text == "" {
			r.logger.Warn("skipping row with no text", "table", tbl.Name(), "id", id)
			continue
		}
		ids = append(ids, id)
		texts = append(texts, text)
	}

	idx := vector.NewIndex(r.embedder.Dim())
	if len(ids) > 0 {
		vecs, err := r.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding %d rows: %w", len(ids), err)
		}
		if len(vecs) != len(ids) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d rows", len(vecs), len(ids))
		}
		for i, id := range ids {
			if err := idx.Add(id, vecs[i]); err != nil {
				return nil, fmt.Errorf("indexing row %d: %w", id, err)
			}
		}
	}

	if err := idx.Save(r.IndexPath(tbl.Name())); err != nil {
		return nil, err
	}
	r.logger.Info("built vector index", "table", tbl.Name(), "entries", idx.Len())
	return idx, nil
}

// entry returns the table's index slot, creating an empty one when absent.
func (r *IndexRegistry) entry(table string) *tableIndex {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.indexes[table]
	if !ok {
		e = &tableIndex{}
		r.indexes[table] = e
	}
	return e
}

func (r *IndexRegistry) lookup(table string) (*tableIndex, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.indexes[table]
	return e, ok
}

// rowText concatenates a row's text columns into the string that gets
// embedded: lowercased, space-joined, missing and null columns skipped.
func rowText(tbl schema.Table, row search.Row) string {
	parts := make([]string, 0, len(tbl.TextColumns()))
	for _, col := range tbl.TextColumns() {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case []byte:
			s = string(t)
		default:
			s = fmt.Sprintf("%v", t)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		parts = append(parts, s)
	}
	return strings.ToLower(strings.Join(parts, " "))
}
