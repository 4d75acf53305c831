// Package service provides application layer services that orchestrate
// domain operations.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/findexhq/findex/domain/schema"
	"github.com/findexhq/findex/domain/search"
)

// SearchResult holds the hydrated rows of one table search, in fused order.
type SearchResult struct {
	rows []search.Row
}

// NewSearchResult creates a SearchResult from already-ordered rows.
func NewSearchResult(rows []search.Row) SearchResult {
	return SearchResult{rows: rows}
}

// Rows returns the result rows, best match first.
func (r SearchResult) Rows() []search.Row {
	result := make([]search.Row, len(r.rows))
	copy(result, r.rows)
	return result
}

// Count returns the number of rows in the result.
func (r SearchResult) Count() int {
	return len(r.rows)
}

// TableOutcome is one table's slice of an omnisearch response: either the
// table's rows or the error that table produced.
type TableOutcome struct {
	rows []search.Row
	err  error
}

// Rows returns the table's rows, best match first.
func (o TableOutcome) Rows() []search.Row {
	result := make([]search.Row, len(o.rows))
	copy(result, o.rows)
	return result
}

// Err returns the table's error, or nil when the table searched cleanly.
func (o TableOutcome) Err() error {
	return o.err
}

// OmniResult maps each searched table to its outcome.
type OmniResult struct {
	outcomes map[string]TableOutcome
}

// Tables returns the searched table names in sorted order.
func (r OmniResult) Tables() []string {
	names := make([]string, 0, len(r.outcomes))
	for name := range r.outcomes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Outcome returns the named table's outcome.
func (r OmniResult) Outcome(table string) (TableOutcome, bool) {
	o, ok := r.outcomes[table]
	return o, ok
}

// Search orchestrates hybrid retrieval for one table. The store's lexical
// full-text leg and the vector index's semantic leg run concurrently; an
// ordered union fuses their ids lexical-first, and the fused ids are
// hydrated back into rows. A failing leg degrades to no ids rather than
// failing the request.
type Search struct {
	schemas  schema.Registry
	store    search.Store
	registry *IndexRegistry
	fusion   search.Fusion
	logger   *slog.Logger
}

// NewSearch creates a Search service. A nil registry disables the semantic
// leg for every table.
func NewSearch(schemas schema.Registry, store search.Store, registry *IndexRegistry, logger *slog.Logger) *Search {
	if logger == nil {
		logger = slog.Default()
	}
	return &Search{
		schemas:  schemas,
		store:    store,
		registry: registry,
		fusion:   search.NewFusion(),
		logger:   logger,
	}
}

// Search runs the hybrid retrieval pipeline for one table. Unknown tables
// fail with ErrUnknownTable; malformed filter clauses are logged and
// dropped, never an error.
func (s Search) Search(ctx context.Context, request search.Request) (SearchResult, error) {
	tbl, ok := s.schemas.Lookup(request.Table())
	if !ok {
		return SearchResult{}, fmt.Errorf("%w: %s", ErrUnknownTable, request.Table())
	}

	text := search.NormalizeQuery(request.Text())
	top := request.Top()
	if top <= 0 {
		top = search.DefaultTop
	}

	filters, warnings := search.CompileFilters(tbl, request.FilterString())
	for _, w := range warnings {
		s.logger.Warn("dropped filter clause", "table", tbl.Name(), "column", w.Column(), "detail", w.Detail())
	}

	lexicalIDs, semanticIDs := s.retrieve(ctx, tbl, text, top, filters)

	// A cancelled request surfaces as an error, not as degraded-empty
	// results.
	if err := ctx.Err(); err != nil {
		return SearchResult{}, err
	}

	fused := s.fusion.Fuse(lexicalIDs, semanticIDs)
	rows, err := s.hydrate(ctx, tbl.Name(), fused)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{rows: search.ScrubRows(rows)}, nil
}

// OmniSearch fans Search out over several tables concurrently and collects
// each table's rows or its error. An empty table list means every
// configured table.
func (s Search) OmniSearch(ctx context.Context, request search.OmniRequest) (OmniResult, error) {
	tables := request.Tables()
	if len(tables) == 0 {
		tables = s.schemas.Names()
	}

	var (
		mu       sync.Mutex
		outcomes = make(map[string]TableOutcome, len(tables))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, table := range tables {
		g.Go(func() error {
			result, err := s.Search(gctx, request.ToRequest(table))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				outcomes[table] = TableOutcome{err: err}
				return nil
			}
			outcomes[table] = TableOutcome{rows: result.rows}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return OmniResult{}, err
	}
	return OmniResult{outcomes: outcomes}, nil
}

// retrieve gathers the lexical and semantic id streams for one request.
// Without query text there is nothing to rank, so the single lexical stream
// is the filter match in store-native order.
func (s Search) retrieve(ctx context.Context, tbl schema.Table, text string, top int, filters search.Filters) (lexicalIDs, semanticIDs []int64) {
	if text == "" {
		ids, err := s.store.FilteredIDsLimited(ctx, tbl.Name(), filters, top)
		if err != nil {
			s.logger.Warn("filtered browse failed", "table", tbl.Name(), "error", err)
			return nil, nil
		}
		return ids, nil
	}

	var lexErr, semErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if filters.IsEmpty() {
			lexicalIDs, lexErr = s.store.LexicalSearch(gctx, tbl.Name(), tbl.TextColumns(), text, top)
		} else {
			lexicalIDs, lexErr = s.store.LexicalSearchFiltered(gctx, tbl.Name(), tbl.TextColumns(), text, filters, top)
		}
		// A failed leg degrades; the other leg keeps running.
		return nil
	})

	if tbl.Hybrid() && s.registry != nil {
		g.Go(func() error {
			semanticIDs, semErr = s.semanticIDs(gctx, tbl, text, top, filters)
			return nil
		})
	}

	_ = g.Wait()

	if lexErr != nil {
		s.logger.Warn("lexical search failed", "table", tbl.Name(), "error", lexErr)
		lexicalIDs = nil
	}
	if semErr != nil {
		s.logger.Warn("semantic search failed", "table", tbl.Name(), "error", semErr)
		semanticIDs = nil
	}
	return lexicalIDs, semanticIDs
}

// semanticIDs runs the vector leg. With filters the allowed id set is
// materialized first so the index only ranks rows the filters admit.
func (s Search) semanticIDs(ctx context.Context, tbl schema.Table, text string, top int, filters search.Filters) ([]int64, error) {
	if filters.IsEmpty() {
		return s.registry.Search(ctx, tbl.Name(), text, top)
	}

	ids, err := s.store.FilteredIDs(ctx, tbl.Name(), filters)
	if err != nil {
		return nil, fmt.Errorf("resolving allowed ids: %w", err)
	}
	allowed := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}
	return s.registry.SearchFiltered(ctx, tbl.Name(), text, top, allowed)
}

// hydrate fetches the fused ids and re-emits the rows in fusion order. Ids
// the fetch does not return, e.g. rows deleted after indexing, are skipped.
func (s Search) hydrate(ctx context.Context, table string, ids []int64) ([]search.Row, error) {
	if len(ids) == 0 {
		return []search.Row{}, nil
	}

	rows, err := s.store.FetchByIDs(ctx, table, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrating %d rows: %w", len(ids), err)
	}

	byID := make(map[int64]search.Row, len(rows))
	for _, row := range rows {
		if id, ok := row.ID(); ok {
			byID[id] = row
		}
	}

	ordered := make([]search.Row, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			ordered = append(ordered, row)
		}
	}
	return ordered, nil
}
