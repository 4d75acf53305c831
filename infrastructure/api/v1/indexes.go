// Package v1 implements the HTTP handlers for the index endpoints.
package v1

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/findexhq/findex"
	"github.com/findexhq/findex/domain/search"
	"github.com/findexhq/findex/infrastructure/api/middleware"
	"github.com/findexhq/findex/infrastructure/api/v1/dto"
)

// Request timeouts. Reindexing re-embeds every row of a table and can run
// far longer than a search round trip.
const (
	searchTimeout  = 60 * time.Second
	reindexTimeout = 10 * time.Minute
)

// IndexesRouter handles the per-table search and index maintenance endpoints.
type IndexesRouter struct {
	client *findex.Client
	logger *slog.Logger
}

// NewIndexesRouter creates a new IndexesRouter.
func NewIndexesRouter(client *findex.Client) *IndexesRouter {
	return &IndexesRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for the index endpoints. Timeouts are
// grouped here rather than on the whole mount: search and upsert share the
// short deadline, the rebuild endpoints get the long one.
func (r *IndexesRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Group(func(g chi.Router) {
		g.Use(chimiddleware.Timeout(searchTimeout))

		// Static routes ahead of the {table} parameter routes. Chi resolves
		// static segments first regardless; the order keeps intent readable.
		g.Get("/omnisearch", r.OmniSearch)
		g.Get("/{table}", r.Search)
		g.Post("/{table}", r.Upsert)
	})

	router.Group(func(g chi.Router) {
		g.Use(chimiddleware.Timeout(reindexTimeout))

		g.Post("/reindex", r.ReindexAll)
		g.Post("/{table}/reindex", r.Reindex)
	})

	return router
}

// Search handles GET /indexes/{table}: hybrid search over one table.
// query, top and filters are all optional; with no query the filter match
// is returned in store order.
func (r *IndexesRouter) Search(w http.ResponseWriter, req *http.Request) {
	table := chi.URLParam(req, "table")
	params := req.URL.Query()

	request := search.NewRequest(table,
		search.WithText(params.Get("query")),
		search.WithTop(parseTop(params.Get("top"), r.client.SearchTop())),
		search.WithFilterString(params.Get("filters")),
	)

	result, err := r.client.Search.Search(req.Context(), request)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.NewSearchResponse(result.Rows()))
}

// OmniSearch handles GET /indexes/omnisearch: the same search fanned out
// over several tables, every registered table when none are named. Each
// table reports its own rows or its own error.
func (r *IndexesRouter) OmniSearch(w http.ResponseWriter, req *http.Request) {
	params := req.URL.Query()

	opts := []search.OmniRequestOption{
		search.WithOmniText(params.Get("query")),
		search.WithOmniTop(parseTop(params.Get("top"), r.client.OmniSearchTop())),
		search.WithOmniFilterString(params.Get("filters")),
	}
	if tables := tableList(params["tables"]); len(tables) > 0 {
		opts = append(opts, search.WithTables(tables...))
	}

	result, err := r.client.Search.OmniSearch(req.Context(), search.NewOmniRequest(opts...))
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	body := make(map[string]any, len(result.Tables()))
	for _, table := range result.Tables() {
		outcome, _ := result.Outcome(table)
		if outcomeErr := outcome.Err(); outcomeErr != nil {
			body[table] = dto.TableError{Error: outcomeErr.Error()}
			continue
		}
		body[table] = dto.NewSearchResponse(outcome.Rows())
	}

	middleware.WriteJSON(w, http.StatusOK, body)
}

// Upsert handles POST /indexes/{table}?item_id=N: re-embed one row and
// replace its vector index entry. The row must already be in the store.
func (r *IndexesRouter) Upsert(w http.ResponseWriter, req *http.Request) {
	table := chi.URLParam(req, "table")

	raw := req.URL.Query().Get("item_id")
	if raw == "" {
		middleware.WriteError(w, req, middleware.BadRequest("item_id is required"), r.logger)
		return
	}
	itemID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		middleware.WriteError(w, req, middleware.BadRequest("item_id must be an integer"), r.logger)
		return
	}

	if err := r.client.Indexes.UpsertRecord(req.Context(), table, itemID); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.UpsertResponse{
		Status: "indexed",
		Table:  table,
		ItemID: itemID,
	})
}

// Reindex handles POST /indexes/{table}/reindex: full rebuild of one
// table's vector index from the store.
func (r *IndexesRouter) Reindex(w http.ResponseWriter, req *http.Request) {
	table := chi.URLParam(req, "table")

	if err := r.client.Indexes.Rebuild(req.Context(), table); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.ReindexResponse{
		Status: "reindexed",
		Table:  table,
	})
}

// ReindexAll handles POST /indexes/reindex: rebuild every table's index.
func (r *IndexesRouter) ReindexAll(w http.ResponseWriter, req *http.Request) {
	if err := r.client.Indexes.RebuildAll(req.Context()); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.ReindexAllResponse{
		Status: "reindexed",
		Tables: r.client.Schemas().Names(),
	})
}

// parseTop parses the top query parameter, falling back to the configured
// default on anything that is not a positive integer. Result caps are never
// a reason to reject a request.
func parseTop(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	top, err := strconv.Atoi(raw)
	if err != nil || top <= 0 {
		return fallback
	}
	return top
}

// tableList flattens repeated and comma-separated tables parameters.
func tableList(values []string) []string {
	var tables []string
	for _, v := range values {
		for _, name := range strings.Split(v, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				tables = append(tables, name)
			}
		}
	}
	return tables
}
