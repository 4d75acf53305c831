// Package dto defines the wire shapes of the HTTP API.
package dto

import "github.com/findexhq/findex/domain/search"

// SearchResponse is the body of a search: the fused, scrubbed rows.
// Results is always present, empty when nothing matched.
type SearchResponse struct {
	Results []search.Row `json:"results"`
}

// NewSearchResponse builds a SearchResponse, normalizing nil rows to an
// empty slice so the JSON always carries a results array.
func NewSearchResponse(rows []search.Row) SearchResponse {
	if rows == nil {
		rows = []search.Row{}
	}
	return SearchResponse{Results: rows}
}

// TableError is one failed table's slot in an omnisearch response.
type TableError struct {
	Error string `json:"error"`
}

// UpsertResponse acknowledges a single-record index update.
type UpsertResponse struct {
	Status string `json:"status"`
	Table  string `json:"table"`
	ItemID int64  `json:"item_id"`
}

// ReindexResponse acknowledges a full rebuild of one table.
type ReindexResponse struct {
	Status string `json:"status"`
	Table  string `json:"table"`
}

// ReindexAllResponse acknowledges a rebuild across every table.
type ReindexAllResponse struct {
	Status string   `json:"status"`
	Tables []string `json:"tables"`
}
