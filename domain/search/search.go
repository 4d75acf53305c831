// Package search provides the hybrid retrieval domain: typed filter
// predicates compiled from the wire DSL, the ordered-union fusion of lexical
// and semantic id streams, and the capability surface the relational store
// must implement.
package search

import "strings"

// Row is one record fetched from the store, keyed by column name. The engine
// never interprets columns beyond the id, the declared text columns and the
// columns named by filter descriptors.
type Row map[string]any

// ID extracts the row's integer primary key. Drivers disagree on the scan
// type for integer columns, so the usual suspects are handled.
func (r Row) ID() (int64, bool) {
	switch v := r["id"].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// responseDenylist lists columns stripped from every response row. The
// embedding payload is an implementation detail and the bookkeeping
// timestamps are noise to search clients.
var responseDenylist = []string{
	"embedding",
	"created_at",
	"updated_at",
	"last_embedding_generated_at",
}

// ScrubRow removes denylisted columns, mutating and returning the row.
func ScrubRow(row Row) Row {
	for _, field := range responseDenylist {
		delete(row, field)
	}
	return row
}

// ScrubRows removes denylisted columns from every row.
func ScrubRows(rows []Row) []Row {
	for _, row := range rows {
		ScrubRow(row)
	}
	return rows
}

// NormalizeQuery lowercases and trims query text. Both retrievers and the
// embedder see the same normalized form.
func NormalizeQuery(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
