package search

import "context"

// Store is the capability surface the relational store must provide. Every
// method takes the table name; implementations validate it (and any column
// name) against the identifier pattern before building SQL, and bind all
// values as parameters.
type Store interface {
	// FetchAll returns every row of the table. Used only for full rebuilds.
	FetchAll(ctx context.Context, table string) ([]Row, error)

	// FetchByID returns one row, or an error wrapping the store's not-found
	// sentinel when the id is absent.
	FetchByID(ctx context.Context, table string, id int64) (Row, error)

	// FetchByIDs returns the rows for the given ids in unspecified order.
	// Missing ids are simply absent from the result.
	FetchByIDs(ctx context.Context, table string, ids []int64) ([]Row, error)

	// LexicalSearch runs the store's native full-text match over the text
	// columns, returning ids ordered by relevance. Queries of three or fewer
	// non-space characters use prefix matching; longer queries use the
	// natural-language mode.
	LexicalSearch(ctx context.Context, table string, textColumns []string, query string, limit int) ([]int64, error)

	// LexicalSearchFiltered is LexicalSearch with the filter conjunction
	// applied in the same statement.
	LexicalSearchFiltered(ctx context.Context, table string, textColumns []string, query string, filters Filters, limit int) ([]int64, error)

	// FilteredIDs returns every id matching the filters, unbounded. It
	// materializes the allowed set for filtered vector search.
	FilteredIDs(ctx context.Context, table string, filters Filters) ([]int64, error)

	// FilteredIDsLimited returns up to limit ids matching the filters, in
	// store-native order. It serves requests without query text.
	FilteredIDsLimited(ctx context.Context, table string, filters Filters, limit int) ([]int64, error)
}
