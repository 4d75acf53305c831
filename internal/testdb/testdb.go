// Package testdb provides a shared test database helper for fast,
// realistic testing against a throwaway SQLite database.
package testdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/findexhq/findex/internal/database"
)

// New creates a file-backed SQLite database under the test's temp directory.
// A file (rather than :memory:) keeps every pooled connection pointed at the
// same database. It is closed automatically when the test finishes.
func New(t *testing.T) database.Database {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "findex.db")

	db, err := database.NewDatabase(ctx, "sqlite:///"+dbPath)
	if err != nil {
		t.Fatalf("testdb.New: open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// WithSchema creates a SQLite database and executes the given SQL statements
// to set up a custom schema.
func WithSchema(t *testing.T, statements ...string) database.Database {
	t.Helper()
	ctx := context.Background()
	db := New(t)
	for _, stmt := range statements {
		if err := db.Session(ctx).Exec(stmt).Error; err != nil {
			t.Fatalf("testdb.WithSchema: %v\nSQL: %s", err, stmt)
		}
	}
	return db
}

// Seed inserts the given rows into a table. Column values are bound through
// GORM, so each row map may carry any scannable value.
func Seed(t *testing.T, db database.Database, table string, rows ...map[string]any) {
	t.Helper()
	ctx := context.Background()
	for _, row := range rows {
		if err := db.Session(ctx).Table(table).Create(row).Error; err != nil {
			t.Fatalf("testdb.Seed: insert into %s: %v", table, err)
		}
	}
}
