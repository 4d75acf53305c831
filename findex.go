// Package findex provides per-table hybrid search over a relational
// database: store-native full-text matching fused with semantic vector
// retrieval, narrowed by structured filter predicates.
//
// Basic usage:
//
//	client, err := findex.New(
//	    findex.WithSQLite(".findex/findex.db"),
//	    findex.WithTablesConfig(".findex/tables.yaml"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Prepare the vector indexes: load persisted files, build the rest.
//	if err := client.Indexes.LoadOrBuildAll(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Hybrid search over one table
//	result, err := client.Search.Search(ctx, search.NewRequest("items",
//	    search.WithText("mountain bike"),
//	    search.WithFilterString("status:active"),
//	))
//
//	// Iterate results
//	for _, row := range result.Rows() {
//	    fmt.Println(row.ID(), row["title"])
//	}
package findex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/findexhq/findex/application/service"
	"github.com/findexhq/findex/domain/schema"
	"github.com/findexhq/findex/infrastructure/provider"
	"github.com/findexhq/findex/infrastructure/store"
	"github.com/findexhq/findex/internal/config"
	"github.com/findexhq/findex/internal/database"
)

// Client is the main entry point for the findex library.
//
// Access resources via struct fields:
//
//	client.Search.Search(ctx, request)
//	client.Indexes.Rebuild(ctx, "items")
type Client struct {
	// Public resource fields (direct service access)
	Search  *service.Search
	Indexes *service.IndexRegistry

	db      database.Database
	schemas schema.Registry
	closers []io.Closer

	logger     *slog.Logger
	dataDir    string
	indexesDir string
	searchTop  int
	omniTop    int
	closed     atomic.Bool
	mu         sync.Mutex
}

// New creates a new Client with the given options. Vector indexes are not
// loaded until Indexes.LoadOrBuildAll or the first index write.
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.database == databaseUnset {
		return nil, ErrNoDatabase
	}

	// Set up logger
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Set up directories
	dataDir, err := config.PrepareDataDir(cfg.dataDir)
	if err != nil {
		return nil, err
	}

	indexesDir, err := config.PrepareIndexesDir(cfg.indexesDir, dataDir)
	if err != nil {
		return nil, err
	}

	// Load table declarations
	schemas := cfg.schemas
	if !cfg.schemasSet {
		if cfg.tablesPath == "" {
			return nil, ErrNoTables
		}
		schemas, err = config.LoadTables(cfg.tablesPath)
		if err != nil {
			return nil, err
		}
	}

	// Create the built-in embedding provider when no external embedder is
	// configured and at least one table wants semantic search.
	embedder := cfg.embedder
	if embedder == nil && hasHybridTable(schemas) {
		modelDir := cfg.modelDir
		if modelDir == "" {
			modelDir = filepath.Join(dataDir, config.DefaultModelsSubdir)
		}
		hugotEmbedder := provider.NewHugotEmbedder(modelDir, cfg.vectorDim)
		if !hugotEmbedder.Available() {
			return nil, fmt.Errorf("no embedding model found in %s: add model files or configure a remote embedding endpoint", modelDir)
		}
		embedder = hugotEmbedder
		logger.Info("built-in embedding provider enabled", slog.String("model_dir", modelDir))
	}

	// Open database
	ctx := context.Background()
	db, err := database.NewDatabase(ctx, buildDatabaseURL(cfg))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.ConfigurePool(config.DefaultDBMaxOpenConns, config.DefaultDBMaxIdleConns, config.DefaultDBConnMaxLifetime); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("configure pool: %w", err), errClose)
	}

	tableStore := store.NewStore(db, logger)
	indexes := service.NewIndexRegistry(schemas, tableStore, embedder, indexesDir, logger)

	client := &Client{
		db:         db,
		schemas:    schemas,
		closers:    cfg.closers,
		logger:     logger,
		dataDir:    dataDir,
		indexesDir: indexesDir,
		searchTop:  cfg.searchTop,
		omniTop:    cfg.omniTop,
	}

	// Initialize service fields directly
	client.Indexes = indexes
	client.Search = service.NewSearch(schemas, tableStore, indexes, logger)

	return client, nil
}

// Close releases all resources.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Close registered resources (e.g. caching transports)
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			c.logger.Error("failed to close resource", slog.Any("error", err))
		}
	}

	// Close the database
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	c.logger.Info("findex client closed")
	return nil
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Schemas returns the registered table declarations.
func (c *Client) Schemas() schema.Registry {
	return c.schemas
}

// DataDir returns the resolved data directory.
func (c *Client) DataDir() string {
	return c.dataDir
}

// IndexesDir returns the directory holding persisted vector indexes.
func (c *Client) IndexesDir() string {
	return c.indexesDir
}

// SearchTop returns the default result cap for single-table search.
func (c *Client) SearchTop() int {
	return c.searchTop
}

// OmniSearchTop returns the default per-table result cap for omnisearch.
func (c *Client) OmniSearchTop() int {
	return c.omniTop
}

// hasHybridTable reports whether any declaration enables semantic search.
func hasHybridTable(schemas schema.Registry) bool {
	for _, tbl := range schemas.Tables() {
		if tbl.Hybrid() {
			return true
		}
	}
	return false
}

// buildDatabaseURL renders the configured database choice as a URL for
// database.NewDatabase.
func buildDatabaseURL(cfg *clientConfig) string {
	if cfg.database == databaseSQLite {
		return "sqlite:///" + cfg.dbPath
	}
	return cfg.dbURL
}
