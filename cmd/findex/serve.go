package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/findexhq/findex"
	"github.com/findexhq/findex/infrastructure/api"
	apimiddleware "github.com/findexhq/findex/infrastructure/api/middleware"
	"github.com/findexhq/findex/internal/config"
	"github.com/findexhq/findex/internal/log"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		envFile string
		host    string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST                         Server host to bind to (default: 0.0.0.0)
  PORT                         Server port to listen on (default: 8080)
  DATA_DIR                     Data directory (default: ~/.findex)
  INDEXES_DIR                  Vector index directory (default: {data_dir}/indexes)
  DB_URL                       Database URL (default: sqlite:///{data_dir}/findex.db)
  TABLES_CONFIG                Table declaration file (default: {data_dir}/tables.yaml)
  LOG_LEVEL                    Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                   Log format: pretty, json (default: pretty)
  VECTOR_DIM                   Embedding dimensionality (default: 384)
  SEARCH_TOP                   Default result cap for table search (default: 50)
  OMNISEARCH_TOP               Default per-table cap for omnisearch (default: 25)
  MODEL_CACHE_DIR              Local embedding model cache (default: {data_dir}/models)
  HTTP_CACHE_DIR               Embedding response cache directory (disabled when unset)

  EMBEDDING_ENDPOINT_*         Remote embedding service configuration
    BASE_URL                   Base URL (e.g., https://api.openai.com/v1)
    MODEL                      Model identifier (e.g., text-embedding-3-small)
    API_KEY                    API key for authentication
    TIMEOUT                    Request timeout in seconds (default: 60)
    MAX_RETRIES                Retry attempts (default: 5)
    INITIAL_DELAY              Initial retry delay in seconds (default: 2.0)
    BACKOFF_FACTOR             Retry backoff multiplier (default: 2.0)
    BATCH_SIZE                 Texts per embedding request (default: 64)

Without a remote embedding endpoint, tables marked hybrid require a local
model in MODEL_CACHE_DIR.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(envFile, host, port)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")

	return cmd
}

func runServe(envFile, host string, port int) error {
	// Load configuration
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	// Apply command line overrides (flags take precedence over env vars)
	cfg = applyServeOverrides(cfg, host, port)

	addr := cfg.Addr()

	// Setup logger
	logger := log.NewLogger(cfg)
	slogger := logger.Slog()

	// Build findex client options and log settings
	opts := append(clientOptions(cfg), findex.WithLogger(slogger))

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	slogger.LogAttrs(context.Background(), slog.LevelInfo, "starting findex", attrs...)

	client, err := findex.New(opts...)
	if err != nil {
		return fmt.Errorf("create findex client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close findex client", slog.Any("error", err))
		}
	}()

	// Load persisted vector indexes, building any that are missing or stale
	if err := client.Indexes.LoadOrBuildAll(context.Background()); err != nil {
		return fmt.Errorf("load indexes: %w", err)
	}

	// Create API server with the client's services
	apiServer := api.NewAPIServer(client)
	router := apiServer.Router()

	// Apply custom middleware (MUST be done before MountRoutes)
	router.Use(apimiddleware.Logging(slogger))

	// Mount API routes after middleware is configured
	apiServer.MountRoutes()

	// Root endpoint with API info
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"name":"findex","version":"%s"}`, version)
	})

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Create standalone server for custom router
	server := api.NewServer(addr, slogger)
	server.Router().Mount("/", router)

	go func() {
		<-sigChan
		slogger.Info("shutting down server")
		cancel()
		if err := server.Shutdown(ctx); err != nil {
			slogger.Error("shutdown error", slog.Any("error", err))
		}
	}()

	slogger.Info("starting server", slog.String("addr", addr))
	if err := server.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// applyServeOverrides applies command line flag overrides to the config.
func applyServeOverrides(cfg config.AppConfig, host string, port int) config.AppConfig {
	var opts []config.AppConfigOption

	if host != "" {
		opts = append(opts, config.WithHost(host))
	}
	if port != 0 {
		opts = append(opts, config.WithPort(port))
	}

	return cfg.Apply(opts...)
}
