// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultHost                  = "0.0.0.0"
	DefaultPort                  = 8080
	DefaultLogLevel              = "INFO"
	DefaultVectorDim             = 384
	DefaultSearchTop             = 50
	DefaultOmniSearchTop         = 25
	DefaultEmbeddingModel        = "text-embedding-3-small"
	DefaultEndpointTimeout       = 60 * time.Second
	DefaultEndpointMaxRetries    = 5
	DefaultEndpointInitialDelay  = 2 * time.Second
	DefaultEndpointBackoffFactor = 2.0
	DefaultEndpointBatchSize     = 64
	DefaultDBMaxOpenConns        = 25
	DefaultDBMaxIdleConns        = 5
	DefaultDBConnMaxLifetime     = 30 * time.Minute
)

// Filenames and subdirectories resolved under the data directory.
const (
	DefaultDatabaseFile  = "findex.db"
	DefaultTablesFile    = "tables.yaml"
	DefaultIndexesSubdir = "indexes"
	DefaultModelsSubdir  = "models"
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// Endpoint configures the embedding service endpoint.
type Endpoint struct {
	baseURL       string
	model         string
	apiKey        string
	timeout       time.Duration
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
	batchSize     int
}

// NewEndpoint creates a new Endpoint with defaults.
func NewEndpoint() Endpoint {
	return Endpoint{
		model:         DefaultEmbeddingModel,
		timeout:       DefaultEndpointTimeout,
		maxRetries:    DefaultEndpointMaxRetries,
		initialDelay:  DefaultEndpointInitialDelay,
		backoffFactor: DefaultEndpointBackoffFactor,
		batchSize:     DefaultEndpointBatchSize,
	}
}

// BaseURL returns the base URL for the endpoint.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Model returns the model identifier.
func (e Endpoint) Model() string { return e.model }

// APIKey returns the API key.
func (e Endpoint) APIKey() string { return e.apiKey }

// Timeout returns the request timeout.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// MaxRetries returns the maximum retry count.
func (e Endpoint) MaxRetries() int { return e.maxRetries }

// InitialDelay returns the initial retry delay.
func (e Endpoint) InitialDelay() time.Duration { return e.initialDelay }

// BackoffFactor returns the retry backoff multiplier.
func (e Endpoint) BackoffFactor() float64 { return e.backoffFactor }

// BatchSize returns the maximum number of texts per embedding request.
func (e Endpoint) BatchSize() int { return e.batchSize }

// IsConfigured returns true if a remote embedding endpoint is configured.
// The model alone is not enough; a base URL or API key must be present.
func (e Endpoint) IsConfigured() bool {
	return e.baseURL != "" || e.apiKey != ""
}

// EndpointOption is a functional option for Endpoint.
type EndpointOption func(*Endpoint)

// WithBaseURL sets the base URL.
func WithBaseURL(url string) EndpointOption {
	return func(e *Endpoint) { e.baseURL = url }
}

// WithModel sets the model.
func WithModel(model string) EndpointOption {
	return func(e *Endpoint) { e.model = model }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) EndpointOption {
	return func(e *Endpoint) { e.apiKey = key }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.timeout = d }
}

// WithMaxRetries sets the maximum retry count.
func WithMaxRetries(n int) EndpointOption {
	return func(e *Endpoint) { e.maxRetries = n }
}

// WithInitialDelay sets the initial retry delay.
func WithInitialDelay(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.initialDelay = d }
}

// WithBackoffFactor sets the retry backoff multiplier.
func WithBackoffFactor(f float64) EndpointOption {
	return func(e *Endpoint) { e.backoffFactor = f }
}

// WithBatchSize sets the maximum number of texts per embedding request.
func WithBatchSize(n int) EndpointOption {
	return func(e *Endpoint) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// NewEndpointWithOptions creates an Endpoint with functional options.
func NewEndpointWithOptions(opts ...EndpointOption) Endpoint {
	e := NewEndpoint()
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// AppConfig holds the main application configuration.
//
// Paths derived from the data directory (database file, indexes directory,
// tables file, model cache) stay empty until read, so overriding the data
// directory re-derives every default that was not set explicitly.
type AppConfig struct {
	host              string
	port              int
	dataDir           string
	indexesDir        string
	dbURL             string
	tablesConfig      string
	logLevel          string
	logFormat         LogFormat
	embeddingEndpoint *Endpoint
	modelCacheDir     string
	httpCacheDir      string
	vectorDim         int
	searchTop         int
	omniSearchTop     int
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".findex"
	}
	return filepath.Join(home, ".findex")
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	return AppConfig{
		host:          DefaultHost,
		port:          DefaultPort,
		dataDir:       DefaultDataDir(),
		logLevel:      DefaultLogLevel,
		logFormat:     LogFormatPretty,
		vectorDim:     DefaultVectorDim,
		searchTop:     DefaultSearchTop,
		omniSearchTop: DefaultOmniSearchTop,
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// IndexesDir returns the directory holding persisted vector indexes.
func (c AppConfig) IndexesDir() string {
	if c.indexesDir != "" {
		return c.indexesDir
	}
	return filepath.Join(c.dataDir, DefaultIndexesSubdir)
}

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string {
	if c.dbURL != "" {
		return c.dbURL
	}
	return "sqlite:///" + filepath.Join(c.dataDir, DefaultDatabaseFile)
}

// TablesConfig returns the path of the table declaration file.
func (c AppConfig) TablesConfig() string {
	if c.tablesConfig != "" {
		return c.tablesConfig
	}
	return filepath.Join(c.dataDir, DefaultTablesFile)
}

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// EmbeddingEndpoint returns the embedding endpoint config, or nil when no
// remote endpoint was configured.
func (c AppConfig) EmbeddingEndpoint() *Endpoint { return c.embeddingEndpoint }

// ModelCacheDir returns the directory for cached local embedding models.
func (c AppConfig) ModelCacheDir() string {
	if c.modelCacheDir != "" {
		return c.modelCacheDir
	}
	return filepath.Join(c.dataDir, DefaultModelsSubdir)
}

// HTTPCacheDir returns the directory for caching HTTP responses, empty when
// caching is disabled.
func (c AppConfig) HTTPCacheDir() string { return c.httpCacheDir }

// VectorDim returns the embedding dimensionality.
func (c AppConfig) VectorDim() int { return c.vectorDim }

// SearchTop returns the default result cap for single-table search.
func (c AppConfig) SearchTop() int { return c.searchTop }

// OmniSearchTop returns the default per-table result cap for omnisearch.
func (c AppConfig) OmniSearchTop() int { return c.omniSearchTop }

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// EnsureIndexesDir creates the indexes directory if it doesn't exist.
func (c AppConfig) EnsureIndexesDir() error {
	return os.MkdirAll(c.IndexesDir(), 0o755)
}

// EnsureModelCacheDir creates the model cache directory if it doesn't exist.
func (c AppConfig) EnsureModelCacheDir() error {
	return os.MkdirAll(c.ModelCacheDir(), 0o755)
}

// PrepareDataDir creates the data directory (defaulting if empty) and returns it.
func PrepareDataDir(dataDir string) (string, error) {
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dataDir, nil
}

// PrepareIndexesDir resolves the indexes directory (defaulting if empty) and creates it.
func PrepareIndexesDir(indexesDir, dataDir string) (string, error) {
	if indexesDir == "" {
		indexesDir = filepath.Join(dataDir, DefaultIndexesSubdir)
	}
	if err := os.MkdirAll(indexesDir, 0o755); err != nil {
		return "", fmt.Errorf("create indexes directory: %w", err)
	}
	return indexesDir, nil
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.dataDir = dir }
}

// WithIndexesDir sets the vector index directory.
func WithIndexesDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.indexesDir = dir }
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithTablesConfig sets the table declaration file path.
func WithTablesConfig(path string) AppConfigOption {
	return func(c *AppConfig) { c.tablesConfig = path }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithEmbeddingEndpoint sets the embedding endpoint.
func WithEmbeddingEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.embeddingEndpoint = &e }
}

// WithModelCacheDir sets the local model cache directory.
func WithModelCacheDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.modelCacheDir = dir }
}

// WithHTTPCacheDir sets the HTTP response cache directory.
func WithHTTPCacheDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.httpCacheDir = dir }
}

// WithVectorDim sets the embedding dimensionality.
func WithVectorDim(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.vectorDim = n
		}
	}
}

// WithSearchTop sets the default result cap for single-table search.
func WithSearchTop(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.searchTop = n
		}
	}
}

// WithOmniSearchTop sets the default per-table result cap for omnisearch.
func WithOmniSearchTop(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.omniSearchTop = n
		}
	}
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes for logging the configuration.
// Sensitive values like API keys and DSN credentials are masked.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("data_dir", c.dataDir),
		slog.String("indexes_dir", c.IndexesDir()),
		slog.String("tables_config", c.TablesConfig()),
		slog.String("db_url", c.maskedDBURL()),
		slog.String("log_level", c.logLevel),
		slog.String("embedding_base_url", c.endpointBaseURL()),
		slog.String("embedding_model", c.endpointModel()),
		slog.Int("vector_dim", c.vectorDim),
		slog.Int("search_top", c.searchTop),
		slog.Int("omnisearch_top", c.omniSearchTop),
	}
}

func (c AppConfig) maskedDBURL() string {
	url := c.DBURL()
	if strings.HasPrefix(url, "sqlite:") {
		return url
	}
	scheme, _, found := strings.Cut(url, "://")
	if !found {
		return "***"
	}
	return scheme + "://***@***"
}

func (c AppConfig) endpointBaseURL() string {
	if c.embeddingEndpoint == nil {
		return "(not configured)"
	}
	return c.embeddingEndpoint.BaseURL()
}

func (c AppConfig) endpointModel() string {
	if c.embeddingEndpoint == nil {
		return "(not configured)"
	}
	return c.embeddingEndpoint.Model()
}
