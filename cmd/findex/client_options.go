package main

import (
	"github.com/findexhq/findex"
	"github.com/findexhq/findex/infrastructure/provider"
	"github.com/findexhq/findex/internal/config"
)

// clientOptions returns the findex.Option slice derived from the shared parts
// of AppConfig: database, table declarations, directories, tuning knobs, and
// the embedding provider. Callers append entrypoint-specific options (logger,
// overrides) before passing the full slice to findex.New.
func clientOptions(cfg config.AppConfig) []findex.Option {
	opts := []findex.Option{
		findex.WithDatabaseURL(cfg.DBURL()),
		findex.WithTablesConfig(cfg.TablesConfig()),
		findex.WithDataDir(cfg.DataDir()),
		findex.WithIndexesDir(cfg.IndexesDir()),
		findex.WithModelDir(cfg.ModelCacheDir()),
		findex.WithVectorDim(cfg.VectorDim()),
		findex.WithSearchTop(cfg.SearchTop()),
		findex.WithOmniSearchTop(cfg.OmniSearchTop()),
	}

	opts = append(opts, embeddingOptions(cfg)...)

	return opts
}

// embeddingOptions returns a findex.Option for the remote embedding provider
// when the endpoint is configured, or an empty slice otherwise. Without a
// remote endpoint the client falls back to the local model cache.
func embeddingOptions(cfg config.AppConfig) []findex.Option {
	endpoint := cfg.EmbeddingEndpoint()
	if endpoint == nil || !endpoint.IsConfigured() {
		return nil
	}

	return []findex.Option{
		findex.WithOpenAIEmbedder(provider.OpenAIConfig{
			APIKey:        endpoint.APIKey(),
			BaseURL:       endpoint.BaseURL(),
			Model:         endpoint.Model(),
			Dim:           cfg.VectorDim(),
			BatchSize:     endpoint.BatchSize(),
			Timeout:       endpoint.Timeout(),
			MaxRetries:    endpoint.MaxRetries(),
			InitialDelay:  endpoint.InitialDelay(),
			BackoffFactor: endpoint.BackoffFactor(),
			CacheDir:      cfg.HTTPCacheDir(),
		}),
	}
}
