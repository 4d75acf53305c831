package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeEmbeddingServer mimics the OpenAI embeddings endpoint, returning
// deterministic 3-dimensional vectors and counting requests.
func fakeEmbeddingServer(t *testing.T, counter *atomic.Int64) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.Add(1)

		var body struct {
			Input any    `json:"input"`
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		// Input can be a single string or []string.
		var texts []string
		switch v := body.Input.(type) {
		case string:
			texts = []string{v}
		case []any:
			for _, item := range v {
				texts = append(texts, item.(string))
			}
		}

		data := make([]map[string]any, len(texts))
		for i := range texts {
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float64{float64(i), 0.2, 0.3},
			}
		}

		resp := map[string]any{
			"object": "list",
			"data":   data,
			"model":  body.Model,
			"usage": map[string]int{
				"prompt_tokens": len(texts) * 4,
				"total_tokens":  len(texts) * 4,
			},
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestEmbedder(srv *httptest.Server, batchSize int) *OpenAIEmbedder {
	return NewOpenAIEmbedder(OpenAIConfig{
		APIKey:       "test-key",
		BaseURL:      srv.URL,
		Model:        "test-model",
		Dim:          3,
		BatchSize:    batchSize,
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
	})
}

func TestOpenAIEmbedderEmpty(t *testing.T) {
	var counter atomic.Int64
	srv := fakeEmbeddingServer(t, &counter)
	defer srv.Close()

	vectors, err := newTestEmbedder(srv, 0).Embed(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, vectors)
	require.Equal(t, int64(0), counter.Load(), "no HTTP request for empty input")
}

func TestOpenAIEmbedderSingle(t *testing.T) {
	var counter atomic.Int64
	srv := fakeEmbeddingServer(t, &counter)
	defer srv.Close()

	vectors, err := newTestEmbedder(srv, 0).Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	require.Equal(t, []float32{0, 0.2, 0.3}, vectors[0])
	require.Equal(t, int64(1), counter.Load())
}

func TestOpenAIEmbedderBatches(t *testing.T) {
	var counter atomic.Int64
	srv := fakeEmbeddingServer(t, &counter)
	defer srv.Close()

	texts := []string{"a", "b", "c", "d", "e"}
	vectors, err := newTestEmbedder(srv, 2).Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 5)
	require.Equal(t, int64(3), counter.Load(), "five texts at batch size two need three calls")
}

func TestOpenAIEmbedderRetriesServerErrors(t *testing.T) {
	var counter atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if counter.Add(1) == 1 {
			http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"test-model","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],"usage":{"prompt_tokens":4,"total_tokens":4}}`))
	}))
	defer srv.Close()

	vectors, err := newTestEmbedder(srv, 0).Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	require.Equal(t, int64(2), counter.Load(), "expected one retry after 503")
}

func TestOpenAIEmbedderUpstreamFailureNotRetried(t *testing.T) {
	var counter atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.Add(1)
		// HTTP 200 with an empty payload: the routing-provider failure shape.
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[],"model":"","usage":{"prompt_tokens":0,"total_tokens":0}}`))
	}))
	defer srv.Close()

	_, err := newTestEmbedder(srv, 0).Embed(context.Background(), []string{"hello"})
	require.Error(t, err)
	require.Equal(t, int64(1), counter.Load(), "upstream failure must not be retried")

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	require.Equal(t, "embedding", provErr.Operation())
}

func TestOpenAIEmbedderDim(t *testing.T) {
	e := NewOpenAIEmbedder(OpenAIConfig{APIKey: "k", Dim: 128})
	require.Equal(t, 128, e.Dim())

	e = NewOpenAIEmbedder(OpenAIConfig{APIKey: "k"})
	require.Equal(t, DefaultDim, e.Dim())
}
