package provider

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func cachedRequest(t *testing.T, transport *CachingTransport, url, body string) string {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(data)
}

func TestCachingTransportCacheMiss(t *testing.T) {
	var count atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	}))
	defer srv.Close()

	transport := NewCachingTransport(t.TempDir(), srv.Client().Transport)

	body := cachedRequest(t, transport, srv.URL+"/v1/embeddings", `{"input":"hello"}`)
	if body != `{"result":"ok"}` {
		t.Errorf("unexpected body: %s", body)
	}
	if count.Load() != 1 {
		t.Errorf("expected 1 upstream call, got %d", count.Load())
	}
}

func TestCachingTransportCacheHit(t *testing.T) {
	var count atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	}))
	defer srv.Close()

	transport := NewCachingTransport(t.TempDir(), srv.Client().Transport)

	for i := range 3 {
		body := cachedRequest(t, transport, srv.URL+"/v1/embeddings", `{"input":"hello"}`)
		if body != `{"result":"ok"}` {
			t.Errorf("request %d: unexpected body: %s", i, body)
		}
	}

	if count.Load() != 1 {
		t.Errorf("expected 1 upstream call, got %d", count.Load())
	}
}

func TestCachingTransportDifferentBodies(t *testing.T) {
	var count atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count.Add(1)
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	transport := NewCachingTransport(t.TempDir(), srv.Client().Transport)

	for _, b := range []string{`{"input":"hello"}`, `{"input":"world"}`} {
		_ = cachedRequest(t, transport, srv.URL+"/v1/embeddings", b)
	}

	if count.Load() != 2 {
		t.Errorf("expected 2 upstream calls, got %d", count.Load())
	}
}

func TestCachingTransportSkipsErrorResponses(t *testing.T) {
	var count atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer srv.Close()

	transport := NewCachingTransport(t.TempDir(), srv.Client().Transport)

	for range 2 {
		_ = cachedRequest(t, transport, srv.URL+"/v1/embeddings", `{"input":"hello"}`)
	}

	if count.Load() != 2 {
		t.Errorf("expected error responses to bypass the cache, got %d upstream calls", count.Load())
	}
}

func TestCachingTransportCorruptCacheFallsThrough(t *testing.T) {
	var count atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count.Add(1)
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	transport := NewCachingTransport(dir, srv.Client().Transport)

	_ = cachedRequest(t, transport, srv.URL+"/v1/embeddings", `{"input":"hello"}`)

	// Corrupt every cache file; the next request must hit upstream again.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read cache dir: %v", err)
	}
	for _, entry := range entries {
		if err := os.WriteFile(filepath.Join(dir, entry.Name()), []byte("not json"), 0o644); err != nil {
			t.Fatalf("corrupt cache file: %v", err)
		}
	}

	body := cachedRequest(t, transport, srv.URL+"/v1/embeddings", `{"input":"hello"}`)
	if body != `{"result":"ok"}` {
		t.Errorf("unexpected body after corrupt cache: %s", body)
	}
	if count.Load() != 2 {
		t.Errorf("expected corrupt cache to fall through, got %d upstream calls", count.Load())
	}
}
