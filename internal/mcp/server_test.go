package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/findexhq/findex/application/service"
	"github.com/findexhq/findex/domain/schema"
	"github.com/findexhq/findex/domain/search"
)

// fakeSearch implements Searcher with a canned result and records the
// last request it saw.
type fakeSearch struct {
	rows        []search.Row
	err         error
	lastRequest search.Request
}

func (f *fakeSearch) Search(_ context.Context, request search.Request) (service.SearchResult, error) {
	f.lastRequest = request
	if f.err != nil {
		return service.SearchResult{}, f.err
	}
	return service.NewSearchResult(f.rows), nil
}

// sendMessage marshals a JSON-RPC request, sends it through HandleMessage,
// and returns the JSONRPCResponse. It fatals on marshal failure or unexpected
// response type.
func sendMessage(t *testing.T, srv *Server, method string, id int, params map[string]any) mcp.JSONRPCResponse {
	t.Helper()

	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		msg["params"] = params
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	result := srv.MCPServer().HandleMessage(context.Background(), raw)

	resp, ok := result.(mcp.JSONRPCResponse)
	if !ok {
		t.Fatalf("expected JSONRPCResponse, got %T: %+v", result, result)
	}
	return resp
}

// resultJSON re-marshals the Result field through JSON into dst.
func resultJSON(t *testing.T, resp mcp.JSONRPCResponse, dst any) {
	t.Helper()
	b, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		t.Fatalf("unmarshal result into %T: %v", dst, err)
	}
}

func testRegistry(t *testing.T) schema.Registry {
	t.Helper()

	items, err := schema.NewTable("items",
		schema.WithTextColumns("title", "description"),
		schema.WithHybrid(),
	)
	if err != nil {
		t.Fatalf("build items table: %v", err)
	}

	stores, err := schema.NewTable("stores",
		schema.WithTextColumns("name"),
	)
	if err != nil {
		t.Fatalf("build stores table: %v", err)
	}

	registry, err := schema.NewRegistry(items, stores)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return registry
}

func testServer(t *testing.T, searcher *fakeSearch) *Server {
	t.Helper()
	return NewServer(searcher, testRegistry(t), "0.1.0-test", nil)
}

func initializeParams() map[string]any {
	return map[string]any{
		"protocolVersion": "2025-06-18",
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    "test-client",
			"version": "0.0.1",
		},
	}
}

func TestServer_Initialize(t *testing.T) {
	srv := testServer(t, &fakeSearch{})
	resp := sendMessage(t, srv, "initialize", 1, initializeParams())

	var result mcp.InitializeResult
	resultJSON(t, resp, &result)

	if result.ServerInfo.Name != "findex" {
		t.Errorf("expected server name findex, got %s", result.ServerInfo.Name)
	}
	if result.ServerInfo.Version != "0.1.0-test" {
		t.Errorf("expected version 0.1.0-test, got %s", result.ServerInfo.Version)
	}
	if result.Capabilities.Tools == nil {
		t.Error("expected tools capability to be present")
	}
}

func TestServer_ListTools(t *testing.T) {
	srv := testServer(t, &fakeSearch{})

	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/list", 2, nil)

	var result mcp.ListToolsResult
	resultJSON(t, resp, &result)

	if len(result.Tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(result.Tools))
	}

	tools := map[string]mcp.Tool{}
	for _, tool := range result.Tools {
		tools[tool.Name] = tool
	}

	for _, name := range []string{"search", "list_tables"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing tool: %s", name)
		}
	}

	// Verify search tool parameters
	searchTool := tools["search"]
	props := searchTool.InputSchema.Properties
	if props == nil {
		t.Fatal("search tool has no properties")
	}
	for _, param := range []string{"table", "query", "top_k", "filters"} {
		if _, ok := props[param]; !ok {
			t.Errorf("search tool missing %s parameter", param)
		}
	}
	if !slices.Contains(searchTool.InputSchema.Required, "table") {
		t.Error("table should be required")
	}
}

func TestServer_Search(t *testing.T) {
	searcher := &fakeSearch{rows: []search.Row{
		{"id": int64(42), "title": "mountain bike"},
	}}
	srv := testServer(t, searcher)
	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name": "search",
		"arguments": map[string]any{
			"table": "items",
			"query": "bike",
		},
	})

	var result mcp.CallToolResult
	resultJSON(t, resp, &result)

	if result.IsError {
		t.Fatalf("expected success, got error: %s", textFromContent(t, result))
	}

	text := textFromContent(t, result)

	var items []map[string]any
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		t.Fatalf("unmarshal search results: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 result, got %d", len(items))
	}
	if items[0]["title"] != "mountain bike" {
		t.Errorf("expected title 'mountain bike', got %v", items[0]["title"])
	}

	if searcher.lastRequest.Table() != "items" {
		t.Errorf("expected table items, got %s", searcher.lastRequest.Table())
	}
	if searcher.lastRequest.Text() != "bike" {
		t.Errorf("expected query bike, got %s", searcher.lastRequest.Text())
	}
	if searcher.lastRequest.Top() != 10 {
		t.Errorf("expected default top_k 10, got %d", searcher.lastRequest.Top())
	}
}

func TestServer_SearchPropagatesArguments(t *testing.T) {
	searcher := &fakeSearch{}
	srv := testServer(t, searcher)
	sendMessage(t, srv, "initialize", 1, initializeParams())

	sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name": "search",
		"arguments": map[string]any{
			"table":   "items",
			"query":   "bike",
			"top_k":   3,
			"filters": "status:active",
		},
	})

	if searcher.lastRequest.Top() != 3 {
		t.Errorf("expected top 3, got %d", searcher.lastRequest.Top())
	}
	if searcher.lastRequest.FilterString() != "status:active" {
		t.Errorf("expected filter string status:active, got %s", searcher.lastRequest.FilterString())
	}
}

func TestServer_SearchMissingTable(t *testing.T) {
	srv := testServer(t, &fakeSearch{})
	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name":      "search",
		"arguments": map[string]any{},
	})

	var result mcp.CallToolResult
	resultJSON(t, resp, &result)

	if !result.IsError {
		t.Fatal("expected error response")
	}

	text := textFromContent(t, result)
	if !strings.Contains(text, "table is required") {
		t.Errorf("expected error text containing 'table is required', got: %s", text)
	}
}

func TestServer_SearchFailure(t *testing.T) {
	searcher := &fakeSearch{err: errors.New("store offline")}
	srv := testServer(t, searcher)
	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name": "search",
		"arguments": map[string]any{
			"table": "items",
		},
	})

	var result mcp.CallToolResult
	resultJSON(t, resp, &result)

	if !result.IsError {
		t.Fatal("expected error response")
	}

	text := textFromContent(t, result)
	if !strings.Contains(text, "search failed") {
		t.Errorf("expected error text containing 'search failed', got: %s", text)
	}
}

func TestServer_SearchEmptyResult(t *testing.T) {
	srv := testServer(t, &fakeSearch{})
	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name": "search",
		"arguments": map[string]any{
			"table": "items",
		},
	})

	var result mcp.CallToolResult
	resultJSON(t, resp, &result)

	if result.IsError {
		t.Fatalf("expected success, got error: %s", textFromContent(t, result))
	}
	if text := textFromContent(t, result); text != "[]" {
		t.Errorf("expected empty JSON array, got: %s", text)
	}
}

func TestServer_ListTables(t *testing.T) {
	srv := testServer(t, &fakeSearch{})
	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name":      "list_tables",
		"arguments": map[string]any{},
	})

	var result mcp.CallToolResult
	resultJSON(t, resp, &result)

	if result.IsError {
		t.Fatalf("expected success, got error: %s", textFromContent(t, result))
	}

	text := textFromContent(t, result)

	var tables []struct {
		Name   string `json:"name"`
		Hybrid bool   `json:"hybrid"`
	}
	if err := json.Unmarshal([]byte(text), &tables); err != nil {
		t.Fatalf("unmarshal tables: %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(tables))
	}
	if tables[0].Name != "items" || !tables[0].Hybrid {
		t.Errorf("expected items with hybrid enabled, got %+v", tables[0])
	}
	if tables[1].Name != "stores" || tables[1].Hybrid {
		t.Errorf("expected stores without hybrid, got %+v", tables[1])
	}
}

// textFromContent extracts the text string from the first content item
// of a CallToolResult. It round-trips through JSON because in-process
// responses may hold the content as a map rather than a typed struct.
func textFromContent(t *testing.T, result mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	b, err := json.Marshal(result.Content[0])
	if err != nil {
		t.Fatalf("marshal content: %v", err)
	}
	var tc struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(b, &tc); err != nil {
		t.Fatalf("unmarshal text content: %v", err)
	}
	return tc.Text
}

// Ensure fakes satisfy interfaces at compile time.
var _ Searcher = (*fakeSearch)(nil)
