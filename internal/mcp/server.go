// Package mcp provides Model Context Protocol server functionality.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/findexhq/findex/application/service"
	"github.com/findexhq/findex/domain/schema"
	"github.com/findexhq/findex/domain/search"
)

// Searcher provides table search operations for MCP tools.
type Searcher interface {
	Search(ctx context.Context, request search.Request) (service.SearchResult, error)
}

// Server wraps the MCP server with findex-specific tools.
type Server struct {
	mcpServer *server.MCPServer
	searcher  Searcher
	schemas   schema.Registry
	logger    *slog.Logger
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(searcher Searcher, schemas schema.Registry, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		searcher: searcher,
		schemas:  schemas,
		logger:   logger,
	}

	// Create MCP server with server info
	mcpServer := server.NewMCPServer(
		"findex",
		version,
		server.WithToolCapabilities(true),
	)

	// Register tools
	s.registerTools(mcpServer)

	s.mcpServer = mcpServer
	return s
}

// registerTools registers all findex tools with the MCP server.
func (s *Server) registerTools(mcpServer *server.MCPServer) {
	// Search tool
	searchTool := mcp.NewTool("search",
		mcp.WithDescription("Hybrid full-text and semantic search over one registered table"),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Name of the table to search"),
		),
		mcp.WithString("query",
			mcp.Description("Free text query; when empty, filter matches are returned in store order"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Number of results to return (default: 10)"),
		),
		mcp.WithString("filters",
			mcp.Description("Filter clauses as column:value pairs separated by ';', e.g. status:active;price:10-50"),
		),
	)

	mcpServer.AddTool(searchTool, s.handleSearch)

	// List tables tool
	listTablesTool := mcp.NewTool("list_tables",
		mcp.WithDescription("List the registered tables and whether each supports semantic search"),
	)

	mcpServer.AddTool(listTablesTool, s.handleListTables)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := request.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError("table is required"), nil
	}

	topK := request.GetInt("top_k", 10)

	searchReq := search.NewRequest(table,
		search.WithText(request.GetString("query", "")),
		search.WithTop(topK),
		search.WithFilterString(request.GetString("filters", "")),
	)

	// Execute search
	result, err := s.searcher.Search(ctx, searchReq)
	if err != nil {
		s.logger.Error("search failed", slog.String("table", table), slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	rows := result.Rows()
	if rows == nil {
		rows = []search.Row{}
	}

	jsonBytes, err := json.Marshal(rows)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleListTables handles the list_tables tool invocation.
func (s *Server) handleListTables(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type tableInfo struct {
		Name   string `json:"name"`
		Hybrid bool   `json:"hybrid"`
	}

	tables := s.schemas.Tables()
	infos := make([]tableInfo, len(tables))
	for i, tbl := range tables {
		infos[i] = tableInfo{
			Name:   tbl.Name(),
			Hybrid: tbl.Hybrid(),
		}
	}

	jsonBytes, err := json.Marshal(infos)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal tables: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// MCPServer returns the underlying MCP server for stdio serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio runs the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
