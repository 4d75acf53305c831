package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/findexhq/findex"
	"github.com/findexhq/findex/internal/log"
	"github.com/findexhq/findex/internal/mcp"
	"github.com/spf13/cobra"
)

func mcpCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio",
		Long: `Start the Model Context Protocol server on stdio.

This lets AI assistants search the declared tables through the search and
list_tables tools. Stdout carries the protocol stream, so logs go to stderr.
Configuration is loaded the same way as for serve.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(envFile)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")

	return cmd
}

func runMCP(envFile string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	// Stdout is reserved for the protocol stream
	logger := log.NewLoggerWithWriter(os.Stderr, cfg.LogFormat(), cfg.LogLevel())
	slogger := logger.Slog()

	slogger.Info("starting MCP server",
		slog.String("version", version),
		slog.String("data_dir", cfg.DataDir()),
	)

	opts := append(clientOptions(cfg), findex.WithLogger(slogger))

	client, err := findex.New(opts...)
	if err != nil {
		return fmt.Errorf("create findex client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close findex client", slog.Any("error", err))
		}
	}()

	if err := client.Indexes.LoadOrBuildAll(context.Background()); err != nil {
		return fmt.Errorf("load indexes: %w", err)
	}

	mcpServer := mcp.NewServer(client.Search, client.Schemas(), version, slogger)

	return mcpServer.ServeStdio()
}
