package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/findexhq/findex"
	"github.com/findexhq/findex/internal/log"
	"github.com/spf13/cobra"
)

func reindexCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "reindex [table]",
		Short: "Rebuild vector indexes and exit",
		Long: `Rebuild the vector index for one declared table, or for all of them
when no table is given. Existing index files are replaced once the rebuild
succeeds. Configuration is loaded the same way as for serve.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := ""
			if len(args) > 0 {
				table = args[0]
			}
			return runReindex(envFile, table)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")

	return cmd
}

func runReindex(envFile, table string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	logger := log.NewLogger(cfg)
	slogger := logger.Slog()

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

	ctx := context.Background()

	if table != "" {
		slogger.Info("rebuilding index", slog.String("table", table))
		if err := client.Indexes.Rebuild(ctx, table); err != nil {
			return fmt.Errorf("rebuild %s: %w", table, err)
		}
	} else {
		slogger.Info("rebuilding all indexes", slog.Int("tables", client.Schemas().Len()))
		if err := client.Indexes.RebuildAll(ctx); err != nil {
			return fmt.Errorf("rebuild all: %w", err)
		}
	}

	slogger.Info("reindex complete")
	return nil
}
