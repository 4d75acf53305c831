// Package main is the entry point for the findex CLI.
package main

import (
	"fmt"
	"os"

	"github.com/findexhq/findex/internal/config"
	"github.com/spf13/cobra"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "findex",
		Short: "Findex hybrid search server",
		Long:  `Findex indexes the tables of an existing relational database and serves hybrid full-text, semantic, and filtered search over them.`,
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(reindexCmd())
	cmd.AddCommand(mcpCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from .env file and environment variables.
func loadConfig(envFile string) (config.AppConfig, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
