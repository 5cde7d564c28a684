// Package cmd implements the millwright command line interface.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	flagVerbose  bool
	flagJSONLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "millwright",
	Short: "Millwright - engineering document and CAD ingestion with per-user memory",
	Long: `Millwright ingests engineering documents and CAD models into a
pgvector-backed knowledge base with Neo4j provenance metadata, and
provides per-user conversational memory over the same vector store.

Typical usage:

  millwright ingest --source ./docs --collection knowledge
  millwright remember --user alice "prefers metric units"
  millwright recall --user alice "unit preference"`,
	SilenceUsage: true,
}

// Execute runs the root command. Interrupts cancel the command context
// so in-flight network calls unwind instead of being killed mid-write.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLogs, "json-logs", false, "emit logs as JSON")
}

// logLevel resolves the level from the persistent flags.
func logLevel() slog.Level {
	if flagVerbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
