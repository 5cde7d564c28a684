package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/millwright/millwright/internal/database"
	"github.com/millwright/millwright/internal/graph"
	"github.com/millwright/millwright/internal/ingest"
	"github.com/millwright/millwright/internal/vecstore"
)

var (
	ingestSource     string
	ingestCollection string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest documents and CAD models into a collection",
	Long: `Ingest a file, directory, or URL into the vector store and the
metadata graph. Text documents are chunked and embedded; CAD models are
parsed into parts whose property summaries are embedded. One bad file
never aborts the batch.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestSource, "source", "s", "", "file, directory, or URL to ingest (required)")
	ingestCmd.Flags().StringVarP(&ingestCollection, "collection", "c", "", "target collection (default: configured knowledge collection)")
	_ = ingestCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp()
	if err != nil {
		return err
	}
	collection := ingestCollection
	if collection == "" {
		collection = a.cfg.KnowledgeCollection
	}

	// One ingest at a time per machine. Concurrent batches into the
	// same collection are safe at the store level but make the per-run
	// ledger and logs useless to read.
	lockPath := filepath.Join(os.TempDir(), "millwright-ingest.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring ingest lock %s: %w", lockPath, err)
	}
	if !locked {
		return fmt.Errorf("another ingest run holds %s", lockPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			a.logger.Warn("releasing ingest lock", "error", err)
		}
	}()

	pool, err := a.openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	gw, err := vecstore.NewGateway(pool, a.logger.With("component", "vecstore"), a.cfg.StoreRetries)
	if err != nil {
		return err
	}

	gs, err := graph.NewStore(ctx, a.cfg.Neo4jURI, a.cfg.Neo4jUser, a.cfg.Neo4jPassword,
		a.logger.With("component", "graph"))
	if err != nil {
		return err
	}
	defer func() {
		if err := gs.Close(ctx); err != nil {
			a.logger.Warn("closing graph store", "error", err)
		}
	}()
	if err := gs.EnsureSchema(ctx); err != nil {
		return err
	}

	provider, err := a.newProvider(ctx)
	if err != nil {
		return err
	}

	splitter, err := ingest.NewSplitter(a.cfg.ChunkSize, a.cfg.ChunkOverlap)
	if err != nil {
		return err
	}

	dispatcher, err := ingest.NewDispatcher(
		ingest.NewLoader(a.cfg.ConverterURL),
		ingest.NewCADClient(a.cfg.CADParserURL),
		gw, gs, provider, splitter,
		a.logger.With("component", "ingest"),
	)
	if err != nil {
		return err
	}

	result, err := dispatcher.Run(ctx, ingestSource, collection)
	if err != nil {
		return err
	}

	ledger := database.NewLedger(pool)
	if err := ledger.RecordRun(ctx, database.Run{
		ID:         uuid.New(),
		RootPath:   ingestSource,
		Collection: collection,
		Succeeded:  result.Succeeded(),
		Skipped:    result.Skipped(),
		Failed:     result.Failed(),
		StartedAt:  result.Started,
		FinishedAt: result.Finished,
	}); err != nil {
		a.logger.Warn("recording ingest run", "error", err)
	}

	printBatch(cmd, result)
	return nil
}

func printBatch(cmd *cobra.Command, result *ingest.BatchResult) {
	for _, f := range result.Files {
		switch f.Status {
		case ingest.StatusSucceeded:
			cmd.Printf("  ok    %-40s %s (%d records)\n", f.Path, f.Kind, f.Chunks)
		case ingest.StatusSkipped:
			cmd.Printf("  skip  %-40s unsupported extension\n", f.Path)
		case ingest.StatusFailed:
			cmd.Printf("  FAIL  %-40s %v\n", f.Path, f.Err)
		}
	}
	cmd.Printf("\n%s: %s\n", result.Collection, result.Summary())
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent ingestion runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := newApp()
		if err != nil {
			return err
		}
		pool, err := a.openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		runs, err := database.NewLedger(pool).RecentRuns(ctx, 20)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			cmd.Println("no ingest runs recorded")
			return nil
		}

		for _, r := range runs {
			cmd.Printf("%s  %-20s %-30s ok=%d skip=%d fail=%d (%s)\n",
				r.StartedAt.Format(time.DateTime), r.Collection, r.RootPath,
				r.Succeeded, r.Skipped, r.Failed,
				r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
}
