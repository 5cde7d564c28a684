package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Run is one recorded ingestion batch.
type Run struct {
	ID         uuid.UUID
	RootPath   string
	Collection string
	Succeeded  int
	Skipped    int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Ledger records ingestion batch outcomes in the ingest_runs table so
// batch summaries remain queryable after the process exits.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger creates a Ledger. The pool is owned by the caller.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// RecordRun inserts one ledger row for a completed batch.
func (l *Ledger) RecordRun(ctx context.Context, run Run) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO ingest_runs (id, root_path, collection, succeeded, skipped, failed, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.RootPath, run.Collection,
		run.Succeeded, run.Skipped, run.Failed,
		run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("recording ingest run %s: %w", run.ID, err)
	}
	return nil
}

// RecentRuns returns the most recent batch runs, newest first.
func (l *Ledger) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}

	rows, err := l.pool.Query(ctx,
		`SELECT id, root_path, collection, succeeded, skipped, failed, started_at, finished_at
		 FROM ingest_runs
		 ORDER BY started_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing ingest runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.RootPath, &r.Collection,
			&r.Succeeded, &r.Skipped, &r.Failed,
			&r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning ingest run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ingest runs: %w", err)
	}
	return runs, nil
}
