package vecstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrUnavailable indicates the vector store could not be reached.
	ErrUnavailable = errors.New("vector store unavailable")

	// ErrSchemaMismatch indicates a collection exists but its stored
	// vector dimensionality (or column layout) does not match what the
	// caller requires. The collection is never dropped or recreated on
	// this path; resolving the conflict is an explicit operator action.
	ErrSchemaMismatch = errors.New("collection schema mismatch")

	// ErrTimeout indicates the operation exceeded its deadline. Kept
	// distinct from ErrUnavailable so callers can tell a slow store
	// from an unreachable one.
	ErrTimeout = errors.New("vector store timeout")

	// ErrUnknownCollection indicates the named collection does not
	// exist. Returned by read paths; EnsureCollection creates instead.
	ErrUnknownCollection = errors.New("unknown collection")
)

// classify maps a low-level pgx error onto the package's sentinel
// errors. Server-side SQL errors pass through untouched: the server
// answered, so the store is neither unavailable nor timed out.
// Caller-initiated cancellation also passes through, so Ctrl-C does
// not read as a store outage.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", op, ErrTimeout, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgerrcode.UndefinedTable {
			return fmt.Errorf("%s: %w: %v", op, ErrUnknownCollection, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}
