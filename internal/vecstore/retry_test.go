package vecstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "network error", err: errors.New("connection refused"), want: true},
		{name: "canceled", err: fmt.Errorf("query: %w", context.Canceled), want: false},
		{name: "deadline exceeded", err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: false},
		{name: "server-side error", err: &pgconn.PgError{Code: pgerrcode.SyntaxError}, want: false},
		{name: "undefined table", err: &pgconn.PgError{Code: pgerrcode.UndefinedTable}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryable(tt.err); got != tt.want {
				t.Errorf("retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func testGateway(retries int) *Gateway {
	return &Gateway{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		retries: retries,
	}
}

func TestWithRetry_TransientFailureRecovers(t *testing.T) {
	g := testGateway(3)

	attempts := 0
	err := g.withRetry(context.Background(), "op", func() error {
		attempts++
		if attempts < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry() = %v, want nil", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestWithRetry_ExhaustsBudget(t *testing.T) {
	g := testGateway(2)

	attempts := 0
	transient := errors.New("connection refused")
	err := g.withRetry(context.Background(), "op", func() error {
		attempts++
		return transient
	})
	if !errors.Is(err, transient) {
		t.Fatalf("withRetry() = %v, want %v", err, transient)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3 (one try plus two retries)", attempts)
	}
}

func TestWithRetry_ServerErrorIsFinal(t *testing.T) {
	g := testGateway(3)

	attempts := 0
	pgErr := &pgconn.PgError{Code: pgerrcode.SyntaxError}
	err := g.withRetry(context.Background(), "op", func() error {
		attempts++
		return pgErr
	})
	var out *pgconn.PgError
	if !errors.As(err, &out) {
		t.Fatalf("withRetry() = %v, want the PgError preserved", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestWithRetry_CancellationIsFinal(t *testing.T) {
	g := testGateway(3)

	attempts := 0
	err := g.withRetry(context.Background(), "op", func() error {
		attempts++
		return fmt.Errorf("query: %w", context.Canceled)
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("withRetry() = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestWithRetry_ZeroRetriesIsSingleAttempt(t *testing.T) {
	g := testGateway(0)

	attempts := 0
	err := g.withRetry(context.Background(), "op", func() error {
		attempts++
		return errors.New("connection refused")
	})
	if err == nil {
		t.Fatal("withRetry() = nil, want error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}
