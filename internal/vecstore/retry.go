package vecstore

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// retryable reports whether an error is worth another attempt. Only
// transient connectivity failures qualify: a server-side SQL error means
// the store answered, and a canceled or expired context means the caller
// is done waiting.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var pgErr *pgconn.PgError
	return !errors.As(err, &pgErr)
}

// withRetry runs fn up to g.retries+1 times, backing off between
// transient failures. The last error is returned unclassified so call
// sites can run it through classify with their own operation label.
func (g *Gateway) withRetry(ctx context.Context, op string, fn func() error) error {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 100 * time.Millisecond
	expo.MaxInterval = 2 * time.Second

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn()
		if err != nil && !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(g.retries)+1),
		backoff.WithNotify(func(err error, wait time.Duration) {
			g.logger.Warn("transient store failure, retrying",
				"op", op, "wait", wait, "error", err)
		}),
	)
	return err
}
