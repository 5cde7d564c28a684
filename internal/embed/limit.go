package embed

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limited wraps a Provider with a request rate limit so bulk ingestion
// cannot exhaust the backend's quota. One token is consumed per input
// text, so a batch of N texts waits for N tokens.
type Limited struct {
	inner   Provider
	limiter *rate.Limiter
}

// NewLimited wraps p with a limit of rps texts per second.
func NewLimited(p Provider, rps int) *Limited {
	if rps <= 0 {
		rps = 1
	}
	// Burst equals the rate so a full second of quota is available
	// immediately at the start of a batch.
	return &Limited{
		inner:   p,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// Name implements Provider.
func (l *Limited) Name() string { return l.inner.Name() }

// Embed implements Provider.
func (l *Limited) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for embed rate limit: %w", err)
	}
	return l.inner.Embed(ctx, text)
}

// EmbedBatch implements Provider.
func (l *Limited) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	n := len(texts)
	if n == 0 {
		return nil, nil
	}
	// WaitN rejects n > burst outright; split oversized batches into
	// burst-sized waits instead of failing.
	burst := l.limiter.Burst()
	for n > 0 {
		step := min(n, burst)
		if err := l.limiter.WaitN(ctx, step); err != nil {
			return nil, fmt.Errorf("waiting for embed rate limit: %w", err)
		}
		n -= step
	}
	return l.inner.EmbedBatch(ctx, texts)
}
