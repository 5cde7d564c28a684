// Package embed provides vector embedding providers.
//
// Two interchangeable backends exist (Gemini and OpenAI-compatible);
// the backend is selected once at configuration-load time and injected
// as a Provider. Callers never branch on the backend at call time.
package embed

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable indicates the embedding backend is unreachable or
// returned an error. Wrapped by all providers so callers can use
// errors.Is without knowing the backend.
var ErrUnavailable = errors.New("embedding provider unavailable")

// probeText is the sentinel string embedded once to discover the
// provider's output dimensionality during collection bootstrap.
const probeText = "dimension probe"

// Provider generates fixed-length vector embeddings for text.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Name identifies the backend for logging.
	Name() string

	// Embed returns the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one embedding per input text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ProbeDimension discovers the provider's output vector length by
// embedding a fixed sentinel string. Used once per collection bootstrap.
func ProbeDimension(ctx context.Context, p Provider) (int, error) {
	vec, err := p.Embed(ctx, probeText)
	if err != nil {
		return 0, fmt.Errorf("probing embedding dimension: %w", err)
	}
	if len(vec) == 0 {
		return 0, fmt.Errorf("%w: probe returned an empty vector", ErrUnavailable)
	}
	return len(vec), nil
}
