package testutil

import (
	"context"
	"hash/fnv"
	"math"
)

// Embedder is a deterministic in-process embedding provider for tests.
// The same text always maps to the same unit-length vector, and texts
// sharing a prefix land close together, so similarity ordering in tests
// is stable without any network dependency.
type Embedder struct {
	// Dimension is the vector length. Defaults to 8 when zero.
	Dimension int

	// Fail, when set, is returned from every call.
	Fail error

	// Calls counts Embed and EmbedBatch invocations.
	Calls int
}

// Name implements embed.Provider.
func (*Embedder) Name() string { return "testutil" }

// Embed implements embed.Provider.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements embed.Provider.
func (e *Embedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.Calls++
	if e.Fail != nil {
		return nil, e.Fail
	}

	dim := e.Dimension
	if dim <= 0 {
		dim = 8
	}

	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vecs[i] = e.vector(text, dim)
	}
	return vecs, nil
}

func (*Embedder) vector(text string, dim int) []float32 {
	vec := make([]float32, dim)
	for j := range vec {
		h := fnv.New32a()
		h.Write([]byte(text))
		h.Write([]byte{byte(j)})
		// Map the hash into [-1, 1].
		vec[j] = float32(int32(h.Sum32())) / math.MaxInt32
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for j := range vec {
		vec[j] *= scale
	}
	return vec
}
