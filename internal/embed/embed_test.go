package embed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeProvider is a deterministic in-memory Provider for unit tests.
type fakeProvider struct {
	dim       int
	err       error
	batchLens []int // records batch sizes seen
}

func (*fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.batchLens = append(f.batchLens, len(texts))
	if f.err != nil {
		return nil, f.err
	}
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, f.dim)
		for j := range vec {
			vec[j] = float32(len(texts[i])+j) / 100
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func TestProbeDimension(t *testing.T) {
	p := &fakeProvider{dim: 384}

	dim, err := ProbeDimension(context.Background(), p)
	if err != nil {
		t.Fatalf("ProbeDimension() error: %v", err)
	}
	if dim != 384 {
		t.Errorf("ProbeDimension() = %d, want 384", dim)
	}
}

func TestProbeDimension_ProviderError(t *testing.T) {
	p := &fakeProvider{err: fmt.Errorf("%w: boom", ErrUnavailable)}

	_, err := ProbeDimension(context.Background(), p)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("ProbeDimension() = %v, want ErrUnavailable", err)
	}
}

func TestLimited_PassesThrough(t *testing.T) {
	inner := &fakeProvider{dim: 8}
	limited := NewLimited(inner, 100)

	vec, err := limited.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if len(vec) != 8 {
		t.Errorf("len(vec) = %d, want 8", len(vec))
	}
	if limited.Name() != "fake" {
		t.Errorf("Name() = %q, want %q", limited.Name(), "fake")
	}
}

func TestLimited_BatchLargerThanBurst(t *testing.T) {
	inner := &fakeProvider{dim: 4}
	limited := NewLimited(inner, 50)

	texts := make([]string, 120) // larger than the burst of 50
	for i := range texts {
		texts[i] = "chunk"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	vecs, err := limited.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatalf("EmbedBatch() error: %v", err)
	}
	if len(vecs) != 120 {
		t.Errorf("len(vecs) = %d, want 120", len(vecs))
	}
	// The whole batch goes to the backend in one call; only the waits
	// are split.
	if len(inner.batchLens) != 1 || inner.batchLens[0] != 120 {
		t.Errorf("backend batch sizes = %v, want [120]", inner.batchLens)
	}
}

func TestLimited_CanceledContext(t *testing.T) {
	inner := &fakeProvider{dim: 4}
	limited := NewLimited(inner, 1)

	// Drain the initial burst, then cancel while waiting.
	_, _ = limited.Embed(context.Background(), "drain")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := limited.Embed(ctx, "blocked")
	if err == nil {
		t.Fatal("Embed() with canceled context should fail")
	}
}

func TestOpenAI_EmbedBatch(t *testing.T) {
	type embeddingObj struct {
		Object    string    `json:"object"`
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}

		data := make([]embeddingObj, len(req.Input))
		for i := range req.Input {
			data[i] = embeddingObj{
				Object:    "embedding",
				Embedding: []float64{0.1, 0.2, float64(i)},
				Index:     i,
			}
		}
		resp := map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encoding response: %v", err)
		}
	}))
	defer srv.Close()

	p, err := NewOpenAI("test-key", srv.URL, "text-embedding-3-small")
	if err != nil {
		t.Fatalf("NewOpenAI() error: %v", err)
	}

	vecs, err := p.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("EmbedBatch() error: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("len(vecs) = %d, want 2", len(vecs))
	}
	if vecs[1][2] != 1.0 {
		t.Errorf("vecs[1][2] = %v, want 1.0", vecs[1][2])
	}
}

func TestOpenAI_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, err := NewOpenAI("test-key", srv.URL, "text-embedding-3-small")
	if err != nil {
		t.Fatalf("NewOpenAI() error: %v", err)
	}

	_, err = p.Embed(context.Background(), "text")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Embed() = %v, want ErrUnavailable", err)
	}
}

func TestNewOpenAI_Validation(t *testing.T) {
	if _, err := NewOpenAI("", "", "model"); err == nil {
		t.Error("NewOpenAI without key or base URL should fail")
	}
	if _, err := NewOpenAI("key", "", ""); err == nil {
		t.Error("NewOpenAI without model should fail")
	}
}
