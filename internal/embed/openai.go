package embed

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI embeds text through the OpenAI embeddings API, or any
// OpenAI-compatible endpoint (e.g. Ollama) when a base URL is set.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates an OpenAI provider. baseURL is optional; when empty
// the default api.openai.com endpoint is used.
func NewOpenAI(apiKey, baseURL, model string) (*OpenAI, error) {
	if model == "" {
		return nil, fmt.Errorf("embedder model is required")
	}
	if apiKey == "" && baseURL == "" {
		return nil, fmt.Errorf("an API key or a base URL is required")
	}

	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAI{client: openai.NewClient(opts...), model: model}, nil
}

// Name implements Provider.
func (*OpenAI) Name() string { return "openai" }

// Embed implements Provider.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements Provider.
func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(o.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai embed: %v", ErrUnavailable, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: openai returned %d embeddings for %d texts",
			ErrUnavailable, len(resp.Data), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if int(d.Index) >= len(vecs) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrUnavailable, d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		vecs[d.Index] = vec
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", ErrUnavailable, i)
		}
	}
	return vecs, nil
}
