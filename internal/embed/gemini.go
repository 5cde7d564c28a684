package embed

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiOutputDim is the requested output dimensionality for Gemini
// embeddings. gemini-embedding-001 emits 3072 dimensions by default and
// supports truncation via OutputDimensionality; 768 keeps pgvector rows
// compact while staying within the model's supported sizes.
const GeminiOutputDim = 768

// Gemini embeds text through the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini provider. The API key is read from the
// configuration, not from process-global state.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("embedder model is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

// Name implements Provider.
func (*Gemini) Name() string { return "gemini" }

// Embed implements Provider.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements Provider. All texts are sent in one API call;
// the response order matches the input order.
func (g *Gemini) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	dim := int32(GeminiOutputDim)
	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: gemini embed: %v", ErrUnavailable, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: gemini returned %d embeddings for %d texts",
			ErrUnavailable, len(resp.Embeddings), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", ErrUnavailable, i)
		}
		vecs[i] = e.Values
	}
	return vecs, nil
}
