package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Gemini completes prompts through the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini completion client.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("chat model is required")
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

// Complete implements memory.Completer.
func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("%w: gemini completion: %v", ErrUnavailable, err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: gemini returned an empty completion", ErrUnavailable)
	}
	return text, nil
}
