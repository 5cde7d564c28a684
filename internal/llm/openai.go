package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI completes prompts through the OpenAI chat API, or any
// compatible endpoint (e.g. Ollama) when a base URL is set.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates an OpenAI completion client. baseURL is optional.
func NewOpenAI(apiKey, baseURL, model string) (*OpenAI, error) {
	if model == "" {
		return nil, fmt.Errorf("chat model is required")
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

// Complete implements memory.Completer.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai completion: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: openai returned an empty completion", ErrUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}
