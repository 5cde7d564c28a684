package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// summaryPrompt asks for a compact third-person summary suitable for
// later retrieval. Kept short on purpose: long memories crowd the
// recall window.
const summaryPrompt = `Summarize the following conversation in 2-3 sentences.
Write in the third person and keep only facts worth remembering about
the user: preferences, decisions, and durable context. Do not include
greetings or filler.

Conversation:
%s`

// Completer generates a text completion for a prompt. Satisfied by the
// llm package's clients.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Summarizer condenses raw conversation text into a short memory before
// storage.
type Summarizer struct {
	completer Completer
	logger    *slog.Logger
}

// NewSummarizer creates a Summarizer.
func NewSummarizer(completer Completer, logger *slog.Logger) (*Summarizer, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{completer: completer, logger: logger}, nil
}

// Summarize returns a 2-3 sentence summary of the conversation.
func (s *Summarizer) Summarize(ctx context.Context, conversation string) (string, error) {
	if strings.TrimSpace(conversation) == "" {
		return "", fmt.Errorf("conversation is empty")
	}

	out, err := s.completer.Complete(ctx, fmt.Sprintf(summaryPrompt, conversation))
	if err != nil {
		return "", fmt.Errorf("summarizing conversation: %w", err)
	}

	summary := strings.TrimSpace(out)
	if summary == "" {
		return "", fmt.Errorf("summarizer returned an empty summary")
	}

	s.logger.Debug("summarized conversation",
		"input_length", len(conversation), "summary_length", len(summary))
	return summary, nil
}
