// Package memory provides per-user long-term memory on top of the
// vector store.
//
// All users share one collection; isolation is enforced by a mandatory
// user_id payload filter on every read. There is no code path that
// searches the memory collection without a user filter.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/millwright/millwright/internal/embed"
	"github.com/millwright/millwright/internal/vecstore"
)

const (
	// defaultTopK is the result count when the caller passes k <= 0.
	defaultTopK = 5

	// maxTopK caps a single recall so an oversized k cannot sweep the
	// whole collection.
	maxTopK = 50

	// payloadType marks memory items so the collection could later
	// hold other item kinds without recall picking them up.
	payloadType = "memory"
)

// gateway is the slice of the vector store the memory layer needs.
type gateway interface {
	EnsureCollection(ctx context.Context, name string, dim int) error
	Add(ctx context.Context, name string, items []vecstore.Item) error
	Search(ctx context.Context, name string, vector []float32, topK int, filter map[string]string) ([]vecstore.Result, error)
	Count(ctx context.Context, name string, filter map[string]string) (int, error)
	DeleteOldest(ctx context.Context, name string, filter map[string]string, n int) (int, error)
}

// Entry is one recalled memory.
type Entry struct {
	ID         string
	Text       string
	Similarity float64
}

// Store manages per-user memories in a shared collection.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	gw         gateway
	provider   embed.Provider
	collection string
	maxPerUser int
	logger     *slog.Logger
}

// NewStore bootstraps the memory collection and returns a Store. The
// collection's dimensionality is probed from the provider, so switching
// embedding backends against an existing collection surfaces as
// vecstore.ErrSchemaMismatch here rather than corrupting reads later.
func NewStore(ctx context.Context, gw gateway, provider embed.Provider, collection string, maxPerUser int, logger *slog.Logger) (*Store, error) {
	if gw == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	dim, err := embed.ProbeDimension(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping memory collection: %w", err)
	}
	if err := gw.EnsureCollection(ctx, collection, dim); err != nil {
		return nil, fmt.Errorf("bootstrapping memory collection: %w", err)
	}

	return &Store{
		gw:         gw,
		provider:   provider,
		collection: collection,
		maxPerUser: maxPerUser,
		logger:     logger,
	}, nil
}

// Add stores a memory for the given user. When the user exceeds the
// per-user cap, the oldest memories are evicted best-effort: a failed
// eviction logs a warning but does not fail the Add.
func (s *Store) Add(ctx context.Context, userID, text string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user ID is required")
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("memory text is required")
	}

	vec, err := s.provider.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embedding memory: %w", err)
	}

	item := vecstore.Item{
		Text:   text,
		Vector: vec,
		Payload: map[string]string{
			"user_id": userID,
			"type":    payloadType,
		},
	}
	if err := s.gw.Add(ctx, s.collection, []vecstore.Item{item}); err != nil {
		return fmt.Errorf("storing memory: %w", err)
	}

	s.evict(ctx, userID)
	return nil
}

// evict trims the user's memories down to the cap.
func (s *Store) evict(ctx context.Context, userID string) {
	if s.maxPerUser <= 0 {
		return
	}
	filter := s.userFilter(userID)

	count, err := s.gw.Count(ctx, s.collection, filter)
	if err != nil {
		s.logger.Warn("counting memories for eviction", "user_id", userID, "error", err)
		return
	}
	if count <= s.maxPerUser {
		return
	}

	deleted, err := s.gw.DeleteOldest(ctx, s.collection, filter, count-s.maxPerUser)
	if err != nil {
		s.logger.Warn("evicting memories", "user_id", userID, "error", err)
		return
	}
	s.logger.Debug("evicted memories", "user_id", userID, "deleted", deleted)
}

// Search recalls the user's memories most similar to the query. Results
// never include another user's memories. k <= 0 uses the default.
func (s *Store) Search(ctx context.Context, userID, query string, k int) ([]Entry, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	if k <= 0 {
		k = defaultTopK
	}
	if k > maxTopK {
		k = maxTopK
	}

	vec, err := s.provider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := s.gw.Search(ctx, s.collection, vec, k, s.userFilter(userID))
	if err != nil {
		return nil, fmt.Errorf("searching memories: %w", err)
	}

	entries := make([]Entry, 0, len(results))
	for _, r := range results {
		entries = append(entries, Entry{
			ID:         r.ID,
			Text:       r.Text,
			Similarity: r.Similarity,
		})
	}
	return entries, nil
}

func (*Store) userFilter(userID string) map[string]string {
	return map[string]string{
		"user_id": userID,
		"type":    payloadType,
	}
}
