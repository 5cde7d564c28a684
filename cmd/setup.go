package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/millwright/millwright/internal/config"
	"github.com/millwright/millwright/internal/database"
	"github.com/millwright/millwright/internal/embed"
	"github.com/millwright/millwright/internal/llm"
	"github.com/millwright/millwright/internal/log"
	"github.com/millwright/millwright/internal/memory"
	"github.com/millwright/millwright/internal/vecstore"
)

// app bundles the pieces every command needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	logger := log.New(log.Config{Level: logLevel(), JSON: flagJSONLogs})
	return &app{cfg: cfg, logger: logger}, nil
}

// openPool migrates the schema and opens the connection pool. The
// caller owns the pool and must Close it.
func (a *app) openPool(ctx context.Context) (*pgxpool.Pool, error) {
	if err := database.Migrate(a.cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	pool, err := database.Open(ctx, a.cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return pool, nil
}

// newProvider builds the configured embedding backend, wrapped with the
// rate limit.
func (a *app) newProvider(ctx context.Context) (embed.Provider, error) {
	var (
		p   embed.Provider
		err error
	)
	switch a.cfg.Backend {
	case config.BackendGemini:
		p, err = embed.NewGemini(ctx, a.cfg.GeminiAPIKey, a.cfg.EmbedderModel)
	case config.BackendOpenAI:
		p, err = embed.NewOpenAI(a.cfg.OpenAIAPIKey, a.cfg.OpenAIBaseURL, a.cfg.EmbedderModel)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidBackend, a.cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s embedding provider: %w", a.cfg.Backend, err)
	}
	return embed.NewLimited(p, a.cfg.EmbedRPS), nil
}

// newCompleter builds the configured completion backend for the
// summarizer.
func (a *app) newCompleter(ctx context.Context) (memory.Completer, error) {
	switch a.cfg.Backend {
	case config.BackendGemini:
		return llm.NewGemini(ctx, a.cfg.GeminiAPIKey, a.cfg.ChatModel)
	case config.BackendOpenAI:
		return llm.NewOpenAI(a.cfg.OpenAIAPIKey, a.cfg.OpenAIBaseURL, a.cfg.ChatModel)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidBackend, a.cfg.Backend)
	}
}

// newMemoryStore wires the memory store over a fresh gateway.
func (a *app) newMemoryStore(ctx context.Context, pool *pgxpool.Pool) (*memory.Store, error) {
	gw, err := vecstore.NewGateway(pool, a.logger.With("component", "vecstore"), a.cfg.StoreRetries)
	if err != nil {
		return nil, err
	}
	provider, err := a.newProvider(ctx)
	if err != nil {
		return nil, err
	}
	return memory.NewStore(ctx, gw, provider,
		a.cfg.MemoryCollection, a.cfg.MemoryMaxPerUser,
		a.logger.With("component", "memory"))
}
