package config

import (
	"fmt"
	"net/url"
	"regexp"
)

// collectionNameRe constrains collection names to what the vector store
// gateway accepts as a table identifier.
var collectionNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// Validate checks the configuration for consistency. Called by Load
// immediately after unmarshalling (fail-fast).
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Backend {
	case BackendGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY is required for the gemini backend", ErrMissingAPIKey)
		}
	case BackendOpenAI:
		// An API key is optional when openai_base_url points at a local
		// OpenAI-compatible endpoint (e.g. Ollama).
		if c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY or openai_base_url is required for the openai backend", ErrMissingAPIKey)
		}
	default:
		return fmt.Errorf("%w: %q (expected %q or %q)", ErrInvalidBackend, c.Backend, BackendGemini, BackendOpenAI)
	}

	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model must not be empty", ErrInvalidEmbedderModel)
	}
	if c.EmbedRPS <= 0 || c.EmbedRPS > 1000 {
		return fmt.Errorf("%w: embed_rps must be in 1..1000, got %d", ErrInvalidRate, c.EmbedRPS)
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size), got %d", ErrInvalidChunking, c.ChunkOverlap)
	}

	for _, name := range []string{c.KnowledgeCollection, c.MemoryCollection} {
		if !collectionNameRe.MatchString(name) {
			return fmt.Errorf("%w: %q must match %s", ErrInvalidCollection, name, collectionNameRe)
		}
	}
	if c.MemoryMaxPerUser <= 0 {
		return fmt.Errorf("%w: memory_max_per_user must be positive, got %d", ErrInvalidCollection, c.MemoryMaxPerUser)
	}

	if c.PostgresHost == "" || c.PostgresDBName == "" {
		return fmt.Errorf("%w: host and database name are required", ErrInvalidPostgres)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidPostgres, c.PostgresPort)
	}
	if c.StoreRetries < 0 || c.StoreRetries > 10 {
		return fmt.Errorf("%w: store_retries must be in 0..10, got %d", ErrInvalidRetries, c.StoreRetries)
	}

	if c.Neo4jURI == "" {
		return fmt.Errorf("%w: neo4j_uri must not be empty", ErrInvalidNeo4j)
	}

	for _, endpoint := range []string{c.ConverterURL, c.CADParserURL} {
		u, err := url.Parse(endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
		}
	}

	return nil
}
