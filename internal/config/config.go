// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.millwright/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Embedding: backend selection (gemini/openai), model, dimensionality cap
//   - Storage: PostgreSQL + pgvector connection (see storage.go)
//   - Graph: Neo4j connection for Document/Part metadata nodes
//   - Ingestion: chunk size/overlap, parser service endpoints
//   - Memory: shared collection name, per-user capacity
//
// Sensitive values (passwords, API keys) are masked in MarshalJSON and
// never logged.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidBackend indicates the embedding backend is not supported.
	ErrInvalidBackend = errors.New("invalid embedding backend")

	// ErrInvalidEmbedderModel indicates the embedder model name is empty.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidChunking indicates chunk size/overlap are out of range.
	ErrInvalidChunking = errors.New("invalid chunk configuration")

	// ErrInvalidRate indicates the embedding rate limit is out of range.
	ErrInvalidRate = errors.New("invalid embedding rate limit")

	// ErrInvalidCollection indicates a collection name is unusable.
	ErrInvalidCollection = errors.New("invalid collection name")

	// ErrInvalidPostgres indicates the PostgreSQL settings are invalid.
	ErrInvalidPostgres = errors.New("invalid PostgreSQL configuration")

	// ErrInvalidRetries indicates the store retry budget is out of range.
	ErrInvalidRetries = errors.New("invalid retry configuration")

	// ErrInvalidNeo4j indicates the Neo4j settings are invalid.
	ErrInvalidNeo4j = errors.New("invalid Neo4j configuration")

	// ErrInvalidEndpoint indicates a parser service endpoint is malformed.
	ErrInvalidEndpoint = errors.New("invalid service endpoint")
)

// Embedding backend identifiers used in Config.Backend.
const (
	BackendGemini = "gemini"
	BackendOpenAI = "openai"
)

const (
	// DefaultGeminiEmbedderModel outputs 3072 dimensions by default but
	// supports truncation via OutputDimensionality; we request 768 to match
	// the pgvector column created at collection bootstrap.
	DefaultGeminiEmbedderModel = "gemini-embedding-001"

	// DefaultOpenAIEmbedderModel is the default model for the openai backend.
	DefaultOpenAIEmbedderModel = "text-embedding-3-small"

	// DefaultMemoryCollection is the shared conversational memory collection.
	DefaultMemoryCollection = "user_memory"

	// DefaultKnowledgeCollection is the default ingestion target collection.
	DefaultKnowledgeCollection = "knowledge"
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// Embedding backend configuration
	Backend       string `mapstructure:"backend" json:"backend"` // "gemini" (default) or "openai"
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	ChatModel     string `mapstructure:"chat_model" json:"chat_model"` // summarizer model
	GeminiAPIKey  string `mapstructure:"gemini_api_key" json:"gemini_api_key"` // SENSITIVE: masked in MarshalJSON
	OpenAIAPIKey  string `mapstructure:"openai_api_key" json:"openai_api_key"` // SENSITIVE: masked in MarshalJSON
	OpenAIBaseURL string `mapstructure:"openai_base_url" json:"openai_base_url"` // optional: Ollama/compatible endpoints
	EmbedRPS      int    `mapstructure:"embed_rps" json:"embed_rps"`             // embedding request rate limit

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`
	StoreRetries     int    `mapstructure:"store_retries" json:"store_retries"` // extra attempts on transient store failures

	// Graph store configuration
	Neo4jURI      string `mapstructure:"neo4j_uri" json:"neo4j_uri"`
	Neo4jUser     string `mapstructure:"neo4j_user" json:"neo4j_user"`
	Neo4jPassword string `mapstructure:"neo4j_password" json:"neo4j_password"` // SENSITIVE: masked in MarshalJSON

	// Ingestion configuration
	ChunkSize           int    `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap        int    `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	KnowledgeCollection string `mapstructure:"knowledge_collection" json:"knowledge_collection"`
	ConverterURL        string `mapstructure:"converter_url" json:"converter_url"`   // document-to-markdown service
	CADParserURL        string `mapstructure:"cad_parser_url" json:"cad_parser_url"` // STEP geometry service

	// Memory configuration
	MemoryCollection string `mapstructure:"memory_collection" json:"memory_collection"`
	MemoryMaxPerUser int    `mapstructure:"memory_max_per_user" json:"memory_max_per_user"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".millwright")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings when set.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// Embedding defaults
	v.SetDefault("backend", BackendGemini)
	v.SetDefault("embedder_model", DefaultGeminiEmbedderModel)
	v.SetDefault("chat_model", "gemini-2.5-flash")
	v.SetDefault("embed_rps", 10)

	// PostgreSQL defaults (matching docker-compose.yml)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "millwright")
	v.SetDefault("postgres_password", "millwright_dev_password")
	v.SetDefault("postgres_db_name", "millwright")
	v.SetDefault("postgres_ssl_mode", "disable")
	v.SetDefault("store_retries", 3)

	// Neo4j defaults (auth disabled in local compose setup)
	v.SetDefault("neo4j_uri", "bolt://localhost:7687")
	v.SetDefault("neo4j_user", "")
	v.SetDefault("neo4j_password", "")

	// Ingestion defaults (chunking matches the upstream splitter settings)
	v.SetDefault("chunk_size", 1000)
	v.SetDefault("chunk_overlap", 200)
	v.SetDefault("knowledge_collection", DefaultKnowledgeCollection)
	v.SetDefault("converter_url", "http://localhost:8070")
	v.SetDefault("cad_parser_url", "http://localhost:8071")

	// Memory defaults
	v.SetDefault("memory_collection", DefaultMemoryCollection)
	v.SetDefault("memory_max_per_user", 200)
}

// bindEnvVariables binds environment variables explicitly.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("gemini_api_key", "GEMINI_API_KEY")
	mustBind("openai_api_key", "OPENAI_API_KEY")
	mustBind("openai_base_url", "OPENAI_BASE_URL")
	mustBind("backend", "MILLWRIGHT_BACKEND")
	mustBind("embedder_model", "MILLWRIGHT_EMBEDDER_MODEL")
	mustBind("neo4j_uri", "NEO4J_URI")
	mustBind("neo4j_user", "NEO4J_USER")
	mustBind("neo4j_password", "NEO4J_PASSWORD")
	mustBind("converter_url", "MILLWRIGHT_CONVERTER_URL")
	mustBind("cad_parser_url", "MILLWRIGHT_CAD_PARSER_URL")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Short secrets are
// fully masked to prevent substring matching; longer ones keep the first
// and last two characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.Neo4jPassword = maskSecret(a.Neo4jPassword)
	a.GeminiAPIKey = maskSecret(a.GeminiAPIKey)
	a.OpenAIAPIKey = maskSecret(a.OpenAIAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
