package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	apperrors "agent-neo/backend/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// App
	Port     string
	Env      string
	LogLevel string

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string

	// Language models
	OpenAIAPIKey     string
	OpenAIAPIVersion string
	OpenAIEndpoint   string // Azure endpoint; empty means api.openai.com
	GPT4_8KName      string // deployment/model name for "gpt-4 8k"
	GPT4_32KName     string // deployment/model name for "gpt-4 32k"
	GeminiAPIKey     string

	// Embeddings
	EmbeddingProvider  string // openai | gemini | ollama
	EmbeddingModel     string
	EmbeddingDimension int
	OllamaHost         string

	// Retrieval
	RetrievalMode string // flat | topic
	TopicCount    int
	DocsPerTopic  int

	// Background persistence
	PersistWorkers     int
	PersistQueueSize   int
	PersistMaxAttempts int

	// Persistence status store; empty address keeps statuses in memory
	RedisAddr     string
	RedisPassword string

	// HTTP
	CORSOrigins    []string
	PublicMessages bool

	// Run the schema migration at server start
	EnsureSchema bool
}

var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"https://chatbot.agent-neo-chat.com",
	"https://chatbot.agent-neo-chat.com:8080",
}

// Load reads configuration through the given provider
func Load(ctx context.Context, provider SecretProvider) (*Config, error) {
	r := &reader{ctx: ctx, provider: provider}

	cfg := &Config{
		Port:               r.str("PORT", "8080"),
		Env:                r.str("ENV", "development"),
		LogLevel:           r.str("LOG_LEVEL", ""),
		Neo4jURI:           r.str("NEO4J_URI", ""),
		Neo4jUser:          r.str("NEO4J_USERNAME", ""),
		Neo4jPassword:      r.str("NEO4J_PASSWORD", ""),
		Neo4jDatabase:      r.str("NEO4J_DATABASE", "neo4j"),
		OpenAIAPIKey:       r.str("OPENAI_API_KEY", ""),
		OpenAIAPIVersion:   r.str("OPENAI_API_VERSION", ""),
		OpenAIEndpoint:     r.str("OPENAI_ENDPOINT", ""),
		GPT4_8KName:        r.str("GPT4_8K_NAME", "gpt-4"),
		GPT4_32KName:       r.str("GPT4_32K_NAME", "gpt-4-32k"),
		GeminiAPIKey:       r.str("GEMINI_API_KEY", ""),
		EmbeddingProvider:  strings.ToLower(r.str("EMBEDDING_PROVIDER", "openai")),
		EmbeddingModel:     r.str("EMBEDDING_MODEL", ""),
		EmbeddingDimension: r.integer("EMBEDDING_DIMENSION", 1536),
		OllamaHost:         r.str("OLLAMA_HOST", "http://localhost:11434"),
		RetrievalMode:      strings.ToLower(r.str("RETRIEVAL_MODE", "flat")),
		TopicCount:         r.integer("TOPIC_COUNT", 3),
		DocsPerTopic:       r.integer("DOCS_PER_TOPIC", 3),
		PersistWorkers:     r.integer("PERSIST_WORKERS", 4),
		PersistQueueSize:   r.integer("PERSIST_QUEUE_SIZE", 64),
		PersistMaxAttempts: r.integer("PERSIST_MAX_ATTEMPTS", 3),
		RedisAddr:          r.str("REDIS_ADDR", ""),
		RedisPassword:      r.str("REDIS_PASSWORD", ""),
		CORSOrigins:        r.list("CORS_ORIGINS", defaultCORSOrigins),
		PublicMessages:     r.boolean("PUBLIC_MESSAGES", true),
		EnsureSchema:       r.boolean("ENSURE_SCHEMA", false),
	}

	if r.err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", r.err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_URI")
	}
	if c.Neo4jUser == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_USERNAME")
	}
	if c.Neo4jPassword == "" {
		return apperrors.NewConfigMissingRequired("NEO4J_PASSWORD")
	}

	switch c.EmbeddingProvider {
	case "openai", "gemini", "ollama":
	default:
		return apperrors.NewConfigValidationFailed("EMBEDDING_PROVIDER", fmt.Sprintf("unsupported provider %q", c.EmbeddingProvider))
	}

	switch c.RetrievalMode {
	case "flat", "topic":
	default:
		return apperrors.NewConfigValidationFailed("RETRIEVAL_MODE", fmt.Sprintf("unsupported mode %q", c.RetrievalMode))
	}

	if c.PersistWorkers < 1 {
		return apperrors.NewConfigValidationFailed("PERSIST_WORKERS", "must be at least 1")
	}
	if c.PersistMaxAttempts < 1 {
		return apperrors.NewConfigValidationFailed("PERSIST_MAX_ATTEMPTS", "must be at least 1")
	}
	if c.EmbeddingDimension < 1 {
		return apperrors.NewConfigValidationFailed("EMBEDDING_DIMENSION", "must be positive")
	}
	// Model credentials are optional: a model without a key fails at invocation time
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// reader pulls typed values from a provider, keeping the first provider error.
type reader struct {
	ctx      context.Context
	provider SecretProvider
	err      error
}

func (r *reader) str(key, defaultValue string) string {
	if r.err != nil {
		return defaultValue
	}
	value, ok, err := r.provider.Lookup(r.ctx, key)
	if err != nil {
		r.err = fmt.Errorf("lookup %s: %w", key, err)
		return defaultValue
	}
	if !ok || value == "" {
		return defaultValue
	}
	return value
}

func (r *reader) integer(key string, defaultValue int) int {
	if value := r.str(key, ""); value != "" {
		if result, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return result
		}
	}
	return defaultValue
}

func (r *reader) boolean(key string, defaultValue bool) bool {
	if value := r.str(key, ""); value != "" {
		if result, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return result
		}
	}
	return defaultValue
}

func (r *reader) list(key string, defaultValue []string) []string {
	value := r.str(key, "")
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
