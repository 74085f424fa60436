// Package embedding turns question text into vectors comparable with the document index.
package embedding

import (
	"context"
	"fmt"

	"agent-neo/backend/pkg/config"
	apperrors "agent-neo/backend/pkg/errors"
)

// Embedder produces the vector for one piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Model returns the name of the embedding model in use.
	Model() string
}

// ProviderType identifies the embedding backend.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
)

// Config selects and parameterises an Embedder.
type Config struct {
	Provider ProviderType
	Model    string

	// Dimension is the vector size the document index was built with; 0 skips the check.
	Dimension int

	// OpenAI, or Azure OpenAI when Endpoint is set
	APIKey     string
	Endpoint   string
	APIVersion string

	// Ollama
	OllamaHost string
}

// ConfigFrom maps application configuration onto embedder configuration.
func ConfigFrom(cfg *config.Config) Config {
	c := Config{
		Provider:   ProviderType(cfg.EmbeddingProvider),
		Model:      cfg.EmbeddingModel,
		Dimension:  cfg.EmbeddingDimension,
		Endpoint:   cfg.OpenAIEndpoint,
		APIVersion: cfg.OpenAIAPIVersion,
		OllamaHost: cfg.OllamaHost,
	}
	switch c.Provider {
	case ProviderGemini:
		c.APIKey = cfg.GeminiAPIKey
	default:
		c.APIKey = cfg.OpenAIAPIKey
	}
	return c
}

// New creates the Embedder named by cfg.Provider.
func New(ctx context.Context, cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case ProviderOpenAI, "":
		if cfg.APIKey == "" {
			return nil, apperrors.NewConfigMissingRequired("OPENAI_API_KEY")
		}
		return NewOpenAIEmbedder(cfg), nil

	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, apperrors.NewConfigMissingRequired("GEMINI_API_KEY")
		}
		return NewGeminiEmbedder(ctx, cfg.APIKey, cfg.Model, cfg.Dimension)

	case ProviderOllama:
		return NewOllamaEmbedder(cfg.OllamaHost, cfg.Model, cfg.Dimension)

	default:
		return nil, apperrors.NewConfigValidationFailed("EMBEDDING_PROVIDER",
			fmt.Sprintf("unknown embedding provider: %s", cfg.Provider))
	}
}

// checkDimension rejects vectors that cannot be compared against the index.
func checkDimension(provider string, got, want int) error {
	if got == 0 {
		return apperrors.NewEmbeddingFailed(provider, fmt.Errorf("empty embedding returned"))
	}
	if want > 0 && got != want {
		return apperrors.NewEmbeddingFailed(provider, fmt.Errorf("dimension mismatch: got %d, want %d", got, want))
	}
	return nil
}
