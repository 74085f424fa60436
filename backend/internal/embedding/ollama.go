package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	apperrors "agent-neo/backend/pkg/errors"
	"agent-neo/backend/pkg/logger"
)

// DefaultOllamaModel produces 768-dimensional vectors.
const DefaultOllamaModel = "nomic-embed-text"

// OllamaEmbedder uses a local Ollama server.
type OllamaEmbedder struct {
	client    *api.Client
	model     string
	dimension int
	logger    *zap.Logger
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder connects to host, or to OLLAMA_HOST when host is empty.
func NewOllamaEmbedder(host, model string, dimension int) (*OllamaEmbedder, error) {
	if model == "" {
		model = DefaultOllamaModel
	}

	var client *api.Client
	if host == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		client = c
	} else {
		base, err := url.Parse(host)
		if err != nil {
			return nil, apperrors.NewConfigValidationFailed("OLLAMA_HOST", err.Error())
		}
		client = api.NewClient(base, http.DefaultClient)
	}

	return &OllamaEmbedder{
		client:    client,
		model:     model,
		dimension: dimension,
		logger:    logger.Named("embedding"),
	}, nil
}

func (e *OllamaEmbedder) Model() string {
	return e.model
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: text,
	})
	if err != nil {
		e.logger.Error("Ollama embedding request failed", zap.String("model", e.model), zap.Error(err))
		return nil, apperrors.NewEmbeddingFailed("ollama", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, apperrors.NewEmbeddingFailed("ollama", fmt.Errorf("no embeddings returned"))
	}

	vector := resp.Embeddings[0]
	if err := checkDimension("ollama", len(vector), e.dimension); err != nil {
		return nil, err
	}
	return vector, nil
}
