package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	apperrors "agent-neo/backend/pkg/errors"
	"agent-neo/backend/pkg/logger"
)

// DefaultGeminiModel produces 768-dimensional vectors.
const DefaultGeminiModel = "text-embedding-004"

// GeminiEmbedder calls the Gemini embedding model.
type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
	logger    *zap.Logger
}

var _ Embedder = (*GeminiEmbedder)(nil)

func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dimension int) (*GeminiEmbedder, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiEmbedder{
		client:    client,
		model:     model,
		dimension: dimension,
		logger:    logger.Named("embedding"),
	}, nil
}

func (e *GeminiEmbedder) Model() string {
	return e.model
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.EmbeddingModel(e.model).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		e.logger.Error("Gemini embedding request failed", zap.String("model", e.model), zap.Error(err))
		return nil, apperrors.NewEmbeddingFailed("gemini", err)
	}
	if resp == nil || resp.Embedding == nil {
		return nil, apperrors.NewEmbeddingFailed("gemini", fmt.Errorf("no embeddings returned"))
	}
	if err := checkDimension("gemini", len(resp.Embedding.Values), e.dimension); err != nil {
		return nil, err
	}
	return resp.Embedding.Values, nil
}

// Close releases the underlying gRPC connection.
func (e *GeminiEmbedder) Close() error {
	return e.client.Close()
}
