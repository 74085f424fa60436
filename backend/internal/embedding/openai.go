package embedding

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	apperrors "agent-neo/backend/pkg/errors"
	"agent-neo/backend/pkg/logger"
)

// DefaultOpenAIModel produces 1536-dimensional vectors.
const DefaultOpenAIModel = "text-embedding-ada-002"

// OpenAIEmbedder calls the OpenAI embeddings endpoint, or an Azure OpenAI deployment.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension int
	logger    *zap.Logger
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder builds the client from cfg. A non-empty Endpoint selects Azure, where the
// model name doubles as the deployment name.
func NewOpenAIEmbedder(cfg Config) *OpenAIEmbedder {
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	var clientConfig openai.ClientConfig
	if cfg.Endpoint != "" {
		clientConfig = openai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
		if cfg.APIVersion != "" {
			clientConfig.APIVersion = cfg.APIVersion
		}
	} else {
		clientConfig = openai.DefaultConfig(cfg.APIKey)
	}

	return newOpenAIEmbedder(clientConfig, model, cfg.Dimension)
}

func newOpenAIEmbedder(clientConfig openai.ClientConfig, model string, dimension int) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     model,
		dimension: dimension,
		logger:    logger.Named("embedding"),
	}
}

func (e *OpenAIEmbedder) Model() string {
	return e.model
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		e.logger.Error("OpenAI embedding request failed", zap.String("model", e.model), zap.Error(err))
		return nil, apperrors.NewEmbeddingFailed("openai", err)
	}
	if len(resp.Data) == 0 {
		return nil, apperrors.NewEmbeddingFailed("openai", fmt.Errorf("no embeddings returned"))
	}

	vector := resp.Data[0].Embedding
	if err := checkDimension("openai", len(vector), e.dimension); err != nil {
		return nil, err
	}
	return vector, nil
}
