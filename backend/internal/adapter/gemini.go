package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	apperrors "agent-neo/backend/pkg/errors"
	"agent-neo/backend/pkg/logger"
)

// GeminiModel serves the chat-bison and gemini llm types.
type GeminiModel struct {
	client *genai.Client
	logger *zap.Logger
}

var _ ChatModel = (*GeminiModel)(nil)

func NewGeminiModel(ctx context.Context, apiKey string) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiModel{client: client, logger: logger.Named("llm")}, nil
}

func (g *GeminiModel) Generate(ctx context.Context, route Route, req Request) (string, error) {
	model := g.client.GenerativeModel(route.Model)
	model.SetTemperature(float32(req.Temperature))
	if route.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(route.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		g.logger.Error("Gemini request failed",
			zap.Error(err),
			zap.String("model", route.Model),
			zap.String("conversation_id", req.Metadata["conversation_id"]),
		)
		return "", apperrors.NewAgentLLMFailed(route.Model, 1, ctx.Err() == nil, err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", apperrors.ErrAgentNoResponse
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", apperrors.ErrAgentNoResponse
	}
	return b.String(), nil
}

// Close releases the underlying client
func (g *GeminiModel) Close() error {
	return g.client.Close()
}
