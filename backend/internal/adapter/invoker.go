package adapter

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"agent-neo/backend/internal/constants"
	"agent-neo/backend/internal/domain"
	"agent-neo/backend/pkg/config"
	apperrors "agent-neo/backend/pkg/errors"
	"agent-neo/backend/pkg/logger"
)

// Request is one prompt sent to a language model.
type Request struct {
	Prompt      string
	LLMType     string
	Temperature float64
	// Metadata is attached to the call for tracing: conversation_id, session_id, user_id, assistant_id.
	Metadata map[string]string
}

// Invoker answers a prompt with the model selected by the request's llm type.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (string, error)
}

// ChatModel is one provider's completion endpoint.
type ChatModel interface {
	Generate(ctx context.Context, route Route, req Request) (string, error)
}

// Provider names a model vendor.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// Route says which provider and model serve an llm type.
type Route struct {
	Provider  Provider
	Model     string
	MaxTokens int // 0 leaves the provider default
}

// DefaultRoutes maps every supported llm type. The gpt-4 routes use the configured deployment names.
func DefaultRoutes(cfg *config.Config) map[string]Route {
	return map[string]Route{
		constants.LLMGPT4_8K:      {Provider: ProviderOpenAI, Model: cfg.GPT4_8KName},
		constants.LLMGPT4_32K:     {Provider: ProviderOpenAI, Model: cfg.GPT4_32KName},
		constants.LLMChatBison2K:  {Provider: ProviderGemini, Model: "gemini-1.0-pro", MaxTokens: 1024},
		constants.LLMChatBison32K: {Provider: ProviderGemini, Model: "gemini-1.0-pro", MaxTokens: 8192},
		constants.LLMGemini:       {Provider: ProviderGemini, Model: "gemini-pro"},
	}
}

// Router dispatches requests to the ChatModel registered for their route.
type Router struct {
	routes map[string]Route
	models map[Provider]ChatModel
	logger *zap.Logger
}

var _ Invoker = (*Router)(nil)

func NewRouter(routes map[string]Route, models map[Provider]ChatModel) *Router {
	return &Router{
		routes: routes,
		models: models,
		logger: logger.Named("llm"),
	}
}

// NewRouterFromConfig registers a ChatModel for every provider that has credentials.
func NewRouterFromConfig(ctx context.Context, cfg *config.Config) (*Router, error) {
	models := map[Provider]ChatModel{}
	if cfg.OpenAIAPIKey != "" {
		models[ProviderOpenAI] = NewOpenAIModel(cfg.OpenAIAPIKey, cfg.OpenAIEndpoint, cfg.OpenAIAPIVersion)
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := NewGeminiModel(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		models[ProviderGemini] = gemini
	}
	if len(models) == 0 {
		return nil, apperrors.NewConfigMissingRequired("OPENAI_API_KEY")
	}
	return NewRouter(DefaultRoutes(cfg), models), nil
}

// Route returns the route for an llm type.
func (r *Router) Route(llmType string) (Route, error) {
	route, ok := r.routes[domain.NormalizeLLMType(llmType)]
	if !ok {
		return Route{}, apperrors.NewValidationFailed("Request", "llm_type", fmt.Sprintf("unsupported llm type %q", llmType))
	}
	return route, nil
}

func (r *Router) Invoke(ctx context.Context, req Request) (string, error) {
	route, err := r.Route(req.LLMType)
	if err != nil {
		return "", err
	}
	model, ok := r.models[route.Provider]
	if !ok {
		return "", apperrors.NewConfigValidationFailed("llm_type",
			fmt.Sprintf("no %s credentials configured for %q", route.Provider, req.LLMType))
	}

	r.logger.Debug("Invoking language model",
		zap.String("llm_type", req.LLMType),
		zap.String("provider", string(route.Provider)),
		zap.String("model", route.Model),
		zap.String("conversation_id", req.Metadata["conversation_id"]),
		zap.String("assistant_id", req.Metadata["assistant_id"]),
	)
	return model.Generate(ctx, route, req)
}
