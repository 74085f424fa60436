package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-neo/backend/internal/constants"
	"agent-neo/backend/pkg/config"
	apperrors "agent-neo/backend/pkg/errors"
)

type fakeModel struct {
	routes []Route
	reply  string
}

func (f *fakeModel) Generate(_ context.Context, route Route, req Request) (string, error) {
	f.routes = append(f.routes, route)
	return f.reply + ":" + req.Prompt, nil
}

func TestDefaultRoutes_CoverSupportedTypes(t *testing.T) {
	routes := DefaultRoutes(&config.Config{GPT4_8KName: "gpt4-deploy", GPT4_32KName: "gpt4-32k-deploy"})
	for _, llmType := range constants.SupportedLLMTypes {
		assert.Contains(t, routes, llmType)
	}
	assert.Equal(t, "gpt4-deploy", routes[constants.LLMGPT4_8K].Model)
	assert.Equal(t, 1024, routes[constants.LLMChatBison2K].MaxTokens)
	assert.Equal(t, 8192, routes[constants.LLMChatBison32K].MaxTokens)
}

func TestRouter_Invoke(t *testing.T) {
	openaiModel := &fakeModel{reply: "openai"}
	geminiModel := &fakeModel{reply: "gemini"}
	r := NewRouter(DefaultRoutes(&config.Config{GPT4_8KName: "gpt-4", GPT4_32KName: "gpt-4-32k"}), map[Provider]ChatModel{
		ProviderOpenAI: openaiModel,
		ProviderGemini: geminiModel,
	})
	ctx := context.Background()

	out, err := r.Invoke(ctx, Request{Prompt: "p", LLMType: "GPT-4 32k"})
	require.NoError(t, err)
	assert.Equal(t, "openai:p", out)
	require.Len(t, openaiModel.routes, 1)
	assert.Equal(t, "gpt-4-32k", openaiModel.routes[0].Model)

	out, err = r.Invoke(ctx, Request{Prompt: "p", LLMType: "gemini"})
	require.NoError(t, err)
	assert.Equal(t, "gemini:p", out)

	_, err = r.Invoke(ctx, Request{Prompt: "p", LLMType: "gpt-5"})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))
}

func TestRouter_MissingProvider(t *testing.T) {
	r := NewRouter(DefaultRoutes(&config.Config{}), map[Provider]ChatModel{ProviderOpenAI: &fakeModel{}})

	_, err := r.Invoke(context.Background(), Request{Prompt: "p", LLMType: "chat-bison 2k"})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConfig))
}

func TestNewRouterFromConfig_RequiresCredentials(t *testing.T) {
	_, err := NewRouterFromConfig(context.Background(), &config.Config{})
	var missing *apperrors.ErrConfigMissingRequired
	require.ErrorAs(t, err, &missing)

	r, err := NewRouterFromConfig(context.Background(), &config.Config{OpenAIAPIKey: "sk-test", GPT4_8KName: "gpt-4"})
	require.NoError(t, err)
	route, err := r.Route("gpt-4 8k")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, route.Provider)
}
