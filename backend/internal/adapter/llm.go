package adapter

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	apperrors "agent-neo/backend/pkg/errors"
	"agent-neo/backend/pkg/logger"
)

const defaultMaxRetries = 3

// OpenAIModel talks to OpenAI, or to Azure OpenAI when an endpoint is configured. On Azure the
// route's model is the deployment name.
type OpenAIModel struct {
	client     *openai.Client
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

var _ ChatModel = (*OpenAIModel)(nil)

// NewOpenAIModel creates the OpenAI chat client
func NewOpenAIModel(apiKey, endpoint, apiVersion string) *OpenAIModel {
	var config openai.ClientConfig
	if endpoint != "" {
		config = openai.DefaultAzureConfig(apiKey, endpoint)
		if apiVersion != "" {
			config.APIVersion = apiVersion
		}
	} else {
		config = openai.DefaultConfig(apiKey)
	}
	return newOpenAIModel(config, time.Second)
}

func newOpenAIModel(config openai.ClientConfig, backoff time.Duration) *OpenAIModel {
	return &OpenAIModel{
		client:     openai.NewClientWithConfig(config),
		maxRetries: defaultMaxRetries,
		backoff:    backoff,
		logger:     logger.Named("llm"),
	}
}

// Generate sends the prompt as a single user message and returns the first choice
func (a *OpenAIModel) Generate(ctx context.Context, route Route, request Request) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: route.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: request.Prompt,
			},
		},
		Temperature: float32(request.Temperature),
		MaxTokens:   route.MaxTokens,
		User:        request.Metadata["conversation_id"],
	}

	// Retry logic with linear backoff
	var resp openai.ChatCompletionResponse
	var err error
	attempts := 0
	for attempt := 0; attempt < a.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * a.backoff
			a.logger.Warn("Retrying LLM request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return "", apperrors.NewContextCancelled("llm_generate", ctx.Err())
			case <-time.After(backoff):
			}
		}

		attempts++
		resp, err = a.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}

		errMsg := err.Error()
		a.logger.Error("LLM request failed",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.String("model", route.Model),
			zap.String("conversation_id", request.Metadata["conversation_id"]),
		)

		// A non-JSON body usually means a proxy or gateway error page
		if strings.Contains(errMsg, "invalid character") {
			a.logger.Warn("LLM service returned non-JSON error response - this may be a transient server issue",
				zap.String("error", errMsg),
			)
		}

		if !retryableOpenAIError(ctx, err) {
			break
		}
	}

	if err != nil {
		return "", apperrors.NewAgentLLMFailed(route.Model, attempts, retryableOpenAIError(ctx, err), err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", apperrors.ErrAgentNoResponse
	}

	a.logger.Debug("LLM response generated",
		zap.String("model", route.Model),
		zap.Int("attempts", attempts),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

// retryableOpenAIError treats rate limits, server errors and transport failures as transient.
func retryableOpenAIError(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return transientStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return transientStatus(reqErr.HTTPStatusCode)
	}
	return true
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
