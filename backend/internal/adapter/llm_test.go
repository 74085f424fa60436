package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "agent-neo/backend/pkg/errors"
)

// chatServer fails the first `failures` calls with status, then answers.
func chatServer(t *testing.T, failures int32, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		n := calls.Add(1)

		w.Header().Set("Content-Type", "application/json")
		if n <= failures {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "upstream unavailable", "type": "server_error"},
			})
			return
		}

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "conv-1", req.User)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{
				{"index": 0, "message": map[string]any{"role": "assistant", "content": "GDS is a library."}, "finish_reason": "stop"},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testModel(url string) *OpenAIModel {
	config := openai.DefaultConfig("sk-test")
	config.BaseURL = url + "/v1"
	return newOpenAIModel(config, time.Millisecond)
}

var testRequest = Request{
	Prompt:      "What is GDS?",
	LLMType:     "gpt-4 8k",
	Temperature: 0.2,
	Metadata:    map[string]string{"conversation_id": "conv-1"},
}

func TestOpenAIModel_Generate(t *testing.T) {
	srv, calls := chatServer(t, 0, 0)

	out, err := testModel(srv.URL).Generate(context.Background(), Route{Provider: ProviderOpenAI, Model: "gpt-4"}, testRequest)
	require.NoError(t, err)
	assert.Equal(t, "GDS is a library.", out)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIModel_RetriesServerErrors(t *testing.T) {
	srv, calls := chatServer(t, 2, http.StatusServiceUnavailable)

	out, err := testModel(srv.URL).Generate(context.Background(), Route{Provider: ProviderOpenAI, Model: "gpt-4"}, testRequest)
	require.NoError(t, err)
	assert.Equal(t, "GDS is a library.", out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpenAIModel_GivesUpAfterMaxRetries(t *testing.T) {
	srv, calls := chatServer(t, 10, http.StatusInternalServerError)

	_, err := testModel(srv.URL).Generate(context.Background(), Route{Provider: ProviderOpenAI, Model: "gpt-4"}, testRequest)
	var llmErr *apperrors.ErrAgentLLMFailed
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, 3, llmErr.Attempts)
	assert.True(t, llmErr.Retryable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpenAIModel_DoesNotRetryClientErrors(t *testing.T) {
	srv, calls := chatServer(t, 10, http.StatusBadRequest)

	_, err := testModel(srv.URL).Generate(context.Background(), Route{Provider: ProviderOpenAI, Model: "gpt-4"}, testRequest)
	var llmErr *apperrors.ErrAgentLLMFailed
	require.ErrorAs(t, err, &llmErr)
	assert.False(t, llmErr.Retryable)
	assert.False(t, apperrors.IsRetryable(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestTransientStatus(t *testing.T) {
	assert.True(t, transientStatus(http.StatusTooManyRequests))
	assert.True(t, transientStatus(http.StatusBadGateway))
	assert.False(t, transientStatus(http.StatusUnauthorized))
}
