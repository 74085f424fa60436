package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-neo/backend/pkg/config"
	apperrors "agent-neo/backend/pkg/errors"
)

func TestNew_SelectsProvider(t *testing.T) {
	ctx := context.Background()

	e, err := New(ctx, Config{Provider: ProviderOpenAI, APIKey: "sk-test"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIEmbedder{}, e)
	assert.Equal(t, DefaultOpenAIModel, e.Model())

	e, err = New(ctx, Config{Provider: ProviderOllama, OllamaHost: "http://localhost:11434", Model: "all-minilm"})
	require.NoError(t, err)
	assert.IsType(t, &OllamaEmbedder{}, e)
	assert.Equal(t, "all-minilm", e.Model())

	_, err = New(ctx, Config{Provider: ProviderOpenAI})
	var missing *apperrors.ErrConfigMissingRequired
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "OPENAI_API_KEY", missing.Field)

	_, err = New(ctx, Config{Provider: ProviderGemini})
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "GEMINI_API_KEY", missing.Field)

	_, err = New(ctx, Config{Provider: "bert"})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConfig))
}

func TestConfigFrom(t *testing.T) {
	cfg := &config.Config{
		EmbeddingProvider:  "gemini",
		EmbeddingModel:     "text-embedding-004",
		EmbeddingDimension: 768,
		OpenAIAPIKey:       "sk-openai",
		GeminiAPIKey:       "g-key",
	}
	c := ConfigFrom(cfg)
	assert.Equal(t, ProviderGemini, c.Provider)
	assert.Equal(t, "g-key", c.APIKey)
	assert.Equal(t, 768, c.Dimension)

	cfg.EmbeddingProvider = "openai"
	assert.Equal(t, "sk-openai", ConfigFrom(cfg).APIKey)
}

func openAIServer(t *testing.T, vector []float32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []any{"What is GDS?"}, req["input"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req["model"],
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": vector},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	srv := openAIServer(t, []float32{0.1, 0.2, 0.3})

	cc := openai.DefaultConfig("sk-test")
	cc.BaseURL = srv.URL + "/v1"

	e := newOpenAIEmbedder(cc, "text-embedding-3-small", 3)
	vector, err := e.Embed(context.Background(), "What is GDS?")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
}

func TestOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	srv := openAIServer(t, []float32{0.1, 0.2})

	cc := openai.DefaultConfig("sk-test")
	cc.BaseURL = srv.URL + "/v1"

	e := newOpenAIEmbedder(cc, "text-embedding-3-small", 1536)
	_, err := e.Embed(context.Background(), "What is GDS?")
	var embedErr *apperrors.ErrEmbeddingFailed
	require.ErrorAs(t, err, &embedErr)
	assert.Equal(t, "openai", embedErr.Provider)
}

func TestOllamaEmbedder_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":      "nomic-embed-text",
			"embeddings": [][]float32{{0.5, 0.25}},
		})
	}))
	defer srv.Close()

	e, err := NewOllamaEmbedder(srv.URL, "", 2)
	require.NoError(t, err)
	assert.Equal(t, DefaultOllamaModel, e.Model())

	vector, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, vector)
}

func TestOllamaEmbedder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	e, err := NewOllamaEmbedder(srv.URL, "missing", 0)
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "hello")
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeAgent))
}
