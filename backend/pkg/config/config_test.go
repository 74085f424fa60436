package config

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	gcpsecrets "google.golang.org/api/secretmanager/v1"

	apperrors "agent-neo/backend/pkg/errors"
)

type mapProvider map[string]string

func (m mapProvider) Lookup(_ context.Context, key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func requiredNeo4j() mapProvider {
	return mapProvider{
		"NEO4J_URI":      "neo4j://localhost:7687",
		"NEO4J_USERNAME": "neo4j",
		"NEO4J_PASSWORD": "secret",
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(context.Background(), requiredNeo4j())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "neo4j", cfg.Neo4jDatabase)
	assert.Equal(t, "flat", cfg.RetrievalMode)
	assert.Equal(t, 4, cfg.PersistWorkers)
	assert.Equal(t, 3, cfg.PersistMaxAttempts)
	assert.True(t, cfg.PublicMessages)
	assert.Equal(t, defaultCORSOrigins, cfg.CORSOrigins)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	p := requiredNeo4j()
	p["RETRIEVAL_MODE"] = "TOPIC"
	p["PERSIST_WORKERS"] = "8"
	p["CORS_ORIGINS"] = "https://a.example, https://b.example ,"
	p["PUBLIC_MESSAGES"] = "false"
	p["EMBEDDING_PROVIDER"] = "Ollama"
	p["PERSIST_QUEUE_SIZE"] = "not-a-number"

	cfg, err := Load(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, "topic", cfg.RetrievalMode)
	assert.Equal(t, 8, cfg.PersistWorkers)
	assert.Equal(t, 64, cfg.PersistQueueSize)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.False(t, cfg.PublicMessages)
	assert.Equal(t, "ollama", cfg.EmbeddingProvider)
}

func TestLoad_MissingConnectionParameter(t *testing.T) {
	for _, key := range []string{"NEO4J_URI", "NEO4J_USERNAME", "NEO4J_PASSWORD"} {
		t.Run(key, func(t *testing.T) {
			p := requiredNeo4j()
			delete(p, key)

			_, err := Load(context.Background(), p)
			require.Error(t, err)

			var missing *apperrors.ErrConfigMissingRequired
			require.True(t, stderrors.As(err, &missing))
			assert.Equal(t, key, missing.Field)
			assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConfig))
		})
	}
}

func TestLoad_RejectsUnknownModes(t *testing.T) {
	p := requiredNeo4j()
	p["RETRIEVAL_MODE"] = "hybrid"

	_, err := Load(context.Background(), p)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConfig))
}

type failingProvider struct{}

func (failingProvider) Lookup(context.Context, string) (string, bool, error) {
	return "", false, stderrors.New("vault sealed")
}

func TestLoad_ProviderError(t *testing.T) {
	_, err := Load(context.Background(), failingProvider{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault sealed")
}

type fakeSecretsAPI struct {
	calls  int
	secret string
	err    error
}

func (f *fakeSecretsAPI) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{
		Name:         in.SecretId,
		SecretString: aws.String(f.secret),
	}, nil
}

func TestManagedSecretProvider_AWS(t *testing.T) {
	api := &fakeSecretsAPI{secret: `{"NEO4J_PASSWORD":"from-aws","NEO4J_URI":"neo4j+s://db.example"}`}
	store := &awsSecretStore{client: api, secretID: "agent-neo"}
	p := NewManagedSecretProvider(store, mapProvider{"NEO4J_USERNAME": "env-user", "NEO4J_URI": "ignored"})

	cfg, err := Load(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, "from-aws", cfg.Neo4jPassword)
	assert.Equal(t, "neo4j+s://db.example", cfg.Neo4jURI)
	assert.Equal(t, "env-user", cfg.Neo4jUser)
	assert.Equal(t, 1, api.calls, "secret document is fetched once")
}

func TestManagedSecretProvider_AWSFailure(t *testing.T) {
	store := &awsSecretStore{client: &fakeSecretsAPI{err: stderrors.New("access denied")}, secretID: "agent-neo"}
	p := NewManagedSecretProvider(store, nil)

	_, _, err := p.Lookup(context.Background(), "NEO4J_URI")
	assert.ErrorContains(t, err, "access denied")
}

func TestManagedSecretProvider_GCP(t *testing.T) {
	var names []string
	store := &gcpSecretStore{
		projectID: "neo4j-se",
		access: func(_ context.Context, name string) (*gcpsecrets.AccessSecretVersionResponse, error) {
			names = append(names, name)
			if name == "projects/neo4j-se/secrets/NEO4J_PASSWORD/versions/latest" {
				return &gcpsecrets.AccessSecretVersionResponse{
					Payload: &gcpsecrets.SecretPayload{Data: base64.StdEncoding.EncodeToString([]byte("from-gcp"))},
				}, nil
			}
			return nil, &googleapi.Error{Code: 404}
		},
	}
	p := NewManagedSecretProvider(store, mapProvider{"NEO4J_URI": "bolt://fallback"})

	v, ok, err := p.Lookup(context.Background(), "NEO4J_PASSWORD")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "from-gcp", v)

	_, _, _ = p.Lookup(context.Background(), "NEO4J_PASSWORD")
	assert.Len(t, names, 1, "hits are cached")

	v, ok, err = p.Lookup(context.Background(), "NEO4J_URI")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bolt://fallback", v)
}
