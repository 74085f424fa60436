package config

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"google.golang.org/api/googleapi"
	gcpsecrets "google.golang.org/api/secretmanager/v1"

	apperrors "agent-neo/backend/pkg/errors"
)

// secretStore is a managed secret backend.
type secretStore interface {
	fetch(ctx context.Context, key string) (string, bool, error)
}

// ManagedSecretProvider resolves keys from a managed secret store, caching hits,
// and falls back to another provider for keys the store does not hold.
type ManagedSecretProvider struct {
	store    secretStore
	fallback SecretProvider

	mu    sync.RWMutex
	cache map[string]string
}

func NewManagedSecretProvider(store secretStore, fallback SecretProvider) *ManagedSecretProvider {
	return &ManagedSecretProvider{
		store:    store,
		fallback: fallback,
		cache:    make(map[string]string),
	}
}

func (p *ManagedSecretProvider) Lookup(ctx context.Context, key string) (string, bool, error) {
	p.mu.RLock()
	value, ok := p.cache[key]
	p.mu.RUnlock()
	if ok {
		return value, true, nil
	}

	value, ok, err := p.store.fetch(ctx, key)
	if err != nil {
		return "", false, err
	}
	if ok {
		p.mu.Lock()
		p.cache[key] = value
		p.mu.Unlock()
		return value, true, nil
	}

	if p.fallback == nil {
		return "", false, nil
	}
	return p.fallback.Lookup(ctx, key)
}

// AWS Secrets Manager: one secret holding a flat JSON object of key/value pairs.

type awsSecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type awsSecretStore struct {
	client   awsSecretsAPI
	secretID string

	once    sync.Once
	values  map[string]string
	loadErr error
}

// NewAWSSecretStore builds a store over the JSON document stored under secretID.
func NewAWSSecretStore(ctx context.Context, region, secretID string) (*awsSecretStore, error) {
	if secretID == "" {
		return nil, apperrors.NewConfigMissingRequired("AWS_SECRET_ID")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &awsSecretStore{
		client:   secretsmanager.NewFromConfig(awsCfg),
		secretID: secretID,
	}, nil
}

func (s *awsSecretStore) fetch(ctx context.Context, key string) (string, bool, error) {
	s.once.Do(func() {
		out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: aws.String(s.secretID),
		})
		if err != nil {
			s.loadErr = fmt.Errorf("get secret %s: %w", s.secretID, err)
			return
		}
		values := map[string]string{}
		if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &values); err != nil {
			s.loadErr = fmt.Errorf("decode secret %s: %w", s.secretID, err)
			return
		}
		s.values = values
	})
	if s.loadErr != nil {
		return "", false, s.loadErr
	}
	value, ok := s.values[key]
	return value, ok, nil
}

// Google Secret Manager: one secret per key, latest version.

type gcpAccessFunc func(ctx context.Context, name string) (*gcpsecrets.AccessSecretVersionResponse, error)

type gcpSecretStore struct {
	projectID string
	access    gcpAccessFunc
}

// NewGCPSecretStore uses application default credentials.
func NewGCPSecretStore(ctx context.Context, projectID string) (*gcpSecretStore, error) {
	if projectID == "" {
		return nil, apperrors.NewConfigMissingRequired("GCP_PROJECT_ID")
	}
	svc, err := gcpsecrets.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("create secret manager client: %w", err)
	}
	return &gcpSecretStore{
		projectID: projectID,
		access: func(ctx context.Context, name string) (*gcpsecrets.AccessSecretVersionResponse, error) {
			return svc.Projects.Secrets.Versions.Access(name).Context(ctx).Do()
		},
	}, nil
}

func (s *gcpSecretStore) fetch(ctx context.Context, key string) (string, bool, error) {
	name := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.projectID, key)
	resp, err := s.access(ctx, name)
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("access secret %s: %w", key, err)
	}
	if resp.Payload == nil {
		return "", false, nil
	}
	data, err := base64.StdEncoding.DecodeString(resp.Payload.Data)
	if err != nil {
		return "", false, fmt.Errorf("decode secret %s: %w", key, err)
	}
	return string(data), true, nil
}
