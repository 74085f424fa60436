package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// SecretProvider resolves configuration keys. ok is false when the key is unset.
type SecretProvider interface {
	Lookup(ctx context.Context, key string) (value string, ok bool, err error)
}

// EnvProvider reads process environment, optionally seeded from .env files.
type EnvProvider struct{}

// NewEnvProvider loads the given .env files (or ./.env when none are given).
// Missing files are ignored; variables already set in the environment win.
func NewEnvProvider(files ...string) *EnvProvider {
	_ = godotenv.Load(files...)
	return &EnvProvider{}
}

func (p *EnvProvider) Lookup(_ context.Context, key string) (string, bool, error) {
	value, ok := os.LookupEnv(key)
	return value, ok, nil
}

// ProviderFromEnv selects the provider named by SECRET_BACKEND (env, aws or gcp).
// Bootstrap keys for the managed backends always come from the environment.
func ProviderFromEnv(ctx context.Context) (SecretProvider, error) {
	env := NewEnvProvider()

	backend := strings.ToLower(os.Getenv("SECRET_BACKEND"))
	switch backend {
	case "", "env":
		return env, nil
	case "aws":
		store, err := NewAWSSecretStore(ctx, os.Getenv("AWS_REGION"), os.Getenv("AWS_SECRET_ID"))
		if err != nil {
			return nil, err
		}
		return NewManagedSecretProvider(store, env), nil
	case "gcp":
		store, err := NewGCPSecretStore(ctx, os.Getenv("GCP_PROJECT_ID"))
		if err != nil {
			return nil, err
		}
		return NewManagedSecretProvider(store, env), nil
	default:
		return nil, fmt.Errorf("unsupported SECRET_BACKEND %q", backend)
	}
}
