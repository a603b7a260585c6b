package auth

import (
	"context"
	"os"
	"strings"

	"github.com/openinterx/gomavi/pkg/model"
)

// DefaultEnvVar is the environment variable the SDK reads API keys from
// when no explicit key is configured.
const DefaultEnvVar = "MAVI_API_KEY"

// KeyProvider supplies the API key attached to every request. Implementations
// may fetch or rotate keys; the transport asks per request.
type KeyProvider interface {
	APIKey(ctx context.Context) (string, error)
}

// KeyProviderFunc adapts a function to the KeyProvider interface.
type KeyProviderFunc func(ctx context.Context) (string, error)

func (f KeyProviderFunc) APIKey(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticKey is a fixed API key.
type StaticKey string

func NewStaticKey(key string) (StaticKey, error) {
	if strings.TrimSpace(key) == "" {
		return "", model.NewValidationError("API key must be a non-empty string")
	}
	return StaticKey(key), nil
}

func (k StaticKey) APIKey(ctx context.Context) (string, error) {
	if k == "" {
		return "", model.NewValidationError("API key must be a non-empty string")
	}
	return string(k), nil
}

// EnvKey resolves the API key from an environment variable on every call,
// so key rotation does not require rebuilding the client.
type EnvKey struct {
	Var string
}

func NewEnvKey(envVar string) *EnvKey {
	if envVar == "" {
		envVar = DefaultEnvVar
	}
	return &EnvKey{Var: envVar}
}

func (p *EnvKey) APIKey(ctx context.Context) (string, error) {
	key := strings.TrimSpace(os.Getenv(p.Var))
	if key == "" {
		return "", model.NewValidationError("environment variable %s is not set", p.Var)
	}
	return key, nil
}
