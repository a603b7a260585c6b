package client

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/openinterx/gomavi/pkg/auth"
)

// MaviClient is a builder for the binding client. Chain configuration and
// call Build:
//
//	cl, err := client.NewMaviClient(apiKey).
//		WithBaseURL("https://mavi-backend.example.com/api/serve/video/").
//		Build(ctx)
type MaviClient struct {
	config *Config
}

func NewMaviClient(apiKey string) *MaviClient {
	return &MaviClient{
		config: &Config{
			APIKey: apiKey,
		},
	}
}

func (c *MaviClient) WithBaseURL(baseURL string) *MaviClient {
	c.config.BaseURL = baseURL
	return c
}

func (c *MaviClient) WithKeyProvider(provider auth.KeyProvider) *MaviClient {
	c.config.KeyProvider = provider
	return c
}

func (c *MaviClient) WithTimeout(timeout time.Duration) *MaviClient {
	c.config.Timeout = timeout
	return c
}

func (c *MaviClient) WithRetry(maxAttempts int, initialDelay time.Duration) *MaviClient {
	c.config.MaxAttempts = maxAttempts
	c.config.RetryDelay = initialDelay
	return c
}

func (c *MaviClient) WithRateLimit(requestsPerSecond float64, burst int) *MaviClient {
	c.config.RateLimit = requestsPerSecond
	c.config.RateBurst = burst
	return c
}

func (c *MaviClient) WithLogger(logger zerolog.Logger) *MaviClient {
	c.config.Logger = logger
	return c
}

func (c *MaviClient) Build(ctx context.Context) (*MaviBindingClient, error) {
	client := NewClient(c.config)
	conn, err := client.Connect(ctx)
	if err != nil {
		return nil, err
	}

	return NewMaviBindingClient(c, conn), nil
}

func Connect(ctx context.Context, apiKey string, opts ...ConfigOption) (*MaviBindingClient, error) {
	allOpts := append([]ConfigOption{WithAPIKey(apiKey)}, opts...)
	config := NewConfig(allOpts...)
	client := NewClient(config)
	conn, err := client.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return NewMaviBindingClient(&MaviClient{config: config}, conn), nil
}

func ConnectWithKeyProvider(ctx context.Context, provider auth.KeyProvider, opts ...ConfigOption) (*MaviBindingClient, error) {
	allOpts := append([]ConfigOption{WithKeyProvider(provider)}, opts...)
	config := NewConfig(allOpts...)
	client := NewClient(config)
	conn, err := client.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return NewMaviBindingClient(&MaviClient{config: config}, conn), nil
}
