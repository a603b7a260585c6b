package client

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/openinterx/gomavi/pkg/auth"
)

type Config struct {
	BaseURL string
	APIKey  string
	// KeyProvider takes precedence over APIKey when both are set.
	KeyProvider auth.KeyProvider
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
	// RateLimit is the client-side request budget in requests per second.
	RateLimit  float64
	RateBurst  int
	Logger     zerolog.Logger
	HTTPClient *http.Client
}

type ConfigOption func(*Config)

func WithBaseURL(baseURL string) ConfigOption {
	return func(c *Config) {
		c.BaseURL = baseURL
	}
}

func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

func WithKeyProvider(provider auth.KeyProvider) ConfigOption {
	return func(c *Config) {
		c.KeyProvider = provider
	}
}

func WithTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

func WithRetry(maxAttempts int, initialDelay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = maxAttempts
		c.RetryDelay = initialDelay
	}
}

func WithRateLimit(requestsPerSecond float64, burst int) ConfigOption {
	return func(c *Config) {
		c.RateLimit = requestsPerSecond
		c.RateBurst = burst
	}
}

func WithLogger(logger zerolog.Logger) ConfigOption {
	return func(c *Config) {
		c.Logger = logger
	}
}

func WithHTTPClient(httpClient *http.Client) ConfigOption {
	return func(c *Config) {
		c.HTTPClient = httpClient
	}
}

func NewConfig(opts ...ConfigOption) *Config {
	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
