package client

import (
	"context"
	"fmt"

	"github.com/openinterx/gomavi/pkg/auth"
	"github.com/openinterx/gomavi/pkg/transport"
)

type Client struct {
	config *Config
	tr     *transport.Client
}

func NewClient(config *Config) *Client {
	return &Client{
		config: config,
	}
}

func (c *Client) Connect(ctx context.Context) (*Connection, error) {
	provider, err := c.resolveKeyProvider()
	if err != nil {
		return nil, err
	}

	tr, err := transport.New(transport.Config{
		BaseURL:     c.config.BaseURL,
		Key:         provider,
		Timeout:     c.config.Timeout,
		MaxAttempts: c.config.MaxAttempts,
		RetryDelay:  c.config.RetryDelay,
		RateLimit:   c.config.RateLimit,
		RateBurst:   c.config.RateBurst,
		Logger:      c.config.Logger,
		HTTPClient:  c.config.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build Mavi transport: %w", err)
	}

	c.tr = tr
	return NewConnection(c, tr), nil
}

func (c *Client) resolveKeyProvider() (auth.KeyProvider, error) {
	if c.config.KeyProvider != nil {
		return c.config.KeyProvider, nil
	}
	return auth.NewStaticKey(c.config.APIKey)
}

type Connection struct {
	client *Client
	tr     *transport.Client
}

func NewConnection(client *Client, tr *transport.Client) *Connection {
	return &Connection{
		client: client,
		tr:     tr,
	}
}

func (c *Connection) Transport() *transport.Client {
	return c.tr
}
