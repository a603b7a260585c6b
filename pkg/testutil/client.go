package testutil

import (
	"context"
	"time"

	"github.com/openinterx/gomavi/pkg/client"
)

// NewClient builds a binding client wired to the fake backend with fast
// retry settings suitable for tests.
func (b *FakeBackend) NewClient(ctx context.Context, opts ...client.ConfigOption) (*client.MaviBindingClient, error) {
	allOpts := append([]client.ConfigOption{
		client.WithBaseURL(b.URL()),
		client.WithRetry(3, 5*time.Millisecond),
	}, opts...)
	return client.Connect(ctx, b.APIKey, allOpts...)
}
