package client

import (
	"context"

	"github.com/openinterx/gomavi/internal/mediafetch"
	"github.com/openinterx/gomavi/pkg/model"
	"github.com/openinterx/gomavi/pkg/service/chat"
	"github.com/openinterx/gomavi/pkg/service/search"
	"github.com/openinterx/gomavi/pkg/service/video"
	"github.com/openinterx/gomavi/pkg/transport"
)

type MaviBindingClient struct {
	client   *MaviClient
	tr       *transport.Client
	VideoMng video.Management
	Search   search.Search
	Chat     chat.Chat
}

func NewMaviBindingClient(client *MaviClient, conn *Connection) *MaviBindingClient {
	tr := conn.Transport()
	fetcher := mediafetch.New(client.config.HTTPClient, client.config.Logger)

	return &MaviBindingClient{
		client:   client,
		tr:       tr,
		VideoMng: video.NewManagementClient(tr, fetcher),
		Search:   search.NewSearchClient(tr),
		Chat:     chat.NewChatClient(tr),
	}
}

// Ping verifies connectivity and credentials with the cheapest call the
// platform offers, a single-result metadata lookup.
func (c *MaviBindingClient) Ping(ctx context.Context) error {
	_, err := c.VideoMng.SearchMetadata(ctx, &model.SearchMetadataRequest{
		Page:     1,
		PageSize: 1,
	})
	return err
}
