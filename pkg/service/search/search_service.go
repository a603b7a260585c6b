package search

import (
	"context"
	"strings"

	"github.com/openinterx/gomavi/pkg/model"
	"github.com/openinterx/gomavi/pkg/transport"
)

type Search interface {
	// Videos finds whole videos matching a natural language query.
	Videos(ctx context.Context, query string) ([]*model.VideoHit, error)
	// Clips finds matching fragments, optionally limited to specific videos.
	Clips(ctx context.Context, query string, videoNos []string) ([]*model.Clip, error)
}

type search struct {
	tr *transport.Client
}

func NewSearchClient(tr *transport.Client) *search {
	return &search{
		tr: tr,
	}
}

func (c *search) Videos(ctx context.Context, query string) ([]*model.VideoHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, model.NewValidationError("search query is required")
	}

	req := &model.SearchVideosRequest{SearchValue: query}

	var resp model.SearchVideosResponse
	if err := c.tr.PostJSON(ctx, "searchAI", req, &resp); err != nil {
		return nil, err
	}
	return resp.Videos, nil
}

func (c *search) Clips(ctx context.Context, query string, videoNos []string) ([]*model.Clip, error) {
	if strings.TrimSpace(query) == "" {
		return nil, model.NewValidationError("search query is required")
	}

	if videoNos == nil {
		videoNos = []string{}
	}
	req := &model.SearchClipsRequest{
		VideoNos:    videoNos,
		SearchValue: query,
	}

	var resp model.SearchClipsResponse
	if err := c.tr.PostJSON(ctx, "searchVideoFragment", req, &resp); err != nil {
		return nil, err
	}
	return resp.Videos, nil
}
