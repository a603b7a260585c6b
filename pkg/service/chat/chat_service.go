package chat

import (
	"context"
	"encoding/json"

	"github.com/openinterx/gomavi/pkg/model"
	"github.com/openinterx/gomavi/pkg/transport"
)

type Chat interface {
	// Ask sends a question about the given videos and waits for the full answer.
	Ask(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error)
	// Stream sends a question and delivers the answer incrementally. Both
	// channels close when the stream ends; a failure arrives on the error
	// channel before close. The chunk channel is never nil: a request that
	// fails before the stream starts returns it already closed.
	Stream(ctx context.Context, req *model.ChatRequest) (<-chan *model.ChatChunk, <-chan error)
}

type chat struct {
	tr *transport.Client
}

func NewChatClient(tr *transport.Client) *chat {
	return &chat{
		tr: tr,
	}
}

func validate(req *model.ChatRequest) error {
	if req == nil || req.Message == "" {
		return model.NewValidationError("chat message is required")
	}
	if len(req.VideoNos) == 0 {
		return model.NewValidationError("at least one video number is required")
	}
	return nil
}

func normalize(req *model.ChatRequest, stream bool) *model.ChatRequest {
	out := *req
	out.Stream = stream
	if out.History == nil {
		out.History = []model.ChatMessage{}
	}
	return &out
}

func (c *chat) Ask(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var resp model.ChatResponse
	if err := c.tr.PostJSON(ctx, "chat", normalize(req, false), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *chat) Stream(ctx context.Context, req *model.ChatRequest) (<-chan *model.ChatChunk, <-chan error) {
	if err := validate(req); err != nil {
		chunkCh := make(chan *model.ChatChunk)
		close(chunkCh)
		errCh := make(chan error, 1)
		errCh <- err
		close(errCh)
		return chunkCh, errCh
	}

	eventCh, sseErrCh := c.tr.PostSSE(ctx, "chat", normalize(req, true))

	chunkCh := make(chan *model.ChatChunk)
	errCh := make(chan error, 1)

	go func() {
		defer close(chunkCh)
		defer close(errCh)

		for event := range eventCh {
			var chunk model.ChatChunk
			if err := json.Unmarshal(event, &chunk); err != nil {
				errCh <- err
				return
			}
			if chunk.Content == "" {
				continue
			}
			select {
			case chunkCh <- &chunk:
			case <-ctx.Done():
				return
			}
		}
		if err, ok := <-sseErrCh; ok && err != nil {
			errCh <- err
		}
	}()

	return chunkCh, errCh
}
