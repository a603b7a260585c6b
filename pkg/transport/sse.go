package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// doneSentinel terminates an event stream.
const doneSentinel = "[DONE]"

// PostSSE sends a JSON request and consumes the server-sent event response.
// Events are delivered as raw JSON payloads on the first channel; a failure
// terminates the stream through the buffered error channel. Both channels
// close when the stream ends, and a failure before the stream starts returns
// the event channel already closed, so callers may always range over it.
func (c *Client) PostSSE(ctx context.Context, path string, body any) (<-chan json.RawMessage, <-chan error) {
	errCh := make(chan error, 1)
	fail := func(err error) (<-chan json.RawMessage, <-chan error) {
		errCh <- err
		close(errCh)
		closed := make(chan json.RawMessage)
		close(closed)
		return closed, errCh
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fail(err)
	}

	if err := c.wait(ctx); err != nil {
		return fail(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(path), strings.NewReader(string(payload)))
	if err != nil {
		return fail(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if err := c.authorize(ctx, req); err != nil {
		return fail(err)
	}

	resp, err := c.stream.Do(req)
	if err != nil {
		return fail(&connError{err: err})
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return fail(c.mapHTTPError(resp))
	}

	eventCh := make(chan json.RawMessage)

	go func() {
		defer resp.Body.Close()
		defer close(eventCh)
		defer close(errCh)

		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					errCh <- &connError{err: err}
				}
				return
			}

			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "event:") {
				continue
			}
			if !strings.HasPrefix(line, "data:") {
				continue
			}

			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == doneSentinel {
				return
			}

			select {
			case eventCh <- json.RawMessage(data):
			case <-ctx.Done():
				return
			}
		}
	}()

	return eventCh, errCh
}
