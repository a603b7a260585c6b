package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/openinterx/gomavi/pkg/auth"
	"github.com/openinterx/gomavi/pkg/codec"
	"github.com/openinterx/gomavi/pkg/model"
)

const (
	// DefaultBaseURL is the hosted Mavi backend.
	DefaultBaseURL = "https://mavi-backend.openinterx.com/api/serve/video/"

	DefaultTimeout     = 60 * time.Second
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = time.Second
)

type Config struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	// Key supplies the API key for the Authorization header. Required.
	Key auth.KeyProvider
	// Timeout bounds each non-streaming request end to end.
	Timeout time.Duration
	// MaxAttempts caps the retry loop for retryable failures.
	MaxAttempts int
	// RetryDelay is the initial backoff delay; it doubles per attempt.
	RetryDelay time.Duration
	// RateLimit throttles outgoing requests (requests per second).
	// Zero disables client-side throttling.
	RateLimit float64
	RateBurst int
	Logger    zerolog.Logger
	// HTTPClient overrides the default client, e.g. for custom transports.
	HTTPClient *http.Client
}

// Client performs authenticated HTTP round trips against the Mavi backend:
// URL assembly, envelope decoding, error mapping, retry and rate limiting.
type Client struct {
	baseURL     string
	http        *http.Client
	stream      *http.Client
	key         auth.KeyProvider
	codec       *codec.JsonCodec
	limiter     *rate.Limiter
	log         zerolog.Logger
	maxAttempts int
	retryDelay  time.Duration
}

func New(cfg Config) (*Client, error) {
	if cfg.Key == nil {
		return nil, model.NewValidationError("API key provider is required")
	}

	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, model.NewValidationError("invalid base URL %q: %v", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, model.NewValidationError("base URL %q must use http or https", base)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	// streaming responses outlive any sane request timeout, so SSE uses a
	// client without one, sharing everything else with the request client
	streamClient := &http.Client{
		Transport:     httpClient.Transport,
		CheckRedirect: httpClient.CheckRedirect,
		Jar:           httpClient.Jar,
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		baseURL:     strings.TrimRight(base, "/"),
		http:        httpClient,
		stream:      streamClient,
		key:         cfg.Key,
		codec:       codec.NewJsonCodec(),
		limiter:     limiter,
		log:         cfg.Logger,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Endpoint joins path onto the base URL the way the platform expects:
// single slash, no escaping of the configured base.
func (c *Client) Endpoint(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.roundTrip(ctx, http.MethodGet, path, query, nil, "", out, true)
}

func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}
	return c.roundTrip(ctx, http.MethodPost, path, nil, payload, "application/json", out, false)
}

func (c *Client) DeleteJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}
	return c.roundTrip(ctx, http.MethodDelete, path, nil, payload, "application/json", out, false)
}

// roundTrip sends one logical request, retrying retryable failures with
// exponential backoff. Non-idempotent requests (retryJSON=false) are retried
// only on connection errors, where no response was received.
func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, payload []byte, contentType string, out any, retryHTTPErrors bool) error {
	delay := c.retryDelay
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err := c.once(ctx, method, path, query, payload, contentType, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if !c.shouldRetry(err, retryHTTPErrors) || attempt == c.maxAttempts {
			return err
		}

		c.log.Debug().
			Str("method", method).
			Str("endpoint", path).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Err(err).
			Msg("retrying request")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
	return lastErr
}

func (c *Client) shouldRetry(err error, retryHTTPErrors bool) bool {
	if isConnError(err) {
		return true
	}
	return retryHTTPErrors && model.IsRetryable(err)
}

func (c *Client) once(ctx context.Context, method, path string, query url.Values, payload []byte, contentType string, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Endpoint(path), body)
	if err != nil {
		return model.NewValidationError("invalid request: %v", err)
	}
	req.URL.RawQuery = query.Encode()
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if err := c.authorize(ctx, req); err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &connError{err: err}
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("endpoint", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("mavi request")

	if resp.StatusCode >= 400 {
		return c.mapHTTPError(resp)
	}
	return c.codec.Unmarshal(resp.Body, out)
}

// MultipartFile describes one file part of a multipart upload. Open is
// called per attempt so connection-error retries re-read from the start.
type MultipartFile struct {
	Field       string
	Name        string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

func (c *Client) PostMultipart(ctx context.Context, path string, query url.Values, file MultipartFile, out any) error {
	delay := c.retryDelay
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err := c.multipartOnce(ctx, path, query, file, out)
		if err == nil {
			return nil
		}
		lastErr = err

		// the body is streamed, so only failures where the server saw no
		// complete request are safe to retry
		if !isConnError(err) || attempt == c.maxAttempts {
			return err
		}

		c.log.Debug().
			Str("endpoint", path).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Err(err).
			Msg("retrying upload")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
	return lastErr
}

func (c *Client) multipartOnce(ctx context.Context, path string, query url.Values, file MultipartFile, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := createFilePart(mw, file)
		if err == nil {
			_, err = io.Copy(part, src)
		}
		if closeErr := mw.Close(); err == nil {
			err = closeErr
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(path), pr)
	if err != nil {
		return model.NewValidationError("invalid request: %v", err)
	}
	req.URL.RawQuery = query.Encode()
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := c.authorize(ctx, req); err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &connError{err: err}
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", http.MethodPost).
		Str("endpoint", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("mavi upload")

	if resp.StatusCode >= 400 {
		return c.mapHTTPError(resp)
	}
	return c.codec.Unmarshal(resp.Body, out)
}

func createFilePart(mw *multipart.Writer, file MultipartFile) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.Name))
	if file.ContentType != "" {
		h.Set("Content-Type", file.ContentType)
	}
	return mw.CreatePart(h)
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	key, err := c.key.APIKey(ctx)
	if err != nil {
		return err
	}
	// the platform expects the raw key, not a Bearer scheme
	req.Header.Set("Authorization", key)
	req.Header.Set("Accept", "application/json")
	return nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) mapHTTPError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	msg := string(bytes.TrimSpace(raw))
	apiCode := ""

	var env codec.Envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Msg != "" {
		msg = env.Msg
		apiCode = env.Code
	}

	status := resp.StatusCode
	apiErr := &model.APIError{
		Message:    msg,
		HTTPStatus: status,
		APICode:    apiCode,
	}

	switch {
	case status == http.StatusUnauthorized:
		apiErr.Code = model.ErrUnauthorized
		apiErr.Message = orDefault(msg, "invalid API key")
	case status == http.StatusForbidden:
		apiErr.Code = model.ErrForbidden
	case status == http.StatusTooManyRequests:
		apiErr.Code = model.ErrRateLimited
		apiErr.Retryable = true
	case status == http.StatusBadRequest:
		if strings.Contains(msg, "quota") {
			apiErr.Code = model.ErrQuotaExceeded
		} else {
			apiErr.Code = model.ErrInvalidRequest
		}
	case status >= 500:
		apiErr.Code = model.ErrUpstream
		apiErr.Retryable = true
	default:
		apiErr.Code = model.ErrUpstream
	}
	return apiErr
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
