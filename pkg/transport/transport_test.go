package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openinterx/gomavi/pkg/auth"
	"github.com/openinterx/gomavi/pkg/model"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	key, err := auth.NewStaticKey("test-key")
	require.NoError(t, err)

	c, err := New(Config{
		BaseURL:     baseURL,
		Key:         key,
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestNewValidation(t *testing.T) {
	key, _ := auth.NewStaticKey("k")

	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Key: key, BaseURL: "ftp://example.com"})
	assert.Error(t, err)

	c, err := New(Config{Key: key})
	require.NoError(t, err)
	assert.Equal(t, strings.TrimRight(DefaultBaseURL, "/"), c.BaseURL())
}

func TestEndpointJoining(t *testing.T) {
	c := newTestClient(t, "https://example.com/api/serve/video/")
	assert.Equal(t, "https://example.com/api/serve/video/upload", c.Endpoint("upload"))
	assert.Equal(t, "https://example.com/api/serve/video/upload", c.Endpoint("/upload"))
}

func TestGetJSONSendsAuthAndQuery(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"code":"0000","msg":"success","data":{"ok":true}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	var out struct {
		OK bool `json:"ok"`
	}
	query := url.Values{"page": {"1"}}
	require.NoError(t, c.GetJSON(context.Background(), "searchDB", query, &out))

	assert.Equal(t, "test-key", gotAuth)
	assert.Equal(t, "page=1", gotQuery)
	assert.True(t, out.OK)
}

func TestGetJSONRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"code":"0500","msg":"unavailable"}`))
			return
		}
		w.Write([]byte(`{"code":"0000","msg":"success","data":{}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	require.NoError(t, c.GetJSON(context.Background(), "searchDB", nil, nil))
	assert.Equal(t, int32(3), calls.Load())
}

func TestPostJSONDoesNotRetryServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"code":"0500","msg":"boom"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.PostJSON(context.Background(), "searchAI", map[string]string{"searchValue": "x"}, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, model.ErrUpstream, apiErr.Code)
	assert.True(t, apiErr.Retryable)
}

func TestPostJSONRetriesConnectionErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			conn, _, err := w.(http.Hijacker).Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		w.Write([]byte(`{"code":"0000","msg":"success","data":{}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	require.NoError(t, c.PostJSON(context.Background(), "searchAI", map[string]string{"searchValue": "x"}, nil))
	assert.Equal(t, int32(2), calls.Load())
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCode  model.ErrorCode
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"code":"0401","msg":"invalid API key"}`, model.ErrUnauthorized, false},
		{"forbidden", http.StatusForbidden, `{"code":"0403","msg":"forbidden"}`, model.ErrForbidden, false},
		{"rate limited", http.StatusTooManyRequests, `{"code":"0429","msg":"slow down"}`, model.ErrRateLimited, true},
		{"bad request", http.StatusBadRequest, `{"code":"0400","msg":"missing field"}`, model.ErrInvalidRequest, false},
		{"quota", http.StatusBadRequest, `{"code":"0400","msg":"quota exhausted"}`, model.ErrQuotaExceeded, false},
		{"bad gateway", http.StatusBadGateway, `not json`, model.ErrUpstream, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			key, _ := auth.NewStaticKey("test-key")
			c, err := New(Config{BaseURL: srv.URL, Key: key, MaxAttempts: 1})
			require.NoError(t, err)

			err = c.PostJSON(context.Background(), "chat", map[string]string{}, nil)
			require.Error(t, err)

			var apiErr *model.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.status, apiErr.HTTPStatus)
			assert.Equal(t, tt.retryable, apiErr.Retryable)
		})
	}
}

func TestEnvelopeFailureOnHTTP200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"0413","msg":"video too large"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.GetJSON(context.Background(), "searchDB", nil, nil)
	require.Error(t, err)

	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, model.ErrAPIFailure, apiErr.Code)
	assert.Equal(t, "0413", apiErr.APICode)
}

func TestPostMultipart(t *testing.T) {
	var (
		gotField, gotName, gotType, gotBody, gotCallback string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reader, err := r.MultipartReader()
		require.NoError(t, err)
		part, err := reader.NextPart()
		require.NoError(t, err)
		data, _ := io.ReadAll(part)

		gotField = part.FormName()
		gotName = part.FileName()
		gotType = part.Header.Get("Content-Type")
		gotBody = string(data)
		gotCallback = r.URL.Query().Get("callBackUri")

		w.Write([]byte(`{"code":"0000","msg":"success","data":{"videoNo":"mavi_video_1"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	var opens atomic.Int32
	file := MultipartFile{
		Field:       "file",
		Name:        "race.mp4",
		ContentType: "video/mp4",
		Open: func() (io.ReadCloser, error) {
			opens.Add(1)
			return io.NopCloser(strings.NewReader("fake video bytes")), nil
		},
	}

	var out struct {
		VideoNo string `json:"videoNo"`
	}
	query := url.Values{"callBackUri": {"https://example.com/hook"}}
	require.NoError(t, c.PostMultipart(context.Background(), "upload", query, file, &out))

	assert.Equal(t, "file", gotField)
	assert.Equal(t, "race.mp4", gotName)
	assert.Equal(t, "video/mp4", gotType)
	assert.Equal(t, "fake video bytes", gotBody)
	assert.Equal(t, "https://example.com/hook", gotCallback)
	assert.Equal(t, "mavi_video_1", out.VideoNo)
	assert.Equal(t, int32(1), opens.Load())
}

func TestPostMultipartReopensOnConnectionError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			conn, _, err := w.(http.Hijacker).Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		io.Copy(io.Discard, r.Body)
		w.Write([]byte(`{"code":"0000","msg":"success","data":{}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	var opens atomic.Int32
	file := MultipartFile{
		Field: "file",
		Name:  "race.mp4",
		Open: func() (io.ReadCloser, error) {
			opens.Add(1)
			return io.NopCloser(strings.NewReader("fake video bytes")), nil
		},
	}

	require.NoError(t, c.PostMultipart(context.Background(), "upload", nil, file, nil))
	assert.Equal(t, int32(2), opens.Load())
}

func TestPostMultipartDoesNotRetryHTTPErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"code":"0500","msg":"unavailable"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	file := MultipartFile{
		Field: "file",
		Name:  "race.mp4",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("bytes")), nil
		},
	}

	err := c.PostMultipart(context.Background(), "upload", nil, file, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRateLimiterThrottles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"0000","msg":"success","data":{}}`))
	}))
	defer srv.Close()

	key, _ := auth.NewStaticKey("test-key")
	c, err := New(Config{
		BaseURL:   srv.URL,
		Key:       key,
		RateLimit: 50,
		RateBurst: 1,
	})
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, c.GetJSON(context.Background(), "searchDB", nil, nil))
	}
	// burst of 1 at 50 rps forces at least ~40ms of waiting for 3 calls
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestStreamClientInheritsCustomClient(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	key, _ := auth.NewStaticKey("test-key")
	custom := &http.Client{
		Transport: &http.Transport{},
		Jar:       jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
		Timeout: time.Second,
	}

	c, err := New(Config{Key: key, HTTPClient: custom})
	require.NoError(t, err)

	assert.Same(t, custom.Transport, c.stream.Transport)
	assert.Same(t, custom.Jar.(*cookiejar.Jar), c.stream.Jar.(*cookiejar.Jar))
	assert.NotNil(t, c.stream.CheckRedirect)
	// the stream client must not inherit the request timeout
	assert.Zero(t, c.stream.Timeout)
}
