package mediafetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/openinterx/gomavi/pkg/model"
)

const defaultTimeout = 10 * time.Minute

// Fetcher downloads remote media files to local temp storage so they can be
// fed through the regular upload path.
type Fetcher struct {
	http *http.Client
	log  zerolog.Logger
	// MaxBytes aborts downloads that grow past the limit. Zero means no limit.
	MaxBytes int64
}

func New(httpClient *http.Client, logger zerolog.Logger) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Fetcher{
		http: httpClient,
		log:  logger,
	}
}

// Media is a downloaded file plus what could be learned about it.
type Media struct {
	Path        string
	Name        string
	ContentType string
	Size        int64
}

func (m *Media) Open() (io.ReadCloser, error) {
	return os.Open(m.Path)
}

// Cleanup removes the temp file. Safe to call more than once.
func (m *Media) Cleanup() error {
	err := os.Remove(m.Path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Fetch downloads rawURL into a temp file and reports name, content type and
// size. The caller owns the file and must call Cleanup.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Media, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, model.NewValidationError("invalid media URL %q: %v", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, model.NewValidationError("media URL %q must use http or https", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, model.NewValidationError("invalid media URL %q: %v", rawURL, err)
	}

	start := time.Now()
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch media: unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "gomavi-media-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	src := io.Reader(resp.Body)
	if f.MaxBytes > 0 {
		src = io.LimitReader(resp.Body, f.MaxBytes+1)
	}

	size, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil && f.MaxBytes > 0 && size > f.MaxBytes {
		err = fmt.Errorf("media exceeds size limit of %d bytes", f.MaxBytes)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return nil, err
	}

	media := &Media{
		Path:        tmp.Name(),
		Name:        inferName(u, resp.Header),
		ContentType: inferContentType(tmp.Name(), resp.Header),
		Size:        size,
	}

	f.log.Debug().
		Str("url", rawURL).
		Str("name", media.Name).
		Str("content_type", media.ContentType).
		Int64("bytes", size).
		Dur("latency", time.Since(start)).
		Msg("fetched media")

	return media, nil
}

func inferName(u *url.URL, header http.Header) string {
	if cd := header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := params["filename"]; name != "" {
				return path.Base(name)
			}
		}
	}
	if name := path.Base(u.Path); name != "" && name != "/" && name != "." {
		return name
	}
	return "video.mp4"
}

func inferContentType(filePath string, header http.Header) string {
	if ct := header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/octet-stream") {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
			return mediaType
		}
	}

	file, err := os.Open(filePath)
	if err != nil {
		return "video/mp4"
	}
	defer file.Close()

	buf := make([]byte, 512)
	n, _ := io.ReadFull(file, buf)
	detected := http.DetectContentType(buf[:n])
	if detected == "application/octet-stream" {
		return "video/mp4"
	}
	return detected
}
