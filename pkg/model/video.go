package model

import (
	"time"

	"github.com/openinterx/gomavi/pkg/types"
)

// Video is the metadata record the platform keeps per uploaded video.
type Video struct {
	VideoNo     string            `json:"videoNo"`
	VideoName   string            `json:"videoName"`
	VideoStatus types.VideoStatus `json:"videoStatus"`
	UploadTime  types.EpochMillis `json:"uploadTime"`
}

type UploadRequest struct {
	// VideoName is the name the video is stored under on the platform.
	VideoName string
	// VideoPath is the local file to upload.
	VideoPath string
	// CallbackURI, when set, is a public URL the platform notifies once
	// parsing finishes.
	CallbackURI string
}

type UploadFromURLRequest struct {
	VideoName string
	// URL points at a directly downloadable media file.
	URL         string
	CallbackURI string
}

// SearchMetadataRequest selects videos by upload time window, status and page.
// Zero-value fields fall back to the platform defaults: a window covering the
// last seven days, status PARSE, first page of ten results.
type SearchMetadataRequest struct {
	StartTime   time.Time
	EndTime     time.Time
	VideoStatus types.VideoStatus
	Page        int
	PageSize    int
}

const (
	DefaultSearchWindow   = 7 * 24 * time.Hour
	DefaultSearchPage     = 1
	DefaultSearchPageSize = 10
)

// WithDefaults returns a copy with unset fields replaced by the defaults.
func (r SearchMetadataRequest) WithDefaults(now time.Time) SearchMetadataRequest {
	if r.EndTime.IsZero() {
		r.EndTime = now
	}
	if r.StartTime.IsZero() {
		r.StartTime = r.EndTime.Add(-DefaultSearchWindow)
	}
	if r.VideoStatus == "" {
		r.VideoStatus = types.VideoStatusParse
	}
	if r.Page <= 0 {
		r.Page = DefaultSearchPage
	}
	if r.PageSize <= 0 {
		r.PageSize = DefaultSearchPageSize
	}
	return r
}

type SearchMetadataResponse struct {
	Videos []*Video `json:"videoData"`
}
