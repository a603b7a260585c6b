package video

import (
	"context"
	"io"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/openinterx/gomavi/internal/mediafetch"
	"github.com/openinterx/gomavi/pkg/model"
	"github.com/openinterx/gomavi/pkg/transport"
)

const uploadContentType = "video/mp4"

type Management interface {
	Upload(ctx context.Context, req *model.UploadRequest) (*model.Video, error)
	UploadFromURL(ctx context.Context, req *model.UploadFromURLRequest) (*model.Video, error)
	SearchMetadata(ctx context.Context, req *model.SearchMetadataRequest) ([]*model.Video, error)
	Delete(ctx context.Context, videoNos []string) error
}

type management struct {
	tr      *transport.Client
	fetcher *mediafetch.Fetcher
}

func NewManagementClient(tr *transport.Client, fetcher *mediafetch.Fetcher) *management {
	return &management{
		tr:      tr,
		fetcher: fetcher,
	}
}

func (c *management) Upload(ctx context.Context, req *model.UploadRequest) (*model.Video, error) {
	if req.VideoName == "" {
		return nil, model.NewValidationError("video name is required")
	}
	if _, err := os.Stat(req.VideoPath); err != nil {
		return nil, model.NewValidationError("video file not found: %s", req.VideoPath)
	}

	file := transport.MultipartFile{
		Field:       "file",
		Name:        req.VideoName,
		ContentType: uploadContentType,
		Open: func() (io.ReadCloser, error) {
			return os.Open(req.VideoPath)
		},
	}

	query := url.Values{}
	if req.CallbackURI != "" {
		query.Set("callBackUri", req.CallbackURI)
	}

	var video model.Video
	if err := c.tr.PostMultipart(ctx, "upload", query, file, &video); err != nil {
		return nil, err
	}
	return &video, nil
}

func (c *management) UploadFromURL(ctx context.Context, req *model.UploadFromURLRequest) (*model.Video, error) {
	if req.URL == "" {
		return nil, model.NewValidationError("media URL is required")
	}

	media, err := c.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	defer media.Cleanup()

	name := req.VideoName
	if name == "" {
		name = media.Name
	}

	return c.Upload(ctx, &model.UploadRequest{
		VideoName:   name,
		VideoPath:   media.Path,
		CallbackURI: req.CallbackURI,
	})
}

func (c *management) SearchMetadata(ctx context.Context, req *model.SearchMetadataRequest) ([]*model.Video, error) {
	r := model.SearchMetadataRequest{}
	if req != nil {
		r = *req
	}
	r = r.WithDefaults(time.Now())

	query := url.Values{}
	query.Set("startTime", strconv.FormatInt(r.StartTime.UnixMilli(), 10))
	query.Set("endTime", strconv.FormatInt(r.EndTime.UnixMilli(), 10))
	query.Set("videoStatus", string(r.VideoStatus))
	query.Set("page", strconv.Itoa(r.Page))
	query.Set("pageSize", strconv.Itoa(r.PageSize))

	var resp model.SearchMetadataResponse
	if err := c.tr.GetJSON(ctx, "searchDB", query, &resp); err != nil {
		return nil, err
	}
	return resp.Videos, nil
}

func (c *management) Delete(ctx context.Context, videoNos []string) error {
	if len(videoNos) == 0 {
		return model.NewValidationError("at least one video number is required")
	}
	return c.tr.DeleteJSON(ctx, "delete", videoNos, nil)
}
