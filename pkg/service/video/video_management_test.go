package video_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openinterx/gomavi/pkg/model"
	"github.com/openinterx/gomavi/pkg/testutil"
	"github.com/openinterx/gomavi/pkg/types"
)

func writeTempVideo(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "race.mp4")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestUpload(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()

	cl, err := backend.NewClient(context.Background())
	require.NoError(t, err)

	path := writeTempVideo(t, "fake mp4 bytes")
	video, err := cl.VideoMng.Upload(context.Background(), &model.UploadRequest{
		VideoName:   "olympicRacer.mp4",
		VideoPath:   path,
		CallbackURI: "https://example.com/hook",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, video.VideoNo)
	assert.Equal(t, "olympicRacer.mp4", video.VideoName)
	assert.Equal(t, types.VideoStatusUnparse, video.VideoStatus)
	assert.False(t, video.UploadTime.IsZero())

	uploads := backend.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "file", uploads[0].Field)
	assert.Equal(t, "olympicRacer.mp4", uploads[0].Filename)
	assert.Equal(t, "video/mp4", uploads[0].ContentType)
	assert.Equal(t, int64(len("fake mp4 bytes")), uploads[0].Size)
	assert.Equal(t, "https://example.com/hook", uploads[0].CallbackURI)
}

func TestUploadMissingFile(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()

	cl, err := backend.NewClient(context.Background())
	require.NoError(t, err)

	_, err = cl.VideoMng.Upload(context.Background(), &model.UploadRequest{
		VideoName: "ghost.mp4",
		VideoPath: "/nonexistent/ghost.mp4",
	})
	require.Error(t, err)

	var valErr *model.ValidationError
	assert.True(t, errors.As(err, &valErr))
	assert.Empty(t, backend.Uploads())
}

func TestUploadDoesNotRetryHTTPErrors(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()

	cl, err := backend.NewClient(context.Background())
	require.NoError(t, err)

	// a 503 is an HTTP error, not a connection error, so the upload must
	// surface it instead of blindly resending the body
	backend.FailuresRemaining = 1
	path := writeTempVideo(t, "bytes")
	_, err = cl.VideoMng.Upload(context.Background(), &model.UploadRequest{
		VideoName: "race.mp4",
		VideoPath: path,
	})
	require.Error(t, err)

	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, model.ErrUpstream, apiErr.Code)
}

func TestUploadFromURL(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()

	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		fmt.Fprint(w, "remote media bytes")
	}))
	defer media.Close()

	cl, err := backend.NewClient(context.Background())
	require.NoError(t, err)

	video, err := cl.VideoMng.UploadFromURL(context.Background(), &model.UploadFromURLRequest{
		URL: media.URL + "/downloads/sprint-final.mp4",
	})
	require.NoError(t, err)
	assert.Equal(t, "sprint-final.mp4", video.VideoName)

	uploads := backend.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "sprint-final.mp4", uploads[0].Filename)
	assert.Equal(t, int64(len("remote media bytes")), uploads[0].Size)
}

func TestSearchMetadataDefaults(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()

	backend.AddVideo(&model.Video{
		VideoNo:     "mavi_video_1",
		VideoName:   "race.mp4",
		VideoStatus: types.VideoStatusParse,
		UploadTime:  types.NewEpochMillis(time.Now()),
	})
	backend.AddVideo(&model.Video{
		VideoNo:     "mavi_video_2",
		VideoName:   "broken.mp4",
		VideoStatus: types.VideoStatusFail,
		UploadTime:  types.NewEpochMillis(time.Now()),
	})

	cl, err := backend.NewClient(context.Background())
	require.NoError(t, err)

	before := time.Now()
	videos, err := cl.VideoMng.SearchMetadata(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "mavi_video_1", videos[0].VideoNo)

	query := backend.LastSearch()
	require.NotNil(t, query)
	assert.Equal(t, string(types.VideoStatusParse), query["videoStatus"])
	assert.Equal(t, "1", query["page"])
	assert.Equal(t, "10", query["pageSize"])

	start, err := strconv.ParseInt(query["startTime"], 10, 64)
	require.NoError(t, err)
	end, err := strconv.ParseInt(query["endTime"], 10, 64)
	require.NoError(t, err)
	assert.InDelta(t, before.UnixMilli(), end, float64(5*time.Second/time.Millisecond))
	assert.Equal(t, int64(model.DefaultSearchWindow/time.Millisecond), end-start)
}

func TestSearchMetadataPagination(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()

	for i := 0; i < 5; i++ {
		backend.AddVideo(&model.Video{
			VideoNo:     fmt.Sprintf("mavi_video_%d", i),
			VideoStatus: types.VideoStatusParse,
		})
	}

	cl, err := backend.NewClient(context.Background())
	require.NoError(t, err)

	videos, err := cl.VideoMng.SearchMetadata(context.Background(), &model.SearchMetadataRequest{
		Page:     2,
		PageSize: 2,
	})
	require.NoError(t, err)
	assert.Len(t, videos, 2)
}

func TestDelete(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()

	backend.AddVideo(&model.Video{VideoNo: "mavi_video_1", VideoStatus: types.VideoStatusParse})
	backend.AddVideo(&model.Video{VideoNo: "mavi_video_2", VideoStatus: types.VideoStatusParse})

	cl, err := backend.NewClient(context.Background())
	require.NoError(t, err)

	require.NoError(t, cl.VideoMng.Delete(context.Background(), []string{"mavi_video_1", "mavi_video_2"}))

	assert.Empty(t, backend.Videos())
	deleted := backend.Deleted()
	require.Len(t, deleted, 1)
	assert.Equal(t, []string{"mavi_video_1", "mavi_video_2"}, deleted[0])
}

func TestDeleteRequiresVideoNos(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()

	cl, err := backend.NewClient(context.Background())
	require.NoError(t, err)

	err = cl.VideoMng.Delete(context.Background(), nil)
	var valErr *model.ValidationError
	assert.True(t, errors.As(err, &valErr))
}

func TestInvalidAPIKey(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()

	cl, err := backend.NewClient(context.Background())
	require.NoError(t, err)

	backend.APIKey = "rotated-away"
	_, err = cl.VideoMng.SearchMetadata(context.Background(), nil)
	require.Error(t, err)

	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, model.ErrUnauthorized, apiErr.Code)
}
