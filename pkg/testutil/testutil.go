// Package testutil hosts an in-process fake of the Mavi backend so service
// tests can exercise the full client stack without network access.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/openinterx/gomavi/pkg/codec"
	"github.com/openinterx/gomavi/pkg/model"
	"github.com/openinterx/gomavi/pkg/types"
)

const TestAPIKey = "test-api-key"

// UploadRecord captures what the fake saw for one upload request.
type UploadRecord struct {
	Field       string
	Filename    string
	ContentType string
	Size        int64
	CallbackURI string
}

// QueryRecord captures the query parameters of the last searchDB call.
type QueryRecord map[string]string

// FakeBackend implements the subset of the Mavi HTTP API the SDK uses. All
// handlers enforce the API key and speak the {code,msg,data} envelope.
type FakeBackend struct {
	srv *httptest.Server

	mu       sync.Mutex
	videos   map[string]*model.Video
	nextID   int
	uploads  []UploadRecord
	searches []QueryRecord
	deleted  [][]string

	// APIKey is the only key the fake accepts.
	APIKey string
	// ChatReply is returned by blocking chat calls.
	ChatReply string
	// ChatChunks is streamed, one SSE event each, before [DONE].
	ChatChunks []string
	// FailuresRemaining makes the next N requests fail with 503 before
	// recovering, for retry tests.
	FailuresRemaining int
}

func NewFakeBackend() *FakeBackend {
	b := &FakeBackend{
		videos:    make(map[string]*model.Video),
		APIKey:    TestAPIKey,
		ChatReply: "the video shows a runner crossing the finish line",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", b.handleUpload)
	mux.HandleFunc("GET /searchDB", b.handleSearchDB)
	mux.HandleFunc("POST /searchAI", b.handleSearchAI)
	mux.HandleFunc("POST /searchVideoFragment", b.handleSearchClips)
	mux.HandleFunc("POST /chat", b.handleChat)
	mux.HandleFunc("DELETE /delete", b.handleDelete)

	b.srv = httptest.NewServer(b.withAuth(mux))
	return b
}

func (b *FakeBackend) URL() string {
	return b.srv.URL + "/"
}

func (b *FakeBackend) Close() {
	b.srv.Close()
}

// AddVideo seeds the metadata store.
func (b *FakeBackend) AddVideo(v *model.Video) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.videos[v.VideoNo] = v
}

func (b *FakeBackend) Videos() []*model.Video {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*model.Video, 0, len(b.videos))
	for _, v := range b.videos {
		out = append(out, v)
	}
	return out
}

func (b *FakeBackend) Uploads() []UploadRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]UploadRecord(nil), b.uploads...)
}

func (b *FakeBackend) LastSearch() QueryRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.searches) == 0 {
		return nil
	}
	return b.searches[len(b.searches)-1]
}

func (b *FakeBackend) Deleted() [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]string(nil), b.deleted...)
}

func (b *FakeBackend) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		failing := b.FailuresRemaining > 0
		if failing {
			b.FailuresRemaining--
		}
		key := b.APIKey
		b.mu.Unlock()

		if failing {
			writeError(w, http.StatusServiceUnavailable, "0500", "backend unavailable")
			return
		}
		if r.Header.Get("Authorization") != key {
			writeError(w, http.StatusUnauthorized, "0401", "invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *FakeBackend) handleUpload(w http.ResponseWriter, r *http.Request) {
	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "0400", "expected multipart body")
		return
	}

	part, err := reader.NextPart()
	if err != nil {
		writeError(w, http.StatusBadRequest, "0400", "missing file part")
		return
	}
	size, _ := io.Copy(io.Discard, part)

	b.mu.Lock()
	b.nextID++
	videoNo := fmt.Sprintf("mavi_video_%012d", b.nextID)
	video := &model.Video{
		VideoNo:     videoNo,
		VideoName:   part.FileName(),
		VideoStatus: types.VideoStatusUnparse,
		UploadTime:  types.NewEpochMillis(time.Now()),
	}
	b.videos[videoNo] = video
	b.uploads = append(b.uploads, UploadRecord{
		Field:       part.FormName(),
		Filename:    part.FileName(),
		ContentType: part.Header.Get("Content-Type"),
		Size:        size,
		CallbackURI: r.URL.Query().Get("callBackUri"),
	})
	b.mu.Unlock()

	writeData(w, video)
}

func (b *FakeBackend) handleSearchDB(w http.ResponseWriter, r *http.Request) {
	record := QueryRecord{}
	for k := range r.URL.Query() {
		record[k] = r.URL.Query().Get(k)
	}

	status := types.VideoStatus(record["videoStatus"])
	page, _ := strconv.Atoi(record["page"])
	pageSize, _ := strconv.Atoi(record["pageSize"])

	b.mu.Lock()
	b.searches = append(b.searches, record)
	matched := make([]*model.Video, 0, len(b.videos))
	for _, v := range b.videos {
		if status == "" || v.VideoStatus == status {
			matched = append(matched, v)
		}
	}
	b.mu.Unlock()

	if page > 0 && pageSize > 0 {
		from := (page - 1) * pageSize
		if from > len(matched) {
			from = len(matched)
		}
		to := from + pageSize
		if to > len(matched) {
			to = len(matched)
		}
		matched = matched[from:to]
	}

	writeData(w, &model.SearchMetadataResponse{Videos: matched})
}

func (b *FakeBackend) handleSearchAI(w http.ResponseWriter, r *http.Request) {
	var req model.SearchVideosRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SearchValue == "" {
		writeError(w, http.StatusBadRequest, "0400", "searchValue is required")
		return
	}

	b.mu.Lock()
	hits := make([]*model.VideoHit, 0, len(b.videos))
	for _, v := range b.videos {
		if v.VideoStatus != types.VideoStatusParse {
			continue
		}
		hits = append(hits, &model.VideoHit{
			VideoNo:     v.VideoNo,
			VideoName:   v.VideoName,
			VideoStatus: v.VideoStatus,
			UploadTime:  v.UploadTime,
		})
	}
	b.mu.Unlock()

	writeData(w, &model.SearchVideosResponse{Videos: hits})
}

func (b *FakeBackend) handleSearchClips(w http.ResponseWriter, r *http.Request) {
	var req model.SearchClipsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SearchValue == "" {
		writeError(w, http.StatusBadRequest, "0400", "searchValue is required")
		return
	}
	if req.VideoNos == nil {
		writeError(w, http.StatusBadRequest, "0400", "videoNos must be present")
		return
	}

	scope := map[string]bool{}
	for _, no := range req.VideoNos {
		scope[no] = true
	}

	b.mu.Lock()
	clips := make([]*model.Clip, 0)
	for _, v := range b.videos {
		if len(scope) > 0 && !scope[v.VideoNo] {
			continue
		}
		clips = append(clips, &model.Clip{
			VideoNo:           v.VideoNo,
			VideoName:         v.VideoName,
			FragmentStartTime: 1.5,
			FragmentEndTime:   4.25,
			Duration:          2.75,
		})
	}
	b.mu.Unlock()

	writeData(w, &model.SearchClipsResponse{Videos: clips})
}

func (b *FakeBackend) handleChat(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "0400", "message is required")
		return
	}

	if !req.Stream {
		b.mu.Lock()
		reply := b.ChatReply
		b.mu.Unlock()
		writeData(w, &model.ChatResponse{Msg: reply})
		return
	}

	b.mu.Lock()
	chunks := append([]string(nil), b.ChatChunks...)
	if len(chunks) == 0 {
		chunks = []string{b.ChatReply}
	}
	b.mu.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	flusher, _ := w.(http.Flusher)
	for _, chunk := range chunks {
		payload, _ := json.Marshal(&model.ChatChunk{Content: chunk})
		fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload)
		if flusher != nil {
			flusher.Flush()
		}
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}
}

func (b *FakeBackend) handleDelete(w http.ResponseWriter, r *http.Request) {
	var videoNos []string
	if err := json.NewDecoder(r.Body).Decode(&videoNos); err != nil || len(videoNos) == 0 {
		writeError(w, http.StatusBadRequest, "0400", "video numbers are required")
		return
	}

	b.mu.Lock()
	for _, no := range videoNos {
		delete(b.videos, no)
	}
	b.deleted = append(b.deleted, videoNos)
	b.mu.Unlock()

	writeEnvelope(w, &codec.Envelope{Code: codec.SuccessCode, Msg: "success"})
}

func writeData(w http.ResponseWriter, data any) {
	payload, err := codec.EncodeEnvelope(data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "0500", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

func writeEnvelope(w http.ResponseWriter, env *codec.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(env)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	payload, _ := codec.EncodeErrorEnvelope(code, msg)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}
