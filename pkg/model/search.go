package model

import "github.com/openinterx/gomavi/pkg/types"

// VideoHit is a whole-video match for a natural language search.
type VideoHit struct {
	VideoNo     string            `json:"videoNo"`
	VideoName   string            `json:"videoName"`
	VideoStatus types.VideoStatus `json:"videoStatus"`
	UploadTime  types.EpochMillis `json:"uploadTime"`
}

type SearchVideosRequest struct {
	SearchValue string `json:"searchValue"`
}

type SearchVideosResponse struct {
	Videos []*VideoHit `json:"videos"`
}

// Clip is a matched fragment inside a video, with bounds in seconds.
type Clip struct {
	VideoNo           string  `json:"videoNo"`
	VideoName         string  `json:"videoName"`
	FragmentStartTime float64 `json:"fragmentStartTime"`
	FragmentEndTime   float64 `json:"fragmentEndTime"`
	Duration          float64 `json:"duration"`
}

type SearchClipsRequest struct {
	VideoNos    []string `json:"videoNos"`
	SearchValue string   `json:"searchValue"`
}

type SearchClipsResponse struct {
	Videos []*Clip `json:"videos"`
}
