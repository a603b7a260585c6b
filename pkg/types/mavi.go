package types

import (
	"fmt"
	"strconv"
	"time"
)

// VideoStatus is the processing state the platform reports for an uploaded video.
type VideoStatus string

const (
	// VideoStatusParse marks a video that has been fully parsed and is searchable.
	VideoStatusParse VideoStatus = "PARSE"
	// VideoStatusUnparse marks a video that is uploaded but not yet parsed.
	VideoStatusUnparse VideoStatus = "UNPARSE"
	// VideoStatusFail marks a video the platform failed to process.
	VideoStatusFail VideoStatus = "FAIL"
)

func (s VideoStatus) Valid() bool {
	switch s {
	case VideoStatusParse, VideoStatusUnparse, VideoStatusFail:
		return true
	}
	return false
}

// ChatRole identifies the author of a chat history entry.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// EpochMillis is a timestamp carried on the wire as integer milliseconds
// since the Unix epoch, the format all Mavi time fields use.
type EpochMillis struct {
	time.Time
}

func NewEpochMillis(t time.Time) EpochMillis {
	return EpochMillis{Time: t}
}

func (e EpochMillis) Millis() int64 {
	if e.IsZero() {
		return 0
	}
	return e.UnixMilli()
}

func (e EpochMillis) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, e.Millis(), 10), nil
}

func (e *EpochMillis) UnmarshalJSON(data []byte) error {
	s := string(data)
	// some endpoints quote the value
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		e.Time = time.Time{}
		return nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid epoch millis %q: %w", string(data), err)
	}
	if ms == 0 {
		e.Time = time.Time{}
		return nil
	}
	e.Time = time.UnixMilli(ms).UTC()
	return nil
}
