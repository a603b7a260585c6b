package model

import "github.com/openinterx/gomavi/pkg/types"

// ChatMessage is one turn of conversation history passed back to the
// assistant for context.
type ChatMessage struct {
	Role    types.ChatRole `json:"role"`
	Content string         `json:"content"`
}

type ChatRequest struct {
	VideoNos []string      `json:"videoNos"`
	Message  string        `json:"message"`
	History  []ChatMessage `json:"history"`
	Stream   bool          `json:"stream"`
}

type ChatResponse struct {
	Msg string `json:"msg"`
}

// ChatChunk is one delta of a streamed assistant reply.
type ChatChunk struct {
	Content string `json:"msg"`
}
