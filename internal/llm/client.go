// Package llm is the boundary to the chat completion backends. Every
// backend takes a message history plus an optional tool catalog and
// answers with text, tool calls, or a readable error.
package llm

import (
	"context"
	"encoding/json"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// ToolCall is a tool invocation requested by the model. Arguments is the
// raw JSON object the model produced.
type ToolCall struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Response holds exactly one of: Text, ToolCalls, or Error. When Error is
// set, Text carries the message to show the user.
type Response struct {
	Text      string
	ToolCalls []ToolCall
	Error     string
}

// Failed reports whether the backend rejected the call.
func (r *Response) Failed() bool {
	return r.Error != ""
}

type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Client sends one completion request. Rejections reported by the backend
// (bad key, rate limit, bad request) come back as a Response with Error
// set; a non-nil error means the call itself broke (transport failure,
// malformed payload).
type Client interface {
	Chat(ctx context.Context, messages []Message, tools []Tool) (*Response, error)
}
