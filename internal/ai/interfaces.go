// Package ai defines the chat-completion contract implemented by
// provider packages.
package ai

import "context"

// ChatMessage is one message in a chat completion conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatConfig carries per-request completion settings.
type ChatConfig struct {
	Model        string
	Temperature  float64
	MaxTokens    int
	JSONResponse bool // request a JSON-object response from the model
}

// ChatProvider produces chat completions.
type ChatProvider interface {
	ChatCompletion(ctx context.Context, messages []ChatMessage, config ChatConfig) (string, error)
}
