// Package openai implements the ai.ChatProvider contract over the
// OpenAI chat completions API.
package openai

import (
	"context"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/meetscribe/server/internal/ai"
	"github.com/meetscribe/server/internal/apperr"
	"github.com/meetscribe/server/pkg/logger"
)

// Client wraps the OpenAI SDK client.
type Client struct {
	api    *goopenai.Client
	apiKey string
	logger *logger.Logger
}

// NewClient creates an OpenAI chat provider. An empty API key is
// allowed at construction time; calls fail until one is configured.
func NewClient(apiKey string, log *logger.Logger) *Client {
	return &Client{
		api:    goopenai.NewClient(apiKey),
		apiKey: apiKey,
		logger: log.Named("openai"),
	}
}

// ChatCompletion sends the conversation and returns the assistant's reply.
func (c *Client) ChatCompletion(ctx context.Context, messages []ai.ChatMessage, config ai.ChatConfig) (string, error) {
	if c.apiKey == "" {
		return "", apperr.New(apperr.KindProvider, "OpenAI API key is not configured")
	}

	req := goopenai.ChatCompletionRequest{
		Model:       config.Model,
		Temperature: float32(config.Temperature),
		MaxTokens:   config.MaxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, goopenai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	if config.JSONResponse {
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	c.logger.Debug("Sending chat completion request",
		logger.String("model", config.Model),
		logger.Int("messages", len(messages)),
	)

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", apperr.Wrap(apperr.KindProvider, "chat completion request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperr.New(apperr.KindProvider, "chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
