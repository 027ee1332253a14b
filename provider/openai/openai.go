package openai_provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/mohammad-safakhou/accountplan/provider"
)

// Config configures the chat completion client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// client implements provider.Completer using OpenAI's chat completions API
type client struct {
	api   *openai.Client
	model string
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(cfg Config) (*client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OPENAI_API_KEY not set")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}
	return &client{api: openai.NewClientWithConfig(oc), model: cfg.Model}, nil
}

func (c *client) Complete(ctx context.Context, messages []provider.Message, opts provider.Options) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	}
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == provider.RoleSystem {
			role = openai.ChatMessageRoleSystem
		}
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return &provider.StatusError{Backend: "openai", StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return &provider.StatusError{Backend: "openai", StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return fmt.Errorf("openai: %w", err)
}
