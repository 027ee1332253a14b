package gemini_provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/mohammad-safakhou/accountplan/provider"
)

// Config configures the Gemini client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// client implements provider.Completer on the Gemini API.
type client struct {
	api   *genai.Client
	model string
}

// NewGeminiClient creates a Gemini API client.
func NewGeminiClient(ctx context.Context, cfg Config) (*client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY not set")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	api, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &client{api: api, model: cfg.Model}, nil
}

// Complete folds system messages into the system instruction and sends the
// rest as user turns.
func (c *client) Complete(ctx context.Context, messages []provider.Message, opts provider.Options) (string, error) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		if m.Role == provider.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
	}

	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
	}
	if opts.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if len(system) > 0 {
		gc.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	resp, err := c.api.Models.GenerateContent(ctx, c.model, contents, gc)
	if err != nil {
		return "", wrapError(err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}

func wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code > 0 {
		return &provider.StatusError{Backend: "gemini", StatusCode: apiErr.Code, Err: err}
	}
	return fmt.Errorf("gemini: %w", err)
}
