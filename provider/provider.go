package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/accountplan/internal/metrics"
	"github.com/mohammad-safakhou/accountplan/internal/retry"
)

// Client represents different LLM backends
type Client string

const (
	OpenAI Client = "openai"
	Gemini Client = "gemini"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tunes a single completion.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Completer is satisfied by every backend and by Gateway itself.
type Completer interface {
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
}

// Gateway retries a backend on rate-limit and overload errors and reduces
// every failure to ErrOverloaded or *PermanentError.
type Gateway struct {
	backend Completer
	policy  retry.Policy
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewGateway wraps backend. A zero policy falls back to retry.DefaultPolicy.
func NewGateway(backend Completer, policy retry.Policy, m *metrics.Metrics, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.Retryable == nil {
		policy.Retryable = IsRetryable
	}
	g := &Gateway{backend: backend, metrics: m, logger: logger}
	next := policy.OnRetry
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		g.metrics.LLMRetry()
		g.logger.Warn("model call retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
		if next != nil {
			next(attempt, err, wait)
		}
	}
	g.policy = policy
	return g
}

func (g *Gateway) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	var out string
	attempts, err := retry.Do(ctx, g.policy, func(ctx context.Context) error {
		text, err := g.backend.Complete(ctx, messages, opts)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	if err == nil {
		g.metrics.LLMCall("ok")
		return out, nil
	}

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		g.metrics.LLMCall("overloaded")
		g.logger.Error("model overloaded", zap.Int("attempts", attempts), zap.Error(exhausted.Err))
		return "", fmt.Errorf("%w after %d attempts: %w", ErrOverloaded, attempts, exhausted.Err)
	}
	g.metrics.LLMCall("failed")
	g.logger.Error("model call failed", zap.Int("attempts", attempts), zap.Error(err))
	return "", &PermanentError{Err: err}
}
