// Package app wires configuration into a running conversation controller.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/accountplan/config"
	"github.com/mohammad-safakhou/accountplan/internal/collector"
	"github.com/mohammad-safakhou/accountplan/internal/conversation"
	"github.com/mohammad-safakhou/accountplan/internal/docstore"
	"github.com/mohammad-safakhou/accountplan/internal/intent"
	"github.com/mohammad-safakhou/accountplan/internal/metrics"
	"github.com/mohammad-safakhou/accountplan/internal/retry"
	"github.com/mohammad-safakhou/accountplan/internal/synth"
	"github.com/mohammad-safakhou/accountplan/provider"
	gemini_provider "github.com/mohammad-safakhou/accountplan/provider/gemini"
	openai_provider "github.com/mohammad-safakhou/accountplan/provider/openai"
	"github.com/mohammad-safakhou/accountplan/session"
	"github.com/mohammad-safakhou/accountplan/session/inmemory"
	redis_session "github.com/mohammad-safakhou/accountplan/session/redis"
	"github.com/mohammad-safakhou/accountplan/tools/web_fetch"
)

// App holds the long-lived components shared by every request.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	Sessions   session.Store
	Controller *conversation.Controller

	closers []func() error
}

// New builds every component described by cfg.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := metrics.New()

	backend, err := NewCompleter(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	policy := retry.Policy{
		MaxAttempts: cfg.LLM.MaxAttempts,
		BaseDelay:   cfg.LLM.BackoffBase,
		Multiplier:  cfg.LLM.BackoffMultiplier,
		Retryable:   provider.IsRetryable,
	}
	gateway := provider.NewGateway(backend, policy, m, logger.Named("gateway"))

	fetcher, err := web_fetch.NewWebFetcher(web_fetch.FetcherType(cfg.Sources.Fetcher), web_fetch.Options{
		Timeout:   cfg.Sources.Timeout,
		MaxChars:  cfg.Sources.MaxChars,
		UserAgent: cfg.Sources.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("fetcher %q: %w", cfg.Sources.Fetcher, err)
	}

	sessions, closeSessions, err := NewSessionStore(ctx, cfg.Session, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}

	docs := docstore.NewMemory()
	coll := collector.New(fetcher, docs, cfg.Sources.Concurrency, m, logger.Named("collector"))
	s := synth.New(gateway, coll, docs, synth.NewConflictDetector(cfg.Demo.ForceConflict), synth.Config{
		TopK:         cfg.Sources.TopK,
		ContextChars: cfg.Sources.ContextChars,
		UploadedFile: cfg.Sources.UploadedFile,
	}, m, logger.Named("synth"))

	a := &App{
		Config:     cfg,
		Logger:     logger,
		Metrics:    m,
		Sessions:   sessions,
		Controller: conversation.New(sessions, s, intent.Keywords{}, m, logger.Named("conversation")),
	}
	if closeSessions != nil {
		a.closers = append(a.closers, closeSessions)
	}
	logger.Info("components ready",
		zap.String("llm", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
		zap.String("fetcher", cfg.Sources.Fetcher),
		zap.String("sessions", cfg.Session.Store),
		zap.Bool("force_conflict", cfg.Demo.ForceConflict))
	return a, nil
}

// Close releases external connections.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewCompleter returns the raw backend selected by cfg.Provider.
func NewCompleter(ctx context.Context, cfg config.LLMConfig) (provider.Completer, error) {
	switch provider.Client(cfg.Provider) {
	case provider.OpenAI:
		c, err := openai_provider.NewOpenAIClient(openai_provider.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case provider.Gemini:
		c, err := gemini_provider.NewGeminiClient(ctx, gemini_provider.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

// NewSessionStore returns the configured store and, for external backends, a
// function closing its connection.
func NewSessionStore(ctx context.Context, cfg config.SessionConfig, storage config.StorageConfig) (session.Store, func() error, error) {
	switch session.StoreType(cfg.Store) {
	case session.InMemoryStore:
		return inmemory.NewInMemorySessionStore(cfg.TTL), nil, nil
	case session.RedisStore:
		client, err := redis_session.Conn(ctx, storage.Redis)
		if err != nil {
			return nil, nil, err
		}
		return redis_session.NewRedisSessionStore(client, cfg.TTL), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported session store %q", cfg.Store)
	}
}
