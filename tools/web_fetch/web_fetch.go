package web_fetch

import (
	"context"
	"errors"
	"time"

	"github.com/mohammad-safakhou/accountplan/tools/web_fetch/chromedp"
	"github.com/mohammad-safakhou/accountplan/tools/web_fetch/httpfetch"
	"github.com/mohammad-safakhou/accountplan/tools/web_fetch/models"
)

const (
	DefaultTimeout   = 8 * time.Second
	MaxCharsDefault  = 3000
	DefaultUserAgent = "ResearchAgent/1.0"
)

// ErrUnsupportedFetcher is returned by NewWebFetcher for an unknown type.
var ErrUnsupportedFetcher = errors.New("unsupported fetcher type")

type WebFetcher interface {
	Exec(ctx context.Context, url string) (models.Result, error)
}

type FetcherType string

const (
	HTTPFetcherType     FetcherType = "http"
	ChromedpFetcherType FetcherType = "chromedp"
)

type Options struct {
	Timeout   time.Duration
	MaxChars  int
	UserAgent string
}

func NewWebFetcher(fetcherType FetcherType, opts Options) (WebFetcher, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = MaxCharsDefault
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	switch fetcherType {
	case HTTPFetcherType, "":
		return httpfetch.New(opts.Timeout, opts.MaxChars, opts.UserAgent), nil
	case ChromedpFetcherType:
		return &chromedp.Fetch{Timeout: opts.Timeout, MaxChars: opts.MaxChars, UserAgent: opts.UserAgent}, nil
	default:
		return nil, ErrUnsupportedFetcher
	}
}
