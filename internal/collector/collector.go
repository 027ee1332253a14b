// Package collector gathers source documents for a plan: it fetches URLs with
// bounded parallelism, registers local text blobs, and records every step in
// the request's progress log in URL order.
package collector

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/accountplan/internal/docstore"
	"github.com/mohammad-safakhou/accountplan/internal/metrics"
	"github.com/mohammad-safakhou/accountplan/internal/plan"
	"github.com/mohammad-safakhou/accountplan/internal/progress"
	"github.com/mohammad-safakhou/accountplan/tools/web_fetch"
	"github.com/mohammad-safakhou/accountplan/tools/web_fetch/models"
)

const DefaultConcurrency = 3

// LocalSource is caller-supplied text registered without fetching.
type LocalSource struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
	Date  string `json:"date"`
}

type Collector struct {
	fetcher     web_fetch.WebFetcher
	store       docstore.Store
	concurrency int
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func New(fetcher web_fetch.WebFetcher, store docstore.Store, concurrency int, m *metrics.Metrics, logger *zap.Logger) *Collector {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{fetcher: fetcher, store: store, concurrency: concurrency, metrics: m, logger: logger}
}

type outcome struct {
	res models.Result
	err error
}

// Collect fetches urls, then registers locals, and returns the sources that
// made it into the store. Fetch failures are logged and skipped. Store
// insertions, progress entries and the returned list all follow input order.
func (c *Collector) Collect(ctx context.Context, urls []string, locals []LocalSource, log *progress.Log) []plan.SourceRef {
	outcomes := c.fetchAll(ctx, urls)

	sources := make([]plan.SourceRef, 0, len(urls)+len(locals))
	for i, url := range urls {
		log.Addf("Scraping %s...", url)
		o := outcomes[i]
		if o.err != nil {
			c.metrics.Source("failed")
			c.logger.Warn("scrape failed", zap.String("url", url), zap.Error(o.err))
			log.Addf("Failed to scrape %s: %v", url, o.err)
			continue
		}
		title := o.res.Title
		if title == "" {
			title = url
		}
		c.store.Add(docstore.Document{URL: url, Title: title, Text: o.res.Text})
		sources = append(sources, plan.SourceRef{URL: url, Title: title})
		c.metrics.Source("added")
		log.Addf("Added source: %s", url)
	}

	for _, lf := range locals {
		title := lf.Title
		if title == "" {
			title = "local-file"
		}
		c.store.Add(docstore.Document{URL: lf.URL, Title: title, Text: lf.Text})
		sources = append(sources, plan.SourceRef{URL: lf.URL, Title: title, Date: lf.Date})
		c.metrics.Source("local")
		log.Addf("Added local source: %s", title)
	}
	return sources
}

func (c *Collector) fetchAll(ctx context.Context, urls []string) []outcome {
	outcomes := make([]outcome, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, url := range urls {
		g.Go(func() error {
			res, err := c.fetcher.Exec(gctx, url)
			outcomes[i] = outcome{res: res, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}
