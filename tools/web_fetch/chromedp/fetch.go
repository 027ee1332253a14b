package chromedp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/mohammad-safakhou/accountplan/tools/web_fetch/extract"
	"github.com/mohammad-safakhou/accountplan/tools/web_fetch/models"
)

// Fetch renders pages in headless Chrome before extracting text, for sites
// that build their content with JavaScript.
type Fetch struct {
	Timeout   time.Duration
	MaxChars  int
	UserAgent string
}

func (f Fetch) Exec(ctx context.Context, url string) (models.Result, error) {
	if strings.TrimSpace(url) == "" {
		return models.Result{}, errors.New("invalid url")
	}

	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()
	t0 := time.Now()

	html, err := f.fetchHTML(ctx, url)
	if err != nil {
		return models.Result{URL: url, Status: 599, RenderMS: int(time.Since(t0) / time.Millisecond)}, err
	}

	page, err := extract.FromHTML(html, url, f.MaxChars)
	if err != nil {
		return models.Result{URL: url, Status: 200}, err
	}
	return models.Result{
		URL:      url,
		Title:    page.Title,
		Text:     page.Text,
		Status:   200,
		RenderMS: int(time.Since(t0) / time.Millisecond),
	}, nil
}

func (f Fetch) fetchHTML(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(f.UserAgent),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}
