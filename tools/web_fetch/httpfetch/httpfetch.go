package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/accountplan/tools/web_fetch/extract"
	"github.com/mohammad-safakhou/accountplan/tools/web_fetch/models"
)

// maxBody bounds how much of a page is read.
const maxBody = 4 << 20

// Fetch downloads pages with a plain HTTP GET.
type Fetch struct {
	client    *http.Client
	maxChars  int
	userAgent string
}

func New(timeout time.Duration, maxChars int, userAgent string) *Fetch {
	return &Fetch{
		client:    &http.Client{Timeout: timeout},
		maxChars:  maxChars,
		userAgent: userAgent,
	}
}

func (f *Fetch) Exec(ctx context.Context, url string) (models.Result, error) {
	if strings.TrimSpace(url) == "" {
		return models.Result{}, errors.New("invalid url")
	}
	t0 := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Result{}, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return models.Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Result{URL: url, Status: resp.StatusCode}, fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return models.Result{}, fmt.Errorf("read body: %w", err)
	}

	page, err := extract.FromHTML(string(body), url, f.maxChars)
	if err != nil {
		return models.Result{}, err
	}
	return models.Result{
		URL:      url,
		Title:    page.Title,
		Text:     page.Text,
		Status:   resp.StatusCode,
		RenderMS: int(time.Since(t0) / time.Millisecond),
	}, nil
}
