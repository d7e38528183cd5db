package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"
)

const maxPageBytes = 10 << 20

// Renderer returns the HTML of a page.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// HTTPRenderer fetches raw HTML with a plain client. Pages that build their
// content in the browser come back mostly empty.
type HTTPRenderer struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

func NewHTTPRenderer(timeout time.Duration, rateLimit float64, userAgent string) *HTTPRenderer {
	return &HTTPRenderer{
		client: &http.Client{
			Timeout: timeout,
		},
		limiter:   rate.NewLimiter(rate.Limit(rateLimit), 1),
		userAgent: userAgent,
	}
}

func (r *HTTPRenderer) Render(ctx context.Context, url string) (string, error) {
	// Apply rate limiting
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// HeadlessRenderer loads the page in headless Chrome and returns the DOM
// once the body is ready.
type HeadlessRenderer struct {
	timeout   time.Duration
	userAgent string
}

func NewHeadlessRenderer(timeout time.Duration, userAgent string) *HeadlessRenderer {
	return &HeadlessRenderer{timeout: timeout, userAgent: userAgent}
}

func (r *HeadlessRenderer) Render(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", true))
	if r.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(r.userAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, r.timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %v", url, err)
	}

	return html, nil
}
