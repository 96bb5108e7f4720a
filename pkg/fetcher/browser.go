package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/froid/internal/logger"
)

// BrowserTransport renders pages in headless Chrome via chromedp. It only
// supports GET and is meant for HTML pages behind script challenges.
type BrowserTransport struct {
	config    Config
	allocCtx  context.Context
	cancelCtx context.CancelFunc
}

// NewBrowserTransport creates a browser allocator. Chrome is started lazily
// on the first fetch.
func NewBrowserTransport(cfg Config) (*BrowserTransport, error) {
	cfg = cfg.WithDefaults()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	logger.Debug("browser allocator created", "user_agent", cfg.UserAgent)

	return &BrowserTransport{
		config:    cfg,
		allocCtx:  allocCtx,
		cancelCtx: cancel,
	}, nil
}

// RoundTrip navigates to url in a new tab and returns the rendered HTML.
func (t *BrowserTransport) RoundTrip(ctx context.Context, url string, opts Options) (Body, error) {
	if opts.method() != http.MethodGet {
		return Body{}, fmt.Errorf("browser transport does not support %s", opts.method())
	}

	browserCtx, cancelBrowser := chromedp.NewContext(t.allocCtx)
	defer cancelBrowser()

	// Tie the tab's lifetime to the attempt's context.
	stop := context.AfterFunc(ctx, cancelBrowser)
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		var cancelTimeout context.CancelFunc
		browserCtx, cancelTimeout = context.WithDeadline(browserCtx, deadline)
		defer cancelTimeout()
	}

	resp, err := chromedp.RunResponse(browserCtx, chromedp.Navigate(url))
	if err != nil {
		if ctx.Err() != nil {
			return Body{}, ctx.Err()
		}
		return Body{}, fmt.Errorf("browser navigation failed: %w", err)
	}

	var html string
	if err := chromedp.Run(browserCtx, chromedp.OuterHTML("html", &html)); err != nil {
		if ctx.Err() != nil {
			return Body{}, ctx.Err()
		}
		return Body{}, fmt.Errorf("browser automation failed: %w", err)
	}

	body := Body{
		URL:         url,
		StatusCode:  http.StatusOK,
		ContentType: "text/html",
		Data:        []byte(html),
		FetchedAt:   time.Now(),
	}
	if resp != nil {
		body.StatusCode = int(resp.Status)
		body.URL = resp.URL
		if resp.MimeType != "" {
			body.ContentType = resp.MimeType
		}
	}
	return body, nil
}

// Close shuts down the browser.
func (t *BrowserTransport) Close() error {
	if t.cancelCtx != nil {
		t.cancelCtx()
	}
	return nil
}

// Name returns the transport name.
func (t *BrowserTransport) Name() string {
	return "browser"
}
