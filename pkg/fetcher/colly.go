package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/froid/internal/logger"
)

// CollyTransport uses Colly for static fetching.
type CollyTransport struct {
	config Config
}

// NewCollyTransport creates a colly-backed transport.
func NewCollyTransport(cfg Config) *CollyTransport {
	return &CollyTransport{config: cfg.WithDefaults()}
}

// RoundTrip performs a single request with a fresh collector.
func (t *CollyTransport) RoundTrip(ctx context.Context, targetURL string, opts Options) (Body, error) {
	logger.DebugContext(ctx, "colly fetch starting", "url", targetURL)

	// Create a new collector for each request
	c := colly.NewCollector(
		colly.UserAgent(t.config.UserAgent),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	// Deliver every status to OnResponse; status handling belongs to Client.
	c.ParseHTTPErrorResponse = true

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = t.config.AttemptTimeout
	}
	c.SetRequestTimeout(timeout)

	max := t.config.MaxRedirects
	c.SetRedirectHandler(func(req *http.Request, via []*http.Request) error {
		if len(via) > max {
			return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, max)
		}
		return nil
	})

	result := Body{URL: targetURL}
	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		result.ContentType = r.Headers.Get("Content-Type")
		result.Data = r.Body
		result.FetchedAt = time.Now()
		if r.Request != nil && r.Request.URL != nil {
			result.URL = r.Request.URL.String()
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	hdr := http.Header{}
	for k, v := range opts.Headers {
		hdr.Set(k, v)
	}

	if err := c.Request(opts.method(), targetURL, nil, nil, hdr); err != nil {
		return result, err
	}
	if fetchErr != nil {
		return result, fetchErr
	}
	return result, nil
}

// Close releases resources.
func (t *CollyTransport) Close() error {
	return nil
}

// Name returns the transport name.
func (t *CollyTransport) Name() string {
	return "colly"
}
