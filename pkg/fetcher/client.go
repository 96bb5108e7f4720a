package fetcher

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/jmylchreest/froid/internal/logger"
)

// Client implements Fetcher on top of a single-attempt Transport, adding the
// retry policy, per-attempt timeout and rate limit.
type Client struct {
	transport Transport
	config    Config
	limiter   *rate.Limiter
	sleep     func(ctx context.Context, d time.Duration) error
}

// New creates a Client using the transport named in cfg.Transport and a
// private rate limiter.
func New(cfg Config) (*Client, error) {
	cfg = cfg.WithDefaults()
	t, err := NewTransport(cfg)
	if err != nil {
		return nil, err
	}
	return NewClient(t, cfg, NewLimiter(cfg)), nil
}

// NewTransport creates the transport named in cfg.Transport.
func NewTransport(cfg Config) (Transport, error) {
	cfg = cfg.WithDefaults()
	switch cfg.Transport {
	case "http":
		return NewHTTPTransport(cfg), nil
	case "colly":
		return NewCollyTransport(cfg), nil
	case "browser":
		bt, err := NewBrowserTransport(cfg)
		if err != nil {
			return nil, err
		}
		return bt, nil
	default:
		return nil, fmt.Errorf("unknown transport: %s (use http, colly or browser)", cfg.Transport)
	}
}

// NewClient wraps an existing transport. limiter may be shared between
// clients; nil means unlimited.
func NewClient(t Transport, cfg Config, limiter *rate.Limiter) *Client {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	return &Client{
		transport: t,
		config:    cfg.WithDefaults(),
		limiter:   limiter,
		sleep:     sleepContext,
	}
}

// NewLimiter builds the politeness limiter described by cfg. A zero rate
// disables limiting.
func NewLimiter(cfg Config) *rate.Limiter {
	if cfg.Rate <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.Rate), burst)
}

// Fetch retrieves url, retrying transient failures up to config.Retries
// times with linear backoff. 4xx responses are returned on the first attempt.
func (c *Client) Fetch(ctx context.Context, url string, opts Options) (Body, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = c.config.AttemptTimeout
	}

	var last *Error
	for attempt := 1; attempt <= c.config.Retries+1; attempt++ {
		if attempt > 1 {
			wait := time.Duration(attempt-1) * c.config.Backoff
			logger.DebugContext(ctx, "fetch retry backoff", "url", url, "attempt", attempt, "wait", wait)
			if err := c.sleep(ctx, wait); err != nil {
				last = classify(ctx, url, err)
				last.Attempts = attempt - 1
				return Body{}, last
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			last = classify(ctx, url, err)
			if last.Kind == KindNetwork {
				// the limiter refuses waits that would overrun the deadline
				last.Kind = KindTimeout
			}
			last.Attempts = attempt - 1
			return Body{}, last
		}

		body, err := c.attempt(ctx, url, opts, timeout)
		if err == nil {
			body.Attempts = attempt
			return body, nil
		}

		last = err
		last.Attempts = attempt
		if !last.Transient() || final(ctx) {
			break
		}
		logger.DebugContext(ctx, "fetch attempt failed", "url", url, "attempt", attempt, "kind", last.Kind.String(), "status", last.StatusCode)
	}

	return Body{}, last
}

func (c *Client) attempt(ctx context.Context, url string, opts Options, timeout time.Duration) (Body, *Error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	body, err := c.transport.RoundTrip(attemptCtx, url, opts)
	if err != nil {
		logger.DebugContext(ctx, "fetch transport error", "url", url, "error", err, "duration", time.Since(start))
		return Body{}, classify(ctx, url, err)
	}
	logger.DebugContext(ctx, "fetch response",
		"url", url,
		"status", body.StatusCode,
		"size", len(body.Data),
		"duration", time.Since(start))

	if body.FetchedAt.IsZero() {
		body.FetchedAt = time.Now()
	}
	if body.URL == "" {
		body.URL = url
	}
	if !body.OK() {
		return Body{}, &Error{
			Kind:       KindHTTPStatus,
			URL:        url,
			StatusCode: body.StatusCode,
			Body:       body.Data,
		}
	}
	return body, nil
}

// Close releases the transport.
func (c *Client) Close() error {
	return c.transport.Close()
}

// Type returns the transport name.
func (c *Client) Type() string {
	return c.transport.Name()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
