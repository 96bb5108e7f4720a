// Package fetcher performs network retrieval of remote resources (JSON
// endpoints and HTML pages) with a per-attempt timeout, a bounded retry
// policy, a politeness rate limit and a redirect limit. It has no knowledge
// of the content it fetches.
package fetcher

import (
	"context"
	"net/http"
	"time"
)

// Fetcher retrieves a remote resource. Implementations return a *Error for
// every failure, including non-2xx responses.
type Fetcher interface {
	// Fetch retrieves the resource at url.
	Fetch(ctx context.Context, url string, opts Options) (Body, error)

	// Close releases any resources (browser instances, etc.).
	Close() error

	// Type returns a string identifying the transport (e.g., "http", "browser").
	Type() string
}

// Transport performs a single attempt against a URL. A response with any
// status code is returned as a Body with a nil error; only failures to get a
// response at all are errors.
type Transport interface {
	RoundTrip(ctx context.Context, url string, opts Options) (Body, error)
	Close() error
	Name() string
}

// Options controls a single fetch.
type Options struct {
	Method  string
	Headers map[string]string
	// Timeout overrides the configured per-attempt timeout when non-zero.
	Timeout time.Duration
}

func (o Options) method() string {
	if o.Method == "" {
		return http.MethodGet
	}
	return o.Method
}

// Body is a fetched response.
type Body struct {
	// URL is the final URL after redirects.
	URL         string
	StatusCode  int
	ContentType string
	Data        []byte
	FetchedAt   time.Time
	// Attempts is the number of attempts it took, including the successful one.
	Attempts int
}

// OK reports whether the status code is 2xx.
func (b Body) OK() bool {
	return b.StatusCode >= 200 && b.StatusCode < 300
}

// Config holds fetcher configuration.
type Config struct {
	Transport        string        `mapstructure:"transport" validate:"omitempty,oneof=http colly browser"`
	UserAgent        string        `mapstructure:"user_agent"`
	AttemptTimeout   time.Duration `mapstructure:"attempt_timeout" validate:"gt=0"`
	Retries          int           `mapstructure:"retries" validate:"gte=0,lte=5"`
	Backoff          time.Duration `mapstructure:"backoff" validate:"gte=0"`
	MaxRedirects     int           `mapstructure:"max_redirects" validate:"gte=0,lte=20"`
	Rate             float64       `mapstructure:"rate" validate:"gte=0"`
	Burst            int           `mapstructure:"burst" validate:"gte=0"`
	CloudflareBypass bool          `mapstructure:"cloudflare_bypass"`
}

// Browser user agent; the site serves reduced markup to unknown clients.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:94.0) Gecko/20100101 Firefox/94.0"

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Transport:      "http",
		UserAgent:      defaultUserAgent,
		AttemptTimeout: 5 * time.Second,
		Retries:        2,
		Backoff:        500 * time.Millisecond,
		MaxRedirects:   5,
		Rate:           4,
		Burst:          4,
	}
}

// Budget returns the worst-case wall time a single Fetch can take with this
// configuration: every attempt timing out plus linear backoff between them.
func (c Config) Budget() time.Duration {
	attempts := time.Duration(c.Retries + 1)
	backoffSteps := time.Duration(c.Retries * (c.Retries + 1) / 2)
	return attempts*c.AttemptTimeout + backoffSteps*c.Backoff
}

// WithDefaults fills the transport, user agent and attempt timeout when they
// are unset. Zero retries, backoff, rate and redirects are meaningful and
// kept.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Transport == "" {
		c.Transport = d.Transport
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.AttemptTimeout == 0 {
		c.AttemptTimeout = d.AttemptTimeout
	}
	return c
}
