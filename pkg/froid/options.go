package froid

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/trace"

	"github.com/jmylchreest/froid/internal/comments"
	"github.com/jmylchreest/froid/internal/fanout"
	"github.com/jmylchreest/froid/internal/search"
	"github.com/jmylchreest/froid/internal/site"
	"github.com/jmylchreest/froid/pkg/fetcher"
)

// Config holds all engine configuration.
type Config struct {
	Site  site.Config    `mapstructure:"site"`
	Fetch fetcher.Config `mapstructure:"fetch"`

	// CallTimeout is the ceiling on a single engine call. It must exceed the
	// worst case of one fetch including retries.
	CallTimeout time.Duration `mapstructure:"call_timeout" validate:"gt=0"`
	// Fanout bounds concurrent sub-fetches within one call.
	Fanout int `mapstructure:"fanout" validate:"gte=1,lte=16"`

	Legacy search.LegacyConfig `mapstructure:"legacy"`

	// Injected dependencies (for testing or custom implementations).
	// PageFetcher retrieves HTML pages, APIFetcher the JSON endpoints. When
	// nil they are built from Fetch.
	PageFetcher fetcher.Fetcher `mapstructure:"-" validate:"-"`
	APIFetcher  fetcher.Fetcher `mapstructure:"-" validate:"-"`
	Tracer      trace.Tracer    `mapstructure:"-" validate:"-"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Site:        site.DefaultConfig(),
		Fetch:       fetcher.DefaultConfig(),
		CallTimeout: 30 * time.Second,
		Fanout:      fanout.DefaultLimit,
		Legacy:      search.DefaultLegacyConfig(),
	}
}

var validate = validator.New()

// Validate checks field ranges and that retries exhaust within the call
// timeout. Unset fetch fields are filled as fetcher.New would fill them.
func (c Config) Validate() error {
	c.Fetch = c.Fetch.WithDefaults()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if budget := c.Fetch.Budget(); budget >= c.CallTimeout {
		return fmt.Errorf("invalid config: fetch budget %s (attempt timeout %s, %d retries, backoff %s) must be below call timeout %s",
			budget, c.Fetch.AttemptTimeout, c.Fetch.Retries, c.Fetch.Backoff, c.CallTimeout)
	}
	return nil
}

// Option configures the engine.
type Option func(*Config)

// WithBaseURL points the engine at another deployment of the site.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.Site.BaseURL = url
	}
}

// WithSelectors overrides the markup selectors.
func WithSelectors(s site.Selectors) Option {
	return func(c *Config) {
		c.Site.Selectors = s
	}
}

// WithFetchConfig replaces the fetch configuration.
func WithFetchConfig(fc fetcher.Config) Option {
	return func(c *Config) {
		c.Fetch = fc
	}
}

// WithTransport selects the page transport (http, colly, browser). JSON
// endpoints always use http.
func WithTransport(name string) Option {
	return func(c *Config) {
		c.Fetch.Transport = name
	}
}

// WithUserAgent sets the HTTP user agent.
func WithUserAgent(ua string) Option {
	return func(c *Config) {
		c.Fetch.UserAgent = ua
	}
}

// WithCallTimeout sets the per-call timeout ceiling.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.CallTimeout = d
	}
}

// WithFanout sets the number of concurrent sub-fetches per call.
func WithFanout(n int) Option {
	return func(c *Config) {
		c.Fanout = n
	}
}

// WithLegacyConfig sets the legacy search pagination limits.
func WithLegacyConfig(lc search.LegacyConfig) Option {
	return func(c *Config) {
		c.Legacy = lc
	}
}

// WithFetcher injects one fetcher for both pages and JSON endpoints.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(c *Config) {
		c.PageFetcher = f
		c.APIFetcher = f
	}
}

// WithFetchers injects separate page and JSON fetchers.
func WithFetchers(pages, api fetcher.Fetcher) Option {
	return func(c *Config) {
		c.PageFetcher = pages
		c.APIFetcher = api
	}
}

// WithTracer sets the OpenTelemetry tracer. The global tracer is used otherwise.
func WithTracer(t trace.Tracer) Option {
	return func(c *Config) {
		c.Tracer = t
	}
}

// SearchOption configures a single Search call.
type SearchOption func(*search.Options)

// WithPage selects a page of the structured search endpoint.
func WithPage(n int) SearchOption {
	return func(o *search.Options) {
		o.Page = n
	}
}

// WithPerPage sets the page size of the structured search endpoint.
func WithPerPage(n int) SearchOption {
	return func(o *search.Options) {
		o.PerPage = n
	}
}

// WithMaxResults caps the results collected by the legacy strategy.
func WithMaxResults(n int) SearchOption {
	return func(o *search.Options) {
		o.MaxResults = n
	}
}

// CommentOption configures a single FetchComments call.
type CommentOption func(*comments.Query)

// WithCommentsPerPage sets the number of comments per page.
func WithCommentsPerPage(n int) CommentOption {
	return func(q *comments.Query) {
		q.PerPage = n
	}
}

// WithCommentSearch filters comments by text.
func WithCommentSearch(s string) CommentOption {
	return func(q *comments.Query) {
		q.Search = s
	}
}

// WithOrder sets the sort direction (asc or desc).
func WithOrder(order string) CommentOption {
	return func(q *comments.Query) {
		q.Order = order
	}
}

// WithOrderBy sets the sort field (date, date_gmt or id).
func WithOrderBy(field string) CommentOption {
	return func(q *comments.Query) {
		q.OrderBy = field
	}
}
