// Package froid provides the content-acquisition engine: one entry point for
// searching the site, fetching post pages, comments and statistics, with a
// single error taxonomy and explicit partial results.
package froid

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jmylchreest/froid/internal/comments"
	"github.com/jmylchreest/froid/internal/post"
	"github.com/jmylchreest/froid/internal/search"
	"github.com/jmylchreest/froid/internal/site"
	"github.com/jmylchreest/froid/pkg/fetcher"
	"github.com/jmylchreest/froid/pkg/model"
)

const instrumentationName = "github.com/jmylchreest/froid"

// Mode selects a search strategy.
type Mode int

const (
	// ModeFast uses the structured search endpoint.
	ModeFast Mode = iota
	// ModeLegacy scrapes the HTML result pages for richer fields.
	ModeLegacy
)

func (m Mode) String() string {
	switch m {
	case ModeFast:
		return "fast"
	case ModeLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses "fast" or "legacy".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fast", "json":
		return ModeFast, nil
	case "legacy", "html":
		return ModeLegacy, nil
	}
	return 0, inputError("search", "unknown mode %q (use fast or legacy)", s)
}

// Outcome is the terminal state of a call that returned a value.
type Outcome int

const (
	Succeeded Outcome = iota
	PartiallySucceeded
)

func (o Outcome) String() string {
	if o == PartiallySucceeded {
		return "partially_succeeded"
	}
	return "succeeded"
}

// Result is a successful call's value with what, if anything, was lost
// producing it.
type Result[T any] struct {
	Value       T
	Outcome     Outcome
	Diagnostics model.Diagnostics
}

// Partial reports whether the result is degraded.
func (r Result[T]) Partial() bool {
	return r.Outcome == PartiallySucceeded
}

// Engine is the main entry point. It holds no per-call state; one Engine
// serves concurrent calls.
type Engine struct {
	config   Config
	site     *site.Site
	pages    fetcher.Fetcher
	api      fetcher.Fetcher
	owned    []fetcher.Fetcher
	tracer   trace.Tracer
	json     *search.JSON
	legacy   *search.Legacy
	posts    *post.Parser
	comments *comments.Parser
}

// New creates an engine.
func New(opts ...Option) (*Engine, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.Fetch = cfg.Fetch.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s, err := site.New(cfg.Site)
	if err != nil {
		return nil, err
	}

	e := &Engine{config: cfg, site: s, tracer: cfg.Tracer}
	if e.tracer == nil {
		e.tracer = otel.Tracer(instrumentationName)
	}

	pages, api := cfg.PageFetcher, cfg.APIFetcher
	if pages == nil || api == nil {
		// both clients share the politeness limiter
		limiter := fetcher.NewLimiter(cfg.Fetch)
		if api == nil {
			api = fetcher.NewClient(fetcher.NewHTTPTransport(cfg.Fetch), cfg.Fetch, limiter)
			e.owned = append(e.owned, api)
		}
		if pages == nil {
			t, err := fetcher.NewTransport(cfg.Fetch)
			if err != nil {
				e.Close()
				return nil, err
			}
			pages = fetcher.NewClient(t, cfg.Fetch, limiter)
			e.owned = append(e.owned, pages)
		}
	}

	e.pages = &tracedFetcher{next: pages, tracer: e.tracer}
	e.api = &tracedFetcher{next: api, tracer: e.tracer}
	e.json = search.NewJSON(e.api, s)
	e.legacy = search.NewLegacy(e.pages, s, cfg.Legacy, cfg.Fanout)
	e.posts = post.NewParser(e.pages, e.api, s, cfg.Fanout)
	e.comments = comments.NewParser(e.api, s)
	return e, nil
}

// Close releases fetchers the engine created. Injected fetchers are left
// to their owner.
func (e *Engine) Close() error {
	var errs []error
	for _, f := range e.owned {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Search runs query through the strategy mode selects. There is no
// fallback between strategies.
func (e *Engine) Search(ctx context.Context, query string, mode Mode, opts ...SearchOption) (Result[[]model.SearchResult], error) {
	const op = "search"
	var so search.Options
	for _, opt := range opts {
		opt(&so)
	}

	ctx, cancel, c := e.begin(ctx, op,
		attribute.String("froid.query", query),
		attribute.String("froid.mode", mode.String()))
	defer cancel()

	var strategy search.Strategy
	switch mode {
	case ModeFast:
		strategy = e.json
	case ModeLegacy:
		strategy = e.legacy
	default:
		return Result[[]model.SearchResult]{}, c.fail(ctx, inputError(op, "unknown mode %s", mode))
	}
	if strings.TrimSpace(query) == "" {
		return Result[[]model.SearchResult]{}, c.fail(ctx, inputError(op, "query must not be empty"))
	}
	if so.Page < 0 || so.PerPage < 0 || so.PerPage > 100 || so.MaxResults < 0 {
		return Result[[]model.SearchResult]{}, c.fail(ctx, inputError(op, "page, per_page (max 100) and max_results must not be negative"))
	}

	c.enter(ctx, PhaseFetching)
	res, err := strategy.Search(ctx, query, so)
	if err != nil {
		return Result[[]model.SearchResult]{}, c.fail(ctx, normalize(op, err))
	}

	return Result[[]model.SearchResult]{
		Value:       res.Items,
		Outcome:     c.succeed(ctx, res.Diagnostics, false),
		Diagnostics: res.Diagnostics,
	}, nil
}

// FetchPost fetches and parses one post page.
func (e *Engine) FetchPost(ctx context.Context, id string) (Result[model.PostDetail], error) {
	const op = "fetch_post"
	ctx, cancel, c := e.begin(ctx, op, attribute.String("froid.post_id", id))
	defer cancel()

	if !site.ValidID(id) {
		return Result[model.PostDetail]{}, c.fail(ctx, inputError(op, "invalid post id %q", id))
	}

	c.enter(ctx, PhaseFetching)
	detail, diag, err := e.posts.FetchPost(ctx, id)
	partial := false
	if err != nil {
		var pe *post.Error
		if !errors.As(err, &pe) || pe.Kind != post.KindPartialExtraction {
			return Result[model.PostDetail]{}, c.fail(ctx, normalize(op, err))
		}
		partial = true
		diag.Note(pe.Error())
	}

	return Result[model.PostDetail]{
		Value:       detail,
		Outcome:     c.succeed(ctx, diag, partial),
		Diagnostics: diag,
	}, nil
}

// FetchComments fetches one page of a post's approved comments. A page past
// the last one yields an empty result.
func (e *Engine) FetchComments(ctx context.Context, id string, page int, opts ...CommentOption) (Result[[]model.Comment], error) {
	const op = "fetch_comments"
	q := comments.DefaultQuery()
	q.Page = page
	for _, opt := range opts {
		opt(&q)
	}

	ctx, cancel, c := e.begin(ctx, op,
		attribute.String("froid.post_id", id),
		attribute.Int("froid.page", page))
	defer cancel()

	if !site.ValidID(id) {
		return Result[[]model.Comment]{}, c.fail(ctx, inputError(op, "invalid post id %q", id))
	}
	if err := q.Validate(); err != nil {
		ie := inputError(op, "invalid comment query")
		ie.Err = err
		return Result[[]model.Comment]{}, c.fail(ctx, ie)
	}

	c.enter(ctx, PhaseFetching)
	res, err := e.comments.FetchComments(ctx, id, q)
	if err != nil {
		return Result[[]model.Comment]{}, c.fail(ctx, normalize(op, err))
	}

	return Result[[]model.Comment]{
		Value:       res.Items,
		Outcome:     c.succeed(ctx, res.Diagnostics, false),
		Diagnostics: res.Diagnostics,
	}, nil
}

// FetchStats fetches a post's counters from the statistics endpoint.
func (e *Engine) FetchStats(ctx context.Context, id string) (Result[model.PostStatistics], error) {
	const op = "fetch_stats"
	ctx, cancel, c := e.begin(ctx, op, attribute.String("froid.post_id", id))
	defer cancel()

	if !site.ValidID(id) {
		return Result[model.PostStatistics]{}, c.fail(ctx, inputError(op, "invalid post id %q", id))
	}

	c.enter(ctx, PhaseFetching)
	stats, err := e.posts.FetchStats(ctx, id)
	if err != nil {
		return Result[model.PostStatistics]{}, c.fail(ctx, normalize(op, err))
	}

	return Result[model.PostStatistics]{
		Value:   stats,
		Outcome: c.succeed(ctx, model.Diagnostics{}, false),
	}, nil
}
