package froid

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jmylchreest/froid/internal/logger"
	"github.com/jmylchreest/froid/pkg/fetcher"
	"github.com/jmylchreest/froid/pkg/model"
)

// Phase is a step of the per-call state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFetching
	PhaseParsing
	PhaseSucceeded
	PhasePartiallySucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFetching:
		return "fetching"
	case PhaseParsing:
		return "parsing"
	case PhaseSucceeded:
		return "succeeded"
	case PhasePartiallySucceeded:
		return "partially_succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// call tracks one engine operation: its span, its phase and its timing.
type call struct {
	op    string
	span  trace.Span
	start time.Time

	mu    sync.Mutex
	phase Phase
}

type callKey struct{}

func (e *Engine) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, context.CancelFunc, *call) {
	ctx, span := e.tracer.Start(ctx, "froid."+op, trace.WithAttributes(attrs...))
	c := &call{op: op, span: span, start: time.Now()}
	ctx = context.WithValue(ctx, callKey{}, c)
	ctx, cancel := context.WithTimeout(ctx, e.config.CallTimeout)
	return ctx, cancel, c
}

func callFrom(ctx context.Context) *call {
	c, _ := ctx.Value(callKey{}).(*call)
	return c
}

// enter moves the call forward. Phases never move backwards.
func (c *call) enter(ctx context.Context, p Phase) {
	c.mu.Lock()
	if p <= c.phase {
		c.mu.Unlock()
		return
	}
	from := c.phase
	c.phase = p
	c.mu.Unlock()

	c.span.AddEvent(p.String())
	logger.DebugContext(ctx, "engine phase", "op", c.op, "from", from.String(), "to", p.String())
}

func (c *call) fail(ctx context.Context, err *Error) *Error {
	c.enter(ctx, PhaseFailed)
	c.span.SetAttributes(attribute.String("froid.error_kind", err.Kind.String()))
	c.span.SetStatus(codes.Error, err.Error())
	c.span.End()
	logger.DebugContext(ctx, "engine call failed", "op", c.op, "kind", err.Kind.String(), "error", err, "duration", time.Since(c.start))
	return err
}

func (c *call) succeed(ctx context.Context, diag model.Diagnostics, partial bool) Outcome {
	outcome := Succeeded
	if partial || diag.Degraded() {
		outcome = PartiallySucceeded
	}
	if outcome == PartiallySucceeded {
		c.enter(ctx, PhasePartiallySucceeded)
		c.span.SetAttributes(
			attribute.Int("froid.dropped", diag.Dropped),
			attribute.IntSlice("froid.failed_pages", diag.FailedPages),
			attribute.StringSlice("froid.missing", diag.Missing),
		)
		logger.WarnContext(ctx, "partial result", "op", c.op, "dropped", diag.Dropped, "failed_pages", diag.FailedPages, "missing", diag.Missing)
	} else {
		c.enter(ctx, PhaseSucceeded)
	}
	c.span.SetAttributes(attribute.String("froid.outcome", outcome.String()))
	c.span.SetStatus(codes.Ok, "")
	c.span.End()
	logger.DebugContext(ctx, "engine call done", "op", c.op, "outcome", outcome.String(), "duration", time.Since(c.start))
	return outcome
}

// tracedFetcher wraps a fetcher with a span per fetch and moves the
// surrounding call to the parsing phase once content has arrived.
type tracedFetcher struct {
	next   fetcher.Fetcher
	tracer trace.Tracer
}

func (t *tracedFetcher) Fetch(ctx context.Context, url string, opts fetcher.Options) (fetcher.Body, error) {
	ctx, span := t.tracer.Start(ctx, "froid.fetch", trace.WithAttributes(
		attribute.String("url.full", url),
		attribute.String("froid.transport", t.next.Type()),
	))
	defer span.End()

	body, err := t.next.Fetch(ctx, url, opts)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return body, err
	}
	span.SetAttributes(
		attribute.Int("http.response.status_code", body.StatusCode),
		attribute.Int("froid.attempts", body.Attempts),
		attribute.Int("froid.size", len(body.Data)),
	)
	if c := callFrom(ctx); c != nil {
		c.enter(ctx, PhaseParsing)
	}
	return body, nil
}

func (t *tracedFetcher) Close() error {
	return t.next.Close()
}

func (t *tracedFetcher) Type() string {
	return t.next.Type()
}
