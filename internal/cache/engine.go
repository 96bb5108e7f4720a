package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmylchreest/froid/internal/comments"
	"github.com/jmylchreest/froid/internal/logger"
	"github.com/jmylchreest/froid/internal/search"
	"github.com/jmylchreest/froid/pkg/froid"
	"github.com/jmylchreest/froid/pkg/model"
)

// Backend is the engine call contract the cache decorates. *froid.Engine
// implements it.
type Backend interface {
	Search(ctx context.Context, query string, mode froid.Mode, opts ...froid.SearchOption) (froid.Result[[]model.SearchResult], error)
	FetchPost(ctx context.Context, id string) (froid.Result[model.PostDetail], error)
	FetchComments(ctx context.Context, id string, page int, opts ...froid.CommentOption) (froid.Result[[]model.Comment], error)
	FetchStats(ctx context.Context, id string) (froid.Result[model.PostStatistics], error)
}

// Operation names used as the first part of every cache key.
const (
	OpSearch   = "search"
	OpPost     = "fetch_post"
	OpComments = "fetch_comments"
	OpStats    = "fetch_stats"
)

// Engine serves calls from the store when a live entry exists and
// otherwise forwards them to the backend. Only complete successes are
// stored: errors and partial results always go back to the site next time.
type Engine struct {
	next  Backend
	store *Store
}

var _ Backend = (*Engine)(nil)

// Wrap decorates next with store.
func Wrap(next Backend, store *Store) *Engine {
	return &Engine{next: next, store: store}
}

// Store returns the underlying store.
func (e *Engine) Store() *Store {
	return e.store
}

func through[T any](ctx context.Context, s *Store, op, key string, call func() (froid.Result[T], error)) (froid.Result[T], error) {
	var cached froid.Result[T]
	hit, err := s.Get(ctx, op, key, &cached)
	if err != nil {
		logger.WarnContext(ctx, "cache read failed", "op", op, "error", err)
	}
	if hit {
		logger.DebugContext(ctx, "cache hit", "op", op, "key", key)
		return cached, nil
	}

	res, err := call()
	if err != nil || res.Outcome != froid.Succeeded {
		return res, err
	}
	if err := s.Put(ctx, op, key, res); err != nil {
		logger.WarnContext(ctx, "cache write failed", "op", op, "error", err)
	}
	return res, nil
}

// SearchKey is the cache key of a Search call.
func SearchKey(query string, mode froid.Mode, opts ...froid.SearchOption) string {
	var so search.Options
	for _, opt := range opts {
		opt(&so)
	}
	return fmt.Sprintf("%s|%s|page=%d|per_page=%d|max=%d",
		strings.TrimSpace(query), mode, so.Page, so.PerPage, so.MaxResults)
}

// CommentsKey is the cache key of a FetchComments call.
func CommentsKey(id string, page int, opts ...froid.CommentOption) string {
	q := comments.DefaultQuery()
	q.Page = page
	for _, opt := range opts {
		opt(&q)
	}
	return fmt.Sprintf("%s|page=%d|per_page=%d|search=%s|order=%s|orderby=%s",
		id, q.Page, q.PerPage, q.Search, q.Order, q.OrderBy)
}

func (e *Engine) Search(ctx context.Context, query string, mode froid.Mode, opts ...froid.SearchOption) (froid.Result[[]model.SearchResult], error) {
	return through(ctx, e.store, OpSearch, SearchKey(query, mode, opts...), func() (froid.Result[[]model.SearchResult], error) {
		return e.next.Search(ctx, query, mode, opts...)
	})
}

func (e *Engine) FetchPost(ctx context.Context, id string) (froid.Result[model.PostDetail], error) {
	return through(ctx, e.store, OpPost, id, func() (froid.Result[model.PostDetail], error) {
		return e.next.FetchPost(ctx, id)
	})
}

func (e *Engine) FetchComments(ctx context.Context, id string, page int, opts ...froid.CommentOption) (froid.Result[[]model.Comment], error) {
	return through(ctx, e.store, OpComments, CommentsKey(id, page, opts...), func() (froid.Result[[]model.Comment], error) {
		return e.next.FetchComments(ctx, id, page, opts...)
	})
}

func (e *Engine) FetchStats(ctx context.Context, id string) (froid.Result[model.PostStatistics], error) {
	return through(ctx, e.store, OpStats, id, func() (froid.Result[model.PostStatistics], error) {
		return e.next.FetchStats(ctx, id)
	})
}
