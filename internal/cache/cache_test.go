package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/froid/pkg/froid"
	"github.com/jmylchreest/froid/pkg/model"
)

type fakeBackend struct {
	calls   atomic.Int32
	outcome froid.Outcome
	err     error
}

func (f *fakeBackend) Search(_ context.Context, query string, _ froid.Mode, _ ...froid.SearchOption) (froid.Result[[]model.SearchResult], error) {
	f.calls.Add(1)
	if f.err != nil {
		return froid.Result[[]model.SearchResult]{}, f.err
	}
	return froid.Result[[]model.SearchResult]{
		Value:   []model.SearchResult{{ID: "1", Title: query, URL: "https://www.farsroid.com/a/"}},
		Outcome: f.outcome,
	}, nil
}

func (f *fakeBackend) FetchPost(_ context.Context, id string) (froid.Result[model.PostDetail], error) {
	f.calls.Add(1)
	return froid.Result[model.PostDetail]{Value: model.PostDetail{ID: id, Title: "t"}, Outcome: f.outcome}, f.err
}

func (f *fakeBackend) FetchComments(_ context.Context, id string, _ int, _ ...froid.CommentOption) (froid.Result[[]model.Comment], error) {
	f.calls.Add(1)
	return froid.Result[[]model.Comment]{Value: []model.Comment{{ID: "9", BodyText: id}}, Outcome: f.outcome}, f.err
}

func (f *fakeBackend) FetchStats(_ context.Context, id string) (froid.Result[model.PostStatistics], error) {
	f.calls.Add(1)
	return froid.Result[model.PostStatistics]{Value: model.PostStatistics{PostID: id, Views: 3}, Outcome: f.outcome}, f.err
}

func openStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	s, err := Open(":memory:", ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// --- Decorator Tests ---

func TestEngine_HitAvoidsSecondCall(t *testing.T) {
	b := &fakeBackend{}
	e := Wrap(b, openStore(t, time.Hour))
	ctx := context.Background()

	first, err := e.Search(ctx, "telegram", froid.ModeFast)
	require.NoError(t, err)
	second, err := e.Search(ctx, "telegram", froid.ModeFast)
	require.NoError(t, err)

	assert.EqualValues(t, 1, b.calls.Load())
	assert.Equal(t, first, second)

	// different arguments are different entries
	_, err = e.Search(ctx, "telegram", froid.ModeLegacy)
	require.NoError(t, err)
	_, err = e.Search(ctx, "telegram", froid.ModeFast, froid.WithPage(2))
	require.NoError(t, err)
	assert.EqualValues(t, 3, b.calls.Load())
}

func TestEngine_ExpiredEntryRefetches(t *testing.T) {
	b := &fakeBackend{}
	s := openStore(t, time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }
	e := Wrap(b, s)
	ctx := context.Background()

	_, err := e.FetchPost(ctx, "12355")
	require.NoError(t, err)
	_, err = e.FetchPost(ctx, "12355")
	require.NoError(t, err)
	assert.EqualValues(t, 1, b.calls.Load())

	now = now.Add(2 * time.Minute)
	_, err = e.FetchPost(ctx, "12355")
	require.NoError(t, err)
	assert.EqualValues(t, 2, b.calls.Load())
}

func TestEngine_PartialAndFailedResultsAreNotCached(t *testing.T) {
	ctx := context.Background()

	b := &fakeBackend{outcome: froid.PartiallySucceeded}
	e := Wrap(b, openStore(t, time.Hour))
	for i := 0; i < 2; i++ {
		res, err := e.FetchComments(ctx, "12355", 1)
		require.NoError(t, err)
		assert.True(t, res.Partial())
	}
	assert.EqualValues(t, 2, b.calls.Load())

	failing := &fakeBackend{err: &froid.Error{Kind: froid.KindUpstream, Op: "search"}}
	e = Wrap(failing, openStore(t, time.Hour))
	for i := 0; i < 2; i++ {
		_, err := e.Search(ctx, "app", froid.ModeFast)
		assert.ErrorIs(t, err, froid.ErrUpstream)
	}
	assert.EqualValues(t, 2, failing.calls.Load())
}

func TestStore_InvalidatePost(t *testing.T) {
	b := &fakeBackend{}
	e := Wrap(b, openStore(t, time.Hour))
	ctx := context.Background()

	_, err := e.FetchPost(ctx, "5")
	require.NoError(t, err)
	_, err = e.FetchStats(ctx, "5")
	require.NoError(t, err)
	require.NoError(t, e.Store().Put(ctx, OpSearch, "5", map[string]int{"kept": 1}))
	require.NoError(t, e.Store().InvalidatePost(ctx, "5"))

	n, err := e.Store().Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = e.FetchPost(ctx, "5")
	require.NoError(t, err)
	_, err = e.FetchStats(ctx, "5")
	require.NoError(t, err)
	assert.EqualValues(t, 4, b.calls.Load())
}

// --- Store Tests ---

func TestStore_PutGetInvalidatePurge(t *testing.T) {
	s := openStore(t, time.Hour)
	ctx := context.Background()

	var got map[string]int
	hit, err := s.Get(ctx, "op", "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, s.Put(ctx, "op", "k", map[string]int{"a": 1}))
	require.NoError(t, s.Put(ctx, "op", "k", map[string]int{"a": 2}))
	require.NoError(t, s.Put(ctx, "op", "other", map[string]int{"b": 1}))

	hit, err = s.Get(ctx, "op", "k", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, map[string]int{"a": 2}, got)

	require.NoError(t, s.Invalidate(ctx, "op", "k"))
	hit, err = s.Get(ctx, "op", "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	n, err := s.Purge(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	count, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "app|fast|page=0|per_page=0|max=0", SearchKey(" app ", froid.ModeFast))
	assert.Equal(t, "app|legacy|page=0|per_page=0|max=15", SearchKey("app", froid.ModeLegacy, froid.WithMaxResults(15)))
	assert.Equal(t, "7|page=2|per_page=10|search=|order=asc|orderby=", CommentsKey("7", 2, froid.WithOrder("asc")))
}
