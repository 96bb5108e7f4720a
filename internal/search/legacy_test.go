package search

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/froid/pkg/fetcher"
	"github.com/jmylchreest/froid/pkg/model"
)

var pagePattern = regexp.MustCompile(`/page/(\d+)/`)

// pageOf returns the result page number a search page URL addresses.
func pageOf(url string) int {
	if m := pagePattern.FindStringSubmatch(url); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 1
}

func ids(items []model.SearchResult) []string {
	out := make([]string, len(items))
	for i, r := range items {
		out[i] = r.ID
	}
	return out
}

func TestLegacy_ParsesRichFields(t *testing.T) {
	f := &fakeFetcher{handler: func(context.Context, string) (fetcher.Body, error) {
		return respond(resultsPage(7))
	}}
	s := NewLegacy(f, testSite(t), LegacyConfig{MaxResults: 10, PageSize: 10, MaxPages: 1}, 4)

	res, err := s.Search(context.Background(), "app", Options{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	r := res.Items[0]
	assert.Equal(t, "7", r.ID)
	assert.Equal(t, "App & 7", r.Title)
	assert.Equal(t, "https://www.farsroid.com/app-7/", r.URL)
	require.NotNil(t, r.ThumbnailURL)
	assert.Equal(t, "https://www.farsroid.com/wp-content/uploads/app-7.jpg", *r.ThumbnailURL)
	require.NotNil(t, r.ShortDescription)
	assert.Equal(t, "Short text 7", *r.ShortDescription)
	assert.Equal(t, []string{"https://www.farsroid.com/?s=app"}, f.calls)
}

func TestLegacy_TenPagesStayWithinFanoutBound(t *testing.T) {
	f := &fakeFetcher{handler: func(ctx context.Context, url string) (fetcher.Body, error) {
		time.Sleep(10 * time.Millisecond)
		return respond(resultsPage(pageIDs(pageOf(url), 10)...))
	}}
	s := NewLegacy(f, testSite(t), LegacyConfig{MaxResults: 100, PageSize: 10, MaxPages: 10}, 4)

	res, err := s.Search(context.Background(), "app", Options{})
	require.NoError(t, err)

	assert.Len(t, res.Items, 100)
	assert.Equal(t, 10, f.callCount())
	assert.LessOrEqual(t, f.peak.Load(), int32(4))
	assert.Equal(t, "1", res.Items[0].ID)
	assert.Equal(t, "100", res.Items[99].ID)
	assert.False(t, res.Diagnostics.Degraded())
}

func TestLegacy_EmptyPageStopsPagination(t *testing.T) {
	f := &fakeFetcher{handler: func(ctx context.Context, url string) (fetcher.Body, error) {
		n := pageOf(url)
		if n >= 3 {
			return respond(resultsPage())
		}
		return respond(resultsPage(pageIDs(n, 10)...))
	}}
	s := NewLegacy(f, testSite(t), LegacyConfig{MaxResults: 100, PageSize: 10, MaxPages: 10}, 1)

	res, err := s.Search(context.Background(), "app", Options{})
	require.NoError(t, err)

	assert.Len(t, res.Items, 20)
	// fan-out of one dispatches strictly in order, so page 4 is never requested
	assert.Equal(t, 3, f.callCount())
}

func TestLegacy_NotFoundPageStopsPagination(t *testing.T) {
	f := &fakeFetcher{handler: func(ctx context.Context, url string) (fetcher.Body, error) {
		n := pageOf(url)
		if n == 2 {
			return status(http.StatusNotFound, "")
		}
		if n > 2 {
			t.Errorf("page %d requested after 404", n)
		}
		return respond(resultsPage(pageIDs(n, 10)...))
	}}
	s := NewLegacy(f, testSite(t), LegacyConfig{MaxResults: 50, PageSize: 10, MaxPages: 5}, 1)

	res, err := s.Search(context.Background(), "app", Options{})
	require.NoError(t, err)
	assert.Len(t, res.Items, 10)
	assert.False(t, res.Diagnostics.Degraded())
}

func TestLegacy_DedupAcrossPages(t *testing.T) {
	f := &fakeFetcher{handler: func(ctx context.Context, url string) (fetcher.Body, error) {
		switch pageOf(url) {
		case 1:
			return respond(resultsPage(1, 2, 3))
		case 2:
			return respond(resultsPage(3, 4, 1))
		default:
			return respond(resultsPage())
		}
	}}
	s := NewLegacy(f, testSite(t), LegacyConfig{MaxResults: 9, PageSize: 3, MaxPages: 3}, 2)

	res, err := s.Search(context.Background(), "app", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(res.Items))
}

func TestLegacy_TruncatesToMaxResults(t *testing.T) {
	f := &fakeFetcher{handler: func(ctx context.Context, url string) (fetcher.Body, error) {
		return respond(resultsPage(pageIDs(pageOf(url), 10)...))
	}}
	s := NewLegacy(f, testSite(t), LegacyConfig{MaxResults: 100, PageSize: 10, MaxPages: 10}, 4)

	res, err := s.Search(context.Background(), "app", Options{MaxResults: 15})
	require.NoError(t, err)
	assert.Len(t, res.Items, 15)
	assert.Equal(t, 2, f.callCount())
	assert.Equal(t, "15", res.Items[14].ID)
}

func TestLegacy_MissingContainerOnFirstPage(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		wantErr bool
	}{
		{"layout changed", `<html><body><div class="new-layout"></div></body></html>`, true},
		{"no results marker", `<html><body><div class="no-results">چیزی یافت نشد</div></body></html>`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{handler: func(context.Context, string) (fetcher.Body, error) {
				return respond(tt.html)
			}}
			res, err := NewLegacy(f, testSite(t), DefaultLegacyConfig(), 4).Search(context.Background(), "app", Options{})
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Empty(t, res.Items)
				return
			}
			var se *Error
			require.ErrorAs(t, err, &se)
			assert.Equal(t, KindUnexpectedSchema, se.Kind)
			assert.Equal(t, 1, se.Page)
		})
	}
}

func TestLegacy_LaterPageFailureIsPartial(t *testing.T) {
	f := &fakeFetcher{handler: func(ctx context.Context, url string) (fetcher.Body, error) {
		switch pageOf(url) {
		case 1:
			return respond(resultsPage(pageIDs(1, 10)...))
		case 2:
			return respond(`<html><body>maintenance</body></html>`)
		default:
			return respond(resultsPage(pageIDs(pageOf(url), 10)...))
		}
	}}
	s := NewLegacy(f, testSite(t), LegacyConfig{MaxResults: 40, PageSize: 10, MaxPages: 4}, 1)

	res, err := s.Search(context.Background(), "app", Options{})
	require.NoError(t, err)
	assert.Len(t, res.Items, 10)
	assert.Equal(t, []int{2}, res.Diagnostics.FailedPages)
	assert.True(t, res.Diagnostics.Degraded())
	assert.Equal(t, 2, f.callCount())
}

func TestLegacy_DropsEntriesWithoutLink(t *testing.T) {
	html := `<div class="archive-posts">` +
		`<article id="post-1"><h2 class="post-title"><a href="/one/">One</a></h2></article>` +
		`<article id="post-2"><h2 class="post-title">no link</h2></article>` +
		`</div>`
	f := &fakeFetcher{handler: func(context.Context, string) (fetcher.Body, error) {
		return respond(html)
	}}
	s := NewLegacy(f, testSite(t), LegacyConfig{MaxResults: 10, PageSize: 10, MaxPages: 1}, 1)

	res, err := s.Search(context.Background(), "app", Options{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "https://www.farsroid.com/one/", res.Items[0].URL)
	assert.Nil(t, res.Items[0].ThumbnailURL)
	assert.Nil(t, res.Items[0].ShortDescription)
	assert.Equal(t, 1, res.Diagnostics.Dropped)
}

func TestLegacy_CancelStopsDispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &fakeFetcher{handler: func(ctx context.Context, url string) (fetcher.Body, error) {
		if pageOf(url) == 2 {
			cancel()
			<-ctx.Done()
			return fetcher.Body{}, &fetcher.Error{Kind: fetcher.KindCanceled, Err: ctx.Err()}
		}
		return respond(resultsPage(pageIDs(pageOf(url), 10)...))
	}}
	s := NewLegacy(f, testSite(t), LegacyConfig{MaxResults: 100, PageSize: 10, MaxPages: 10}, 1)

	_, err := s.Search(ctx, "app", Options{})
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindUpstreamUnavailable, se.Kind)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 2, f.callCount())
}

func TestLegacy_BlankQuery(t *testing.T) {
	f := &fakeFetcher{handler: func(context.Context, string) (fetcher.Body, error) {
		return respond(resultsPage())
	}}
	_, err := NewLegacy(f, testSite(t), DefaultLegacyConfig(), 4).Search(context.Background(), "  ", Options{})
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Equal(t, 0, f.callCount())
}
