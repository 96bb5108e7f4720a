package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/froid/internal/site"
	"github.com/jmylchreest/froid/pkg/fetcher"
)

// fakeFetcher serves canned responses and records every call.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   []string
	handler func(ctx context.Context, url string) (fetcher.Body, error)

	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, _ fetcher.Options) (fetcher.Body, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()

	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return f.handler(ctx, url)
}

func (f *fakeFetcher) Close() error { return nil }
func (f *fakeFetcher) Type() string { return "fake" }

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func respond(data string) (fetcher.Body, error) {
	return fetcher.Body{StatusCode: http.StatusOK, Data: []byte(data)}, nil
}

func status(code int, body string) (fetcher.Body, error) {
	return fetcher.Body{}, &fetcher.Error{Kind: fetcher.KindHTTPStatus, StatusCode: code, Body: []byte(body), Attempts: 1}
}

func testSite(t *testing.T) *site.Site {
	t.Helper()
	s, err := site.New(site.Config{BaseURL: "https://www.farsroid.com"})
	require.NoError(t, err)
	return s
}

// resultsPage renders a search result page holding the given post ids.
func resultsPage(ids ...int) string {
	var b strings.Builder
	b.WriteString(`<html><body><main><div class="archive-posts">`)
	for _, id := range ids {
		fmt.Fprintf(&b, `<article id="post-%d" class="post type-post">`+
			`<div class="post-thumbnail"><img data-src="/wp-content/uploads/app-%d.jpg" src="data:image/gif;base64,R0lGOD"></div>`+
			`<h2 class="post-title"><a href="https://www.farsroid.com/app-%d/">App &amp; %d</a></h2>`+
			`<div class="post-excerpt"> Short
			   text %d </div></article>`, id, id, id, id, id)
	}
	b.WriteString(`</div></main></body></html>`)
	return b.String()
}

// pageIDs returns ids (page-1)*size+1 .. page*size.
func pageIDs(page, size int) []int {
	ids := make([]int, size)
	for i := range ids {
		ids[i] = (page-1)*size + i + 1
	}
	return ids
}
