package search

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/froid/internal/cleaner"
	"github.com/jmylchreest/froid/internal/fanout"
	"github.com/jmylchreest/froid/internal/logger"
	"github.com/jmylchreest/froid/internal/site"
	"github.com/jmylchreest/froid/pkg/fetcher"
	"github.com/jmylchreest/froid/pkg/model"
)

// LegacyConfig holds the pagination limits of the legacy strategy.
type LegacyConfig struct {
	MaxResults int `mapstructure:"max_results" validate:"gte=1,lte=500"`
	PageSize   int `mapstructure:"page_size" validate:"gte=1,lte=100"`
	MaxPages   int `mapstructure:"max_pages" validate:"gte=1,lte=50"`
}

// DefaultLegacyConfig returns the site's archive page size with a small
// result cap.
func DefaultLegacyConfig() LegacyConfig {
	return LegacyConfig{
		MaxResults: 30,
		PageSize:   10,
		MaxPages:   5,
	}
}

// Legacy scrapes the HTML search result pages. Pages are fetched
// concurrently and merged in page order.
type Legacy struct {
	fetcher fetcher.Fetcher
	site    *site.Site
	config  LegacyConfig
	fanout  int
}

// NewLegacy creates the scraping strategy. fanoutLimit bounds concurrent
// page fetches.
func NewLegacy(f fetcher.Fetcher, s *site.Site, cfg LegacyConfig, fanoutLimit int) *Legacy {
	d := DefaultLegacyConfig()
	if cfg.MaxResults < 1 {
		cfg.MaxResults = d.MaxResults
	}
	if cfg.PageSize < 1 {
		cfg.PageSize = d.PageSize
	}
	if cfg.MaxPages < 1 {
		cfg.MaxPages = d.MaxPages
	}
	return &Legacy{fetcher: f, site: s, config: cfg, fanout: fanoutLimit}
}

// Name returns the strategy name.
func (l *Legacy) Name() string {
	return "legacy"
}

// pageResult is the parsed outcome of one result page.
type pageResult struct {
	items   []model.SearchResult
	dropped int
	// end is set for an empty page or a 404: there is nothing beyond it.
	end bool
	err *Error
}

// pager tracks page completions and decides where pagination stops.
type pager struct {
	mu         sync.Mutex
	maxResults int
	pages      map[int]*pageResult
	cancels    map[int]context.CancelFunc
	stopAt     int
}

func newPager(pages, maxResults int) *pager {
	return &pager{
		maxResults: maxResults,
		pages:      make(map[int]*pageResult, pages),
		cancels:    make(map[int]context.CancelFunc, pages),
		stopAt:     pages,
	}
}

// wanted reports whether page n still needs to be fetched.
func (p *pager) wanted(n int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return n <= p.stopAt
}

func (p *pager) track(n int, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancels[n] = cancel
}

// complete records page n and moves the stopping point when the page ends
// pagination or the contiguous prefix holds enough results.
func (p *pager) complete(n int, r *pageResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pages[n] = r
	if r.end || r.err != nil {
		p.stop(n)
		return
	}

	seen := make(map[string]bool)
	for i := 1; i <= p.stopAt; i++ {
		pr, ok := p.pages[i]
		if !ok || pr.end || pr.err != nil {
			return
		}
		for _, item := range pr.items {
			seen[dedupKey(item)] = true
		}
		if len(seen) >= p.maxResults {
			p.stop(i)
			return
		}
	}
}

// stop cancels every page after n. Callers hold p.mu.
func (p *pager) stop(n int) {
	if n >= p.stopAt {
		return
	}
	p.stopAt = n
	for i, cancel := range p.cancels {
		if i > n {
			cancel()
		}
	}
}

func (p *pager) cancelAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, cancel := range p.cancels {
		cancel()
	}
}

// Search fetches result pages 1..N and merges them.
func (l *Legacy) Search(ctx context.Context, query string, opts Options) (Results, error) {
	q, err := normalizeQuery(l.Name(), query)
	if err != nil {
		return Results{}, err
	}

	maxResults := l.config.MaxResults
	if opts.MaxResults > 0 {
		maxResults = opts.MaxResults
	}
	pages := (maxResults + l.config.PageSize - 1) / l.config.PageSize
	if pages > l.config.MaxPages {
		pages = l.config.MaxPages
	}

	logger.DebugContext(ctx, "legacy search starting", "query", q, "pages", pages, "max_results", maxResults)

	pg := newPager(pages, maxResults)
	defer pg.cancelAll()

	group := fanout.New(l.fanout)
	for n := 1; n <= pages; n++ {
		if !pg.wanted(n) {
			break
		}
		pageCtx, cancel := context.WithCancel(ctx)
		pg.track(n, cancel)
		if !pg.wanted(n) {
			break
		}

		started := group.Go(pageCtx, func(ctx context.Context) {
			if ctx.Err() != nil {
				return
			}
			pg.complete(n, l.fetchPage(ctx, q, n))
		})
		if !started {
			break
		}
	}
	group.Wait()

	if err := ctx.Err(); err != nil {
		return Results{}, &Error{Kind: KindUpstreamUnavailable, Strategy: l.Name(), Detail: "search cancelled", Err: err}
	}

	return l.merge(ctx, pg, maxResults)
}

func (l *Legacy) merge(ctx context.Context, pg *pager, maxResults int) (Results, error) {
	pg.mu.Lock()
	defer pg.mu.Unlock()

	res := Results{Items: []model.SearchResult{}}
	seen := make(map[string]bool)

	for n := 1; n <= pg.stopAt; n++ {
		pr, ok := pg.pages[n]
		if !ok {
			break
		}
		if pr.err != nil {
			if n == 1 {
				return Results{}, pr.err
			}
			res.Diagnostics.FailedPages = append(res.Diagnostics.FailedPages, n)
			res.Diagnostics.Note(pr.err.Error())
			logger.WarnContext(ctx, "legacy search page failed", "page", n, "error", pr.err)
			break
		}

		res.Diagnostics.Dropped += pr.dropped
		for _, item := range pr.items {
			key := dedupKey(item)
			if seen[key] {
				continue
			}
			seen[key] = true
			res.Items = append(res.Items, item)
		}
		if pr.end {
			break
		}
	}

	if len(res.Items) > maxResults {
		res.Items = res.Items[:maxResults]
	}
	return res, nil
}

func (l *Legacy) fetchPage(ctx context.Context, query string, n int) *pageResult {
	body, err := l.fetcher.Fetch(ctx, l.site.SearchPage(query, n), fetcher.Options{})
	if err != nil {
		if fetcher.IsStatus(err, http.StatusNotFound) {
			logger.DebugContext(ctx, "legacy search page not found", "page", n)
			return &pageResult{end: true}
		}
		return &pageResult{err: &Error{Kind: KindUpstreamUnavailable, Strategy: l.Name(), Page: n, Err: err}}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body.Data))
	if err != nil {
		return &pageResult{err: &Error{Kind: KindUnexpectedSchema, Strategy: l.Name(), Page: n, Detail: "unparseable html", Err: err}}
	}
	return l.parsePage(doc, n)
}

func (l *Legacy) parsePage(doc *goquery.Document, n int) *pageResult {
	sel := l.site.Selectors

	container := doc.Find(sel.SearchContainer)
	if container.Length() == 0 {
		if doc.Find(sel.SearchNoResults).Length() > 0 {
			return &pageResult{end: true}
		}
		return &pageResult{err: &Error{
			Kind:     KindUnexpectedSchema,
			Strategy: l.Name(),
			Page:     n,
			Detail:   fmt.Sprintf("results container %q not found", sel.SearchContainer),
		}}
	}

	pr := &pageResult{}
	container.Find(sel.SearchEntry).Each(func(_ int, s *goquery.Selection) {
		item, ok := l.parseEntry(s)
		if !ok {
			pr.dropped++
			return
		}
		pr.items = append(pr.items, item)
	})
	if len(pr.items) == 0 && pr.dropped == 0 {
		pr.end = true
	}
	return pr
}

func (l *Legacy) parseEntry(s *goquery.Selection) (model.SearchResult, bool) {
	sel := l.site.Selectors

	link := s.Find(sel.SearchTitle).First()
	href, _ := link.Attr("href")
	r := model.SearchResult{
		URL:   l.site.Resolve(href),
		Title: cleaner.CollapseSpace(link.Text()),
	}
	if r.Title == "" {
		r.Title = cleaner.CollapseSpace(link.AttrOr("title", ""))
	}

	id, _ := s.Attr("id")
	class, _ := s.Attr("class")
	r.ID = site.PostIDFromAttrs(id, class)
	if r.ID == "" {
		r.ID = idFromShortlink(r.URL)
	}

	if img := s.Find(sel.SearchThumbnail).First(); img.Length() > 0 {
		src := img.AttrOr("data-src", img.AttrOr("src", ""))
		if u := l.site.Resolve(src); u != "" {
			r.ThumbnailURL = &u
		}
	}
	if excerpt := cleaner.CollapseSpace(s.Find(sel.SearchExcerpt).First().Text()); excerpt != "" {
		r.ShortDescription = &excerpt
	}

	return r, r.Valid()
}

// idFromShortlink extracts the id from a "/?p=123" style URL.
func idFromShortlink(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if p := u.Query().Get("p"); site.ValidID(p) {
		return p
	}
	return ""
}

// dedupKey identifies a result across pages: by id, else by normalized url.
func dedupKey(r model.SearchResult) string {
	if r.ID != "" {
		return "id:" + r.ID
	}
	return "url:" + site.NormalizeURL(r.URL)
}
