package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmylchreest/froid/internal/cleaner"
	"github.com/jmylchreest/froid/internal/logger"
	"github.com/jmylchreest/froid/internal/site"
	"github.com/jmylchreest/froid/pkg/fetcher"
	"github.com/jmylchreest/froid/pkg/model"
)

// JSON searches through the site's WordPress search endpoint. It returns
// id, title and url only.
type JSON struct {
	fetcher fetcher.Fetcher
	site    *site.Site
}

// NewJSON creates the structured search strategy.
func NewJSON(f fetcher.Fetcher, s *site.Site) *JSON {
	return &JSON{fetcher: f, site: s}
}

// Name returns the strategy name.
func (j *JSON) Name() string {
	return "json"
}

type searchEntry struct {
	ID    any    `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Search queries the endpoint for one page of results.
func (j *JSON) Search(ctx context.Context, query string, opts Options) (Results, error) {
	q, err := normalizeQuery(j.Name(), query)
	if err != nil {
		return Results{}, err
	}

	endpoint := j.site.SearchJSON(q, opts.Page, opts.PerPage)
	body, err := j.fetcher.Fetch(ctx, endpoint, fetcher.Options{
		Headers: map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		if opts.Page > 1 && invalidPage(err) {
			logger.DebugContext(ctx, "search page past the end", "query", q, "page", opts.Page)
			return Results{Items: []model.SearchResult{}}, nil
		}
		return Results{}, &Error{Kind: KindUpstreamUnavailable, Strategy: j.Name(), Page: opts.Page, Err: err}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body.Data, &raw); err != nil {
		return Results{}, &Error{
			Kind:     KindUnexpectedSchema,
			Strategy: j.Name(),
			Detail:   "response is not a JSON array",
			Err:      err,
		}
	}

	res := Results{Items: make([]model.SearchResult, 0, len(raw))}
	for i, msg := range raw {
		var e searchEntry
		if err := json.Unmarshal(msg, &e); err != nil {
			res.Diagnostics.Dropped++
			res.Diagnostics.Note(fmt.Sprintf("entry %d: %v", i, err))
			continue
		}
		r := model.SearchResult{
			ID:    idString(e.ID),
			Title: cleaner.PlainText(e.Title),
			URL:   strings.TrimSpace(e.URL),
		}
		if !r.Valid() {
			res.Diagnostics.Dropped++
			res.Diagnostics.Note(fmt.Sprintf("entry %d: missing id or url", i))
			continue
		}
		res.Items = append(res.Items, r)
	}

	if len(raw) > 0 && len(res.Items) == 0 {
		return Results{}, &Error{
			Kind:     KindUnexpectedSchema,
			Strategy: j.Name(),
			Detail:   fmt.Sprintf("all %d entries lack id or url", len(raw)),
		}
	}
	if res.Diagnostics.Dropped > 0 {
		logger.WarnContext(ctx, "search entries dropped", "query", q, "dropped", res.Diagnostics.Dropped)
	}

	return res, nil
}

// idString renders a JSON id as a decimal string. Anything that is not a
// positive integer yields "".
func idString(v any) string {
	switch id := v.(type) {
	case float64:
		if id < 1 || id != float64(int64(id)) {
			return ""
		}
		return strconv.FormatInt(int64(id), 10)
	case string:
		if site.ValidID(strings.TrimSpace(id)) {
			return strings.TrimSpace(id)
		}
	}
	return ""
}

// invalidPage reports whether err is the WordPress "page number too large"
// response.
func invalidPage(err error) bool {
	var fe *fetcher.Error
	if !errors.As(err, &fe) || fe.Kind != fetcher.KindHTTPStatus {
		return false
	}
	apiErr, ok := site.ParseAPIError(fe.Body)
	return ok && apiErr.InvalidPage()
}
