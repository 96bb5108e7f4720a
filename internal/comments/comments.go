// Package comments fetches one page of a post's approved comments from the
// site's WordPress comments endpoint.
package comments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jmylchreest/froid/internal/cleaner"
	"github.com/jmylchreest/froid/internal/logger"
	"github.com/jmylchreest/froid/internal/site"
	"github.com/jmylchreest/froid/pkg/fetcher"
	"github.com/jmylchreest/froid/pkg/model"
)

// Query selects a page of comments.
type Query struct {
	Page    int    `validate:"gte=1,lte=100"`
	PerPage int    `validate:"gte=1,lte=100"`
	Search  string `validate:"omitempty,min=3"`
	Order   string `validate:"omitempty,oneof=asc desc"`
	OrderBy string `validate:"omitempty,oneof=date date_gmt id"`
}

// DefaultQuery returns the first page with the site's default page size.
func DefaultQuery() Query {
	return Query{Page: 1, PerPage: 10}
}

var validate = validator.New()

// Validate checks q against the endpoint's accepted ranges.
func (q Query) Validate() error {
	return validate.Struct(q)
}

func (q Query) values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("per_page", strconv.Itoa(q.PerPage))
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	if q.OrderBy != "" {
		v.Set("orderby", q.OrderBy)
	}
	return v
}

// Results is one page of comments.
type Results struct {
	Items       []model.Comment
	Diagnostics model.Diagnostics
}

// Parser reads the comments endpoint.
type Parser struct {
	fetcher fetcher.Fetcher
	site    *site.Site
}

// NewParser creates a comments parser.
func NewParser(f fetcher.Fetcher, s *site.Site) *Parser {
	return &Parser{fetcher: f, site: s}
}

type apiComment struct {
	ID         any    `json:"id"`
	Post       any    `json:"post"`
	Parent     any    `json:"parent"`
	AuthorName string `json:"author_name"`
	Date       string `json:"date"`
	DateGMT    string `json:"date_gmt"`
	Link       string `json:"link"`
	Content    struct {
		Rendered string `json:"rendered"`
	} `json:"content"`
	Meta map[string]any `json:"meta"`
}

const wpTimeLayout = "2006-01-02T15:04:05"

// FetchComments fetches the page of comments q selects, in the site's
// display order. A page past the last one is an empty result.
func (p *Parser) FetchComments(ctx context.Context, id string, q Query) (Results, error) {
	if err := q.Validate(); err != nil {
		return Results{}, fmt.Errorf("invalid comment query: %w", err)
	}

	body, err := p.fetcher.Fetch(ctx, p.site.Comments(id, q.values()), fetcher.Options{
		Headers: map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		return p.fetchError(ctx, id, q, err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(body.Data, &raw); err != nil {
		return Results{}, &Error{Kind: KindUnexpectedSchema, ID: id, Page: q.Page, Detail: "response is not a JSON array", Err: err}
	}

	res := Results{Items: make([]model.Comment, 0, len(raw))}
	for i, msg := range raw {
		var c apiComment
		if err := json.Unmarshal(msg, &c); err != nil {
			res.Diagnostics.Dropped++
			res.Diagnostics.Note(fmt.Sprintf("comment %d: %v", i, err))
			continue
		}
		comment, ok := toComment(c)
		if !ok {
			res.Diagnostics.Dropped++
			res.Diagnostics.Note(fmt.Sprintf("comment %d: missing id or link", i))
			continue
		}
		res.Items = append(res.Items, comment)
	}

	if len(raw) > 0 && len(res.Items) == 0 {
		return Results{}, &Error{Kind: KindUnexpectedSchema, ID: id, Page: q.Page, Detail: fmt.Sprintf("all %d comments lack id or link", len(raw))}
	}
	if res.Diagnostics.Dropped > 0 {
		logger.WarnContext(ctx, "comments dropped", "id", id, "page", q.Page, "dropped", res.Diagnostics.Dropped)
	}
	return res, nil
}

func (p *Parser) fetchError(ctx context.Context, id string, q Query, err error) (Results, error) {
	var fe *fetcher.Error
	if errors.As(err, &fe) && fe.Kind == fetcher.KindHTTPStatus {
		if apiErr, ok := site.ParseAPIError(fe.Body); ok {
			switch {
			case apiErr.InvalidPage():
				logger.DebugContext(ctx, "comments page past the end", "id", id, "page", q.Page)
				return Results{Items: []model.Comment{}}, nil
			case apiErr.Code == site.CodeInvalidPostID:
				return Results{}, &Error{Kind: KindNotFound, ID: id, Err: err}
			}
		}
		if fe.StatusCode == http.StatusNotFound {
			return Results{}, &Error{Kind: KindNotFound, ID: id, Err: err}
		}
	}
	return Results{}, &Error{Kind: KindUpstreamUnavailable, ID: id, Page: q.Page, Err: err}
}

func toComment(c apiComment) (model.Comment, bool) {
	out := model.Comment{
		ID:       idString(c.ID),
		URL:      strings.TrimSpace(c.Link),
		Author:   cleaner.CollapseSpace(c.AuthorName),
		BodyText: cleaner.PlainText(c.Content.Rendered),
	}
	if out.ID == "" || out.URL == "" {
		return model.Comment{}, false
	}

	if ts, ok := timestamp(c.DateGMT, c.Date); ok {
		out.Timestamp = &ts
	}
	if parent := idString(c.Parent); parent != "" {
		out.ParentID = &parent
	}
	if r, ok := c.Meta["rating"]; ok {
		if f, ok := rating(r); ok {
			out.Rating = &f
		}
	}
	return out, true
}

// timestamp prefers the GMT date; the local date is read as UTC when it is
// all there is.
func timestamp(gmt, local string) (time.Time, bool) {
	for _, s := range []string{gmt, local} {
		if s == "" {
			continue
		}
		if t, err := time.ParseInLocation(wpTimeLayout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func rating(v any) (float64, bool) {
	switch r := v.(type) {
	case float64:
		return r, r > 0
	case string:
		f, ok := cleaner.ParseFloat(r)
		return f, ok && f > 0
	}
	return 0, false
}

func idString(v any) string {
	switch id := v.(type) {
	case float64:
		if id < 1 || id != float64(int64(id)) {
			return ""
		}
		return strconv.FormatInt(int64(id), 10)
	case string:
		if s := strings.TrimSpace(id); site.ValidID(s) {
			return s
		}
	}
	return ""
}
