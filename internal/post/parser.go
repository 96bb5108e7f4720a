// Package post extracts a post page into a model.PostDetail and fetches the
// post's statistics from the site's stats endpoint.
package post

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/froid/internal/cleaner"
	"github.com/jmylchreest/froid/internal/fanout"
	"github.com/jmylchreest/froid/internal/logger"
	"github.com/jmylchreest/froid/internal/site"
	"github.com/jmylchreest/froid/pkg/fetcher"
	"github.com/jmylchreest/froid/pkg/model"
)

// Parser fetches and parses post pages.
type Parser struct {
	pages  fetcher.Fetcher
	api    fetcher.Fetcher
	site   *site.Site
	fanout int
	// description renders the post body; plain text when markdown fails
	description cleaner.Cleaner
}

// NewParser creates a parser. pages fetches HTML, api fetches the JSON
// statistics endpoint; they may be the same fetcher.
func NewParser(pages, api fetcher.Fetcher, s *site.Site, fanoutLimit int) *Parser {
	return &Parser{
		pages:       pages,
		api:         api,
		site:        s,
		fanout:      fanoutLimit,
		description: cleaner.NewFallback(cleaner.NewMarkdown(), cleaner.NewText()),
	}
}

// FetchPost fetches the post page and its statistics concurrently and
// extracts the record. A *Error of KindPartialExtraction is returned together
// with a usable record.
func (p *Parser) FetchPost(ctx context.Context, id string) (model.PostDetail, model.Diagnostics, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		page     fetcher.Body
		pageErr  error
		stats    model.PostStatistics
		statsErr error
	)

	group := fanout.New(p.fanout)
	group.Go(ctx, func(ctx context.Context) {
		page, pageErr = p.pages.Fetch(ctx, p.site.PostURL(id), fetcher.Options{})
		if pageErr != nil {
			// without the page the statistics are useless
			cancel()
		}
	})
	group.Go(ctx, func(ctx context.Context) {
		stats, statsErr = p.FetchStats(ctx, id)
	})
	group.Wait()

	if pageErr == nil && ctx.Err() != nil {
		pageErr = ctx.Err()
	}
	if pageErr != nil {
		if fetcher.IsStatus(pageErr, http.StatusNotFound, http.StatusGone) {
			return model.PostDetail{}, model.Diagnostics{}, &Error{Kind: KindNotFound, ID: id, Err: pageErr}
		}
		return model.PostDetail{}, model.Diagnostics{}, &Error{Kind: KindUpstreamUnavailable, ID: id, Err: pageErr}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Data))
	if err != nil {
		return model.PostDetail{}, model.Diagnostics{}, &Error{Kind: KindUnexpectedSchema, ID: id, Detail: "unparseable html", Err: err}
	}

	var endpoint *model.PostStatistics
	var diag model.Diagnostics
	if statsErr == nil {
		endpoint = &stats
	} else {
		var pe *Error
		if !errors.As(statsErr, &pe) || pe.Kind != KindNotFound {
			diag.Note("stats endpoint: " + statsErr.Error())
		}
		logger.DebugContext(ctx, "stats endpoint unavailable, using page stats", "id", id, "error", statsErr)
	}

	detail, parseDiag, err := p.Parse(doc, id, endpoint)
	parseDiag.Notes = append(diag.Notes, parseDiag.Notes...)
	return detail, parseDiag, err
}
