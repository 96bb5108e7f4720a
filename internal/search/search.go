// Package search implements the two search strategies: a fast one over the
// site's structured search endpoint and a slow one that scrapes HTML result
// pages for richer fields.
package search

import (
	"context"
	"strings"

	"github.com/jmylchreest/froid/pkg/model"
)

// Strategy performs one search.
type Strategy interface {
	Search(ctx context.Context, query string, opts Options) (Results, error)
	Name() string
}

// Options controls a search call. Zero values mean strategy defaults.
type Options struct {
	// Page and PerPage select one page of the structured endpoint.
	Page    int
	PerPage int
	// MaxResults caps the number of results the legacy strategy collects.
	MaxResults int
}

// Results is the outcome of a search that did not fail outright.
type Results struct {
	Items       []model.SearchResult
	Diagnostics model.Diagnostics
}

func normalizeQuery(strategy, query string) (string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", &Error{Kind: KindEmptyQuery, Strategy: strategy, Err: ErrEmptyQuery}
	}
	return q, nil
}
