package search

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a search failure.
type ErrorKind int

const (
	// KindEmptyQuery means the query was empty or whitespace only.
	KindEmptyQuery ErrorKind = iota + 1
	// KindUpstreamUnavailable means the site could not be reached or
	// answered with an error status.
	KindUpstreamUnavailable
	// KindUnexpectedSchema means the response no longer has the expected shape.
	KindUnexpectedSchema
)

func (k ErrorKind) String() string {
	switch k {
	case KindEmptyQuery:
		return "empty query"
	case KindUpstreamUnavailable:
		return "upstream unavailable"
	case KindUnexpectedSchema:
		return "unexpected schema"
	default:
		return "unknown"
	}
}

// ErrEmptyQuery is returned, wrapped in *Error, for blank queries.
var ErrEmptyQuery = errors.New("query must not be empty")

// Error is returned by both search strategies.
type Error struct {
	Kind ErrorKind
	// Strategy is "json" or "legacy".
	Strategy string
	// Page is the result page the failure happened on, 0 if not page specific.
	Page   int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s search: %s", e.Strategy, e.Kind)
	if e.Page > 0 {
		msg += fmt.Sprintf(" (page %d)", e.Page)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}
