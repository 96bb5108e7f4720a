package froid

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmylchreest/froid/internal/comments"
	"github.com/jmylchreest/froid/internal/post"
	"github.com/jmylchreest/froid/internal/search"
	"github.com/jmylchreest/froid/pkg/fetcher"
)

// Kind is the error taxonomy shared by every engine operation.
type Kind int

const (
	// KindInput means the call's arguments were rejected before any fetch.
	KindInput Kind = iota + 1
	// KindNotFound means the addressed post does not exist upstream.
	KindNotFound
	// KindUpstream means the site could not be reached, timed out or
	// answered with an error status after retries.
	KindUpstream
	// KindSchemaDrift means the site's content no longer matches the parser.
	KindSchemaDrift
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input error"
	case KindNotFound:
		return "not found"
	case KindUpstream:
		return "upstream unavailable"
	case KindSchemaDrift:
		return "schema drift"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Every *Error matches the sentinel of its Kind.
var (
	ErrInput       = errors.New("input error")
	ErrNotFound    = errors.New("not found")
	ErrUpstream    = errors.New("upstream unavailable")
	ErrSchemaDrift = errors.New("schema drift")
)

// Error is returned by every Engine operation.
type Error struct {
	Kind Kind
	// Op is the engine operation, e.g. "search" or "fetch_post".
	Op string
	// Detail names what failed: a field, a page, an argument.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.String()
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

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInput:
		return e.Kind == KindInput
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrUpstream:
		return e.Kind == KindUpstream
	case ErrSchemaDrift:
		return e.Kind == KindSchemaDrift
	}
	return false
}

func inputError(op, format string, args ...any) *Error {
	return &Error{Kind: KindInput, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// normalize folds a strategy or fetcher error into the engine taxonomy.
func normalize(op string, err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}

	var se *search.Error
	if errors.As(err, &se) {
		switch se.Kind {
		case search.KindEmptyQuery:
			return &Error{Kind: KindInput, Op: op, Detail: "query", Err: err}
		case search.KindUnexpectedSchema:
			return &Error{Kind: KindSchemaDrift, Op: op, Detail: pageDetail(se.Page), Err: err}
		default:
			return &Error{Kind: KindUpstream, Op: op, Detail: pageDetail(se.Page), Err: err}
		}
	}

	var pe *post.Error
	if errors.As(err, &pe) {
		switch pe.Kind {
		case post.KindNotFound:
			return &Error{Kind: KindNotFound, Op: op, Detail: "post " + pe.ID, Err: err}
		case post.KindUnexpectedSchema:
			return &Error{Kind: KindSchemaDrift, Op: op, Detail: pe.Detail, Err: err}
		default:
			return &Error{Kind: KindUpstream, Op: op, Err: err}
		}
	}

	var ce *comments.Error
	if errors.As(err, &ce) {
		switch ce.Kind {
		case comments.KindNotFound:
			return &Error{Kind: KindNotFound, Op: op, Detail: "post " + ce.ID, Err: err}
		case comments.KindUnexpectedSchema:
			return &Error{Kind: KindSchemaDrift, Op: op, Detail: pageDetail(ce.Page), Err: err}
		default:
			return &Error{Kind: KindUpstream, Op: op, Detail: pageDetail(ce.Page), Err: err}
		}
	}

	var ferr *fetcher.Error
	if errors.As(err, &ferr) {
		return &Error{Kind: KindUpstream, Op: op, Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindUpstream, Op: op, Detail: "call interrupted", Err: err}
	}
	return &Error{Kind: KindUpstream, Op: op, Err: err}
}

func pageDetail(page int) string {
	if page <= 0 {
		return ""
	}
	return fmt.Sprintf("page %d", page)
}
