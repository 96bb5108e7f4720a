package post

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a post page failure.
type ErrorKind int

const (
	// KindNotFound means the post does not exist.
	KindNotFound ErrorKind = iota + 1
	// KindUpstreamUnavailable means the page could not be fetched.
	KindUpstreamUnavailable
	// KindUnexpectedSchema means the page no longer has the expected layout.
	KindUnexpectedSchema
	// KindPartialExtraction accompanies a usable record whose optional
	// blocks were all missing.
	KindPartialExtraction
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindUpstreamUnavailable:
		return "upstream unavailable"
	case KindUnexpectedSchema:
		return "unexpected schema"
	case KindPartialExtraction:
		return "partial extraction"
	default:
		return "unknown"
	}
}

// Error is returned by the post parser and the stats fetcher.
type Error struct {
	Kind   ErrorKind
	ID     string
	Detail string
	// Recovered lists the fields that were extracted, for KindPartialExtraction.
	Recovered []string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("post %s: %s", e.ID, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Kind == KindPartialExtraction && len(e.Recovered) > 0 {
		msg += " (recovered " + strings.Join(e.Recovered, ", ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}
