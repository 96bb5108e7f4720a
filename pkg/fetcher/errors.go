package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ErrorKind classifies a fetch failure.
type ErrorKind int

const (
	// KindTimeout means an attempt, or the caller's deadline, expired.
	KindTimeout ErrorKind = iota + 1
	// KindConnectionRefused means the remote host refused the connection.
	KindConnectionRefused
	// KindHTTPStatus means a response arrived with a non-2xx status.
	KindHTTPStatus
	// KindTooManyRedirects means the redirect limit was exceeded.
	KindTooManyRedirects
	// KindNetwork covers other transport failures (resets, DNS, TLS).
	KindNetwork
	// KindCanceled means the caller cancelled the fetch.
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindConnectionRefused:
		return "connection refused"
	case KindHTTPStatus:
		return "http status"
	case KindTooManyRedirects:
		return "too many redirects"
	case KindNetwork:
		return "network"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ErrTooManyRedirects is returned by the redirect policies of every transport.
var ErrTooManyRedirects = errors.New("too many redirects")

// Error describes a failed fetch. For KindHTTPStatus, StatusCode and Body are
// set so callers can tell "not found" apart from "site broken".
type Error struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	Body       []byte
	Attempts   int
	Err        error
}

func (e *Error) Error() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("fetch %s: http status %d (after %d attempts)", e.URL, e.StatusCode, e.Attempts)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s (after %d attempts): %v", e.URL, e.Kind, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s (after %d attempts)", e.URL, e.Kind, e.Attempts)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient reports whether another attempt may succeed.
func (e *Error) Transient() bool {
	switch e.Kind {
	case KindTimeout, KindNetwork:
		return true
	case KindHTTPStatus:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// IsStatus reports whether err is an HTTP status error with one of the codes.
func IsStatus(err error, codes ...int) bool {
	var fe *Error
	if !errors.As(err, &fe) || fe.Kind != KindHTTPStatus {
		return false
	}
	for _, c := range codes {
		if fe.StatusCode == c {
			return true
		}
	}
	return false
}

// classify maps a transport error into an *Error. parent is the caller's
// context; a deadline on parent is final, a deadline on the attempt is not.
func classify(parent context.Context, url string, err error) *Error {
	fe := &Error{URL: url, Err: err}

	switch {
	case errors.Is(parent.Err(), context.Canceled):
		fe.Kind = KindCanceled
	case errors.Is(parent.Err(), context.DeadlineExceeded):
		fe.Kind = KindTimeout
	case errors.Is(err, ErrTooManyRedirects):
		fe.Kind = KindTooManyRedirects
	case errors.Is(err, syscall.ECONNREFUSED):
		fe.Kind = KindConnectionRefused
	case errors.Is(err, context.DeadlineExceeded):
		fe.Kind = KindTimeout
	default:
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			fe.Kind = KindTimeout
		} else {
			fe.Kind = KindNetwork
		}
	}

	return fe
}

// final reports whether a classified error must not be retried regardless
// of its kind, because the caller's context is done.
func final(parent context.Context) bool {
	return parent.Err() != nil
}
