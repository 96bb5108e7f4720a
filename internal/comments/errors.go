package comments

import "fmt"

// ErrorKind classifies a comments failure.
type ErrorKind int

const (
	// KindNotFound means the post does not exist.
	KindNotFound ErrorKind = iota + 1
	// KindUpstreamUnavailable means the endpoint could not be reached.
	KindUpstreamUnavailable
	// KindUnexpectedSchema means the payload no longer has the expected shape.
	KindUnexpectedSchema
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindUpstreamUnavailable:
		return "upstream unavailable"
	case KindUnexpectedSchema:
		return "unexpected schema"
	default:
		return "unknown"
	}
}

// Error is returned by FetchComments for failures past validation.
type Error struct {
	Kind   ErrorKind
	ID     string
	Page   int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("comments of post %s: %s", e.ID, e.Kind)
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
