package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies a fetch failure so callers can decide whether to
// retry and how to report it.
type Kind int

const (
	// KindNetwork covers connection-level failures.
	KindNetwork Kind = iota
	// KindTimeout means no full response arrived within the deadline.
	KindTimeout
	// KindHTTP means the server answered with a non-200 status.
	KindHTTP
	// KindParse means a JSON-typed body could not be decoded.
	KindParse
	// KindBlocked means the URL failed SSRF validation. Never retried.
	KindBlocked
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindHTTP:
		return "http"
	case KindParse:
		return "parse"
	case KindBlocked:
		return "blocked"
	}
	return "unknown"
}

// Error is a typed fetch failure.
type Error struct {
	Kind   Kind
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Kind, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a fetch Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	return fe.Kind == kind
}
