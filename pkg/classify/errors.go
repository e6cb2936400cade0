package classify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotEnoughDigits is returned when the card number is shorter than the
	// lookup threshold. Resolvers may return it as well.
	ErrNotEnoughDigits = errors.New("classify: not enough digits")
	// ErrNoResolver is returned by a classifier built without a Resolver.
	ErrNoResolver = errors.New("classify: resolver is required")
)

// ResolverError carries the HTTP-like status a resolver failed with. A zero
// status means the request never produced a response.
type ResolverError struct {
	Op     string
	Status int
	Err    error
}

func (e *ResolverError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("classify: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("classify: %s: status %d: %v", e.Op, e.Status, e.Err)
}

func (e *ResolverError) Unwrap() error { return e.Err }

// FailureKind classifies why a lookup failed.
type FailureKind string

const (
	FailureNotEnoughDigits FailureKind = "not-enough-digits"
	FailureNotFound        FailureKind = "not-found"
	FailureUnauthorized    FailureKind = "unauthorized"
	FailureTransport       FailureKind = "transport"
	FailureUnknown         FailureKind = "unknown"
)

// KindOf maps a resolver error onto a FailureKind.
func KindOf(err error) FailureKind {
	if err == nil {
		return FailureUnknown
	}
	if errors.Is(err, ErrNotEnoughDigits) {
		return FailureNotEnoughDigits
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return FailureTransport
	}
	var re *ResolverError
	if errors.As(err, &re) {
		switch re.Status {
		case 0:
			return FailureTransport
		case http.StatusNotFound:
			return FailureNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			return FailureUnauthorized
		}
	}
	return FailureUnknown
}
