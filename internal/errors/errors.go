// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failed GitHub request.
type Kind int

const (
	// KindUnknown is never attached to a FetchError; KindOf returns it for foreign errors.
	KindUnknown Kind = iota
	// ErrNotFound means the requested user (or resource) does not exist.
	ErrNotFound
	// ErrRateLimited covers primary and secondary rate limits.
	ErrRateLimited
	// ErrAPI is any other non-success status or a transport failure.
	ErrAPI
	// ErrMalformedResponse means the body was not JSON or had an unexpected shape.
	ErrMalformedResponse
)

func (k Kind) String() string {
	switch k {
	case ErrNotFound:
		return "not found"
	case ErrRateLimited:
		return "rate limited"
	case ErrAPI:
		return "api error"
	case ErrMalformedResponse:
		return "malformed response"
	default:
		return "unknown"
	}
}

// Error lets a Kind be used directly as an errors.Is target.
func (k Kind) Error() string {
	return k.String()
}

// FetchError is returned by every GitHub client operation.
type FetchError struct {
	Kind       Kind
	Op         string
	Username   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s %q: %s", e.Op, e.Username, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the Kind of this error.
func (e *FetchError) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf extracts the Kind from err, or KindUnknown if err is not a FetchError.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// ErrInvalidUsername is returned when a string is not a valid GitHub login.
type ErrInvalidUsername struct {
	Username string
	Reason   string
}

func (e *ErrInvalidUsername) Error() string {
	return fmt.Sprintf("invalid GitHub username %q: %s", e.Username, e.Reason)
}
