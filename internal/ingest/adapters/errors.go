package adapters

import (
	"errors"
	"fmt"
)

// ErrorKind classifies adapter failures.
type ErrorKind string

const (
	ErrNetwork           ErrorKind = "network"
	ErrAuth              ErrorKind = "auth"
	ErrRateLimited       ErrorKind = "rate_limited"
	ErrMalformedResponse ErrorKind = "malformed_response"
)

// Error is a classified adapter failure. The kind decides retryability:
// network and rate-limit failures are transient, auth and malformed
// responses are not.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// Error implements error.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("adapter %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("adapter %s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// NewError constructs a classified adapter error.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the error kind, or "" when err is not an adapter error.
func KindOf(err error) ErrorKind {
	var adapterErr *Error
	if errors.As(err, &adapterErr) {
		return adapterErr.Kind
	}
	return ""
}

// IsAdapterError reports whether err carries an adapter classification.
func IsAdapterError(err error) bool {
	var adapterErr *Error
	return errors.As(err, &adapterErr)
}
