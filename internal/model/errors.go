package model

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable means the database could not be reached or queried.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrMalformedResponse means the search API answered 200 with a body that
	// is not JSON or has no list-typed "data" field.
	ErrMalformedResponse = errors.New("malformed search response")

	// ErrLocked means another run holds the run lock.
	ErrLocked = errors.New("run already in progress")
)

// HTTPError wraps a non-200 status code returned by the search API.
type HTTPError struct {
	StatusCode int
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}
