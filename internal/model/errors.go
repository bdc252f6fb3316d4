package model

import (
	"errors"
	"fmt"
)

// ErrNoListing is returned when a response decoded fine but contained no
// plausible listing collection, or a keyword filter matched nothing.
// It is a soft outcome: callers log it and move on without touching state.
var ErrNoListing = errors.New("no listing found")

// HTTPError wraps a non-2xx upstream response so callers can inspect the
// status and a snippet of the body.
type HTTPError struct {
	StatusCode int
	Snippet    string // first bytes of the response body
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
