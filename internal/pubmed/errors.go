// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the E-utilities client.
var (
	// ErrEmptyTerm indicates a search was attempted without a term.
	ErrEmptyTerm = errors.New("empty search term")

	// ErrRateLimited indicates the request budget was exceeded even after retries.
	ErrRateLimited = errors.New("E-utilities rate limit exceeded")

	// ErrNetwork indicates a transport failure.
	ErrNetwork = errors.New("network error communicating with E-utilities")

	// ErrInvalidResponse indicates a response body that could not be parsed.
	ErrInvalidResponse = errors.New("invalid response from E-utilities")
)

// APIError is a non-200 response or an error document returned by an
// E-utilities endpoint.
type APIError struct {
	StatusCode int
	Endpoint   string // e.g. "esearch.fcgi"
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("E-utilities %s error: %s", e.Endpoint, e.Message)
	}
	return fmt.Sprintf("E-utilities %s returned HTTP %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// Unwrap maps throttling responses onto ErrRateLimited.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	return nil
}
