package client

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies an upstream API failure so callers can decide
// between retrying, skipping the entity, or giving up without matching
// on error strings.
type ErrorKind int

const (
	// ErrorKindTransient covers network errors, timeouts, 5xx responses
	// and open-circuit rejections. Worth retrying.
	ErrorKindTransient ErrorKind = iota
	// ErrorKindRateLimited is an upstream 429. Worth retrying after a delay.
	ErrorKindRateLimited
	// ErrorKindNotFound is a 404. The entity does not exist upstream.
	ErrorKindNotFound
	// ErrorKindMalformed means the response body could not be decoded.
	ErrorKindMalformed
	// ErrorKindFatal covers auth failures and other non-retryable statuses.
	ErrorKindFatal
)

// String returns the kind name used in logs and metrics labels
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindTransient:
		return "transient"
	case ErrorKindRateLimited:
		return "rate_limited"
	case ErrorKindNotFound:
		return "not_found"
	case ErrorKindMalformed:
		return "malformed"
	case ErrorKindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// APIError is the typed error returned by all client calls
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	URL        string
	Message    string

	// RetryAfter is the delay requested by an upstream 429, zero otherwise
	RetryAfter time.Duration

	Err error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fightdata API %s error (status %d) for %s: %s", e.Kind, e.StatusCode, e.URL, e.Message)
	}
	return fmt.Sprintf("fightdata API %s error for %s: %s", e.Kind, e.URL, e.Message)
}

// Unwrap returns the underlying error, if any
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true for errors worth retrying with backoff
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind == ErrorKindTransient || apiErr.Kind == ErrorKindRateLimited
	}
	return false
}

// IsNotFound returns true if the entity does not exist upstream
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind == ErrorKindNotFound
	}
	return false
}
