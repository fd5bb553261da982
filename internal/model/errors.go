package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTransport marks a request that never produced an HTTP response.
	ErrTransport = errors.New("transport failure")
	// ErrDecode marks a response body that is not valid JSON for the target.
	ErrDecode = errors.New("decode failure")
	// ErrRateLimited is returned once the throttle retry budget is spent.
	ErrRateLimited = errors.New("rate limit exhausted")
	// ErrNotConfigured is returned by an inert service with nothing cached.
	ErrNotConfigured = errors.New("workable integration not configured")
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
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

// RateLimitError reports a response whose X-Rate-Limit-Remaining was zero.
// ResetAt is the upstream reset timestamp from X-Rate-Limit-Reset.
type RateLimitError struct {
	Endpoint string
	ResetAt  time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit reached for %s, resets at %s", e.Endpoint, e.ResetAt.UTC().Format(time.RFC3339))
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}
