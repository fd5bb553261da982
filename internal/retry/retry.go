package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/amishk599/vacancycache/internal/model"
	"github.com/amishk599/vacancycache/internal/ratelimit"
)

// Policy bounds how often a request is re-issued.
type Policy struct {
	// MaxThrottleRetries caps re-issues after a rate-limit exhaustion response.
	MaxThrottleRetries int
	// ResetPadding is added to the upstream reset timestamp before re-issuing.
	ResetPadding time.Duration
	// TransientAttempts is the number of extra attempts for transport errors,
	// 5xx and plain 429s. Zero disables transient retries.
	TransientAttempts int
	// BaseDelay is the first transient backoff, doubled on each attempt.
	BaseDelay time.Duration
}

// DefaultPolicy waits out rate-limit windows up to five times and never
// retries other failures.
func DefaultPolicy() Policy {
	return Policy{
		MaxThrottleRetries: 5,
		ResetPadding:       ratelimit.DefaultResetPadding,
		BaseDelay:          5 * time.Second,
	}
}

// Retrier re-issues an operation after rate-limit exhaustion, sleeping until
// the window resets, and optionally after transient failures with
// exponential backoff and jitter.
type Retrier struct {
	policy Policy
	clock  ratelimit.Clock
	logger *slog.Logger
}

// NewRetrier creates a retrier. A nil clock uses the system clock.
func NewRetrier(policy Policy, clock ratelimit.Clock, logger *slog.Logger) *Retrier {
	if clock == nil {
		clock = ratelimit.SystemClock{}
	}
	return &Retrier{
		policy: policy,
		clock:  clock,
		logger: logger,
	}
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// relevant retry budget is spent.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	throttled, transient := 0, 0

	for {
		err := op(ctx)
		if err == nil {
			return nil
		}

		var rlErr *model.RateLimitError
		if errors.As(err, &rlErr) {
			if throttled >= r.policy.MaxThrottleRetries {
				return fmt.Errorf("giving up after %d throttled retries: %w", throttled, err)
			}
			throttled++

			until := rlErr.ResetAt.Add(r.policy.ResetPadding)
			r.logger.Warn("rate limit reached, waiting for reset",
				"endpoint", rlErr.Endpoint,
				"attempt", throttled,
				"max_retries", r.policy.MaxThrottleRetries,
				"until", until,
				"wait", until.Sub(r.clock.Now()).Round(time.Second),
			)
			if err := r.clock.SleepUntil(ctx, until); err != nil {
				return err
			}
			continue
		}

		if !isRetryable(err) || transient >= r.policy.TransientAttempts {
			return err
		}
		transient++

		delay := r.backoffDelay(transient, err)
		r.logger.Warn("retrying after transient error",
			"attempt", transient,
			"max_retries", r.policy.TransientAttempts,
			"delay", delay,
			"error", err,
		)
		if err := r.clock.SleepUntil(ctx, r.clock.Now().Add(delay)); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// If the error includes a Retry-After duration (HTTP 429), that takes precedence.
func (r *Retrier) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	// Exponential: baseDelay * 2^(attempt-1)
	delay := r.policy.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// isRetryable returns true if the error represents a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation is never retried.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// A body that is not JSON will not become JSON on a second try.
	if errors.Is(err, model.ErrDecode) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == 429 || httpErr.StatusCode >= 500
	}

	return errors.Is(err, model.ErrTransport)
}
