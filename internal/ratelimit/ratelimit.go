package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Workable rate-limit response headers.
const (
	HeaderRemaining = "X-Rate-Limit-Remaining"
	HeaderReset     = "X-Rate-Limit-Reset"
)

// DefaultResetPadding is added to the upstream reset timestamp before retrying.
const DefaultResetPadding = 3 * time.Second

// State is the rate-limit window reported by a single response.
type State struct {
	Remaining int
	ResetAt   time.Time
}

// Exhausted reports whether no requests remain in the current window.
func (s State) Exhausted() bool {
	return s.Remaining == 0
}

// ParseHeaders reads the rate-limit headers. ok is false unless both headers
// are present and numeric.
func ParseHeaders(h http.Header) (State, bool) {
	rawRemaining := strings.TrimSpace(h.Get(HeaderRemaining))
	rawReset := strings.TrimSpace(h.Get(HeaderReset))
	if rawRemaining == "" || rawReset == "" {
		return State{}, false
	}

	remaining, err := strconv.Atoi(rawRemaining)
	if err != nil {
		return State{}, false
	}
	reset, err := strconv.ParseInt(rawReset, 10, 64)
	if err != nil {
		return State{}, false
	}

	return State{Remaining: remaining, ResetAt: time.Unix(reset, 0)}, true
}

// ParseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func ParseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// Clock abstracts wall-clock reads and waits so throttling can be tested
// without real sleeps.
type Clock interface {
	Now() time.Time
	SleepUntil(ctx context.Context, t time.Time) error
}

// SystemClock is the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// SleepUntil blocks until t or until ctx is cancelled.
func (SystemClock) SleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("waiting for rate limit reset: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// Pacer spaces out outgoing requests with a token bucket so the upstream
// window is exhausted less often. A nil Pacer never waits.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer returns a pacer allowing perSecond requests with the given burst.
// perSecond <= 0 disables pacing and returns nil.
func NewPacer(perSecond float64, burst int) *Pacer {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Wait blocks until the next request is allowed.
// Returns an error if the context is cancelled while waiting.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("request pacing: %w", err)
	}
	return nil
}
