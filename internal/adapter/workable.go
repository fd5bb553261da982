package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/amishk599/vacancycache/internal/model"
	"github.com/amishk599/vacancycache/internal/ratelimit"
	"github.com/amishk599/vacancycache/internal/retry"
)

// Ensure WorkableAdapter implements model.JSONGetter.
var _ model.JSONGetter = (*WorkableAdapter)(nil)

const workableURLFormat = "https://%s.workable.com/spi/v3"

// WorkableURL returns the SPI v3 base URL for an account subdomain.
func WorkableURL(subdomain string) string {
	return fmt.Sprintf(workableURLFormat, subdomain)
}

// Option customizes a WorkableAdapter.
type Option func(*WorkableAdapter)

// WithBaseURL overrides the base URL derived from the subdomain.
func WithBaseURL(baseURL string) Option {
	return func(a *WorkableAdapter) {
		if baseURL != "" {
			a.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithRetrier replaces the default throttle retrier.
func WithRetrier(r *retry.Retrier) Option {
	return func(a *WorkableAdapter) { a.retrier = r }
}

// WithPacer spaces out requests before they are sent.
func WithPacer(p *ratelimit.Pacer) Option {
	return func(a *WorkableAdapter) { a.pacer = p }
}

// WorkableAdapter issues authenticated GETs against the Workable SPI and
// decodes JSON responses. Rate-limit exhaustion is waited out by its retrier.
type WorkableAdapter struct {
	baseURL string
	client  *http.Client
	retrier *retry.Retrier
	pacer   *ratelimit.Pacer
	logger  *slog.Logger
}

// NewWorkableAdapter creates an adapter for the given account. The access
// token is attached as a bearer token on every request via an oauth2
// transport layered over base's transport.
func NewWorkableAdapter(subdomain, accessToken string, base *http.Client, logger *slog.Logger, opts ...Option) *WorkableAdapter {
	if base == nil {
		base = &http.Client{}
	}
	a := &WorkableAdapter{
		baseURL: WorkableURL(subdomain),
		client: &http.Client{
			Timeout: base.Timeout,
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}),
				Base:   base.Transport,
			},
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.retrier == nil {
		a.retrier = retry.NewRetrier(retry.DefaultPolicy(), nil, logger)
	}
	return a
}

// BaseURL returns the immutable base URL requests are issued against.
func (a *WorkableAdapter) BaseURL() string {
	return a.baseURL
}

// GetJSON requests baseURL+endpoint and decodes the body into v.
func (a *WorkableAdapter) GetJSON(ctx context.Context, endpoint string, v any) error {
	return a.retrier.Do(ctx, func(ctx context.Context) error {
		return a.get(ctx, endpoint, v)
	})
}

// get performs a single attempt. An exhausted rate-limit window is reported
// before the status code is looked at, so a throttled 429 and a throttled 200
// are both re-issued.
func (a *WorkableAdapter) get(ctx context.Context, endpoint string, v any) error {
	if err := a.pacer.Wait(ctx); err != nil {
		return err
	}

	url := a.baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("workable request %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("workable request %s: %w", endpoint, ctx.Err())
		}
		return fmt.Errorf("workable request %s: %w: %v", endpoint, model.ErrTransport, err)
	}
	defer resp.Body.Close()

	if state, ok := ratelimit.ParseHeaders(resp.Header); ok && state.Exhausted() {
		return &model.RateLimitError{Endpoint: endpoint, ResetAt: state.ResetAt}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("workable request %s: reading body: %w: %v", endpoint, model.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: ratelimit.ParseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("workable request %s: unexpected status %d", endpoint, resp.StatusCode),
		}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("workable request %s: %w: %v", endpoint, model.ErrDecode, err)
	}

	a.logger.Debug("workable request ok", "endpoint", endpoint, "bytes", len(body))
	return nil
}
