package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/vacancycache/internal/model"
)

const listEndpoint = "/jobs?state=published"

var (
	errMissingShortcode = errors.New("vacancy has no shortcode")
	errNoDescription    = errors.New("detail has no full_description")
)

// Writer persists a freshly built collection.
type Writer interface {
	Write(ctx context.Context, vacancies []model.Vacancy) error
}

// VacancyPoller owns the full refresh pipeline:
// list published → fetch each description → merge → write cache.
type VacancyPoller struct {
	client model.JSONGetter
	cache  Writer
	logger *slog.Logger
}

// NewVacancyPoller creates a poller wired with all its dependencies.
func NewVacancyPoller(client model.JSONGetter, cache Writer, logger *slog.Logger) *VacancyPoller {
	return &VacancyPoller{
		client: client,
		cache:  cache,
		logger: logger,
	}
}

// Refresh runs one cycle for its cache side effect only.
func (p *VacancyPoller) Refresh(ctx context.Context) error {
	_, err := p.FetchVacancies(ctx)
	return err
}

// FetchVacancies runs one refresh cycle and returns the collection it cached.
// A failed listing aborts the cycle before anything is written; a failed
// detail request only blanks that vacancy's description.
func (p *VacancyPoller) FetchVacancies(ctx context.Context) ([]model.Vacancy, error) {
	logger := p.logger.With("cycle_id", uuid.NewString())
	start := time.Now()

	var listing map[string]json.RawMessage
	if err := p.client.GetJSON(ctx, listEndpoint, &listing); err != nil {
		return nil, fmt.Errorf("listing published vacancies: %w", err)
	}

	jobs, err := decodeJobs(listing)
	if err != nil {
		return nil, fmt.Errorf("listing published vacancies: %w", err)
	}

	vacancies := make([]model.Vacancy, 0, len(jobs))
	degraded := 0
	for _, v := range jobs {
		if v == nil {
			v = model.Vacancy{}
		}

		desc, err := p.description(ctx, v.Shortcode())
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("refresh cancelled: %w", ctx.Err())
			}
			degraded++
			level := slog.LevelWarn
			if errors.Is(err, errNoDescription) {
				level = slog.LevelDebug
			}
			logger.Log(ctx, level, "vacancy description unavailable",
				"shortcode", v.Shortcode(),
				"title", v.Title(),
				"error", err,
			)
		}
		v[model.FieldFullDescription] = desc
		vacancies = append(vacancies, v)
	}

	if err := p.cache.Write(ctx, vacancies); err != nil {
		return nil, fmt.Errorf("caching vacancies: %w", err)
	}

	logger.Info("refreshed vacancies",
		"fetched", len(vacancies),
		"without_description", degraded,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return vacancies, nil
}

// description fetches one vacancy's full_description. It returns "" with a
// non-nil error whenever the value cannot be obtained.
func (p *VacancyPoller) description(ctx context.Context, shortcode string) (string, error) {
	if shortcode == "" {
		return "", errMissingShortcode
	}

	var detail map[string]any
	if err := p.client.GetJSON(ctx, "/jobs/"+url.PathEscape(shortcode), &detail); err != nil {
		return "", err
	}

	desc, ok := detail[model.FieldFullDescription].(string)
	if !ok {
		return "", errNoDescription
	}
	return desc, nil
}

// decodeJobs extracts the "jobs" array. A listing without the field is an
// empty collection, not an error.
func decodeJobs(listing map[string]json.RawMessage) ([]model.Vacancy, error) {
	raw, ok := listing["jobs"]
	if !ok {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var jobs []model.Vacancy
	if err := dec.Decode(&jobs); err != nil {
		return nil, fmt.Errorf("decoding jobs: %w: %v", model.ErrDecode, err)
	}
	return jobs, nil
}
