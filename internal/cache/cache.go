package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/amishk599/vacancycache/internal/model"
)

// DefaultKey is the well-known key the vacancy snapshot lives under.
const DefaultKey = "workable_vacancies"

// Loader rebuilds the vacancy collection on a cache miss. Implementations are
// expected to write the result back through the cache themselves.
type Loader interface {
	FetchVacancies(ctx context.Context) ([]model.Vacancy, error)
}

// VacancyCache reads and writes the vacancy snapshot under a single key.
// An empty collection is a valid cached value and is distinct from a miss.
type VacancyCache struct {
	store  model.CacheStore
	key    string
	group  singleflight.Group
	logger *slog.Logger
}

// New creates a cache over store. An empty key uses DefaultKey.
func New(store model.CacheStore, key string, logger *slog.Logger) *VacancyCache {
	if key == "" {
		key = DefaultKey
	}
	return &VacancyCache{
		store:  store,
		key:    key,
		logger: logger,
	}
}

// Key returns the cache key in use.
func (c *VacancyCache) Key() string {
	return c.key
}

// Read returns the cached collection. found is false when the key is absent
// or the stored payload cannot be decoded as a collection.
func (c *VacancyCache) Read(ctx context.Context) ([]model.Vacancy, bool, error) {
	raw, found, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", c.key, err)
	}
	if !found {
		return nil, false, nil
	}

	vacancies, err := decode(raw)
	if err != nil {
		c.logger.Warn("discarding unreadable cached vacancies", "key", c.key, "error", err)
		return nil, false, nil
	}
	return vacancies, true, nil
}

// ReadThrough returns the cached collection, or on a miss synchronously
// invokes loader and returns its result. Concurrent misses share one load.
func (c *VacancyCache) ReadThrough(ctx context.Context, loader Loader) ([]model.Vacancy, error) {
	vacancies, found, err := c.Read(ctx)
	if err != nil {
		c.logger.Warn("cache read failed, treating as miss", "key", c.key, "error", err)
	}
	if found {
		return vacancies, nil
	}

	c.logger.Info("vacancy cache miss, refreshing synchronously", "key", c.key)
	// The shared load outlives any single caller; each caller stops waiting
	// when its own context ends.
	ch := c.group.DoChan(c.key, func() (any, error) {
		return loader.FetchVacancies(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("loading vacancies on cache miss: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("loading vacancies on cache miss: %w", res.Err)
		}
		if res.Shared {
			c.logger.Debug("joined in-flight vacancy refresh", "key", c.key)
		}
		return res.Val.([]model.Vacancy), nil
	}
}

// Write overwrites the cached collection. No expiry is set here; any expiry
// is the store's own policy.
func (c *VacancyCache) Write(ctx context.Context, vacancies []model.Vacancy) error {
	raw, err := encode(vacancies)
	if err != nil {
		return fmt.Errorf("encoding vacancies: %w", err)
	}
	if err := c.store.Set(ctx, c.key, raw); err != nil {
		return fmt.Errorf("writing %s: %w", c.key, err)
	}
	return nil
}

// encode always produces a JSON array; a nil collection is stored as [].
func encode(vacancies []model.Vacancy) ([]byte, error) {
	if vacancies == nil {
		vacancies = []model.Vacancy{}
	}
	return json.Marshal(vacancies)
}

func decode(raw []byte) ([]model.Vacancy, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var vacancies []model.Vacancy
	if err := dec.Decode(&vacancies); err != nil {
		return nil, err
	}
	// A stored "null" decodes to a nil slice and is not a collection.
	if vacancies == nil {
		return nil, fmt.Errorf("stored value is null")
	}
	return vacancies, nil
}
