package store

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/amishk599/vacancycache/internal/model"
)

var _ model.CacheStore = (*MemoryStore)(nil)

// MemoryStore is an in-process store backed by go-cache. Entries live for ttl;
// a zero ttl keeps them until overwritten.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	expiration := ttl
	cleanup := 10 * time.Minute
	if ttl <= 0 {
		expiration = cache.NoExpiration
		cleanup = 0
	}
	return &MemoryStore{cache: cache.New(expiration, cleanup)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, found := s.cache.Get(key)
	if !found {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	return b, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	// Copy so later mutation by the caller cannot change the cached snapshot.
	s.cache.SetDefault(key, append([]byte(nil), value...))
	return nil
}
