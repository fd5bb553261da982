package store

import "context"

// NopStore is a no-op store used in dry-run mode. It never holds a value,
// so every read is a miss and writes are discarded.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) Get(_ context.Context, _ string) ([]byte, bool, error) { return nil, false, nil }
func (s *NopStore) Set(_ context.Context, _ string, _ []byte) error        { return nil }
