package model

import (
	"context"
)

// Field names on the upstream vacancy payload that this service reads or writes.
const (
	FieldShortcode       = "shortcode"
	FieldTitle           = "title"
	FieldFullDescription = "full_description"
)

// Vacancy is a single job posting exactly as returned by the Workable API,
// plus the full_description field populated from the detail endpoint.
type Vacancy map[string]any

// Shortcode returns the upstream short identifier, or "" when absent.
func (v Vacancy) Shortcode() string {
	return v.stringField(FieldShortcode)
}

// Title returns the job title, or "" when absent.
func (v Vacancy) Title() string {
	return v.stringField(FieldTitle)
}

// FullDescription returns the enriched description and whether it is set.
func (v Vacancy) FullDescription() (string, bool) {
	raw, ok := v[FieldFullDescription]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

func (v Vacancy) stringField(name string) string {
	s, _ := v[name].(string)
	return s
}

// JSONGetter issues an authenticated GET against the upstream API and decodes
// the JSON body into v.
type JSONGetter interface {
	GetJSON(ctx context.Context, endpoint string, v any) error
}

// CacheStore is the external key-value store holding the cached snapshot.
// Get reports found=false for an absent key; an empty stored value is a hit.
type CacheStore interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}
