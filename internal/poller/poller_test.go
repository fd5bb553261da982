package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/amishk599/vacancycache/internal/cache"
	"github.com/amishk599/vacancycache/internal/model"
	"github.com/amishk599/vacancycache/internal/store"
)

// --- Mock/Fake Implementations ---

// FakeGetter serves canned JSON bodies per endpoint and records request order.
type FakeGetter struct {
	mu        sync.Mutex
	Responses map[string]string
	Errors    map[string]error
	Requests  []string
	// OnRequest runs before each response, e.g. to cancel a context mid-cycle.
	OnRequest func(endpoint string)
}

func (g *FakeGetter) GetJSON(_ context.Context, endpoint string, v any) error {
	g.mu.Lock()
	g.Requests = append(g.Requests, endpoint)
	hook := g.OnRequest
	g.mu.Unlock()
	if hook != nil {
		hook(endpoint)
	}

	if err, ok := g.Errors[endpoint]; ok {
		return err
	}
	body, ok := g.Responses[endpoint]
	if !ok {
		return &model.HTTPError{StatusCode: 404, Err: fmt.Errorf("no fake for %s", endpoint)}
	}
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", model.ErrDecode, err)
	}
	return nil
}

// RecordingWriter keeps every collection written to it.
type RecordingWriter struct {
	Writes [][]model.Vacancy
	Err    error
}

func (w *RecordingWriter) Write(_ context.Context, vacancies []model.Vacancy) error {
	if w.Err != nil {
		return w.Err
	}
	w.Writes = append(w.Writes, vacancies)
	return nil
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func listing(shortcodes ...string) string {
	jobs := make([]string, len(shortcodes))
	for i, sc := range shortcodes {
		jobs[i] = fmt.Sprintf(`{"shortcode":%q,"title":"Role %s","id":"%d"}`, sc, sc, i)
	}
	return `{"jobs":[` + strings.Join(jobs, ",") + `],"paging":{}}`
}

func detail(desc string) string {
	return fmt.Sprintf(`{"shortcode":"X","full_description":%q}`, desc)
}

func assertAllHaveDescription(t *testing.T, vacancies []model.Vacancy) {
	t.Helper()
	for i, v := range vacancies {
		if _, ok := v.FullDescription(); !ok {
			t.Errorf("vacancy %d (%s) has no string full_description: %#v", i, v.Shortcode(), v[model.FieldFullDescription])
		}
	}
}

// --- Tests ---

func TestFetchVacancies_MergesDescriptionsInListingOrder(t *testing.T) {
	getter := &FakeGetter{Responses: map[string]string{
		listEndpoint: listing("C3", "A1", "B2"),
		"/jobs/C3":   detail("<p>C</p>"),
		"/jobs/A1":   detail("<p>A</p>"),
		"/jobs/B2":   detail("<p>B</p>"),
	}}
	writer := &RecordingWriter{}
	p := NewVacancyPoller(getter, writer, discardLogger())

	got, err := p.FetchVacancies(context.Background())
	if err != nil {
		t.Fatalf("FetchVacancies: %v", err)
	}

	wantOrder := []string{"C3", "A1", "B2"}
	if len(got) != len(wantOrder) {
		t.Fatalf("got %d vacancies, want %d", len(got), len(wantOrder))
	}
	for i, sc := range wantOrder {
		if got[i].Shortcode() != sc {
			t.Errorf("vacancy[%d] = %s, want %s", i, got[i].Shortcode(), sc)
		}
	}
	if desc, _ := got[1].FullDescription(); desc != "<p>A</p>" {
		t.Errorf("A1 description = %q", desc)
	}
	if got[0].Title() != "Role C3" {
		t.Errorf("upstream fields not preserved: %#v", got[0])
	}
	assertAllHaveDescription(t, got)

	wantRequests := []string{listEndpoint, "/jobs/C3", "/jobs/A1", "/jobs/B2"}
	if strings.Join(getter.Requests, " ") != strings.Join(wantRequests, " ") {
		t.Errorf("requests = %v, want %v", getter.Requests, wantRequests)
	}

	if len(writer.Writes) != 1 || len(writer.Writes[0]) != 3 {
		t.Fatalf("expected one write of 3 vacancies, got %+v", writer.Writes)
	}
}

func TestFetchVacancies_DetailFailureDegradesOneEntry(t *testing.T) {
	getter := &FakeGetter{
		Responses: map[string]string{
			listEndpoint: listing("A1", "B2", "C3"),
			"/jobs/A1":   detail("a"),
			"/jobs/C3":   detail("c"),
		},
		Errors: map[string]error{
			"/jobs/B2": fmt.Errorf("dial tcp: %w", model.ErrTransport),
		},
	}
	p := NewVacancyPoller(getter, &RecordingWriter{}, discardLogger())

	got, err := p.FetchVacancies(context.Background())
	if err != nil {
		t.Fatalf("FetchVacancies: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d vacancies, want 3", len(got))
	}
	want := []string{"a", "", "c"}
	for i, w := range want {
		desc, ok := got[i].FullDescription()
		if !ok || desc != w {
			t.Errorf("vacancy[%d] description = %q (set=%v), want %q", i, desc, ok, w)
		}
	}
}

func TestFetchVacancies_DetailWithoutDescriptionField(t *testing.T) {
	getter := &FakeGetter{Responses: map[string]string{
		listEndpoint: listing("A1"),
		"/jobs/A1":   `{"shortcode":"A1","full_description":null}`,
	}}
	p := NewVacancyPoller(getter, &RecordingWriter{}, discardLogger())

	got, err := p.FetchVacancies(context.Background())
	if err != nil {
		t.Fatalf("FetchVacancies: %v", err)
	}
	if desc, ok := got[0].FullDescription(); !ok || desc != "" {
		t.Errorf("description = %q (set=%v), want empty string", desc, ok)
	}
}

func TestFetchVacancies_MissingShortcodeSkipsDetailRequest(t *testing.T) {
	getter := &FakeGetter{Responses: map[string]string{
		listEndpoint: `{"jobs":[{"title":"No code"}]}`,
	}}
	p := NewVacancyPoller(getter, &RecordingWriter{}, discardLogger())

	got, err := p.FetchVacancies(context.Background())
	if err != nil {
		t.Fatalf("FetchVacancies: %v", err)
	}
	if len(getter.Requests) != 1 {
		t.Errorf("expected only the list request, got %v", getter.Requests)
	}
	assertAllHaveDescription(t, got)
}

func TestFetchVacancies_EscapesShortcodeInPath(t *testing.T) {
	getter := &FakeGetter{Responses: map[string]string{
		listEndpoint:  `{"jobs":[{"shortcode":"A/1"}]}`,
		"/jobs/A%2F1": detail("escaped"),
	}}
	p := NewVacancyPoller(getter, &RecordingWriter{}, discardLogger())

	got, err := p.FetchVacancies(context.Background())
	if err != nil {
		t.Fatalf("FetchVacancies: %v", err)
	}
	if desc, _ := got[0].FullDescription(); desc != "escaped" {
		t.Errorf("description = %q, requests = %v", desc, getter.Requests)
	}
}

func TestFetchVacancies_ListFailureWritesNothing(t *testing.T) {
	getter := &FakeGetter{Errors: map[string]error{
		listEndpoint: &model.HTTPError{StatusCode: 500, Err: errors.New("boom")},
	}}
	writer := &RecordingWriter{}
	p := NewVacancyPoller(getter, writer, discardLogger())

	if _, err := p.FetchVacancies(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	}
	if len(writer.Writes) != 0 {
		t.Errorf("expected no cache writes, got %d", len(writer.Writes))
	}
}

func TestRefresh_ListFailureKeepsPreviousSnapshot(t *testing.T) {
	s := store.NewMemoryStore(0)
	c := cache.New(s, "", discardLogger())
	ctx := context.Background()

	ok := &FakeGetter{Responses: map[string]string{
		listEndpoint: listing("A1"),
		"/jobs/A1":   detail("a"),
	}}
	if err := NewVacancyPoller(ok, c, discardLogger()).Refresh(ctx); err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	before, _, _ := s.Get(ctx, cache.DefaultKey)

	failing := &FakeGetter{Errors: map[string]error{listEndpoint: model.ErrTransport}}
	if err := NewVacancyPoller(failing, c, discardLogger()).Refresh(ctx); err == nil {
		t.Fatal("expected failed refresh")
	}

	after, _, _ := s.Get(ctx, cache.DefaultKey)
	if !bytes.Equal(before, after) {
		t.Errorf("snapshot changed after failed refresh:\nbefore %s\nafter  %s", before, after)
	}
}

func TestFetchVacancies_MalformedJobsIsDecodeFailure(t *testing.T) {
	getter := &FakeGetter{Responses: map[string]string{
		listEndpoint: `{"jobs":"nope"}`,
	}}
	writer := &RecordingWriter{}
	p := NewVacancyPoller(getter, writer, discardLogger())

	_, err := p.FetchVacancies(context.Background())
	if !errors.Is(err, model.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if len(writer.Writes) != 0 {
		t.Error("expected no cache write on decode failure")
	}
}

func TestFetchVacancies_EmptyListingIsCachedAndServed(t *testing.T) {
	getter := &FakeGetter{Responses: map[string]string{
		listEndpoint: `{"jobs":[]}`,
	}}
	s := store.NewMemoryStore(0)
	c := cache.New(s, "", discardLogger())
	p := NewVacancyPoller(getter, c, discardLogger())
	ctx := context.Background()

	got, err := p.FetchVacancies(ctx)
	if err != nil {
		t.Fatalf("FetchVacancies: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty collection, got %#v", got)
	}
	raw, found, _ := s.Get(ctx, cache.DefaultKey)
	if !found || string(raw) != "[]" {
		t.Fatalf("cached %q (found=%v), want []", raw, found)
	}

	// A read after an empty refresh is a hit and must not fetch again.
	requests := len(getter.Requests)
	read, err := c.ReadThrough(ctx, p)
	if err != nil {
		t.Fatalf("ReadThrough: %v", err)
	}
	if len(read) != 0 {
		t.Errorf("ReadThrough = %v, want empty", read)
	}
	if len(getter.Requests) != requests {
		t.Errorf("empty cache hit triggered %d extra requests", len(getter.Requests)-requests)
	}
}

func TestFetchVacancies_ListingWithoutJobsField(t *testing.T) {
	getter := &FakeGetter{Responses: map[string]string{listEndpoint: `{}`}}
	writer := &RecordingWriter{}
	p := NewVacancyPoller(getter, writer, discardLogger())

	got, err := p.FetchVacancies(context.Background())
	if err != nil {
		t.Fatalf("FetchVacancies: %v", err)
	}
	if len(got) != 0 || len(writer.Writes) != 1 {
		t.Errorf("expected empty collection written once, got %v / %d writes", got, len(writer.Writes))
	}
}

func TestRefresh_IdempotentSnapshots(t *testing.T) {
	responses := map[string]string{
		listEndpoint: listing("A1", "B2"),
		"/jobs/A1":   `{"full_description":"<p>A</p>","salary":{"min":120000.50}}`,
		"/jobs/B2":   detail("b"),
	}
	s := store.NewMemoryStore(0)
	c := cache.New(s, "", discardLogger())
	p := NewVacancyPoller(&FakeGetter{Responses: responses}, c, discardLogger())
	ctx := context.Background()

	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	first, _, _ := s.Get(ctx, cache.DefaultKey)

	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	second, _, _ := s.Get(ctx, cache.DefaultKey)

	if !bytes.Equal(first, second) {
		t.Errorf("snapshots differ:\n%s\n%s", first, second)
	}
}

func TestFetchVacancies_CancelledMidCycleWritesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	getter := &FakeGetter{
		Responses: map[string]string{
			listEndpoint: listing("A1", "B2"),
			"/jobs/A1":   detail("a"),
		},
		Errors: map[string]error{"/jobs/B2": context.Canceled},
		OnRequest: func(endpoint string) {
			if endpoint == "/jobs/B2" {
				cancel()
			}
		},
	}
	writer := &RecordingWriter{}
	p := NewVacancyPoller(getter, writer, discardLogger())

	_, err := p.FetchVacancies(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(writer.Writes) != 0 {
		t.Error("expected no cache write after cancellation")
	}
}

func TestFetchVacancies_WriteFailureIsReported(t *testing.T) {
	getter := &FakeGetter{Responses: map[string]string{listEndpoint: `{"jobs":[]}`}}
	p := NewVacancyPoller(getter, &RecordingWriter{Err: errors.New("disk full")}, discardLogger())

	if _, err := p.FetchVacancies(context.Background()); err == nil {
		t.Fatal("expected error when the cache write fails")
	}
}
