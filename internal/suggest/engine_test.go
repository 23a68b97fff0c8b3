package suggest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fakestore/storesearch/internal/backend"
)

// --- Mocks ---

type mockBackend struct {
	mu     sync.Mutex
	calls  []*backend.Request
	hits   []backend.Hit
	hitsFn func(query string) []backend.Hit
	err    error
	gates  map[string]chan struct{} // per-query block, released by the test
}

func (m *mockBackend) Search(_ context.Context, req *backend.Request) (*backend.Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	gate := m.gates[req.Query]
	hits, hitsFn, err := m.hits, m.hitsFn, m.err
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if hitsFn != nil {
		hits = hitsFn(req.Query)
	}
	return &backend.Response{Hits: hits, Total: len(hits)}, nil
}

func (m *mockBackend) FacetCounts(context.Context, backend.Target, string) (map[string]int, error) {
	return nil, nil
}

func (m *mockBackend) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockBackend) lastQuery() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return ""
	}
	return m.calls[len(m.calls)-1].Query
}

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", d)
}

// --- Lookup tests ---

func TestLookup_PoolScanOrder(t *testing.T) {
	be := &mockBackend{hits: []backend.Hit{
		{"name": "Shoe A", "brand": "Shine Co", "category": "shoes", "rating": "4.5"},
		{"name": "Shirt B", "brand": "Other", "category": "clothing", "rating": "3.9"},
	}}
	e := New(be, nil, Options{})

	got, err := e.Lookup(context.Background(), "sh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// All matching names come before any matching brand.
	want := []string{"Shoe A", "Shirt B", "Shine Co"}
	if len(got) != len(want) {
		t.Fatalf("got %d suggestions, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Text != want[i] {
			t.Errorf("suggestion[%d] = %q, want %q", i, got[i].Text, want[i])
		}
	}
}

func TestLookup_CapsAtMaxSuggestions(t *testing.T) {
	be := &mockBackend{hits: []backend.Hit{
		{"name": "Shoe A"}, {"name": "Shoe B"}, {"name": "Shoe C"}, {"name": "Shoe D"},
	}}
	e := New(be, nil, Options{})

	got, err := e.Lookup(context.Background(), "shoe")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != DefaultMaxSuggestions {
		t.Errorf("got %d suggestions, want %d", len(got), DefaultMaxSuggestions)
	}
}

func TestLookup_DedupesCandidates(t *testing.T) {
	be := &mockBackend{hits: []backend.Hit{
		{"name": "Widget", "brand": "Acme"},
		{"name": "Gadget", "brand": "Acme"},
	}}
	e := New(be, nil, Options{})

	got, err := e.Lookup(context.Background(), "ac")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Text != "Acme" {
		t.Errorf("got %v, want single Acme", got)
	}
}

func TestLookup_CaseInsensitive(t *testing.T) {
	be := &mockBackend{hits: []backend.Hit{{"name": "SHIRT"}}}
	e := New(be, nil, Options{})

	got, err := e.Lookup(context.Background(), "shirt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %v, want one match", got)
	}
}

func TestLookup_OutOfRangeInput(t *testing.T) {
	be := &mockBackend{}
	e := New(be, nil, Options{})

	for _, input := range []string{"", "   ", "toolong"} {
		got, err := e.Lookup(context.Background(), input)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", input, err)
		}
		if got != nil {
			t.Errorf("input %q: got %v, want nil", input, got)
		}
	}
	if be.callCount() != 0 {
		t.Errorf("out-of-range input must not reach the backend, got %d calls", be.callCount())
	}
}

func TestLookup_TrimsInput(t *testing.T) {
	be := &mockBackend{hits: []backend.Hit{{"name": "Shirt"}}}
	e := New(be, nil, Options{})

	if _, err := e.Lookup(context.Background(), "  shirt  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if be.lastQuery() != "shirt" {
		t.Errorf("query = %q, want trimmed %q", be.lastQuery(), "shirt")
	}
}

func TestLookup_BackendError(t *testing.T) {
	be := &mockBackend{err: errors.New("connection refused")}
	e := New(be, nil, Options{})

	if _, err := e.Lookup(context.Background(), "sh"); err == nil {
		t.Fatal("expected error")
	}
}

func TestLookup_NoFacetsRequested(t *testing.T) {
	be := &mockBackend{}
	e := New(be, nil, Options{})

	if _, err := e.Lookup(context.Background(), "sh"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if be.calls[0].Facets != nil {
		t.Errorf("pool lookup requested facets: %v", be.calls[0].Facets)
	}
}

func TestLookup_UsesPoolSize(t *testing.T) {
	be := &mockBackend{}
	e := New(be, nil, Options{PoolSize: 25})

	if _, err := e.Lookup(context.Background(), "sh"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if be.calls[0].PageSize != 25 {
		t.Errorf("pageSize = %d, want pool size 25", be.calls[0].PageSize)
	}
}

// --- Debounce and staleness tests ---

func TestSuggest_DebounceCollapsesKeystrokes(t *testing.T) {
	be := &mockBackend{hits: []backend.Hit{{"name": "Apple"}}}
	e := New(be, nil, Options{Debounce: 20 * time.Millisecond})
	defer e.Stop()

	e.Suggest("a")
	e.Suggest("ap")
	e.Suggest("app")

	waitFor(t, time.Second, func() bool { return be.callCount() == 1 })
	if got := be.lastQuery(); got != "app" {
		t.Errorf("query = %q, want only the final input %q", got, "app")
	}

	// No further lookups once the window is quiet.
	time.Sleep(60 * time.Millisecond)
	if be.callCount() != 1 {
		t.Errorf("calls = %d, want 1", be.callCount())
	}

	waitFor(t, time.Second, func() bool { return len(e.Current()) == 1 })
	select {
	case got := <-e.Updates():
		if len(got) != 1 || got[0].Text != "Apple" {
			t.Errorf("update = %v, want [Apple]", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no update published")
	}
}

func TestSuggest_StaleLookupDropped(t *testing.T) {
	be := &mockBackend{
		hitsFn: func(q string) []backend.Hit { return []backend.Hit{{"name": q + " result"}} },
		gates: map[string]chan struct{}{
			"ab":  make(chan struct{}),
			"abc": make(chan struct{}),
		},
	}
	e := New(be, nil, Options{Debounce: 5 * time.Millisecond})
	defer e.Stop()

	e.Suggest("ab")
	waitFor(t, time.Second, func() bool { return be.callCount() == 1 })

	e.Suggest("abc")
	waitFor(t, time.Second, func() bool { return be.callCount() == 2 })

	// The newer lookup resolves first and commits.
	close(be.gates["abc"])
	waitFor(t, time.Second, func() bool {
		cur := e.Current()
		return len(cur) == 1 && cur[0].Text == "abc result"
	})

	// The older lookup resolves late; it must not clobber newer results.
	close(be.gates["ab"])
	time.Sleep(50 * time.Millisecond)
	if cur := e.Current(); len(cur) != 1 || cur[0].Text != "abc result" {
		t.Errorf("stale lookup overwrote current suggestions: %v", cur)
	}
}

func TestSuggest_KeystrokeInvalidatesInFlightLookup(t *testing.T) {
	be := &mockBackend{
		hitsFn: func(q string) []backend.Hit { return []backend.Hit{{"name": q + " result"}} },
		gates:  map[string]chan struct{}{"ab": make(chan struct{})},
	}
	e := New(be, nil, Options{Debounce: 50 * time.Millisecond})
	defer e.Stop()

	e.Suggest("ab")
	waitFor(t, time.Second, func() bool { return be.callCount() == 1 })

	// A newer keystroke arrives while its own debounce window is still
	// pending; the blocked lookup resolves before that window elapses.
	e.Suggest("abc")
	close(be.gates["ab"])

	time.Sleep(20 * time.Millisecond)
	if cur := e.Current(); len(cur) == 1 && cur[0].Text == "ab result" {
		t.Errorf("superseded lookup committed after newer input: %v", cur)
	}

	// The newer input's own lookup still lands.
	waitFor(t, time.Second, func() bool {
		cur := e.Current()
		return len(cur) == 1 && cur[0].Text == "abc result"
	})
}

func TestSuggest_OutOfRangeClearsAndInvalidates(t *testing.T) {
	be := &mockBackend{
		hitsFn: func(q string) []backend.Hit { return []backend.Hit{{"name": q + " result"}} },
		gates:  map[string]chan struct{}{"ab": make(chan struct{})},
	}
	e := New(be, nil, Options{Debounce: 5 * time.Millisecond})
	defer e.Stop()

	e.Suggest("ab")
	waitFor(t, time.Second, func() bool { return be.callCount() == 1 })

	// Input left the valid range while the lookup was in flight.
	e.Suggest("abcdefgh")
	if cur := e.Current(); cur != nil {
		t.Errorf("current = %v, want cleared", cur)
	}

	close(be.gates["ab"])
	time.Sleep(50 * time.Millisecond)
	if cur := e.Current(); cur != nil {
		t.Errorf("invalidated lookup still committed: %v", cur)
	}
	if be.callCount() != 1 {
		t.Errorf("out-of-range input issued a lookup: %d calls", be.callCount())
	}
}

func TestSuggest_AfterStop(t *testing.T) {
	be := &mockBackend{}
	e := New(be, nil, Options{Debounce: 5 * time.Millisecond})

	e.Stop()
	e.Suggest("ab")

	time.Sleep(30 * time.Millisecond)
	if be.callCount() != 0 {
		t.Errorf("stopped engine issued a lookup: %d calls", be.callCount())
	}
}
