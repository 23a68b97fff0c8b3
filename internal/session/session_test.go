package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fakestore/storesearch/internal/backend"
	"github.com/fakestore/storesearch/internal/domain"
	"github.com/fakestore/storesearch/internal/domain/intent"
	"github.com/fakestore/storesearch/internal/mapper"
)

// --- Mocks ---

type mockBackend struct {
	mu    sync.Mutex
	calls []*backend.Request
	err   error
	gates map[string]chan struct{} // per-query block, released by the test
}

func (m *mockBackend) Search(_ context.Context, req *backend.Request) (*backend.Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	gate := m.gates[req.Query]
	err := m.err
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return &backend.Response{
		Hits:  []backend.Hit{{"id": "hit-" + req.Query, "name": req.Query + " result"}},
		Total: 1,
	}, nil
}

func (m *mockBackend) FacetCounts(context.Context, backend.Target, string) (map[string]int, error) {
	return nil, nil
}

func (m *mockBackend) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockBackend) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func str(s string) *string { return &s }
func num(n int) *int       { return &n }

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

func currentProductID(s *Session) string {
	page, ok := s.CurrentResults()
	if !ok || len(page.Products) == 0 {
		return ""
	}
	return page.Products[0].ID
}

// --- Tests ---

func TestNew_NoResultsUntilFirstQuery(t *testing.T) {
	s := New(&mockBackend{}, mapper.New(nil), nil)

	if _, ok := s.CurrentResults(); ok {
		t.Error("fresh session reported loaded results")
	}
	if got := s.CurrentIntent(); got != intent.Default() {
		t.Errorf("intent = %+v, want default", got)
	}
}

func TestSetIntent_CommitsResults(t *testing.T) {
	be := &mockBackend{}
	s := New(be, mapper.New(nil), nil)

	if err := s.SetIntent(intent.Partial{Query: str("shoes")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitFor(t, time.Second, func() bool { return currentProductID(s) == "hit-shoes" })

	page, ok := s.CurrentResults()
	if !ok {
		t.Fatal("results not loaded")
	}
	if page.Total != 1 {
		t.Errorf("total = %d, want 1", page.Total)
	}
	if s.Notice() != "" {
		t.Errorf("notice = %q, want empty", s.Notice())
	}
}

func TestSetIntent_InvalidLeavesStateUntouched(t *testing.T) {
	be := &mockBackend{}
	s := New(be, mapper.New(nil), nil)

	before := s.CurrentIntent()
	err := s.SetIntent(intent.Partial{Page: num(-1)})
	if !errors.Is(err, domain.ErrInvalidIntent) {
		t.Fatalf("expected ErrInvalidIntent, got %v", err)
	}
	if got := s.CurrentIntent(); got != before {
		t.Errorf("intent changed on invalid update: %+v", got)
	}
	if be.callCount() != 0 {
		t.Errorf("invalid update reached the backend: %d calls", be.callCount())
	}
}

func TestSetIntent_StaleResponseDiscarded(t *testing.T) {
	be := &mockBackend{gates: map[string]chan struct{}{
		"shoe":  make(chan struct{}),
		"shirt": make(chan struct{}),
	}}
	s := New(be, mapper.New(nil), nil)

	if err := s.SetIntent(intent.Partial{Query: str("shoe")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, time.Second, func() bool { return be.callCount() == 1 })

	if err := s.SetIntent(intent.Partial{Query: str("shirt")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, time.Second, func() bool { return be.callCount() == 2 })

	// The newer query resolves first and commits.
	close(be.gates["shirt"])
	waitFor(t, time.Second, func() bool { return currentProductID(s) == "hit-shirt" })

	// The older response arrives late; it must not clobber the newer page.
	close(be.gates["shoe"])
	time.Sleep(50 * time.Millisecond)
	if got := currentProductID(s); got != "hit-shirt" {
		t.Errorf("stale response overwrote results: showing %q", got)
	}
}

func TestSetIntent_BackendUnavailableRetainsPage(t *testing.T) {
	be := &mockBackend{}
	s := New(be, mapper.New(nil), nil)

	if err := s.SetIntent(intent.Partial{Query: str("shoes")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, time.Second, func() bool { return currentProductID(s) == "hit-shoes" })

	be.setErr(fmt.Errorf("%w: connection refused", domain.ErrBackendUnavailable))
	if err := s.SetIntent(intent.Partial{Query: str("shirt")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, time.Second, func() bool { return s.Notice() != "" })

	// Previous results survive the outage.
	if got := currentProductID(s); got != "hit-shoes" {
		t.Errorf("page = %q, want retained %q", got, "hit-shoes")
	}

	// Recovery clears the notice.
	be.setErr(nil)
	if err := s.Refresh(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, time.Second, func() bool { return currentProductID(s) == "hit-shirt" })
	if s.Notice() != "" {
		t.Errorf("notice = %q, want cleared after recovery", s.Notice())
	}
}

func TestSetIntent_FilterChangeResetsPage(t *testing.T) {
	be := &mockBackend{}
	s := New(be, mapper.New(nil), nil)

	if err := s.SetIntent(intent.Partial{Page: num(3)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SetIntent(intent.Partial{Category: str("books")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	it := s.CurrentIntent()
	if it.Page() != 0 {
		t.Errorf("page = %d, want 0 after filter change", it.Page())
	}
	if it.Category() != "books" {
		t.Errorf("category = %q, want %q", it.Category(), "books")
	}
}

func TestRefresh_ReissuesCurrentIntent(t *testing.T) {
	be := &mockBackend{}
	s := New(be, mapper.New(nil), nil)

	if err := s.SetIntent(intent.Partial{Query: str("shoes")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, time.Second, func() bool { return be.callCount() == 1 })

	before := s.CurrentIntent()
	if err := s.Refresh(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitFor(t, time.Second, func() bool { return be.callCount() == 2 })

	if got := s.CurrentIntent(); got != before {
		t.Errorf("refresh changed the intent: %+v", got)
	}
	be.mu.Lock()
	defer be.mu.Unlock()
	if be.calls[1].Query != "shoes" {
		t.Errorf("refresh query = %q, want %q", be.calls[1].Query, "shoes")
	}
}

func TestExecute(t *testing.T) {
	be := &mockBackend{}
	it, err := intent.New("shoes", "", "", nil, intent.SortRelevance, 0, 20)
	if err != nil {
		t.Fatalf("intent.New: %v", err)
	}

	page, err := Execute(context.Background(), be, mapper.New(nil), it)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Products) != 1 || page.Products[0].ID != "hit-shoes" {
		t.Errorf("products = %v", page.Products)
	}
	if page.Page != 0 || page.PageSize != 20 {
		t.Errorf("pagination = %d/%d, want 0/20", page.Page, page.PageSize)
	}
}

func TestExecute_BackendError(t *testing.T) {
	be := &mockBackend{err: errors.New("boom")}
	_, err := Execute(context.Background(), be, mapper.New(nil), intent.Default())
	if err == nil {
		t.Fatal("expected error")
	}
}
