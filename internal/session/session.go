// Package session holds the stateful façade over one logical browsing
// session: the current intent, the last committed result page, and the
// sequencing that keeps concurrent re-queries last-write-wins.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fakestore/storesearch/internal/backend"
	"github.com/fakestore/storesearch/internal/domain"
	"github.com/fakestore/storesearch/internal/domain/intent"
	"github.com/fakestore/storesearch/internal/domain/results"
	"github.com/fakestore/storesearch/internal/mapper"
	"github.com/fakestore/storesearch/internal/metrics"
	"github.com/fakestore/storesearch/internal/query"
)

const queryTimeout = 10 * time.Second

// Execute runs one query for a validated intent and maps the result page.
// Shared by the session's async path and the stateless HTTP handlers.
func Execute(ctx context.Context, client backend.Client, m *mapper.Mapper, it intent.Intent) (*results.Page, error) {
	req, err := query.Build(it)
	if err != nil {
		return nil, err
	}

	resp, err := client.Search(ctx, req)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues(string(req.Target), "error").Inc()
		return nil, err
	}
	metrics.QueriesTotal.WithLabelValues(string(req.Target), "ok").Inc()

	return m.Page(resp, it.Page(), it.PageSize()), nil
}

// Session owns one browsing context. No state is shared across sessions.
type Session struct {
	client backend.Client
	mapper *mapper.Mapper
	logger *zap.Logger

	mu     sync.Mutex
	intent intent.Intent
	seq    uint64 // sequence number of the most recently issued query
	page   *results.Page
	loaded bool
	notice string // last non-fatal backend notice, cleared on success
}

// New creates a session starting at the default browse-all intent.
// No query is issued until the first SetIntent call.
func New(client backend.Client, m *mapper.Mapper, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		client: client,
		mapper: m,
		logger: logger,
		intent: intent.Default(),
	}
}

// SetIntent merges a partial change into the current intent. Validation
// failures are reported synchronously and leave all state untouched. On
// success the query runs asynchronously; its page is committed only if no
// newer query has been issued by then.
func (s *Session) SetIntent(p intent.Partial) error {
	s.mu.Lock()

	merged, err := s.intent.Merge(p)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	req, err := query.Build(merged)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	s.intent = merged
	s.seq++
	mySeq := s.seq
	s.mu.Unlock()

	go s.run(mySeq, req, merged)
	return nil
}

// Refresh re-issues the query for the current intent unchanged.
func (s *Session) Refresh() error {
	return s.SetIntent(intent.Partial{})
}

func (s *Session) run(mySeq uint64, req *backend.Request, it intent.Intent) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	resp, err := s.client.Search(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if mySeq != s.seq {
		// A newer query superseded this one; its outcome no longer matters.
		metrics.StaleResponsesDroppedTotal.Inc()
		return
	}

	if err != nil {
		metrics.QueriesTotal.WithLabelValues(string(req.Target), "error").Inc()
		if errors.Is(err, domain.ErrBackendUnavailable) {
			// Keep the last good page rather than flashing an empty state.
			s.notice = "search is temporarily unavailable; showing previous results"
			s.logger.Warn("backend unavailable, retaining previous results", zap.Error(err))
			return
		}
		s.notice = fmt.Sprintf("search failed: %v", err)
		s.logger.Error("query failed", zap.Error(err))
		return
	}
	metrics.QueriesTotal.WithLabelValues(string(req.Target), "ok").Inc()

	s.page = s.mapper.Page(resp, it.Page(), it.PageSize())
	s.loaded = true
	s.notice = ""
}

// CurrentResults returns the last committed page. ok is false until the
// first successful query; the page is then never cleared, only replaced.
func (s *Session) CurrentResults() (*results.Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page, s.loaded
}

// CurrentIntent returns a copy of the current intent.
func (s *Session) CurrentIntent() intent.Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intent
}

// Notice returns the last non-fatal backend notice ("" when healthy).
func (s *Session) Notice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notice
}
