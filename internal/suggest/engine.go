// Package suggest derives short autocomplete entries from the top hits of a
// bounded index lookup. Keystrokes are debounced and in-flight lookups are
// guarded by a monotonic sequence number, so timer cancellation alone never
// has to prevent a late response from clobbering newer input.
package suggest

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/fakestore/storesearch/internal/backend"
	"github.com/fakestore/storesearch/internal/domain/catalog"
	"github.com/fakestore/storesearch/internal/domain/intent"
	"github.com/fakestore/storesearch/internal/metrics"
	"github.com/fakestore/storesearch/internal/query"
)

// Autocomplete tuning defaults. Lookups only fire for short prefixes;
// longer input relies on full search instead.
const (
	DefaultDebounce       = 300 * time.Millisecond
	DefaultMaxSuggestions = 3
	DefaultPoolSize       = 10

	MinInputLength = 1
	MaxInputLength = 5

	lookupTimeout = 5 * time.Second
)

// Options tunes an Engine. Zero values take the defaults above.
type Options struct {
	Debounce       time.Duration
	MaxSuggestions int
	PoolSize       int
}

// Engine is a debounced suggestion source for one input field.
// Results arrive on Updates; selecting a suggestion is the caller's move
// (re-issue a full query with the suggestion text).
type Engine struct {
	client backend.Client
	logger *zap.Logger

	debounce       time.Duration
	maxSuggestions int
	poolSize       int

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64 // bumped on every accepted keystroke; older lookups never commit
	current []catalog.Suggestion
	updates chan []catalog.Suggestion
	stopped bool
}

// New creates a suggestion engine bound to a backend client.
func New(client backend.Client, logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = DefaultMaxSuggestions
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = DefaultPoolSize
	}
	return &Engine{
		client:         client,
		logger:         logger,
		debounce:       opts.Debounce,
		maxSuggestions: opts.MaxSuggestions,
		poolSize:       opts.PoolSize,
		updates:        make(chan []catalog.Suggestion, 1),
	}
}

// Suggest registers the current partial input. In-range input restarts the
// debounce window; out-of-range input immediately publishes an empty list
// without any backend call. Either way, older in-flight lookups become stale.
func (e *Engine) Suggest(input string) {
	trimmed := strings.TrimSpace(input)
	n := utf8.RuneCountInString(trimmed)

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}

	if n < MinInputLength || n > MaxInputLength {
		e.seq++ // invalidate anything still in flight
		e.current = nil
		e.publishLocked(nil)
		e.mu.Unlock()
		return
	}

	// The keystroke itself invalidates older in-flight lookups; waiting for
	// the timer would let one debounce window of stale results slip through.
	e.seq++
	mySeq := e.seq
	e.timer = time.AfterFunc(e.debounce, func() { e.fire(mySeq, trimmed) })
	e.mu.Unlock()
}

// fire issues the lookup for the input that survived the debounce window.
func (e *Engine) fire(mySeq uint64, trimmed string) {
	e.mu.Lock()
	if e.stopped || mySeq != e.seq {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	suggestions, err := e.Lookup(ctx, trimmed)
	if err != nil {
		metrics.SuggestLookupsTotal.WithLabelValues("error").Inc()
		e.logger.Warn("suggestion lookup failed", zap.String("input", trimmed), zap.Error(err))
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	if mySeq != e.seq {
		// A newer keystroke superseded this lookup while it was in flight.
		metrics.SuggestLookupsTotal.WithLabelValues("stale").Inc()
		return
	}
	metrics.SuggestLookupsTotal.WithLabelValues("ok").Inc()
	e.current = suggestions
	e.publishLocked(suggestions)
}

// Lookup runs one suggestion query synchronously, bypassing the debounce.
// Out-of-range input yields an empty list without a backend call.
func (e *Engine) Lookup(ctx context.Context, input string) ([]catalog.Suggestion, error) {
	trimmed := strings.TrimSpace(input)
	n := utf8.RuneCountInString(trimmed)
	if n < MinInputLength || n > MaxInputLength {
		return nil, nil
	}

	it, err := intent.New(trimmed, "", "", nil, intent.SortRelevance, 0, e.poolSize)
	if err != nil {
		return nil, err
	}
	req, err := query.Build(it)
	if err != nil {
		return nil, err
	}
	req.Facets = nil // pool lookups don't need aggregates

	resp, err := e.client.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	return e.buildPool(resp.Hits, trimmed), nil
}

// poolFields is the fixed scan priority: all names, then brands, then
// categories, then ratings-as-text.
var poolFields = []string{
	catalog.FieldName,
	catalog.FieldBrand,
	catalog.FieldCategory,
	catalog.FieldRating,
}

// buildPool filters candidate strings to those containing the input
// (case-insensitive), dedupes preserving first-seen order, and truncates.
func (e *Engine) buildPool(hits []backend.Hit, trimmed string) []catalog.Suggestion {
	needle := strings.ToLower(trimmed)

	seen := make(map[string]struct{})
	suggestions := make([]catalog.Suggestion, 0, e.maxSuggestions)

	for _, field := range poolFields {
		for _, hit := range hits {
			candidate := hit[field]
			if candidate == "" {
				continue
			}
			if !strings.Contains(strings.ToLower(candidate), needle) {
				continue
			}
			if _, dup := seen[candidate]; dup {
				continue
			}
			seen[candidate] = struct{}{}
			suggestions = append(suggestions, catalog.Suggestion{Text: candidate})
			if len(suggestions) == e.maxSuggestions {
				return suggestions
			}
		}
	}

	return suggestions
}

// Updates delivers each newly committed suggestion list. The channel holds
// the latest value only; a slow reader sees the freshest list, not history.
func (e *Engine) Updates() <-chan []catalog.Suggestion {
	return e.updates
}

// Current returns the last committed suggestion list.
func (e *Engine) Current() []catalog.Suggestion {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Stop cancels any pending debounce timer and detaches the engine.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.stopped = true
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// publishLocked replaces any unread value on the updates channel.
// Callers hold e.mu.
func (e *Engine) publishLocked(s []catalog.Suggestion) {
	select {
	case <-e.updates:
	default:
	}
	e.updates <- s
}
