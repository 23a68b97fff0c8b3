// Package chi exposes the storefront-facing HTTP surface: search, suggest,
// and category endpoints the UI layer binds to.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fakestore/storesearch/internal/backend"
	"github.com/fakestore/storesearch/internal/domain"
	"github.com/fakestore/storesearch/internal/domain/catalog"
	"github.com/fakestore/storesearch/internal/domain/intent"
	logpkg "github.com/fakestore/storesearch/internal/logger"
	"github.com/fakestore/storesearch/internal/mapper"
	"github.com/fakestore/storesearch/internal/metrics"
	"github.com/fakestore/storesearch/internal/session"
	"github.com/fakestore/storesearch/internal/suggest"
)

// pinger checks backend connectivity for the health endpoint.
type pinger interface {
	Ping(ctx context.Context) error
}

// Server handles the storefront search API.
type Server struct {
	client    backend.Client
	mapper    *mapper.Mapper
	suggester *suggest.Engine
	health    pinger
	logger    *zap.Logger
	apiKeys   []string
}

// NewServer creates an HTTP API server.
func NewServer(
	client backend.Client,
	m *mapper.Mapper,
	suggester *suggest.Engine,
	health pinger,
	logger *zap.Logger,
	apiKeys []string,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		client:    client,
		mapper:    m,
		suggester: suggester,
		health:    health,
		logger:    logger,
		apiKeys:   apiKeys,
	}
}

// Router assembles the chi router with the standard middleware stack.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(s.apiKeys))

	r.Get("/health", s.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/search", s.Search)
	r.Get("/suggest", s.SuggestHandler)
	r.Get("/categories", s.ListCategories)
	r.Get("/categories/{id}", s.GetCategory)
	return r
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	if err := s.health.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "backend_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// searchResponse is the /search payload.
type searchResponse struct {
	Products []catalog.Product         `json:"products"`
	Total    int                       `json:"total"`
	Facets   map[string]map[string]int `json:"facets"`
	Page     int                       `json:"page"`
	PageSize int                       `json:"pageSize"`
}

// Search handles GET /search. Query params: q, category, brand, price_min,
// price_max, sort, page, page_size.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	it, err := intentFromQuery(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	page, err := session.Execute(r.Context(), s.client, s.mapper, it)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Products: page.Products,
		Total:    page.Total,
		Facets:   page.Facets,
		Page:     page.Page,
		PageSize: page.PageSize,
	})
}

// SuggestHandler handles GET /suggest?q=. Debouncing happens client-side of
// this API (each keystroke is one request); the server path runs the pool
// lookup synchronously.
func (s *Server) SuggestHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	suggestions, err := s.suggester.Lookup(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if suggestions == nil {
		suggestions = []catalog.Suggestion{}
	}

	writeJSON(w, http.StatusOK, map[string][]catalog.Suggestion{"suggestions": suggestions})
}

// ListCategories handles GET /categories: enumerates category aggregates
// from facet counts, independent of any free-text query.
func (s *Server) ListCategories(w http.ResponseWriter, r *http.Request) {
	counts, err := s.client.FacetCounts(r.Context(), backend.TargetPrimary, catalog.FieldCategory)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	categories := make([]catalog.Category, 0, len(ids))
	for _, id := range ids {
		hit := backend.Hit{catalog.FieldCategory: id}
		categories = append(categories, s.mapper.Category(hit, id, counts[id]))
	}

	writeJSON(w, http.StatusOK, map[string][]catalog.Category{"categories": categories})
}

// GetCategory handles GET /categories/{id}: the facet count plus a
// representative product record back the aggregate.
func (s *Server) GetCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	counts, err := s.client.FacetCounts(r.Context(), backend.TargetPrimary, catalog.FieldCategory)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	count, ok := counts[id]
	if !ok {
		writeError(w, http.StatusNotFound, "category_not_found", "unknown category "+id)
		return
	}

	// One representative hit carries the category id through the mapper.
	resp, err := s.client.Search(r.Context(), &backend.Request{
		Target:   backend.TargetPrimary,
		Tags:     []backend.TagFilter{{Field: catalog.FieldCategory, Value: id}},
		Page:     0,
		PageSize: 1,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	var hit backend.Hit
	if len(resp.Hits) > 0 {
		hit = resp.Hits[0]
	}

	writeJSON(w, http.StatusOK, s.mapper.Category(hit, id, count))
}

// intentFromQuery builds a validated intent from /search query parameters.
func intentFromQuery(r *http.Request) (intent.Intent, error) {
	q := r.URL.Query()

	page, err := intParam(q.Get("page"), 0)
	if err != nil {
		return intent.Intent{}, err
	}
	pageSize, err := intParam(q.Get("page_size"), 0)
	if err != nil {
		return intent.Intent{}, err
	}

	var price *intent.PriceRange
	minRaw, maxRaw := q.Get("price_min"), q.Get("price_max")
	if minRaw != "" || maxRaw != "" {
		price = &intent.PriceRange{}
		if minRaw != "" {
			v, err := strconv.ParseFloat(minRaw, 64)
			if err != nil {
				return intent.Intent{}, domain.ErrInvalidIntent
			}
			price.Min = &v
		}
		if maxRaw != "" {
			v, err := strconv.ParseFloat(maxRaw, 64)
			if err != nil {
				return intent.Intent{}, domain.ErrInvalidIntent
			}
			price.Max = &v
		}
	}

	return intent.New(
		q.Get("q"),
		q.Get("category"),
		q.Get("brand"),
		price,
		intent.Sort(q.Get("sort")),
		page,
		pageSize,
	)
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ErrInvalidIntent
	}
	return v, nil
}

// wideEventMiddleware emits a canonical log line per request, propagates
// X-Request-ID, and makes a request-scoped logger available via the context.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.WithContext(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

// handleDomainError maps sentinel errors to HTTP statuses.
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidIntent):
		writeError(w, http.StatusBadRequest, "invalid_intent", err.Error())
	case errors.Is(err, domain.ErrBackendUnavailable):
		writeError(w, http.StatusServiceUnavailable, "backend_unavailable", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		logpkg.FromContext(r.Context()).Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

// errorResponse is the error payload shape.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
