// Package handler exposes the search engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/internal/searcher/pagination"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/moogle-search/pkg/middleware"
)

type Searcher interface {
	Execute(ctx context.Context, raw string) (*executor.SearchResult, error)
	Document(name string) (*executor.DocumentView, error)
}

// Corpus is the engine surface used for stats and reloads.
type Corpus interface {
	Stats() indexer.Stats
	Reload(ctx context.Context) (*index.Corpus, error)
}

// Tracker receives one event per search request.
type Tracker interface {
	TrackQuery(analytics.QueryEvent)
}

// SearchResponse is one page of a search.
type SearchResponse struct {
	Query      string                `json:"query"`
	Items      []executor.SearchItem `json:"items"`
	Suggestion string                `json:"suggestion"`
	TotalHits  int                   `json:"total_hits"`
	Page       *pagination.Window    `json:"page"`
	Pages      []int                 `json:"pages"`
	CacheHit   bool                  `json:"cache_hit"`
}

type Handler struct {
	searcher Searcher
	corpus   Corpus
	cache    *cache.QueryCache
	tracker  Tracker
	metrics  *metrics.Metrics
	cfg      config.SearchConfig
	policy   *bluemonday.Policy
	logger   *slog.Logger
}

// Option configures optional collaborators.
type Option func(*Handler)

func WithCache(c *cache.QueryCache) Option {
	return func(h *Handler) { h.cache = c }
}

func WithTracker(t Tracker) Option {
	return func(h *Handler) { h.tracker = t }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

func New(searcher Searcher, corpus Corpus, cfg config.SearchConfig, opts ...Option) *Handler {
	policy := bluemonday.NewPolicy()
	policy.AllowElements("mark")
	h := &Handler{
		searcher: searcher,
		corpus:   corpus,
		cfg:      cfg,
		policy:   policy,
		logger:   slog.Default().With("component", "search-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/documents/{name}", h.Document)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("POST /api/v1/admin/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search serves GET /api/v1/search?q=&page=. page is a page number or one
// of init, prev, next, end, applied to a bar starting on page 1.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}
	page := r.URL.Query().Get("page")
	if page == "" {
		page = "1"
	}

	var (
		result   *executor.SearchResult
		err      error
		cacheHit bool
	)
	cacheStatus := "disabled"
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, query, func(ctx context.Context) (*executor.SearchResult, error) {
			return h.searcher.Execute(ctx, query)
		})
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	} else {
		result, err = h.searcher.Execute(ctx, query)
	}
	if err != nil {
		log.Error("search execution failed", "query", query, "error", err)
		h.writeError(w, err)
		return
	}

	window := pagination.NewWindow(len(result.Items), h.cfg.PageSize, h.cfg.PageRange)
	if err := window.Set(page); err != nil {
		h.writeError(w, err)
		return
	}
	items := pagination.Page(result.Items, window.Now, h.cfg.PageSize)
	resp := SearchResponse{
		Query:      query,
		Items:      h.sanitize(items),
		Suggestion: result.Suggestion,
		TotalHits:  result.TotalHits,
		Page:       window,
		Pages:      window.Pages(),
		CacheHit:   cacheHit,
	}

	latency := time.Since(start)
	if h.metrics != nil {
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	}
	log.Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(items),
		"cache", cacheStatus,
		"latency_ms", latency.Milliseconds(),
	)
	if h.tracker != nil {
		h.tracker.TrackQuery(analytics.QueryEvent{
			Query:      query,
			TotalHits:  result.TotalHits,
			Returned:   len(items),
			Page:       window.Now,
			Suggestion: result.Suggestion,
			LatencyMs:  latency.Milliseconds(),
			CacheHit:   cacheHit,
			RequestID:  middleware.GetRequestID(ctx),
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// sanitize copies items with snippets reduced to text plus highlight marks.
func (h *Handler) sanitize(items []executor.SearchItem) []executor.SearchItem {
	out := make([]executor.SearchItem, len(items))
	for i, it := range items {
		it.Snippet = h.policy.Sanitize(it.Snippet)
		out[i] = it
	}
	return out
}

func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	doc, err := h.searcher.Document(r.PathValue("name"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.corpus.Stats())
}

// Reload rebuilds the corpus synchronously. The previous snapshot keeps
// serving if it fails.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	c, err := h.corpus.Reload(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("reload failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":     "reloaded",
		"documents":  c.Len(),
		"vocabulary": c.Vocabulary.Len(),
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	stats := h.cache.Stats()
	total := stats.Hits + stats.Misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"errors":   stats.Errors,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  stats.Breaker,
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "caching is disabled"})
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cache invalidation failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err to its status. Server-side failures are reported by
// status text only.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = strings.ToLower(http.StatusText(status))
	}
	h.writeJSON(w, status, map[string]string{"error": msg})
}
