package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/suatklnc/alcpn-sub000/internal/cache"
	"github.com/suatklnc/alcpn-sub000/internal/database"
	"github.com/suatklnc/alcpn-sub000/internal/extractor"
	"github.com/suatklnc/alcpn-sub000/internal/models"
	"github.com/suatklnc/alcpn-sub000/internal/pricing"
	"github.com/suatklnc/alcpn-sub000/internal/ratelimit"
	"github.com/suatklnc/alcpn-sub000/internal/scheduler"
	"github.com/suatklnc/alcpn-sub000/internal/scraper"
)

// URLStore is the tracked URL persistence surface the API needs.
type URLStore interface {
	Create(ctx context.Context, t *models.TrackedURL) error
	Get(ctx context.Context, id string) (*models.TrackedURL, error)
	List(ctx context.Context) ([]*models.TrackedURL, error)
	Update(ctx context.Context, t *models.TrackedURL) error
	Delete(ctx context.Context, id string) error
}

// AttemptStore records and lists the scrape audit trail.
type AttemptStore interface {
	Insert(ctx context.Context, a *models.ScrapeAttempt) error
	ListByTrackedURL(ctx context.Context, trackedURLID string, limit int) ([]*models.ScrapeAttempt, error)
	ListRecent(ctx context.Context, limit int) ([]*models.ScrapeAttempt, error)
}

type Handlers struct {
	engine   *scraper.Engine
	gateway  *cache.Gateway
	limiter  *ratelimit.Limiter
	runner   *scheduler.Runner
	urls     URLStore
	attempts AttemptStore
	prices   *pricing.Service
	metrics  *scraper.Metrics
	logger   *slog.Logger
}

func NewHandlers(engine *scraper.Engine, gateway *cache.Gateway, limiter *ratelimit.Limiter,
	runner *scheduler.Runner, urls URLStore, attempts AttemptStore,
	prices *pricing.Service, metrics *scraper.Metrics, logger *slog.Logger) *Handlers {
	return &Handlers{
		engine:   engine,
		gateway:  gateway,
		limiter:  limiter,
		runner:   runner,
		urls:     urls,
		attempts: attempts,
		prices:   prices,
		metrics:  metrics,
		logger:   logger.With("component", "api"),
	}
}

// ScrapeRequest is the body for the test and fetch endpoints.
type ScrapeRequest struct {
	URL      string `json:"url"`
	Selector string `json:"selector"`
}

// TestScrapeResponse carries the scrape outcome plus the extraction debug
// snapshot for selector troubleshooting.
type TestScrapeResponse struct {
	Result *models.ScrapeResult `json:"result"`
	Debug  *extractor.Debug     `json:"debug,omitempty"`
}

// TestScrape runs a fast-mode scrape that bypasses the cache, so the caller
// always sees the live page.
func (h *Handlers) TestScrape(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r) {
		return
	}

	req, ok := h.decodeScrapeRequest(w, r)
	if !ok {
		return
	}

	result, debug := h.engine.ScrapeWithDebug(r.Context(), req.URL, req.Selector)
	h.recordAttempt(r.Context(), nil, result)
	h.respondJSON(w, http.StatusOK, TestScrapeResponse{Result: result, Debug: debug})
}

// FetchPriceResponse wraps a scrape result with its cache provenance.
type FetchPriceResponse struct {
	Result *models.ScrapeResult `json:"result"`
	Cached bool                 `json:"cached"`
}

// FetchPrice serves a scrape result through the cache gateway; only fresh
// computations hit the target site.
func (h *Handlers) FetchPrice(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r) {
		return
	}

	req, ok := h.decodeScrapeRequest(w, r)
	if !ok {
		return
	}

	key := h.gateway.KeyFor(req.URL)
	result, cached := h.gateway.GetOrSet(r.Context(), key, func(ctx context.Context) *models.ScrapeResult {
		return h.engine.Scrape(ctx, req.URL, req.Selector, extractor.BestEffort)
	})
	h.metrics.IncCache(cached)
	if !cached {
		h.recordAttempt(r.Context(), nil, result)
	}

	h.respondJSON(w, http.StatusOK, FetchPriceResponse{Result: result, Cached: cached})
}

// RunBatch triggers a batch run over all due URLs. With ?wait=false the batch
// is detached and the call returns immediately.
func (h *Handlers) RunBatch(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("wait") == "false" {
		go func() {
			if _, err := h.runner.RunBatch(context.Background()); err != nil && !errors.Is(err, scheduler.ErrBatchRunning) {
				h.logger.Error("detached batch failed", "error", err)
			}
		}()
		h.respondJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
		return
	}

	result, err := h.runner.RunBatch(r.Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrBatchRunning) {
			h.respondError(w, http.StatusConflict, "batch already running")
			return
		}
		h.logger.Error("batch failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "batch failed")
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// RunTrackedURL scrapes one tracked URL immediately, ignoring its schedule.
func (h *Handlers) RunTrackedURL(w http.ResponseWriter, r *http.Request) {
	tracked, ok := h.loadTrackedURL(w, r)
	if !ok {
		return
	}

	item := h.runner.RunOne(r.Context(), tracked)
	h.respondJSON(w, http.StatusOK, item)
}

// CreateTrackedURLRequest is the body for registering a scraping target.
type CreateTrackedURLRequest struct {
	URL             string  `json:"url"`
	Selector        string  `json:"selector"`
	MaterialKey     string  `json:"material_key"`
	IntervalSeconds int64   `json:"interval_seconds"`
	Multiplier      float64 `json:"multiplier"`
	AutoScrape      *bool   `json:"auto_scrape"`
}

func (h *Handlers) CreateTrackedURL(w http.ResponseWriter, r *http.Request) {
	var req CreateTrackedURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateTarget(req.URL); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.MaterialKey == "" {
		h.respondError(w, http.StatusBadRequest, "material_key is required")
		return
	}
	if req.IntervalSeconds <= 0 {
		req.IntervalSeconds = int64((24 * time.Hour).Seconds())
	}

	tracked := models.NewTrackedURL(req.URL, req.Selector, req.MaterialKey,
		time.Duration(req.IntervalSeconds)*time.Second)
	if req.Multiplier > 0 {
		tracked.Multiplier = req.Multiplier
	}
	if req.AutoScrape != nil {
		tracked.AutoScrape = *req.AutoScrape
	}

	if err := h.urls.Create(r.Context(), tracked); err != nil {
		h.logger.Error("failed to create tracked url", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create tracked url")
		return
	}
	h.respondJSON(w, http.StatusCreated, tracked)
}

func (h *Handlers) GetTrackedURL(w http.ResponseWriter, r *http.Request) {
	tracked, ok := h.loadTrackedURL(w, r)
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, tracked)
}

func (h *Handlers) ListTrackedURLs(w http.ResponseWriter, r *http.Request) {
	urls, err := h.urls.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list tracked urls", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list tracked urls")
		return
	}
	if urls == nil {
		urls = []*models.TrackedURL{}
	}
	h.respondJSON(w, http.StatusOK, urls)
}

// UpdateTrackedURLRequest carries partial updates; nil fields are untouched.
type UpdateTrackedURLRequest struct {
	URL             *string  `json:"url"`
	Selector        *string  `json:"selector"`
	MaterialKey     *string  `json:"material_key"`
	IsActive        *bool    `json:"is_active"`
	AutoScrape      *bool    `json:"auto_scrape"`
	IntervalSeconds *int64   `json:"interval_seconds"`
	Multiplier      *float64 `json:"multiplier"`
}

func (h *Handlers) UpdateTrackedURL(w http.ResponseWriter, r *http.Request) {
	tracked, ok := h.loadTrackedURL(w, r)
	if !ok {
		return
	}

	var req UpdateTrackedURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL != nil {
		if err := validateTarget(*req.URL); err != nil {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		tracked.URL = *req.URL
	}
	if req.Selector != nil {
		tracked.Selector = *req.Selector
	}
	if req.MaterialKey != nil && *req.MaterialKey != "" {
		tracked.MaterialKey = *req.MaterialKey
	}
	if req.IsActive != nil {
		tracked.IsActive = *req.IsActive
	}
	if req.AutoScrape != nil {
		tracked.AutoScrape = *req.AutoScrape
	}
	if req.IntervalSeconds != nil && *req.IntervalSeconds > 0 {
		tracked.Interval = time.Duration(*req.IntervalSeconds) * time.Second
	}
	if req.Multiplier != nil && *req.Multiplier > 0 {
		tracked.Multiplier = *req.Multiplier
	}

	if err := h.urls.Update(r.Context(), tracked); err != nil {
		h.logger.Error("failed to update tracked url", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to update tracked url")
		return
	}
	h.respondJSON(w, http.StatusOK, tracked)
}

func (h *Handlers) DeleteTrackedURL(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "id is required")
		return
	}

	err := h.urls.Delete(r.Context(), id)
	switch {
	case errors.Is(err, database.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "tracked url not found")
	case errors.Is(err, database.ErrHasHistory):
		h.respondError(w, http.StatusConflict, "tracked url has scrape history, deactivate it instead")
	case err != nil:
		h.logger.Error("failed to delete tracked url", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to delete tracked url")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// ListAttempts returns the recent scrape history for one tracked URL.
func (h *Handlers) ListAttempts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "id is required")
		return
	}

	attempts, err := h.attempts.ListByTrackedURL(r.Context(), id, attemptLimit(r))
	if err != nil {
		h.logger.Error("failed to list attempts", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list attempts")
		return
	}
	if attempts == nil {
		attempts = []*models.ScrapeAttempt{}
	}
	h.respondJSON(w, http.StatusOK, attempts)
}

// ListRecentAttempts returns the latest attempts across every URL, for the
// operator's activity feed.
func (h *Handlers) ListRecentAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.attempts.ListRecent(r.Context(), attemptLimit(r))
	if err != nil {
		h.logger.Error("failed to list recent attempts", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list attempts")
		return
	}
	if attempts == nil {
		attempts = []*models.ScrapeAttempt{}
	}
	h.respondJSON(w, http.StatusOK, attempts)
}

func attemptLimit(r *http.Request) int {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	return limit
}

func (h *Handlers) ListPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := h.prices.ListPrices(r.Context())
	if err != nil {
		h.logger.Error("failed to list prices", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list prices")
		return
	}
	if prices == nil {
		prices = []*models.PriceRecord{}
	}
	h.respondJSON(w, http.StatusOK, prices)
}

func (h *Handlers) GetPrice(w http.ResponseWriter, r *http.Request) {
	materialKey := chi.URLParam(r, "materialKey")

	record, err := h.prices.GetUnitPrice(r.Context(), materialKey)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "no price for material key")
			return
		}
		h.logger.Error("failed to get price", "material_key", materialKey, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get price")
		return
	}
	h.respondJSON(w, http.StatusOK, record)
}

// SetPriceRequest is the body for a manual price override.
type SetPriceRequest struct {
	UnitPrice float64 `json:"unit_price"`
}

func (h *Handlers) SetPrice(w http.ResponseWriter, r *http.Request) {
	materialKey := chi.URLParam(r, "materialKey")

	var req SetPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.prices.SetManualPrice(r.Context(), materialKey, req.UnitPrice)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, record)
}

func (h *Handlers) CacheStats(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.gateway.Stats(r.Context()))
}

// ClearCache drops either one URL's entry (?url=...) or everything.
func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")

	var err error
	if target != "" {
		err = h.gateway.Delete(r.Context(), target)
	} else {
		err = h.gateway.Clear(r.Context())
	}
	if err != nil {
		h.logger.Error("failed to clear cache", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to clear cache")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RateLimitStats reports the current window for an identity without
// consuming a slot.
func (h *Handlers) RateLimitStats(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")
	h.respondJSON(w, http.StatusOK, h.limiter.Stats(r.Context(), identity))
}

// allow applies the sliding-window limit keyed by client IP and writes the
// 429 response itself on denial.
func (h *Handlers) allow(w http.ResponseWriter, r *http.Request) bool {
	status := h.limiter.Check(r.Context(), clientIP(r))

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(status.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(status.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(status.ResetAt.Unix(), 10))

	if status.Allowed {
		return true
	}

	h.metrics.IncRateDenied()
	retryAfter := int(status.RetryAfter.Seconds()) + 1
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	h.respondJSON(w, http.StatusTooManyRequests, map[string]interface{}{
		"error":       "rate limit exceeded",
		"retry_after": retryAfter,
	})
	return false
}

func (h *Handlers) decodeScrapeRequest(w http.ResponseWriter, r *http.Request) (ScrapeRequest, bool) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if err := validateTarget(req.URL); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	return req, true
}

func (h *Handlers) recordAttempt(ctx context.Context, trackedURLID *string, res *models.ScrapeResult) {
	attempt := models.NewScrapeAttempt(trackedURLID, res)
	if err := h.attempts.Insert(ctx, attempt); err != nil {
		h.logger.Error("failed to record scrape attempt", "url", res.URL, "error", err)
	}
}

func (h *Handlers) loadTrackedURL(w http.ResponseWriter, r *http.Request) (*models.TrackedURL, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "id is required")
		return nil, false
	}

	tracked, err := h.urls.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "tracked url not found")
			return nil, false
		}
		h.logger.Error("failed to get tracked url", "id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get tracked url")
		return nil, false
	}
	return tracked, true
}

func validateTarget(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be absolute http or https")
	}
	return nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
