package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PriceSource tags where a PriceRecord value came from.
type PriceSource string

const (
	PriceSourceManual  PriceSource = "manual"
	PriceSourceScraped PriceSource = "scraped"
)

// TrackedURL is a persisted scraping target with its own schedule and
// multiplier. Selector holds one or more CSS selector expressions,
// comma-joined, tried in order.
type TrackedURL struct {
	ID          string         `json:"id"`
	URL         string         `json:"url"`
	Selector    string         `json:"selector"`
	MaterialKey string         `json:"material_key"`
	IsActive    bool           `json:"is_active"`
	AutoScrape  bool           `json:"auto_scrape"`
	Interval    time.Duration  `json:"-"`
	Multiplier  float64        `json:"multiplier"`
	LastRun     *time.Time     `json:"last_run,omitempty"`
	NextDue     *time.Time     `json:"next_due,omitempty"`
	LastResult  *ScrapeResult  `json:"last_result,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NewTrackedURL builds a tracked URL that is due immediately.
func NewTrackedURL(url, selector, materialKey string, interval time.Duration) *TrackedURL {
	now := time.Now()
	return &TrackedURL{
		ID:          uuid.New().String(),
		URL:         url,
		Selector:    selector,
		MaterialKey: materialKey,
		IsActive:    true,
		AutoScrape:  true,
		Interval:    interval,
		Multiplier:  1.0,
		NextDue:     &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// trackedURLAlias drops TrackedURL's methods so the custom JSON round-trip
// below cannot recurse.
type trackedURLAlias TrackedURL

// MarshalJSON presents the interval in whole seconds, matching the unit the
// API accepts on writes.
func (t TrackedURL) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		trackedURLAlias
		IntervalSeconds int64 `json:"interval_seconds"`
	}{trackedURLAlias(t), int64(t.Interval / time.Second)})
}

func (t *TrackedURL) UnmarshalJSON(data []byte) error {
	aux := struct {
		*trackedURLAlias
		IntervalSeconds int64 `json:"interval_seconds"`
	}{trackedURLAlias: (*trackedURLAlias)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.Interval = time.Duration(aux.IntervalSeconds) * time.Second
	return nil
}

// ScrapeResult is the outcome of one scrape engine invocation. Price is the
// extracted value before any multiplier is applied. A result without a price
// is always a failure, even when title or availability were recovered.
type ScrapeResult struct {
	URL          string    `json:"url"`
	Success      bool      `json:"success"`
	Price        *float64  `json:"price,omitempty"`
	Title        string    `json:"title,omitempty"`
	Availability string    `json:"availability,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	Error        string    `json:"error,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	ScrapedAt    time.Time `json:"scraped_at"`
}

// ScrapeAttempt is an immutable audit row, written exactly once per engine
// invocation regardless of trigger (manual test, batch run, cached fetch).
type ScrapeAttempt struct {
	ID           string    `json:"id"`
	TrackedURLID *string   `json:"tracked_url_id,omitempty"`
	URL          string    `json:"url"`
	Success      bool      `json:"success"`
	Price        *float64  `json:"price,omitempty"`
	Title        string    `json:"title,omitempty"`
	Availability string    `json:"availability,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	Error        string    `json:"error,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewScrapeAttempt converts an engine result into an audit row.
func NewScrapeAttempt(trackedURLID *string, res *ScrapeResult) *ScrapeAttempt {
	return &ScrapeAttempt{
		ID:           uuid.New().String(),
		TrackedURLID: trackedURLID,
		URL:          res.URL,
		Success:      res.Success,
		Price:        res.Price,
		Title:        res.Title,
		Availability: res.Availability,
		ImageURL:     res.ImageURL,
		Error:        res.Error,
		DurationMs:   res.DurationMs,
		CreatedAt:    res.ScrapedAt,
	}
}

// PriceRecord is the current authoritative unit price per material key.
// At most one record exists per key; writes are last-writer-wins upserts.
type PriceRecord struct {
	MaterialKey string      `json:"material_key"`
	UnitPrice   float64     `json:"unit_price"`
	Source      PriceSource `json:"source"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// BatchItem is the per-URL detail of a batch run.
type BatchItem struct {
	TrackedURLID string   `json:"tracked_url_id"`
	URL          string   `json:"url"`
	MaterialKey  string   `json:"material_key"`
	Success      bool     `json:"success"`
	Price        *float64 `json:"price,omitempty"`
	FinalPrice   *float64 `json:"final_price,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// BatchResult aggregates one batch invocation.
type BatchResult struct {
	Attempted  int         `json:"attempted"`
	Succeeded  int         `json:"succeeded"`
	Failed     int         `json:"failed"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Details    []BatchItem `json:"details"`
}

// RateLimitStatus is the admission decision for one identity.
type RateLimitStatus struct {
	Allowed    bool          `json:"allowed"`
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	ResetAt    time.Time     `json:"reset_at"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}
