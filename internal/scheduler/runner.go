// Package scheduler drives the periodic batch scraping of tracked URLs.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/suatklnc/alcpn-sub000/internal/extractor"
	"github.com/suatklnc/alcpn-sub000/internal/models"
	"github.com/suatklnc/alcpn-sub000/internal/scraper"
)

// ErrBatchRunning is returned when a batch is requested while another is
// still in flight.
var ErrBatchRunning = errors.New("batch already running")

// URLStore supplies due URLs and records run outcomes.
type URLStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.TrackedURL, error)
	MarkRun(ctx context.Context, id string, lastRun, nextDue time.Time, res *models.ScrapeResult) error
}

// AttemptStore records the audit trail of engine invocations.
type AttemptStore interface {
	Insert(ctx context.Context, a *models.ScrapeAttempt) error
}

// PriceApplier turns a successful scrape into a unit price.
type PriceApplier interface {
	ApplyScrape(ctx context.Context, materialKey string, price, multiplier float64) (*models.PriceRecord, error)
}

// Scraper runs one scrape to completion.
type Scraper interface {
	Scrape(ctx context.Context, url, selector string, mode extractor.Mode) *models.ScrapeResult
}

type Runner struct {
	urls     URLStore
	attempts AttemptStore
	prices   PriceApplier
	engine   Scraper
	metrics  *scraper.Metrics
	logger   *slog.Logger

	batchSize     int
	interItemWait time.Duration
	running       atomic.Bool
}

func NewRunner(urls URLStore, attempts AttemptStore, prices PriceApplier, engine Scraper,
	metrics *scraper.Metrics, batchSize int, interItemWait time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		urls:          urls,
		attempts:      attempts,
		prices:        prices,
		engine:        engine,
		metrics:       metrics,
		logger:        logger.With("component", "scheduler"),
		batchSize:     batchSize,
		interItemWait: interItemWait,
	}
}

// RunBatch processes every due URL sequentially with a polite pause between
// items. Batches never overlap; a second caller gets ErrBatchRunning.
func (r *Runner) RunBatch(ctx context.Context) (*models.BatchResult, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrBatchRunning
	}
	defer r.running.Store(false)

	started := time.Now()
	due, err := r.urls.ListDue(ctx, started, r.batchSize)
	if err != nil {
		return nil, err
	}

	result := &models.BatchResult{StartedAt: started}
	for i, tracked := range due {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("batch aborted", "processed", i, "error", err)
			break
		}
		if i > 0 && r.interItemWait > 0 {
			time.Sleep(r.interItemWait)
		}

		item := r.RunOne(ctx, tracked)
		result.Attempted++
		if item.Success {
			result.Succeeded++
		} else {
			result.Failed++
		}
		result.Details = append(result.Details, item)
	}

	result.FinishedAt = time.Now()
	r.logger.Info("batch finished",
		"attempted", result.Attempted, "succeeded", result.Succeeded, "failed", result.Failed,
		"duration_ms", result.FinishedAt.Sub(started).Milliseconds())
	return result, nil
}

// RunOne scrapes a single tracked URL and persists the outcome. The schedule
// advances on failure too, so a dead URL cannot pin the head of the queue.
func (r *Runner) RunOne(ctx context.Context, tracked *models.TrackedURL) models.BatchItem {
	res := r.engine.Scrape(ctx, tracked.URL, tracked.Selector, extractor.BestEffort)

	item := models.BatchItem{
		TrackedURLID: tracked.ID,
		URL:          tracked.URL,
		MaterialKey:  tracked.MaterialKey,
		Success:      res.Success,
		Price:        res.Price,
		Error:        res.Error,
	}

	attempt := models.NewScrapeAttempt(&tracked.ID, res)
	if err := r.attempts.Insert(ctx, attempt); err != nil {
		r.logger.Error("failed to record scrape attempt",
			"tracked_url_id", tracked.ID, "error", err)
	}

	now := time.Now()
	nextDue := now.Add(tracked.Interval)
	if err := r.urls.MarkRun(ctx, tracked.ID, now, nextDue, res); err != nil {
		r.logger.Error("failed to advance schedule",
			"tracked_url_id", tracked.ID, "error", err)
	}

	if res.Success && res.Price != nil {
		record, err := r.prices.ApplyScrape(ctx, tracked.MaterialKey, *res.Price, tracked.Multiplier)
		if err != nil {
			r.logger.Error("failed to apply price",
				"tracked_url_id", tracked.ID, "material_key", tracked.MaterialKey, "error", err)
			item.Success = false
			item.Error = err.Error()
		} else {
			item.FinalPrice = &record.UnitPrice
		}
	}

	outcome := "failure"
	if item.Success {
		outcome = "success"
	}
	r.metrics.IncBatchItem(outcome)
	return item
}
