// Package scraper composes the fetcher and extractor into a single scrape
// operation that always yields a result value, so batch processing can
// continue past one failing page.
package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/suatklnc/alcpn-sub000/internal/extractor"
	"github.com/suatklnc/alcpn-sub000/internal/models"
)

// HTMLFetcher retrieves raw HTML for a URL.
type HTMLFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Extractor pulls a price and best-effort product fields out of HTML.
type Extractor interface {
	Extract(html, selector string, mode extractor.Mode) (*extractor.Result, error)
}

type Engine struct {
	fetcher   HTMLFetcher
	extractor Extractor
	metrics   *Metrics
	logger    *slog.Logger
}

func NewEngine(f HTMLFetcher, e Extractor, m *Metrics, logger *slog.Logger) *Engine {
	return &Engine{
		fetcher:   f,
		extractor: e,
		metrics:   m,
		logger:    logger.With("component", "scrape_engine"),
	}
}

// Scrape fetches url and extracts a price using selector. Fetch and
// extraction failures are carried in the result, never returned as errors;
// only the returned result decides success. Elapsed time covers the whole
// operation.
func (e *Engine) Scrape(ctx context.Context, url, selector string, mode extractor.Mode) *models.ScrapeResult {
	result, _ := e.scrape(ctx, url, selector, mode)
	return result
}

// ScrapeWithDebug runs a fast-mode scrape and also returns the extraction
// debug snapshot for interactive selector troubleshooting.
func (e *Engine) ScrapeWithDebug(ctx context.Context, url, selector string) (*models.ScrapeResult, *extractor.Debug) {
	return e.scrape(ctx, url, selector, extractor.Fast)
}

func (e *Engine) scrape(ctx context.Context, url, selector string, mode extractor.Mode) (*models.ScrapeResult, *extractor.Debug) {
	start := time.Now()
	result := &models.ScrapeResult{
		URL:       url,
		ScrapedAt: start,
	}

	html, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		result.Error = err.Error()
		result.DurationMs = time.Since(start).Milliseconds()
		e.metrics.IncScrape("transport_error", time.Since(start))
		e.logger.Warn("fetch failed", "url", url, "error", err)
		return result, nil
	}

	extracted, err := e.extractor.Extract(html, selector, mode)
	if err != nil {
		result.Error = err.Error()
		result.DurationMs = time.Since(start).Milliseconds()
		e.metrics.IncScrape("parse_error", time.Since(start))
		return result, nil
	}

	result.Title = extracted.Title
	result.Availability = extracted.Availability
	result.ImageURL = extracted.ImageURL
	result.DurationMs = time.Since(start).Milliseconds()

	if extracted.Price == nil {
		result.Error = ErrNoPriceFound.Error()
		e.metrics.IncScrape("no_price", time.Since(start))
		e.logger.Info("scrape found no price", "url", url, "selector", selector)
		return result, extracted.Debug
	}

	result.Success = true
	result.Price = extracted.Price
	e.metrics.IncScrape("success", time.Since(start))
	e.logger.Info("scrape succeeded",
		"url", url, "price", *extracted.Price, "strategy", extracted.Strategy,
		"duration_ms", result.DurationMs)
	return result, extracted.Debug
}
