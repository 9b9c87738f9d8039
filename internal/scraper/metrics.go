package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraping subsystem.
type Metrics struct {
	Registry        *prometheus.Registry
	ScrapesTotal    *prometheus.CounterVec
	ScrapeDuration  prometheus.Histogram
	CacheHitsTotal  prometheus.Counter
	CacheMissTotal  prometheus.Counter
	RateDeniedTotal prometheus.Counter
	BatchItemsTotal *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	scrapes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_scrapes_total",
			Help: "Total scrape engine invocations by outcome.",
		},
		[]string{"outcome"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_scrape_duration_seconds",
			Help:    "Wall-clock duration of whole scrape operations.",
			Buckets: prometheus.DefBuckets,
		},
	)
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_cache_hits_total",
			Help: "Scrape results served from cache.",
		},
	)
	cacheMisses := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_cache_misses_total",
			Help: "Cache misses that fell through to the engine.",
		},
	)
	rateDenied := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_ratelimit_denied_total",
			Help: "Requests denied by the sliding-window rate limiter.",
		},
	)
	batchItems := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_batch_items_total",
			Help: "Batch runner items processed by outcome.",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(scrapes, duration, cacheHits, cacheMisses, rateDenied, batchItems)

	return &Metrics{
		Registry:        registry,
		ScrapesTotal:    scrapes,
		ScrapeDuration:  duration,
		CacheHitsTotal:  cacheHits,
		CacheMissTotal:  cacheMisses,
		RateDeniedTotal: rateDenied,
		BatchItemsTotal: batchItems,
	}
}

// IncScrape records one engine invocation.
func (m *Metrics) IncScrape(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ScrapesTotal.WithLabelValues(outcome).Inc()
	m.ScrapeDuration.Observe(d.Seconds())
}

// IncCache records a cache gateway lookup.
func (m *Metrics) IncCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
		return
	}
	m.CacheMissTotal.Inc()
}

// IncRateDenied records a rate limiter denial.
func (m *Metrics) IncRateDenied() {
	if m == nil {
		return
	}
	m.RateDeniedTotal.Inc()
}

// IncBatchItem records one batch item outcome.
func (m *Metrics) IncBatchItem(outcome string) {
	if m == nil {
		return
	}
	m.BatchItemsTotal.WithLabelValues(outcome).Inc()
}
