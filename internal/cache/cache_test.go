package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suatklnc/alcpn-sub000/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func successResult(price float64) *models.ScrapeResult {
	return &models.ScrapeResult{
		URL:       "https://example.com/urun",
		Success:   true,
		Price:     &price,
		ScrapedAt: time.Now(),
	}
}

func TestGetOrSetCachesSuccess(t *testing.T) {
	g := NewGateway(NewMemoryBackend(), "scrape", time.Minute, testLogger())
	key := g.KeyFor("https://example.com/urun")

	calls := 0
	compute := func(context.Context) *models.ScrapeResult {
		calls++
		return successResult(1250.00)
	}

	first, fromCache := g.GetOrSet(context.Background(), key, compute)
	require.True(t, first.Success)
	assert.False(t, fromCache)

	second, fromCache := g.GetOrSet(context.Background(), key, compute)
	assert.True(t, fromCache)
	assert.Equal(t, 1, calls)
	require.NotNil(t, second.Price)
	assert.InDelta(t, 1250.00, *second.Price, 0.001)
}

func TestGetOrSetNeverCachesFailure(t *testing.T) {
	g := NewGateway(NewMemoryBackend(), "scrape", time.Minute, testLogger())
	key := g.KeyFor("https://example.com/urun")

	calls := 0
	failing := func(context.Context) *models.ScrapeResult {
		calls++
		return &models.ScrapeResult{Success: false, Error: "no price found for selector"}
	}

	_, fromCache := g.GetOrSet(context.Background(), key, failing)
	assert.False(t, fromCache)

	// A transient failure must not mask a later success within the TTL.
	_, fromCache = g.GetOrSet(context.Background(), key, failing)
	assert.False(t, fromCache)
	assert.Equal(t, 2, calls)
}

func TestDeleteAndClear(t *testing.T) {
	g := NewGateway(NewMemoryBackend(), "scrape", time.Minute, testLogger())
	ctx := context.Background()

	urls := []string{"https://a.example.com/1", "https://b.example.com/2"}
	for _, url := range urls {
		g.GetOrSet(ctx, g.KeyFor(url), func(context.Context) *models.ScrapeResult {
			return successResult(99.90)
		})
	}
	assert.Equal(t, 2, g.Stats(ctx).Entries)

	require.NoError(t, g.Delete(ctx, urls[0]))
	assert.Equal(t, 1, g.Stats(ctx).Entries)

	require.NoError(t, g.Clear(ctx))
	assert.Equal(t, 0, g.Stats(ctx).Entries)
}

func TestExpiredEntryRecomputes(t *testing.T) {
	g := NewGateway(NewMemoryBackend(), "scrape", 10*time.Millisecond, testLogger())
	key := g.KeyFor("https://example.com/urun")
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) *models.ScrapeResult {
		calls++
		return successResult(45.00)
	}

	g.GetOrSet(ctx, key, compute)
	time.Sleep(20 * time.Millisecond)
	_, fromCache := g.GetOrSet(ctx, key, compute)
	assert.False(t, fromCache)
	assert.Equal(t, 2, calls)
}

type brokenBackend struct{}

func (brokenBackend) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("backend down")
}
func (brokenBackend) Set(context.Context, string, string, time.Duration) error {
	return errors.New("backend down")
}
func (brokenBackend) Delete(context.Context, ...string) error { return errors.New("backend down") }
func (brokenBackend) Keys(context.Context, string) ([]string, error) {
	return nil, errors.New("backend down")
}

func TestBackendFailureDegradesToCompute(t *testing.T) {
	g := NewGateway(brokenBackend{}, "scrape", time.Minute, testLogger())

	result, fromCache := g.GetOrSet(context.Background(), "scrape:x", func(context.Context) *models.ScrapeResult {
		return successResult(145.00)
	})
	assert.False(t, fromCache)
	require.True(t, result.Success)
	assert.InDelta(t, 145.00, *result.Price, 0.001)
}

func TestStatsCounters(t *testing.T) {
	g := NewGateway(NewMemoryBackend(), "scrape", time.Minute, testLogger())
	ctx := context.Background()
	key := g.KeyFor("https://example.com/urun")

	compute := func(context.Context) *models.ScrapeResult { return successResult(10.0) }
	g.GetOrSet(ctx, key, compute)
	g.GetOrSet(ctx, key, compute)

	stats := g.Stats(ctx)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}
