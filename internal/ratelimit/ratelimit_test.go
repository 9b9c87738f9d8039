package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testLimiter(limit int, window time.Duration) *Limiter {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewLimiter(NewMemoryBackend(), limit, window, logger)
}

func TestCheckDeniesOverLimit(t *testing.T) {
	l := testLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		status := l.Check(ctx, "10.0.0.1")
		assert.True(t, status.Allowed, "request %d should be allowed", i+1)
	}

	status := l.Check(ctx, "10.0.0.1")
	assert.False(t, status.Allowed)
	assert.Equal(t, 0, status.Remaining)
	assert.Greater(t, status.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, status.RetryAfter, time.Minute)
}

func TestCheckRemainingCountsDown(t *testing.T) {
	l := testLimiter(3, time.Minute)
	ctx := context.Background()

	assert.Equal(t, 2, l.Check(ctx, "a").Remaining)
	assert.Equal(t, 1, l.Check(ctx, "a").Remaining)
	assert.Equal(t, 0, l.Check(ctx, "a").Remaining)
}

func TestWindowSlides(t *testing.T) {
	l := testLimiter(2, 50*time.Millisecond)
	ctx := context.Background()

	l.Check(ctx, "b")
	l.Check(ctx, "b")
	assert.False(t, l.Check(ctx, "b").Allowed)

	time.Sleep(60 * time.Millisecond)
	assert.True(t, l.Check(ctx, "b").Allowed)
}

func TestIdentitiesAreIndependent(t *testing.T) {
	l := testLimiter(1, time.Minute)
	ctx := context.Background()

	assert.True(t, l.Check(ctx, "first").Allowed)
	assert.False(t, l.Check(ctx, "first").Allowed)
	assert.True(t, l.Check(ctx, "second").Allowed)
}

func TestStatsDoesNotConsume(t *testing.T) {
	l := testLimiter(2, time.Minute)
	ctx := context.Background()

	l.Check(ctx, "c")
	for i := 0; i < 5; i++ {
		stats := l.Stats(ctx, "c")
		assert.Equal(t, 1, stats.Limit-stats.Remaining)
	}
	assert.True(t, l.Check(ctx, "c").Allowed)
}

func TestConcurrentChecks(t *testing.T) {
	l := testLimiter(10, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Check(ctx, "shared").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, allowed)
}

type downBackend struct{}

func (downBackend) Add(context.Context, string, time.Time, time.Duration, int) (int, time.Time, bool, error) {
	return 0, time.Time{}, false, errors.New("backend down")
}
func (downBackend) Peek(context.Context, string, time.Time, time.Duration) (int, time.Time, error) {
	return 0, time.Time{}, errors.New("backend down")
}

func TestBackendFailureFailsOpen(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := NewLimiter(downBackend{}, 1, time.Minute, logger)

	for i := 0; i < 5; i++ {
		assert.True(t, l.Check(context.Background(), "x").Allowed)
	}
}
