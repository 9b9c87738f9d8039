// Package ratelimit implements sliding-window admission control keyed by
// caller identity. The window backend is shared, externally hosted state;
// when it is unreachable the limiter fails open, prioritizing scraping
// availability over strict quota enforcement.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/suatklnc/alcpn-sub000/internal/models"
)

// Backend maintains the per-identity request log. Implementations must be
// safe for concurrent use.
type Backend interface {
	// Add records one request at now when the window has room, pruning
	// entries older than the window first. It reports the resulting request
	// count, the oldest timestamp still in the window and whether the
	// request was admitted.
	Add(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (count int, oldest time.Time, allowed bool, err error)
	// Peek reports the current window state without recording a request.
	Peek(ctx context.Context, key string, now time.Time, window time.Duration) (count int, oldest time.Time, err error)
}

type Limiter struct {
	backend Backend
	limit   int
	window  time.Duration
	logger  *slog.Logger
}

func NewLimiter(backend Backend, limit int, window time.Duration, logger *slog.Logger) *Limiter {
	return &Limiter{
		backend: backend,
		limit:   limit,
		window:  window,
		logger:  logger.With("component", "ratelimit"),
	}
}

// Check admits or denies one request for identity. Denials carry a
// RetryAfter computed from when the oldest in-window request expires.
func (l *Limiter) Check(ctx context.Context, identity string) models.RateLimitStatus {
	now := time.Now()
	count, oldest, allowed, err := l.backend.Add(ctx, key(identity), now, l.window, l.limit)
	if err != nil {
		// Fail open: a limiter backend outage must not take scraping down.
		l.logger.Warn("rate limit backend unavailable, allowing request",
			"identity", identity, "error", err)
		return models.RateLimitStatus{
			Allowed:   true,
			Limit:     l.limit,
			Remaining: l.limit,
			ResetAt:   now.Add(l.window),
		}
	}

	status := models.RateLimitStatus{
		Allowed: allowed,
		Limit:   l.limit,
		ResetAt: resetAt(now, oldest, l.window),
	}
	if allowed {
		status.Remaining = l.limit - count
		if status.Remaining < 0 {
			status.Remaining = 0
		}
		return status
	}

	status.Remaining = 0
	status.RetryAfter = time.Until(status.ResetAt)
	if status.RetryAfter < 0 {
		status.RetryAfter = 0
	}
	return status
}

// Stats reports the window state for identity without consuming a slot.
func (l *Limiter) Stats(ctx context.Context, identity string) models.RateLimitStatus {
	now := time.Now()
	count, oldest, err := l.backend.Peek(ctx, key(identity), now, l.window)
	if err != nil {
		l.logger.Warn("rate limit backend unavailable for stats",
			"identity", identity, "error", err)
		return models.RateLimitStatus{
			Allowed:   true,
			Limit:     l.limit,
			Remaining: l.limit,
			ResetAt:   now.Add(l.window),
		}
	}

	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return models.RateLimitStatus{
		Allowed:   remaining > 0,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   resetAt(now, oldest, l.window),
	}
}

func resetAt(now, oldest time.Time, window time.Duration) time.Time {
	if oldest.IsZero() {
		return now.Add(window)
	}
	return oldest.Add(window)
}

func key(identity string) string {
	return "ratelimit:" + identity
}
