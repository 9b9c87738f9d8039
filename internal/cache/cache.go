// Package cache implements the cache-aside gateway in front of the scrape
// engine. The backend is an optimization, never a correctness dependency:
// backend errors are logged and swallowed, and the caller's compute function
// runs directly when the backend is unavailable.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/suatklnc/alcpn-sub000/internal/models"
)

// Backend is the key-value store behind the gateway. Implementations must be
// safe for concurrent use.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// Stats is the operator-facing cache summary.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

type Gateway struct {
	backend Backend
	prefix  string
	ttl     time.Duration
	logger  *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

func NewGateway(backend Backend, prefix string, ttl time.Duration, logger *slog.Logger) *Gateway {
	return &Gateway{
		backend: backend,
		prefix:  prefix,
		ttl:     ttl,
		logger:  logger.With("component", "cache"),
	}
}

// KeyFor derives the cache key for a target URL.
func (g *Gateway) KeyFor(url string) string {
	sum := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%s:%x", g.prefix, sum[:16])
}

// GetOrSet returns the cached result for key when present; otherwise it runs
// compute synchronously, stores the result and returns it with
// fromCache=false. Failed results are never cached, so a transient failure
// cannot mask later successes within the TTL window.
func (g *Gateway) GetOrSet(ctx context.Context, key string, compute func(context.Context) *models.ScrapeResult) (*models.ScrapeResult, bool) {
	if raw, ok, err := g.backend.Get(ctx, key); err != nil {
		g.logger.Warn("cache read failed, computing directly", "key", key, "error", err)
	} else if ok {
		var cached models.ScrapeResult
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			g.hits.Add(1)
			return &cached, true
		}
		g.logger.Warn("dropping undecodable cache entry", "key", key)
		_ = g.backend.Delete(ctx, key)
	}

	g.misses.Add(1)
	result := compute(ctx)

	if result != nil && result.Success {
		if raw, err := json.Marshal(result); err == nil {
			if err := g.backend.Set(ctx, key, string(raw), g.ttl); err != nil {
				g.logger.Warn("cache write failed", "key", key, "error", err)
			}
		}
	}
	return result, false
}

// Delete removes the entry for one target URL.
func (g *Gateway) Delete(ctx context.Context, url string) error {
	return g.backend.Delete(ctx, g.KeyFor(url))
}

// Clear removes every entry under the gateway's prefix.
func (g *Gateway) Clear(ctx context.Context) error {
	keys, err := g.backend.Keys(ctx, g.prefix+":*")
	if err != nil {
		return fmt.Errorf("failed to list cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return g.backend.Delete(ctx, keys...)
}

// Stats reports entry count and hit/miss counters. Entry count is best-effort
// and zero when the backend is unreachable.
func (g *Gateway) Stats(ctx context.Context) Stats {
	s := Stats{
		Hits:   g.hits.Load(),
		Misses: g.misses.Load(),
	}
	keys, err := g.backend.Keys(ctx, g.prefix+":*")
	if err != nil {
		g.logger.Warn("cache key listing failed", "error", err)
		return s
	}
	s.Entries = len(keys)
	return s
}
