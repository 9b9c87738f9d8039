package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend is a process-local Backend for tests and single-node
// deployments without redis.
type MemoryBackend struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{windows: make(map[string][]time.Time)}
}

func (b *MemoryBackend) Add(_ context.Context, key string, now time.Time, window time.Duration, limit int) (int, time.Time, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := prune(b.windows[key], now.Add(-window))
	if len(entries) >= limit {
		b.windows[key] = entries
		return len(entries), entries[0], false, nil
	}

	entries = append(entries, now)
	b.windows[key] = entries
	return len(entries), entries[0], true, nil
}

func (b *MemoryBackend) Peek(_ context.Context, key string, now time.Time, window time.Duration) (int, time.Time, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := prune(b.windows[key], now.Add(-window))
	b.windows[key] = entries
	if len(entries) == 0 {
		return 0, time.Time{}, nil
	}
	return len(entries), entries[0], nil
}

func prune(entries []time.Time, cutoff time.Time) []time.Time {
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
