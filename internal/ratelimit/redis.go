package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps one sorted set per identity, scored by request
// timestamp, so the window slides with real time instead of fixed buckets.
type RedisBackend struct {
	client *redis.Client
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Add(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (int, time.Time, bool, error) {
	member := fmt.Sprintf("%d", now.UnixNano())
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := b.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	card := pipe.ZCard(ctx, key)
	oldestCmd := pipe.ZRangeWithScores(ctx, key, 0, 0)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, false, err
	}

	count := int(card.Val())
	oldest := oldestTime(oldestCmd.Val())

	if count > limit {
		// Over quota: withdraw the just-added entry so denied requests do
		// not extend the window.
		if err := b.client.ZRem(ctx, key, member).Err(); err != nil {
			return count, oldest, false, err
		}
		return count - 1, oldest, false, nil
	}
	return count, oldest, true, nil
}

func (b *RedisBackend) Peek(ctx context.Context, key string, now time.Time, window time.Duration) (int, time.Time, error) {
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := b.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
	card := pipe.ZCard(ctx, key)
	oldestCmd := pipe.ZRangeWithScores(ctx, key, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, err
	}
	return int(card.Val()), oldestTime(oldestCmd.Val()), nil
}

func oldestTime(entries []redis.Z) time.Time {
	if len(entries) == 0 {
		return time.Time{}
	}
	return time.Unix(0, int64(entries[0].Score))
}
