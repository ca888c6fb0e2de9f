// Package ratelimit bounds how often a key may act within a sliding window.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one Take.
type Decision struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter implements a sliding window rate limiter backed by Redis sorted
// sets. A zero Max or Window disables it.
type Limiter struct {
	Client *redis.Client
	Prefix string
	Window time.Duration
	Max    int
	Now    func() time.Time
}

func (l Limiter) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Take registers an event for key and reports whether it is within the limit.
func (l Limiter) Take(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	if l.Client == nil || l.Max <= 0 || l.Window <= 0 {
		return Decision{Allowed: true, Remaining: l.Max, Reset: now.Add(l.Window)}, nil
	}

	score := float64(now.UnixNano())
	cutoff := float64(now.Add(-l.Window).UnixNano())
	redisKey := l.Prefix + key
	member := fmt.Sprintf("%s:%s", key, uuid.NewString())

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%f", cutoff))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: score, Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Reset: now.Add(l.Window)}, fmt.Errorf("ratelimit %s: %w", key, err)
	}

	current := int(countCmd.Val())
	return Decision{
		Allowed:   current <= l.Max,
		Remaining: max(l.Max-current, 0),
		Reset:     now.Add(l.Window),
	}, nil
}
