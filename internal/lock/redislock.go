// Package lock serialises cart mutations across processes. A holder owns a
// key by writing a random token with SET NX and only deletes the key while
// that token is still stored.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL     = 30 * time.Second
	defaultBackoff = 50 * time.Millisecond
)

// ErrLocked is returned when the key is still held once MaxWait has elapsed.
var ErrLocked = errors.New("lock: key is locked")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Client is the subset of a Redis client the lock needs.
type Client interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

// Locker is a Redis backed mutual exclusion lock. Keys live under
// Prefix+":lock:". A zero MaxWait waits until ctx is done.
type Locker struct {
	R            Client
	Prefix       string
	RetryBackoff time.Duration
	MaxWait      time.Duration
}

// Key returns the Redis key guarding name.
func (l Locker) Key(name string) string {
	prefix := strings.TrimSuffix(l.Prefix, ":")
	if prefix == "" {
		return "lock:" + name
	}
	return prefix + ":lock:" + name
}

// WithLock runs fn while holding the lock for name. The lock is released
// after fn returns, whatever the outcome.
func (l Locker) WithLock(ctx context.Context, name string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	key := l.Key(name)
	token, err := l.acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	defer l.release(key, token)
	return fn(ctx)
}

func (l Locker) acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	backoff := l.RetryBackoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	var deadline time.Time
	if l.MaxWait > 0 {
		deadline = time.Now().Add(l.MaxWait)
	}

	for attempt := 1; ; attempt++ {
		ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return "", fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			return token, nil
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return "", fmt.Errorf("%w after %d attempts", ErrLocked, attempt)
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
}

// release runs on a fresh context so a cancelled caller still frees the key.
func (l Locker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = releaseScript.Run(ctx, l.R, []string{key}, token).Err()
}
