package resilience

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Guard runs calls against a downstream dependency with a per-attempt
// timeout, bounded retries and a circuit breaker.
type Guard struct {
	Breaker     *Breaker
	BaseBackoff time.Duration
	MaxAttempts int
	Jitter      float64
	Timeout     time.Duration
}

// Do executes fn until it succeeds, the attempts run out or the breaker
// opens. ErrOpenCircuit is returned when no attempt was allowed; once an
// attempt has run, the last dependency error is returned instead. A nil
// Breaker disables breaking.
func (g Guard) Do(ctx context.Context, fn func(context.Context) error) error {
	_, err := Call(ctx, g, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Call is Do for functions returning a value.
func Call[T any](ctx context.Context, g Guard, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	breaker := g.Breaker
	maxAttempts := g.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	baseBackoff := g.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = 50 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if breaker != nil && !breaker.Allow(ctx) {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, ErrOpenCircuit
		}
		v, err := callOnce(ctx, g.Timeout, fn)
		if err == nil {
			if breaker != nil {
				breaker.Report(ctx, true)
			}
			return v, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			if breaker != nil {
				breaker.release()
			}
			return zero, err
		}
		if breaker != nil {
			breaker.Report(ctx, false)
		}
		if attempt == maxAttempts {
			break
		}
		timer := time.NewTimer(Backoff(baseBackoff, attempt, g.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, lastErr
}

func callOnce[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(callCtx)
}

// Backoff returns an exponential backoff duration for the provided attempt.
// Jitter is expressed as a fraction (e.g. 0.2 == 20%).
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base * time.Duration(1<<uint(attempt-1))
	if jitterPct <= 0 {
		return d
	}
	jitter := float64(d) * jitterPct
	delta := (rand.Float64()*2 - 1) * jitter
	return d + time.Duration(delta)
}
