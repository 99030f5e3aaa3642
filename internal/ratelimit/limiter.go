package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// RateLimiter bounds outbound send throughput per provider key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Wait(ctx context.Context, key string) error
}

const (
	defaultLimitPerSec = 100
	backoffStep        = 10 * time.Millisecond
	backoffMax         = 50 * time.Millisecond
)

// LocalRateLimiter is an in-process per-second window limiter, used when no
// Redis endpoint is configured. One counter per key per wall-clock second.
type LocalRateLimiter struct {
	mu          sync.Mutex
	limitPerSec int
	window      int64
	counts      map[string]int
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewLocalRateLimiter(limitPerSec int) *LocalRateLimiter {
	if limitPerSec <= 0 {
		limitPerSec = defaultLimitPerSec
	}

	return &LocalRateLimiter{
		limitPerSec: limitPerSec,
		counts:      make(map[string]int),
		now:         time.Now,
		sleep:       sleepWithContext,
	}
}

// WithClock replaces the limiter clock. Test hook.
func (l *LocalRateLimiter) WithClock(now func() time.Time) *LocalRateLimiter {
	if now != nil {
		l.now = now
	}
	return l
}

func (l *LocalRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	normalizedKey := strings.ToLower(strings.TrimSpace(key))
	if normalizedKey == "" {
		return false, fmt.Errorf("rate limit key is required")
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return false, err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	window := l.now().UTC().Unix()
	if window != l.window {
		l.window = window
		l.counts = make(map[string]int)
	}

	if l.counts[normalizedKey] >= l.limitPerSec {
		return false, nil
	}
	l.counts[normalizedKey]++
	return true, nil
}

func (l *LocalRateLimiter) Wait(ctx context.Context, key string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	backoff := backoffStep
	for {
		allowed, err := l.Allow(ctx, key)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		if err := l.sleep(ctx, backoff); err != nil {
			return err
		}

		backoff += backoffStep
		if backoff > backoffMax {
			backoff = backoffMax
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ RateLimiter = (*LocalRateLimiter)(nil)
