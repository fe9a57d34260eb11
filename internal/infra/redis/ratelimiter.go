package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pulselabs/pulse/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultMaxRequests int64 = 10
	defaultWindow            = 60 * time.Second
	waitStep                 = 50 * time.Millisecond
	waitMax                  = 500 * time.Millisecond
)

// The first INCR in a window sets the key's expiry so a counter is
// never immortal even if the caller goes quiet.
var admitScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

var _ ratelimit.Limiter = (*FixedWindowLimiter)(nil)

// FixedWindowLimiter is a distributed fixed-window rate limiter backed
// by Redis. Counters live under one key per (caller key, window index)
// with a TTL of one window, so a burst can straddle a window boundary;
// that is acceptable for admission control and this is not a billing
// mechanism.
type FixedWindowLimiter struct {
	client      *goredis.Client
	maxRequests int64
	window      time.Duration
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
	script      *goredis.Script
}

func NewFixedWindowLimiter(client *goredis.Client, maxRequests int, window time.Duration) (*FixedWindowLimiter, error) {
	return newFixedWindowLimiter(client, int64(maxRequests), window, time.Now, sleepWithContext)
}

func newFixedWindowLimiter(
	client *goredis.Client,
	maxRequests int64,
	window time.Duration,
	nowFn func() time.Time,
	sleepFn func(ctx context.Context, d time.Duration) error,
) (*FixedWindowLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if maxRequests <= 0 {
		maxRequests = defaultMaxRequests
	}
	if window <= 0 {
		window = defaultWindow
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if sleepFn == nil {
		sleepFn = sleepWithContext
	}

	return &FixedWindowLimiter{
		client:      client,
		maxRequests: maxRequests,
		window:      window,
		now:         nowFn,
		sleep:       sleepFn,
		script:      admitScript,
	}, nil
}

// Admit atomically counts the request against the current window and
// reports whether it fits under the budget. A rejection has no side
// effect beyond the counter increment.
func (l *FixedWindowLimiter) Admit(ctx context.Context, key string) (bool, error) {
	if l == nil || l.client == nil || l.script == nil {
		return false, fmt.Errorf("rate limiter is not initialized")
	}

	normalized := strings.ToLower(strings.TrimSpace(key))
	if normalized == "" {
		return false, fmt.Errorf("rate limit key is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	windowSeconds := int64(l.window / time.Second)
	windowIndex := l.now().UTC().Unix() / windowSeconds
	redisKey := fmt.Sprintf("ratelimit:%s:%d", normalized, windowIndex)

	result, err := l.script.Run(ctx, l.client, []string{redisKey}, l.maxRequests, windowSeconds).Int()
	if err != nil {
		return false, fmt.Errorf("failed to evaluate rate limit: %w", err)
	}

	return result == 1, nil
}

// Wait polls Admit until the key is admitted or the context ends.
func (l *FixedWindowLimiter) Wait(ctx context.Context, key string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	pause := waitStep
	for {
		admitted, err := l.Admit(ctx, key)
		if err != nil {
			return err
		}
		if admitted {
			return nil
		}

		if err := l.sleep(ctx, pause); err != nil {
			return err
		}

		pause += waitStep
		if pause > waitMax {
			pause = waitMax
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
