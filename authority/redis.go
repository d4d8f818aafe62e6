package authority

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

//go:embed sliding_window.lua
var slidingWindowScript string

const outcomeTTL = 24 * time.Hour

// RedisLimiter is the production [Limiter]: a sliding-window log in a
// sorted set plus a block marker key, updated atomically by a Lua script
// so per-identifier checks serialize on the Redis side.
type RedisLimiter struct {
	redis  redis.UniversalClient
	limits Limits
	script *redis.Script
	now    func() time.Time
}

// NewRedisLimiter creates a limiter backed by the given Redis client.
// A nil now defaults to time.Now.
func NewRedisLimiter(client redis.UniversalClient, limits Limits, now func() time.Time) (*RedisLimiter, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}

	return &RedisLimiter{
		redis:  client,
		limits: limits,
		script: redis.NewScript(slidingWindowScript),
		now:    now,
	}, nil
}

// Allow checks and records one attempt for the (action, identifier) pair.
func (l *RedisLimiter) Allow(ctx context.Context, action, identifier string) (Verdict, error) {
	lim := l.limits.For(action)
	now := l.now()

	res, err := l.script.Run(ctx, l.redis,
		[]string{windowKey(action, identifier), blockKey(action, identifier)},
		now.UnixMilli(),
		lim.Window.Milliseconds(),
		lim.MaxAttempts,
		lim.BlockDuration.Milliseconds(),
		uuid.NewString(),
	).Result()
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) != 3 {
		return Verdict{}, fmt.Errorf("%w: unexpected script response", ErrBackendUnavailable)
	}

	allowed, _ := values[0].(int64)
	remaining, _ := values[1].(int64)
	blockTTL, _ := values[2].(int64)

	v := Verdict{
		Allowed:   allowed == 1,
		Remaining: int(remaining),
	}
	if !v.Allowed {
		v.BlockedUntil = now.Add(time.Duration(blockTTL) * time.Millisecond)
	}
	return v, nil
}

// RecordOutcome increments a per-identifier success or failure counter
// with a rolling TTL. Feeds server-side anomaly detection; never consulted
// on the check path.
func (l *RedisLimiter) RecordOutcome(ctx context.Context, action, identifier string, success bool) error {
	key := outcomeKey(action, identifier, success)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, outcomeTTL).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}
	return nil
}

// Outcomes returns the recorded success/failure counts for a pair.
func (l *RedisLimiter) Outcomes(ctx context.Context, action, identifier string) (successes, failures int64, err error) {
	successes, err = l.outcomeCount(ctx, outcomeKey(action, identifier, true))
	if err != nil {
		return 0, 0, err
	}
	failures, err = l.outcomeCount(ctx, outcomeKey(action, identifier, false))
	if err != nil {
		return 0, 0, err
	}
	return successes, failures, nil
}

func (l *RedisLimiter) outcomeCount(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return count, nil
}

func windowKey(action, identifier string) string {
	return "aga:win:" + action + ":" + identifier
}

func blockKey(action, identifier string) string {
	return "aga:blk:" + action + ":" + identifier
}

func outcomeKey(action, identifier string, success bool) string {
	if success {
		return "aga:out:ok:" + action + ":" + identifier
	}
	return "aga:out:fail:" + action + ":" + identifier
}
