package redislimiter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// Limit defines window and max count for a bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Limiter is a Redis-backed sliding window limiter using ZSETs, shared by
// every replica talking to the same Redis.
type Limiter struct {
	rdb    redis.UniversalClient
	clock  clockwork.Clock
	prefix string
	limits map[string]Limit
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock sets the time source used for window scores.
func WithClock(c clockwork.Clock) Option {
	return func(l *Limiter) {
		l.clock = c
	}
}

// WithKeyPrefix namespaces limiter keys. Default "webeid:rl:".
func WithKeyPrefix(p string) Option {
	return func(l *Limiter) {
		l.prefix = p
	}
}

func New(rdb redis.UniversalClient, limits map[string]Limit, opts ...Option) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
	}
	l := &Limiter{rdb: rdb, clock: clockwork.NewRealClock(), prefix: "webeid:rl:", limits: limits}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) get(bucket string) Limit {
	if v, ok := l.limits[bucket]; ok {
		return v
	}
	if v, ok := l.limits["default"]; ok {
		return v
	}
	return Limit{Limit: 100, Window: time.Minute}
}

// AllowNamed reports whether key may make another request in bucket.
func (l *Limiter) AllowNamed(ctx context.Context, bucket, key string) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}
	lim := l.get(bucket)
	now := l.clock.Now().UnixMilli()
	start := now - lim.Window.Milliseconds()
	limitKey := l.prefix + bucket + ":" + key
	member := strconv.FormatInt(now, 10) + ":" + uuid.NewString()

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, limitKey, "-inf", strconv.FormatInt(start, 10))
	pipe.ZAdd(ctx, limitKey, redis.Z{Score: float64(now), Member: member})
	countCmd := pipe.ZCard(ctx, limitKey)
	pipe.PExpire(ctx, limitKey, lim.Window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	count, err := countCmd.Result()
	if err != nil {
		return false, err
	}
	if count > int64(lim.Limit) {
		// Denied attempts do not consume the window.
		l.rdb.ZRem(ctx, limitKey, member)
		return false, nil
	}
	return true, nil
}
