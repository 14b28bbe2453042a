package memorylimiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Limit defines window and max count for a bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

type bucketState struct {
	// timestamps holds request times in Unix ms, newest last.
	timestamps []int64
}

// Limiter is an in-memory sliding-window rate limiter for single-node
// deployments.
type Limiter struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	limits  map[string]Limit
	buckets map[string]*bucketState
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock sets the time source.
func WithClock(c clockwork.Clock) Option {
	return func(l *Limiter) {
		l.clock = c
	}
}

// New constructs a limiter with the provided per-bucket limits. The
// "default" entry applies to buckets without their own limit.
func New(limits map[string]Limit, opts ...Option) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
	}
	l := &Limiter{
		clock:   clockwork.NewRealClock(),
		limits:  limits,
		buckets: make(map[string]*bucketState),
	}
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
// Expired entries are pruned on each call and empty buckets removed.
func (l *Limiter) AllowNamed(_ context.Context, bucket, key string) (bool, error) {
	if l == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}

	lim := l.get(bucket)
	nowMs := l.clock.Now().UnixMilli()
	windowStart := nowMs - lim.Window.Milliseconds()
	limitKey := key + ":" + bucket

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[limitKey]
	if !ok {
		b = &bucketState{}
		l.buckets[limitKey] = b
	}

	ts := b.timestamps
	pruneIdx := 0
	for pruneIdx < len(ts) && ts[pruneIdx] <= windowStart {
		pruneIdx++
	}
	ts = ts[pruneIdx:]

	if len(ts) >= lim.Limit {
		// Deny without recording this attempt.
		b.timestamps = ts
		return false, nil
	}

	b.timestamps = append(ts, nowMs)
	return true, nil
}

// Sweep drops buckets whose entries have all left their window.
func (l *Limiter) Sweep() {
	nowMs := l.clock.Now().UnixMilli()
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, b := range l.buckets {
		_, bucket, _ := cutLast(k)
		lim := l.get(bucket)
		if n := len(b.timestamps); n == 0 || b.timestamps[n-1] <= nowMs-lim.Window.Milliseconds() {
			delete(l.buckets, k)
		}
	}
}

func cutLast(s string) (before, after string, found bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ':' {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}
