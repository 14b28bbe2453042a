package memorystore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// NonceStore is an in-memory nonce store with per-entry TTL.
// It is intended for single-node deployments and tests.
type NonceStore struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	data      map[string]item
	closed    chan struct{}
	closeOnce sync.Once
}

type item struct {
	issuedAt time.Time
	exp      time.Time
}

// Option configures a NonceStore.
type Option func(*NonceStore)

// WithClock sets the clock used for TTL bookkeeping.
func WithClock(c clockwork.Clock) Option {
	return func(s *NonceStore) {
		s.clock = c
	}
}

// NewNonceStore creates an empty store.
// Starts a background goroutine to clean up expired entries every minute.
func NewNonceStore(opts ...Option) *NonceStore {
	s := &NonceStore{
		clock:  clockwork.NewRealClock(),
		data:   make(map[string]item),
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.cleanupLoop()
	return s
}

// Put stores nonce until ttl elapses. Re-issuing a live nonce is rejected.
func (s *NonceStore) Put(ctx context.Context, nonce string, issuedAt time.Time, ttl time.Duration) error {
	_ = ctx
	if nonce == "" {
		return errors.New("memorystore: empty nonce")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	if it, ok := s.data[nonce]; ok && !now.After(it.exp) {
		return errors.New("memorystore: nonce already issued")
	}
	s.data[nonce] = item{issuedAt: issuedAt, exp: now.Add(ttl)}
	return nil
}

// GetAndDelete removes nonce and reports its issuance time.
func (s *NonceStore) GetAndDelete(ctx context.Context, nonce string) (time.Time, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.data[nonce]
	if !ok {
		return time.Time{}, false, nil
	}
	delete(s.data, nonce)
	if s.clock.Now().After(it.exp) {
		return time.Time{}, false, nil
	}
	return it.issuedAt, true, nil
}

// Len returns the number of stored entries, expired or not.
func (s *NonceStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *NonceStore) cleanupLoop() {
	ticker := s.clock.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.Chan():
			s.cleanup()
		case <-s.closed:
			return
		}
	}
}

func (s *NonceStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	for k, v := range s.data {
		if now.After(v.exp) {
			delete(s.data, k)
		}
	}
}

// Close stops the background cleanup goroutine. It is safe to call more than once.
func (s *NonceStore) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}
