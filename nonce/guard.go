package noncekit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound covers nonces that were never issued, were already consumed,
	// or were evicted by the store TTL. The three cases are indistinguishable.
	ErrNotFound = errors.New("nonce not found or expired")
	// ErrExpired is returned when the stored issuance time falls outside the
	// validity window.
	ErrExpired = errors.New("nonce expired")
	// ErrStore wraps failures of the backing store.
	ErrStore = errors.New("nonce store unavailable")
)

// Guard enforces single use of nonces against a Store.
type Guard struct {
	store Store
	ttl   time.Duration
	skew  time.Duration
}

// NewGuard returns a guard accepting nonces issued at most ttl ago. skew
// tolerates an issuance time slightly ahead of the validating server's clock.
func NewGuard(store Store, ttl, skew time.Duration) *Guard {
	return &Guard{store: store, ttl: ttl, skew: skew}
}

// Consume removes nonce from the store and checks its freshness at now.
// The entry is deleted even when it turns out to be expired, so any
// later attempt with the same value fails with ErrNotFound.
func (g *Guard) Consume(ctx context.Context, nonce string, now time.Time) error {
	issuedAt, found, err := g.store.GetAndDelete(ctx, nonce)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	if !found {
		return ErrNotFound
	}
	if now.Before(issuedAt.Add(-g.skew)) {
		return fmt.Errorf("%w: issued at %s, ahead of server time %s",
			ErrExpired, issuedAt.UTC().Format(time.RFC3339), now.UTC().Format(time.RFC3339))
	}
	if now.After(issuedAt.Add(g.ttl)) {
		return fmt.Errorf("%w: issued at %s, valid for %s",
			ErrExpired, issuedAt.UTC().Format(time.RFC3339), g.ttl)
	}
	return nil
}
