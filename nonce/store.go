package noncekit

import (
	"context"
	"time"
)

// Store persists issued nonces until they are consumed or their TTL elapses.
//
// Implementations must make GetAndDelete atomic: when several callers race on
// the same nonce, exactly one of them observes found == true.
type Store interface {
	// Put records a freshly issued nonce. The entry must disappear after ttl.
	Put(ctx context.Context, nonce string, issuedAt time.Time, ttl time.Duration) error
	// GetAndDelete removes the nonce and returns its issuance time. found is
	// false when the nonce was never issued, was already consumed, or expired.
	GetAndDelete(ctx context.Context, nonce string) (issuedAt time.Time, found bool, err error)
}
