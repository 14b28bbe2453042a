package noncekit

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// DefaultLength is the number of random bytes in an issued nonce.
	DefaultLength = 32
	// DefaultTTL is how long an issued nonce stays valid.
	DefaultTTL = 5 * time.Minute
)

// Generator issues nonces and records them in a Store.
type Generator struct {
	store  Store
	ttl    time.Duration
	length int
	clock  clockwork.Clock
}

// GeneratorOpt configures a Generator.
type GeneratorOpt func(*Generator)

// WithClock sets the time source used for issuance timestamps.
func WithClock(c clockwork.Clock) GeneratorOpt {
	return func(g *Generator) {
		g.clock = c
	}
}

// WithLength sets the number of random bytes per nonce. Values below
// DefaultLength are ignored.
func WithLength(n int) GeneratorOpt {
	return func(g *Generator) {
		if n >= DefaultLength {
			g.length = n
		}
	}
}

// NewGenerator creates a generator storing nonces in store.
// If ttl <= 0, DefaultTTL is used.
func NewGenerator(store Store, ttl time.Duration, opts ...GeneratorOpt) *Generator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	g := &Generator{store: store, ttl: ttl, length: DefaultLength, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// TTL returns the validity window applied to issued nonces.
func (g *Generator) TTL() time.Duration { return g.ttl }

// Issue creates a new random nonce and stores it with the current time.
func (g *Generator) Issue(ctx context.Context) (string, error) {
	b := make([]byte, g.length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce := base64.StdEncoding.EncodeToString(b)
	if err := g.store.Put(ctx, nonce, g.clock.Now(), g.ttl); err != nil {
		return "", fmt.Errorf("failed to store nonce: %w", err)
	}
	return nonce, nil
}
