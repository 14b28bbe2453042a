package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrDuplicateNonce is returned by Put when the nonce is already live.
var ErrDuplicateNonce = errors.New("redisstore: nonce already issued")

// NonceStore keeps issued nonces in Redis. Entries expire through the Redis
// key TTL and are consumed with GETDEL, which is atomic on the server.
type NonceStore struct {
	rdb   redis.UniversalClient
	keyNS string
}

// NewNonceStore creates a Redis-backed nonce store.
func NewNonceStore(rdb redis.UniversalClient, keyPrefix string) *NonceStore {
	if keyPrefix == "" {
		keyPrefix = "webeid:nonce:"
	}
	return &NonceStore{rdb: rdb, keyNS: keyPrefix}
}

func (s *NonceStore) key(nonce string) string { return s.keyNS + nonce }

// Put stores the issuance time under the nonce key with the given TTL.
func (s *NonceStore) Put(ctx context.Context, nonce string, issuedAt time.Time, ttl time.Duration) error {
	ok, err := s.rdb.SetNX(ctx, s.key(nonce), issuedAt.UTC().Format(time.RFC3339Nano), ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicateNonce
	}
	return nil
}

// GetAndDelete atomically reads and removes the nonce key.
func (s *NonceStore) GetAndDelete(ctx context.Context, nonce string) (time.Time, bool, error) {
	val, err := s.rdb.GetDel(ctx, s.key(nonce)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	issuedAt, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redisstore: corrupt nonce record: %w", err)
	}
	return issuedAt, true, nil
}
