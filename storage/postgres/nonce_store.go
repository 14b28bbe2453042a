package pgstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
)

// NonceStore keeps issued nonces in Postgres. Consumption is a single
// DELETE ... RETURNING statement, so concurrent consumers of one nonce
// cannot both see the row.
type NonceStore struct {
	pg     *pgxpool.Pool
	schema string
	clock  clockwork.Clock
}

// NewNonceStore creates a store over the nonces table in schema.
func NewNonceStore(pg *pgxpool.Pool, schema string, clock clockwork.Clock) *NonceStore {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "webeid"
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &NonceStore{pg: pg, schema: s, clock: clock}
}

func (s *NonceStore) noncesTable() string { return s.schema + ".nonces" }

// Put inserts a nonce expiring ttl from now.
func (s *NonceStore) Put(ctx context.Context, nonce string, issuedAt time.Time, ttl time.Duration) error {
	_, err := s.pg.Exec(ctx, `INSERT INTO `+s.noncesTable()+` (nonce, issued_at, expires_at) VALUES ($1, $2, $3)`,
		nonce, issuedAt.UTC(), s.clock.Now().Add(ttl).UTC())
	return err
}

// GetAndDelete removes the nonce row. Rows past their expiry are removed
// but reported as not found.
func (s *NonceStore) GetAndDelete(ctx context.Context, nonce string) (time.Time, bool, error) {
	var issuedAt, expiresAt time.Time
	err := s.pg.QueryRow(ctx, `DELETE FROM `+s.noncesTable()+` WHERE nonce=$1 RETURNING issued_at, expires_at`, nonce).
		Scan(&issuedAt, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	if s.clock.Now().After(expiresAt) {
		return time.Time{}, false, nil
	}
	return issuedAt, true, nil
}

// PurgeExpired deletes rows whose TTL has elapsed and returns how many were removed.
func (s *NonceStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.pg.Exec(ctx, `DELETE FROM `+s.noncesTable()+` WHERE expires_at < $1`, s.clock.Now().UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
