package pgstore

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	migrations "github.com/PaulFidika/webeid/migrations/postgres"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("WEBEID_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("WEBEID_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	stmts, err := migrations.UpStatements()
	require.NoError(t, err)
	for _, stmt := range stmts {
		_, err := pool.Exec(ctx, stmt)
		require.NoError(t, err)
	}
	return pool
}

func TestNonceStore_PutAndConsume(t *testing.T) {
	ctx := context.Background()
	s := NewNonceStore(testPool(t), "", nil)
	nonce := uuid.NewString()

	issued := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, s.Put(ctx, nonce, issued, time.Minute))
	assert.Error(t, s.Put(ctx, nonce, issued, time.Minute), "primary key rejects re-issue")

	got, found, err := s.GetAndDelete(ctx, nonce)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, got.Equal(issued))

	_, found, err = s.GetAndDelete(ctx, nonce)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNonceStore_ExpiredRows(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	s := NewNonceStore(testPool(t), "webeid", clock)

	expired, live := uuid.NewString(), uuid.NewString()
	require.NoError(t, s.Put(ctx, expired, clock.Now(), time.Second))
	require.NoError(t, s.Put(ctx, live, clock.Now(), time.Hour))
	clock.Advance(time.Minute)

	n, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	_, found, err := s.GetAndDelete(ctx, expired)
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = s.GetAndDelete(ctx, live)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestNonceStore_ConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	s := NewNonceStore(testPool(t), "", nil)
	nonce := uuid.NewString()
	require.NoError(t, s.Put(ctx, nonce, time.Now(), time.Minute))

	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, found, err := s.GetAndDelete(ctx, nonce); err == nil && found {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
