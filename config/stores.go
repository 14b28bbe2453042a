package config

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	noncekit "github.com/PaulFidika/webeid/nonce"
	migrations "github.com/PaulFidika/webeid/migrations/postgres"
	memorylimiter "github.com/PaulFidika/webeid/ratelimit/memory"
	redislimiter "github.com/PaulFidika/webeid/ratelimit/redis"
	memorystore "github.com/PaulFidika/webeid/storage/memory"
	pgstore "github.com/PaulFidika/webeid/storage/postgres"
	redisstore "github.com/PaulFidika/webeid/storage/redis"
)

// RateLimiter is implemented by the memory and Redis limiters.
type RateLimiter interface {
	AllowNamed(ctx context.Context, bucket, key string) (bool, error)
}

// Backend holds the nonce store and rate limiter chosen from Settings,
// plus whatever must be shut down with them.
type Backend struct {
	Store   noncekit.Store
	Limiter RateLimiter
	closers []func(context.Context)
}

// Close releases connections and stops background purges.
func (b *Backend) Close(ctx context.Context) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i](ctx)
	}
}

// OpenBackend picks Redis when WEBEID_REDIS_ADDR is set, Postgres when
// WEBEID_POSTGRES_DSN is set, and an in-process store otherwise. The
// rate limiter follows Redis when available.
func OpenBackend(ctx context.Context, s Settings, limits map[string]memorylimiter.Limit, logger logrus.FieldLogger) (*Backend, error) {
	b := &Backend{}
	switch {
	case s.RedisAddr != "":
		rdb := redis.NewClient(&redis.Options{Addr: s.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, err
		}
		b.closers = append(b.closers, func(context.Context) { _ = rdb.Close() })
		b.Store = redisstore.NewNonceStore(rdb, "")
		rl := make(map[string]redislimiter.Limit, len(limits))
		for k, v := range limits {
			rl[k] = redislimiter.Limit{Limit: v.Limit, Window: v.Window}
		}
		b.Limiter = redislimiter.New(rdb, rl)
		return b, nil

	case s.PostgresDSN != "":
		pool, err := pgxpool.New(ctx, s.PostgresDSN)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func(context.Context) { pool.Close() })
		if s.PostgresAutoMigrate {
			if err := migrate(ctx, pool); err != nil {
				b.Close(ctx)
				return nil, err
			}
		}
		store := pgstore.NewNonceStore(pool, "", clockwork.NewRealClock())
		j, err := pgstore.NewJanitor(store, pgstore.DefaultPurgeSchedule, logger)
		if err != nil {
			b.Close(ctx)
			return nil, err
		}
		j.Start()
		b.closers = append(b.closers, j.Stop)
		b.Store = store

	default:
		store := memorystore.NewNonceStore()
		b.closers = append(b.closers, func(context.Context) { _ = store.Close() })
		b.Store = store
	}
	b.Limiter = memorylimiter.New(limits)
	return b, nil
}

// migrate applies the embedded nonce table migrations. Statements are
// idempotent so running them on every start is safe.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts, err := migrations.UpStatements()
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
