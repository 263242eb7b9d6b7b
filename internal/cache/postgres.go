package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Pool is the subset of pgxpool.Pool the Postgres cache uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres stores cache entries in public.boundary_cache.
type Postgres struct {
	pool  Pool
	ttl   time.Duration
	close func()
}

// NewPostgres wraps an existing pool. closeFn, if non-nil, runs on Close.
func NewPostgres(pool Pool, ttl time.Duration, closeFn func()) *Postgres {
	return &Postgres{pool: pool, ttl: ttl, close: closeFn}
}

// Migrate creates the cache table if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS public.boundary_cache (
			id         UUID PRIMARY KEY,
			cache_key  TEXT NOT NULL UNIQUE,
			payload    BYTEA NOT NULL,
			cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			expires_at TIMESTAMPTZ
		)`)
	return eris.Wrap(err, "cache: postgres migrate")
}

// Get implements Cache.
func (p *Postgres) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	err := p.pool.QueryRow(ctx,
		`SELECT payload FROM public.boundary_cache WHERE cache_key = $1 AND (expires_at IS NULL OR expires_at > $2)`,
		key, time.Now().UTC(),
	).Scan(&payload)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "cache: postgres get %s", shortKey(key))
	}
	zap.L().Debug("cache: postgres hit", zap.String("key", shortKey(key)), zap.Int("bytes", len(payload)))
	return payload, true, nil
}

// Put implements Cache.
func (p *Postgres) Put(ctx context.Context, key string, data []byte) error {
	now := time.Now().UTC()
	var expires *time.Time
	if p.ttl > 0 {
		e := now.Add(p.ttl)
		expires = &e
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO public.boundary_cache (id, cache_key, payload, cached_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cache_key) DO UPDATE SET
			payload = EXCLUDED.payload,
			cached_at = EXCLUDED.cached_at,
			expires_at = EXCLUDED.expires_at`,
		uuid.New(), key, data, now, expires,
	)
	return eris.Wrapf(err, "cache: postgres put %s", shortKey(key))
}

// Clear implements Cache.
func (p *Postgres) Clear(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `TRUNCATE public.boundary_cache`)
	return eris.Wrap(err, "cache: postgres clear")
}

// Close implements Cache.
func (p *Postgres) Close() error {
	if p.close != nil {
		p.close()
	}
	return nil
}
