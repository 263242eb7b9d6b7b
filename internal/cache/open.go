package cache

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/regionmap/internal/config"
)

// Open builds the cache selected by cfg.Driver. The "none" driver returns a
// nil Cache, which callers treat as caching disabled.
func Open(ctx context.Context, cfg config.CacheConfig) (Cache, error) {
	log := zap.L().With(zap.String("component", "cache"), zap.String("driver", cfg.Driver))

	switch cfg.Driver {
	case "", "memory":
		log.Debug("cache: using in-memory store")
		return NewMemory(cfg.MaxEntries, cfg.TTL()), nil
	case "sqlite":
		s, err := NewSQLite(ctx, cfg.DSN, cfg.TTL())
		if err != nil {
			return nil, err
		}
		log.Info("cache: opened sqlite store")
		return s, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, eris.Wrap(err, "cache: postgres connect")
		}
		p := NewPostgres(pool, cfg.TTL(), pool.Close)
		if err := p.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info("cache: opened postgres store")
		return p, nil
	case "redis":
		r, err := OpenRedis(ctx, cfg.DSN, cfg.TTL())
		if err != nil {
			return nil, err
		}
		log.Info("cache: opened redis store")
		return r, nil
	case "none":
		return nil, nil
	default:
		return nil, eris.Errorf("cache: unknown driver %q", cfg.Driver)
	}
}
