package cache

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLite is a file-backed cache using modernc.org/sqlite.
type SQLite struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSQLite opens the database at dsn, enables WAL mode and creates the
// cache table. A plain file path gets its parent directory created. ttl <= 0
// disables expiry.
func NewSQLite(ctx context.Context, dsn string, ttl time.Duration) (*SQLite, error) {
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, eris.Wrapf(err, "cache: create directory for %s", dsn)
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "cache: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "cache: sqlite exec %s", pragma)
		}
	}

	s := &SQLite{db: db, ttl: ttl}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS boundary_cache (
	id         TEXT PRIMARY KEY,
	cache_key  TEXT NOT NULL UNIQUE,
	payload    BLOB NOT NULL,
	cached_at  DATETIME NOT NULL,
	expires_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_boundary_cache_expires_at ON boundary_cache(expires_at);
`

func (s *SQLite) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "cache: sqlite migrate")
}

// Get implements Cache.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM boundary_cache WHERE cache_key = ? AND (expires_at IS NULL OR expires_at > ?)`,
		key, time.Now().UTC(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "cache: sqlite get %s", shortKey(key))
	}
	zap.L().Debug("cache: sqlite hit", zap.String("key", shortKey(key)), zap.Int("bytes", len(payload)))
	return payload, true, nil
}

// Put implements Cache.
func (s *SQLite) Put(ctx context.Context, key string, data []byte) error {
	now := time.Now().UTC()
	var expires *time.Time
	if s.ttl > 0 {
		e := now.Add(s.ttl)
		expires = &e
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO boundary_cache (id, cache_key, payload, cached_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET
			payload = excluded.payload,
			cached_at = excluded.cached_at,
			expires_at = excluded.expires_at`,
		uuid.New().String(), key, data, now, expires,
	)
	return eris.Wrapf(err, "cache: sqlite put %s", shortKey(key))
}

// Clear implements Cache.
func (s *SQLite) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM boundary_cache`)
	return eris.Wrap(err, "cache: sqlite clear")
}

// Close implements Cache.
func (s *SQLite) Close() error {
	return s.db.Close()
}
