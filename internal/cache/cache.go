package cache

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Cache is a TTL key-value store backed by its own SQLite file, separate from
// the catalog database so it can be wiped without losing data.
//
// A Cache whose backing file cannot be opened degrades to a no-op: every read
// misses and every write is dropped. Callers never need to branch on cache
// availability.
type Cache struct {
	db *sql.DB
}

const cacheMigration = `
CREATE TABLE IF NOT EXISTS entries (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_expires_at ON entries(expires_at);
`

// Open opens (or creates) the cache database at path. It never returns an
// error: on failure it logs a warning and returns a disabled cache.
func Open(path string) *Cache {
	db, err := open(path)
	if err != nil {
		zap.L().Warn("cache unavailable, continuing without",
			zap.String("path", path),
			zap.Error(err))
		return &Cache{}
	}
	return &Cache{db: db}
}

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}
	if _, err := db.Exec(cacheMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "cache: migrate")
	}
	return db, nil
}

// Enabled reports whether the cache has a live backing store.
func (c *Cache) Enabled() bool { return c.db != nil }

// Get returns the unexpired value for key, or ("", false) on a miss. A
// disabled cache always misses.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	if c.db == nil {
		return "", false
	}
	row := c.db.QueryRowContext(ctx,
		`SELECT value FROM entries WHERE key = ? AND expires_at > datetime('now')`,
		key,
	)
	var value string
	err := row.Scan(&value)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		zap.L().Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return value, true
}

// Set stores value under key with the given lifetime, overwriting any
// previous entry. Failures are logged and dropped.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if c.db == nil {
		return
	}
	now := time.Now().UTC()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO entries (key, value, created_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value,
		   created_at = excluded.created_at, expires_at = excluded.expires_at`,
		key, value, now, now.Add(ttl),
	)
	if err != nil {
		zap.L().Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes the entry for key if present.
func (c *Cache) Delete(ctx context.Context, key string) {
	if c.db == nil {
		return
	}
	if _, err := c.db.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key); err != nil {
		zap.L().Warn("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

// DeletePrefix removes every entry whose key starts with prefix and returns
// the number of rows removed. Used to invalidate all pages of one competition.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) int {
	if c.db == nil {
		return 0
	}
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM entries WHERE key LIKE ? ESCAPE '\'`,
		escapeLike(prefix)+"%",
	)
	if err != nil {
		zap.L().Warn("cache delete prefix failed", zap.String("prefix", prefix), zap.Error(err))
		return 0
	}
	n, _ := res.RowsAffected()
	return int(n)
}

// PurgeExpired removes entries past their lifetime and returns the count.
func (c *Cache) PurgeExpired(ctx context.Context) int {
	if c.db == nil {
		return 0
	}
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM entries WHERE expires_at <= datetime('now')`,
	)
	if err != nil {
		zap.L().Warn("cache purge failed", zap.Error(err))
		return 0
	}
	n, _ := res.RowsAffected()
	return int(n)
}

// Close releases the backing database. Safe on a disabled cache.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func escapeLike(s string) string {
	var out []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
