// Package cache stores engine results in SQLite so repeated calls with the
// same arguments skip the site. Entries expire after a TTL and can be
// invalidated explicitly.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jmylchreest/froid/internal/logger"
)

// DefaultTTL is used when Open is given a zero TTL.
const DefaultTTL = time.Hour

const createEntriesTable = `
CREATE TABLE IF NOT EXISTS entries (
	op        TEXT    NOT NULL,
	key       TEXT    NOT NULL,
	value     BLOB    NOT NULL,
	stored_at INTEGER NOT NULL,
	PRIMARY KEY (op, key)
)`

// Store is a TTL keyed blob store.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// Open opens or creates the cache database at path. ":memory:" gives a
// private in-process cache.
func Open(path string, ttl time.Duration) (*Store, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create cache directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	// one connection: every :memory: connection is a separate database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createEntriesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}
	return &Store{db: db, ttl: ttl, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// TTL returns the entry lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Get decodes the live entry for (op, key) into v. It reports false when
// there is no entry or it has expired.
func (s *Store) Get(ctx context.Context, op, key string, v any) (bool, error) {
	var (
		value    []byte
		storedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, stored_at FROM entries WHERE op = ? AND key = ?`, op, key,
	).Scan(&value, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if s.now().Sub(time.Unix(0, storedAt)) >= s.ttl {
		logger.DebugContext(ctx, "cache entry expired", "op", op, "key", key)
		return false, nil
	}
	if err := json.Unmarshal(value, v); err != nil {
		// undecodable entries are treated as misses and overwritten
		logger.DebugContext(ctx, "cache entry unreadable", "op", op, "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

// Put stores v under (op, key), replacing any previous entry.
func (s *Store) Put(ctx context.Context, op, key string, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entries (op, key, value, stored_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (op, key) DO UPDATE SET value = excluded.value, stored_at = excluded.stored_at`,
		op, key, value, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Invalidate removes the entry for (op, key).
func (s *Store) Invalidate(ctx context.Context, op, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE op = ? AND key = ?`, op, key); err != nil {
		return fmt.Errorf("failed to invalidate cache entry: %w", err)
	}
	return nil
}

// InvalidatePost drops the cached post page and statistics for id.
func (s *Store) InvalidatePost(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE key = ? AND op IN (?, ?)`, id, OpPost, OpStats); err != nil {
		return fmt.Errorf("failed to invalidate post %s: %w", id, err)
	}
	return nil
}

// Purge removes every entry and returns how many there were.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	return res.RowsAffected()
}

// Len returns the number of stored entries, expired or not.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}
