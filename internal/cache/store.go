// Package cache keeps synthesized audio in SQLite so that re-running a file
// does not pay for the same text twice.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS synthesis (
    key        TEXT PRIMARY KEY,
    provider   TEXT NOT NULL,
    text       TEXT NOT NULL,
    audio      BLOB NOT NULL,
    created_at TEXT NOT NULL,
    hits       INTEGER NOT NULL DEFAULT 0
);
`

// Store is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
}

type Stats struct {
	Entries int64
	Bytes   int64
	Hits    int64
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	return s.path
}

// Get reports ok=false on a miss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT audio FROM synthesis WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query cache: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE synthesis SET hits = hits + 1 WHERE key = ?`, key); err != nil {
		return nil, false, fmt.Errorf("update cache hits: %w", err)
	}
	return data, true, nil
}

func (s *Store) Put(ctx context.Context, key, provider, text string, data []byte) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO synthesis (key, provider, text, audio, created_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET audio = excluded.audio, created_at = excluded.created_at`,
		key,
		provider,
		text,
		data,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM synthesis`)
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		return n, fmt.Errorf("vacuum cache: %w", err)
	}
	return n, nil
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(audio)), 0), COALESCE(SUM(hits), 0) FROM synthesis`,
	).Scan(&st.Entries, &st.Bytes, &st.Hits)
	if err != nil {
		return Stats{}, fmt.Errorf("query cache stats: %w", err)
	}
	return st, nil
}
