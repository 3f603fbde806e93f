package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// Store persists token decimal counts so repeated swaps against the same
// mint do not cost a pre-quote round trip.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
}

func Open(path, lockPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	// The busy timeout rides on the DSN so every pooled connection waits
	// out writers from concurrent invocations instead of failing with
	// SQLITE_BUSY during schema init.
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"CREATE TABLE IF NOT EXISTS token_decimals (chain_id TEXT NOT NULL, token TEXT NOT NULL, decimals INTEGER NOT NULL, created_at INTEGER NOT NULL, PRIMARY KEY (chain_id, token));",
	}
	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init cache schema: %w", err)
		}
	}

	return &Store{db: db, lock: flock.New(lockPath)}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Prune deletes decimal entries older than maxAge. Token decimals never
// change in practice, but pruning keeps the table bounded when a wallet
// touches many mints.
func (s *Store) Prune(maxAge time.Duration) error {
	if s == nil || s.db == nil {
		return nil
	}
	cutoff := time.Now().UTC().Add(-maxAge).Unix()
	_, err := s.db.Exec("DELETE FROM token_decimals WHERE created_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("prune cache: %w", err)
	}
	return nil
}

// GetDecimals returns the cached decimal count for a token. The second
// return reports whether a fresh entry was found; entries older than maxAge
// are treated as misses.
func (s *Store) GetDecimals(chainID, token string, maxAge time.Duration) (int, bool, error) {
	if s == nil || s.db == nil {
		return 0, false, nil
	}
	var decimals int
	var createdUnix int64
	err := s.db.QueryRow(
		"SELECT decimals, created_at FROM token_decimals WHERE chain_id = ? AND token = ?",
		chainID, token,
	).Scan(&decimals, &createdUnix)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("cache read: %w", err)
	}

	age := time.Since(time.Unix(createdUnix, 0).UTC())
	if maxAge >= 0 && age > maxAge {
		return 0, false, nil
	}
	return decimals, true, nil
}

// SetDecimals records the decimal count for a token under a short-held file
// lock so concurrent invocations do not interleave writes.
func (s *Store) SetDecimals(chainID, token string, decimals int) error {
	return s.setDecimalsAt(chainID, token, decimals, time.Now().UTC())
}

func (s *Store) setDecimalsAt(chainID, token string, decimals int, createdAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	locked, err := s.lock.TryLockContext(context.Background(), 5*time.Second)
	if err != nil {
		return fmt.Errorf("lock cache: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock cache: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()

	_, err = s.db.Exec(`
		INSERT INTO token_decimals (chain_id, token, decimals, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chain_id, token) DO UPDATE SET
			decimals=excluded.decimals,
			created_at=excluded.created_at
	`, chainID, token, decimals, createdAt.Unix())
	if err != nil {
		return fmt.Errorf("cache write: %w", err)
	}
	return nil
}
