// Package store persists per-user onboarding progress in a local SQLite
// database, usually on a mounted volume. It is the only writer of that
// file, so no cross-process coordination is needed.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver, no cgo needed.
)

// One row per (user, task) pair. Rows are seeded with done=0 the first
// time a user is seen, so progress reads never special-case new users.
const schema = `
CREATE TABLE IF NOT EXISTS onboarding_progress (
  user_id    TEXT NOT NULL,
  task_id    TEXT NOT NULL,
  done       INTEGER NOT NULL DEFAULT 0,
  updated_at TEXT NOT NULL,
  PRIMARY KEY (user_id, task_id)
);
`

// Store is a handle to the onboarding progress database.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the SQLite database at the given
// path, and ensures its schema exists. The parent directory is created
// and its permissions relaxed, because mounted volumes sometimes arrive
// with strict defaults that the non-root container user can't write to.
func Open(ctx context.Context, path string) (*Store, error) {
	l := zerolog.Ctx(ctx)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return nil, fmt.Errorf("failed to create database directory %q: %w", dir, err)
	}
	if err := os.Chmod(dir, 0o777); err != nil {
		l.Warn().Err(err).Str("dir", dir).Msg("failed to relax database directory permissions")
	}

	l.Info().Str("db_path", path).Msg("opening onboarding database")

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", path, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database %q: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureUser seeds a progress row for each given task ID, without
// touching rows that already exist. Safe to call on every event.
func (s *Store) EnsureUser(ctx context.Context, userID string, taskIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := timestamp()
	for _, id := range taskIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO onboarding_progress (user_id, task_id, done, updated_at) VALUES (?, ?, 0, ?)`,
			userID, id, now)
		if err != nil {
			return fmt.Errorf("failed to seed progress row %q/%q: %w", userID, id, err)
		}
	}

	return tx.Commit()
}

// DoneSet returns the IDs of the user's completed tasks.
func (s *Store) DoneSet(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id FROM onboarding_progress WHERE user_id = ? AND done = 1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query done tasks: %w", err)
	}
	defer rows.Close()

	done := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan task ID: %w", err)
		}
		done[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read done tasks: %w", err)
	}
	return done, nil
}

// SetDone rewrites the done flag of every given task in one transaction:
// tasks in doneIDs are marked completed, all others are marked pending.
func (s *Store) SetDone(ctx context.Context, userID string, taskIDs []string, doneIDs map[string]bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := timestamp()
	for _, id := range taskIDs {
		done := 0
		if doneIDs[id] {
			done = 1
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE onboarding_progress SET done = ?, updated_at = ? WHERE user_id = ? AND task_id = ?`,
			done, now, userID, id)
		if err != nil {
			return fmt.Errorf("failed to update progress row %q/%q: %w", userID, id, err)
		}
	}

	return tx.Commit()
}

// Progress returns how many of the user's seeded tasks are completed.
func (s *Store) Progress(ctx context.Context, userID string) (done, total int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(done), 0), COUNT(*) FROM onboarding_progress WHERE user_id = ?`,
		userID).Scan(&done, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query progress: %w", err)
	}
	return done, total, nil
}

// timestamp matches the format used by previous versions
// of this bot, so existing databases remain readable.
func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
