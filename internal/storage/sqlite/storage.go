// Package sqlite keeps per-user preferences in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mcoot/kelimeoyunu/internal/dependencies/clock"
	"github.com/mcoot/kelimeoyunu/internal/model"
	"github.com/mcoot/kelimeoyunu/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS preferences (
	user_id    TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, key)
);
`

// PreferenceStore is a SQLite-backed storage.PreferenceStore
type PreferenceStore struct {
	db    *sql.DB
	clock clock.Clock
}

// Ensure PreferenceStore implements the interface
var _ storage.PreferenceStore = (*PreferenceStore)(nil)

// Open creates the database file if needed and applies the schema
func Open(path string, clk clock.Clock) (*PreferenceStore, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &PreferenceStore{db: db, clock: clk}, nil
}

// Close closes the database
func (s *PreferenceStore) Close() error {
	return s.db.Close()
}

func (s *PreferenceStore) GetPreference(ctx context.Context, userID model.UserID, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE user_id = ? AND key = ?`, string(userID), key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", model.ErrPreferenceNotFound
		}
		return "", fmt.Errorf("get preference: %w", err)
	}
	return value, nil
}

func (s *PreferenceStore) SetPreference(ctx context.Context, userID model.UserID, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (user_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		string(userID), key, value, s.clock.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	return nil
}

func (s *PreferenceStore) RemovePreference(ctx context.Context, userID model.UserID, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM preferences WHERE user_id = ? AND key = ?`, string(userID), key,
	); err != nil {
		return fmt.Errorf("remove preference: %w", err)
	}
	return nil
}

func (s *PreferenceStore) UsersWithPreference(ctx context.Context, key, value string) ([]model.UserID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM preferences WHERE key = ? AND value = ? ORDER BY user_id`, key, value,
	)
	if err != nil {
		return nil, fmt.Errorf("list preference users: %w", err)
	}
	defer rows.Close()

	var users []model.UserID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan preference user: %w", err)
		}
		users = append(users, model.UserID(id))
	}
	return users, rows.Err()
}

// UpdatedAt returns when the key was last written
func (s *PreferenceStore) UpdatedAt(ctx context.Context, userID model.UserID, key string) (time.Time, error) {
	var ts int64
	err := s.db.QueryRowContext(ctx,
		`SELECT updated_at FROM preferences WHERE user_id = ? AND key = ?`, string(userID), key,
	).Scan(&ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, model.ErrPreferenceNotFound
		}
		return time.Time{}, err
	}
	return time.Unix(ts, 0).UTC(), nil
}
