package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SessionValueRepository stores opaque string values by key in the session_values table.
type SessionValueRepository struct {
	db *sql.DB
}

// NewSessionValueRepository creates a new [SessionValueRepository] with the given database connection
func NewSessionValueRepository(db *sql.DB) *SessionValueRepository {
	return &SessionValueRepository{db: db}
}

// Get returns the value stored under key and whether it exists.
func (r *SessionValueRepository) Get(key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM session_values WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query session value %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts value under key.
func (r *SessionValueRepository) Set(key, value string) error {
	return r.Put(map[string]string{key: value})
}

// Put upserts values and removes the drop keys in one transaction.
func (r *SessionValueRepository) Put(values map[string]string, drop ...string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO session_values (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	now := time.Now()
	for key, value := range values {
		if _, err := tx.Exec(query, key, value, now); err != nil {
			return fmt.Errorf("failed to store session value %s: %w", key, err)
		}
	}
	for _, key := range drop {
		if _, err := tx.Exec("DELETE FROM session_values WHERE key = ?", key); err != nil {
			return fmt.Errorf("failed to delete session value %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session values: %w", err)
	}
	return nil
}

// Delete removes every given key in one transaction. Missing keys are ignored.
func (r *SessionValueRepository) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, key := range keys {
		if _, err := tx.Exec("DELETE FROM session_values WHERE key = ?", key); err != nil {
			return fmt.Errorf("failed to delete session value %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session value delete: %w", err)
	}
	return nil
}
