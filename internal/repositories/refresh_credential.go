package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/catx/internal/models"
	"github.com/desertthunder/catx/internal/shared"
)

// RefreshCredentialRepository implements [models.Repository] for [models.RefreshCredential] persistence.
type RefreshCredentialRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.RefreshCredential] = (*RefreshCredentialRepository)(nil)

// NewRefreshCredentialRepository creates a new [RefreshCredentialRepository] with the given database connection
func NewRefreshCredentialRepository(db *sql.DB) *RefreshCredentialRepository {
	return &RefreshCredentialRepository{db: db}
}

const refreshCredentialColumns = "id, sequence, token, expires_at, created_at, updated_at, deleted_at"

const insertRefreshCredential = `
	INSERT INTO refresh_credentials (id, sequence, token, expires_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
`

// Create inserts a new credential with generated ID and sequence
func (r *RefreshCredentialRepository) Create(cred *models.RefreshCredential) error {
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "refresh_credentials")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	cred.SetID(shared.GenerateID())
	cred.SetSequence(sequence)

	_, err = r.db.Exec(insertRefreshCredential, cred.ID(), sequence, cred.Token(), cred.ExpiresAt(), cred.CreatedAt(), cred.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert refresh credential: %w", err)
	}

	return nil
}

// Get retrieves a credential by ID, excluding soft-deleted rows
func (r *RefreshCredentialRepository) Get(id string) (*models.RefreshCredential, error) {
	query := "SELECT " + refreshCredentialColumns + " FROM refresh_credentials WHERE id = ? AND deleted_at IS NULL"

	cred, err := scanRefreshCredential(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("refresh credential %s: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query refresh credential: %w", err)
	}
	return cred, nil
}

// Update extends or shortens a credential's lifetime.
func (r *RefreshCredentialRepository) Update(cred *models.RefreshCredential) error {
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	cred.SetUpdatedAt(now)

	result, err := r.db.Exec(`
		UPDATE refresh_credentials
		SET expires_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, cred.ExpiresAt(), now, cred.ID())
	if err != nil {
		return fmt.Errorf("failed to update refresh credential: %w", err)
	}

	return requireRow(result, cred.ID())
}

// Delete soft-deletes a credential by ID
func (r *RefreshCredentialRepository) Delete(id string) error {
	result, err := r.db.Exec(`
		UPDATE refresh_credentials SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL
	`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete refresh credential: %w", err)
	}

	return requireRow(result, id)
}

// DeleteAll soft-deletes every live credential and returns how many were removed.
func (r *RefreshCredentialRepository) DeleteAll() (int64, error) {
	result, err := r.db.Exec("UPDATE refresh_credentials SET deleted_at = ? WHERE deleted_at IS NULL", time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete refresh credentials: %w", err)
	}
	return result.RowsAffected()
}

// Replace soft-deletes every live credential and inserts cred, in one transaction.
func (r *RefreshCredentialRepository) Replace(cred *models.RefreshCredential) error {
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE refresh_credentials SET deleted_at = ? WHERE deleted_at IS NULL", time.Now()); err != nil {
		return fmt.Errorf("failed to delete refresh credentials: %w", err)
	}

	sequence, err := nextSequence(tx, "refresh_credentials")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	cred.SetID(shared.GenerateID())
	cred.SetSequence(sequence)

	if _, err := tx.Exec(insertRefreshCredential, cred.ID(), sequence, cred.Token(), cred.ExpiresAt(), cred.CreatedAt(), cred.UpdatedAt()); err != nil {
		return fmt.Errorf("failed to insert refresh credential: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit refresh credential: %w", err)
	}
	return nil
}

// List retrieves live credentials ordered by sequence.
//
// Supported criteria: "active_at" ([time.Time]) keeps only credentials not yet expired at that instant.
func (r *RefreshCredentialRepository) List(criteria map[string]any) ([]*models.RefreshCredential, error) {
	query := "SELECT " + refreshCredentialColumns + " FROM refresh_credentials WHERE deleted_at IS NULL"
	args := []any{}

	if at, ok := criteria["active_at"].(time.Time); ok {
		query += " AND expires_at > ?"
		args = append(args, at)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query refresh credentials: %w", err)
	}
	defer rows.Close()

	var creds []*models.RefreshCredential
	for rows.Next() {
		cred, err := scanRefreshCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refresh credential: %w", err)
		}
		creds = append(creds, cred)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return creds, nil
}

// Latest returns the newest credential still valid at now.
func (r *RefreshCredentialRepository) Latest(now time.Time) (*models.RefreshCredential, error) {
	query := "SELECT " + refreshCredentialColumns + ` FROM refresh_credentials
		WHERE deleted_at IS NULL AND expires_at > ?
		ORDER BY sequence DESC LIMIT 1`

	cred, err := scanRefreshCredential(r.db.QueryRow(query, now))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest refresh credential: %w", err)
	}
	return cred, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRefreshCredential(row scanner) (*models.RefreshCredential, error) {
	var (
		id        string
		sequence  int
		token     string
		expiresAt time.Time
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	if err := row.Scan(&id, &sequence, &token, &expiresAt, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}

	cred := models.NewRefreshCredential(sequence, token, expiresAt)
	cred.SetID(id)
	cred.SetCreatedAt(createdAt)
	cred.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		cred.SetDeletedAt(&deletedAt.Time)
	}
	return cred, nil
}

func requireRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("refresh credential %s not found or already deleted: %w", id, shared.ErrNotFound)
	}
	return nil
}
