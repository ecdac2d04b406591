package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/catx/internal/models"
	"github.com/desertthunder/catx/internal/shared"
)

// RefreshTierAdapter keeps exactly one live refresh credential in a [RefreshCredentialRepository].
//
// Saving a credential soft-deletes the previous ones, so rotated tokens never linger.
type RefreshTierAdapter struct {
	repo *RefreshCredentialRepository
	now  func() time.Time
}

// NewRefreshTierAdapter creates a new RefreshTierAdapter with the given repository
func NewRefreshTierAdapter(repo *RefreshCredentialRepository) *RefreshTierAdapter {
	return &RefreshTierAdapter{repo: repo, now: time.Now}
}

// Load returns the newest unexpired refresh token.
func (a *RefreshTierAdapter) Load() (string, bool, error) {
	cred, err := a.repo.Latest(a.now())
	if errors.Is(err, shared.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return cred.Token(), true, nil
}

// Save replaces the stored refresh token with one valid for ttl. A failed save keeps the previous token.
func (a *RefreshTierAdapter) Save(token string, ttl time.Duration) error {
	cred := models.NewRefreshCredential(0, token, a.now().Add(ttl))
	if err := a.repo.Replace(cred); err != nil {
		return fmt.Errorf("failed to save refresh credential: %w", err)
	}
	return nil
}

// Remove deletes every stored refresh token.
func (a *RefreshTierAdapter) Remove() error {
	_, err := a.repo.DeleteAll()
	return err
}
