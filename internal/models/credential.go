package models

import (
	"errors"
	"time"
)

// RefreshCredential is a persisted refresh token.
//
// The token is opaque; only its lifetime is interpreted.
type RefreshCredential struct {
	id        string
	sequence  int
	token     string
	expiresAt time.Time
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

var _ Model = (*RefreshCredential)(nil)

// NewRefreshCredential creates a credential valid until expiresAt.
func NewRefreshCredential(sequence int, token string, expiresAt time.Time) *RefreshCredential {
	now := time.Now()
	return &RefreshCredential{
		sequence:  sequence,
		token:     token,
		expiresAt: expiresAt,
		createdAt: now,
		updatedAt: now,
	}
}

func (c *RefreshCredential) ID() string            { return c.id }
func (c *RefreshCredential) Sequence() int         { return c.sequence }
func (c *RefreshCredential) Token() string         { return c.token }
func (c *RefreshCredential) ExpiresAt() time.Time  { return c.expiresAt }
func (c *RefreshCredential) CreatedAt() time.Time  { return c.createdAt }
func (c *RefreshCredential) UpdatedAt() time.Time  { return c.updatedAt }
func (c *RefreshCredential) DeletedAt() *time.Time { return c.deletedAt }

func (c *RefreshCredential) SetID(id string)               { c.id = id }
func (c *RefreshCredential) SetSequence(seq int)           { c.sequence = seq }
func (c *RefreshCredential) SetCreatedAt(t time.Time)      { c.createdAt = t }
func (c *RefreshCredential) SetUpdatedAt(t time.Time)      { c.updatedAt = t }
func (c *RefreshCredential) SetDeletedAt(t *time.Time)     { c.deletedAt = t }
func (c *RefreshCredential) SetExpiresAt(expiry time.Time) { c.expiresAt = expiry }

// Expired reports whether the credential is past its lifetime at now.
func (c *RefreshCredential) Expired(now time.Time) bool {
	return !now.Before(c.expiresAt)
}

// Validate checks the credential has a token and a lifetime.
func (c *RefreshCredential) Validate() error {
	if c.token == "" {
		return errors.New("refresh credential token is required")
	}
	if c.expiresAt.IsZero() {
		return errors.New("refresh credential expiry is required")
	}
	return nil
}
