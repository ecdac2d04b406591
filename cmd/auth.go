package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/catx/internal/shared"
)

// sessionStatus is the machine-readable output of `auth status`.
type sessionStatus struct {
	Authenticated bool       `json:"authenticated"`
	AccessToken   string     `json:"access_token,omitempty"`
	RefreshToken  string     `json:"refresh_token,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	ExpiresIn     string     `json:"expires_in,omitempty"`
	Store         string     `json:"store"`
}

// AuthLogin signs in with username and password.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.session()
	if err != nil {
		return err
	}

	username, password := cmd.String("username"), cmd.String("password")
	r.logger.Info("logging in", "username", username, "api", r.config.API.BaseURL)

	if _, err := manager.Login(ctx, username, password); err != nil {
		return err
	}

	r.writePlain("✓ Logged in as %s\n", username)
	if expiresAt, ok := manager.Expiry(); ok {
		r.writePlain("Access token expires at %s\n", expiresAt.Local().Format(time.Kitchen))
	}
	return nil
}

// AuthLogout revokes the session and clears stored credentials.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.session()
	if err != nil {
		return err
	}
	if !manager.IsAuthenticated() && manager.RefreshToken() == "" {
		return r.writePlain("Not logged in\n")
	}

	if err := manager.Logout(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Logged out\n")
}

// AuthRefresh trades the stored refresh credential for a new access token.
//
// A failure leaves the stored session untouched.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.session()
	if err != nil {
		return err
	}
	if manager.RefreshToken() == "" {
		return fmt.Errorf("%w: log in first", shared.ErrNoRefreshToken)
	}

	if err := manager.Refresh(ctx); err != nil {
		return err
	}

	r.writePlain("✓ Session refreshed\n")
	if expiresAt, ok := manager.Expiry(); ok {
		r.writePlain("Access token expires at %s\n", expiresAt.Local().Format(time.Kitchen))
	}
	return nil
}

// AuthStatus prints the stored session with redacted credentials.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.session()
	if err != nil {
		return err
	}

	status := sessionStatus{
		Authenticated: manager.IsAuthenticated(),
		AccessToken:   shared.Redact(manager.Token(), 12),
		RefreshToken:  shared.Redact(manager.RefreshToken(), 8),
		Store:         r.config.Session.Store,
	}
	if expiresAt, ok := manager.Expiry(); ok {
		status.ExpiresAt = &expiresAt
		status.ExpiresIn = time.Until(expiresAt).Truncate(time.Second).String()
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlainHeader("Session")
	if status.Authenticated {
		r.writePlain("Authentication: ✓ Authenticated\n")
	} else {
		r.writePlain("Authentication: ✗ Not authenticated\n")
	}
	r.writePlain("Store:          %s\n", status.Store)
	if status.AccessToken != "" {
		r.writePlain("Access token:   %s\n", status.AccessToken)
	}
	if status.RefreshToken != "" {
		r.writePlain("Refresh token:  %s\n", status.RefreshToken)
	}
	if status.ExpiresAt != nil {
		r.writePlain("Expires in:     %s\n", status.ExpiresIn)
	}
	return nil
}
