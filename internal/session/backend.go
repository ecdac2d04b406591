package session

import (
	"context"
	"encoding/json"
)

// Grant is what the backend issues on login or refresh.
//
// RefreshToken is empty when the backend keeps the current refresh credential.
type Grant struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken,omitempty"`
	ExpiresIn    int             `json:"expiresIn,omitempty"`
	Raw          json.RawMessage `json:"-"`
}

// Backend is the authentication API. Implementations must not route their own calls
// through a [Transport].
type Backend interface {
	Login(ctx context.Context, username, password string) (*Grant, error)
	Refresh(ctx context.Context, refreshToken string) (*Grant, error)
	Logout(ctx context.Context, accessToken string) error
}

// Navigator moves the user back to the login entry point after the session was dropped.
type Navigator interface {
	ToLogin(reason error)
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(reason error)

func (f NavigatorFunc) ToLogin(reason error) { f(reason) }
