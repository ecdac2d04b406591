package session

import (
	"errors"
	"fmt"
)

// AuthError is the normalized failure of a login or user-initiated refresh.
//
// StatusCode is zero when the backend never answered.
type AuthError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }

// statusError is implemented by backend errors that carry an HTTP status and a readable reason.
type statusError interface {
	error
	HTTPStatus() int
	Reason() string
}

// normalize turns a backend failure into an [*AuthError] wrapping both kind and err.
func normalize(err error, kind error, fallback string) *AuthError {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}

	ae := &AuthError{Message: fmt.Sprintf("%s: %v", fallback, err), Err: fmt.Errorf("%w: %w", kind, err)}
	var se statusError
	if errors.As(err, &se) {
		ae.StatusCode = se.HTTPStatus()
		if reason := se.Reason(); reason != "" {
			ae.Message = reason
		}
	}
	return ae
}
