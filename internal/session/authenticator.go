package session

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

type retriedKey struct{}

// WithRetried marks requests made with ctx as already retried, so an authentication
// failure is returned to the caller instead of starting a refresh.
func WithRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

// Retried reports whether ctx carries the retry flag.
func Retried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}

// Authenticate returns a copy of req carrying the stored access token as a bearer credential.
// Without a stored token the copy is left unauthenticated.
func Authenticate(store *Store, req *http.Request) *http.Request {
	r := req.Clone(req.Context())
	if access := store.AccessToken(); access != "" {
		(&oauth2.Token{AccessToken: access, TokenType: "Bearer"}).SetAuthHeader(r)
	}
	return r
}

// replayable reports whether req can be sent a second time.
func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

// replay builds the retried copy of req with a fresh body.
func replay(req *http.Request) (*http.Request, error) {
	r := req.Clone(WithRetried(req.Context()))
	if req.Body != nil && req.Body != http.NoBody {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		r.Body = body
	}
	return r, nil
}
