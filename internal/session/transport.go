package session

import (
	"io"
	"net/http"
)

// Transport authenticates requests and recovers from expired access tokens.
type Transport struct {
	Base        http.RoundTripper // defaults to [http.DefaultTransport]
	Store       *Store
	Coordinator *Coordinator
}

// RoundTrip implements [http.RoundTripper].
//
// Network errors and replies other than 401/403 pass through untouched.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.send(req)
	if err != nil {
		return nil, err
	}
	if !t.Coordinator.shouldRecover(req, resp) {
		return resp, nil
	}

	io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	resp.Body.Close()

	return t.Coordinator.reauthenticate(req, t.send)
}

func (t *Transport) send(req *http.Request) (*http.Response, error) {
	return t.base().RoundTrip(Authenticate(t.Store, req))
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}
