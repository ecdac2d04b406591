package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

type statusErr struct {
	code   int
	reason string
}

func (e *statusErr) Error() string   { return fmt.Sprintf("backend returned %d: %s", e.code, e.reason) }
func (e *statusErr) HTTPStatus() int { return e.code }
func (e *statusErr) Reason() string  { return e.reason }

// fakeBackend records calls and lets tests hold a refresh exchange open.
type fakeBackend struct {
	mu           sync.Mutex
	refreshCalls int
	loginCalls   int
	logoutCalls  int
	refreshSeen  []string

	loginGrant *Grant
	loginErr   error

	refreshGrant *Grant
	refreshErr   error
	started      chan struct{} // receives once per refresh call, if set
	gate         chan struct{} // refresh blocks until closed, if set

	logoutErr   error
	logoutBlock bool
}

func (b *fakeBackend) Login(ctx context.Context, username, password string) (*Grant, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loginCalls++
	return b.loginGrant, b.loginErr
}

func (b *fakeBackend) Refresh(ctx context.Context, refreshToken string) (*Grant, error) {
	b.mu.Lock()
	b.refreshCalls++
	b.refreshSeen = append(b.refreshSeen, refreshToken)
	started, gate := b.started, b.gate
	b.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshGrant, b.refreshErr
}

func (b *fakeBackend) Logout(ctx context.Context, accessToken string) error {
	b.mu.Lock()
	b.logoutCalls++
	block := b.logoutBlock
	b.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return b.logoutErr
}

func (b *fakeBackend) refreshes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshCalls
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type call struct {
	path string
	auth string
	body string
}

// fakeAPI accepts only the bearer token in valid and records every request it sees.
type fakeAPI struct {
	mu    sync.Mutex
	valid string
	calls []call
}

func (a *fakeAPI) setValid(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.valid = token
}

func (a *fakeAPI) RoundTrip(r *http.Request) (*http.Response, error) {
	var body string
	if r.Body != nil {
		b, _ := io.ReadAll(r.Body)
		r.Body.Close()
		body = string(b)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	auth := r.Header.Get("Authorization")
	a.calls = append(a.calls, call{path: r.URL.Path, auth: auth, body: body})

	status := http.StatusOK
	if a.valid == "" || auth != "Bearer "+a.valid {
		status = http.StatusUnauthorized
	}
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(`{"path":"` + r.URL.Path + `"}`)),
		Request:    r,
	}, nil
}

func (a *fakeAPI) seen() []call {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]call, len(a.calls))
	copy(out, a.calls)
	return out
}

type fakeNavigator struct {
	mu      sync.Mutex
	reasons []error
}

func (n *fakeNavigator) ToLogin(reason error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reasons = append(n.reasons, reason)
}

func (n *fakeNavigator) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.reasons)
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) all() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

type harness struct {
	backend   *fakeBackend
	api       *fakeAPI
	navigator *fakeNavigator
	events    *eventLog
	manager   *Manager
	client    *http.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		backend:   &fakeBackend{refreshGrant: &Grant{AccessToken: "a2", ExpiresIn: 60}},
		api:       &fakeAPI{},
		navigator: &fakeNavigator{},
		events:    &eventLog{},
	}
	store := NewMemoryStore(quietLogger())
	h.manager = NewManager(store, h.backend, Config{
		RefreshPath:    "/v1/auth/refresh",
		RequestTimeout: time.Second,
		Navigator:      h.navigator,
	}, quietLogger())
	h.manager.Subscribe(h.events.record)
	h.client = h.manager.Client(h.api, 0)
	return h
}

func (h *harness) login(t *testing.T, access, refresh string) {
	t.Helper()
	if err := h.manager.Store().Set(access, refresh, 60); err != nil {
		t.Fatalf("failed to seed credentials: %v", err)
	}
}

func (h *harness) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://catalog.test"+path, nil)
	if err != nil {
		return nil, err
	}
	return h.client.Do(req)
}
