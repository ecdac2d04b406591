package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/catx/internal/shared"
)

// Config tunes a [Manager]. Zero values fall back to defaults.
type Config struct {
	RefreshPath    string        // path of the refresh endpoint, excluded from interception
	RequestTimeout time.Duration // bound on refresh and logout calls
	WarnThreshold  time.Duration
	PollInterval   time.Duration
	Navigator      Navigator
}

// Manager is the session facade.
type Manager struct {
	store       *Store
	backend     Backend
	coordinator *Coordinator
	events      *observers
	config      Config
	logger      *log.Logger
}

// NewManager creates a [Manager] over store, talking to backend.
func NewManager(store *Store, backend Backend, config Config, logger *log.Logger) *Manager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 10 * time.Second
	}
	if config.WarnThreshold <= 0 {
		config.WarnThreshold = DefaultWarnThreshold
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}

	events := &observers{}
	coordinator := NewCoordinator(store, backend, config.RefreshPath, config.RequestTimeout, logger)
	coordinator.emit = events.emit
	coordinator.navigator = config.Navigator

	return &Manager{
		store:       store,
		backend:     backend,
		coordinator: coordinator,
		events:      events,
		config:      config,
		logger:      shared.WithLogger(logger, "component", "session"),
	}
}

// Login authenticates against the backend and stores the issued credentials.
//
// On failure the stored record is left as it was.
func (m *Manager) Login(ctx context.Context, username, password string) (*Grant, error) {
	if username == "" || password == "" {
		return nil, &AuthError{Message: "username and password are required", Err: shared.ErrMissingCredentials}
	}

	grant, err := m.backend.Login(ctx, username, password)
	if err != nil {
		return nil, normalize(err, shared.ErrAuthFailed, "login failed")
	}
	if grant == nil || grant.AccessToken == "" {
		return nil, &AuthError{Message: "login response carried no access token", Err: shared.ErrAuthFailed}
	}

	if err := m.store.Set(grant.AccessToken, grant.RefreshToken, grant.ExpiresIn); err != nil {
		return nil, err
	}

	m.logger.Info("logged in", "user", username, "expires_in", grant.ExpiresIn)
	m.events.emit(EventLoggedIn)
	return grant, nil
}

// Logout tells the backend and clears the local record whatever the backend says.
func (m *Manager) Logout(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, m.config.RequestTimeout)
	if err := m.backend.Logout(callCtx, m.store.AccessToken()); err != nil {
		m.logger.Error("logout request failed", "error", err)
	}
	cancel()

	err := m.store.Clear()
	m.logger.Info("logged out")
	m.events.emit(EventLoggedOut)
	return err
}

// Refresh renews the access token, sharing any exchange already in flight.
//
// Failures come back as [*AuthError]; the session is not ended.
func (m *Manager) Refresh(ctx context.Context) error {
	if err := m.coordinator.Refresh(ctx); err != nil {
		return normalize(err, shared.ErrRefreshFailed, "refresh failed")
	}
	return nil
}

// IsAuthenticated reports whether an access token is stored. It does not check expiry.
func (m *Manager) IsAuthenticated() bool { return m.store.AccessToken() != "" }

// Token returns the stored access token, or "" when logged out.
func (m *Manager) Token() string { return m.store.AccessToken() }

// RefreshToken returns the stored refresh credential, or "" when none is live.
func (m *Manager) RefreshToken() string { return m.store.RefreshToken() }

// Expiry returns when the access token lapses. It reports false when no expiry is stored.
func (m *Manager) Expiry() (time.Time, bool) { return m.store.Expiry() }

// Store returns the credential record the manager writes to.
func (m *Manager) Store() *Store { return m.store }

// Coordinator returns the refresh coordinator shared by [Manager.Refresh] and [Manager.Transport].
func (m *Manager) Coordinator() *Coordinator { return m.coordinator }

// Subscribe registers fn for auth-changed events and returns a function that unregisters it.
//
// fn runs synchronously on the goroutine that changed the session and must not block.
func (m *Manager) Subscribe(fn func(Event)) func() { return m.events.subscribe(fn) }

// Transport wraps base with authentication and refresh handling.
func (m *Manager) Transport(base http.RoundTripper) *Transport {
	return &Transport{Base: base, Store: m.store, Coordinator: m.coordinator}
}

// Client returns an [http.Client] whose requests run through [Manager.Transport].
func (m *Manager) Client(base http.RoundTripper, timeout time.Duration) *http.Client {
	return &http.Client{Transport: m.Transport(base), Timeout: timeout}
}

// Clock returns a [Clock] reporting to notify, whose notices renew through [Manager.Refresh].
func (m *Manager) Clock(notify func(Notice)) *Clock {
	return &Clock{
		store:     m.store,
		interval:  m.config.PollInterval,
		threshold: m.config.WarnThreshold,
		notify:    notify,
		renew:     m.Refresh,
		subscribe: m.Subscribe,
		now:       time.Now,
		logger:    shared.WithLogger(m.logger, "component", "clock"),
	}
}

func (m *Manager) String() string {
	if !m.IsAuthenticated() {
		return "not authenticated"
	}
	if expiry, ok := m.Expiry(); ok {
		return fmt.Sprintf("authenticated until %s", expiry.Format(time.RFC3339))
	}
	return "authenticated"
}
