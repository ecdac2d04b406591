package session

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/catx/internal/shared"
)

// Keys used in the [AccessTier].
const (
	KeyAccessToken = "accessToken"
	KeyExpiresAt   = "accessTokenExpiresAt"
)

// DefaultRefreshTTL is the lifetime given to a stored refresh credential.
const DefaultRefreshTTL = 7 * 24 * time.Hour

// AccessTier is short-lived key/value storage for the access token and its expiry.
//
// Put must apply all of values and drop, or none of them.
type AccessTier interface {
	Get(key string) (string, bool, error)
	Put(values map[string]string, drop ...string) error
	Delete(keys ...string) error
}

// RefreshTier holds a single refresh credential with an explicit lifetime.
type RefreshTier interface {
	Load() (string, bool, error)
	Save(token string, ttl time.Duration) error
	Remove() error
}

// Store is the credential record. It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	access     AccessTier
	refresh    RefreshTier
	refreshTTL time.Duration
	now        func() time.Time
	logger     *log.Logger
}

// NewStore creates a [Store] over the given tiers. A non-positive refreshTTL uses [DefaultRefreshTTL].
func NewStore(access AccessTier, refresh RefreshTier, refreshTTL time.Duration, logger *log.Logger) *Store {
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Store{
		access:     access,
		refresh:    refresh,
		refreshTTL: refreshTTL,
		now:        time.Now,
		logger:     shared.WithLogger(logger, "component", "store"),
	}
}

// NewMemoryStore creates a [Store] backed by process memory.
func NewMemoryStore(logger *log.Logger) *Store {
	return NewStore(NewMemoryTier(), NewMemoryRefreshTier(), 0, logger)
}

// Set stores a new access token and its expiry, derived from expiresIn seconds.
//
// A non-positive expiresIn removes any previous expiry. An empty refreshToken leaves the
// refresh tier untouched. On error the record is left as it was.
func (s *Store) Set(accessToken, refreshToken string, expiresIn int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := map[string]string{KeyAccessToken: accessToken}
	var drop []string
	if expiresIn > 0 {
		expiresAt := s.now().Add(time.Duration(expiresIn) * time.Second).UnixMilli()
		values[KeyExpiresAt] = strconv.FormatInt(expiresAt, 10)
	} else {
		drop = append(drop, KeyExpiresAt)
	}

	prev, err := s.snapshot()
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrStoreFailure, err)
	}
	if err := s.access.Put(values, drop...); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrStoreFailure, err)
	}

	if refreshToken != "" {
		if err := s.refresh.Save(refreshToken, s.refreshTTL); err != nil {
			if rerr := prev.restore(s.access); rerr != nil {
				s.logger.Error("failed to restore access tier", "error", rerr)
			}
			return fmt.Errorf("%w: %w", shared.ErrStoreFailure, err)
		}
	}

	s.logger.Debug("stored credentials", "access", shared.Redact(accessToken, 6), "expires_in", expiresIn, "rotated", refreshToken != "")
	return nil
}

// accessSnapshot is the raw content of the access tier keys.
type accessSnapshot map[string]*string

func (s *Store) snapshot() (accessSnapshot, error) {
	snap := accessSnapshot{}
	for _, key := range []string{KeyAccessToken, KeyExpiresAt} {
		v, ok, err := s.access.Get(key)
		if err != nil {
			return nil, err
		}
		if ok {
			snap[key] = &v
		} else {
			snap[key] = nil
		}
	}
	return snap, nil
}

func (a accessSnapshot) restore(tier AccessTier) error {
	values := map[string]string{}
	var drop []string
	for key, v := range a {
		if v == nil {
			drop = append(drop, key)
			continue
		}
		values[key] = *v
	}
	return tier.Put(values, drop...)
}

// Clear removes the access token, its expiry and the refresh credential.
//
// Both tiers are attempted even if one fails.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := errors.Join(
		s.access.Delete(KeyAccessToken, KeyExpiresAt),
		s.refresh.Remove(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrStoreFailure, err)
	}

	s.logger.Debug("cleared credentials")
	return nil
}

// AccessToken returns the stored access token or "".
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken()
}

// RefreshToken returns the stored refresh credential or "".
func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken()
}

// Expiry returns the absolute expiry of the access token. Absent or unparsable values report false.
func (s *Store) Expiry() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiry()
}

// Token returns a consistent snapshot of the record, or nil when no access token is stored.
func (s *Store) Token() *oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	access := s.accessToken()
	if access == "" {
		return nil
	}

	tok := &oauth2.Token{
		AccessToken:  access,
		TokenType:    "Bearer",
		RefreshToken: s.refreshToken(),
	}
	if expiry, ok := s.expiry(); ok {
		tok.Expiry = expiry
	}
	return tok
}

func (s *Store) accessToken() string {
	v, ok, err := s.access.Get(KeyAccessToken)
	if err != nil {
		s.logger.Warn("failed to read access token", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

func (s *Store) refreshToken() string {
	v, ok, err := s.refresh.Load()
	if err != nil {
		s.logger.Warn("failed to read refresh credential", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

func (s *Store) expiry() (time.Time, bool) {
	v, ok, err := s.access.Get(KeyExpiresAt)
	if err != nil || !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
