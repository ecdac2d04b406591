package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	DefaultPollInterval  = 30 * time.Second
	DefaultWarnThreshold = time.Minute
)

// Notice warns that the access token is about to expire.
type Notice struct {
	ExpiresAt time.Time
	Minutes   int                             // whole minutes left, at least 1
	Renew     func(ctx context.Context) error // refresh now
}

func (n Notice) String() string {
	return fmt.Sprintf("session expiring in %d min", n.Minutes)
}

// Clock raises a [Notice] once per distinct expiry when the access token is close to lapsing.
//
// Expired tokens are not its concern; the next failing request recovers those.
type Clock struct {
	store     *Store
	interval  time.Duration
	threshold time.Duration
	notify    func(Notice)
	renew     func(ctx context.Context) error
	subscribe func(func(Event)) func()
	now       func() time.Time
	logger    *log.Logger

	mu       sync.Mutex
	notified int64 // expiry (epoch ms) already announced
}

// Check evaluates the stored expiry once and reports whether a notice was raised.
func (c *Clock) Check() bool {
	expiresAt, ok := c.store.Expiry()
	if !ok {
		return false
	}

	remaining := expiresAt.Sub(c.now())
	if remaining <= 0 || remaining > c.threshold {
		return false
	}

	key := expiresAt.UnixMilli()
	c.mu.Lock()
	if c.notified == key {
		c.mu.Unlock()
		return false
	}
	c.notified = key
	c.mu.Unlock()

	n := Notice{ExpiresAt: expiresAt, Minutes: minutesLeft(remaining), Renew: c.renew}
	c.logger.Debug("session near expiry", "minutes", n.Minutes, "expires_at", expiresAt)
	c.notify(n)
	return true
}

// Run checks on every tick and every auth-changed event until ctx is done.
func (c *Clock) Run(ctx context.Context) error {
	changed := make(chan struct{}, 1)
	unsubscribe := c.subscribe(func(Event) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Check()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Check()
		case <-changed:
			c.Check()
		}
	}
}

// minutesLeft rounds d up to whole minutes, never below 1.
func minutesLeft(d time.Duration) int {
	return max(1, int((d.Milliseconds()+59_999)/60_000))
}
