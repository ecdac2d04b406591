package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptrace"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/catx/internal/shared"
)

type state int

const (
	stateIdle state = iota
	stateRefreshing
)

func (s state) String() string {
	if s == stateRefreshing {
		return "refreshing"
	}
	return "idle"
}

// waiter is a caller queued behind an in-flight exchange.
//
// The settling goroutine sends the outcome on ready and, on success, blocks on done until the
// waiter has issued its replay, so replays go out in queue order.
type waiter struct {
	ready chan error
	done  chan struct{}
	once  sync.Once
}

func newWaiter() *waiter {
	return &waiter{ready: make(chan error, 1), done: make(chan struct{})}
}

func (w *waiter) wait(ctx context.Context) error {
	select {
	case err := <-w.ready:
		return err
	case <-ctx.Done():
		w.release()
		return ctx.Err()
	}
}

func (w *waiter) release() { w.once.Do(func() { close(w.done) }) }

// issue sends req and releases the next waiter once the request is on the wire, or once
// send returns for transports that never report writes.
func (w *waiter) issue(req *http.Request, send func(*http.Request) (*http.Response, error)) (*http.Response, error) {
	defer w.release()
	trace := &httptrace.ClientTrace{
		WroteRequest: func(httptrace.WroteRequestInfo) { w.release() },
	}
	return send(req.WithContext(httptrace.WithClientTrace(req.Context(), trace)))
}

// Coordinator runs refresh exchanges one at a time and queues everyone who needs one meanwhile.
type Coordinator struct {
	mu      sync.Mutex
	state   state
	waiters []*waiter

	store       *Store
	backend     Backend
	navigator   Navigator
	emit        func(Event)
	refreshPath string
	timeout     time.Duration
	logger      *log.Logger
}

// NewCoordinator creates a [Coordinator]. refreshPath identifies requests to the refresh
// endpoint, which never trigger a refresh themselves.
func NewCoordinator(store *Store, backend Backend, refreshPath string, timeout time.Duration, logger *log.Logger) *Coordinator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Coordinator{
		store:       store,
		backend:     backend,
		refreshPath: refreshPath,
		timeout:     timeout,
		emit:        func(Event) {},
		logger:      shared.WithLogger(logger, "component", "coordinator"),
	}
}

// Refreshing reports whether an exchange is in flight.
func (c *Coordinator) Refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateRefreshing
}

// Waiting returns how many callers are queued behind the in-flight exchange.
func (c *Coordinator) Waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// Refresh joins the in-flight exchange or starts one, and returns its outcome.
//
// A failure here leaves the credential record alone; only failures observed by intercepted
// requests end the session.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.state == stateRefreshing {
		w := c.enqueue()
		c.mu.Unlock()

		err := w.wait(ctx)
		w.release()
		return err
	}
	c.state = stateRefreshing
	c.mu.Unlock()

	err := c.exchange(ctx)
	c.settle(err)
	if err == nil {
		c.emit(EventRefreshed)
	}
	return err
}

// shouldRecover reports whether the reply to req calls for a refresh and replay.
func (c *Coordinator) shouldRecover(req *http.Request, resp *http.Response) bool {
	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		return false
	}
	if Retried(req.Context()) || c.isRefreshRequest(req) {
		return false
	}
	return replayable(req)
}

func (c *Coordinator) isRefreshRequest(req *http.Request) bool {
	return c.refreshPath != "" && strings.HasSuffix(req.URL.Path, c.refreshPath)
}

// reauthenticate handles an authentication failure of req and returns the outcome of its replay.
func (c *Coordinator) reauthenticate(req *http.Request, send func(*http.Request) (*http.Response, error)) (*http.Response, error) {
	retry, err := replay(req)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild request body: %w", err)
	}

	c.mu.Lock()
	if c.state == stateRefreshing {
		w := c.enqueue()
		c.mu.Unlock()

		if err := w.wait(req.Context()); err != nil {
			w.release()
			return nil, err
		}
		return w.issue(retry, send)
	}
	c.state = stateRefreshing
	c.mu.Unlock()

	if err := c.exchange(req.Context()); err != nil {
		err = fmt.Errorf("%w: %w", shared.ErrSessionExpired, err)
		c.expire(err)
		return nil, err
	}

	c.settle(nil)
	c.emit(EventRefreshed)
	return send(retry)
}

// enqueue must be called with c.mu held.
func (c *Coordinator) enqueue() *waiter {
	w := newWaiter()
	c.waiters = append(c.waiters, w)
	c.logger.Debug("queued behind refresh", "waiters", len(c.waiters))
	return w
}

// exchange trades the stored refresh credential for a new access token.
//
// It outlives the caller's cancellation since other callers may be waiting on it.
func (c *Coordinator) exchange(ctx context.Context) error {
	refresh := c.store.RefreshToken()
	if refresh == "" {
		return shared.ErrNoRefreshToken
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	c.logger.Debug("refresh exchange started", "state", stateRefreshing)
	grant, err := c.backend.Refresh(ctx, refresh)
	if err != nil {
		c.logger.Warn("refresh exchange failed", "error", err)
		return err
	}
	if grant == nil || grant.AccessToken == "" {
		err := fmt.Errorf("%w: response carried no access token", shared.ErrRefreshFailed)
		c.logger.Warn("refresh exchange failed", "error", err)
		return err
	}

	if err := c.store.Set(grant.AccessToken, grant.RefreshToken, grant.ExpiresIn); err != nil {
		return err
	}
	c.logger.Debug("refresh exchange succeeded", "expires_in", grant.ExpiresIn, "rotated", grant.RefreshToken != "")
	return nil
}

// settle returns to idle and hands err to every waiter in queue order.
func (c *Coordinator) settle(err error) {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.state = stateIdle
	c.mu.Unlock()

	for _, w := range waiters {
		w.ready <- err
		if err == nil {
			<-w.done
		}
	}
	c.logger.Debug("refresh settled", "state", stateIdle, "released", len(waiters), "ok", err == nil)
}

// expire ends the session after a failed reactive exchange. Waiters and the navigator
// receive cause, which wraps [shared.ErrSessionExpired] and the exchange failure.
//
// The record is cleared before waiters are released so none of them can start a new exchange
// with the rejected credential.
func (c *Coordinator) expire(cause error) {
	if err := c.store.Clear(); err != nil {
		c.logger.Error("failed to clear credentials", "error", err)
	}
	c.settle(cause)
	c.emit(EventSessionExpired)
	if c.navigator != nil {
		c.navigator.ToLogin(cause)
	}
}
