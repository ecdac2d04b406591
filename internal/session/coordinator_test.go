package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/catx/internal/shared"
)

type result struct {
	resp *http.Response
	err  error
}

func TestCoordinator(t *testing.T) {
	t.Run("Valid Token Passes Through", func(t *testing.T) {
		h := newHarness(t)
		h.login(t, "a1", "r1")
		h.api.setValid("a1")

		resp, err := h.get(context.Background(), "/v1/artista")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Zero(t, h.backend.refreshes())
		assert.Equal(t, "Bearer a1", h.api.seen()[0].auth)
	})

	t.Run("No Token Sent Unauthenticated", func(t *testing.T) {
		h := newHarness(t)

		resp, err := h.get(context.Background(), "/v1/public")
		require.Error(t, err, "expired session without refresh credential should fail")
		assert.Nil(t, resp)
		assert.Empty(t, h.api.seen()[0].auth)
	})

	t.Run("Single Flight", func(t *testing.T) {
		h := newHarness(t)
		h.login(t, "a1", "r1")
		h.backend.started = make(chan struct{}, 1)
		h.backend.gate = make(chan struct{})

		const n = 3
		results := make(chan result, n)
		var wg sync.WaitGroup
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				resp, err := h.get(context.Background(), "/v1/album")
				results <- result{resp, err}
			}()
		}

		<-h.backend.started
		require.Eventually(t, func() bool { return h.manager.Coordinator().Waiting() == n-1 }, 2*time.Second, 5*time.Millisecond)
		assert.True(t, h.manager.Coordinator().Refreshing())

		h.api.setValid("a2")
		close(h.backend.gate)
		wg.Wait()
		close(results)

		for r := range results {
			require.NoError(t, r.err)
			assert.Equal(t, http.StatusOK, r.resp.StatusCode)
		}
		assert.Equal(t, 1, h.backend.refreshes())
		assert.False(t, h.manager.Coordinator().Refreshing())
		assert.Equal(t, "a2", h.manager.Token())

		replays := 0
		for _, c := range h.api.seen() {
			if c.auth == "Bearer a2" {
				replays++
			}
		}
		assert.Equal(t, n, replays)
		assert.Contains(t, h.events.all(), EventRefreshed)
	})

	t.Run("FIFO Replay", func(t *testing.T) {
		h := newHarness(t)
		h.login(t, "a1", "r1")
		h.backend.started = make(chan struct{}, 1)
		h.backend.gate = make(chan struct{})

		var wg sync.WaitGroup
		fire := func(path string) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = h.get(context.Background(), path)
			}()
		}

		fire("/trigger")
		<-h.backend.started
		for i, path := range []string{"/w1", "/w2", "/w3"} {
			fire(path)
			require.Eventually(t, func() bool { return h.manager.Coordinator().Waiting() == i+1 }, 2*time.Second, 5*time.Millisecond)
		}

		h.api.setValid("a2")
		close(h.backend.gate)
		wg.Wait()

		var order []string
		for _, c := range h.api.seen() {
			if c.auth == "Bearer a2" {
				order = append(order, c.path)
			}
		}
		assert.Equal(t, []string{"/w1", "/w2", "/w3", "/trigger"}, order)
	})

	t.Run("Retry Once", func(t *testing.T) {
		h := newHarness(t)
		h.login(t, "a1", "r1")

		resp, err := h.get(context.Background(), "/v1/regional")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, 1, h.backend.refreshes())
		assert.Len(t, h.api.seen(), 2)
	})

	t.Run("Forbidden Triggers Refresh", func(t *testing.T) {
		h := newHarness(t)
		h.login(t, "a1", "r1")
		forbidden := roundTripFunc(func(r *http.Request) (*http.Response, error) {
			status := http.StatusForbidden
			if r.Header.Get("Authorization") == "Bearer a2" {
				status = http.StatusOK
			}
			return &http.Response{StatusCode: status, Body: http.NoBody, Header: make(http.Header)}, nil
		})
		client := h.manager.Client(forbidden, 0)

		resp, err := client.Get("http://catalog.test/v1/album")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 1, h.backend.refreshes())
	})

	t.Run("Refresh Failure Ends Session", func(t *testing.T) {
		h := newHarness(t)
		h.login(t, "a1", "r1")
		refreshErr := &statusErr{code: http.StatusUnauthorized, reason: "refresh token revoked"}
		h.backend.refreshGrant = nil
		h.backend.refreshErr = refreshErr
		h.backend.started = make(chan struct{}, 1)
		h.backend.gate = make(chan struct{})

		const n = 3
		results := make(chan result, n)
		var wg sync.WaitGroup
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				resp, err := h.get(context.Background(), "/v1/artista")
				results <- result{resp, err}
			}()
		}

		<-h.backend.started
		require.Eventually(t, func() bool { return h.manager.Coordinator().Waiting() == n-1 }, 2*time.Second, 5*time.Millisecond)
		close(h.backend.gate)
		wg.Wait()
		close(results)

		for r := range results {
			require.Error(t, r.err)
			assert.ErrorIs(t, r.err, refreshErr)
			assert.ErrorIs(t, r.err, shared.ErrSessionExpired)
		}

		assert.Equal(t, 1, h.backend.refreshes())
		assert.Empty(t, h.manager.Token())
		assert.Empty(t, h.manager.RefreshToken())
		_, ok := h.manager.Expiry()
		assert.False(t, ok)
		assert.Equal(t, []Event{EventSessionExpired}, h.events.all())
		assert.Equal(t, 1, h.navigator.count())
		assert.False(t, h.manager.Coordinator().Refreshing())
	})

	t.Run("Missing Refresh Credential Ends Session", func(t *testing.T) {
		h := newHarness(t)
		h.login(t, "a1", "")

		_, err := h.get(context.Background(), "/v1/album")
		assert.ErrorIs(t, err, shared.ErrNoRefreshToken)
		assert.ErrorIs(t, err, shared.ErrSessionExpired)
		assert.Zero(t, h.backend.refreshes())
		assert.False(t, h.manager.IsAuthenticated())
		assert.Equal(t, 1, h.navigator.count())
	})

	t.Run("Missing Access Token In Refresh Reply", func(t *testing.T) {
		h := newHarness(t)
		h.login(t, "a1", "r1")
		h.backend.refreshGrant = &Grant{ExpiresIn: 60}

		_, err := h.get(context.Background(), "/v1/album")
		assert.ErrorIs(t, err, shared.ErrRefreshFailed)
		assert.False(t, h.manager.IsAuthenticated())
	})

	t.Run("Network Error Not Retried", func(t *testing.T) {
		h := newHarness(t)
		h.login(t, "a1", "r1")
		netErr := errors.New("connection refused")
		client := h.manager.Client(roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, netErr
		}), 0)

		_, err := client.Get("http://catalog.test/v1/album")
		assert.ErrorIs(t, err, netErr)
		assert.Zero(t, h.backend.refreshes())
		assert.True(t, h.manager.IsAuthenticated())
	})

	t.Run("Other Statuses Untouched", func(t *testing.T) {
		h := newHarness(t)
		h.login(t, "a1", "r1")
		client := h.manager.Client(roundTripFunc(func(*http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: http.StatusUnprocessableEntity, Body: http.NoBody, Header: make(http.Header)}, nil
		}), 0)

		resp, err := client.Get("http://catalog.test/v1/album")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Zero(t, h.backend.refreshes())
	})

	t.Run("Refresh Endpoint Never Triggers", func(t *testing.T) {
		h := newHarness(t)
		h.login(t, "a1", "r1")

		resp, err := h.get(context.Background(), "/v1/auth/refresh")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Zero(t, h.backend.refreshes())
	})

	t.Run("Body Replayed", func(t *testing.T) {
		h := newHarness(t)
		h.login(t, "a1", "r1")

		resp, err := h.client.Post("http://catalog.test/v1/album", "application/json", strings.NewReader(`{"titulo":"x"}`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		calls := h.api.seen()
		require.Len(t, calls, 2)
		assert.Equal(t, `{"titulo":"x"}`, calls[0].body)
		assert.Equal(t, `{"titulo":"x"}`, calls[1].body)
		assert.Equal(t, "Bearer a2", calls[1].auth)
	})

	t.Run("Unreplayable Body Returned As Is", func(t *testing.T) {
		h := newHarness(t)
		h.login(t, "a1", "r1")
		transport := h.manager.Transport(h.api)

		req, err := http.NewRequest(http.MethodPost, "http://catalog.test/v1/album", io.NopCloser(strings.NewReader("stream")))
		require.NoError(t, err)
		require.Nil(t, req.GetBody)

		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Zero(t, h.backend.refreshes())
	})

	t.Run("Already Retried Request", func(t *testing.T) {
		h := newHarness(t)
		h.login(t, "a1", "r1")

		resp, err := h.get(WithRetried(context.Background()), "/v1/album")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Zero(t, h.backend.refreshes())
	})

	t.Run("Rotated Refresh Credential Stored", func(t *testing.T) {
		h := newHarness(t)
		h.login(t, "a1", "r1")
		h.api.setValid("a2")
		h.backend.refreshGrant = &Grant{AccessToken: "a2", RefreshToken: "r2", ExpiresIn: 60}

		_, err := h.get(context.Background(), "/v1/album")
		require.NoError(t, err)
		assert.Equal(t, "r2", h.manager.RefreshToken())
		assert.Equal(t, []string{"r1"}, h.backend.refreshSeen)
	})

	t.Run("Cancelled Waiter Does Not Block Others", func(t *testing.T) {
		h := newHarness(t)
		h.login(t, "a1", "r1")
		h.backend.started = make(chan struct{}, 1)
		h.backend.gate = make(chan struct{})

		trigger := make(chan result, 1)
		go func() {
			resp, err := h.get(context.Background(), "/trigger")
			trigger <- result{resp, err}
		}()
		<-h.backend.started

		ctx, cancel := context.WithCancel(context.Background())
		cancelled := make(chan error, 1)
		go func() {
			_, err := h.get(ctx, "/cancelled")
			cancelled <- err
		}()
		require.Eventually(t, func() bool { return h.manager.Coordinator().Waiting() == 1 }, 2*time.Second, 5*time.Millisecond)

		cancel()
		assert.ErrorIs(t, <-cancelled, context.Canceled)

		h.api.setValid("a2")
		close(h.backend.gate)

		select {
		case r := <-trigger:
			require.NoError(t, r.err)
			assert.Equal(t, http.StatusOK, r.resp.StatusCode)
		case <-time.After(2 * time.Second):
			t.Fatal("trigger blocked by a cancelled waiter")
		}
	})
}

func TestManualRefresh(t *testing.T) {
	t.Run("Joins In-Flight Exchange", func(t *testing.T) {
		h := newHarness(t)
		h.login(t, "a1", "r1")
		h.api.setValid("a2")
		h.backend.started = make(chan struct{}, 1)
		h.backend.gate = make(chan struct{})

		trigger := make(chan result, 1)
		go func() {
			resp, err := h.get(context.Background(), "/v1/album")
			trigger <- result{resp, err}
		}()
		<-h.backend.started

		manual := make(chan error, 1)
		go func() { manual <- h.manager.Refresh(context.Background()) }()
		require.Eventually(t, func() bool { return h.manager.Coordinator().Waiting() == 1 }, 2*time.Second, 5*time.Millisecond)

		close(h.backend.gate)
		require.NoError(t, <-manual)
		r := <-trigger
		require.NoError(t, r.err)
		assert.Equal(t, http.StatusOK, r.resp.StatusCode)
		assert.Equal(t, 1, h.backend.refreshes())
	})

	t.Run("Starts Exchange When Idle", func(t *testing.T) {
		h := newHarness(t)
		h.login(t, "a1", "r1")

		require.NoError(t, h.manager.Refresh(context.Background()))
		assert.Equal(t, "a2", h.manager.Token())
		assert.Equal(t, []Event{EventRefreshed}, h.events.all())
	})

	t.Run("Failure Keeps Session", func(t *testing.T) {
		h := newHarness(t)
		h.login(t, "a1", "r1")
		h.backend.refreshGrant = nil
		h.backend.refreshErr = &statusErr{code: http.StatusUnauthorized, reason: "refresh token revoked"}

		err := h.manager.Refresh(context.Background())
		require.Error(t, err)

		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
		assert.Equal(t, "refresh token revoked", authErr.Message)
		assert.ErrorIs(t, err, shared.ErrRefreshFailed)

		assert.Equal(t, "a1", h.manager.Token())
		assert.Zero(t, h.navigator.count())
		assert.Empty(t, h.events.all())
	})

	t.Run("No Refresh Credential", func(t *testing.T) {
		h := newHarness(t)
		h.login(t, "a1", "")

		err := h.manager.Refresh(context.Background())
		assert.ErrorIs(t, err, shared.ErrNoRefreshToken)
		assert.Zero(t, h.backend.refreshes())
	})
}
