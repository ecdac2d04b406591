// Authentication endpoints of the catalog backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/catx/internal/session"
	"github.com/desertthunder/catx/internal/shared"
)

// RefreshCookie is the cookie carrying the refresh credential.
const RefreshCookie = "refreshToken"

// AuthService implements [session.Backend] over HTTP.
type AuthService struct {
	baseURL     string
	loginPath   string
	refreshPath string
	logoutPath  string
	httpClient  *http.Client
	logger      *log.Logger
}

var _ session.Backend = (*AuthService)(nil)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// NewAuthService creates an [AuthService]. client must not route through a session transport;
// nil uses a plain client with the configured timeout.
func NewAuthService(config shared.APIConfig, client *http.Client, logger *log.Logger) *AuthService {
	if client == nil {
		client = &http.Client{Timeout: config.Timeout()}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	return &AuthService{
		baseURL:     baseURL,
		loginPath:   config.LoginPath,
		refreshPath: config.RefreshPath,
		logoutPath:  config.LogoutPath,
		httpClient:  client,
		logger:      shared.WithLogger(logger, "component", "auth"),
	}
}

// Login posts the credentials and decodes the issued tokens.
func (a *AuthService) Login(ctx context.Context, username, password string) (*session.Grant, error) {
	payload, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+a.loginPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	grant, _, err := a.exchange(req)
	if err != nil {
		return nil, err
	}
	return grant, nil
}

// Refresh trades refreshToken for a new access token.
//
// A rotated credential set by the backend is returned in [session.Grant.RefreshToken].
func (a *AuthService) Refresh(ctx context.Context, refreshToken string) (*session.Grant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+a.refreshPath, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: refreshToken})

	grant, resp, err := a.exchange(req)
	if err != nil {
		return nil, err
	}

	for _, c := range resp.Cookies() {
		if c.Name == RefreshCookie && c.Value != "" {
			grant.RefreshToken = c.Value
		}
	}
	return grant, nil
}

// Logout revokes the session on the backend.
func (a *AuthService) Logout(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+a.logoutPath, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	a.logger.Debug("logout", "status", resp.StatusCode, "elapsed", time.Since(start))
	if resp.StatusCode >= 300 {
		return newHTTPError(resp.StatusCode, body)
	}
	return nil
}

func (a *AuthService) exchange(req *http.Request) (*session.Grant, *http.Response, error) {
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	a.logger.Debug("auth exchange", "path", req.URL.Path, "status", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, newHTTPError(resp.StatusCode, body)
	}

	var grant session.Grant
	if err := json.Unmarshal(body, &grant); err != nil {
		return nil, nil, fmt.Errorf("failed to decode response: %w", err)
	}
	grant.Raw = body
	return &grant, resp, nil
}
