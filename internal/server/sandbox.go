package server

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/desertthunder/catx/internal/models"
	"github.com/desertthunder/catx/internal/shared"
)

// Sandbox defaults.
const (
	DefaultAccessTTL  = 5 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
	DefaultPageSize   = 10
	refreshCookie     = "refreshToken"
)

// SandboxConfig configures a [Sandbox]. Zero values fall back to defaults.
type SandboxConfig struct {
	Username    string
	Password    string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	LoginPath   string
	RefreshPath string
	LogoutPath  string
	RefreshWait time.Duration // artificial latency of the refresh endpoint
	Logger      *log.Logger
}

// Sandbox is an in-memory stand-in for the catalog backend.
type Sandbox struct {
	config SandboxConfig
	logger *log.Logger
	now    func() time.Time

	mu        sync.Mutex
	access    map[string]time.Time // token -> expiry
	refresh   map[string]time.Time
	refreshes int
	artists   []models.Artist
	albums    []models.Album
	regionals []models.Regional

	router *BasicRouter
}

// NewSandbox creates a [Sandbox] seeded with a small catalog.
func NewSandbox(config SandboxConfig) *Sandbox {
	if config.Username == "" {
		config.Username = "admin"
	}
	if config.Password == "" {
		config.Password = "admin"
	}
	if config.AccessTTL <= 0 {
		config.AccessTTL = DefaultAccessTTL
	}
	if config.RefreshTTL <= 0 {
		config.RefreshTTL = DefaultRefreshTTL
	}
	if config.LoginPath == "" {
		config.LoginPath = "/v1/auth/login"
	}
	if config.RefreshPath == "" {
		config.RefreshPath = "/v1/auth/refresh"
	}
	if config.LogoutPath == "" {
		config.LogoutPath = "/v1/auth/logout"
	}
	logger := config.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	s := &Sandbox{
		config:  config,
		logger:  shared.WithLogger(logger, "component", "sandbox"),
		now:     time.Now,
		access:  map[string]time.Time{},
		refresh: map[string]time.Time{},
	}
	s.seed()

	s.router = NewBasicRouter()
	s.router.Use(RequestID(), Logging(s.logger))
	s.router.Handler(&authHandler{sandbox: s})
	s.router.Handler(&catalogHandler{sandbox: s})
	return s
}

// ServeHTTP implements [http.Handler].
func (s *Sandbox) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Revoke invalidates every issued access token. Refresh credentials stay valid.
func (s *Sandbox) Revoke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.access)
}

// RevokeAll invalidates every access token and refresh credential, ending all sessions.
func (s *Sandbox) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.access)
	clear(s.refresh)
}

// Refreshes reports how many refresh exchanges succeeded.
func (s *Sandbox) Refreshes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes
}

func (s *Sandbox) issue() (access, refresh string) {
	now := s.now()
	access, refresh = uuid.NewString(), uuid.NewString()
	s.access[access] = now.Add(s.config.AccessTTL)
	s.refresh[refresh] = now.Add(s.config.RefreshTTL)
	return access, refresh
}

func (s *Sandbox) authorized(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt, ok := s.access[token]
	return ok && s.now().Before(expiresAt)
}

func (s *Sandbox) setRefreshCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    value,
		Path:     s.config.RefreshPath,
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Sandbox) seed() {
	s.regionals = []models.Regional{
		{ID: 1, Name: "Cuiabá"},
		{ID: 2, Name: "Várzea Grande"},
	}
	s.artists = []models.Artist{
		{ID: 1, Name: "Serj Tankian", AlbumCount: 3},
		{ID: 2, Name: "Mike Shinoda", AlbumCount: 3},
		{ID: 3, Name: "Michel Teló", AlbumCount: 2},
		{ID: 4, Name: "Guns N' Roses", AlbumCount: 3},
	}
	s.albums = []models.Album{
		{ID: 1, Name: "Harakiri", ArtistID: 1, RegionalID: 1},
		{ID: 2, Name: "Black Blooms", ArtistID: 1, RegionalID: 1},
		{ID: 3, Name: "The Rough Dog", ArtistID: 1, RegionalID: 1},
		{ID: 4, Name: "The Rising Tied", ArtistID: 2, RegionalID: 2},
		{ID: 5, Name: "Post Traumatic", ArtistID: 2, RegionalID: 2},
		{ID: 6, Name: "Post Traumatic EP", ArtistID: 2, RegionalID: 2},
		{ID: 7, Name: "Bem Sertanejo", ArtistID: 3, RegionalID: 1},
		{ID: 8, Name: "Bem Sertanejo - O Show (Ao Vivo)", ArtistID: 3, RegionalID: 1},
		{ID: 9, Name: "Use Your Illusion I", ArtistID: 4, RegionalID: 2},
		{ID: 10, Name: "Use Your Illusion II", ArtistID: 4, RegionalID: 2},
		{ID: 11, Name: "Greatest Hits", ArtistID: 4, RegionalID: 2},
	}
	stamp := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
	for i := range s.artists {
		s.artists[i].CreatedAt, s.artists[i].UpdatedAt = stamp, stamp
	}
	for i := range s.albums {
		s.albums[i].CreatedAt, s.albums[i].UpdatedAt = stamp, stamp
	}
	for i := range s.regionals {
		s.regionals[i].CreatedAt, s.regionals[i].UpdatedAt = stamp, stamp
	}
}

// authHandler serves login, refresh and logout.
type authHandler struct {
	sandbox *Sandbox
}

func (h *authHandler) Routes() []string {
	c := h.sandbox.config
	return []string{"POST " + c.LoginPath, "POST " + c.RefreshPath, "POST " + c.LogoutPath}
}

func (h *authHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case h.sandbox.config.LoginPath:
		h.login(w, r)
	case h.sandbox.config.RefreshPath:
		h.refresh(w, r)
	case h.sandbox.config.LogoutPath:
		h.logout(w, r)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s := h.sandbox
	if creds.Username != s.config.Username || creds.Password != s.config.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	s.mu.Lock()
	access, refresh := s.issue()
	s.mu.Unlock()

	s.logger.Info("login", "username", creds.Username)
	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken":  access,
		"refreshToken": refresh,
		"expiresIn":    int(s.config.AccessTTL.Seconds()),
	})
}

func (h *authHandler) refresh(w http.ResponseWriter, r *http.Request) {
	s := h.sandbox
	if s.config.RefreshWait > 0 {
		select {
		case <-time.After(s.config.RefreshWait):
		case <-r.Context().Done():
			return
		}
	}

	cookie, err := r.Cookie(refreshCookie)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "Refresh token not found")
		return
	}

	s.mu.Lock()
	expiresAt, ok := s.refresh[cookie.Value]
	if !ok || !s.now().Before(expiresAt) {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	delete(s.refresh, cookie.Value)
	access, refresh := s.issue()
	s.refreshes++
	s.mu.Unlock()

	s.logger.Debug("refresh rotated", "refresh", shared.Redact(refresh, 8))
	s.setRefreshCookie(w, refresh, int(s.config.RefreshTTL.Seconds()))
	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken": access,
		"expiresIn":   int(s.config.AccessTTL.Seconds()),
	})
}

func (h *authHandler) logout(w http.ResponseWriter, r *http.Request) {
	s := h.sandbox
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		s.mu.Lock()
		delete(s.access, token)
		s.mu.Unlock()
	}
	s.setRefreshCookie(w, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

// catalogHandler serves the read-only catalog listings behind bearer authentication.
type catalogHandler struct {
	sandbox *Sandbox
}

func (h *catalogHandler) Routes() []string {
	return []string{
		"GET /v1/artista",
		"GET /v1/artista/buscar",
		"GET /v1/artista/{id}",
		"GET /v1/album",
		"GET /v1/regional",
	}
}

func (h *catalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s := h.sandbox
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	q := r.URL.Query()
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case r.URL.Path == "/v1/artista":
		writeJSON(w, http.StatusOK, paginate(sortByName(s.artists, q.Get("sort"), artistName), q))
	case r.URL.Path == "/v1/artista/buscar":
		name := strings.ToLower(q.Get("nome"))
		matches := slices.DeleteFunc(slices.Clone(s.artists), func(a models.Artist) bool {
			return !strings.Contains(strings.ToLower(a.Name), name)
		})
		writeJSON(w, http.StatusOK, paginate(sortByName(matches, q.Get("sort"), artistName), q))
	case strings.HasPrefix(r.URL.Path, "/v1/artista/"):
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		i := slices.IndexFunc(s.artists, func(a models.Artist) bool { return a.ID == id })
		if i < 0 {
			writeError(w, http.StatusNotFound, "Artista não encontrado")
			return
		}
		artist := s.artists[i]
		for _, a := range s.albums {
			if a.ArtistID == id {
				artist.Albums = append(artist.Albums, a)
			}
		}
		writeJSON(w, http.StatusOK, artist)
	case r.URL.Path == "/v1/album":
		writeJSON(w, http.StatusOK, paginate(sortByName(s.albums, q.Get("sort"), albumName), q))
	case r.URL.Path == "/v1/regional":
		writeJSON(w, http.StatusOK, paginate(sortByName(s.regionals, q.Get("sort"), regionalName), q))
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func artistName(a models.Artist) string     { return a.Name }
func albumName(a models.Album) string       { return a.Name }
func regionalName(r models.Regional) string { return r.Name }

// sortByName orders a copy of items when sort is "nome,asc" or "nome,desc".
func sortByName[T any](items []T, sort string, name func(T) string) []T {
	field, dir, _ := strings.Cut(sort, ",")
	if field != "nome" {
		return items
	}
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b T) int {
		c := strings.Compare(strings.ToLower(name(a)), strings.ToLower(name(b)))
		if strings.EqualFold(dir, "desc") {
			return -c
		}
		return c
	})
	return sorted
}

func paginate[T any](items []T, q map[string][]string) models.Page[T] {
	page := atoiDefault(first(q["page"]), 0)
	size := atoiDefault(first(q["size"]), DefaultPageSize)
	if size <= 0 {
		size = DefaultPageSize
	}
	page = max(page, 0)

	start := min(page*size, len(items))
	end := min(start+size, len(items))
	content := items[start:end]
	if content == nil {
		content = []T{}
	}

	return models.Page[T]{
		Content:       content,
		TotalPages:    (len(items) + size - 1) / size,
		TotalElements: len(items),
		CurrentPage:   page,
		PageSize:      size,
	}
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func atoiDefault(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"status": status, "message": message})
}
