package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/catx/internal/models"
	"github.com/desertthunder/catx/internal/services"
	"github.com/desertthunder/catx/internal/session"
	"github.com/desertthunder/catx/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	StatusView ViewState = iota
	ArtistsView
	ExpiredView
)

// Session is the part of [session.Manager] the monitor reads and drives.
type Session interface {
	IsAuthenticated() bool
	Token() string
	RefreshToken() string
	Expiry() (time.Time, bool)
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
}

// Catalog fetches the artist listing shown by [ArtistsView].
type Catalog interface {
	Artists(ctx context.Context, q services.PageQuery) (*models.Page[models.Artist], error)
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	session  Session
	catalog  Catalog
	now      func() time.Time
	width    int
	height   int
	notice   *session.Notice
	status   string
	busy     bool
	artists  list.Model
	loaded   bool
	err      error
	help     help.Model
	keys     keyMap
	interval time.Duration
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, s Session, catalog Catalog) *Model {
	return &Model{
		ctx:      ctx,
		view:     StatusView,
		session:  s,
		catalog:  catalog,
		now:      time.Now,
		help:     help.New(),
		keys:     newKeyMap(),
		interval: time.Second,
	}
}

// Run starts the monitor for manager and blocks until the user quits or ctx is done.
//
// Auth-changed events and clock notices are delivered to the program as messages.
func Run(ctx context.Context, manager *session.Manager, catalog Catalog, logger *log.Logger) error {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	model := NewModel(ctx, manager, catalog)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	unsubscribe := manager.Subscribe(func(e session.Event) {
		logger.Debug("auth changed", "event", e)
		p.Send(authChangedMsg(e))
	})
	defer unsubscribe()

	clockCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	clock := manager.Clock(func(n session.Notice) { p.Send(noticeMsg(n)) })
	go func() {
		if err := clock.Run(clockCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("session clock stopped", "error", err)
		}
	}()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init starts the countdown ticker.
func (m *Model) Init() tea.Cmd {
	return m.tick()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.loaded {
			m.artists.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgTick:
		return m, m.tick()

	case MsgNotice:
		n := msg.data.(session.Notice)
		m.notice = &n
		return m, nil

	case MsgAuthChanged:
		switch msg.data.(session.Event) {
		case session.EventSessionExpired:
			m.view = ExpiredView
			m.notice = nil
			m.busy = false
		case session.EventRefreshed, session.EventLoggedIn:
			m.notice = nil
		case session.EventLoggedOut:
			m.notice = nil
			m.view = StatusView
		}
		return m, nil

	case MsgRenewed:
		m.busy = false
		if err := errData(msg); err != nil {
			m.err = err
			m.status = ""
			return m, nil
		}
		m.err = nil
		m.notice = nil
		m.status = "Session renewed"
		return m, nil

	case MsgLoggedOut:
		m.busy = false
		m.notice = nil
		m.err = errData(msg)
		m.status = "Logged out"
		return m, nil

	case MsgArtistsFetched:
		m.busy = false
		data := msg.data.(artistsFetched)
		if data.err != nil {
			m.err = data.err
			if m.view != ExpiredView {
				m.view = StatusView
			}
			return m, nil
		}
		m.err = nil
		m.artists = list.New(artistItems(data.page.Content), list.NewDefaultDelegate(), 0, 0)
		m.artists.Title = fmt.Sprintf("Artists (%d total)", data.page.TotalElements)
		m.artists.SetSize(max(m.width-4, 20), max(m.height-8, 10))
		m.loaded = true
		m.view = ArtistsView
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) {
		return m, tea.Quit
	}

	switch m.view {
	case ExpiredView:
		return m, nil

	case ArtistsView:
		if key.Matches(msg, m.keys.back) && !m.artists.SettingFilter() {
			m.view = StatusView
			return m, nil
		}
		var cmd tea.Cmd
		m.artists, cmd = m.artists.Update(msg)
		return m, cmd
	}

	if m.busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.renew):
		if !m.session.IsAuthenticated() && m.session.RefreshToken() == "" {
			return m, nil
		}
		m.busy = true
		m.status = "Renewing session..."
		return m, m.renew()
	case key.Matches(msg, m.keys.logout):
		if !m.session.IsAuthenticated() {
			return m, nil
		}
		m.busy = true
		return m, m.logout()
	case key.Matches(msg, m.keys.artists):
		if m.catalog == nil {
			return m, nil
		}
		m.busy = true
		m.status = "Loading artists..."
		return m, m.fetchArtists()
	}
	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != ArtistsView {
		return m, nil
	}
	var cmd tea.Cmd
	m.artists, cmd = m.artists.Update(msg)
	return m, cmd
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) renew() tea.Cmd {
	renew := m.session.Refresh
	if m.notice != nil && m.notice.Renew != nil {
		renew = m.notice.Renew
	}
	return func() tea.Msg {
		return renewedMsg(renew(m.ctx))
	}
}

func (m *Model) logout() tea.Cmd {
	return func() tea.Msg {
		return loggedOutMsg(m.session.Logout(m.ctx))
	}
}

func (m *Model) fetchArtists() tea.Cmd {
	return func() tea.Msg {
		page, err := m.catalog.Artists(m.ctx, services.PageQuery{Size: 20, Sort: "nome,asc"})
		return artistsFetchedMsg(page, err)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ArtistsView:
		return m.renderArtists()
	case ExpiredView:
		return m.renderExpired()
	default:
		return m.renderStatus()
	}
}

func (m *Model) renderStatus() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("catx session"))
	b.WriteString("\n")

	if m.session.IsAuthenticated() {
		b.WriteString(styles.ok.Render("● authenticated"))
	} else {
		b.WriteString(styles.warn.Render("○ not authenticated"))
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Access token:  %s\n", orNone(shared.Redact(m.session.Token(), 12)))
	fmt.Fprintf(&b, "Refresh token: %s\n", orNone(shared.Redact(m.session.RefreshToken(), 8)))
	fmt.Fprintf(&b, "Expires in:    %s\n", m.expiresIn())

	if m.notice != nil {
		b.WriteString("\n")
		b.WriteString(styles.banner.Render(fmt.Sprintf("⚠ %s (press r to renew)", m.notice)))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(styles.help.Render(m.status))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.renew, m.keys.logout, m.keys.artists, m.keys.quit}))
	return b.String()
}

func (m *Model) renderArtists() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.artists.View(), helpView)
}

func (m *Model) renderExpired() string {
	title := styles.err.Render("Session expired")
	info := "\nThe refresh credential was rejected. Run `catx auth login` to sign in again."
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}

func (m *Model) expiresIn() string {
	expiresAt, ok := m.session.Expiry()
	if !ok {
		return "unknown"
	}
	remaining := expiresAt.Sub(m.now()).Truncate(time.Second)
	if remaining <= 0 {
		return styles.err.Render("expired")
	}
	return remaining.String()
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
