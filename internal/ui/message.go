package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/catx/internal/models"
	"github.com/desertthunder/catx/internal/session"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgNotice MsgKind = iota
	MsgAuthChanged
	MsgRenewed
	MsgLoggedOut
	MsgArtistsFetched
	MsgTick
)

// noticeMsg is the constructor for [MsgNotice]
func noticeMsg(n session.Notice) Msg {
	return Msg{kind: MsgNotice, data: n}
}

// authChangedMsg is the constructor for [MsgAuthChanged]
func authChangedMsg(e session.Event) Msg {
	return Msg{kind: MsgAuthChanged, data: e}
}

// renewedMsg is the constructor for [MsgRenewed]
func renewedMsg(err error) Msg {
	return Msg{kind: MsgRenewed, data: err}
}

// loggedOutMsg is the constructor for [MsgLoggedOut]
func loggedOutMsg(err error) Msg {
	return Msg{kind: MsgLoggedOut, data: err}
}

type artistsFetched struct {
	page *models.Page[models.Artist]
	err  error
}

// artistsFetchedMsg is the constructor for [MsgArtistsFetched]
func artistsFetchedMsg(page *models.Page[models.Artist], err error) Msg {
	return Msg{kind: MsgArtistsFetched, data: artistsFetched{page, err}}
}

// tickMsg is the constructor for [MsgTick]
func tickMsg(t time.Time) Msg {
	return Msg{kind: MsgTick, data: t}
}

func errData(msg Msg) error {
	err, _ := msg.data.(error)
	return err
}
