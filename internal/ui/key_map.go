package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	renew   key.Binding
	logout  key.Binding
	artists key.Binding
	back    key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		renew:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "renew")),
		logout:  key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "logout")),
		artists: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "artists")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.renew, k.logout, k.artists},
		{k.back, k.quit},
	}
}
