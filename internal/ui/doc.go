// Package ui implements the session monitor, an interactive terminal interface using bubbletea's Elm architecture.
//
// The monitor has three views:
//  1. [StatusView] : authentication state, redacted tokens and time to expiry
//  2. [ArtistsView] : first page of catalog artists, fetched through the authenticated client
//  3. [ExpiredView] : shown once a failed refresh ends the session
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Expiry notices from the session clock and auth-changed events are forwarded into the program by [Run].
//
// Keyboard bindings (r, l, a, esc, q) are displayed via charmbracelet/bubbles/help.
package ui
