// Package session manages the authenticated session of the catalog client.
//
// # Credential Store
//
// [Store] keeps the credential record in two tiers:
//   - [AccessTier] : key/value storage for the access token and its expiry (epoch milliseconds)
//   - [RefreshTier] : a single refresh credential with its own lifetime
//
// The access token and its expiry are always written together, and [Store.Clear] removes
// every field under one lock so readers never observe a half-cleared record.
//
// # Request Authentication and Refresh
//
// [Transport] is an [http.RoundTripper] that attaches the stored access token to every request
// and hands 401/403 replies to the [Coordinator]. The coordinator runs at most one refresh
// exchange at a time. Requests failing while an exchange is in flight queue behind it and are
// replayed in arrival order once it succeeds; the request that started the exchange is replayed last.
// Every replay is flagged so a second authentication failure is returned as is.
//
// When a reactive exchange fails the session is over: waiters receive the refresh error, the
// credential record is cleared, [EventSessionExpired] is published and the [Navigator] is asked
// to return to login.
//
// # Session Clock
//
// [Clock] polls the stored expiry and raises a [Notice] once per distinct expiry value when the
// token is about to lapse. Notices carry a Renew action that joins the same single-flight refresh.
//
// # Facade
//
// [Manager] composes the pieces and is what commands and the TUI consume.
package session
