// Package services talks HTTP to the catalog backend.
//
// # Authentication
//
// [AuthService] implements [session.Backend] against the login, refresh and logout endpoints.
// It must be built on a plain [http.Client]: the refresh call carries the refresh credential
// as the refreshToken cookie and must never pass through the session transport. A rotated
// credential returned as a Set-Cookie is handed back in the [session.Grant].
//
// # Raw API Access
//
// [APIService] issues raw requests through the authenticated client and returns [APIResponse] values.
// Requests are rate limited client-side and tagged with an X-Request-ID.
//
// # Catalog
//
// [CatalogService] decodes the paged artist, album and regional listings into [models.Page] values.
//
// # Error Handling
//
// Non-2xx replies become [*HTTPError], which unwraps to [shared.ErrAPIRequest] and carries the
// backend's message. Transport failures are returned wrapped but otherwise untouched.
package services
