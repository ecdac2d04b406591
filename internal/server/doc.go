// Package server provides HTTP routing, middleware, and a local sandbox of the catalog backend.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Sandbox Backend
//
// [Sandbox] serves the same contract as the real backend so the session lifecycle can be exercised locally:
//
//	POST /v1/auth/login    {username,password} -> {accessToken, refreshToken, expiresIn}
//	POST /v1/auth/refresh  refreshToken cookie -> {accessToken, expiresIn}, rotated cookie
//	POST /v1/auth/logout   bearer token revoked
//	GET  /v1/artista       paginated artists (also /v1/artista/buscar?nome= and /v1/artista/{id})
//	GET  /v1/album         paginated albums
//	GET  /v1/regional      paginated regionals
//
// Access tokens are short-lived (AccessTTL) so that expiry notices and reactive refreshes happen within minutes.
// [Sandbox.Revoke] invalidates every access token at once, which forces the next requests through a refresh.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
