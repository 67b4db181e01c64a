// Package server provides the TubeSwipe REST API, its middleware, and the loopback OAuth callback used by the CLI.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("GET /api/feed").
// The /api routes are mounted through a [RouteGroup] that adds [NoStore].
//
// # Sessions
//
// A signed cookie (tubeswipe_session) carries only the session id and the pending OAuth state.
// Tokens live in the session table and are refreshed by the auth package's token source.
// When a refresh is rejected the session row and the cookie are both dropped and the client gets a 401.
//
// # Routes
//
//	GET  /                      login status
//	GET  /login                 redirect to Google consent (or the mock callback)
//	GET  /auth/callback         finish the OAuth flow
//	GET  /logout                drop the session
//	GET  /api/feed              paged swipe feed
//	POST /api/swipe             skip or save a video
//	POST /api/undo              remove a saved playlist item
//	GET  /api/summary/{videoID} LLM summary
//	POST /api/mute              mute a channel
//	POST /api/unmute            unmute a channel
//	GET  /api/muted-channels    muted channels by name
//	GET  /api/playlists         user playlists
//	POST /api/playlists         create a playlist
//	GET  /api/settings          feed settings
//	PUT  /api/settings          patch feed settings
//	GET  /healthz               liveness
//	GET  /metrics               Prometheus metrics
//
// Errors are returned as {"error": {"code": "...", "message": "..."}}.
//
// # OAuth Callback Handler
//
// OAuthHandler implements the loopback callback for `tubeswipe auth login`: a temporary server on localhost
// validates the state parameter, exchanges the code, and sends the token through a channel.
// The first callback decides the result; later hits get 409.
package server
