// Package server provides HTTP routing, middleware, and OAuth handling for the hitx auth command.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] runs in the order it was added: the first one added sees the request first.
// [Logging] records each request through charmbracelet/log.
//
// [Mux] registers method-qualified [http.ServeMux] patterns, so method filtering is left to the mux.
//
// # OAuth Callback Handler
//
// OAuthHandler implements the OAuth2 authorization code callback flow with PKCE.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code
// together with the code verifier for tokens, and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Current Usage
//
// `hitx auth` starts a temporary HTTP server on the configured host and port, opens the browser
// at the authorization URL, waits for the callback and shuts down after receiving the token.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
