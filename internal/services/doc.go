// Package services wraps the Spotify Web API catalogue endpoints hitx needs outside of playback.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 authorization code flow with PKCE. [SpotifyService.AuthURL] and
// [SpotifyService.Exchange] take the same verifier from [oauth2.GenerateVerifier].
//
// The token returned by [SpotifyService.TokenSource] refreshes itself and reports each new access
// token to the callback set with [SpotifyService.SetTokenRefreshCallback], which the CLI uses to
// persist refreshed tokens in the config file. The same token source is handed to the playback
// engines, so the whole process shares one credential.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called, or the token was rejected
//   - [shared.ErrNotFound] : playlist or track id unknown
//   - [shared.ErrAPIRequest] : HTTP request failed
//
// # API Mappings
//
// [SpotifyService.PlaylistTracks] follows pagination and drops removed items and local files,
// which cannot be played by id.
package services
