// Package playback controls music playback through one [Engine] interface
// with two variants.
//
// [LocalEngine] turns this process into the playback endpoint: it connects an
// [Endpoint], waits for it to report readiness and then sends commands to it
// directly. [RemoteEngine] drives an existing device through the Web API
// player endpoints and has no readiness gate. [Selector] builds either from a
// mode tag.
//
// # Errors
//
// Both variants map service responses the same way through [Client]:
//
//   - 401: [ErrAuthExpired], the user must log in again
//   - 403: [ErrPremiumRequired], terminal for that engine
//   - 404: [ErrDeviceUnavailable], pick another device
//   - any other non-2xx: [*PlaybackError] with the raw body
//
// [ErrAuth] is returned by Initialize without a token and [ErrNotReady] by
// Local operations before readiness. Nothing is retried.
//
// # Events
//
// Engines report [TrackEnded], [ErrorEvent] and [StateChanged] on a buffered
// channel with a single consumer. Events are never delivered by calling into
// the owner, so an owner reacting to an event cannot re-enter an engine that
// is still updating its state. When the buffer is full the event is dropped.
package playback
