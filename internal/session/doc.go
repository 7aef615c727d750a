// Package session drives one game night: login, device choice and scanning.
//
// A [Controller] owns the single active [playback.Engine] and the single
// active [scanner.Loop]. All of its state is mutated from one goroutine,
// [Controller.Run], which consumes accepted scans, engine events and the
// commands posted by the public methods. Callers never touch the engine or
// the loop directly.
//
// States move Login -> DeviceSelect -> Scanning, and back to DeviceSelect on
// [Controller.ChangeDevice]. Switching device always stops the scan loop
// (decode tickers, then the camera) and waits for the old engine to be
// destroyed before a new one is created.
//
// Engine failures are translated into [Notice] values on [Controller.Updates]:
//   - [playback.ErrAuthExpired] tears everything down and returns to Login
//   - [playback.ErrPremiumRequired] and [playback.ErrDeviceUnavailable] return to DeviceSelect
//   - anything else is reported verbatim and scanning continues
//
// Nothing is retried automatically.
package session
