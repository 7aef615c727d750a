// Package ui implements the interactive terminal interface for a game session using bubbletea's Elm architecture.
//
// The TUI follows the [session.Controller] through two views:
//  1. [DeviceView] : Pick a remote Spotify device or this computer
//  2. [ScanningView] : Hold cards up to the camera, control playback and reveal the answer
//
// A third [LoginView] is shown when the session loses its credentials and the user has to run `hitx auth` again.
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Session updates flow through the controller's update channel, one message per snapshot.
//
// Keyboard: space toggles playback, r reveals the track, +/- change the volume, c changes the device and q quits.
package ui
