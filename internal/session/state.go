package session

import (
	"github.com/desertthunder/hitx/internal/playback"
)

// State is the screen a [Controller] is on.
type State int

const (
	StateLogin State = iota
	StateDeviceSelect
	StateScanning
)

func (s State) String() string {
	switch s {
	case StateLogin:
		return "login"
	case StateDeviceSelect:
		return "device_select"
	case StateScanning:
		return "scanning"
	default:
		return "unknown"
	}
}

// Level is the severity of a [Notice].
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// Notice is a user-facing message.
type Notice struct {
	Level   Level
	Message string
	Err     error
}

// Snapshot is a copy of the controller state for display.
type Snapshot struct {
	State     State
	Mode      playback.Mode
	Device    string
	SessionID string
	Playing   bool
	Track     *playback.TrackInfo // nil until the first card plays
	Revealed  bool
	Volume    int
	Scans     int
}

// Update is sent on [Controller.Updates] after every state change.
type Update struct {
	Snapshot Snapshot
	Notice   *Notice
}
