package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/hitx/internal/playback"
	"github.com/desertthunder/hitx/internal/session"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgDevicesFetched MsgKind = iota
	MsgSessionUpdate
	MsgSessionClosed
	MsgCommandDone
)

// devicesFetchedMsg is the constructor for [MsgDevicesFetched]
func devicesFetchedMsg(devices []playback.Device, err error) Msg {
	return Msg{
		kind: MsgDevicesFetched,
		data: struct {
			devices []playback.Device
			err     error
		}{devices, err},
	}
}

// sessionUpdateMsg is the constructor for [MsgSessionUpdate]
func sessionUpdateMsg(update session.Update) Msg {
	return Msg{kind: MsgSessionUpdate, data: update}
}

// sessionClosedMsg is the constructor for [MsgSessionClosed]
func sessionClosedMsg() Msg {
	return Msg{kind: MsgSessionClosed}
}

// commandDoneMsg is the constructor for [MsgCommandDone]
func commandDoneMsg(action string, err error) Msg {
	return Msg{
		kind: MsgCommandDone,
		data: struct {
			action string
			err    error
		}{action, err},
	}
}
