package playback

import (
	"context"
	"time"
)

// EndpointEventKind identifies an [EndpointEvent].
type EndpointEventKind int

const (
	EndpointReady EndpointEventKind = iota
	EndpointNotReady
	EndpointStateChanged
	EndpointError
)

// EndpointState is a playback snapshot reported by an [Endpoint].
type EndpointState struct {
	Paused   bool
	Position time.Duration
	TrackURI string
	History  int // tracks played to completion or replaced before the current one
}

// EndpointEvent is sent by an [Endpoint] on its event channel.
type EndpointEvent struct {
	Kind     EndpointEventKind
	DeviceID string        // EndpointReady
	State    EndpointState // EndpointStateChanged
	Err      error         // EndpointError
}

// Endpoint is an in-process audio output that registers itself as a playback
// target. Readiness is not implied by Connect returning; it is reported with
// an EndpointReady event.
//
// Implementations must never block sending on the event channel: engines
// call into the endpoint while holding their own lock.
type Endpoint interface {
	Connect(ctx context.Context, name string, volume int) error
	Events() <-chan EndpointEvent
	Play(ctx context.Context, track *TrackInfo) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	SetVolume(ctx context.Context, percent int) error
	Disconnect() error
}
