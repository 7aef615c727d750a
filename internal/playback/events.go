package playback

import (
	"sync"

	"github.com/charmbracelet/log"
)

const eventBuffer = 16

// Event is delivered on [Engine.Events]. It is one of [TrackEnded], [ErrorEvent] or [StateChanged].
type Event interface {
	isEvent()
}

// TrackEnded reports that the current track finished on its own.
type TrackEnded struct {
	Track TrackInfo
}

// ErrorEvent reports a failure the engine noticed outside of a call.
type ErrorEvent struct {
	Err error
}

// StateChanged reports a change in playing state.
type StateChanged struct {
	Playing bool
	State   State
}

func (TrackEnded) isEvent()   {}
func (ErrorEvent) isEvent()   {}
func (StateChanged) isEvent() {}

// emitter queues events for a single consumer.
//
// Sends never block: engine code emits while holding its own lock, and a
// consumer that calls back into the engine must not deadlock it. A full
// buffer drops the event.
type emitter struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
	logger *log.Logger
}

func newEmitter(logger *log.Logger) *emitter {
	return &emitter{ch: make(chan Event, eventBuffer), logger: logger}
}

func (e *emitter) emit(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	select {
	case e.ch <- ev:
	default:
		e.logger.Warn("event buffer full, dropping event", "event", ev)
	}
}

func (e *emitter) close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}
