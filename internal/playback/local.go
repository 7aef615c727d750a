package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hitx/internal/trackref"
)

const defaultLocalVolume = 50

// LocalEngine makes this process a playback endpoint.
//
// Commands go straight to the [Endpoint]; the Web API is only used for the
// metadata the endpoint does not report. Nothing but Initialize and Destroy
// works until the endpoint reports readiness.
//
// Track end is inferred: the endpoint never says a track ended, so a state
// that is paused at position zero with a non-empty history is taken to mean
// the current track finished. This is approximate. A user pausing at exactly
// zero after an earlier track looks the same.
type LocalEngine struct {
	endpoint   Endpoint
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
	events     *emitter

	readyCh   chan struct{}
	readyOnce sync.Once
	stop      context.CancelFunc
	done      chan struct{}

	mu       sync.Mutex
	client   *Client
	state    State
	ready    bool
	deviceID string
	playing  bool
	current  *TrackInfo
	endFired bool
}

// LocalOptions configures a [LocalEngine].
type LocalOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *log.Logger
}

// NewLocalEngine creates an uninitialized [LocalEngine] over endpoint.
func NewLocalEngine(endpoint Endpoint, opts LocalOptions) *LocalEngine {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	logger = logger.With("engine", ModeLocal)

	return &LocalEngine{
		endpoint:   endpoint,
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		logger:     logger,
		events:     newEmitter(logger),
		readyCh:    make(chan struct{}),
	}
}

func (e *LocalEngine) Mode() Mode { return ModeLocal }

// Initialize connects the endpoint and starts watching its events. Calling it again is a no-op.
func (e *LocalEngine) Initialize(ctx context.Context, cfg Config) error {
	if cfg.Token == "" {
		return ErrAuth
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateUninitialized:
	case StateDestroyed:
		return fmt.Errorf("%w: engine destroyed", ErrNotReady)
	default:
		return nil
	}

	e.state = StateInitializing
	e.client = NewClient(e.baseURL, e.httpClient, cfg.tokens())

	name := cfg.Name
	if name == "" {
		name = "hitx"
	}
	volume := cfg.Volume
	if volume <= 0 {
		volume = defaultLocalVolume
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	e.stop = cancel
	e.done = make(chan struct{})
	go e.watch(watchCtx)

	if err := e.endpoint.Connect(ctx, name, clampVolume(volume)); err != nil {
		e.state = StateError
		return fmt.Errorf("failed to connect local endpoint: %w", err)
	}

	e.logger.Debug("connecting", "name", name)
	return nil
}

// WaitReady blocks until the endpoint reports readiness or ctx is done.
func (e *LocalEngine) WaitReady(ctx context.Context) error {
	select {
	case <-e.readyCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrNotReady, ctx.Err())
	}
}

// DeviceID returns the id the endpoint registered under, once ready.
func (e *LocalEngine) DeviceID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deviceID
}

// Play resolves ref, fetches its metadata and plays it on the endpoint.
//
// When the metadata fetch fails for any reason other than an expired
// session, hint is used instead.
func (e *LocalEngine) Play(ctx context.Context, ref string, hint *TrackInfo) (*TrackInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready {
		return nil, ErrNotReady
	}

	id, ok := trackref.Resolve(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}

	info, err := e.client.Track(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAuthExpired) || hint == nil {
			return nil, err
		}
		e.logger.Warn("metadata fetch failed, using hint", "track", id, "err", err)
		info = hint.Clone()
		info.ID = id
		info.URI = trackref.URI(id)
	}

	if err := e.endpoint.Play(ctx, info); err != nil {
		return nil, err
	}

	e.current = info
	e.endFired = false
	e.setPlayingLocked(true)
	e.logger.Info("playing", "track", info.URI)
	return info.Clone(), nil
}

func (e *LocalEngine) Pause(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready {
		return ErrNotReady
	}
	if !e.playing {
		return nil
	}

	if err := e.endpoint.Pause(ctx); err != nil {
		return err
	}
	e.setPlayingLocked(false)
	return nil
}

// Resume continues the current track. Without one it does nothing.
func (e *LocalEngine) Resume(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready {
		return ErrNotReady
	}
	if e.playing || e.current == nil {
		return nil
	}

	if err := e.endpoint.Resume(ctx); err != nil {
		return err
	}
	e.setPlayingLocked(true)
	return nil
}

func (e *LocalEngine) TogglePlayback(ctx context.Context) (bool, error) {
	return togglePlayback(ctx, e)
}

// SetVolume clamps percent to [0,100] and applies it to the endpoint.
func (e *LocalEngine) SetVolume(ctx context.Context, percent int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready {
		return ErrNotReady
	}
	return e.endpoint.SetVolume(ctx, clampVolume(percent))
}

// Destroy disconnects the endpoint and clears playback state. It may be called repeatedly.
func (e *LocalEngine) Destroy(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateDestroyed {
		e.mu.Unlock()
		return nil
	}

	wasStarted := e.state != StateUninitialized
	e.state = StateDestroyed
	e.ready = false
	e.playing = false
	e.current = nil
	e.client = nil
	stop, done := e.stop, e.done
	e.mu.Unlock()

	var err error
	if wasStarted {
		err = e.endpoint.Disconnect()
		stop()
		select {
		case <-done:
		case <-ctx.Done():
		}
	}

	e.events.close()
	e.logger.Debug("destroyed")
	return err
}

func (e *LocalEngine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

func (e *LocalEngine) CurrentTrack() *TrackInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current.Clone()
}

func (e *LocalEngine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *LocalEngine) Events() <-chan Event {
	return e.events.ch
}

// watch applies endpoint events until ctx is cancelled or the endpoint closes its channel.
func (e *LocalEngine) watch(ctx context.Context) {
	defer close(e.done)

	events := e.endpoint.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			e.handle(ev)
		}
	}
}

func (e *LocalEngine) handle(ev EndpointEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateDestroyed {
		return
	}

	switch ev.Kind {
	case EndpointReady:
		e.ready = true
		e.deviceID = ev.DeviceID
		if e.state == StateInitializing {
			e.state = StateReady
		}
		e.readyOnce.Do(func() { close(e.readyCh) })
		e.logger.Info("endpoint ready", "device", ev.DeviceID)
	case EndpointNotReady:
		e.ready = false
		e.logger.Warn("endpoint went offline", "device", ev.DeviceID)
	case EndpointError:
		e.state = StateError
		e.events.emit(ErrorEvent{Err: ev.Err})
	case EndpointStateChanged:
		e.applyStateLocked(ev.State)
	}
}

func (e *LocalEngine) applyStateLocked(st EndpointState) {
	if playing := !st.Paused; playing != e.playing {
		e.setPlayingLocked(playing)
	}

	if st.Paused && st.Position == 0 && st.History > 0 && e.current != nil && !e.endFired {
		e.endFired = true
		e.events.emit(TrackEnded{Track: *e.current.Clone()})
	}
}

func (e *LocalEngine) setPlayingLocked(playing bool) {
	e.playing = playing
	if playing {
		e.state = StatePlaying
	} else {
		e.state = StatePaused
	}
	e.events.emit(StateChanged{Playing: playing, State: e.state})
}
