package playback

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hitx/internal/trackref"
)

// RemoteEngine drives an existing device through the Web API player endpoints.
//
// It has no readiness gate: once initialized every operation is a direct
// request, scoped to the device set with SetDevice when there is one.
// Pause and Resume consult the engine's own playing state, so pausing while
// paused does not reach the service.
type RemoteEngine struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
	events     *emitter

	mu         sync.Mutex
	client     *Client
	state      State
	playing    bool
	current    *TrackInfo
	deviceID   string
	deviceName string
}

// RemoteOptions configures a [RemoteEngine].
type RemoteOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *log.Logger
}

// NewRemoteEngine creates an uninitialized [RemoteEngine].
func NewRemoteEngine(opts RemoteOptions) *RemoteEngine {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	logger = logger.With("engine", ModeRemote)

	return &RemoteEngine{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		logger:     logger,
		events:     newEmitter(logger),
	}
}

func (e *RemoteEngine) Mode() Mode { return ModeRemote }

// Initialize builds the authenticated client. Calling it again is a no-op.
func (e *RemoteEngine) Initialize(ctx context.Context, cfg Config) error {
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

	e.client = NewClient(e.baseURL, e.httpClient, cfg.tokens())
	e.state = StateReady
	e.logger.Debug("initialized")
	return nil
}

// SetDevice scopes subsequent operations to device id.
func (e *RemoteEngine) SetDevice(id, name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.deviceID = id
	e.deviceName = name
}

// Device returns the id and name of the targeted device.
func (e *RemoteEngine) Device() (string, string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.deviceID, e.deviceName
}

// clientLocked returns the API client, or [ErrAuth] before initialization or after destroy.
func (e *RemoteEngine) clientLocked() (*Client, error) {
	if e.client == nil {
		return nil, ErrAuth
	}
	return e.client, nil
}

// Play starts ref on the target device and fetches its metadata. hint is ignored.
//
// Once the device has accepted the play request the engine reports playing even
// if the metadata fetch fails; the returned track then only carries ID and URI.
func (e *RemoteEngine) Play(ctx context.Context, ref string, _ *TrackInfo) (*TrackInfo, error) {
	id, ok := trackref.Resolve(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	client, err := e.clientLocked()
	if err != nil {
		return nil, err
	}

	if err := client.Play(ctx, e.deviceID, trackref.URI(id)); err != nil {
		return nil, e.wrapDevice(err)
	}

	info, err := client.Track(ctx, id)
	if err != nil {
		e.logger.Warn("metadata fetch failed after play", "track", id, "err", err)
		info = &TrackInfo{ID: id, URI: trackref.URI(id)}
	}

	e.current = info
	e.setPlayingLocked(true)
	e.logger.Info("playing", "track", info.URI, "device", e.deviceName)
	return info.Clone(), nil
}

func (e *RemoteEngine) Pause(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	client, err := e.clientLocked()
	if err != nil {
		return err
	}
	if !e.playing {
		return nil
	}

	if err := client.Pause(ctx, e.deviceID); err != nil {
		return e.wrapDevice(err)
	}
	e.setPlayingLocked(false)
	return nil
}

func (e *RemoteEngine) Resume(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	client, err := e.clientLocked()
	if err != nil {
		return err
	}
	if e.playing {
		return nil
	}

	if err := client.Play(ctx, e.deviceID); err != nil {
		return e.wrapDevice(err)
	}
	e.setPlayingLocked(true)
	return nil
}

func (e *RemoteEngine) TogglePlayback(ctx context.Context) (bool, error) {
	return togglePlayback(ctx, e)
}

// SetVolume clamps percent to [0,100] and applies it to the target device.
func (e *RemoteEngine) SetVolume(ctx context.Context, percent int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	client, err := e.clientLocked()
	if err != nil {
		return err
	}
	return e.wrapDevice(client.SetVolume(ctx, e.deviceID, clampVolume(percent)))
}

// TransferPlayback moves playback to deviceID, starting it when startPlaying is set.
func (e *RemoteEngine) TransferPlayback(ctx context.Context, deviceID string, startPlaying bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	client, err := e.clientLocked()
	if err != nil {
		return err
	}
	if err := client.Transfer(ctx, deviceID, startPlaying); err != nil {
		return e.wrapDevice(err)
	}

	e.deviceID = deviceID
	if startPlaying {
		e.setPlayingLocked(true)
	}
	return nil
}

// Devices lists the devices playback can be sent to.
func (e *RemoteEngine) Devices(ctx context.Context) ([]Device, error) {
	e.mu.Lock()
	client, err := e.clientLocked()
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return client.Devices(ctx)
}

// Destroy drops the client and clears playback state. It never fails and may be called repeatedly.
func (e *RemoteEngine) Destroy(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateDestroyed {
		return nil
	}

	e.client = nil
	e.current = nil
	e.playing = false
	e.state = StateDestroyed
	e.events.close()
	e.logger.Debug("destroyed")
	return nil
}

func (e *RemoteEngine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

func (e *RemoteEngine) CurrentTrack() *TrackInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current.Clone()
}

func (e *RemoteEngine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *RemoteEngine) Events() <-chan Event {
	return e.events.ch
}

func (e *RemoteEngine) setPlayingLocked(playing bool) {
	e.playing = playing
	if playing {
		e.state = StatePlaying
	} else {
		e.state = StatePaused
	}
	e.events.emit(StateChanged{Playing: playing, State: e.state})
}

// wrapDevice names the target device in device errors.
func (e *RemoteEngine) wrapDevice(err error) error {
	if err == nil || e.deviceName == "" {
		return err
	}
	return fmt.Errorf("%s: %w", e.deviceName, err)
}
