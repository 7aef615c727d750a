package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/hitx/internal/models"
	"github.com/desertthunder/hitx/internal/playback"
	"github.com/desertthunder/hitx/internal/scanner"
	"github.com/desertthunder/hitx/internal/shared"
)

const (
	DefaultReadyTimeout = 10 * time.Second
	DefaultVolume       = 50
	destroyTimeout      = 5 * time.Second
	updateBuffer        = 32
)

var (
	ErrClosed       = errors.New("session closed")
	ErrRunning      = errors.New("session already running")
	ErrNotLoggedIn  = errors.New("not logged in")
	ErrNotScanning  = errors.New("not scanning")
	ErrNoDevice     = errors.New("remote playback needs a device")
	ErrNoTrack      = errors.New("nothing has played yet")
	ErrWrongState   = errors.New("operation not allowed in current state")
	errNoSourceFunc = errors.New("no frame source configured")
)

// EngineFactory builds uninitialized engines by mode. [playback.Selector] implements it.
type EngineFactory interface {
	Create(mode string) (playback.Engine, error)
}

// TrackCache supplies metadata hints for the local engine and stores what was played.
type TrackCache interface {
	Lookup(trackID string) (*models.Track, bool)
	Store(track models.Track) error
}

// ScanRecorder persists accepted scans.
type ScanRecorder interface {
	Create(scan *models.Scan) error
}

// remoteTarget is implemented by engines that drive an existing device.
type remoteTarget interface {
	SetDevice(id, name string)
	TransferPlayback(ctx context.Context, deviceID string, startPlaying bool) error
}

// readyWaiter is implemented by engines that become an endpoint themselves.
type readyWaiter interface {
	WaitReady(ctx context.Context) error
}

// Options configures a [Controller].
type Options struct {
	Engines      EngineFactory                       // required
	NewSource    func() (scanner.FrameSource, error) // required for scanning
	Loop         scanner.LoopOptions                 // Decoder is ignored; each loop gets its own
	Decoder      scanner.DecoderOptions
	BaseURL      string
	HTTPClient   *http.Client
	Cache        TrackCache
	Recorder     ScanRecorder
	Name         string // local endpoint name
	Volume       int    // starting volume; 0 uses DefaultVolume
	ReadyTimeout time.Duration
	Logger       *log.Logger
}

type command struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

// Controller orchestrates login, device selection and scanning.
//
// Every exported method except [Controller.Snapshot], [Controller.Updates]
// and [Controller.Close] is executed by [Controller.Run] and blocks until Run
// has handled it.
type Controller struct {
	opts   Options
	logger *log.Logger

	cmds    chan command
	updates chan Update
	quit    chan struct{}
	done    chan struct{}

	running   atomic.Bool
	closeOnce sync.Once

	mu   sync.Mutex
	snap Snapshot

	// Owned by Run.
	runCtx    context.Context
	state     State
	tokens    oauth2.TokenSource
	client    *playback.Client
	engine    playback.Engine
	engineEvs <-chan playback.Event
	loop      *scanner.Loop
	scanEvs   <-chan scanner.ScanEvent
	device    string
	sessionID string
	revealed  bool
	volume    int
	scans     int
}

// New creates a Controller in the Login state. Nothing happens until [Controller.Run].
func New(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = DefaultReadyTimeout
	}
	if opts.Volume <= 0 {
		opts.Volume = DefaultVolume
	}
	if opts.Name == "" {
		opts.Name = "hitx"
	}

	c := &Controller{
		opts:    opts,
		logger:  opts.Logger.With("component", "session"),
		cmds:    make(chan command),
		updates: make(chan Update, updateBuffer),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		state:   StateLogin,
		volume:  min(100, opts.Volume),
	}
	c.snap = c.snapshot()
	return c
}

// Run is the controller's single execution context. It returns when ctx is
// cancelled or [Controller.Close] is called, after tearing down the active
// scan loop and engine.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer close(c.done)

	c.runCtx = ctx
	c.logger.Debug("session started")
	c.publish(nil)

	for {
		select {
		case <-ctx.Done():
			c.teardown()
			return ctx.Err()
		case <-c.quit:
			c.teardown()
			return nil
		case cmd := <-c.cmds:
			cmd.done <- cmd.fn(cmd.ctx)
		case ev, ok := <-c.scanEvs:
			if !ok {
				c.scanEvs = nil
				continue
			}
			c.handleScan(ctx, ev)
		case ev, ok := <-c.engineEvs:
			if !ok {
				c.engineEvs = nil
				continue
			}
			c.handleEngine(ev)
		}
	}
}

// Close stops [Controller.Run] and waits for it to tear down. Safe to call more than once.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() { close(c.quit) })
	if c.running.Load() {
		<-c.done
	}
	return nil
}

// Updates returns the channel of state changes and notices. Slow readers miss updates, never block Run.
func (c *Controller) Updates() <-chan Update {
	return c.updates
}

// Snapshot returns the latest published state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.snap
	s.Track = s.Track.Clone()
	return s
}

// Login stores the process-wide token source and moves to device selection.
func (c *Controller) Login(ctx context.Context, tokens oauth2.TokenSource) error {
	return c.do(ctx, func(ctx context.Context) error {
		if tokens == nil {
			return ErrNotLoggedIn
		}
		if _, err := tokens.Token(); err != nil {
			return fmt.Errorf("%w: %v", ErrNotLoggedIn, err)
		}

		c.teardown()
		c.tokens = tokens
		c.client = playback.NewClient(c.opts.BaseURL, c.opts.HTTPClient, tokens)
		c.state = StateDeviceSelect
		c.publish(nil)
		return nil
	})
}

// Devices lists the remote devices available to the logged in account.
func (c *Controller) Devices(ctx context.Context) ([]playback.Device, error) {
	var devices []playback.Device
	err := c.do(ctx, func(ctx context.Context) error {
		if c.client == nil {
			return ErrNotLoggedIn
		}
		list, err := c.client.Devices(ctx)
		if err != nil {
			return c.fail(err)
		}
		devices = list
		return nil
	})
	return devices, err
}

// SelectDevice replaces the active engine with a new one for mode and starts scanning.
//
// device is required for remote mode and ignored for local mode.
func (c *Controller) SelectDevice(ctx context.Context, mode string, device *playback.Device) error {
	return c.do(ctx, func(ctx context.Context) error {
		if c.tokens == nil {
			return ErrNotLoggedIn
		}
		return c.selectDevice(ctx, mode, device)
	})
}

// ChangeDevice stops scanning, destroys the engine and returns to device selection.
func (c *Controller) ChangeDevice(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		if c.state != StateScanning {
			return ErrWrongState
		}
		c.teardown()
		c.state = StateDeviceSelect
		c.publish(nil)
		return nil
	})
}

// Toggle pauses or resumes playback and reports whether it is now playing.
func (c *Controller) Toggle(ctx context.Context) (bool, error) {
	var playing bool
	err := c.do(ctx, func(ctx context.Context) error {
		if c.engine == nil {
			return ErrNotScanning
		}
		p, err := c.engine.TogglePlayback(ctx)
		if err != nil {
			return c.fail(err)
		}
		playing = p
		c.publish(nil)
		return nil
	})
	return playing, err
}

// SetVolume sets the playback volume, clamped to [0,100].
func (c *Controller) SetVolume(ctx context.Context, percent int) error {
	return c.do(ctx, func(ctx context.Context) error {
		return c.setVolume(ctx, percent)
	})
}

// AdjustVolume changes the volume by delta percentage points.
func (c *Controller) AdjustVolume(ctx context.Context, delta int) error {
	return c.do(ctx, func(ctx context.Context) error {
		return c.setVolume(ctx, c.volume+delta)
	})
}

// Reveal uncovers the current track for the players.
func (c *Controller) Reveal(ctx context.Context) (*playback.TrackInfo, error) {
	var track *playback.TrackInfo
	err := c.do(ctx, func(context.Context) error {
		if c.engine == nil {
			return ErrNotScanning
		}
		track = c.engine.CurrentTrack()
		if track == nil {
			return ErrNoTrack
		}
		c.revealed = true
		c.publish(nil)
		return nil
	})
	return track, err
}

// do hands fn to Run and waits for its result.
func (c *Controller) do(ctx context.Context, fn func(ctx context.Context) error) error {
	cmd := command{ctx: ctx, fn: fn, done: make(chan error, 1)}

	select {
	case c.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.quit:
		return ErrClosed
	case <-c.done:
		return ErrClosed
	}

	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) selectDevice(ctx context.Context, mode string, device *playback.Device) error {
	c.teardown()
	c.state = StateDeviceSelect
	c.publish(nil)

	engine, err := c.opts.Engines.Create(mode)
	if err != nil {
		return err
	}
	if engine.Mode() == playback.ModeRemote && device == nil {
		return ErrNoDevice
	}

	tok, err := c.tokens.Token()
	if err != nil {
		return c.fail(fmt.Errorf("%w: %v", playback.ErrAuthExpired, err))
	}

	cfg := playback.Config{
		Token:       tok.AccessToken,
		TokenSource: c.tokens,
		Name:        c.opts.Name,
		Volume:      c.volume,
	}

	c.engine = engine
	c.engineEvs = engine.Events()

	if err := engine.Initialize(ctx, cfg); err != nil {
		return c.abort(err)
	}

	switch e := engine.(type) {
	case remoteTarget:
		e.SetDevice(device.ID, device.Name)
		if err := e.TransferPlayback(ctx, device.ID, false); err != nil {
			return c.abort(err)
		}
		c.device = device.Name
		if device.VolumePercent > 0 {
			c.volume = device.VolumePercent
		}
	case readyWaiter:
		wctx, cancel := context.WithTimeout(ctx, c.opts.ReadyTimeout)
		err := e.WaitReady(wctx)
		cancel()
		if err != nil {
			return c.abort(err)
		}
		c.device = c.opts.Name
	}

	if err := c.startLoop(); err != nil {
		return c.abort(err)
	}

	c.sessionID = shared.GenerateID()
	c.scans = 0
	c.state = StateScanning
	c.logger.Info("scanning", "mode", engine.Mode(), "device", c.device, "session", c.sessionID)
	c.publish(&Notice{Level: LevelInfo, Message: fmt.Sprintf("Ready on %s, scan a card", c.device)})
	return nil
}

func (c *Controller) startLoop() error {
	if c.opts.NewSource == nil {
		return errNoSourceFunc
	}
	source, err := c.opts.NewSource()
	if err != nil {
		return fmt.Errorf("failed to open frame source: %w", err)
	}

	opts := c.opts.Loop
	opts.Decoder = scanner.NewDecoder(c.opts.Decoder)
	if opts.Logger == nil {
		opts.Logger = c.opts.Logger
	}

	loop := scanner.NewLoop(source, opts)
	if err := loop.Start(c.runCtx); err != nil {
		return fmt.Errorf("failed to start scanning: %w", err)
	}

	c.loop = loop
	c.scanEvs = loop.Events()
	return nil
}

// teardown stops the scan loop, then destroys the engine and waits for it.
func (c *Controller) teardown() {
	if c.loop != nil {
		if err := c.loop.Stop(); err != nil {
			c.logger.Warn("scan loop stopped with error", "error", err)
		}
		c.loop = nil
		c.scanEvs = nil
	}

	if c.engine != nil {
		ctx, cancel := context.WithTimeout(context.Background(), destroyTimeout)
		if err := c.engine.Destroy(ctx); err != nil {
			c.logger.Warn("engine destroy failed", "mode", c.engine.Mode(), "error", err)
		}
		cancel()
		c.engine = nil
		c.engineEvs = nil
	}

	c.device = ""
	c.revealed = false
}

func (c *Controller) setVolume(ctx context.Context, percent int) error {
	percent = max(0, min(100, percent))
	if c.engine != nil {
		if err := c.engine.SetVolume(ctx, percent); err != nil {
			return c.fail(err)
		}
	}
	c.volume = percent
	c.publish(nil)
	return nil
}

func (c *Controller) handleScan(ctx context.Context, ev scanner.ScanEvent) {
	if c.engine == nil {
		return
	}

	c.logger.Debug("card scanned", "track", ev.TrackID, "strategy", ev.Strategy)

	track, err := c.engine.Play(ctx, ev.TrackURI, c.hint(ev.TrackID))
	if err != nil {
		c.fail(err)
		return
	}

	c.revealed = false
	c.scans++
	c.record(ev, track)
	c.publish(&Notice{Level: LevelInfo, Message: fmt.Sprintf("Card #%d playing", c.scans)})
}

func (c *Controller) handleEngine(ev playback.Event) {
	switch e := ev.(type) {
	case playback.TrackEnded:
		c.logger.Debug("track ended", "track", e.Track.ID)
		c.publish(&Notice{Level: LevelInfo, Message: "Track ended, scan the next card"})
	case playback.ErrorEvent:
		c.fail(e.Err)
	case playback.StateChanged:
		c.publish(nil)
	}
}

// abort drops a half-built engine and scan loop, then applies the error policy.
func (c *Controller) abort(err error) error {
	c.teardown()
	return c.fail(err)
}

// fail applies the error policy to err and returns it.
func (c *Controller) fail(err error) error {
	switch {
	case errors.Is(err, playback.ErrAuthExpired):
		c.teardown()
		c.tokens = nil
		c.client = nil
		c.state = StateLogin
		c.publish(&Notice{Level: LevelError, Message: "Session expired, log in again", Err: err})
	case errors.Is(err, playback.ErrPremiumRequired):
		c.teardown()
		c.state = StateDeviceSelect
		c.publish(&Notice{Level: LevelError, Message: "Premium account required, choose another device or mode", Err: err})
	case errors.Is(err, playback.ErrDeviceUnavailable):
		c.teardown()
		c.state = StateDeviceSelect
		c.publish(&Notice{Level: LevelWarn, Message: "Device unavailable, choose a device", Err: err})
	case errors.Is(err, playback.ErrNoPreview):
		c.publish(&Notice{Level: LevelWarn, Message: "No preview clip for this track. Spotify omits previews for most tracks, remote mode plays them in full", Err: err})
	default:
		c.publish(&Notice{Level: LevelError, Message: err.Error(), Err: err})
	}
	c.logger.Error("playback error", "state", c.state, "error", err)
	return err
}

func (c *Controller) hint(trackID string) *playback.TrackInfo {
	if c.opts.Cache == nil {
		return nil
	}
	t, ok := c.opts.Cache.Lookup(trackID)
	if !ok {
		return nil
	}
	return trackInfo(*t)
}

func (c *Controller) record(ev scanner.ScanEvent, track *playback.TrackInfo) {
	if c.opts.Recorder != nil {
		scan := models.NewScan(c.sessionID, ev.TrackID, ev.TrackURI, ev.Payload, ev.Strategy.String(), ev.Timestamp)
		scan.SetDevice(string(c.engine.Mode()), c.device)
		if err := c.opts.Recorder.Create(scan); err != nil {
			c.logger.Warn("failed to record scan", "track", ev.TrackID, "error", err)
		}
	}

	if c.opts.Cache != nil && track != nil && track.Name != "" {
		if err := c.opts.Cache.Store(modelTrack(track)); err != nil {
			c.logger.Warn("failed to cache track", "track", track.ID, "error", err)
		}
	}
}

// publish stores a fresh snapshot and offers it to Updates without blocking.
func (c *Controller) publish(n *Notice) {
	s := c.snapshot()

	c.mu.Lock()
	c.snap = s
	c.mu.Unlock()

	select {
	case c.updates <- Update{Snapshot: s, Notice: n}:
	default:
		c.logger.Debug("update dropped", "state", s.State)
	}
}

func (c *Controller) snapshot() Snapshot {
	s := Snapshot{
		State:     c.state,
		Device:    c.device,
		SessionID: c.sessionID,
		Revealed:  c.revealed,
		Volume:    c.volume,
		Scans:     c.scans,
	}
	if c.engine != nil {
		s.Mode = c.engine.Mode()
		s.Playing = c.engine.IsPlaying()
		s.Track = c.engine.CurrentTrack()
	}
	return s
}

func trackInfo(t models.Track) *playback.TrackInfo {
	return &playback.TrackInfo{
		ID:            t.ID,
		URI:           t.URI,
		Name:          t.Name,
		Artists:       append([]string(nil), t.Artists...),
		ArtistString:  t.ArtistString(),
		Album:         t.Album,
		AlbumArt:      t.AlbumArt,
		AlbumArtSmall: t.AlbumArtSmall,
		Year:          t.Year,
		DurationMs:    t.DurationMs,
		PreviewURL:    t.PreviewURL,
	}
}

func modelTrack(t *playback.TrackInfo) models.Track {
	return models.Track{
		ID:            t.ID,
		URI:           t.URI,
		Name:          t.Name,
		Artists:       append([]string(nil), t.Artists...),
		Album:         t.Album,
		AlbumArt:      t.AlbumArt,
		AlbumArtSmall: t.AlbumArtSmall,
		Year:          t.Year,
		DurationMs:    t.DurationMs,
		PreviewURL:    t.PreviewURL,
	}
}
