// Package endpoint implements a local playback endpoint on top of an ffmpeg subprocess.
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hitx/internal/playback"
	"github.com/desertthunder/hitx/internal/shared"
)

var (
	ErrFFmpegNotFound      = errors.New("ffmpeg not found in PATH")
	ErrNoPreview           = playback.ErrNoPreview
	ErrNotConnected        = errors.New("endpoint not connected")
	ErrUnsupportedPlatform = errors.New("local audio output is not supported")
)

// Options configures an [FFmpeg] endpoint.
type Options struct {
	Binary string // defaults to "ffmpeg"
	Output string // output device, "default" when empty
	GOOS   string // defaults to runtime.GOOS
	Logger *log.Logger

	// LookPath and Command are replaced in tests.
	LookPath func(file string) (string, error)
	Command  func(name string, args ...string) *exec.Cmd
}

// FFmpeg plays track preview clips through ffmpeg to the system audio output.
//
// Pause and resume suspend the process with SIGSTOP and SIGCONT. A volume
// change restarts the clip at the current position with the new gain.
// When a clip finishes on its own the endpoint reports a paused state at
// position zero with the history grown by one.
type FFmpeg struct {
	binary   string
	output   string
	format   string // ffmpeg output muxer, empty when the platform has none
	logger   *log.Logger
	lookPath func(string) (string, error)
	command  func(string, ...string) *exec.Cmd

	events chan playback.EndpointEvent

	mu        sync.Mutex
	connected bool
	closed    bool
	deviceID  string
	volume    int
	track     *playback.TrackInfo
	cmd       *exec.Cmd
	gen       uint64 // bumped whenever a process is replaced, so stale exits are ignored
	paused    bool
	restart   bool // volume changed while paused
	startedAt time.Time
	elapsed   time.Duration
	history   int
}

// New creates an unconnected [FFmpeg] endpoint.
func New(opts Options) *FFmpeg {
	if opts.Binary == "" {
		opts.Binary = "ffmpeg"
	}
	if opts.Output == "" {
		opts.Output = "default"
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}
	if opts.Command == nil {
		opts.Command = exec.Command
	}
	if opts.GOOS == "" {
		opts.GOOS = runtime.GOOS
	}

	return &FFmpeg{
		binary:   opts.Binary,
		output:   opts.Output,
		format:   outputFormat(opts.GOOS),
		logger:   opts.Logger.With("component", "endpoint"),
		lookPath: opts.LookPath,
		command:  opts.Command,
		events:   make(chan playback.EndpointEvent, 16),
		volume:   50,
	}
}

func (f *FFmpeg) Events() <-chan playback.EndpointEvent {
	return f.events
}

// Connect checks that the platform has an audio output and that ffmpeg is
// available, then reports readiness.
func (f *FFmpeg) Connect(ctx context.Context, name string, volume int) error {
	if f.format == "" {
		return ErrUnsupportedPlatform
	}
	if _, err := f.lookPath(f.binary); err != nil {
		return fmt.Errorf("%w: %v", ErrFFmpegNotFound, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.connected = true
	f.volume = volume
	f.deviceID = "hitx-" + shared.GenerateID()
	f.logger.Info("local endpoint connected", "name", name, "device", f.deviceID)
	f.emitLocked(playback.EndpointEvent{Kind: playback.EndpointReady, DeviceID: f.deviceID})
	return nil
}

// Play replaces whatever is playing with the preview clip of track.
func (f *FFmpeg) Play(ctx context.Context, track *playback.TrackInfo) error {
	if track == nil || track.PreviewURL == "" {
		return ErrNoPreview
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.connected {
		return ErrNotConnected
	}

	if f.track != nil {
		f.history++
	}
	f.track = track
	return f.startLocked(0)
}

func (f *FFmpeg) Pause(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cmd == nil || f.paused {
		return nil
	}
	if err := suspend(f.cmd.Process); err != nil {
		return fmt.Errorf("failed to pause ffmpeg: %w", err)
	}

	f.elapsed += time.Since(f.startedAt)
	f.paused = true
	f.emitStateLocked()
	return nil
}

func (f *FFmpeg) Resume(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.track == nil || !f.paused {
		return nil
	}

	if f.cmd == nil || f.restart {
		return f.startLocked(f.elapsed)
	}
	if err := resume(f.cmd.Process); err != nil {
		return fmt.Errorf("failed to resume ffmpeg: %w", err)
	}

	f.startedAt = time.Now()
	f.paused = false
	f.emitStateLocked()
	return nil
}

// SetVolume stores percent and, when a clip is playing, restarts it at the current position.
func (f *FFmpeg) SetVolume(ctx context.Context, percent int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if percent == f.volume {
		return nil
	}
	f.volume = percent

	switch {
	case f.cmd == nil:
		return nil
	case f.paused:
		f.restart = true
		return nil
	default:
		return f.startLocked(f.positionLocked())
	}
}

// Disconnect stops playback and closes the event channel.
func (f *FFmpeg) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}

	f.stopLocked()
	f.emitLocked(playback.EndpointEvent{Kind: playback.EndpointNotReady, DeviceID: f.deviceID})
	f.connected = false
	f.closed = true
	close(f.events)
	f.logger.Debug("local endpoint disconnected")
	return nil
}

// startLocked (re)starts the clip at offset, replacing any running process.
func (f *FFmpeg) startLocked(offset time.Duration) error {
	f.stopLocked()

	args, err := f.args(f.track.PreviewURL, offset)
	if err != nil {
		return err
	}

	cmd := f.command(f.binary, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg failed to start: %w", err)
	}

	f.cmd = cmd
	f.paused = false
	f.restart = false
	f.elapsed = offset
	f.startedAt = time.Now()
	f.logger.Debug("ffmpeg started", "pid", cmd.Process.Pid, "track", f.track.URI, "offset", offset)

	go f.wait(cmd, f.gen)
	f.emitStateLocked()
	return nil
}

// stopLocked kills the running process. Its exit will be ignored.
func (f *FFmpeg) stopLocked() {
	f.gen++
	if f.cmd == nil {
		return
	}
	if err := f.cmd.Process.Kill(); err != nil {
		f.logger.Debug("failed to kill ffmpeg", "err", err)
	}
	f.cmd = nil
}

// wait reaps cmd and reports a natural end when it is still the current process.
func (f *FFmpeg) wait(cmd *exec.Cmd, gen uint64) {
	err := cmd.Wait()

	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.gen || f.closed {
		return
	}

	f.cmd = nil
	f.paused = true
	f.elapsed = 0

	if err != nil {
		f.logger.Warn("ffmpeg exited", "err", err)
		f.emitLocked(playback.EndpointEvent{Kind: playback.EndpointError, Err: fmt.Errorf("ffmpeg exited: %w", err)})
		return
	}

	f.history++
	f.emitStateLocked()
}

func (f *FFmpeg) positionLocked() time.Duration {
	if f.paused || f.cmd == nil {
		return f.elapsed
	}
	return f.elapsed + time.Since(f.startedAt)
}

func (f *FFmpeg) emitStateLocked() {
	st := playback.EndpointState{
		Paused:   f.paused,
		Position: f.positionLocked(),
		History:  f.history,
	}
	if f.track != nil {
		st.TrackURI = f.track.URI
	}
	f.emitLocked(playback.EndpointEvent{Kind: playback.EndpointStateChanged, State: st})
}

func (f *FFmpeg) emitLocked(ev playback.EndpointEvent) {
	if f.closed {
		return
	}
	select {
	case f.events <- ev:
	default:
		f.logger.Warn("endpoint event dropped", "kind", ev.Kind)
	}
}

// args builds the ffmpeg arguments for the current platform's audio output.
func (f *FFmpeg) args(url string, offset time.Duration) ([]string, error) {
	if f.format == "" {
		return nil, ErrUnsupportedPlatform
	}

	args := []string{"-nostdin", "-loglevel", "error"}
	if offset > 0 {
		args = append(args, "-ss", strconv.FormatFloat(offset.Seconds(), 'f', 3, 64))
	}

	gain := strconv.FormatFloat(float64(f.volume)/100, 'f', 2, 64)
	args = append(args,
		"-i", url,
		"-af", "volume="+gain,
		"-f", f.format,
		f.output,
	)
	return args, nil
}

// outputFormat maps goos to the ffmpeg audio output muxer.
func outputFormat(goos string) string {
	switch goos {
	case "linux":
		return "pulse"
	case "darwin":
		return "audiotoolbox"
	}
	return ""
}
