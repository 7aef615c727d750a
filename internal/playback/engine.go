package playback

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// Mode selects an [Engine] variant.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// ParseMode parses a mode tag, ignoring case and surrounding space.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeLocal, ModeRemote:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// State is the lifecycle state of an [Engine].
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StatePlaying
	StatePaused
	StateError
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateError:
		return "error"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// TrackInfo is the metadata of the track an engine is playing.
type TrackInfo struct {
	ID            string
	URI           string
	Name          string
	Artists       []string
	ArtistString  string
	Album         string
	AlbumArt      string
	AlbumArtSmall string
	Year          int // 0 when unknown
	DurationMs    int
	PreviewURL    string
}

// Clone returns a deep copy of t.
func (t *TrackInfo) Clone() *TrackInfo {
	if t == nil {
		return nil
	}
	c := *t
	c.Artists = append([]string(nil), t.Artists...)
	return &c
}

// Device is a remote playback target.
type Device struct {
	ID            string
	Name          string
	Type          string
	IsActive      bool
	VolumePercent int
}

// Config is passed to [Engine.Initialize].
type Config struct {
	Token       string             // required
	TokenSource oauth2.TokenSource // refreshes Token lazily; optional
	Name        string             // endpoint display name (Local)
	Volume      int                // initial volume (Local); 0 uses the endpoint default
}

// tokens returns a token source that starts from c.Token and refreshes through c.TokenSource when set.
func (c Config) tokens() oauth2.TokenSource {
	initial := &oauth2.Token{AccessToken: c.Token, TokenType: "Bearer"}
	if c.TokenSource == nil {
		return oauth2.StaticTokenSource(initial)
	}
	return oauth2.ReuseTokenSource(initial, c.TokenSource)
}

// Engine controls playback through one of two variants: a Local engine that
// is itself the playback endpoint, or a Remote engine that drives an existing
// device.
//
// Initialize must be called once before anything else. Destroy may be called
// any number of times.
type Engine interface {
	Mode() Mode
	Initialize(ctx context.Context, cfg Config) error
	Play(ctx context.Context, ref string, hint *TrackInfo) (*TrackInfo, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	TogglePlayback(ctx context.Context) (bool, error)
	SetVolume(ctx context.Context, percent int) error
	Destroy(ctx context.Context) error
	IsPlaying() bool
	CurrentTrack() *TrackInfo
	State() State
	Events() <-chan Event
}

// togglePlayback pauses e when playing and resumes it otherwise, returning the new playing state.
func togglePlayback(ctx context.Context, e Engine) (bool, error) {
	var err error
	if e.IsPlaying() {
		err = e.Pause(ctx)
	} else {
		err = e.Resume(ctx)
	}
	return e.IsPlaying(), err
}

// clampVolume limits percent to [0,100].
func clampVolume(percent int) int {
	return max(0, min(100, percent))
}
