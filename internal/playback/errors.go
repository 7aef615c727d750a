package playback

import (
	"errors"
	"fmt"
)

var (
	ErrAuth              = errors.New("no access token supplied")
	ErrAuthExpired       = errors.New("session expired, log in again")
	ErrPremiumRequired   = errors.New("a premium account is required for playback control")
	ErrDeviceUnavailable = errors.New("playback device unavailable: no active device found")
	ErrNotReady          = errors.New("player is not ready yet")
	ErrUnknownMode       = errors.New("unknown playback mode")
	ErrInvalidReference  = errors.New("not a track reference")
	ErrNoEndpoint        = errors.New("no local endpoint configured")
	ErrTrackNotFound     = errors.New("track not found in the catalogue")
	ErrNoPreview         = errors.New("track has no preview clip")
)

// PlaybackError is a non-success response from the playback service that
// has no more specific meaning. Body is the raw response body.
type PlaybackError struct {
	Status int
	Body   string
}

func (e *PlaybackError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("playback request failed with status %d", e.Status)
	}
	return fmt.Sprintf("playback request failed with status %d: %s", e.Status, e.Body)
}

// statusError maps a non-2xx status to the shared error taxonomy.
func statusError(status int, body []byte) error {
	switch status {
	case 401:
		return ErrAuthExpired
	case 403:
		return ErrPremiumRequired
	case 404:
		return ErrDeviceUnavailable
	default:
		return &PlaybackError{Status: status, Body: string(body)}
	}
}
