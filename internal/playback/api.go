package playback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/hitx/internal/services"
	"github.com/desertthunder/hitx/internal/trackref"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// DefaultAPIURL is the Spotify Web API base URL.
const DefaultAPIURL = "https://api.spotify.com/v1"

// Client is an authenticated client for the player and track endpoints of the Web API.
//
// Every non-success response goes through [statusError], so callers see the
// same errors whichever engine made the call.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  oauth2.TokenSource
	limiter *rate.Limiter
}

// NewClient creates a [Client]. An empty baseURL uses [DefaultAPIURL]; a nil httpClient uses [http.DefaultClient].
func NewClient(baseURL string, httpClient *http.Client, tokens oauth2.TokenSource) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		tokens:  tokens,
		limiter: rate.NewLimiter(rate.Limit(10), 5),
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	apiURL := c.baseURL + path
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	tok, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthExpired, err)
	}
	tok.SetAuthHeader(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return statusError(resp.StatusCode, bytes.TrimSpace(data))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func deviceQuery(deviceID string) url.Values {
	if deviceID == "" {
		return nil
	}
	return url.Values{"device_id": {deviceID}}
}

// Track fetches the metadata of a single track.
// A 404 here means the id is unknown, so it is reported as [ErrTrackNotFound]
// rather than [ErrDeviceUnavailable].
func (c *Client) Track(ctx context.Context, id string) (*TrackInfo, error) {
	var track services.SpotifyTrack
	if err := c.do(ctx, http.MethodGet, "/tracks/"+url.PathEscape(id), nil, nil, &track); err != nil {
		if errors.Is(err, ErrDeviceUnavailable) {
			return nil, fmt.Errorf("%w: %s", ErrTrackNotFound, id)
		}
		return nil, err
	}
	return TrackInfoFromSpotify(track), nil
}

// Devices lists the user's available playback devices.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	var response struct {
		Devices []struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			Type          string `json:"type"`
			IsActive      bool   `json:"is_active"`
			VolumePercent *int   `json:"volume_percent"`
		} `json:"devices"`
	}

	if err := c.do(ctx, http.MethodGet, "/me/player/devices", nil, nil, &response); err != nil {
		return nil, err
	}

	devices := make([]Device, 0, len(response.Devices))
	for _, d := range response.Devices {
		device := Device{ID: d.ID, Name: d.Name, Type: d.Type, IsActive: d.IsActive}
		if d.VolumePercent != nil {
			device.VolumePercent = *d.VolumePercent
		}
		devices = append(devices, device)
	}
	return devices, nil
}

// Play starts uris on deviceID. With no uris it resumes the current context.
func (c *Client) Play(ctx context.Context, deviceID string, uris ...string) error {
	var body any
	if len(uris) > 0 {
		body = map[string][]string{"uris": uris}
	}
	return c.do(ctx, http.MethodPut, "/me/player/play", deviceQuery(deviceID), body, nil)
}

// Pause pauses playback on deviceID.
func (c *Client) Pause(ctx context.Context, deviceID string) error {
	return c.do(ctx, http.MethodPut, "/me/player/pause", deviceQuery(deviceID), nil, nil)
}

// SetVolume sets the volume of deviceID. percent must already be clamped.
func (c *Client) SetVolume(ctx context.Context, deviceID string, percent int) error {
	q := url.Values{"volume_percent": {strconv.Itoa(percent)}}
	if deviceID != "" {
		q.Set("device_id", deviceID)
	}
	return c.do(ctx, http.MethodPut, "/me/player/volume", q, nil, nil)
}

// Transfer moves playback to deviceID, starting it when play is set.
func (c *Client) Transfer(ctx context.Context, deviceID string, play bool) error {
	body := map[string]any{"device_ids": []string{deviceID}, "play": play}
	return c.do(ctx, http.MethodPut, "/me/player", nil, body, nil)
}

// TrackInfoFromSpotify converts a Web API track object.
func TrackInfoFromSpotify(t services.SpotifyTrack) *TrackInfo {
	info := &TrackInfo{
		ID:         t.ID,
		URI:        t.URI,
		Name:       t.Name,
		Album:      t.Album.Name,
		Year:       releaseYear(t.Album.ReleaseDate),
		DurationMs: t.DurationMS,
		PreviewURL: t.PreviewURL,
	}
	if info.URI == "" && info.ID != "" {
		info.URI = trackref.URI(info.ID)
	}

	for _, a := range t.Artists {
		info.Artists = append(info.Artists, a.Name)
	}
	info.ArtistString = strings.Join(info.Artists, ", ")

	// images are ordered widest first
	if n := len(t.Album.Images); n > 0 {
		info.AlbumArt = t.Album.Images[0].URL
		info.AlbumArtSmall = t.Album.Images[n-1].URL
	}
	return info
}

// releaseYear parses the year out of "2004", "2004-03" or "2004-03-12".
func releaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
