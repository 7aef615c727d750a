package playback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	testTrackID   = "4uLU6hMCjMI75M1A2tKUQC"
	testTrackRef  = "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abc"
	testTrackJSON = `{
		"id": "4uLU6hMCjMI75M1A2tKUQC",
		"uri": "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
		"name": "Never Gonna Give You Up",
		"duration_ms": 213573,
		"preview_url": "https://p.scdn.co/mp3-preview/abc",
		"artists": [{"name": "Rick Astley"}, {"name": "Guest"}],
		"album": {
			"name": "Whenever You Need Somebody",
			"release_date": "1987-11-12",
			"images": [
				{"url": "https://i.scdn.co/large", "width": 640, "height": 640},
				{"url": "https://i.scdn.co/small", "width": 64, "height": 64}
			]
		}
	}`
)

// recordedRequest is one request seen by a fakeAPI.
type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
	Auth   string
}

// fakeAPI is an httptest-backed stand-in for the Web API.
type fakeAPI struct {
	*httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
	status   map[string]int // "METHOD /path" -> forced status
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	api := &fakeAPI{status: map[string]int{}}
	api.Server = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.Close)
	return api
}

func (a *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	a.mu.Lock()
	a.requests = append(a.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Body:   string(body),
		Auth:   r.Header.Get("Authorization"),
	})
	status, forced := a.status[r.Method+" "+r.URL.Path]
	a.mu.Unlock()

	if forced {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error":{"status":%d,"message":%q}}`, status, http.StatusText(status))
		return
	}

	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/tracks/"):
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(testTrackJSON))
	case r.Method == http.MethodGet && r.URL.Path == "/me/player/devices":
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"devices":[{"id":"dev1","name":"Kitchen","type":"Speaker","is_active":true,"volume_percent":40},{"id":"dev2","name":"Phone","type":"Smartphone","is_active":false,"volume_percent":null}]}`))
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (a *fakeAPI) fail(method, path string, status int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status[method+" "+path] = status
}

func (a *fakeAPI) recorded() []recordedRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]recordedRequest(nil), a.requests...)
}

func (a *fakeAPI) last(t *testing.T) recordedRequest {
	t.Helper()
	reqs := a.recorded()
	if len(reqs) == 0 {
		t.Fatal("expected at least one request")
	}
	return reqs[len(reqs)-1]
}

// collect drains events until none arrive for a short while.
func collect(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-time.After(50 * time.Millisecond):
			return out
		}
	}
}

func countTrackEnded(events []Event) int {
	n := 0
	for _, ev := range events {
		if _, ok := ev.(TrackEnded); ok {
			n++
		}
	}
	return n
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"local", ModeLocal, false},
		{"remote", ModeRemote, false},
		{"  Remote ", ModeRemote, false},
		{"LOCAL", ModeLocal, false},
		{"bogus", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownMode) {
					t.Errorf("expected ErrUnknownMode, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestSelector(t *testing.T) {
	t.Run("creates remote engine", func(t *testing.T) {
		e, err := NewSelector(SelectorOptions{}).Create("remote")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if e.Mode() != ModeRemote {
			t.Errorf("expected remote engine, got %s", e.Mode())
		}
		if e.State() != StateUninitialized {
			t.Errorf("expected uninitialized engine, got %s", e.State())
		}
	})

	t.Run("creates local engine", func(t *testing.T) {
		s := NewSelector(SelectorOptions{NewEndpoint: func() Endpoint { return newFakeEndpoint() }})
		e, err := s.Create("Local")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := e.(*LocalEngine); !ok {
			t.Errorf("expected *LocalEngine, got %T", e)
		}
	})

	t.Run("local without endpoint", func(t *testing.T) {
		if _, err := NewSelector(SelectorOptions{}).Create("local"); !errors.Is(err, ErrNoEndpoint) {
			t.Errorf("expected ErrNoEndpoint, got %v", err)
		}
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := NewSelector(SelectorOptions{}).Create("bogus")
		if !errors.Is(err, ErrUnknownMode) {
			t.Fatalf("expected ErrUnknownMode, got %v", err)
		}
		if !strings.Contains(err.Error(), "bogus") {
			t.Errorf("expected error to name the mode, got %v", err)
		}
	})
}

func TestClampVolume(t *testing.T) {
	for in, want := range map[int]int{-10: 0, 0: 0, 55: 55, 100: 100, 150: 100} {
		if got := clampVolume(in); got != want {
			t.Errorf("clampVolume(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{401, ErrAuthExpired},
		{403, ErrPremiumRequired},
		{404, ErrDeviceUnavailable},
	}
	for _, tt := range tests {
		if err := statusError(tt.status, nil); !errors.Is(err, tt.want) {
			t.Errorf("status %d: expected %v, got %v", tt.status, tt.want, err)
		}
	}

	err := statusError(502, []byte("upstream exploded"))
	var perr *PlaybackError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PlaybackError, got %T", err)
	}
	if perr.Status != 502 || perr.Body != "upstream exploded" {
		t.Errorf("unexpected playback error %+v", perr)
	}
	if !strings.Contains(err.Error(), "upstream exploded") {
		t.Errorf("expected body in message, got %q", err.Error())
	}
}

func TestTrackInfoFromAPI(t *testing.T) {
	api := newFakeAPI(t)
	client := NewClient(api.URL, api.Client(), Config{Token: "tok"}.tokens())

	info, err := client.Track(context.Background(), testTrackID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if info.Name != "Never Gonna Give You Up" {
		t.Errorf("unexpected name %s", info.Name)
	}
	if info.ArtistString != "Rick Astley, Guest" {
		t.Errorf("unexpected artist string %q", info.ArtistString)
	}
	if info.Year != 1987 {
		t.Errorf("expected year 1987, got %d", info.Year)
	}
	if info.AlbumArt != "https://i.scdn.co/large" || info.AlbumArtSmall != "https://i.scdn.co/small" {
		t.Errorf("unexpected album art %q %q", info.AlbumArt, info.AlbumArtSmall)
	}
	if info.PreviewURL == "" {
		t.Error("expected preview URL")
	}
	if got := api.last(t).Auth; got != "Bearer tok" {
		t.Errorf("expected bearer auth header, got %q", got)
	}

	for date, want := range map[string]int{"2004": 2004, "2004-03": 2004, "": 0, "n/a": 0} {
		if got := releaseYear(date); got != want {
			t.Errorf("releaseYear(%q) = %d, want %d", date, got, want)
		}
	}
}

func TestClientTrackNotFound(t *testing.T) {
	api := newFakeAPI(t)
	api.fail("GET", "/tracks/"+testTrackID, 404)
	client := NewClient(api.URL, api.Client(), Config{Token: "tok"}.tokens())

	_, err := client.Track(context.Background(), testTrackID)
	if !errors.Is(err, ErrTrackNotFound) {
		t.Fatalf("expected ErrTrackNotFound, got %v", err)
	}
	if errors.Is(err, ErrDeviceUnavailable) {
		t.Error("unknown track must not read as an unavailable device")
	}
}

func TestClientDevices(t *testing.T) {
	api := newFakeAPI(t)
	client := NewClient(api.URL, api.Client(), Config{Token: "tok"}.tokens())

	devices, err := client.Devices(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(devices))
	}
	if devices[0].Name != "Kitchen" || !devices[0].IsActive || devices[0].VolumePercent != 40 {
		t.Errorf("unexpected first device %+v", devices[0])
	}
	if devices[1].VolumePercent != 0 {
		t.Errorf("expected null volume to map to 0, got %d", devices[1].VolumePercent)
	}
}

func TestDecodeBody(t *testing.T) {
	api := newFakeAPI(t)
	client := NewClient(api.URL, api.Client(), Config{Token: "tok"}.tokens())

	if err := client.Transfer(context.Background(), "dev2", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body struct {
		DeviceIDs []string `json:"device_ids"`
		Play      bool     `json:"play"`
	}
	if err := json.Unmarshal([]byte(api.last(t).Body), &body); err != nil {
		t.Fatalf("failed to decode transfer body: %v", err)
	}
	if len(body.DeviceIDs) != 1 || body.DeviceIDs[0] != "dev2" || !body.Play {
		t.Errorf("unexpected transfer body %+v", body)
	}
}
