package trackref

import "testing"

func TestExtract(t *testing.T) {
	tt := []struct {
		name   string
		input  string
		wantID string
		wantOK bool
	}{
		{name: "service uri", input: "spotify:track:4uLU6hMCjMI75M1A2tKUQC", wantID: "4uLU6hMCjMI75M1A2tKUQC", wantOK: true},
		{name: "shortest id", input: "spotify:track:abc123def456ghi", wantID: "abc123def456ghi", wantOK: true},
		{name: "longest id", input: "spotify:track:abcdefghij0123456789ABCDE", wantID: "abcdefghij0123456789ABCDE", wantOK: true},
		{name: "web url", input: "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", wantID: "4uLU6hMCjMI75M1A2tKUQC", wantOK: true},
		{name: "web url with query", input: "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abcdef", wantID: "4uLU6hMCjMI75M1A2tKUQC", wantOK: true},
		{name: "localized url", input: "https://open.spotify.com/intl-de/track/4uLU6hMCjMI75M1A2tKUQC", wantID: "4uLU6hMCjMI75M1A2tKUQC", wantOK: true},
		{name: "uri inside text", input: "card: spotify:track:4uLU6hMCjMI75M1A2tKUQC end", wantID: "4uLU6hMCjMI75M1A2tKUQC", wantOK: true},
		{name: "id too short", input: "spotify:track:abc123def456gh", wantOK: false},
		{name: "id too long", input: "spotify:track:abcdefghij0123456789ABCDEF", wantOK: false},
		{name: "album uri", input: "spotify:album:4uLU6hMCjMI75M1A2tKUQC", wantOK: false},
		{name: "album url", input: "https://open.spotify.com/album/4uLU6hMCjMI75M1A2tKUQC", wantOK: false},
		{name: "bare id", input: "4uLU6hMCjMI75M1A2tKUQC", wantOK: false},
		{name: "punctuation in id", input: "spotify:track:4uLU6hMC-jMI75M1A2tKUQC", wantOK: false},
		{name: "empty", input: "", wantOK: false},
		{name: "random text", input: "hello world", wantOK: false},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := Extract(tc.input)
			if ok != tc.wantOK {
				t.Fatalf("Extract(%q) ok = %v, want %v", tc.input, ok, tc.wantOK)
			}
			if id != tc.wantID {
				t.Errorf("Extract(%q) = %q, want %q", tc.input, id, tc.wantID)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	if id, ok := Resolve(" 4uLU6hMCjMI75M1A2tKUQC "); !ok || id != "4uLU6hMCjMI75M1A2tKUQC" {
		t.Errorf("Resolve(bare id) = %q, %v", id, ok)
	}
	if id, ok := Resolve("spotify:track:abc123def456ghi"); !ok || id != "abc123def456ghi" {
		t.Errorf("Resolve(uri) = %q, %v", id, ok)
	}
	if _, ok := Resolve("not a track"); ok {
		t.Error("Resolve should reject text")
	}
}

func TestURIAndURL(t *testing.T) {
	id := "abc123def456ghi"
	if got, ok := Extract(URI(id)); !ok || got != id {
		t.Errorf("URI(%q) does not round trip: %q", id, got)
	}
	if got, ok := Extract(URL(id)); !ok || got != id {
		t.Errorf("URL(%q) does not round trip: %q", id, got)
	}
}

func TestPlaylist(t *testing.T) {
	tests := []struct {
		input  string
		wantID string
		wantOK bool
	}{
		{"spotify:playlist:37i9dQZF1DXbTxeAdrVG2l", "37i9dQZF1DXbTxeAdrVG2l", true},
		{"https://open.spotify.com/playlist/37i9dQZF1DXbTxeAdrVG2l?si=abc", "37i9dQZF1DXbTxeAdrVG2l", true},
		{"37i9dQZF1DXbTxeAdrVG2l", "", false},
		{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", "", false},
	}

	for _, tc := range tests {
		id, ok := Playlist(tc.input)
		if ok != tc.wantOK || id != tc.wantID {
			t.Errorf("Playlist(%q) = %q, %v, want %q, %v", tc.input, id, ok, tc.wantID, tc.wantOK)
		}
	}
}
