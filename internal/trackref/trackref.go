// Package trackref recognises the textual track references printed on cards.
//
// Two forms are accepted: a service URI ("spotify:track:<id>") and any URL
// whose path contains "/track/<id>". An id is 15 to 25 ASCII letters or
// digits and must not run on into further alphanumerics.
package trackref

import (
	"regexp"
	"strings"
)

const uriPrefix = "spotify:track:"

var (
	uriPattern  = regexp.MustCompile(`spotify:track:([a-zA-Z0-9]{15,25})(?:[^a-zA-Z0-9]|$)`)
	pathPattern = regexp.MustCompile(`/track/([a-zA-Z0-9]{15,25})(?:[^a-zA-Z0-9]|$)`)
	idPattern   = regexp.MustCompile(`^[a-zA-Z0-9]{15,25}$`)

	playlistPattern = regexp.MustCompile(`(?:spotify:playlist:|/playlist/)([a-zA-Z0-9]+)`)
)

// Extract returns the track id embedded in s, or false when s is not a recognised reference.
func Extract(s string) (string, bool) {
	if m := uriPattern.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	if m := pathPattern.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	return "", false
}

// Resolve is like [Extract] but also accepts a bare id.
func Resolve(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if idPattern.MatchString(s) {
		return s, true
	}
	return Extract(s)
}

// URI returns the canonical service URI for id.
func URI(id string) string {
	return uriPrefix + id
}

// URL returns the public web URL for id, the form printed on cards.
func URL(id string) string {
	return "https://open.spotify.com/track/" + id
}

// Playlist returns the playlist id in a spotify:playlist: URI or a /playlist/ URL.
func Playlist(s string) (string, bool) {
	if m := playlistPattern.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	return "", false
}
