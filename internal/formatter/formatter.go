// package formatter renders tracks, devices and scan history as text, CSV, Markdown and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/desertthunder/hitx/internal/models"
	"github.com/desertthunder/hitx/internal/playback"
	"github.com/desertthunder/hitx/internal/shared"
)

// TrackLookup resolves cached track metadata by service id. A nil lookup shows ids only.
type TrackLookup func(trackID string) (*models.Track, bool)

// FormatDuration renders milliseconds as m:ss.
func FormatDuration(ms int) string {
	if ms <= 0 {
		return "0:00"
	}
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// YearString returns the year or "????" when it is unknown.
func YearString(year int) string {
	if year <= 0 {
		return "????"
	}
	return strconv.Itoa(year)
}

// TrackToText renders the answer side of a card.
func TrackToText(track *playback.TrackInfo) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", track.Name)
	fmt.Fprintf(&buf, "%s\n", track.ArtistString)
	fmt.Fprintf(&buf, "%s", YearString(track.Year))
	if track.Album != "" {
		fmt.Fprintf(&buf, " · %s", track.Album)
	}
	if track.DurationMs > 0 {
		fmt.Fprintf(&buf, " · %s", FormatDuration(track.DurationMs))
	}
	buf.WriteString("\n")

	return buf.Bytes()
}

// DevicesToText renders the remote devices as a numbered list, marking the active one.
func DevicesToText(devices []playback.Device) []byte {
	var buf bytes.Buffer

	if len(devices) == 0 {
		buf.WriteString("No devices found. Open Spotify on a phone, speaker or computer and try again.\n")
		return buf.Bytes()
	}

	for i, d := range devices {
		marker := " "
		if d.IsActive {
			marker = "*"
		}
		fmt.Fprintf(&buf, "%s %d. %s (%s) volume %d%%\n", marker, i+1, d.Name, d.Type, d.VolumePercent)
		fmt.Fprintf(&buf, "     id: %s\n", d.ID)
	}

	return buf.Bytes()
}

// HistoryToText renders scans newest first with relative times.
func HistoryToText(scans []*models.Scan, lookup TrackLookup, now time.Time) []byte {
	var buf bytes.Buffer

	if len(scans) == 0 {
		buf.WriteString("No cards scanned yet.\n")
		return buf.Bytes()
	}

	for _, s := range scans {
		fmt.Fprintf(&buf, "#%d %s  %s\n", s.Sequence(), humanize.RelTime(s.ScannedAt(), now, "ago", "from now"), describe(s, lookup))
		fmt.Fprintf(&buf, "   %s on %s via %s, session %s\n", s.Mode(), deviceName(s), s.Strategy(), shortID(s.SessionID()))
	}

	return buf.Bytes()
}

// HistoryToMarkdown renders scans as a Markdown table.
func HistoryToMarkdown(scans []*models.Scan, lookup TrackLookup) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Scan history\n\n")
	fmt.Fprintf(&buf, "**Scans**: %s\n\n", humanize.Comma(int64(len(scans))))

	buf.WriteString("| # | Scanned | Track | Device | Strategy |\n")
	buf.WriteString("|---|---|---|---|---|\n")
	for _, s := range scans {
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %s |\n",
			s.Sequence(), s.ScannedAt().Format(time.DateTime), describe(s, lookup), deviceName(s), s.Strategy())
	}

	return buf.Bytes()
}

// HistoryToCSV converts scans to CSV format.
func HistoryToCSV(scans []*models.Scan, lookup TrackLookup) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "ScannedAt", "Session", "TrackID", "Name", "Artists", "Year", "Mode", "Device", "Strategy", "Payload"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, s := range scans {
		var name, artists, year string
		if t, ok := lookupTrack(lookup, s.TrackID()); ok {
			name, artists = t.Name, t.ArtistString()
			if t.Year > 0 {
				year = strconv.Itoa(t.Year)
			}
		}

		record := []string{
			strconv.Itoa(s.Sequence()),
			s.ScannedAt().Format(time.RFC3339),
			s.SessionID(),
			s.TrackID(),
			name,
			artists,
			year,
			s.Mode(),
			s.DeviceName(),
			s.Strategy(),
			s.Payload(),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// scanJSON is the exported shape of a [models.Scan].
type scanJSON struct {
	Sequence  int           `json:"sequence"`
	ScannedAt time.Time     `json:"scanned_at"`
	SessionID string        `json:"session_id"`
	TrackID   string        `json:"track_id"`
	TrackURI  string        `json:"track_uri"`
	Mode      string        `json:"mode"`
	Device    string        `json:"device"`
	Strategy  string        `json:"strategy"`
	Track     *models.Track `json:"track,omitempty"`
}

// HistoryToJSON renders scans as JSON, embedding cached track metadata when known.
func HistoryToJSON(scans []*models.Scan, lookup TrackLookup, pretty bool) ([]byte, error) {
	out := make([]scanJSON, 0, len(scans))
	for _, s := range scans {
		item := scanJSON{
			Sequence:  s.Sequence(),
			ScannedAt: s.ScannedAt(),
			SessionID: s.SessionID(),
			TrackID:   s.TrackID(),
			TrackURI:  s.TrackURI(),
			Mode:      s.Mode(),
			Device:    s.DeviceName(),
			Strategy:  s.Strategy(),
		}
		if t, ok := lookupTrack(lookup, s.TrackID()); ok {
			item.Track = t
		}
		out = append(out, item)
	}
	return shared.MarshalJSON(out, pretty)
}

// WriteHistoryExport writes scans to path as CSV.
func WriteHistoryExport(scans []*models.Scan, lookup TrackLookup, path string) error {
	data, err := HistoryToCSV(scans, lookup)
	if err != nil {
		return fmt.Errorf("failed to generate CSV: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write CSV file: %w", err)
	}
	return nil
}

func describe(s *models.Scan, lookup TrackLookup) string {
	t, ok := lookupTrack(lookup, s.TrackID())
	if !ok {
		return s.TrackID()
	}
	return fmt.Sprintf("%s - %s (%s)", t.ArtistString(), t.Name, YearString(t.Year))
}

func lookupTrack(lookup TrackLookup, id string) (*models.Track, bool) {
	if lookup == nil {
		return nil, false
	}
	return lookup(id)
}

func deviceName(s *models.Scan) string {
	if s.DeviceName() == "" {
		return "unknown device"
	}
	return s.DeviceName()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
