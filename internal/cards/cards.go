// Package cards renders a playlist into QR-coded game cards.
//
// Each card is a PNG encoding the track's open.spotify.com URL, which every
// phone camera and the hitx scanner understand. A cards.csv manifest maps
// card numbers back to the hidden answers (title, artists, year) for
// printing the reverse side.
package cards

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/skip2/go-qrcode"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/hitx/internal/playback"
	"github.com/desertthunder/hitx/internal/scanner"
	"github.com/desertthunder/hitx/internal/services"
	"github.com/desertthunder/hitx/internal/trackref"
)

const (
	DefaultSize  = 512
	ManifestName = "cards.csv"
	renderers    = 4
)

var (
	ErrEmptyPlaylist = errors.New("playlist has no playable tracks")
	ErrUnreadable    = errors.New("generated card does not scan")
)

// TrackLister returns the tracks of a playlist. [services.SpotifyService] implements it.
type TrackLister interface {
	PlaylistTracks(ctx context.Context, playlistID string) ([]services.SpotifyTrack, error)
}

// Options configures a [Generator].
type Options struct {
	OutDir string
	Size   int  // PNG edge in pixels
	Invert bool // light code on a dark background
	Verify bool // decode every card after writing it
	Logger *log.Logger
}

// Card is one generated card.
type Card struct {
	Number  int
	TrackID string
	URL     string
	Name    string
	Artists string
	Album   string
	Year    int
	File    string
}

// Generator writes card images and the manifest.
type Generator struct {
	tracks  TrackLister
	opts    Options
	logger  *log.Logger
	decoder *scanner.Decoder
	mu      sync.Mutex
}

// NewGenerator creates a [Generator] reading playlists from tracks.
func NewGenerator(tracks TrackLister, opts Options) *Generator {
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.OutDir == "" {
		opts.OutDir = "."
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	return &Generator{
		tracks:  tracks,
		opts:    opts,
		logger:  opts.Logger.With("component", "cards"),
		decoder: scanner.NewDecoder(scanner.DecoderOptions{Logger: opts.Logger}),
	}
}

// Generate fetches playlistID and writes one PNG per track plus the manifest.
func (g *Generator) Generate(ctx context.Context, playlistID string) ([]Card, error) {
	tracks, err := g.tracks.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist tracks: %w", err)
	}
	if len(tracks) == 0 {
		return nil, ErrEmptyPlaylist
	}

	if err := os.MkdirAll(g.opts.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	cards := Plan(tracks)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(renderers)
	for i := range cards {
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return g.render(&cards[i])
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	manifest := filepath.Join(g.opts.OutDir, ManifestName)
	f, err := os.Create(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to create manifest: %w", err)
	}
	defer f.Close()

	if err := WriteManifest(f, cards); err != nil {
		return nil, err
	}

	g.logger.Info("cards generated", "count", len(cards), "dir", g.opts.OutDir, "inverted", g.opts.Invert)
	return cards, nil
}

// Plan numbers the tracks and derives card data without rendering anything.
func Plan(tracks []services.SpotifyTrack) []Card {
	cards := make([]Card, 0, len(tracks))
	for _, t := range tracks {
		info := playback.TrackInfoFromSpotify(t)
		n := len(cards) + 1
		cards = append(cards, Card{
			Number:  n,
			TrackID: info.ID,
			URL:     trackref.URL(info.ID),
			Name:    info.Name,
			Artists: info.ArtistString,
			Album:   info.Album,
			Year:    info.Year,
			File:    fmt.Sprintf("%03d-%s.png", n, info.ID),
		})
	}
	return cards
}

func (g *Generator) render(card *Card) error {
	data, err := Encode(card.URL, g.opts.Size, g.opts.Invert)
	if err != nil {
		return fmt.Errorf("card %d: %w", card.Number, err)
	}

	if g.opts.Verify {
		if err := g.verify(card, data); err != nil {
			return err
		}
	}

	path := filepath.Join(g.opts.OutDir, card.File)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write card %d: %w", card.Number, err)
	}

	g.logger.Debug("card written", "number", card.Number, "track", card.TrackID)
	return nil
}

// verify decodes the rendered card the way the scanner would see it.
func (g *Generator) verify(card *Card, data []byte) error {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("card %d: failed to read back PNG: %w", card.Number, err)
	}

	// a Decoder reuses its buffers and is not safe for concurrent use
	g.mu.Lock()
	res, ok := g.decoder.DecodePrimary(scanner.FrameFromImage(img))
	g.mu.Unlock()

	if !ok || res.Payload != card.URL {
		return fmt.Errorf("card %d (%s): %w", card.Number, card.TrackID, ErrUnreadable)
	}
	return nil
}

// Encode renders content as a PNG QR code of size pixels.
func Encode(content string, size int, invert bool) ([]byte, error) {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	styleCode(q, invert)

	data, err := q.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}
	return data, nil
}

func styleCode(q *qrcode.QRCode, invert bool) {
	if invert {
		q.ForegroundColor = color.White
		q.BackgroundColor = color.Black
	}
}

// WriteManifest writes cards as CSV with a header row.
func WriteManifest(w io.Writer, cards []Card) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"number", "track_id", "name", "artists", "album", "year", "url", "file"}); err != nil {
		return fmt.Errorf("failed to write manifest header: %w", err)
	}

	for _, c := range cards {
		year := ""
		if c.Year > 0 {
			year = strconv.Itoa(c.Year)
		}
		row := []string{strconv.Itoa(c.Number), c.TrackID, c.Name, c.Artists, c.Album, year, c.URL, c.File}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write manifest row %d: %w", c.Number, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush manifest: %w", err)
	}
	return nil
}
