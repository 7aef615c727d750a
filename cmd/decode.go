package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/hitx/internal/camera"
	"github.com/desertthunder/hitx/internal/formatter"
	"github.com/desertthunder/hitx/internal/playback"
	"github.com/desertthunder/hitx/internal/scanner"
	"github.com/desertthunder/hitx/internal/shared"
	"github.com/desertthunder/hitx/internal/trackref"
)

// decodeResult is the output of [Runner.Decode].
type decodeResult struct {
	Payload  string              `json:"payload"`
	Strategy string              `json:"strategy"`
	TrackID  string              `json:"track_id,omitempty"`
	URI      string              `json:"uri,omitempty"`
	URL      string              `json:"url,omitempty"`
	Track    *playback.TrackInfo `json:"track,omitempty"`
}

// Decode runs both decode strategies over a single image and reports the card it holds.
func (r *Runner) Decode(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("image")
	if path == "" {
		return fmt.Errorf("%w: image path", shared.ErrMissingArgument)
	}

	result, err := r.decodeImage(path)
	if err != nil {
		return err
	}

	if cmd.Bool("lookup") && result.TrackID != "" {
		spotify, err := r.spotifyService(ctx)
		if err != nil {
			return err
		}
		track, err := spotify.Track(ctx, result.TrackID)
		if err != nil {
			return explainAuth(err)
		}
		result.Track = playback.TrackInfoFromSpotify(*track)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlain("Payload:  %s\n", result.Payload)
	r.writePlain("Strategy: %s\n", result.Strategy)
	if result.TrackID == "" {
		return r.writePlain("⚠ Not a track card\n")
	}
	r.writePlain("Track:    %s\n", result.URI)
	if result.Track != nil {
		r.writePlain("\n")
		return r.writeBytes(formatter.TrackToText(result.Track))
	}
	return nil
}

func (r *Runner) decodeImage(path string) (*decodeResult, error) {
	img, err := camera.LoadImage(path)
	if err != nil {
		return nil, err
	}

	decoder := scanner.NewDecoder(r.decoderOptions())
	frame := scanner.FrameFromImage(img)

	res, ok := decoder.DecodePrimary(frame)
	if !ok {
		res, ok = decoder.DecodeInverted(frame)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no QR code in %s", shared.ErrNotFound, path)
	}
	r.logger.Debug("decoded", "path", path, "strategy", res.Strategy)

	result := &decodeResult{Payload: res.Payload, Strategy: res.Strategy.String()}
	if id, ok := trackref.Extract(res.Payload); ok {
		result.TrackID = id
		result.URI = trackref.URI(id)
		result.URL = trackref.URL(id)
	}
	return result, nil
}
