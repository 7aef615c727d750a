package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/hitx/internal/formatter"
	"github.com/desertthunder/hitx/internal/playback"
	"github.com/desertthunder/hitx/internal/services"
	"github.com/desertthunder/hitx/internal/shared"
)

// spotifyService returns a service authenticated with the stored token.
//
// Refreshed tokens are written back to the config file.
func (r *Runner) spotifyService(ctx context.Context) (*services.SpotifyService, error) {
	creds := r.config.Credentials.Spotify
	spotify, err := services.NewSpotifyService(creds.Map())
	if err != nil {
		return nil, err
	}
	if r.apiURL != "" {
		spotify.SetBaseURL(r.apiURL)
	}

	token := creds.Token()
	if token == nil {
		return nil, fmt.Errorf("%w: run 'hitx auth' first", shared.ErrNotAuthenticated)
	}

	spotify.SetTokenRefreshCallback(func(t *oauth2.Token) {
		if err := r.saveTokens(t); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
			return
		}
		r.logger.Debug("refreshed token saved")
	})
	spotify.SetToken(ctx, token)
	return spotify, nil
}

// explainAuth adds a hint to errors caused by a rejected token.
func explainAuth(err error) error {
	if errors.Is(err, shared.ErrNotAuthenticated) || errors.Is(err, playback.ErrAuthExpired) {
		return fmt.Errorf("%w (run 'hitx auth' to log in again)", err)
	}
	return err
}

// Whoami prints the logged in Spotify account.
func (r *Runner) Whoami(ctx context.Context, cmd *cli.Command) error {
	spotify, err := r.spotifyService(ctx)
	if err != nil {
		return err
	}

	user, err := spotify.UserProfile(ctx)
	if err != nil {
		return explainAuth(err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(user, true)
	}

	r.writePlainHeader(displayName(user))
	r.writePlain("ID:      %s\n", user.ID)
	if user.Email != "" {
		r.writePlain("Email:   %s\n", user.Email)
	}
	if user.Country != "" {
		r.writePlain("Country: %s\n", user.Country)
	}
	if user.Premium() {
		r.writePlain("Playback: remote and local\n")
	} else {
		r.writePlain("Playback: local previews only (remote needs Premium)\n")
	}
	return nil
}

// Devices lists the Spotify Connect devices visible to the account.
func (r *Runner) Devices(ctx context.Context, cmd *cli.Command) error {
	spotify, err := r.spotifyService(ctx)
	if err != nil {
		return err
	}

	client := playback.NewClient(r.apiURL, r.httpClient, spotify.TokenSource(ctx))
	devices, err := client.Devices(ctx)
	if err != nil {
		return explainAuth(err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(devices, cmd.Bool("pretty"))
	}
	return r.writeBytes(formatter.DevicesToText(devices))
}
