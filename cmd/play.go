package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/hitx/internal/camera"
	"github.com/desertthunder/hitx/internal/endpoint"
	"github.com/desertthunder/hitx/internal/formatter"
	"github.com/desertthunder/hitx/internal/playback"
	"github.com/desertthunder/hitx/internal/repositories"
	"github.com/desertthunder/hitx/internal/scanner"
	"github.com/desertthunder/hitx/internal/session"
	"github.com/desertthunder/hitx/internal/shared"
)

// Play logs in, picks a playback device and plays every scanned card until interrupted.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	headless := cmd.Bool("headless")
	if !headless {
		if err := r.useFileLogger(); err != nil {
			return err
		}
	}

	spotify, err := r.spotifyService(ctx)
	if err != nil {
		return err
	}

	db, err := shared.OpenDatabase(r.config)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	controller := r.newSession(cmd, db)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := controller.Run(runCtx); err != nil && runCtx.Err() == nil {
			r.logger.Error("session stopped", "error", err)
		}
	}()
	defer controller.Close()

	if err := controller.Login(ctx, spotify.TokenSource(ctx)); err != nil {
		return explainAuth(err)
	}

	if headless {
		return r.playHeadless(ctx, cmd, controller)
	}
	return r.playTUI(ctx, controller)
}

// newSession wires the session controller to the camera, the engines and the database.
func (r *Runner) newSession(cmd *cli.Command, db *sql.DB) *session.Controller {
	sc := r.config.Scanner
	tracks := repositories.NewTrackRepository(db)

	engines := playback.NewSelector(playback.SelectorOptions{
		BaseURL:    r.apiURL,
		HTTPClient: r.httpClient,
		NewEndpoint: func() playback.Endpoint {
			return endpoint.New(endpoint.Options{Output: r.config.Player.Output, Logger: r.logger})
		},
		Logger: r.logger,
	})

	return session.New(session.Options{
		Engines:   engines,
		NewSource: r.frameSource(cmd),
		Loop: scanner.LoopOptions{
			PrimaryInterval:  sc.PrimaryInterval(),
			FallbackInterval: sc.FallbackInterval(),
			Cooldown:         sc.Cooldown(),
			Logger:           r.logger,
		},
		Decoder:    r.decoderOptions(),
		BaseURL:    r.apiURL,
		HTTPClient: r.httpClient,
		Cache:      repositories.NewTrackCacheAdapter(tracks),
		Recorder:   repositories.NewScanRepository(db),
		Name:       r.config.Player.Name,
		Volume:     r.config.Player.Volume,
		Logger:     r.logger,
	})
}

func (r *Runner) decoderOptions() scanner.DecoderOptions {
	return scanner.DecoderOptions{
		MaxWidth:  r.config.Scanner.MaxDecodeWidth,
		TryHarder: r.config.Scanner.TryHarder,
		Logger:    r.logger,
	}
}

// frameSource returns the constructor for the camera, or for a still image when --image is set.
func (r *Runner) frameSource(cmd *cli.Command) func() (scanner.FrameSource, error) {
	if path := cmd.String("image"); path != "" {
		return func() (scanner.FrameSource, error) {
			return camera.NewStill(path), nil
		}
	}

	cc := r.config.Camera
	if device := cmd.String("camera"); device != "" {
		cc.Device = device
	}
	return func() (scanner.FrameSource, error) {
		return camera.New(camera.Options{
			Device:    cc.Device,
			Format:    cc.Format,
			Width:     cc.Width,
			Height:    cc.Height,
			Framerate: cc.Framerate,
			Logger:    r.logger,
		}), nil
	}
}

func (r *Runner) playHeadless(ctx context.Context, cmd *cli.Command, c *session.Controller) error {
	mode := cmd.String("mode")
	if mode == "" {
		mode = r.config.Player.Mode
	}
	m, err := playback.ParseMode(mode)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	var device *playback.Device
	target := "this computer"
	if m == playback.ModeRemote {
		devices, err := c.Devices(ctx)
		if err != nil {
			return explainAuth(err)
		}

		want := cmd.String("device")
		if want == "" {
			want = r.config.Player.DeviceID
		}
		if device, err = pickDevice(devices, want); err != nil {
			return err
		}
		target = device.Name
	}

	if err := c.SelectDevice(ctx, string(m), device); err != nil {
		return explainAuth(err)
	}

	r.writePlain("→ Playing on %s. Hold a card up to the camera, Ctrl+C to stop.\n", target)
	return r.followSession(ctx, c.Updates(), cmd.Bool("reveal"))
}

// followSession prints scans and notices until ctx ends or the session leaves the scanning state.
func (r *Runner) followSession(ctx context.Context, updates <-chan session.Update, reveal bool) error {
	scanning := false
	scans := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}

			s := u.Snapshot
			if s.State == session.StateScanning {
				scanning = true
			}
			if !scanning {
				continue
			}

			if u.Notice != nil {
				r.writePlain("%s %s\n", noticeMarker(u.Notice.Level), u.Notice.Message)
			}

			switch s.State {
			case session.StateLogin:
				return explainAuth(fmt.Errorf("%w: session lost its credentials", shared.ErrNotAuthenticated))
			case session.StateDeviceSelect:
				return fmt.Errorf("%w: playback device lost", shared.ErrServiceUnavailable)
			}

			if s.Scans > scans {
				scans = s.Scans
				r.writePlain("♪ Card %d playing\n", scans)
				if reveal && s.Track != nil {
					r.writeBytes(formatter.TrackToText(s.Track))
				}
			}
		}
	}
}

func noticeMarker(level session.Level) string {
	switch level {
	case session.LevelError:
		return "✗"
	case session.LevelWarn:
		return "⚠"
	default:
		return "→"
	}
}

// pickDevice chooses want (an id or a case-insensitive name), else the active device, else the first one.
func pickDevice(devices []playback.Device, want string) (*playback.Device, error) {
	if len(devices) == 0 {
		return nil, fmt.Errorf("%w: no Spotify Connect devices found, open Spotify somewhere first", session.ErrNoDevice)
	}

	if want != "" {
		for i := range devices {
			if devices[i].ID == want || strings.EqualFold(devices[i].Name, want) {
				return &devices[i], nil
			}
		}
		return nil, fmt.Errorf("%w: %q not found", session.ErrNoDevice, want)
	}

	for i := range devices {
		if devices[i].IsActive {
			return &devices[i], nil
		}
	}
	return &devices[0], nil
}
