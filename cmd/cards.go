package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/hitx/internal/cards"
	"github.com/desertthunder/hitx/internal/shared"
	"github.com/desertthunder/hitx/internal/trackref"
)

// Cards writes one QR card per playlist track plus a manifest.
func (r *Runner) Cards(ctx context.Context, cmd *cli.Command) error {
	playlistID := playlistRef(cmd.StringArg("playlist"))
	if playlistID == "" {
		return fmt.Errorf("%w: playlist id or URL", shared.ErrMissingArgument)
	}

	spotify, err := r.spotifyService(ctx)
	if err != nil {
		return err
	}

	outDir := cmd.String("output")
	generator := cards.NewGenerator(spotify, cards.Options{
		OutDir: outDir,
		Size:   cmd.Int("size"),
		Invert: cmd.Bool("invert"),
		Verify: cmd.Bool("verify"),
		Logger: r.logger,
	})

	r.writePlain("→ Generating cards for playlist %s...\n", playlistID)
	generated, err := generator.Generate(ctx, playlistID)
	if err != nil {
		return explainAuth(err)
	}

	r.writePlain("✓ %d cards written to %s\n", len(generated), outDir)
	r.writePlain("  Manifest: %s\n", filepath.Join(outDir, cards.ManifestName))
	return nil
}

// playlistRef accepts a bare playlist id, a spotify:playlist: URI or an open.spotify.com URL.
func playlistRef(s string) string {
	if id, ok := trackref.Playlist(s); ok {
		return id
	}
	return s
}
