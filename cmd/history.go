package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/hitx/internal/formatter"
	"github.com/desertthunder/hitx/internal/models"
	"github.com/desertthunder/hitx/internal/repositories"
	"github.com/desertthunder/hitx/internal/shared"
)

// History prints recently scanned cards from the local database.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.OpenDatabase(r.config)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	scanRepo := repositories.NewScanRepository(db)
	lookup := repositories.NewTrackCacheAdapter(repositories.NewTrackRepository(db)).Lookup

	limit := cmd.Int("limit")
	var scans []*models.Scan
	if sessionID := cmd.String("session"); sessionID != "" {
		scans, err = scanRepo.List(map[string]any{"session_id": sessionID, "limit": limit})
	} else {
		scans, err = scanRepo.Recent(limit)
	}
	if err != nil {
		return fmt.Errorf("failed to load scans: %w", err)
	}

	if path := cmd.String("export"); path != "" {
		if err := formatter.WriteHistoryExport(scans, lookup, path); err != nil {
			return err
		}
		r.logger.Info("history exported", "path", path, "scans", len(scans))
		return r.writePlain("✓ %d scans exported to %s\n", len(scans), path)
	}

	switch format := cmd.String("format"); format {
	case "text", "":
		return r.writeBytes(formatter.HistoryToText(scans, lookup, time.Now()))
	case "markdown", "md":
		return r.writeBytes(formatter.HistoryToMarkdown(scans, lookup))
	case "csv":
		data, err := formatter.HistoryToCSV(scans, lookup)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	case "json":
		data, err := formatter.HistoryToJSON(scans, lookup, true)
		if err != nil {
			return err
		}
		return r.writeBytes(append(data, '\n'))
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}
