package main

import (
	"context"
	"fmt"

	"github.com/adrg/xdg"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/hitx/internal/session"
	"github.com/desertthunder/hitx/internal/shared"
	"github.com/desertthunder/hitx/internal/ui"
)

// useFileLogger redirects logs to a file so they do not interfere with TUI rendering.
func (r *Runner) useFileLogger() error {
	path, err := xdg.StateFile("hitx/hitx.log")
	if err != nil {
		return fmt.Errorf("failed to resolve log path: %w", err)
	}

	fileLogger, err := shared.NewFileLogger(path)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)
	return nil
}

// playTUI runs the interactive device picker and scanning view.
func (r *Runner) playTUI(ctx context.Context, c *session.Controller) error {
	model := ui.NewModel(ctx, c, r.config.Player.Name)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
