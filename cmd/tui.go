package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mcampolo/reeldeck/internal/repositories"
	"github.com/mcampolo/reeldeck/internal/shared"
	"github.com/mcampolo/reeldeck/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive two-panel curation interface.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if r.engine == nil {
		return fmt.Errorf("%w: dropbox credentials not configured", shared.ErrMissingCredentials)
	}

	folder := cmd.String("folder")
	if folder == "" {
		folder = r.config.Library.DefaultFolder
	}
	if folder == "" {
		return fmt.Errorf("%w: --folder", shared.ErrMissingArgument)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/reeldeck-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	// Saving is optional; the arrange flow works without a database.
	var reels *repositories.ReelRepository
	if db, err := r.openDatabase(cmd); err != nil {
		fileLogger.Warn("database unavailable, saving disabled", "error", err)
	} else {
		defer db.Close()
		reels = repositories.NewReelRepository(db)
	}

	model := ui.NewModel(ctx, r.engine, reels, folder, cmd.String("title"))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
