package main

import (
	"context"
	"fmt"

	"github.com/mcampolo/reeldeck/internal/models"
	"github.com/mcampolo/reeldeck/internal/shared"
	"github.com/mcampolo/reeldeck/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Browse lists the videos in a folder, optionally probing each one first.
func (r *Runner) Browse(ctx context.Context, cmd *cli.Command) error {
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

	r.logger.Info("loading folder", "folder", folder)

	records, err := r.engine.Load(ctx, folder, false)
	if err != nil {
		return fmt.Errorf("failed to load folder: %w", err)
	}

	if cmd.Bool("verify") {
		progress := make(chan tasks.ProgressUpdate, 50)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for update := range progress {
				r.logger.Info(update.Message, "phase", update.Phase.String())
			}
		}()

		if err := r.engine.Reconcile(ctx, progress); err != nil {
			close(progress)
			<-done
			return fmt.Errorf("verification failed: %w", err)
		}
		close(progress)
		<-done

		records = r.engine.Catalog().Snapshot()
	}

	if cmd.Bool("json") {
		return r.writeJSON(records, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Videos in %s", folder))
	for i, rec := range records {
		marker := "·"
		switch rec.Compatibility {
		case models.CompatOK:
			marker = "✓"
		case models.CompatFailed:
			marker = "✗"
		}
		r.writePlain("%d. %s %s [%s]\n", i+1, marker, rec.Name, rec.FormattedDuration())
		if rec.Compatibility == models.CompatFailed && rec.CompatibilityError != "" {
			r.writePlain("   %s\n", rec.CompatibilityError)
		}
	}
	r.writePlain("\n%d videos\n", len(records))

	return nil
}
