package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mcampolo/reeldeck/internal/formatter"
	"github.com/mcampolo/reeldeck/internal/models"
	"github.com/mcampolo/reeldeck/internal/repositories"
	"github.com/mcampolo/reeldeck/internal/shared"
	"github.com/urfave/cli/v3"
)

// openDatabase opens the configured SQLite database with migrations applied.
func (r *Runner) openDatabase(cmd *cli.Command) (*sql.DB, error) {
	configPath := cmd.String("config")
	config := r.config
	if configPath != "" {
		if loaded, err := shared.LoadConfig(configPath); err == nil {
			config = loaded
		}
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// ReelCreate builds a reel from a folder's playable videos in listing order.
func (r *Runner) ReelCreate(ctx context.Context, cmd *cli.Command) error {
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

	title := cmd.String("title")

	r.logger.Info("loading folder", "folder", folder)
	if _, err := r.engine.Load(ctx, folder, false); err != nil {
		return fmt.Errorf("failed to load folder: %w", err)
	}

	r.logger.Info("verifying playability before building the reel")
	if err := r.engine.Reconcile(ctx, nil); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	items := []models.ReelItem{}
	skipped := 0
	for _, rec := range r.engine.Catalog().Snapshot() {
		if rec.Compatibility == models.CompatFailed {
			skipped++
			r.logger.Warn("skipping unplayable video", "name", rec.Name, "reason", rec.CompatibilityError)
			continue
		}
		items = append(items, models.ItemFromRecord(&rec, len(items)))
	}

	if len(items) == 0 {
		return fmt.Errorf("%w: no playable videos in %s", shared.ErrRecordNotFound, folder)
	}

	reel := models.NewReel(title, folder)
	reel.SetItems(items)

	db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewReelRepository(db)
	if err := repo.Create(reel); err != nil {
		return fmt.Errorf("failed to save reel: %w", err)
	}

	r.writePlain("✓ Reel '%s' saved with %d videos", title, len(items))
	if skipped > 0 {
		r.writePlain(" (%d unplayable skipped)", skipped)
	}
	r.writePlain("\n  ID: %s\n", reel.ID())
	return nil
}

// ReelList prints saved reels.
func (r *Runner) ReelList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewReelRepository(db)

	criteria := map[string]any{}
	if folder := cmd.String("folder"); folder != "" {
		criteria["folder"] = folder
	}

	reels, err := repo.List(criteria)
	if err != nil {
		return fmt.Errorf("failed to list reels: %w", err)
	}

	if cmd.Bool("json") {
		summaries := make([]map[string]any, 0, len(reels))
		for _, reel := range reels {
			summaries = append(summaries, map[string]any{
				"id":         reel.ID(),
				"sequence":   reel.Sequence(),
				"title":      reel.Title(),
				"folder":     reel.Folder(),
				"updated_at": reel.UpdatedAt(),
			})
		}
		return r.writeJSON(summaries, true)
	}

	if len(reels) == 0 {
		r.writePlain("No reels saved yet\n")
		return nil
	}

	r.writePlainHeader("Saved Reels")
	for _, reel := range reels {
		r.writePlain("#%d %s\n", reel.Sequence(), reel.Title())
		r.writePlain("   id: %s  folder: %s\n", reel.ID(), reel.Folder())
	}
	return nil
}

// ReelShow prints one reel's items in playback order.
func (r *Runner) ReelShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: reel id", shared.ErrMissingArgument)
	}

	db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	reel, err := repositories.NewReelRepository(db).Get(id)
	if err != nil {
		return err
	}

	r.writePlainHeader(reel.Title())
	r.writePlain("Folder: %s\n", reel.Folder())
	r.writePlain("Runtime: %s\n\n", models.FormatClock(formatter.TotalRuntime(reel)))
	for _, item := range reel.Items() {
		r.writePlain("%d. %s [%s]\n", item.Position+1, item.Name, models.FormatClock(item.Duration))
	}
	return nil
}

// ReelExport writes a reel to the requested format.
func (r *Runner) ReelExport(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: reel id", shared.ErrMissingArgument)
	}

	db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	reel, err := repositories.NewReelRepository(db).Get(id)
	if err != nil {
		return err
	}

	output := cmd.String("output")

	switch strings.ToLower(cmd.String("format")) {
	case "csv":
		result, err := formatter.WriteCSVExport(reel, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Reel exported to %s and %s\n", result.ItemsFile, result.MetadataFile)

	case "markdown", "md":
		result, err := formatter.WriteMarkdownExport(reel, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Reel exported to %s\n", result.Directory)

	case "json":
		path, err := formatter.WriteJSONExport(reel, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Reel exported to %s\n", path)

	default:
		return fmt.Errorf("%w: format must be csv, markdown, or json", shared.ErrInvalidFlag)
	}

	return nil
}

// ReelDelete soft-deletes a saved reel.
func (r *Runner) ReelDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: reel id", shared.ErrMissingArgument)
	}

	db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repositories.NewReelRepository(db).Delete(id); err != nil {
		return err
	}

	r.writePlain("✓ Reel %s deleted\n", id)
	return nil
}
