package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mcampolo/reeldeck/internal/formatter"
	"github.com/mcampolo/reeldeck/internal/shared"
	"github.com/mcampolo/reeldeck/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Probe runs a full playability check on every video in a folder and
// reports the verdicts, optionally writing a report file.
func (r *Runner) Probe(ctx context.Context, cmd *cli.Command) error {
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

	r.logger.Info("probing folder", "folder", folder)

	if _, err := r.engine.Load(ctx, folder, false); err != nil {
		return fmt.Errorf("failed to load folder: %w", err)
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase.String())
		}
	}()

	err := r.engine.Reconcile(ctx, progress)
	close(progress)
	<-done
	if err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}

	report := formatter.NewProbeReport(folder, r.engine.Catalog().Snapshot())

	if output := cmd.String("output"); output != "" {
		if err := writeProbeReport(report, cmd.String("format"), output); err != nil {
			return err
		}
		return r.writePlain("Report written to %s\n", output)
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Playability in %s", folder))
	for _, row := range report.Results {
		marker := "·"
		switch row.Compatibility {
		case "compatible":
			marker = "✓"
		case "incompatible":
			marker = "✗"
		}
		r.writePlain("%s %s [%s]\n", marker, row.Name, row.Duration)
		if row.Error != "" {
			r.writePlain("  %s\n", row.Error)
		}
	}
	r.writePlain("\n%d videos: %d compatible, %d incompatible\n",
		report.Videos, report.Compatible, report.Incompatible)

	return nil
}

// writeProbeReport serializes the report in the requested format and writes
// it to path.
func writeProbeReport(report *formatter.ProbeReport, format, path string) error {
	var data []byte
	var err error

	switch strings.ToLower(format) {
	case "csv":
		data, err = formatter.ProbeReportToCSV(report)
	case "markdown", "md":
		data, err = formatter.ProbeReportToMarkdown(report)
	case "json", "":
		data, err = formatter.ProbeReportToJSON(report)
	default:
		return fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidFlag, format)
	}
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}
