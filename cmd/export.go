package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/soundpost/internal/shared"
	"github.com/desertthunder/soundpost/internal/tasks"
)

// PostExportAll exports each author's posts on a worker pool, printing progress as authors finish.
func (r *Runner) PostExportAll(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureApp(ctx, cmd); err != nil {
		return err
	}

	format := strings.ToLower(cmd.String("format"))
	switch format {
	case "json", "csv", "markdown", "txt":
	case "md":
		format = "markdown"
	case "text":
		format = "txt"
	default:
		return fmt.Errorf("%w: unknown format %q (json, csv, markdown, txt)", shared.ErrInvalidArgument, cmd.String("format"))
	}

	authors, err := r.users.List(ctx, cmd.Int("authors"))
	if err != nil {
		return fmt.Errorf("failed to list authors: %w", err)
	}
	if len(authors) == 0 {
		r.writePlain("No authors to export.\n")
		return nil
	}

	opts := tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float64("rate"),
	}
	if cmd.Bool("covers") {
		opts.CoverClient = r.httpClient
	}

	prog := make(chan tasks.ProgressUpdate, len(authors)*2+1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range prog {
			if u.Phase == tasks.ExportAuthor {
				r.writePlain("[%d/%d] %s\n", u.Step, u.Total, u.Message)
			} else {
				r.logger.Debug(u.Message, "phase", u.Phase, "step", u.Step, "total", u.Total)
			}
		}
	}()

	exporter := tasks.NewExporter(shared.WithLogger(r.logger, "component", "export"))
	result, err := exporter.BulkExport(ctx, prog, r.posts, authors, opts)
	close(prog)
	<-done
	if err != nil {
		return err
	}

	r.writePlain("✓ Exported %d of %d authors to %s\n", result.SuccessfulExports, result.TotalAuthors, result.OutputDirectory)
	r.writePlain("  %s\n", result.ManifestPath)
	if result.FailedExports > 0 {
		return fmt.Errorf("%d author exports failed, see %s", result.FailedExports, result.ManifestPath)
	}
	return nil
}
