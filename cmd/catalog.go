package main

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/catx/internal/formatter"
	"github.com/desertthunder/catx/internal/models"
	"github.com/desertthunder/catx/internal/services"
	"github.com/desertthunder/catx/internal/shared"
	"github.com/desertthunder/catx/internal/tasks"
)

func pageQuery(cmd *cli.Command) services.PageQuery {
	return services.PageQuery{
		Page: int(cmd.Int("page")),
		Size: int(cmd.Int("size")),
		Sort: cmd.String("sort"),
	}
}

func outputFormat(cmd *cli.Command) (string, error) {
	format := strings.ToLower(cmd.String("format"))
	if format == "md" {
		format = formatter.FormatMarkdown
	}
	if !slices.Contains(formatter.Formats, format) {
		return "", fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidInput, format, strings.Join(formatter.Formats, ", "))
	}
	return format, nil
}

func (r *Runner) render(l formatter.Listing, format string) error {
	data, err := formatter.Render(l, format)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// CatalogArtists lists artists, optionally filtered by name.
func (r *Runner) CatalogArtists(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	if _, err := r.session(); err != nil {
		return err
	}

	var page *models.Page[models.Artist]
	if search := cmd.String("search"); search != "" {
		page, err = r.catalog.SearchArtists(ctx, search, pageQuery(cmd))
	} else {
		page, err = r.catalog.Artists(ctx, pageQuery(cmd))
	}
	if err != nil {
		return err
	}
	return r.render(formatter.NewListing("Artists", page, models.ArtistRows(page.Content)), format)
}

// CatalogArtist shows one artist and its albums.
func (r *Runner) CatalogArtist(ctx context.Context, cmd *cli.Command) error {
	id, err := strconv.ParseInt(cmd.StringArg("id"), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: artist id must be a number", shared.ErrInvalidInput)
	}
	if _, err := r.session(); err != nil {
		return err
	}

	artist, err := r.catalog.Artist(ctx, id)
	if err != nil {
		return err
	}

	r.writePlainHeader(artist.Name)
	r.writePlain("ID:     %d\n", artist.ID)
	r.writePlain("Albums: %d\n", len(artist.Albums))
	for _, album := range artist.Albums {
		r.writePlain("  • %s\n", album.Name)
	}
	return nil
}

// CatalogAlbums lists albums.
func (r *Runner) CatalogAlbums(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	if _, err := r.session(); err != nil {
		return err
	}

	page, err := r.catalog.Albums(ctx, pageQuery(cmd))
	if err != nil {
		return err
	}
	return r.render(formatter.NewListing("Albums", page, models.AlbumRows(page.Content)), format)
}

// CatalogRegionals lists regionals.
func (r *Runner) CatalogRegionals(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	if _, err := r.session(); err != nil {
		return err
	}

	page, err := r.catalog.Regionals(ctx, pageQuery(cmd))
	if err != nil {
		return err
	}
	return r.render(formatter.NewListing("Regionals", page, models.RegionalRows(page.Content)), format)
}

// CatalogSnapshot fetches every listing concurrently and writes them to disk.
func (r *Runner) CatalogSnapshot(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	if _, err := r.session(); err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Debug("snapshot progress", "phase", update.Phase, "step", update.Step, "total", update.Total)
			if update.Phase == tasks.WriteFiles || update.Phase == tasks.Done {
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	result, err := r.engine.Export(ctx, progress, tasks.ExportOpts{
		SnapshotOpts: tasks.SnapshotOpts{
			Pages:       int(cmd.Int("pages")),
			PageSize:    int(cmd.Int("size")),
			Workers:     int(cmd.Int("workers")),
			StopOnError: cmd.Bool("stop-on-error"),
		},
		Format:    format,
		OutputDir: cmd.String("output"),
	})
	close(progress)
	<-done

	if result != nil {
		for _, failure := range result.Errors {
			r.logger.Warn("listing failed", "listing", failure.Listing, "page", failure.Page+1, "error", failure.Message)
		}
		if result.ManifestPath != "" {
			r.writePlain("✓ Snapshot written to %s (%d files, %d failures)\n", result.OutputDirectory, len(result.Files), len(result.Errors))
		}
	}
	return err
}
