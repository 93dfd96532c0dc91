package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/soundpost/internal/models"
	"github.com/desertthunder/soundpost/internal/shared"
)

// CatalogSearch searches tracks by free text, artist or album.
func (r *Runner) CatalogSearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}
	if err := r.ensureCatalog(ctx); err != nil {
		return err
	}

	limit := cmd.Int("limit")
	r.logger.Debug("searching catalog", "query", query, "by", cmd.String("by"), "limit", limit)

	var result *models.SearchResult
	var err error
	switch strings.ToLower(cmd.String("by")) {
	case "", "track":
		result, err = r.catalog.SearchTracks(ctx, models.SearchQuery{Query: query, Limit: limit, Index: cmd.Int("index")})
	case "artist":
		result, err = r.catalog.SearchByArtist(ctx, query, limit)
	case "album":
		result, err = r.catalog.SearchByAlbum(ctx, query, limit)
	default:
		return fmt.Errorf("%w: unknown search field %q (track, artist, album)", shared.ErrInvalidArgument, cmd.String("by"))
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d tracks (showing %d)\n\n", result.Total, len(result.Tracks))
	r.writeTracks(result.Tracks)
	if result.HasMore {
		r.writePlainln("More results: --index %d", cmd.Int("index")+len(result.Tracks))
	}
	return nil
}

// CatalogTrack prints one track.
func (r *Runner) CatalogTrack(ctx context.Context, cmd *cli.Command) error {
	track, err := r.lookupTrack(ctx, cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(track, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s - %s", track.Artist, track.Title))
	r.writePlain("ID:       %s\n", track.ID)
	r.writePlain("Album:    %s\n", track.Album)
	r.writePlain("Duration: %s\n", shared.FormatDuration(track.Duration))
	if track.HasPreview() {
		r.writePlain("Preview:  %s\n", track.PreviewURL)
	}
	if track.DeezerURL != "" {
		r.writePlain("Link:     %s\n", track.DeezerURL)
	}
	return nil
}

// CatalogSimilar lists other tracks by the same artist.
func (r *Runner) CatalogSimilar(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}
	if err := r.ensureCatalog(ctx); err != nil {
		return err
	}

	tracks, err := r.catalog.SimilarTracks(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch similar tracks: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}
	if len(tracks) == 0 {
		r.writePlain("No similar tracks found.\n")
		return nil
	}
	r.writeTracks(tracks)
	return nil
}

// CatalogHealth checks the catalog through the relay chain and, optionally, a track's preview URL.
func (r *Runner) CatalogHealth(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureCatalog(ctx); err != nil {
		return err
	}

	if !r.catalog.IsAvailable(ctx) {
		return fmt.Errorf("%w: catalog is unreachable through every relay", shared.ErrServiceUnavailable)
	}
	r.writePlain("✓ Catalog reachable\n")

	if id := cmd.String("track"); id != "" {
		track, err := r.catalog.GetTrack(ctx, id)
		if err != nil {
			return err
		}
		if track == nil {
			return fmt.Errorf("%w: track %s", shared.ErrNotFound, id)
		}
		if !r.catalog.ValidatePreviewURL(ctx, track.PreviewURL) {
			return fmt.Errorf("%w: preview for %s is not playable", shared.ErrServiceUnavailable, id)
		}
		r.writePlain("✓ Preview playable: %s\n", track.PreviewURL)
	}
	return nil
}

// CatalogOpen opens the track's catalog page in the default browser.
func (r *Runner) CatalogOpen(ctx context.Context, cmd *cli.Command) error {
	track, err := r.lookupTrack(ctx, cmd)
	if err != nil {
		return err
	}
	if track.DeezerURL == "" {
		return fmt.Errorf("%w: track %s has no link", shared.ErrNotFound, track.ID)
	}

	r.writePlain("Opening %s\n", track.DeezerURL)
	return shared.OpenBrowser(track.DeezerURL)
}

func (r *Runner) lookupTrack(ctx context.Context, cmd *cli.Command) (*models.MusicTrack, error) {
	id := cmd.StringArg("id")
	if id == "" {
		return nil, fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}
	if err := r.ensureCatalog(ctx); err != nil {
		return nil, err
	}

	track, err := r.catalog.GetTrack(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch track: %w", err)
	}
	if track == nil {
		return nil, fmt.Errorf("%w: track %s", shared.ErrNotFound, id)
	}
	return track, nil
}

func (r *Runner) writeTracks(tracks []models.MusicTrack) {
	for i, t := range tracks {
		preview := ""
		if !t.HasPreview() {
			preview = " (no preview)"
		}
		r.writePlain("%3d. [%s] %s - %s (%s) %s%s\n", i+1, t.ID, t.Artist, t.Title, t.Album, shared.FormatDuration(t.Duration), preview)
	}
}
