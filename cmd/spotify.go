package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/spyt/internal/services"
	"github.com/desertthunder/spyt/internal/shared"
	"github.com/urfave/cli/v3"
)

// verifier is implemented by catalogs that can check their credentials.
type verifier interface {
	Verify(ctx context.Context) error
}

// SpotifyTracks lists the search query built from each track of a playlist.
func (r *Runner) SpotifyTracks(ctx context.Context, cmd *cli.Command) error {
	playlistURL := strings.TrimSpace(cmd.StringArg("url"))
	if playlistURL == "" {
		return fmt.Errorf("%w: playlist url (spyt spotify tracks <url>)", shared.ErrMissingArgument)
	}
	if _, err := services.ExtractPlaylistID(playlistURL); err != nil {
		return err
	}

	catalog, err := r.requireCatalog()
	if err != nil {
		return err
	}

	r.logger.Infof("fetching spotify playlist %v", playlistURL)
	tracks, err := catalog.FetchTracks(ctx, playlistURL)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d tracks:\n\n", len(tracks))
	for i, query := range tracks {
		r.writePlain("%d. %s\n", i+1, query)
	}
	return nil
}

// SpotifyVerify checks the client credentials with a one-result search.
func (r *Runner) SpotifyVerify(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.requireCatalog()
	if err != nil {
		return err
	}

	v, ok := catalog.(verifier)
	if !ok {
		return fmt.Errorf("%w: catalog cannot verify credentials", shared.ErrNotImplemented)
	}
	if err := v.Verify(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Spotify credentials are valid\n")
}
