package main

import (
	"context"
	"time"

	"github.com/desertthunder/spyt/internal/services"
	"github.com/urfave/cli/v3"
)

// ProgressShow prints the saved checkpoint, if any.
func (r *Runner) ProgressShow(ctx context.Context, cmd *cli.Command) error {
	cp, ok := r.store.Load()
	if !ok {
		if cmd.Bool("json") {
			return r.writeJSON(nil, false)
		}
		return r.writePlain("No saved checkpoint at %s\n", r.store.Path())
	}

	if cmd.Bool("json") {
		return r.writeJSON(cp, true)
	}

	r.writePlainHeader("Saved Checkpoint")
	r.writePlain("File: %s\n", r.store.Path())
	r.writePlain("Saved: %s\n", cp.Timestamp.Format(time.RFC1123))

	switch {
	case cp.HasPlaylist():
		r.writePlain("Stage: adding videos\n")
		r.writePlain("Playlist: %s\n", services.PlaylistURL(cp.PlaylistID))
		r.writePlain("Videos left to add: %d\n", len(cp.VideoIDs))
	case cp.MatchingDone():
		r.writePlain("Stage: ready to create playlist\n")
		r.writePlain("Matched: %d/%d tracks\n", len(cp.VideoIDs), len(cp.Tracks))
	default:
		r.writePlain("Stage: matching\n")
		r.writePlain("Processed: %d/%d tracks (%d matched)\n", cp.Processed, len(cp.Tracks), len(cp.VideoIDs))
	}

	r.writePlain("\nRun 'spyt convert' to resume or 'spyt progress clear' to discard.\n")
	return nil
}

// ProgressClear deletes the saved checkpoint.
func (r *Runner) ProgressClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.store.Clear(); err != nil {
		return err
	}
	r.logger.Info("checkpoint cleared", "path", r.store.Path())
	return r.writePlain("✓ Checkpoint cleared\n")
}
