package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/spyt/internal/services"
	"github.com/desertthunder/spyt/internal/shared"
	"github.com/desertthunder/spyt/internal/tasks"
	"github.com/urfave/cli/v3"
)

// convertOptions resolves flags against config and the saved checkpoint.
func (r *Runner) convertOptions(cmd *cli.Command) (tasks.RunOptions, error) {
	resume, fresh := cmd.Bool("resume"), cmd.Bool("fresh")
	if resume && fresh {
		return tasks.RunOptions{}, fmt.Errorf("%w: --resume and --fresh are mutually exclusive", shared.ErrInvalidArgument)
	}

	opts := tasks.RunOptions{
		PlaylistURL: strings.TrimSpace(cmd.StringArg("url")),
		Title:       cmd.String("title"),
		Description: cmd.String("description"),
		ChunkSize:   cmd.Int("chunk-size"),
		Resume:      !fresh && r.store.Exists(),
	}
	if opts.Description == "" {
		opts.Description = r.config.Pipeline.Description
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = r.config.Pipeline.ChunkSize
	}

	if resume && !opts.Resume {
		r.logger.Warn("no checkpoint to resume from, starting fresh", "path", r.store.Path())
	}
	if opts.Resume {
		return opts, nil
	}
	if opts.PlaylistURL == "" {
		return opts, fmt.Errorf("%w: playlist url (spyt convert <url>)", shared.ErrMissingArgument)
	}
	if _, err := services.ExtractPlaylistID(opts.PlaylistURL); err != nil {
		return opts, err
	}
	return opts, nil
}

// Convert runs a Spotify → YouTube conversion, resuming from the checkpoint when one exists.
func (r *Runner) Convert(ctx context.Context, cmd *cli.Command) error {
	opts, err := r.convertOptions(cmd)
	if err != nil {
		return err
	}

	converter, err := r.converter(ctx)
	if err != nil {
		r.diagnose(err, opts.PlaylistURL)
		return err
	}

	useJSON := cmd.Bool("json")
	r.logger.Info("starting conversion", "url", opts.PlaylistURL, "title", opts.Title, "resume", opts.Resume)
	if !useJSON {
		if opts.Resume {
			r.writePlain("Resuming conversion from %s\n\n", r.store.Path())
		} else {
			r.writePlain("Converting %s\n", opts.PlaylistURL)
			r.writePlain("Destination: %s\n\n", opts.Title)
		}
	}

	progressCh := make(chan tasks.ProgressUpdate, 100)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			if !useJSON {
				r.printProgress(update)
			}
		}
	}()

	result, err := converter.Run(ctx, opts, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		if errors.Is(err, context.Canceled) {
			r.writePlainln("⚠ Conversion stopped; run 'spyt convert' again to resume")
			return err
		}
		if !errors.Is(err, shared.ErrNoMatches) {
			r.diagnose(err, opts.PlaylistURL)
		}
		if result != nil && result.PlaylistID != "" {
			r.writePlainln("Partial playlist: %s", result.PlaylistURL)
		}
		return err
	}

	if useJSON {
		return r.writeJSON(result, true)
	}
	r.printResult(result)
	return nil
}

// printProgress writes one progress update, prefixed by a phase icon.
func (r *Runner) printProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.FetchTracks:
		r.writePlain("📥 %s\n", update.Message)
	case tasks.MatchTracks:
		if update.Step == 1 {
			r.writePlain("\n🔍 Matching %d tracks\n", update.Total)
		}
		r.writePlain("   %s\n", update.Message)
	case tasks.SaveCheckpoint:
		r.writePlain("💾 %s\n", update.Message)
	case tasks.CreatePlaylist:
		r.writePlain("\n📝 %s\n", update.Message)
	case tasks.AddVideos:
		if update.Step == 0 {
			r.writePlain("\n⏳ %s\n", update.Message)
		} else {
			r.writePlain("   %s\n", update.Message)
		}
	case tasks.WaitQuota:
		r.writePlain("\n⏳ %s\n", update.Message)
	case tasks.Milestone:
		r.logger.Debug("milestone", "percent", update.Step)
	}
}

func (r *Runner) printResult(result *tasks.RunResult) {
	r.writePlain("\n")
	if result.Complete() {
		r.writePlainHeader("Conversion Complete!")
	} else {
		r.writePlainHeader("Conversion Deferred")
	}
	r.writePlain("Playlist: %s\n", result.PlaylistURL)
	r.writePlain("Matched: %d/%d tracks\n", result.MatchedCount, result.TrackCount)
	r.writePlain("Added: %d videos\n", result.Added)
	if result.Resumed {
		r.writePlain("Resumed from checkpoint\n")
	}

	if len(result.Failed) > 0 {
		r.writePlain("\nFailed to add %d videos:\n", len(result.Failed))
		for _, id := range result.Failed {
			r.writePlain("  - https://www.youtube.com/watch?v=%s\n", id)
		}
	}

	if len(result.Deferred) > 0 {
		r.writePlainln("%d videos deferred until the quota resets (%s).", len(result.Deferred), r.ledger.NextReset().Format("2006-01-02 15:04"))
		r.writePlain("Run 'spyt convert' again after the reset to finish.\n")
	}
}
