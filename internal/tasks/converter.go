package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spyt/internal/models"
	"github.com/desertthunder/spyt/internal/progress"
	"github.com/desertthunder/spyt/internal/services"
	"github.com/desertthunder/spyt/internal/shared"
)

const (
	DefaultTitle       = "Spotify Playlist"
	DefaultDescription = "Transferred from Spotify"
)

// RunOptions parameterizes one conversion.
type RunOptions struct {
	PlaylistURL string
	Title       string
	Description string
	Resume      bool     // continue from the saved checkpoint instead of discarding it
	Tracks      []string // already fetched queries; skips the catalog fetch
	ChunkSize   int
}

// RunResult reports the outcome of [Converter.Run].
type RunResult struct {
	RunID        string
	PlaylistID   string
	PlaylistURL  string
	TrackCount   int
	MatchedCount int
	Added        int
	Failed       []string
	Deferred     []string
	Resumed      bool
}

// Complete reports whether nothing is left for a later run.
func (r *RunResult) Complete() bool {
	return len(r.Deferred) == 0
}

// RunRecorder persists run history. Satisfied by repositories.RunRepository.
type RunRecorder interface {
	Create(run *models.Run) error
	Update(run *models.Run) error
}

// ConverterOpts configures a [Converter].
type ConverterOpts struct {
	Catalog   services.Catalog
	Processor *Processor
	Writer    *Writer
	Store     *progress.Store
	Runs      RunRecorder // optional
	Logger    *log.Logger
}

// Converter drives a full Spotify → YouTube conversion with resume support.
type Converter struct {
	catalog   services.Catalog
	processor *Processor
	writer    *Writer
	store     *progress.Store
	runs      RunRecorder
	logger    *log.Logger
}

// NewConverter creates a [Converter].
func NewConverter(opts ConverterOpts) *Converter {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Converter{
		catalog:   opts.Catalog,
		processor: opts.Processor,
		writer:    opts.Writer,
		store:     opts.Store,
		runs:      opts.Runs,
		logger:    opts.Logger,
	}
}

// Run converts a playlist, or resumes the saved one when opts.Resume is set
// and a checkpoint exists.
//
// The checkpoint is cleared on full completion. On failure or cancellation it
// stays on disk as the resume point.
func (c *Converter) Run(ctx context.Context, opts RunOptions, updates chan<- ProgressUpdate) (*RunResult, error) {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.Description == "" {
		opts.Description = DefaultDescription
	}

	var cp *progress.Checkpoint
	if opts.Resume {
		if saved, ok := c.store.Load(); ok {
			cp = saved
			c.logger.Info("resuming from checkpoint", "tracks", len(cp.Tracks), "video_ids", len(cp.VideoIDs), "processed", cp.Processed, "playlist_id", cp.PlaylistID)
		}
	} else if err := c.store.Clear(); err != nil {
		return nil, err
	}

	result := &RunResult{Resumed: cp != nil}
	run := c.startRun(opts)
	if run != nil {
		result.RunID = run.ID()
	}

	err := c.run(ctx, opts, cp, result, updates)
	c.finishRun(run, result, err)
	return result, err
}

func (c *Converter) run(ctx context.Context, opts RunOptions, cp *progress.Checkpoint, result *RunResult, updates chan<- ProgressUpdate) error {
	var (
		tracks     []string
		ids        []string
		processed  int
		playlistID string
	)
	if cp != nil {
		tracks, ids, processed, playlistID = cp.Tracks, cp.VideoIDs, cp.Processed, cp.PlaylistID
	}

	if len(tracks) == 0 && len(ids) == 0 {
		fetched, err := c.fetch(ctx, opts, updates)
		if err != nil {
			return err
		}
		tracks, processed = fetched, 0

		if err := c.store.Save(progress.Checkpoint{Tracks: tracks}); err != nil {
			c.logger.Warn("failed to save fetched tracks", "error", err)
		}
	}
	result.TrackCount = len(tracks)
	sendProgress(updates, milestoneUpdate(25))

	if playlistID == "" && processed < len(tracks) {
		matched, err := c.processor.Resume(ctx, tracks, ids, processed, opts.ChunkSize, updates)
		if err != nil {
			result.MatchedCount = len(matched)
			return err
		}
		ids = matched
	}
	result.MatchedCount = len(ids)
	sendProgress(updates, milestoneUpdate(50))

	if len(ids) == 0 {
		if playlistID != "" {
			result.PlaylistID, result.PlaylistURL = playlistID, services.PlaylistURL(playlistID)
			sendProgress(updates, milestoneUpdate(100))
			return c.store.Clear()
		}
		if err := c.store.Clear(); err != nil {
			c.logger.Warn("failed to clear checkpoint", "error", err)
		}
		return shared.ErrNoMatches
	}

	if playlistID == "" {
		id, err := c.writer.CreatePlaylist(ctx, opts.Title, opts.Description, updates)
		if err != nil {
			return fmt.Errorf("failed to create playlist: %w", err)
		}
		playlistID = id

		if err := c.store.SaveState(nil, ids, playlistID); err != nil {
			c.logger.Warn("failed to save playlist id", "playlist_id", playlistID, "error", err)
		}
	}
	result.PlaylistID, result.PlaylistURL = playlistID, services.PlaylistURL(playlistID)
	sendProgress(updates, milestoneUpdate(75))

	added, err := c.writer.AddVideos(ctx, playlistID, ids, updates)
	if added != nil {
		result.Added = added.Added
		result.Failed = added.Failed
		result.Deferred = added.Deferred
	}
	if err != nil {
		return err
	}
	sendProgress(updates, milestoneUpdate(100))

	if result.Complete() {
		if err := c.store.Clear(); err != nil {
			c.logger.Warn("failed to clear checkpoint", "error", err)
		}
	}
	return nil
}

func (c *Converter) fetch(ctx context.Context, opts RunOptions, updates chan<- ProgressUpdate) ([]string, error) {
	if len(opts.Tracks) > 0 {
		sendProgress(updates, fetchedTracksUpdate(len(opts.Tracks)))
		return opts.Tracks, nil
	}
	if opts.PlaylistURL == "" {
		return nil, fmt.Errorf("%w: playlist url", shared.ErrMissingArgument)
	}

	sendProgress(updates, fetchingTracksUpdate())
	tracks, err := c.catalog.FetchTracks(ctx, opts.PlaylistURL)
	if err != nil {
		return nil, err
	}
	sendProgress(updates, fetchedTracksUpdate(len(tracks)))
	return tracks, nil
}

func (c *Converter) startRun(opts RunOptions) *models.Run {
	if c.runs == nil {
		return nil
	}

	run := models.NewRun(0, opts.PlaylistURL, opts.Title)
	run.SetStatus(models.RunRunning)
	if err := c.runs.Create(run); err != nil {
		c.logger.Warn("failed to record run", "error", err)
		return nil
	}
	return run
}

func (c *Converter) finishRun(run *models.Run, result *RunResult, err error) {
	if run == nil {
		return
	}

	run.SetPlaylistID(result.PlaylistID)
	run.SetTrackCount(result.TrackCount)
	run.SetMatchedCount(result.MatchedCount)
	run.SetAddedCount(result.Added)
	run.SetDeferredCount(len(result.Deferred))
	run.SetFailedIDs(result.Failed)

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		run.SetStatus(models.RunStopped)
	case err != nil:
		run.Fail(err)
	case !result.Complete():
		run.SetStatus(models.RunDeferred)
	default:
		run.SetStatus(models.RunCompleted)
	}

	if err := c.runs.Update(run); err != nil {
		c.logger.Warn("failed to update run", "run_id", run.ID(), "error", err)
	}
}
