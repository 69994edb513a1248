package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spyt/internal/progress"
	"github.com/desertthunder/spyt/internal/quota"
	"github.com/desertthunder/spyt/internal/services"
	"github.com/desertthunder/spyt/internal/shared"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 2 * time.Second
	DefaultPrivacy    = "private"
)

// AddResult summarizes one [Writer.AddVideos] call.
type AddResult struct {
	Added    int      // videos inserted
	Failed   []string // ids that failed after all retries
	Deferred []string // ids left for a later run because today's quota cannot cover them
}

// WriterOpts configures a [Writer].
type WriterOpts struct {
	API        services.PlaylistAPI
	Auth       services.Authenticator
	Ledger     *quota.Ledger
	Store      *progress.Store
	Privacy    string
	MaxRetries int
	RetryDelay time.Duration
	Sleep      shared.Sleeper
	Logger     *log.Logger
}

// Writer creates the destination playlist and inserts videos within the daily quota.
type Writer struct {
	api     services.PlaylistAPI
	auth    services.Authenticator
	ledger  *quota.Ledger
	store   *progress.Store
	privacy string
	retry   shared.RetryPolicy
	sleep   shared.Sleeper
	logger  *log.Logger
}

// NewWriter creates a [Writer] with defaults for unset options.
func NewWriter(opts WriterOpts) *Writer {
	if opts.Privacy == "" {
		opts.Privacy = DefaultPrivacy
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Sleep == nil {
		opts.Sleep = shared.Sleep
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Writer{
		api:     opts.API,
		auth:    opts.Auth,
		ledger:  opts.Ledger,
		store:   opts.Store,
		privacy: opts.Privacy,
		retry:   shared.RetryPolicy{Attempts: opts.MaxRetries, BaseDelay: opts.RetryDelay},
		sleep:   opts.Sleep,
		logger:  opts.Logger,
	}
}

func (w *Writer) requireAuth() error {
	if w.auth == nil || !w.auth.IsAuthenticated() {
		return fmt.Errorf("%w: run 'spyt auth login' first", shared.ErrAuthenticationRequired)
	}
	return nil
}

// awaitQuota blocks until op fits the ledger, reporting the wait once.
func (w *Writer) awaitQuota(ctx context.Context, op quota.Operation, updates chan<- ProgressUpdate) error {
	if w.ledger.HasQuota(op) {
		return nil
	}
	resetAt := w.ledger.NextReset()
	w.logger.Warn("daily quota exhausted, waiting for reset", "operation", op, "reset_at", resetAt)
	sendProgress(updates, waitQuotaUpdate(resetAt))
	return w.ledger.WaitUntilAvailable(ctx, op)
}

func (w *Writer) charge(op quota.Operation) {
	if _, err := w.ledger.Charge(op); err != nil {
		w.logger.Warn("failed to persist quota usage", "operation", op, "error", err)
	}
}

func (w *Writer) exhaust() {
	if err := w.ledger.Exhaust(); err != nil {
		w.logger.Warn("failed to record exhausted quota", "error", err)
	}
}

// CreatePlaylist waits for quota, creates the playlist and charges the ledger.
func (w *Writer) CreatePlaylist(ctx context.Context, title, description string, updates chan<- ProgressUpdate) (string, error) {
	if err := w.requireAuth(); err != nil {
		return "", err
	}

	sendProgress(updates, creatingPlaylistUpdate(title))
	for {
		if err := w.awaitQuota(ctx, quota.OpCreatePlaylist, updates); err != nil {
			return "", err
		}

		id, err := w.api.CreatePlaylist(ctx, title, description, w.privacy)
		if errors.Is(err, shared.ErrQuotaExceeded) {
			w.exhaust()
			continue
		}
		if err != nil {
			return "", err
		}

		w.charge(quota.OpCreatePlaylist)
		sendProgress(updates, createdPlaylistUpdate(id))
		return id, nil
	}
}

// AddVideos inserts as many videos as today's remaining quota covers.
//
// The rest are returned as deferred and saved to the checkpoint with the
// playlist id. While inserting, the checkpoint always holds the ids not yet
// attempted, so an interrupt loses nothing.
func (w *Writer) AddVideos(ctx context.Context, playlistID string, videoIDs []string, updates chan<- ProgressUpdate) (*AddResult, error) {
	if err := w.requireAuth(); err != nil {
		return nil, err
	}

	possible := min(w.ledger.Remaining()/w.ledger.Cost(quota.OpInsertItem), len(videoIDs))
	today := videoIDs[:possible]
	deferred := videoIDs[possible:]

	result := &AddResult{Deferred: deferred}
	if len(deferred) > 0 {
		w.logger.Warn("not enough quota for every video", "today", len(today), "deferred", len(deferred))
		sendProgress(updates, deferredUpdate(len(today), len(deferred)))
	}

	for i, id := range today {
		w.saveRemaining(playlistID, today[i:], deferred)

		err := w.insertWithRetry(ctx, playlistID, id, updates)
		if err != nil && ctx.Err() != nil {
			result.Deferred = append(append([]string{}, today[i:]...), deferred...)
			return result, ctx.Err()
		}
		if errors.Is(err, shared.ErrQuotaUnsatisfiable) {
			return result, err
		}

		if err != nil {
			result.Failed = append(result.Failed, id)
			w.logger.Error("failed to add video", "video_id", id, "error", err)
		} else {
			result.Added++
		}
		sendProgress(updates, addVideoUpdate(i+1, len(today), id, err))
	}

	w.saveRemaining(playlistID, nil, deferred)
	w.logger.Info("videos added", "playlist_id", playlistID, "added", result.Added, "failed", len(result.Failed), "deferred", len(deferred))
	return result, nil
}

func (w *Writer) saveRemaining(playlistID string, pending, deferred []string) {
	if w.store == nil {
		return
	}
	remaining := make([]string, 0, len(pending)+len(deferred))
	remaining = append(remaining, pending...)
	remaining = append(remaining, deferred...)
	if err := w.store.SaveState(nil, remaining, playlistID); err != nil {
		w.logger.Error("failed to save pending videos", "playlist_id", playlistID, "error", err)
	}
}

// insertWithRetry attempts one insert up to the retry limit. Quota rejections
// exhaust the ledger and wait for the reset without using up an attempt.
func (w *Writer) insertWithRetry(ctx context.Context, playlistID, videoID string, updates chan<- ProgressUpdate) error {
	var lastErr error
	for attempt := 0; attempt < w.retry.Attempts; {
		if err := w.awaitQuota(ctx, quota.OpInsertItem, updates); err != nil {
			return err
		}

		lastErr = w.api.InsertItem(ctx, playlistID, videoID)
		if lastErr == nil {
			w.charge(quota.OpInsertItem)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(lastErr, shared.ErrQuotaExceeded) {
			w.exhaust()
			continue
		}

		attempt++
		if attempt == w.retry.Attempts {
			break
		}

		delay := w.retry.Delay(attempt - 1)
		w.logger.Warn("insert failed, retrying", "video_id", videoID, "attempt", attempt, "max", w.retry.Attempts, "delay", delay, "error", lastErr)
		if err := w.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return &shared.InsertError{VideoID: videoID, Err: lastErr}
}
