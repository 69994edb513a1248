package tasks

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spyt/internal/progress"
	"github.com/desertthunder/spyt/internal/shared"
)

const (
	DefaultChunkSize  = 25
	DefaultChunkDelay = 2 * time.Second
)

// VideoMatcher resolves one track query to at most one video id.
type VideoMatcher interface {
	Match(ctx context.Context, query string) (string, bool)
}

// ProcessorOpts configures a [Processor].
type ProcessorOpts struct {
	Matcher    VideoMatcher
	Store      *progress.Store
	ChunkDelay time.Duration
	Sleep      shared.Sleeper
	Logger     *log.Logger
}

// Processor matches track queries in fixed-size chunks, checkpointing after each chunk.
type Processor struct {
	matcher VideoMatcher
	store   *progress.Store
	delay   time.Duration
	sleep   shared.Sleeper
	logger  *log.Logger
}

// NewProcessor creates a [Processor]. A negative ChunkDelay disables the pause between chunks.
func NewProcessor(opts ProcessorOpts) *Processor {
	if opts.ChunkDelay == 0 {
		opts.ChunkDelay = DefaultChunkDelay
	}
	if opts.Sleep == nil {
		opts.Sleep = shared.Sleep
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Processor{
		matcher: opts.Matcher,
		store:   opts.Store,
		delay:   max(opts.ChunkDelay, 0),
		sleep:   opts.Sleep,
		logger:  opts.Logger,
	}
}

// ProcessInChunks matches every track from the start. See [Processor.Resume].
func (p *Processor) ProcessInChunks(ctx context.Context, tracks []string, chunkSize int, updates chan<- ProgressUpdate) ([]string, error) {
	return p.Resume(ctx, tracks, nil, 0, chunkSize, updates)
}

// Resume continues matching at tracks[processed:], appending to the ids already matched.
//
// The result keeps source order and omits unmatched tracks. After each chunk the
// checkpoint holds the tracks, the ids so far and the processed offset. On
// cancellation the ids matched so far are returned with ctx.Err(), and the
// checkpoint stops before the interrupted track.
func (p *Processor) Resume(ctx context.Context, tracks, matched []string, processed, chunkSize int, updates chan<- ProgressUpdate) ([]string, error) {
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}
	processed = min(max(processed, 0), len(tracks))

	out := make([]string, 0, len(matched)+len(tracks)-processed)
	out = append(out, matched...)

	total := len(tracks)
	chunks := (total - processed + chunkSize - 1) / chunkSize
	p.logger.Info("matching tracks", "total", total, "start", processed, "chunk_size", chunkSize, "chunks", chunks)

	for start := processed; start < total; start += chunkSize {
		end := min(start+chunkSize, total)

		for i := start; i < end; i++ {
			if err := ctx.Err(); err != nil {
				return out, err
			}

			id, ok := p.matcher.Match(ctx, tracks[i])
			if err := ctx.Err(); err != nil {
				// tracks[i] was interrupted, not missed; it is matched again on resume.
				p.checkpoint(tracks, out, i)
				return out, err
			}
			if ok {
				out = append(out, id)
			}
			sendProgress(updates, matchTrackUpdate(i+1, total, tracks[i], ok))
		}

		p.checkpoint(tracks, out, end)
		sendProgress(updates, checkpointUpdate(end, total, len(out)))

		if end < total && p.delay > 0 {
			if err := p.sleep(ctx, p.delay); err != nil {
				return out, err
			}
		}
	}

	p.logger.Info("matching complete", "tracks", total, "matched", len(out))
	return out, nil
}

func (p *Processor) checkpoint(tracks, ids []string, processed int) {
	if p.store == nil {
		return
	}
	err := p.store.Save(progress.Checkpoint{
		Tracks:    tracks,
		VideoIDs:  ids,
		Processed: processed,
	})
	if err != nil {
		p.logger.Error("failed to save checkpoint", "processed", processed, "error", err)
	}
}
