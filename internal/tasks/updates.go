package tasks

import (
	"fmt"
	"time"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchTracks Phase = iota
	MatchTracks
	SaveCheckpoint
	CreatePlaylist
	AddVideos
	WaitQuota
	Milestone
)

func (p Phase) String() string {
	switch p {
	case FetchTracks:
		return "fetch_tracks"
	case MatchTracks:
		return "match_tracks"
	case SaveCheckpoint:
		return "save_checkpoint"
	case CreatePlaylist:
		return "create_playlist"
	case AddVideos:
		return "add_videos"
	case WaitQuota:
		return "wait_quota"
	case Milestone:
		return "milestone"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchingTracksUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    0,
		Total:   1,
		Message: "Fetching tracks from Spotify...",
	}
}

func fetchedTracksUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d tracks", count),
		Data:    count,
	}
}

func matchTrackUpdate(step, total int, query string, matched bool) ProgressUpdate {
	mark := "✓"
	if !matched {
		mark = "✗"
	}
	return ProgressUpdate{
		Phase:   MatchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s", step, total, mark, query),
	}
}

func checkpointUpdate(processed, total, matched int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveCheckpoint,
		Step:    processed,
		Total:   total,
		Message: fmt.Sprintf("Checkpoint saved: %d/%d tracks processed, %d matched", processed, total, matched),
	}
}

func creatingPlaylistUpdate(title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Creating YouTube playlist %q...", title),
	}
}

func createdPlaylistUpdate(id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created (ID: %s)", id),
		Data:    id,
	}
}

func addVideoUpdate(step, total int, videoID string, err error) ProgressUpdate {
	if err != nil {
		return ProgressUpdate{
			Phase:   AddVideos,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, videoID, err),
		}
	}
	return ProgressUpdate{
		Phase:   AddVideos,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, videoID),
	}
}

func deferredUpdate(today, deferred int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddVideos,
		Step:    0,
		Total:   today,
		Message: fmt.Sprintf("Quota allows %d videos today; %d deferred to a later run", today, deferred),
		Data:    deferred,
	}
}

func waitQuotaUpdate(resetAt time.Time) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WaitQuota,
		Message: fmt.Sprintf("Daily quota exhausted; waiting until %s", resetAt.Format(time.Kitchen)),
		Data:    resetAt,
	}
}

func milestoneUpdate(percent int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Milestone,
		Step:    percent,
		Total:   100,
		Message: fmt.Sprintf("%d%% complete", percent),
	}
}
