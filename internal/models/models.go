// package models defines the persisted records of the converter
package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// RunStatus is the lifecycle state of a conversion run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunDeferred  RunStatus = "deferred" // finished for today, inserts waiting on quota
	RunStopped   RunStatus = "stopped"  // interrupted, checkpoint on disk
	RunFailed    RunStatus = "failed"
)

// Valid reports whether s is a known status.
func (s RunStatus) Valid() bool {
	switch s {
	case RunPending, RunRunning, RunCompleted, RunDeferred, RunStopped, RunFailed:
		return true
	}
	return false
}

// Done reports whether the run will not make further progress without a resume.
func (s RunStatus) Done() bool {
	return s == RunCompleted || s == RunFailed
}

// Run is the history record of one conversion attempt.
type Run struct {
	id            string
	sequence      int
	sourceURL     string
	playlistID    string
	title         string
	status        RunStatus
	trackCount    int
	matchedCount  int
	addedCount    int
	deferredCount int
	failedIDs     []string
	errorMessage  string
	createdAt     time.Time
	updatedAt     time.Time
	deletedAt     *time.Time
}

// NewRun creates a pending run for a source playlist URL.
func NewRun(sequence int, sourceURL, title string) *Run {
	now := time.Now()
	return &Run{
		sequence:  sequence,
		sourceURL: sourceURL,
		title:     title,
		status:    RunPending,
		createdAt: now,
		updatedAt: now,
	}
}

func (r *Run) ID() string { return r.id }
func (r *Run) Sequence() int { return r.sequence }
func (r *Run) SourceURL() string { return r.sourceURL }
func (r *Run) PlaylistID() string { return r.playlistID }
func (r *Run) Title() string { return r.title }
func (r *Run) Status() RunStatus { return r.status }
func (r *Run) TrackCount() int { return r.trackCount }
func (r *Run) MatchedCount() int { return r.matchedCount }
func (r *Run) AddedCount() int { return r.addedCount }
func (r *Run) DeferredCount() int { return r.deferredCount }
func (r *Run) FailedIDs() []string { return r.failedIDs }
func (r *Run) ErrorMessage() string { return r.errorMessage }
func (r *Run) CreatedAt() time.Time { return r.createdAt }
func (r *Run) UpdatedAt() time.Time { return r.updatedAt }
func (r *Run) DeletedAt() *time.Time { return r.deletedAt }

func (r *Run) SetID(id string) { r.id = id }
func (r *Run) SetSequence(seq int) { r.sequence = seq }
func (r *Run) SetPlaylistID(id string) { r.playlistID = id }
func (r *Run) SetTitle(title string) { r.title = title }
func (r *Run) SetStatus(status RunStatus) { r.status = status }
func (r *Run) SetTrackCount(n int) { r.trackCount = n }
func (r *Run) SetMatchedCount(n int) { r.matchedCount = n }
func (r *Run) SetAddedCount(n int) { r.addedCount = n }
func (r *Run) SetDeferredCount(n int) { r.deferredCount = n }
func (r *Run) SetFailedIDs(ids []string) { r.failedIDs = ids }
func (r *Run) SetErrorMessage(msg string) { r.errorMessage = msg }
func (r *Run) SetCreatedAt(t time.Time) { r.createdAt = t }
func (r *Run) SetUpdatedAt(t time.Time) { r.updatedAt = t }
func (r *Run) SetDeletedAt(t *time.Time) { r.deletedAt = t }

// FailedCount is the number of videos that could not be inserted.
func (r *Run) FailedCount() int { return len(r.failedIDs) }

// Fail marks the run failed with err's message.
func (r *Run) Fail(err error) {
	r.status = RunFailed
	if err != nil {
		r.errorMessage = err.Error()
	}
}

// Validate checks the status and count consistency.
func (r *Run) Validate() error {
	if !r.status.Valid() {
		return fmt.Errorf("invalid run status: %q", r.status)
	}
	if r.trackCount < 0 || r.matchedCount < 0 || r.addedCount < 0 || r.deferredCount < 0 {
		return fmt.Errorf("run counts must not be negative")
	}
	if r.trackCount > 0 && r.matchedCount > r.trackCount {
		return fmt.Errorf("matched count %d exceeds track count %d", r.matchedCount, r.trackCount)
	}
	return nil
}
