package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/spyt/internal/models"
	"github.com/desertthunder/spyt/internal/shared"
)

const runColumns = `
	id, sequence, source_url, playlist_id, title, status, track_count,
	matched_count, added_count, deferred_count, failed_ids, error_message,
	created_at, updated_at, deleted_at
`

// RunRepository implements models.Repository[*models.Run] for conversion history.
//
// Handles run CRUD operations with soft delete support and status-based queries.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run into the database with generated ID and sequence
func (r *RunRepository) Create(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	run.SetID(id)
	run.SetSequence(sequence)

	query := `
		INSERT INTO runs (
			id, sequence, source_url, playlist_id, title, status, track_count,
			matched_count, added_count, deferred_count, failed_ids, error_message,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		run.SourceURL(),
		nullable(run.PlaylistID()),
		run.Title(),
		string(run.Status()),
		run.TrackCount(),
		run.MatchedCount(),
		run.AddedCount(),
		run.DeferredCount(),
		joinIDs(run.FailedIDs()),
		nullable(run.ErrorMessage()),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *RunRepository) Get(id string) (*models.Run, error) {
	query := "SELECT " + runColumns + " FROM runs WHERE id = ? AND deleted_at IS NULL"
	return r.scan(r.db.QueryRow(query, id))
}

// Latest returns the most recent run, or [shared.ErrRunNotFound] when there is none.
func (r *RunRepository) Latest() (*models.Run, error) {
	query := "SELECT " + runColumns + " FROM runs WHERE deleted_at IS NULL ORDER BY sequence DESC LIMIT 1"
	return r.scan(r.db.QueryRow(query))
}

// Update modifies an existing run in the database
func (r *RunRepository) Update(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	query := `
		UPDATE runs
		SET playlist_id = ?, title = ?, status = ?, track_count = ?,
			matched_count = ?, added_count = ?, deferred_count = ?,
			failed_ids = ?, error_message = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		nullable(run.PlaylistID()),
		run.Title(),
		string(run.Status()),
		run.TrackCount(),
		run.MatchedCount(),
		run.AddedCount(),
		run.DeferredCount(),
		joinIDs(run.FailedIDs()),
		nullable(run.ErrorMessage()),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	return checkAffected(result, run.ID())
}

// Delete soft-deletes a run by ID
func (r *RunRepository) Delete(id string) error {
	query := `
		UPDATE runs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	return checkAffected(result, id)
}

// List retrieves all runs matching the given criteria, newest first, excluding soft-deleted runs.
//
// Supported criteria: "status" (string), "playlist_id" (string), "limit" (int).
func (r *RunRepository) List(criteria map[string]any) ([]*models.Run, error) {
	query := "SELECT " + runColumns + " FROM runs WHERE deleted_at IS NULL"
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if playlistID, ok := criteria["playlist_id"].(string); ok && playlistID != "" {
		query += " AND playlist_id = ?"
		args = append(args, playlistID)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scan reads one runs row from a [sql.Row] or [sql.Rows]
func (r *RunRepository) scan(row scanner) (*models.Run, error) {
	var (
		id            string
		sequence      int
		sourceURL     string
		playlistID    sql.NullString
		title         string
		status        string
		trackCount    int
		matchedCount  int
		addedCount    int
		deferredCount int
		failedIDs     string
		errorMessage  sql.NullString
		createdAt     time.Time
		updatedAt     time.Time
		deletedAt     sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &sourceURL, &playlistID, &title, &status, &trackCount,
		&matchedCount, &addedCount, &deferredCount, &failedIDs, &errorMessage,
		&createdAt, &updatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run := models.NewRun(sequence, sourceURL, title)
	run.SetID(id)
	run.SetStatus(models.RunStatus(status))
	run.SetTrackCount(trackCount)
	run.SetMatchedCount(matchedCount)
	run.SetAddedCount(addedCount)
	run.SetDeferredCount(deferredCount)
	run.SetFailedIDs(splitIDs(failedIDs))
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)

	if playlistID.Valid {
		run.SetPlaylistID(playlistID.String)
	}
	if errorMessage.Valid {
		run.SetErrorMessage(errorMessage.String)
	}
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}

func checkAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Video ids never contain commas, so the failed list is stored comma separated.
func joinIDs(ids []string) string {
	return strings.Join(ids, ",")
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
