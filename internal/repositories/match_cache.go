package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MatchCache persists query → video id results so a rerun skips searches it already made.
//
// An empty video id is a remembered "no match".
type MatchCache struct {
	db *sql.DB
}

// NewMatchCache creates a new MatchCache with the given database connection
func NewMatchCache(db *sql.DB) *MatchCache {
	return &MatchCache{db: db}
}

// GetMatch returns the cached video id for query and whether an entry exists.
func (c *MatchCache) GetMatch(ctx context.Context, query string) (string, bool, error) {
	var videoID string
	err := c.db.QueryRowContext(ctx, "SELECT video_id FROM match_cache WHERE query = ?", query).Scan(&videoID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read match cache: %w", err)
	}
	return videoID, true, nil
}

// PutMatch stores or replaces the entry for query.
func (c *MatchCache) PutMatch(ctx context.Context, query, videoID string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO match_cache (query, video_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(query) DO UPDATE SET video_id = excluded.video_id, created_at = excluded.created_at
	`, query, videoID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to write match cache: %w", err)
	}
	return nil
}

// Count returns the number of cached queries.
func (c *MatchCache) Count() (int, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM match_cache").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count match cache: %w", err)
	}
	return n, nil
}

// Clear removes every cached entry and returns how many were deleted.
func (c *MatchCache) Clear() (int64, error) {
	result, err := c.db.Exec("DELETE FROM match_cache")
	if err != nil {
		return 0, fmt.Errorf("failed to clear match cache: %w", err)
	}
	return result.RowsAffected()
}
