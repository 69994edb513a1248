// package progress persists the resumable state of a conversion.
//
// A single checkpoint slot lives in a JSON file. Every save replaces the whole
// record atomically, so a crash mid-write leaves the previous checkpoint intact.
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spyt/internal/shared"
)

// Version is the checkpoint schema version written by this package.
const Version = 1

// Checkpoint is the persisted resume point of a conversion.
//
// Tracks holds the full source query list (nil once matching is done and only
// deferred inserts remain). VideoIDs holds matched ids during matching, or the
// ids still waiting to be inserted once a playlist exists. Processed is the
// number of leading tracks already matched.
type Checkpoint struct {
	Version    int       `json:"version"`
	Tracks     []string  `json:"tracks"`
	VideoIDs   []string  `json:"video_ids"`
	Processed  int       `json:"processed"`
	PlaylistID string    `json:"playlist_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// HasPlaylist reports whether a destination playlist was already created.
func (c *Checkpoint) HasPlaylist() bool {
	return c.PlaylistID != ""
}

// MatchingDone reports whether every source track has been matched.
func (c *Checkpoint) MatchingDone() bool {
	return c.Processed >= len(c.Tracks)
}

// Store reads and writes the checkpoint file.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *log.Logger
	now    func() time.Time
}

// NewStore creates a [Store] backed by the file at path.
func NewStore(path string, logger *log.Logger) *Store {
	if path == "" {
		path = "conversion_progress.json"
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Store{path: path, logger: logger, now: time.Now}
}

// Path returns the checkpoint file location.
func (s *Store) Path() string {
	return s.path
}

// Save stamps cp with the current version and time and overwrites the checkpoint.
func (s *Store) Save(cp Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp.Version = Version
	cp.Timestamp = s.now()

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := shared.WriteFileAtomic(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	s.logger.Debug("checkpoint saved", "tracks", len(cp.Tracks), "video_ids", len(cp.VideoIDs), "processed", cp.Processed, "playlist_id", cp.PlaylistID)
	return nil
}

// SaveState stores tracks, matched or pending video ids and an optional playlist id.
func (s *Store) SaveState(tracks, videoIDs []string, playlistID string) error {
	return s.Save(Checkpoint{
		Tracks:     tracks,
		VideoIDs:   videoIDs,
		Processed:  len(tracks),
		PlaylistID: playlistID,
	})
}

// Load returns the stored checkpoint.
//
// A missing, unreadable, corrupt or unknown-version file yields (nil, false).
func (s *Store) Load() (*Checkpoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to read checkpoint", "path", s.path, "error", err)
		}
		return nil, false
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		s.logger.Warn("ignoring corrupt checkpoint", "path", s.path, "error", err)
		return nil, false
	}
	if cp.Version != Version {
		s.logger.Warn("ignoring checkpoint with unknown version", "path", s.path, "version", cp.Version)
		return nil, false
	}

	cp.Processed = min(max(cp.Processed, 0), len(cp.Tracks))
	return &cp, true
}

// Exists reports whether a loadable checkpoint is present.
func (s *Store) Exists() bool {
	_, ok := s.Load()
	return ok
}

// Clear removes the checkpoint. A missing file is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}
	return nil
}
