package progress

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/desertthunder/spyt/internal/shared"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "conversion_progress.json"), shared.NewLogger(&nopWriter{}))
	s.now = func() time.Time { return time.Date(2025, 7, 16, 23, 39, 44, 0, time.UTC) }
	return s
}

func TestStore(t *testing.T) {
	t.Run("Load without a file returns none", func(t *testing.T) {
		s := newTestStore(t)
		if cp, ok := s.Load(); ok || cp != nil {
			t.Errorf("expected no checkpoint, got %+v", cp)
		}
		if s.Exists() {
			t.Error("expected Exists to be false")
		}
	})

	t.Run("Save then Load returns the same state", func(t *testing.T) {
		s := newTestStore(t)
		tracks := []string{"Song A Artist", "Song B Artist, Other"}
		ids := []string{"vid1"}

		if err := s.Save(Checkpoint{Tracks: tracks, VideoIDs: ids, Processed: 1, PlaylistID: "PL1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cp, ok := s.Load()
		if !ok {
			t.Fatal("expected checkpoint to load")
		}
		if !slices.Equal(cp.Tracks, tracks) || !slices.Equal(cp.VideoIDs, ids) {
			t.Errorf("unexpected contents %+v", cp)
		}
		if cp.PlaylistID != "PL1" || cp.Processed != 1 || cp.Version != Version {
			t.Errorf("unexpected metadata %+v", cp)
		}
		if !cp.Timestamp.Equal(s.now()) {
			t.Errorf("expected timestamp %v, got %v", s.now(), cp.Timestamp)
		}
		if !cp.HasPlaylist() || cp.MatchingDone() {
			t.Errorf("unexpected helpers: playlist=%v done=%v", cp.HasPlaylist(), cp.MatchingDone())
		}
	})

	t.Run("SaveState stores deferred ids without tracks", func(t *testing.T) {
		s := newTestStore(t)
		if err := s.SaveState(nil, []string{"v3", "v4"}, "PL9"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cp, ok := s.Load()
		if !ok {
			t.Fatal("expected checkpoint")
		}
		if len(cp.Tracks) != 0 || !slices.Equal(cp.VideoIDs, []string{"v3", "v4"}) || cp.PlaylistID != "PL9" {
			t.Errorf("unexpected checkpoint %+v", cp)
		}
		if !cp.MatchingDone() {
			t.Error("a checkpoint without tracks has nothing left to match")
		}
	})

	t.Run("Save overwrites the single slot", func(t *testing.T) {
		s := newTestStore(t)
		s.SaveState([]string{"a"}, []string{"1"}, "")
		s.SaveState([]string{"b", "c"}, []string{"2"}, "")

		cp, _ := s.Load()
		if !slices.Equal(cp.Tracks, []string{"b", "c"}) {
			t.Errorf("expected latest tracks, got %v", cp.Tracks)
		}
	})

	t.Run("corrupt file is treated as absent", func(t *testing.T) {
		s := newTestStore(t)
		os.WriteFile(s.Path(), []byte(`{"tracks": [`), 0644)

		if _, ok := s.Load(); ok {
			t.Error("expected corrupt checkpoint to be ignored")
		}
	})

	t.Run("unknown version is treated as absent", func(t *testing.T) {
		s := newTestStore(t)
		os.WriteFile(s.Path(), []byte(`{"version": 7, "tracks": ["x"], "video_ids": []}`), 0644)

		if _, ok := s.Load(); ok {
			t.Error("expected unknown version to be ignored")
		}
	})

	t.Run("legacy file without version is treated as absent", func(t *testing.T) {
		s := newTestStore(t)
		os.WriteFile(s.Path(), []byte(`{"tracks": ["x"], "video_ids": ["y"], "playlist_id": null, "timestamp": "2025-07-16T23:39:44"}`), 0644)

		if _, ok := s.Load(); ok {
			t.Error("expected unversioned checkpoint to be ignored")
		}
	})

	t.Run("processed is clamped to the track count", func(t *testing.T) {
		s := newTestStore(t)
		os.WriteFile(s.Path(), []byte(`{"version": 1, "tracks": ["a", "b"], "video_ids": [], "processed": 9}`), 0644)

		cp, ok := s.Load()
		if !ok {
			t.Fatal("expected checkpoint")
		}
		if cp.Processed != 2 {
			t.Errorf("expected processed 2, got %d", cp.Processed)
		}
	})

	t.Run("Clear removes the file and tolerates absence", func(t *testing.T) {
		s := newTestStore(t)
		s.SaveState([]string{"a"}, nil, "")

		if err := s.Clear(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
			t.Error("expected checkpoint file to be removed")
		}
		if err := s.Clear(); err != nil {
			t.Errorf("clearing twice should not fail: %v", err)
		}
	})
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
