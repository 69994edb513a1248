package repositories

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"testing"

	"github.com/desertthunder/spyt/internal/models"
	"github.com/desertthunder/spyt/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "runs")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for table without a sequence")
	}
}

func TestRunRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := models.NewRun(0, "https://open.spotify.com/playlist/ABC123", "Road Trip")

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if run.ID() == "" {
			t.Error("run ID should be set after creation")
		}
		if run.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", run.Sequence())
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := models.NewRun(0, "https://open.spotify.com/playlist/ABC123", "Road Trip")
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		retrieved, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}

		if retrieved.SourceURL() != run.SourceURL() {
			t.Errorf("expected source url %s, got %s", run.SourceURL(), retrieved.SourceURL())
		}
		if retrieved.Status() != models.RunPending {
			t.Errorf("expected pending status, got %s", retrieved.Status())
		}
		if retrieved.PlaylistID() != "" || retrieved.FailedIDs() != nil {
			t.Errorf("expected empty playlist id and failed ids, got %q %v", retrieved.PlaylistID(), retrieved.FailedIDs())
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := models.NewRun(0, "https://open.spotify.com/playlist/ABC123", "Road Trip")
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		run.SetPlaylistID("PL123")
		run.SetStatus(models.RunDeferred)
		run.SetTrackCount(10)
		run.SetMatchedCount(8)
		run.SetAddedCount(5)
		run.SetDeferredCount(2)
		run.SetFailedIDs([]string{"vid1"})

		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		retrieved, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if retrieved.PlaylistID() != "PL123" || retrieved.Status() != models.RunDeferred {
			t.Errorf("unexpected run %s %s", retrieved.PlaylistID(), retrieved.Status())
		}
		if retrieved.AddedCount() != 5 || retrieved.DeferredCount() != 2 || retrieved.MatchedCount() != 8 {
			t.Errorf("unexpected counts added=%d deferred=%d matched=%d", retrieved.AddedCount(), retrieved.DeferredCount(), retrieved.MatchedCount())
		}
		if !slices.Equal(retrieved.FailedIDs(), []string{"vid1"}) {
			t.Errorf("expected failed ids [vid1], got %v", retrieved.FailedIDs())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		run := models.NewRun(0, "https://open.spotify.com/playlist/ABC123", "Road Trip")
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if err := repo.Delete(run.ID()); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}

		if _, err := repo.Get(run.ID()); !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound for deleted run, got %v", err)
		}
		if err := repo.Delete(run.ID()); !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound deleting twice, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		statuses := []models.RunStatus{models.RunCompleted, models.RunFailed, models.RunCompleted}
		for i, status := range statuses {
			run := models.NewRun(0, "https://open.spotify.com/playlist/ABC123", "Run")
			run.SetStatus(status)
			if i == 2 {
				run.SetPlaylistID("PL9")
			}
			if err := repo.Create(run); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
		}

		all, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(all))
		}
		if all[0].Sequence() != 3 {
			t.Errorf("expected newest run first, got sequence %d", all[0].Sequence())
		}

		completed, _ := repo.List(map[string]any{"status": "completed"})
		if len(completed) != 2 {
			t.Errorf("expected 2 completed runs, got %d", len(completed))
		}

		byPlaylist, _ := repo.List(map[string]any{"playlist_id": "PL9"})
		if len(byPlaylist) != 1 {
			t.Errorf("expected 1 run for PL9, got %d", len(byPlaylist))
		}

		limited, _ := repo.List(map[string]any{"limit": 1})
		if len(limited) != 1 {
			t.Errorf("expected limit to apply, got %d", len(limited))
		}
	})

	t.Run("Latest", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		if _, err := repo.Latest(); !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound on empty table, got %v", err)
		}

		first := models.NewRun(0, "a", "First")
		second := models.NewRun(0, "b", "Second")
		repo.Create(first)
		repo.Create(second)

		latest, err := repo.Latest()
		if err != nil {
			t.Fatalf("failed to get latest run: %v", err)
		}
		if latest.ID() != second.ID() {
			t.Errorf("expected latest run %s, got %s", second.ID(), latest.ID())
		}
	})
}

func TestRunRepositoryErrors(t *testing.T) {
	t.Run("Create rejects invalid runs", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		run := models.NewRun(0, "a", "Bad")
		run.SetStatus("exploded")
		if err := NewRunRepository(db).Create(run); err == nil {
			t.Fatal("expected validation error for unknown status")
		}
	})

	t.Run("Get not found", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if _, err := NewRunRepository(db).Get("nonexistent-id"); !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("Update not found", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		run := models.NewRun(0, "a", "Ghost")
		run.SetID("nonexistent-id")
		if err := NewRunRepository(db).Update(run); !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("closed database", func(t *testing.T) {
		db := setupTestDB(t)
		db.Close()

		if err := NewRunRepository(db).Create(models.NewRun(0, "a", "Closed")); err == nil {
			t.Error("expected error on closed database")
		}
		if _, err := NewRunRepository(db).List(nil); err == nil {
			t.Error("expected error listing on closed database")
		}
	})
}

func TestMatchCache(t *testing.T) {
	ctx := context.Background()

	t.Run("miss then hit", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		cache := NewMatchCache(db)
		if _, found, err := cache.GetMatch(ctx, "Song Artist"); err != nil || found {
			t.Fatalf("expected miss, got found=%v err=%v", found, err)
		}

		if err := cache.PutMatch(ctx, "Song Artist", "vid1"); err != nil {
			t.Fatalf("failed to put match: %v", err)
		}

		id, found, err := cache.GetMatch(ctx, "Song Artist")
		if err != nil || !found || id != "vid1" {
			t.Errorf("expected vid1, got %q found=%v err=%v", id, found, err)
		}
	})

	t.Run("remembers no match", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		cache := NewMatchCache(db)
		cache.PutMatch(ctx, "Obscure", "")

		id, found, _ := cache.GetMatch(ctx, "Obscure")
		if !found || id != "" {
			t.Errorf("expected cached empty match, got %q found=%v", id, found)
		}
	})

	t.Run("put replaces and clear empties", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		cache := NewMatchCache(db)
		cache.PutMatch(ctx, "q", "a")
		cache.PutMatch(ctx, "q", "b")
		cache.PutMatch(ctx, "r", "c")

		if id, _, _ := cache.GetMatch(ctx, "q"); id != "b" {
			t.Errorf("expected replaced id b, got %s", id)
		}
		if n, _ := cache.Count(); n != 2 {
			t.Errorf("expected 2 entries, got %d", n)
		}

		deleted, err := cache.Clear()
		if err != nil || deleted != 2 {
			t.Errorf("expected 2 deleted, got %d err=%v", deleted, err)
		}
		if n, _ := cache.Count(); n != 0 {
			t.Errorf("expected empty cache, got %d", n)
		}
	})
}
