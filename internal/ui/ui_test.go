package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spyt/internal/tasks"
)

const playlistURL = "https://open.spotify.com/playlist/ABC123"

type fakeCatalog struct {
	tracks []string
	err    error
}

func (f *fakeCatalog) FetchTracks(context.Context, string) ([]string, error) {
	return f.tracks, f.err
}

type fakeConverter struct {
	opts   tasks.RunOptions
	result *tasks.RunResult
	err    error
}

func (f *fakeConverter) Run(ctx context.Context, opts tasks.RunOptions, updates chan<- tasks.ProgressUpdate) (*tasks.RunResult, error) {
	f.opts = opts
	updates <- tasks.ProgressUpdate{Phase: tasks.Milestone, Step: 50, Total: 100, Message: "50% complete"}
	updates <- tasks.ProgressUpdate{Phase: tasks.AddVideos, Step: 1, Total: 2, Message: "[1/2] ✓ vid1"}
	return f.result, f.err
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func enter() tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyEnter}
}

func update(t *testing.T, m *Model, msg tea.Msg) tea.Cmd {
	t.Helper()
	_, cmd := m.Update(msg)
	return cmd
}

// runConversion drains progress messages until the conversion completes.
func runConversion(t *testing.T, m *Model) {
	t.Helper()
	cmd := m.waitForProgress()
	for range 10 {
		msg := cmd()
		cmd = update(t, m, msg)
		if m.view == ResultView {
			return
		}
	}
	t.Fatal("conversion did not complete")
}

func newTestModel(catalog *fakeCatalog, conv *fakeConverter, canResume bool) *Model {
	return NewModel(context.Background(), ModelOpts{
		Catalog:   catalog,
		Converter: conv,
		URL:       playlistURL,
		Title:     "Road Trip",
		CanResume: canResume,
	})
}

func TestModel(t *testing.T) {
	t.Run("rejects invalid playlist urls", func(t *testing.T) {
		m := newTestModel(&fakeCatalog{}, &fakeConverter{}, false)
		m.input.SetValue("not a url")

		if cmd := update(t, m, enter()); cmd != nil {
			t.Error("expected no fetch for an invalid url")
		}
		if m.view != InputView || m.err == nil {
			t.Errorf("expected input view with error, got view=%d err=%v", m.view, m.err)
		}
		if !strings.Contains(m.View(), "Error") {
			t.Error("expected error to be rendered")
		}
	})

	t.Run("full flow from url to result", func(t *testing.T) {
		conv := &fakeConverter{result: &tasks.RunResult{
			PlaylistID:   "PL1",
			PlaylistURL:  "https://www.youtube.com/playlist?list=PL1",
			TrackCount:   3,
			MatchedCount: 2,
			Added:        2,
		}}
		m := newTestModel(&fakeCatalog{tracks: []string{"a b", "c d", "e f"}}, conv, false)

		cmd := update(t, m, enter())
		if cmd == nil {
			t.Fatal("expected a fetch command")
		}
		update(t, m, cmd())
		if m.view != TrackListView || len(m.trackList.Items()) != 3 {
			t.Fatalf("expected track list with 3 items, got view=%d", m.view)
		}

		update(t, m, enter())
		if m.view != ConfirmView || !strings.Contains(m.View(), "Road Trip") {
			t.Fatalf("expected confirm view naming the playlist, got %q", m.View())
		}

		update(t, m, keyRunes("y"))
		if m.view != ConvertView {
			t.Fatalf("expected convert view, got %d", m.view)
		}
		runConversion(t, m)

		if len(conv.opts.Tracks) != 3 || conv.opts.Resume || conv.opts.PlaylistURL != playlistURL {
			t.Errorf("unexpected run options %+v", conv.opts)
		}
		if m.percent != 0.5 || len(m.log) != 2 {
			t.Errorf("expected recorded progress, got percent=%v log=%v", m.percent, m.log)
		}
		if view := m.View(); !strings.Contains(view, "Conversion Complete") || !strings.Contains(view, "Added: 2") {
			t.Errorf("unexpected result view %q", view)
		}
	})

	t.Run("fetch errors return to input", func(t *testing.T) {
		m := newTestModel(&fakeCatalog{err: errors.New("playlist not found")}, &fakeConverter{}, false)

		cmd := update(t, m, enter())
		update(t, m, cmd())
		if m.view != InputView || !strings.Contains(m.View(), "playlist not found") {
			t.Errorf("expected input view with fetch error, got %q", m.View())
		}
	})

	t.Run("resume skips the track preview", func(t *testing.T) {
		conv := &fakeConverter{result: &tasks.RunResult{Added: 1, Deferred: []string{"vid9"}}}
		m := newTestModel(&fakeCatalog{}, conv, true)

		update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
		if m.view != ConfirmView || !strings.Contains(m.View(), "Resume") {
			t.Fatalf("expected resume confirmation, got %q", m.View())
		}

		update(t, m, keyRunes("y"))
		runConversion(t, m)

		if !conv.opts.Resume || conv.opts.Tracks != nil {
			t.Errorf("expected a resume run without tracks, got %+v", conv.opts)
		}
		if !strings.Contains(m.View(), "deferred") {
			t.Errorf("expected deferred notice, got %q", m.View())
		}
	})

	t.Run("resume without a checkpoint", func(t *testing.T) {
		m := newTestModel(&fakeCatalog{}, &fakeConverter{}, false)

		update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
		if m.view != InputView || m.err == nil {
			t.Errorf("expected error in input view, got view=%d err=%v", m.view, m.err)
		}
	})

	t.Run("failed conversion offers resume", func(t *testing.T) {
		conv := &fakeConverter{
			result: &tasks.RunResult{PlaylistID: "PL1", PlaylistURL: "https://www.youtube.com/playlist?list=PL1"},
			err:    context.Canceled,
		}
		m := newTestModel(&fakeCatalog{}, conv, true)

		update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
		update(t, m, keyRunes("y"))
		runConversion(t, m)

		view := m.View()
		if !strings.Contains(view, "Conversion stopped") || !strings.Contains(view, "list=PL1") {
			t.Errorf("unexpected failure view %q", view)
		}
	})

	t.Run("convert another resets state", func(t *testing.T) {
		conv := &fakeConverter{result: &tasks.RunResult{Added: 1}}
		m := newTestModel(&fakeCatalog{}, conv, true)

		update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
		update(t, m, keyRunes("y"))
		runConversion(t, m)
		update(t, m, keyRunes("r"))

		if m.view != InputView || m.result != nil || m.opts.CanResume || m.input.Value() != "" {
			t.Errorf("expected a clean input view, got view=%d result=%v", m.view, m.result)
		}
	})

	t.Run("confirm can go back", func(t *testing.T) {
		m := newTestModel(&fakeCatalog{tracks: []string{"a"}}, &fakeConverter{}, false)

		cmd := update(t, m, enter())
		update(t, m, cmd())
		update(t, m, enter())
		update(t, m, keyRunes("n"))
		if m.view != TrackListView {
			t.Errorf("expected track list after declining, got %d", m.view)
		}

		update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
		if m.view != InputView {
			t.Errorf("expected input view after esc, got %d", m.view)
		}
	})
}

func TestTrackItems(t *testing.T) {
	items := trackItems([]string{"Song A Artist", "Song B Artist"})
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	item := items[1].(trackItem)
	if item.Title() != "Song B Artist" || item.FilterValue() != "Song B Artist" || item.Description() != "track 2" {
		t.Errorf("unexpected item %+v", item)
	}
}
