package tasks

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spyt/internal/models"
	"github.com/desertthunder/spyt/internal/progress"
	"github.com/desertthunder/spyt/internal/quota"
	"github.com/desertthunder/spyt/internal/shared"
)

func testLogger() *log.Logger {
	return shared.NewLogger(io.Discard)
}

func noSleep(context.Context, time.Duration) error { return nil }

// fakeSearcher answers from a fixed table and counts calls per query.
type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]string
	errs    map[string]error
	calls   map[string]int
}

func newFakeSearcher(results map[string][]string) *fakeSearcher {
	return &fakeSearcher{results: results, errs: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[query]++
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return f.results[query], nil
}

func (f *fakeSearcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// mapMatcher matches queries from a map without caching.
type mapMatcher map[string]string

func (m mapMatcher) Match(_ context.Context, query string) (string, bool) {
	id, ok := m[query]
	return id, ok
}

// fakePlaylistAPI records inserts. insertErrs yields errors per video id in order.
type fakePlaylistAPI struct {
	mu         sync.Mutex
	created    []string
	createErrs []error
	inserted   []string
	insertErrs map[string][]error
	calls      map[string]int
	onInsert   func(videoID string)
}

func newFakePlaylistAPI() *fakePlaylistAPI {
	return &fakePlaylistAPI{insertErrs: map[string][]error{}, calls: map[string]int{}}
}

func (f *fakePlaylistAPI) CreatePlaylist(_ context.Context, title, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		return "", err
	}
	f.created = append(f.created, title)
	return "PL" + title, nil
}

func (f *fakePlaylistAPI) InsertItem(ctx context.Context, _, videoID string) error {
	if f.onInsert != nil {
		f.onInsert(videoID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[videoID]++
	if errs := f.insertErrs[videoID]; len(errs) > 0 {
		err := errs[0]
		if len(errs) > 1 {
			f.insertErrs[videoID] = errs[1:]
		}
		if err != nil {
			return err
		}
	}
	f.inserted = append(f.inserted, videoID)
	return nil
}

type fakeAuth bool

func (a fakeAuth) IsAuthenticated() bool { return bool(a) }

type fakeCatalog struct {
	tracks []string
	err    error
	calls  int
}

func (f *fakeCatalog) FetchTracks(context.Context, string) ([]string, error) {
	f.calls++
	return f.tracks, f.err
}

type fakeRecorder struct {
	created []*models.Run
	updates int
}

func (f *fakeRecorder) Create(run *models.Run) error {
	run.SetID("run-1")
	f.created = append(f.created, run)
	return nil
}

func (f *fakeRecorder) Update(*models.Run) error {
	f.updates++
	return nil
}

func newTestStore(t *testing.T) *progress.Store {
	t.Helper()
	return progress.NewStore(filepath.Join(t.TempDir(), "progress.json"), testLogger())
}

// newTestLedger returns a ledger whose waits reset the budget immediately.
func newTestLedger(t *testing.T, limit int) (*quota.Ledger, *int) {
	t.Helper()
	var (
		ledger *quota.Ledger
		waits  int
	)
	ledger = quota.NewLedger(quota.Options{
		Path:       filepath.Join(t.TempDir(), "quota.json"),
		DailyLimit: limit,
		Logger:     testLogger(),
		Sleep: func(ctx context.Context, _ time.Duration) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			waits++
			return ledger.Reset()
		},
	})
	return ledger, &waits
}

var errBoom = errors.New("boom")

func drain(ch chan ProgressUpdate) []ProgressUpdate {
	var out []ProgressUpdate
	for {
		select {
		case u := <-ch:
			out = append(out, u)
		default:
			return out
		}
	}
}
