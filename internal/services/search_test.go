package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/spyt/internal/shared"
)

func newTestSearchClient(url string, failures int) *SearchClient {
	return NewSearchClient(SearchOpts{
		BaseURL:         url,
		RateLimit:       1000,
		BreakerFailures: failures,
		Logger:          shared.NewLogger(&nopWriter{}),
	})
}

func TestSearchClient(t *testing.T) {
	t.Run("NewSearchClient", func(t *testing.T) {
		t.Run("creates client with default URL", func(t *testing.T) {
			if c := NewSearchClient(SearchOpts{}); c.baseURL != defaultSearchBaseURL {
				t.Errorf("expected baseURL to be %s, got %s", defaultSearchBaseURL, c.baseURL)
			} else if c.filter != "videos" {
				t.Errorf("expected default filter videos, got %s", c.filter)
			}
		})

		t.Run("creates client with custom URL", func(t *testing.T) {
			if c := NewSearchClient(SearchOpts{BaseURL: "http://localhost:9000"}); c.baseURL != "http://localhost:9000" {
				t.Errorf("expected custom baseURL, got %s", c.baseURL)
			}
		})
	})

	t.Run("Search returns ids in order", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/search" {
				t.Errorf("expected path /api/search, got %s", r.URL.Path)
			}
			if q := r.URL.Query().Get("q"); q != "Song Artist, Other" {
				t.Errorf("expected query to round-trip, got %q", q)
			}
			if f := r.URL.Query().Get("filter"); f != "videos" {
				t.Errorf("expected filter videos, got %q", f)
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode([]SearchResult{
				{VideoID: "first", Title: "Official Audio"},
				{VideoID: "", Title: "channel result"},
				{VideoID: "second", Title: "Music Video"},
			})
		}))
		defer server.Close()

		ids, err := newTestSearchClient(server.URL, 5).Search(context.Background(), "Song Artist, Other")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(ids, []string{"first", "second"}) {
			t.Errorf("unexpected ids %v", ids)
		}
	})

	t.Run("Search returns empty slice for no results", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("[]"))
		}))
		defer server.Close()

		ids, err := newTestSearchClient(server.URL, 5).Search(context.Background(), "nothing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(ids) != 0 {
			t.Errorf("expected no ids, got %v", ids)
		}
	})

	t.Run("Search wraps proxy errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"detail": "upstream timeout"}`))
		}))
		defer server.Close()

		_, err := newTestSearchClient(server.URL, 5).Search(context.Background(), "q")
		if !errors.Is(err, shared.ErrSearchFailed) {
			t.Fatalf("expected ErrSearchFailed, got %v", err)
		}
	})

	t.Run("breaker opens after consecutive failures", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := newTestSearchClient(server.URL, 2)
		for range 4 {
			if _, err := client.Search(context.Background(), "q"); err == nil {
				t.Fatal("expected error")
			}
		}

		if n := atomic.LoadInt32(&calls); n != 2 {
			t.Errorf("expected breaker to stop requests after 2 failures, got %d", n)
		}
		if client.BreakerState() != "open" {
			t.Errorf("expected open breaker, got %s", client.BreakerState())
		}
	})

	t.Run("Search honours cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := newTestSearchClient("http://127.0.0.1:1", 5).Search(ctx, "q"); err == nil {
			t.Error("expected error for cancelled context")
		}
	})

	t.Run("Health", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/health" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write([]byte(`{"status": "ok"}`))
		}))
		defer server.Close()

		if err := newTestSearchClient(server.URL, 5).Health(context.Background()); err != nil {
			t.Errorf("expected healthy proxy, got %v", err)
		}
		if err := newTestSearchClient("http://127.0.0.1:1", 5).Health(context.Background()); !errors.Is(err, shared.ErrUpstreamUnavailable) {
			t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
		}
	})
}

func TestPlaylistURL(t *testing.T) {
	if got := PlaylistURL("PL123"); got != "https://www.youtube.com/playlist?list=PL123" {
		t.Errorf("unexpected url %s", got)
	}
}
