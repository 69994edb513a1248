// package services defines clients for the HTTP APIs a conversion talks to
//
// Spotify (catalog), the public search proxy (matching), YouTube Data API (writes)
package services

import (
	"context"
	"net/http"
	"time"
)

// Catalog reads a public source playlist and turns each track into a search query.
type Catalog interface {
	// FetchTracks returns one "{title} {artists}" query per usable track, in playlist order.
	FetchTracks(ctx context.Context, playlistURL string) ([]string, error)
}

// Searcher runs an unmetered free-text video search.
type Searcher interface {
	// Search returns candidate video ids ordered by relevance. An empty slice is not an error.
	Search(ctx context.Context, query string) ([]string, error)
}

// PlaylistAPI is the quota-metered subset of the YouTube Data API used for writes.
type PlaylistAPI interface {
	// CreatePlaylist inserts a new playlist and returns its id.
	CreatePlaylist(ctx context.Context, title, description, privacy string) (string, error)

	// InsertItem appends a video to a playlist.
	// Quota rejections are reported as [shared.ErrQuotaExceeded].
	InsertItem(ctx context.Context, playlistID, videoID string) error
}

// Authenticator reports whether an authorized YouTube session is available.
type Authenticator interface {
	IsAuthenticated() bool
}

// Track is the minimal view of a source track needed to build a query.
type Track struct {
	Name    string
	Artists []string
}

// PlaylistURL returns the public YouTube URL for a playlist id.
func PlaylistURL(id string) string {
	return "https://www.youtube.com/playlist?list=" + id
}

// NewHTTPClient returns an [http.Client] with the given timeout, or a 30 second default.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
