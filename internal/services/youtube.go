// YouTube Data API [PlaylistAPI] implementation
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spyt/internal/shared"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

var quotaReasons = map[string]bool{
	"quotaExceeded":      true,
	"dailyLimitExceeded": true,
}

// IsQuotaError reports whether err is a Google API rejection caused by the daily quota.
func IsQuotaError(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code != http.StatusForbidden && gerr.Code != http.StatusTooManyRequests {
		return false
	}
	for _, item := range gerr.Errors {
		if quotaReasons[item.Reason] {
			return true
		}
	}
	return false
}

// mapAPIError converts quota rejections into [shared.ErrQuotaExceeded].
func mapAPIError(err error) error {
	if err == nil {
		return nil
	}
	if IsQuotaError(err) {
		return fmt.Errorf("%w: %v", shared.ErrQuotaExceeded, err)
	}
	return err
}

// YouTubeAPI wraps the YouTube Data API v3 service.
type YouTubeAPI struct {
	svc    *youtube.Service
	logger *log.Logger
}

// NewYouTubeAPI creates a client that sends requests through httpClient,
// which must already carry OAuth credentials. endpoint overrides the API base URL when set.
func NewYouTubeAPI(ctx context.Context, httpClient *http.Client, endpoint string, logger *log.Logger) (*YouTubeAPI, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}
	return &YouTubeAPI{svc: svc, logger: logger}, nil
}

// CreatePlaylist inserts a playlist with the given privacy status and returns its id.
func (y *YouTubeAPI) CreatePlaylist(ctx context.Context, title, description, privacy string) (string, error) {
	if privacy == "" {
		privacy = "private"
	}

	playlist := &youtube.Playlist{
		Snippet: &youtube.PlaylistSnippet{
			Title:       title,
			Description: description,
		},
		Status: &youtube.PlaylistStatus{
			PrivacyStatus: privacy,
		},
	}

	resp, err := y.svc.Playlists.Insert([]string{"snippet", "status"}, playlist).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create playlist: %w", mapAPIError(err))
	}

	y.logger.Info("playlist created", "id", resp.Id, "title", title)
	return resp.Id, nil
}

// InsertItem appends a video to the end of a playlist.
func (y *YouTubeAPI) InsertItem(ctx context.Context, playlistID, videoID string) error {
	item := &youtube.PlaylistItem{
		Snippet: &youtube.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &youtube.ResourceId{
				Kind:    "youtube#video",
				VideoId: videoID,
			},
		},
	}

	if _, err := y.svc.PlaylistItems.Insert([]string{"snippet"}, item).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to insert %s: %w", videoID, mapAPIError(err))
	}
	return nil
}

// Search runs a metered search.list call and returns video ids, most relevant first.
func (y *YouTubeAPI) Search(ctx context.Context, query string) ([]string, error) {
	resp, err := y.svc.Search.List([]string{"id"}).
		Q(query).
		Type("video").
		MaxResults(5).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", shared.ErrSearchFailed, query, mapAPIError(err))
	}

	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			ids = append(ids, item.Id.VideoId)
		}
	}
	return ids, nil
}
