// Spotify catalog [Catalog] implementation
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spyt/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const spotifyPageSize = 100

var (
	playlistURLPattern = regexp.MustCompile(`open\.spotify\.com/playlist/([a-zA-Z0-9]+)`)
	playlistURIPattern = regexp.MustCompile(`^spotify:playlist:([a-zA-Z0-9]+)$`)
)

// ExtractPlaylistID parses a playlist id from an open.spotify.com URL or a spotify:playlist: URI.
func ExtractPlaylistID(playlistURL string) (string, error) {
	playlistURL = strings.TrimSpace(playlistURL)
	if m := playlistURLPattern.FindStringSubmatch(playlistURL); m != nil {
		return m[1], nil
	}
	if m := playlistURIPattern.FindStringSubmatch(playlistURL); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: %q", shared.ErrInvalidURL, playlistURL)
}

// BuildQuery formats a track as "{name} {artist1, artist2}".
func BuildQuery(t Track) string {
	return fmt.Sprintf("%s %s", t.Name, strings.Join(t.Artists, ", "))
}

// trackFromSpotify converts a playlist entry, reporting false for entries that cannot be searched.
func trackFromSpotify(ft spotify.FullTrack) (Track, bool) {
	if strings.TrimSpace(ft.Name) == "" || len(ft.Artists) == 0 {
		return Track{}, false
	}

	artists := make([]string, 0, len(ft.Artists))
	for _, a := range ft.Artists {
		if a.Name != "" {
			artists = append(artists, a.Name)
		}
	}
	if len(artists) == 0 {
		return Track{}, false
	}
	return Track{Name: ft.Name, Artists: artists}, true
}

// SpotifyOpts configures a [SpotifyCatalog].
type SpotifyOpts struct {
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client // base client for token and API calls
	BaseURL      string       // API base, e.g. "https://api.spotify.com/v1/"
	TokenURL     string
	Retry        shared.RetryPolicy
	Sleep        shared.Sleeper
	Logger       *log.Logger
}

// SpotifyCatalog reads public playlists with client-credentials access.
type SpotifyCatalog struct {
	client *spotify.Client
	retry  shared.RetryPolicy
	sleep  shared.Sleeper
	logger *log.Logger
}

// NewSpotifyCatalog creates a catalog client. Missing credentials yield [shared.ErrCredentialsMissing].
func NewSpotifyCatalog(opts SpotifyOpts) (*SpotifyCatalog, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client id and secret are required", shared.ErrCredentialsMissing)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = NewHTTPClient(0)
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyauth.TokenURL
	}
	if opts.Retry.Attempts <= 0 {
		opts.Retry = shared.RetryPolicy{Attempts: 3, BaseDelay: 2 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	conf := &clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     opts.TokenURL,
	}

	// The context only carries the base client used for token requests.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, opts.HTTPClient)
	httpClient := conf.Client(tokenCtx)
	httpClient.Timeout = opts.HTTPClient.Timeout

	var clientOpts []spotify.ClientOption
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, spotify.WithBaseURL(opts.BaseURL))
	}

	return &SpotifyCatalog{
		client: spotify.New(httpClient, clientOpts...),
		retry:  opts.Retry,
		sleep:  opts.Sleep,
		logger: opts.Logger,
	}, nil
}

// FetchTracks reads every page of the playlist and returns one query per usable track.
//
// Tracks without a name or artists (removed tracks, podcast episodes) are skipped.
func (s *SpotifyCatalog) FetchTracks(ctx context.Context, playlistURL string) ([]string, error) {
	id, err := ExtractPlaylistID(playlistURL)
	if err != nil {
		return nil, err
	}

	tracks, err := s.fetchAll(ctx, spotify.ID(id))
	if err != nil {
		return nil, err
	}

	queries := make([]string, 0, len(tracks))
	skipped := 0
	for _, pt := range tracks {
		t, ok := trackFromSpotify(pt.Track)
		if !ok {
			skipped++
			continue
		}
		queries = append(queries, BuildQuery(t))
	}

	s.logger.Info("fetched playlist", "id", id, "tracks", len(queries), "skipped", skipped)
	if len(queries) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrEmptyPlaylist, id)
	}
	return queries, nil
}

// fetchAll pages through the playlist with offset paging, retrying each page.
func (s *SpotifyCatalog) fetchAll(ctx context.Context, id spotify.ID) ([]spotify.PlaylistTrack, error) {
	var all []spotify.PlaylistTrack
	offset := 0

	for {
		var page *spotify.PlaylistTrackPage
		err := shared.WithRetry(ctx, s.logger, s.retry, s.sleep, func() error {
			var err error
			page, err = s.client.GetPlaylistTracks(ctx, id, spotify.Limit(spotifyPageSize), spotify.Offset(offset))
			if status := spotifyStatus(err); status >= 400 && status < 500 && status != http.StatusTooManyRequests {
				return shared.Permanent(err)
			}
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			return nil, classifySpotifyError(id, err)
		}

		all = append(all, page.Tracks...)
		offset += len(page.Tracks)

		if len(page.Tracks) < spotifyPageSize || (page.Total > 0 && offset >= int(page.Total)) {
			break
		}
	}

	return all, nil
}

// spotifyStatus returns the HTTP status carried by a Spotify API or token error, or 0.
func spotifyStatus(err error) int {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	var apiErrPtr *spotify.Error
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Status
	}
	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) && tokenErr.Response != nil {
		return tokenErr.Response.StatusCode
	}
	return 0
}

func classifySpotifyError(id spotify.ID, err error) error {
	switch status := spotifyStatus(err); {
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: spotify playlist %s: %v", shared.ErrPlaylistNotFound, id, err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: spotify: %v", shared.ErrCredentialsInvalid, err)
	default:
		return fmt.Errorf("%w: spotify playlist %s: %v", shared.ErrUpstreamUnavailable, id, err)
	}
}

// Verify checks the credentials with a one-result search.
func (s *SpotifyCatalog) Verify(ctx context.Context) error {
	if _, err := s.client.Search(ctx, "test", spotify.SearchTypeTrack, spotify.Limit(1)); err != nil {
		return fmt.Errorf("%w: spotify: %v", shared.ErrCredentialsInvalid, err)
	}
	return nil
}
