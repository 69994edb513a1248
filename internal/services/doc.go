// Package services implements the external clients used by a conversion.
//
// # Spotify Catalog
//
// [SpotifyCatalog] reads public playlists with app-level (client credentials) access
// through github.com/zmb3/spotify/v2. Every page fetch is retried with exponential
// backoff; exhausting the retries yields [shared.ErrUpstreamUnavailable].
//
// # Search Proxy
//
// [SearchClient] talks to the FastAPI search proxy (GET /api/search). Searches are not
// charged against the YouTube Data API quota. Calls are rate limited and pass through a
// circuit breaker so a dead proxy fails fast instead of stalling every track.
//
// # YouTube Data API
//
// [YouTubeAPI] creates playlists and inserts items with google.golang.org/api/youtube/v3.
// Quota rejections (quotaExceeded, dailyLimitExceeded) are mapped to [shared.ErrQuotaExceeded].
//
// [YouTubeAuth] owns the OAuth client secret and the persisted token. Refreshed tokens
// are written back to disk as soon as the token source produces them.
//
// # Error Handling
//
// Services use sentinel errors from the shared package:
//   - [shared.ErrInvalidURL] : playlist URL could not be parsed
//   - [shared.ErrEmptyPlaylist] : no usable tracks in the playlist
//   - [shared.ErrUpstreamUnavailable] : Spotify failed after retries
//   - [shared.ErrSearchFailed] : search proxy request failed
//   - [shared.ErrQuotaExceeded] : YouTube rejected a write for quota
//   - [shared.ErrCredentialsMissing], [shared.ErrCredentialsInvalid] : client secret problems
package services
