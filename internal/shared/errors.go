package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrCredentialsMissing = fmt.Errorf("credentials missing")
	ErrCredentialsInvalid = fmt.Errorf("credentials invalid")

	// Authentication errors
	ErrAuthenticationRequired = fmt.Errorf("authentication required")
	ErrAuthFailed             = fmt.Errorf("authentication failed")
	ErrTimeout                = fmt.Errorf("operation timed out")

	// Source catalog errors
	ErrInvalidURL          = fmt.Errorf("invalid playlist URL")
	ErrEmptyPlaylist       = fmt.Errorf("no tracks found in playlist")
	ErrPlaylistNotFound    = fmt.Errorf("playlist not found or not public")
	ErrUpstreamUnavailable = fmt.Errorf("upstream service unavailable")

	// Destination and quota errors
	ErrQuotaExceeded      = fmt.Errorf("daily quota exceeded")
	ErrQuotaUnsatisfiable = fmt.Errorf("operation cost exceeds daily quota")
	ErrInsertFailed       = fmt.Errorf("failed to add video to playlist")
	ErrNoMatches          = fmt.Errorf("no tracks could be matched")
	ErrSearchFailed       = fmt.Errorf("search request failed")

	// Persistence errors
	ErrRunNotFound = fmt.Errorf("run not found")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// InsertError records a video that could not be added after all retries.
type InsertError struct {
	VideoID string
	Err     error
}

func (e *InsertError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrInsertFailed, e.VideoID, e.Err)
}

func (e *InsertError) Unwrap() []error {
	return []error{ErrInsertFailed, e.Err}
}
