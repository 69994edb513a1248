package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spyt/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"
)

// YouTubeAuthOpts configures a [YouTubeAuth].
type YouTubeAuthOpts struct {
	ClientSecretPath string
	TokenPath        string
	RedirectURI      string // overrides the first redirect uri of the client secret
	HTTPClient       *http.Client
	Logger           *log.Logger
}

// YouTubeAuth manages the Google OAuth client and the persisted user token.
type YouTubeAuth struct {
	mu         sync.Mutex
	config     *oauth2.Config
	tokenPath  string
	token      *oauth2.Token
	httpClient *http.Client
	logger     *log.Logger
}

// LoadClientSecret reads and validates an OAuth client descriptor ("web" or "installed").
func LoadClientSecret(path, redirectURI string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: client secret file %s not found", shared.ErrCredentialsMissing, path)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrCredentialsMissing, err)
	}

	config, err := google.ConfigFromJSON(data, youtube.YoutubeForceSslScope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCredentialsInvalid, err)
	}
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client_id and client_secret are required", shared.ErrCredentialsInvalid)
	}

	if redirectURI != "" {
		config.RedirectURL = redirectURI
	}
	if config.RedirectURL == "" {
		return nil, fmt.Errorf("%w: no redirect uri configured", shared.ErrCredentialsInvalid)
	}
	return config, nil
}

// NewYouTubeAuth loads the client secret and any previously saved token.
func NewYouTubeAuth(opts YouTubeAuthOpts) (*YouTubeAuth, error) {
	if opts.TokenPath == "" {
		opts.TokenPath = "token.json"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = NewHTTPClient(0)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	config, err := LoadClientSecret(opts.ClientSecretPath, opts.RedirectURI)
	if err != nil {
		return nil, err
	}

	a := &YouTubeAuth{
		config:     config,
		tokenPath:  opts.TokenPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
	}
	a.token = a.loadToken()
	return a, nil
}

func (a *YouTubeAuth) loadToken() *oauth2.Token {
	data, err := os.ReadFile(a.tokenPath)
	if err != nil {
		return nil
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		a.logger.Warn("ignoring unreadable token file", "path", a.tokenPath, "error", err)
		return nil
	}
	return &tok
}

func (a *YouTubeAuth) saveToken(tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := shared.WriteFileAtomic(a.tokenPath, data, 0600); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Config returns the OAuth client configuration.
func (a *YouTubeAuth) Config() *oauth2.Config {
	return a.config
}

// Token returns the current token, or nil.
func (a *YouTubeAuth) Token() *oauth2.Token {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token
}

// IsAuthenticated reports whether a usable token is present: either still valid or refreshable.
func (a *YouTubeAuth) IsAuthenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token != nil && (a.token.Valid() || a.token.RefreshToken != "")
}

// AuthURL returns the consent page URL requesting offline access.
func (a *YouTubeAuth) AuthURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// SetToken stores tok in memory and on disk.
func (a *YouTubeAuth) SetToken(tok *oauth2.Token) error {
	if tok == nil {
		return fmt.Errorf("%w: empty token", shared.ErrAuthFailed)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.token = tok
	return a.saveToken(tok)
}

// Exchange trades an authorization code for a token and persists it.
func (a *YouTubeAuth) Exchange(ctx context.Context, code string) error {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	tok, err := a.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("%w: token exchange failed: %v", shared.ErrAuthFailed, err)
	}
	a.logger.Info("youtube authorization complete", "token_path", a.tokenPath)
	return a.SetToken(tok)
}

// HandleCallback completes the flow from the full redirect URL pasted by the user.
//
// When expectedState is non-empty the state parameter must match it.
func (a *YouTubeAuth) HandleCallback(ctx context.Context, responseURL, expectedState string) error {
	u, err := url.Parse(responseURL)
	if err != nil {
		return fmt.Errorf("%w: invalid callback url: %v", shared.ErrAuthFailed, err)
	}

	q := u.Query()
	if expectedState != "" && q.Get("state") != expectedState {
		return fmt.Errorf("%w: invalid state parameter", shared.ErrAuthFailed)
	}
	if errParam := q.Get("error"); errParam != "" {
		return fmt.Errorf("%w: %s", shared.ErrAuthFailed, errParam)
	}

	code := q.Get("code")
	if code == "" {
		return fmt.Errorf("%w: callback url has no code", shared.ErrAuthFailed)
	}
	return a.Exchange(ctx, code)
}

// Logout removes the saved token.
func (a *YouTubeAuth) Logout() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.token = nil
	if err := os.Remove(a.tokenPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}

// Client returns an HTTP client authorized with the saved token.
// Refreshed tokens are written back to disk.
func (a *YouTubeAuth) Client(ctx context.Context) (*http.Client, error) {
	tok := a.Token()
	if tok == nil || (!tok.Valid() && tok.RefreshToken == "") {
		return nil, fmt.Errorf("%w: run 'spyt auth login' first", shared.ErrAuthenticationRequired)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	src := &savingTokenSource{
		base: a.config.TokenSource(ctx, tok),
		last: tok.AccessToken,
		save: a.SetToken,
		log:  a.logger,
	}

	client := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src))
	client.Timeout = a.httpClient.Timeout
	return client, nil
}

// savingTokenSource persists a token whenever the underlying source refreshes it.
type savingTokenSource struct {
	mu   sync.Mutex
	base oauth2.TokenSource
	last string
	save func(*oauth2.Token) error
	log  *log.Logger
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: token refresh failed: %v", shared.ErrAuthenticationRequired, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.save(tok); err != nil {
			s.log.Warn("failed to persist refreshed token", "error", err)
		}
	}
	return tok, nil
}
