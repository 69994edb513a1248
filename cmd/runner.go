package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spyt/internal/progress"
	"github.com/desertthunder/spyt/internal/quota"
	"github.com/desertthunder/spyt/internal/repositories"
	"github.com/desertthunder/spyt/internal/services"
	"github.com/desertthunder/spyt/internal/shared"
	"github.com/desertthunder/spyt/internal/tasks"
	"github.com/urfave/cli/v3"
)

// YouTubeClient is the metered API surface a conversion writes through.
type YouTubeClient interface {
	services.PlaylistAPI
	services.Searcher
}

// YouTubeFactory builds an authorized [YouTubeClient] on demand.
type YouTubeFactory func(ctx context.Context) (YouTubeClient, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	catalog     services.Catalog
	catalogErr  error
	searcher    *services.SearchClient
	auth        *services.YouTubeAuth
	authErr     error
	youtube     YouTubeFactory
	ledger      *quota.Ledger
	store       *progress.Store
	db          *sql.DB
	httpClient  *http.Client
	openBrowser func(string) error
	logger      *log.Logger
	output      io.Writer
	opts        RunnerOpts
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Clients left nil are built from Config; construction errors are kept and
// reported by the commands that need the client.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Catalog     services.Catalog
	Searcher    *services.SearchClient
	Auth        *services.YouTubeAuth
	YouTube     YouTubeFactory
	Ledger      *quota.Ledger
	Store       *progress.Store
	DB          *sql.DB
	HTTPClient  *http.Client
	OpenBrowser func(string) error
	Logger      *log.Logger
	Output      io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = services.NewHTTPClient(opts.Config.Pipeline.HTTPTimeout())
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	r := &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		catalog:     opts.Catalog,
		searcher:    opts.Searcher,
		auth:        opts.Auth,
		youtube:     opts.YouTube,
		ledger:      opts.Ledger,
		store:       opts.Store,
		db:          opts.DB,
		httpClient:  opts.HTTPClient,
		openBrowser: opts.OpenBrowser,
		logger:      opts.Logger,
		output:      opts.Output,
		opts:        opts,
	}
	r.init()
	return r
}

// init builds every client the options did not provide.
func (r *Runner) init() {
	conf := r.config

	switch {
	case r.catalog != nil:
	case !conf.HasSpotifyCredentials():
		r.catalogErr = fmt.Errorf("%w: spotify client id and secret are required", shared.ErrCredentialsMissing)
	default:
		catalog, err := services.NewSpotifyCatalog(services.SpotifyOpts{
			ClientID:     conf.Credentials.Spotify.ClientID,
			ClientSecret: conf.Credentials.Spotify.ClientSecret,
			HTTPClient:   r.httpClient,
			Retry:        r.retryPolicy(),
			Logger:       shared.WithLogger(r.logger, "component", "spotify"),
		})
		if err != nil {
			r.catalogErr = err
		} else {
			r.catalog = catalog
		}
	}

	if r.searcher == nil {
		r.searcher = services.NewSearchClient(services.SearchOpts{
			BaseURL:         conf.Credentials.YouTube.ProxyURL,
			Filter:          conf.Matcher.Filter,
			RateLimit:       conf.Matcher.RateLimit,
			BreakerFailures: conf.Matcher.BreakerFailures,
			HTTPClient:      r.httpClient,
			Logger:          shared.WithLogger(r.logger, "component", "search"),
		})
	}

	if r.auth == nil {
		auth, err := services.NewYouTubeAuth(services.YouTubeAuthOpts{
			ClientSecretPath: conf.Credentials.YouTube.ClientSecretPath,
			TokenPath:        conf.Credentials.YouTube.TokenPath,
			RedirectURI:      conf.Credentials.YouTube.RedirectURI,
			HTTPClient:       r.httpClient,
			Logger:           shared.WithLogger(r.logger, "component", "youtube-auth"),
		})
		if err != nil {
			r.authErr = err
		} else {
			r.auth = auth
		}
	}

	if r.youtube == nil {
		r.youtube = r.newYouTubeClient
	}

	if r.ledger == nil {
		r.ledger = quota.NewLedger(quota.Options{
			Path:       conf.Quota.Path,
			DailyLimit: conf.Quota.DailyLimit,
			Costs:      quota.CostsFromConfig(conf.Quota.Costs),
			Logger:     shared.WithLogger(r.logger, "component", "quota"),
		})
	}

	if r.store == nil {
		r.store = progress.NewStore(conf.Pipeline.CheckpointPath, shared.WithLogger(r.logger, "component", "progress"))
	}
}

func (r *Runner) retryPolicy() shared.RetryPolicy {
	return shared.RetryPolicy{
		Attempts:  r.config.Pipeline.MaxRetries,
		BaseDelay: r.config.Pipeline.RetryDelay(),
	}
}

func (r *Runner) newYouTubeClient(ctx context.Context) (YouTubeClient, error) {
	auth, err := r.requireAuth()
	if err != nil {
		return nil, err
	}
	client, err := auth.Client(ctx)
	if err != nil {
		return nil, err
	}
	return services.NewYouTubeAPI(ctx, client, "", shared.WithLogger(r.logger, "component", "youtube"))
}

// SetLogger replaces the logger and rebuilds every client that was not injected, so
// component loggers follow the new sink.
func (r *Runner) SetLogger(logger *log.Logger) {
	opts := r.opts
	opts.Logger = logger
	opts.DB = r.db
	*r = *NewRunner(opts)
}

// requireCatalog returns the Spotify catalog or the reason it could not be built.
func (r *Runner) requireCatalog() (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}
	if r.catalogErr != nil {
		return nil, fmt.Errorf("%w (set credentials.spotify in %s or SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET)", r.catalogErr, r.configPath)
	}
	return nil, fmt.Errorf("%w: spotify catalog", shared.ErrCredentialsMissing)
}

// requireAuth returns the YouTube authorizer or the reason it could not be built.
func (r *Runner) requireAuth() (*services.YouTubeAuth, error) {
	if r.auth != nil {
		return r.auth, nil
	}
	if r.authErr != nil {
		return nil, r.authErr
	}
	return nil, fmt.Errorf("%w: youtube client secret", shared.ErrCredentialsMissing)
}

// database opens (once) the configured sqlite database with migrations applied.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	return db, nil
}

// Close releases the database handle.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// converter assembles the pipeline from config.
func (r *Runner) converter(ctx context.Context) (*tasks.Converter, error) {
	conf := r.config

	catalog, err := r.requireCatalog()
	if err != nil {
		return nil, err
	}
	auth, err := r.requireAuth()
	if err != nil {
		return nil, err
	}
	if !auth.IsAuthenticated() {
		return nil, fmt.Errorf("%w: run 'spyt auth login' first", shared.ErrAuthenticationRequired)
	}
	yt, err := r.youtube(ctx)
	if err != nil {
		return nil, err
	}

	searcher, backend, err := r.searchBackend(ctx)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("search backend", "backend", backend)

	var (
		matchStore tasks.MatchStore
		runs       tasks.RunRecorder
	)
	if db, err := r.database(); err != nil {
		r.logger.Warn("run history disabled", "path", conf.Database.Path, "error", err)
	} else {
		if conf.Matcher.Durable {
			matchStore = repositories.NewMatchCache(db)
		}
		runs = repositories.NewRunRepository(db)
	}

	matcher, err := tasks.NewMatcher(tasks.MatcherOpts{
		Searcher:  searcher,
		Policy:    tasks.PolicyFor(conf.Matcher.SkipTopResult),
		CacheSize: conf.Matcher.CacheSize,
		Store:     matchStore,
		Logger:    shared.WithLogger(r.logger, "component", "matcher"),
	})
	if err != nil {
		return nil, err
	}

	processor := tasks.NewProcessor(tasks.ProcessorOpts{
		Matcher:    matcher,
		Store:      r.store,
		ChunkDelay: conf.Pipeline.ChunkDelay(),
		Logger:     shared.WithLogger(r.logger, "component", "processor"),
	})

	writer := tasks.NewWriter(tasks.WriterOpts{
		API:        yt,
		Auth:       auth,
		Ledger:     r.ledger,
		Store:      r.store,
		Privacy:    conf.Credentials.YouTube.Privacy,
		MaxRetries: conf.Pipeline.MaxRetries,
		RetryDelay: conf.Pipeline.RetryDelay(),
		Logger:     shared.WithLogger(r.logger, "component", "writer"),
	})

	return tasks.NewConverter(tasks.ConverterOpts{
		Catalog:   catalog,
		Processor: processor,
		Writer:    writer,
		Store:     r.store,
		Runs:      runs,
		Logger:    shared.WithLogger(r.logger, "component", "converter"),
	}), nil
}

// diagnose logs the context needed to debug a failed conversion.
func (r *Runner) diagnose(err error, playlistURL string) {
	secretPath := r.config.Credentials.YouTube.ClientSecretPath
	_, statErr := os.Stat(secretPath)

	r.logger.Error("conversion failed",
		"error", err,
		"playlist_url", playlistURL,
		"spotify_client_id_set", r.config.Credentials.Spotify.ClientID != "",
		"spotify_client_secret_set", r.config.Credentials.Spotify.ClientSecret != "",
		"client_secret_file", secretPath,
		"client_secret_exists", statErr == nil,
		"youtube_authenticated", r.auth != nil && r.auth.IsAuthenticated(),
	)
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		convertCommand, authCommand, quotaCommand, progressCommand, spotifyCommand,
		searchCommand, runsCommand, setupCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
