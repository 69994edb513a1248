package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spyt/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

// loadConfig reads SPYT_CONFIG or ./config.toml, falling back to defaults, then applies .env overrides.
func loadConfig(logger *log.Logger) (*shared.Config, string) {
	path := os.Getenv("SPYT_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if loadedConfig, err := shared.LoadConfig(path); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", path, "error", err)
		}
	}

	config.ApplyEnv(".env")
	return config, path
}

func main() {
	logger := shared.NewLogger(nil)
	config, configPath := loadConfig(logger)
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:    "spyt",
		Usage:   "Convert Spotify playlists into YouTube playlists",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				shared.SetLogLevel(logger, log.DebugLevel)
				runner.SetLogger(logger)
			}
			return ctx, nil
		},
		Commands: runner.register(),
	}

	err := app.Run(ctx, os.Args)
	if closeErr := runner.Close(); closeErr != nil {
		logger.Warn("failed to close database", "error", closeErr)
	}

	switch {
	case err == nil:
	case errors.Is(err, shared.ErrNotImplemented):
		logger.Warn("not implemented")
	case errors.Is(err, context.Canceled):
		logger.Warn("stopped, checkpoint saved", "path", config.Pipeline.CheckpointPath)
		os.Exit(130)
	default:
		logger.Fatalf("application error: %v", err)
	}
}
