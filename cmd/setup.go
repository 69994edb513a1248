package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/spyt/internal/repositories"
	"github.com/desertthunder/spyt/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the example configuration to --output.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("output")
	if path == "" {
		return fmt.Errorf("%w: --output", shared.ErrMissingArgument)
	}

	if cmd.Bool("current") {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: config file already exists at %s", shared.ErrInvalidArgument, path)
		}
		if err := shared.SaveConfig(path, r.config); err != nil {
			return err
		}
		r.logger.Info("effective config saved", "path", path)
		return r.writePlain("✓ Effective config written to %s\n", path)
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	r.logger.Info("config file created", "path", path)

	r.writePlain("✓ Config written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify client_id and client_secret (or SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET)\n")
	r.writePlain("2. Download the Google OAuth client to credentials.youtube.client_secret_path\n")
	r.writePlain("3. Run 'spyt auth login'\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := r.database()
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	version, err := shared.MigrationVersion(db)
	if err != nil {
		return err
	}

	cache := repositories.NewMatchCache(db)
	if cmd.Bool("clear-cache") {
		deleted, err := cache.Clear()
		if err != nil {
			return err
		}
		r.logger.Info("match cache cleared", "deleted", deleted)
		r.writePlain("✓ Cleared %d cached matches\n", deleted)
	}

	cached, err := cache.Count()
	if err != nil {
		r.logger.Warn("failed to count cached matches", "error", err)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Database ready: %s\n", r.config.Database.Path)
	r.writePlain("Schema version: %d\n", version)
	r.writePlain("Cached matches: %d\n", cached)
	return nil
}

// SetupRollback undoes the most recently applied migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := shared.RollbackMigration(db); err != nil {
		return err
	}

	version, err := shared.MigrationVersion(db)
	if err != nil {
		return err
	}
	r.logger.Warn("rolled back migration", "version", version)
	return r.writePlain("✓ Rolled back; schema version is now %d\n", version)
}
