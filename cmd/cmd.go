// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// convertCommand runs a full Spotify → YouTube conversion.
func convertCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "convert",
		Aliases: []string{"run"},
		Usage:   "Convert a public Spotify playlist into a YouTube playlist",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "url"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "resume",
				Usage: "Continue from the saved checkpoint (default when one exists)",
			},
			&cli.BoolFlag{
				Name:  "fresh",
				Usage: "Discard any saved checkpoint and start over",
			},
			&cli.StringFlag{
				Name:    "title",
				Aliases: []string{"t"},
				Usage:   "Title of the new YouTube playlist",
				Value:   "Spotify Playlist",
			},
			&cli.StringFlag{
				Name:  "description",
				Usage: "Description of the new YouTube playlist (defaults to pipeline.description)",
			},
			&cli.IntFlag{
				Name:  "chunk-size",
				Usage: "Tracks matched between checkpoints (defaults to pipeline.chunk_size)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the result as JSON",
			},
		},
		Action: r.Convert,
	}
}

// authCommand handles YouTube authorization.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage YouTube authorization",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize with Google through a local callback server",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the consent URL instead of opening a browser",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the callback",
						Value: authTimeout,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show whether a usable YouTube token is saved",
				Action: r.AuthStatus,
			},
			{
				Name:  "callback",
				Usage: "Finish authorization from a pasted redirect URL",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url"},
				},
				Action: r.AuthCallback,
			},
			{
				Name:   "logout",
				Usage:  "Delete the saved YouTube token",
				Action: r.AuthLogout,
			},
		},
	}
}

// quotaCommand inspects the daily YouTube quota ledger.
func quotaCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "quota",
		Usage: "Inspect the daily YouTube API quota",
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Show usage, remaining units and the next reset",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.QuotaStatus,
			},
			{
				Name:   "reset",
				Usage:  "Zero today's recorded usage",
				Action: r.QuotaReset,
			},
		},
	}
}

// progressCommand inspects the conversion checkpoint.
func progressCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "progress",
		Aliases: []string{"checkpoint"},
		Usage:   "Inspect the saved conversion checkpoint",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the saved checkpoint",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ProgressShow,
			},
			{
				Name:   "clear",
				Usage:  "Delete the saved checkpoint",
				Action: r.ProgressClear,
			},
		},
	}
}

// spotifyCommand handles Spotify catalog operations.
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify catalog operations",
		Commands: []*cli.Command{
			{
				Name:  "tracks",
				Usage: "List the search queries built from a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.SpotifyTracks,
			},
			{
				Name:   "verify",
				Usage:  "Check the Spotify client credentials",
				Action: r.SpotifyVerify,
			},
		},
	}
}

// searchCommand runs one match through the configured search backend.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search for a track and show which video would be picked",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "query"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "health",
				Usage: "Check the search proxy instead of searching",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Search,
	}
}

// runsCommand browses and exports run history.
func runsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Browse conversion history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent runs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only runs with this status",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.RunsList,
			},
			{
				Name:  "show",
				Usage: "Show one run (the latest when no id is given)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.RunsShow,
			},
			{
				Name:  "export",
				Usage: "Export run history as csv, md, json or txt",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (csv, md, json, txt)",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (stdout when empty)",
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only runs with this status",
					},
				},
				Action: r.RunsExport,
			},
		},
	}
}

// setupCommand handles first-run setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write an example config.toml",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Path of the config file to create",
						Value:   "config.toml",
					},
					&cli.BoolFlag{
						Name:  "current",
						Usage: "Write the effective configuration (file, .env and environment merged) instead of the template",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive conversion.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive converter",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "url"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "title",
				Aliases: []string{"t"},
				Usage:   "Title of the new YouTube playlist",
			},
		},
		Action: r.TUI,
	}
}
