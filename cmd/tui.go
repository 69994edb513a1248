package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spyt/internal/shared"
	"github.com/desertthunder/spyt/internal/ui"
	"github.com/urfave/cli/v3"
)

const tuiLogPath = "./tmp/spyt-tui.log"

// TUI launches the interactive terminal UI for playlist conversion.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	logPath := r.config.Log.File
	if logPath == "" {
		logPath = tuiLogPath
	}
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	catalog, err := r.requireCatalog()
	if err != nil {
		return err
	}
	converter, err := r.converter(ctx)
	if err != nil {
		r.diagnose(err, cmd.StringArg("url"))
		return err
	}

	model := ui.NewModel(ctx, ui.ModelOpts{
		Catalog:     catalog,
		Converter:   converter,
		URL:         cmd.StringArg("url"),
		Title:       cmd.String("title"),
		Description: r.config.Pipeline.Description,
		ChunkSize:   r.config.Pipeline.ChunkSize,
		CanResume:   r.store.Exists(),
	})
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
