package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/spyt/internal/formatter"
	"github.com/desertthunder/spyt/internal/models"
	"github.com/desertthunder/spyt/internal/repositories"
	"github.com/desertthunder/spyt/internal/shared"
	"github.com/urfave/cli/v3"
)

func (r *Runner) runRepository() (*repositories.RunRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewRunRepository(db), nil
}

func statusCriteria(status string) (map[string]any, error) {
	criteria := map[string]any{}
	if status == "" {
		return criteria, nil
	}
	if !models.RunStatus(status).Valid() {
		return nil, fmt.Errorf("%w: unknown run status %q", shared.ErrInvalidArgument, status)
	}
	criteria["status"] = status
	return criteria, nil
}

// RunsList lists recent conversion runs, newest first.
func (r *Runner) RunsList(ctx context.Context, cmd *cli.Command) error {
	criteria, err := statusCriteria(cmd.String("status"))
	if err != nil {
		return err
	}
	criteria["limit"] = cmd.Int("limit")

	repo, err := r.runRepository()
	if err != nil {
		return err
	}
	runs, err := repo.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		summaries := make([]formatter.RunSummary, 0, len(runs))
		for _, run := range runs {
			summaries = append(summaries, formatter.Summarize(run))
		}
		return r.writeJSON(summaries, true)
	}

	if len(runs) == 0 {
		return r.writePlain("No runs recorded yet\n")
	}

	r.writePlain("Found %d runs:\n\n", len(runs))
	for _, run := range runs {
		s := formatter.Summarize(run)
		r.writePlain("%3d. [%s] %s  %d/%d matched, %d added  %s\n",
			s.Sequence, s.Status, s.Title, s.Matched, s.Tracks, s.Added, s.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// RunsShow prints one run, or the latest when no id is given.
func (r *Runner) RunsShow(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.runRepository()
	if err != nil {
		return err
	}

	var run *models.Run
	if id := strings.TrimSpace(cmd.StringArg("id")); id != "" {
		run, err = repo.Get(id)
	} else {
		run, err = repo.Latest()
	}
	if err != nil {
		return err
	}

	return r.writePlain("%s", formatter.FormatRun(run))
}

// RunsDelete removes a run from the history.
func (r *Runner) RunsDelete(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: run id (spyt runs delete <id>)", shared.ErrMissingArgument)
	}

	repo, err := r.runRepository()
	if err != nil {
		return err
	}
	if err := repo.Delete(id); err != nil {
		return err
	}

	r.logger.Info("run deleted", "id", id)
	return r.writePlain("✓ Deleted run %s\n", id)
}

// RunsExport writes run history in the requested format to a file or stdout.
func (r *Runner) RunsExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	criteria, err := statusCriteria(cmd.String("status"))
	if err != nil {
		return err
	}

	repo, err := r.runRepository()
	if err != nil {
		return err
	}
	runs, err := repo.List(criteria)
	if err != nil {
		return err
	}

	if output := cmd.String("output"); output != "" {
		if err := formatter.WriteExport(runs, format, output); err != nil {
			return err
		}
		r.logger.Info("runs exported", "format", format, "path", output, "runs", len(runs))
		return r.writePlain("✓ Exported %d runs to %s\n", len(runs), output)
	}

	data, err := formatter.Export(runs, format)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
