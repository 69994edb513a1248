package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/spyt/internal/services"
	"github.com/desertthunder/spyt/internal/shared"
	"github.com/desertthunder/spyt/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SearchReport is the JSON shape of `spyt search`.
type SearchReport struct {
	Query      string   `json:"query"`
	Backend    string   `json:"backend"`
	Policy     string   `json:"policy"`
	Candidates []string `json:"candidates"`
	Pick       string   `json:"pick,omitempty"`
}

// searchBackend returns the search backend a conversion would use.
func (r *Runner) searchBackend(ctx context.Context) (services.Searcher, string, error) {
	if !r.config.Matcher.UsesAPI() {
		return r.searcher, "proxy", nil
	}

	yt, err := r.youtube(ctx)
	if err != nil {
		return nil, "", err
	}
	return tasks.NewMeteredSearcher(yt, r.ledger, shared.WithLogger(r.logger, "component", "search")), "api", nil
}

// Search runs one query through the configured backend and shows the video the matcher would pick.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("health") {
		return r.searchHealth(ctx)
	}

	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: search query (spyt search \"<title> <artist>\")", shared.ErrMissingArgument)
	}

	searcher, backend, err := r.searchBackend(ctx)
	if err != nil {
		return err
	}

	ids, err := searcher.Search(ctx, query)
	if err != nil {
		return err
	}

	policy := tasks.PolicyFor(r.config.Matcher.SkipTopResult)
	pick, _ := policy.Pick(ids)
	report := SearchReport{Query: query, Backend: backend, Policy: policy.String(), Candidates: ids, Pick: pick}

	if cmd.Bool("json") {
		return r.writeJSON(report, true)
	}

	r.writePlain("Results for %q (%s, %s):\n\n", query, backend, policy)
	if len(ids) == 0 {
		return r.writePlain("No videos found\n")
	}
	for i, id := range ids {
		mark := " "
		if id == pick {
			mark = "→"
		}
		r.writePlain("%s %d. https://www.youtube.com/watch?v=%s\n", mark, i+1, id)
	}
	return nil
}

func (r *Runner) searchHealth(ctx context.Context) error {
	url := r.config.Credentials.YouTube.ProxyURL
	if err := r.searcher.Health(ctx); err != nil {
		r.writePlain("Search proxy: ✗ %s (%v)\n", url, err)
		r.writePlain("Breaker: %s\n", r.searcher.BreakerState())
		return err
	}
	r.writePlain("Search proxy: ✓ %s\n", url)
	r.writePlain("Breaker: %s\n", r.searcher.BreakerState())
	return nil
}
