package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/spyt/internal/quota"
	"github.com/urfave/cli/v3"
)

// QuotaReport is the JSON shape of `spyt quota status`.
type QuotaReport struct {
	Usage       int            `json:"usage"`
	Limit       int            `json:"limit"`
	Remaining   int            `json:"remaining"`
	LastReset   time.Time      `json:"last_reset"`
	NextReset   time.Time      `json:"next_reset"`
	InsertsLeft int            `json:"inserts_left"`
	Costs       map[string]int `json:"costs"`
}

func (r *Runner) quotaReport() QuotaReport {
	usage, lastReset := r.ledger.Usage()
	remaining := r.ledger.Remaining()

	costs := map[string]int{}
	for _, op := range []quota.Operation{quota.OpCreatePlaylist, quota.OpInsertItem, quota.OpSearch} {
		costs[op.String()] = r.ledger.Cost(op)
	}

	return QuotaReport{
		Usage:       usage,
		Limit:       r.ledger.Limit(),
		Remaining:   remaining,
		LastReset:   lastReset,
		NextReset:   r.ledger.NextReset(),
		InsertsLeft: remaining / r.ledger.Cost(quota.OpInsertItem),
		Costs:       costs,
	}
}

// QuotaStatus shows today's usage and the next reset.
func (r *Runner) QuotaStatus(ctx context.Context, cmd *cli.Command) error {
	report := r.quotaReport()
	if cmd.Bool("json") {
		return r.writeJSON(report, true)
	}

	r.writePlainHeader("YouTube API Quota")
	r.writePlain("Used: %d/%d units\n", report.Usage, report.Limit)
	r.writePlain("Remaining: %d units (%d inserts)\n", report.Remaining, report.InsertsLeft)
	r.writePlain("Next reset: %s\n", report.NextReset.Format("2006-01-02 15:04"))
	r.writePlain("\nCosts:\n")
	for _, op := range []quota.Operation{quota.OpCreatePlaylist, quota.OpInsertItem, quota.OpSearch} {
		r.writePlain("  %-16s %d\n", op, report.Costs[op.String()])
	}
	return nil
}

// QuotaReset zeroes today's recorded usage.
func (r *Runner) QuotaReset(ctx context.Context, cmd *cli.Command) error {
	if err := r.ledger.Reset(); err != nil {
		return fmt.Errorf("failed to reset quota: %w", err)
	}
	r.logger.Info("quota reset", "limit", r.ledger.Limit())
	return r.writePlain("✓ Quota usage reset (%d units available)\n", r.ledger.Limit())
}
