// package quota tracks the daily YouTube Data API budget.
//
// The [Ledger] persists usage to a small JSON file so the budget survives restarts.
// Usage resets to zero at the first access on a later calendar day than the last reset.
package quota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spyt/internal/shared"
)

// Operation identifies a metered API call.
type Operation int

const (
	OpCreatePlaylist Operation = iota
	OpInsertItem
	OpSearch
)

func (o Operation) String() string {
	switch o {
	case OpCreatePlaylist:
		return "playlist_create"
	case OpInsertItem:
		return "playlist_insert"
	case OpSearch:
		return "search"
	default:
		return "unknown"
	}
}

const (
	DefaultDailyLimit = 10000
	unknownCost       = 1
	maxWaitStep       = time.Hour
)

// DefaultCosts returns the published unit costs for each operation.
func DefaultCosts() map[Operation]int {
	return map[Operation]int{
		OpCreatePlaylist: 50,
		OpInsertItem:     50,
		OpSearch:         100,
	}
}

// CostsFromConfig maps config keys (see [Operation.String]) onto the default cost table.
func CostsFromConfig(conf map[string]int) map[Operation]int {
	costs := DefaultCosts()
	for op := range costs {
		if v, ok := conf[op.String()]; ok && v > 0 {
			costs[op] = v
		}
	}
	return costs
}

// state is the persisted ledger record.
type state struct {
	Usage     int       `json:"usage"`
	LastReset time.Time `json:"last_reset"`
}

// Options configures a [Ledger]. Zero values fall back to defaults.
type Options struct {
	Path       string
	DailyLimit int
	Costs      map[Operation]int
	Logger     *log.Logger
	Now        func() time.Time
	Sleep      shared.Sleeper
}

// Ledger is a file-backed daily quota counter.
type Ledger struct {
	mu     sync.Mutex
	path   string
	limit  int
	costs  map[Operation]int
	logger *log.Logger
	now    func() time.Time
	sleep  shared.Sleeper
	state  state
}

// NewLedger loads (or initializes) the ledger stored at opts.Path.
//
// A missing or unreadable file starts a fresh ledger with zero usage.
func NewLedger(opts Options) *Ledger {
	if opts.Path == "" {
		opts.Path = "quota_usage.json"
	}
	if opts.DailyLimit <= 0 {
		opts.DailyLimit = DefaultDailyLimit
	}
	if opts.Costs == nil {
		opts.Costs = DefaultCosts()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = shared.Sleep
	}

	l := &Ledger{
		path:   opts.Path,
		limit:  opts.DailyLimit,
		costs:  opts.Costs,
		logger: opts.Logger,
		now:    opts.Now,
		sleep:  opts.Sleep,
	}
	l.state = l.read()
	return l
}

// read loads the persisted state, falling back to a fresh record.
func (l *Ledger) read() state {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("failed to read quota ledger, starting fresh", "path", l.path, "error", err)
		}
		return state{LastReset: l.now()}
	}

	var s state
	if err := json.Unmarshal(data, &s); err != nil || s.LastReset.IsZero() {
		l.logger.Warn("corrupt quota ledger, starting fresh", "path", l.path, "error", err)
		return state{LastReset: l.now()}
	}
	return s
}

func (l *Ledger) write() error {
	data, err := json.MarshalIndent(l.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode quota ledger: %w", err)
	}
	if err := shared.WriteFileAtomic(l.path, data, 0644); err != nil {
		return fmt.Errorf("failed to save quota ledger: %w", err)
	}
	return nil
}

// rollover resets usage when the current local date is after the date of the last reset.
// Callers must hold l.mu.
func (l *Ledger) rollover() {
	now := l.now()
	if !afterDay(now, l.state.LastReset) {
		return
	}

	l.logger.Info("quota day rolled over, resetting usage", "previous", l.state.Usage)
	l.state = state{Usage: 0, LastReset: now}
	if err := l.write(); err != nil {
		l.logger.Warn("failed to persist quota reset", "error", err)
	}
}

// afterDay reports whether a falls on a later calendar date than b, in a's location.
func afterDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay > by
	}
	if am != bm {
		return am > bm
	}
	return ad > bd
}

// Cost returns the unit cost of op. Unknown operations cost 1.
func (l *Ledger) Cost(op Operation) int {
	if c, ok := l.costs[op]; ok {
		return c
	}
	return unknownCost
}

// Limit returns the configured daily limit.
func (l *Ledger) Limit() int {
	return l.limit
}

// HasQuota reports whether op fits in today's remaining budget.
func (l *Ledger) HasQuota(op Operation) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollover()
	return l.state.Usage+l.Cost(op) <= l.limit
}

// Charge records the cost of op and persists the ledger before returning.
//
// Charge does not check the budget; gate calls with [Ledger.HasQuota] or [Ledger.WaitUntilAvailable].
func (l *Ledger) Charge(op Operation) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollover()
	cost := l.Cost(op)
	l.state.Usage += cost
	l.logger.Debug("quota charged", "op", op, "cost", cost, "usage", l.state.Usage, "limit", l.limit)

	return cost, l.write()
}

// Remaining returns the unspent budget for today, never negative.
func (l *Ledger) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollover()
	return max(l.limit-l.state.Usage, 0)
}

// Usage returns today's usage and the time of the last reset.
func (l *Ledger) Usage() (int, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollover()
	return l.state.Usage, l.state.LastReset
}

// Exhaust marks today's budget as fully spent.
//
// Used when the API reports the quota as exceeded while the local count still shows budget.
func (l *Ledger) Exhaust() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollover()
	l.state.Usage = max(l.state.Usage, l.limit)
	l.logger.Warn("quota exhausted by upstream", "usage", l.state.Usage)
	return l.write()
}

// Reset zeroes today's usage.
func (l *Ledger) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state = state{Usage: 0, LastReset: l.now()}
	return l.write()
}

// NextReset returns the local midnight after the last reset.
func (l *Ledger) NextReset() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return nextMidnight(l.state.LastReset.In(l.now().Location()))
}

func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

// WaitUntilAvailable blocks until op fits in the budget.
//
// It sleeps in steps of at most one hour toward the next reset and re-reads the
// ledger file on every wake, so a reset made by another process is observed.
// Cancelling ctx aborts the wait without modifying the ledger.
func (l *Ledger) WaitUntilAvailable(ctx context.Context, op Operation) error {
	if l.Cost(op) > l.limit {
		return fmt.Errorf("%w: %s costs %d, limit is %d", shared.ErrQuotaUnsatisfiable, op, l.Cost(op), l.limit)
	}

	for {
		if l.HasQuota(op) {
			return nil
		}

		next := l.NextReset()
		wait := min(next.Sub(l.now()), maxWaitStep)
		if wait <= 0 {
			wait = time.Second
		}

		l.logger.Info("quota exhausted, waiting for reset", "op", op, "remaining", l.Remaining(), "sleep", wait, "next_reset", next)
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}

		l.reload()
	}
}

// reload refreshes in-memory state from disk.
func (l *Ledger) reload() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := os.Stat(l.path); err != nil {
		return
	}
	l.state = l.read()
}
