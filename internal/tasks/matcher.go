package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spyt/internal/quota"
	"github.com/desertthunder/spyt/internal/services"
	"github.com/desertthunder/spyt/internal/shared"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the in-process match memo.
const DefaultCacheSize = 1000

// SelectionPolicy picks one video id from ordered search results.
type SelectionPolicy int

const (
	// SkipTopResult takes the second result when there are at least two.
	SkipTopResult SelectionPolicy = iota
	// TopResult takes the first result.
	TopResult
)

// PolicyFor maps the skip_top_result config flag onto a policy.
func PolicyFor(skipTop bool) SelectionPolicy {
	if skipTop {
		return SkipTopResult
	}
	return TopResult
}

func (p SelectionPolicy) String() string {
	if p == TopResult {
		return "top_result"
	}
	return "skip_top_result"
}

// Pick returns the chosen id, or false for an empty result list.
func (p SelectionPolicy) Pick(ids []string) (string, bool) {
	switch {
	case len(ids) == 0:
		return "", false
	case p == SkipTopResult && len(ids) > 1:
		return ids[1], true
	default:
		return ids[0], true
	}
}

// MatchStore is a durable cache tier behind the in-process memo.
// An entry with an empty id records a query that had no match.
type MatchStore interface {
	GetMatch(ctx context.Context, query string) (videoID string, found bool, err error)
	PutMatch(ctx context.Context, query, videoID string) error
}

// MatcherOpts configures a [Matcher].
type MatcherOpts struct {
	Searcher  services.Searcher
	Policy    SelectionPolicy
	CacheSize int
	Store     MatchStore // optional
	Logger    *log.Logger
}

// Matcher resolves a track query to at most one video id.
//
// Results of successful searches are memoized per query, including empty ones.
// Failed searches are logged, reported as no match, and not memoized.
type Matcher struct {
	searcher services.Searcher
	policy   SelectionPolicy
	cache    *lru.Cache[string, string]
	store    MatchStore
	logger   *log.Logger
}

// NewMatcher creates a [Matcher]. A CacheSize below 1 uses [DefaultCacheSize].
func NewMatcher(opts MatcherOpts) (*Matcher, error) {
	if opts.Searcher == nil {
		return nil, fmt.Errorf("%w: matcher needs a searcher", shared.ErrMissingArgument)
	}
	if opts.CacheSize < 1 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	cache, err := lru.New[string, string](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create match cache: %w", err)
	}

	return &Matcher{
		searcher: opts.Searcher,
		policy:   opts.Policy,
		cache:    cache,
		store:    opts.Store,
		logger:   opts.Logger,
	}, nil
}

// Match returns the selected video id for query, or false when there is none.
func (m *Matcher) Match(ctx context.Context, query string) (string, bool) {
	if id, ok := m.cache.Get(query); ok {
		return id, id != ""
	}

	if m.store != nil {
		id, found, err := m.store.GetMatch(ctx, query)
		if err != nil {
			m.logger.Warn("match store lookup failed", "query", query, "error", err)
		} else if found {
			m.cache.Add(query, id)
			return id, id != ""
		}
	}

	ids, err := m.searcher.Search(ctx, query)
	if err != nil {
		m.logger.Warn("search failed", "query", query, "error", err)
		return "", false
	}

	id, _ := m.policy.Pick(ids)
	m.cache.Add(query, id)

	if m.store != nil {
		if err := m.store.PutMatch(ctx, query, id); err != nil {
			m.logger.Warn("match store write failed", "query", query, "error", err)
		}
	}

	if id == "" {
		m.logger.Debug("no results", "query", query)
	}
	return id, id != ""
}

// CacheLen returns the number of memoized queries.
func (m *Matcher) CacheLen() int {
	return m.cache.Len()
}

// MeteredSearcher runs searches through the quota-metered YouTube Data API.
//
// Each search is charged to the ledger. When the budget cannot cover a search
// it fails with [shared.ErrQuotaExceeded] instead of waiting, so matching can
// continue and the remaining budget is left for inserts.
type MeteredSearcher struct {
	api    services.Searcher
	ledger *quota.Ledger
	logger *log.Logger
}

// NewMeteredSearcher wraps api with quota accounting.
func NewMeteredSearcher(api services.Searcher, ledger *quota.Ledger, logger *log.Logger) *MeteredSearcher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &MeteredSearcher{api: api, ledger: ledger, logger: logger}
}

func (s *MeteredSearcher) Search(ctx context.Context, query string) ([]string, error) {
	if !s.ledger.HasQuota(quota.OpSearch) {
		return nil, fmt.Errorf("%w: %d units left, search costs %d", shared.ErrQuotaExceeded, s.ledger.Remaining(), s.ledger.Cost(quota.OpSearch))
	}

	ids, err := s.api.Search(ctx, query)
	if err != nil {
		if errors.Is(err, shared.ErrQuotaExceeded) {
			if exErr := s.ledger.Exhaust(); exErr != nil {
				s.logger.Warn("failed to record exhausted quota", "error", exErr)
			}
		}
		return nil, err
	}

	if _, err := s.ledger.Charge(quota.OpSearch); err != nil {
		s.logger.Warn("failed to persist quota usage", "error", err)
	}
	return ids, nil
}
