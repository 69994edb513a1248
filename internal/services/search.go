// Public search [Searcher] implementation
//
// Communicates with the FastAPI search proxy. Searches through the proxy are
// not charged against the YouTube Data API quota.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spyt/internal/shared"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const defaultSearchBaseURL string = "http://localhost:8080"

// SearchResult is a single entry returned by the proxy.
type SearchResult struct {
	VideoID string `json:"videoId"`
	Title   string `json:"title"`
}

// SearchOpts configures a [SearchClient]. Zero values fall back to defaults.
type SearchOpts struct {
	BaseURL         string
	Filter          string  // proxy result filter, "videos" by default
	RateLimit       float64 // requests per second
	BreakerFailures int     // consecutive failures before the breaker opens
	HTTPClient      *http.Client
	Logger          *log.Logger
}

// SearchClient queries the search proxy for candidate videos.
type SearchClient struct {
	baseURL    string
	filter     string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]string]
	logger     *log.Logger
}

// NewSearchClient creates a rate limited, circuit broken proxy client.
func NewSearchClient(opts SearchOpts) *SearchClient {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultSearchBaseURL
	}
	if opts.Filter == "" {
		opts.Filter = "videos"
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5
	}
	if opts.BreakerFailures <= 0 {
		opts.BreakerFailures = 5
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = NewHTTPClient(0)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	failures := uint32(opts.BreakerFailures)
	logger := opts.Logger
	settings := gobreaker.Settings{
		Name:        "search-proxy",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("search breaker state changed", "name", name, "from", from, "to", to)
		},
	}

	return &SearchClient{
		baseURL:    opts.BaseURL,
		filter:     opts.Filter,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		breaker:    gobreaker.NewCircuitBreaker[[]string](settings),
		logger:     opts.Logger,
	}
}

func (c *SearchClient) doRequest(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
			return fmt.Errorf("search proxy error (status %d): %s", resp.StatusCode, errResp.Detail)
		}
		return fmt.Errorf("search proxy error: status %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Search returns candidate video ids for query, most relevant first.
//
// Calls GET /api/search?q={query}&filter={filter} on the proxy.
func (c *SearchClient) Search(ctx context.Context, query string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ids, err := c.breaker.Execute(func() ([]string, error) {
		endpoint := fmt.Sprintf("/api/search?q=%s&filter=%s", url.QueryEscape(query), url.QueryEscape(c.filter))

		var results []SearchResult
		if err := c.doRequest(ctx, endpoint, &results); err != nil {
			return nil, err
		}

		ids := make([]string, 0, len(results))
		for _, r := range results {
			if r.VideoID != "" {
				ids = append(ids, r.VideoID)
			}
		}
		return ids, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", shared.ErrSearchFailed, query, err)
	}
	return ids, nil
}

// Health calls GET /health on the proxy.
func (c *SearchClient) Health(ctx context.Context) error {
	var body map[string]any
	if err := c.doRequest(ctx, "/health", &body); err != nil {
		return fmt.Errorf("%w: search proxy: %v", shared.ErrUpstreamUnavailable, err)
	}
	return nil
}

// BreakerState reports the circuit breaker state ("closed", "half-open" or "open").
func (c *SearchClient) BreakerState() string {
	return c.breaker.State().String()
}
