// Package linkcheck provides the HTTP reachability capability used by
// link_check nodes, with an optional Redis-backed result cache.
package linkcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/protocol"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultCacheTTL = 10 * time.Minute
	cachePrefix     = "linkcheck:"
)

// Checker probes URLs with a HEAD request (falling back to GET when the
// server rejects HEAD) and caches results so repeated runs over the same
// feed don't re-probe identical links.
type Checker struct {
	httpClient *http.Client
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     *slog.Logger
}

// NewChecker creates a checker. cache may be nil, which disables caching.
func NewChecker(cache *redis.Client, logger *slog.Logger) *Checker {
	return &Checker{
		httpClient: &http.Client{Timeout: defaultTimeout},
		cache:      cache,
		cacheTTL:   defaultCacheTTL,
		logger:     logger.With("module", "linkcheck"),
	}
}

// Check probes url and reports its reachability. A transport-level failure
// returns an unreachable status along with the error so callers can decide
// whether it is fatal.
func (c *Checker) Check(ctx context.Context, url string) (protocol.LinkStatus, error) {
	if status, ok := c.cached(ctx, url); ok {
		return status, nil
	}

	status, err := c.probe(ctx, url)
	if err != nil {
		return status, err
	}

	c.store(ctx, url, status)

	return status, nil
}

func (c *Checker) probe(ctx context.Context, url string) (protocol.LinkStatus, error) {
	resp, err := c.do(ctx, http.MethodHead, url)
	if err != nil {
		return protocol.LinkStatus{}, fmt.Errorf("link check failed for %s: %w", url, err)
	}

	if resp.StatusCode == http.StatusMethodNotAllowed {
		resp, err = c.do(ctx, http.MethodGet, url)
		if err != nil {
			return protocol.LinkStatus{}, fmt.Errorf("link check failed for %s: %w", url, err)
		}
	}

	return protocol.LinkStatus{
		Reachable:  resp.StatusCode < 400,
		StatusCode: resp.StatusCode,
	}, nil
}

func (c *Checker) do(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if closeErr := resp.Body.Close(); closeErr != nil {
		c.logger.Warn("Failed to close link check response body", "error", closeErr)
	}

	return resp, nil
}

func (c *Checker) cached(ctx context.Context, url string) (protocol.LinkStatus, bool) {
	if c.cache == nil {
		return protocol.LinkStatus{}, false
	}

	raw, err := c.cache.Get(ctx, cachePrefix+url).Result()
	if err != nil {
		return protocol.LinkStatus{}, false
	}

	var status protocol.LinkStatus
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		return protocol.LinkStatus{}, false
	}

	return status, true
}

func (c *Checker) store(ctx context.Context, url string, status protocol.LinkStatus) {
	if c.cache == nil {
		return
	}

	raw, err := json.Marshal(status)
	if err != nil {
		return
	}

	if err := c.cache.Set(ctx, cachePrefix+url, raw, c.cacheTTL).Err(); err != nil {
		c.logger.Warn("Failed to cache link check result", "url", url, "error", err)
	}
}
