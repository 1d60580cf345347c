package engine

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"

	"github.com/IshaanNene/NewsHarvest/internal/fetcher"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// robotsAgent is the product token matched against User-agent groups.
const robotsAgent = "newsharvest"

// RobotsPolicy answers whether a URL may be crawled according to the
// robots.txt of its host. Rules are fetched once per origin and cached.
type RobotsPolicy struct {
	fetcher fetcher.Fetcher
	cache   map[string]*robotstxt.RobotsData // nil entry allows all
	mu      sync.Mutex
	logger  *slog.Logger
}

// NewRobotsPolicy creates a policy that fetches robots.txt through f.
func NewRobotsPolicy(f fetcher.Fetcher, logger *slog.Logger) *RobotsPolicy {
	return &RobotsPolicy{
		fetcher: f,
		cache:   make(map[string]*robotstxt.RobotsData),
		logger:  logger.With("component", "robots"),
	}
}

// Allowed reports whether rawURL may be fetched. The most specific matching
// rule wins. A robots.txt that is missing, unreachable or unparsable allows
// everything.
func (rp *RobotsPolicy) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}

	data := rp.rules(ctx, u.Scheme+"://"+u.Host)
	if data == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, robotsAgent)
}

// rules returns the cached rules for origin, fetching them on first use.
// The lock is held across the fetch so each origin is fetched once.
func (rp *RobotsPolicy) rules(ctx context.Context, origin string) *robotstxt.RobotsData {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	if data, ok := rp.cache[origin]; ok {
		return data
	}

	data, err := rp.fetch(ctx, origin)
	if err != nil && ctx.Err() != nil {
		// Leave the cache empty so a later batch retries.
		return nil
	}
	rp.cache[origin] = data
	return data
}

func (rp *RobotsPolicy) fetch(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	req, err := types.NewRequest(origin + "/robots.txt")
	if err != nil {
		return nil, err
	}
	resp, err := rp.fetcher.Fetch(ctx, req)
	if err != nil {
		var fe *types.FetchError
		if errors.As(err, &fe) && fe.Kind == types.FetchHTTPStatus && fe.StatusCode == http.StatusNotFound {
			rp.logger.Debug("no robots.txt", "origin", origin)
		} else {
			rp.logger.Warn("robots.txt unavailable, allowing all", "origin", origin, "error", err)
		}
		return nil, err
	}

	data, err := robotstxt.FromBytes(resp.Body)
	if err != nil {
		rp.logger.Warn("robots.txt unparsable, allowing all", "origin", origin, "error", err)
		return nil, err
	}
	rp.logger.Debug("robots.txt loaded", "origin", origin)
	return data, nil
}
