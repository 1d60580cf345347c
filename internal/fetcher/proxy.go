package fetcher

import (
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync/atomic"
)

// ProxyRotator hands out configured proxies to outgoing requests.
type ProxyRotator struct {
	proxies  []*url.URL
	rotation string
	index    atomic.Int64
	logger   *slog.Logger
}

// NewProxyRotator parses rawURLs, skipping the ones that do not parse.
// rotation is "round_robin" (default) or "random".
func NewProxyRotator(rawURLs []string, rotation string, logger *slog.Logger) *ProxyRotator {
	pr := &ProxyRotator{
		proxies:  make([]*url.URL, 0, len(rawURLs)),
		rotation: rotation,
		logger:   logger.With("component", "proxy_rotator"),
	}
	pr.index.Store(-1)

	for _, raw := range rawURLs {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			pr.logger.Warn("invalid proxy URL", "url", raw, "error", err)
			continue
		}
		pr.proxies = append(pr.proxies, u)
	}

	pr.logger.Info("proxy rotator initialized", "count", len(pr.proxies), "rotation", rotation)
	return pr
}

// ProxyFunc returns an http.Transport-compatible proxy function.
// With no proxies configured, requests connect directly.
func (pr *ProxyRotator) ProxyFunc() func(*http.Request) (*url.URL, error) {
	return func(*http.Request) (*url.URL, error) {
		return pr.Next(), nil
	}
}

// Next returns the proxy for the next request, or nil when none are configured.
func (pr *ProxyRotator) Next() *url.URL {
	if len(pr.proxies) == 0 {
		return nil
	}
	if pr.rotation == "random" {
		return pr.proxies[rand.IntN(len(pr.proxies))]
	}
	idx := pr.index.Add(1) % int64(len(pr.proxies))
	return pr.proxies[idx]
}

// Count returns the number of usable proxies.
func (pr *ProxyRotator) Count() int {
	return len(pr.proxies)
}
