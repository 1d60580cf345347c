package engine

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/IshaanNene/NewsHarvest/internal/storage"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// Gate answers extractions from the store before anything is fetched.
type Gate struct {
	store storage.ArticleStore
}

// NewGate creates a gate over store.
func NewGate(store storage.ArticleStore) *Gate {
	return &Gate{store: store}
}

// Resolve looks up canonicalURL. The bool is true when an article already
// exists; a missing article is not an error.
func (g *Gate) Resolve(ctx context.Context, canonicalURL string) (*types.Article, bool, error) {
	article, err := g.store.FindByURL(ctx, canonicalURL)
	if errors.Is(err, types.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return article, true, nil
}

// urlSet is a batch-local set of URLs.
type urlSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newURLSet(capacity int) *urlSet {
	return &urlSet{seen: make(map[string]struct{}, capacity)}
}

// Add records u and reports whether it was new.
func (s *urlSet) Add(u string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[u]; ok {
		return false
	}
	s.seen[u] = struct{}{}
	return true
}

// CanonicalizeURL normalizes an article URL for storage and deduplication:
//   - rejects anything that is not an absolute http(s) URL
//   - lowercases scheme and host
//   - removes query and fragment
//   - removes default ports (80 for http, 443 for https)
//   - ensures the path is at least "/"
func CanonicalizeURL(rawURL string) (string, error) {
	u, err := types.ParseHTTPURL(rawURL)
	if err != nil {
		return "", err
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""

	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = strings.TrimSuffix(u.Host, ":"+port)
	}

	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}

	return u.String(), nil
}
