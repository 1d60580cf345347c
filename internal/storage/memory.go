package storage

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// MemoryStore keeps articles and history in process memory. Returned values
// are copies, so callers cannot mutate stored records.
type MemoryStore struct {
	mu       sync.RWMutex
	articles map[string]*types.Article // keyed by URL
	order    []string
	history  map[string]*types.HistoryEntry
	logger   *slog.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		articles: make(map[string]*types.Article),
		history:  make(map[string]*types.HistoryEntry),
		logger:   logger.With("component", "memory_storage"),
	}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) FindByURL(_ context.Context, url string) (*types.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.articles[url]
	if !ok {
		return nil, types.ErrNotFound
	}
	return a.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, article *types.Article) (*types.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.articles[article.URL]; exists {
		return nil, types.ErrDuplicateURL
	}
	s.articles[article.URL] = article.Clone()
	s.order = append(s.order, article.URL)
	s.logger.Debug("article stored", "url", article.URL, "total", len(s.order))
	return article.Clone(), nil
}

func (s *MemoryStore) FindByBatch(_ context.Context, batchID string) ([]*types.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*types.Article
	for _, url := range s.order {
		if a := s.articles[url]; a.BatchID == batchID {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

// Count returns the number of stored articles.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *MemoryStore) Insert(_ context.Context, entry *types.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *entry
	s.history[entry.ID] = &clone
	return nil
}

func (s *MemoryStore) ListByInitiator(_ context.Context, initiatorID string) ([]*types.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*types.HistoryEntry
	for _, e := range s.history {
		if e.InitiatorID == initiatorID {
			clone := *e
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*types.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.history[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	clone := *e
	return &clone, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.history[id]; !ok {
		return types.ErrNotFound
	}
	delete(s.history, id)
	return nil
}

// historySnapshot returns every history entry, oldest first.
func (s *MemoryStore) historySnapshot() []*types.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.HistoryEntry, 0, len(s.history))
	for _, e := range s.history {
		clone := *e
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// removeArticle undoes a Save whose persistence failed.
func (s *MemoryStore) removeArticle(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.articles[url]; !ok {
		return
	}
	delete(s.articles, url)
	for i, u := range s.order {
		if u == url {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *MemoryStore) Close() error {
	s.logger.Info("memory storage closing", "total_articles", s.Count())
	return nil
}
