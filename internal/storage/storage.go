package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/NewsHarvest/internal/config"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// ArticleStore persists articles keyed by canonical URL.
type ArticleStore interface {
	// FindByURL returns the article stored under url, or types.ErrNotFound.
	FindByURL(ctx context.Context, url string) (*types.Article, error)

	// Save inserts a new article. It returns types.ErrDuplicateURL when an
	// article with the same URL already exists.
	Save(ctx context.Context, article *types.Article) (*types.Article, error)

	// FindByBatch returns the articles created by the given batch, oldest first.
	FindByBatch(ctx context.Context, batchID string) ([]*types.Article, error)
}

// HistoryStore persists crawl history entries.
type HistoryStore interface {
	Insert(ctx context.Context, entry *types.HistoryEntry) error

	// ListByInitiator returns the initiator's entries, newest first.
	ListByInitiator(ctx context.Context, initiatorID string) ([]*types.HistoryEntry, error)

	// Get returns the entry with the given id, or types.ErrNotFound.
	Get(ctx context.Context, id string) (*types.HistoryEntry, error)

	// Delete removes the entry with the given id, or returns types.ErrNotFound.
	Delete(ctx context.Context, id string) error
}

// Store is a backend that holds both articles and history.
type Store interface {
	ArticleStore
	HistoryStore

	// Close releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// New creates the backend selected by cfg.Type.
func New(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "memory", "":
		return NewMemoryStore(logger), nil
	case "file":
		return NewFileStore(cfg.Path, logger)
	case "mongodb":
		return NewMongoStore(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %q", cfg.Type)
	}
}
