package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/NewsHarvest/internal/config"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// MongoStore keeps articles and history in two MongoDB collections. A unique
// index on the article url backs the deduplication gate.
type MongoStore struct {
	client   *mongo.Client
	articles *mongo.Collection
	history  *mongo.Collection
	timeout  time.Duration
	logger   *slog.Logger
}

// NewMongoStore connects to MongoDB and ensures the indexes exist.
func NewMongoStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*MongoStore, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	db := client.Database(cfg.Database)
	s := &MongoStore{
		client:   client,
		articles: db.Collection(cfg.ArticleCollection),
		history:  db.Collection(cfg.HistoryCollection),
		timeout:  timeout,
		logger:   logger.With("component", "mongo_storage"),
	}

	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.articles.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "url", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "batch_id", Value: 1}}},
	})
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("article indexes: %w", err)}
	}

	_, err = s.history.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "initiator_id", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("history indexes: %w", err)}
	}
	return nil
}

func (s *MongoStore) Name() string { return "mongodb" }

func (s *MongoStore) FindByURL(ctx context.Context, url string) (*types.Article, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var article types.Article
	err := s.articles.FindOne(ctx, bson.M{"url": url}).Decode(&article)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("find article: %w", err)}
	}
	return &article, nil
}

func (s *MongoStore) Save(ctx context.Context, article *types.Article) (*types.Article, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.articles.InsertOne(ctx, article); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, types.ErrDuplicateURL
		}
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("insert article: %w", err)}
	}
	s.logger.Debug("article stored in mongodb", "url", article.URL)
	return article.Clone(), nil
}

func (s *MongoStore) FindByBatch(ctx context.Context, batchID string) ([]*types.Article, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cur, err := s.articles.Find(ctx, bson.M{"batch_id": batchID},
		options.Find().SetSort(bson.D{{Key: "fetch_time", Value: 1}}))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("find batch: %w", err)}
	}
	var out []*types.Article
	if err := cur.All(ctx, &out); err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("decode batch: %w", err)}
	}
	return out, nil
}

func (s *MongoStore) Insert(ctx context.Context, entry *types.HistoryEntry) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.history.InsertOne(ctx, entry); err != nil {
		return &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("insert history: %w", err)}
	}
	return nil
}

func (s *MongoStore) ListByInitiator(ctx context.Context, initiatorID string) ([]*types.HistoryEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cur, err := s.history.Find(ctx, bson.M{"initiator_id": initiatorID},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("list history: %w", err)}
	}
	var out []*types.HistoryEntry
	if err := cur.All(ctx, &out); err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("decode history: %w", err)}
	}
	return out, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*types.HistoryEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var entry types.HistoryEntry
	err := s.history.FindOne(ctx, bson.M{"_id": id}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("get history: %w", err)}
	}
	return &entry, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.history.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("delete history: %w", err)}
	}
	if res.DeletedCount == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (s *MongoStore) Close() error {
	s.logger.Info("mongodb storage closing")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
