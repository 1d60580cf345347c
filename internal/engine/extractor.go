package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/IshaanNene/NewsHarvest/internal/fetcher"
	"github.com/IshaanNene/NewsHarvest/internal/observability"
	"github.com/IshaanNene/NewsHarvest/internal/parser"
	"github.com/IshaanNene/NewsHarvest/internal/pipeline"
	"github.com/IshaanNene/NewsHarvest/internal/storage"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// Extractor turns one article URL into one stored article.
type Extractor struct {
	gate     *Gate
	fetcher  fetcher.Fetcher
	parser   parser.Parser
	pipeline *pipeline.Pipeline // nil skips normalization
	store    storage.ArticleStore
	timeout  time.Duration
	flight   singleflight.Group
	stats    *Stats
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewExtractor wires the dedup gate, fetcher, parser and store together.
// timeout bounds each article fetch; zero uses the fetcher's default.
func NewExtractor(f fetcher.Fetcher, p parser.Parser, store storage.ArticleStore, timeout time.Duration, stats *Stats, metrics *observability.Metrics, logger *slog.Logger) *Extractor {
	if stats == nil {
		stats = &Stats{}
	}
	return &Extractor{
		gate:    NewGate(store),
		fetcher: f,
		parser:  p,
		store:   store,
		timeout: timeout,
		stats:   stats,
		metrics: metrics,
		logger:  logger.With("component", "extractor"),
	}
}

// Extract returns the article for rawURL, fetching it only when the store
// does not hold it yet. batchID is recorded on newly created articles.
// Errors are *types.CrawlError. Nothing is written on any failure path.
func (x *Extractor) Extract(ctx context.Context, rawURL, batchID string) (*types.Article, error) {
	canonical, err := CanonicalizeURL(rawURL)
	if err != nil {
		return nil, x.fail(rawURL, types.ClassInvalidURL, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, x.fail(canonical, types.ClassCancelled, err)
	}

	// The shared extraction outlives any single caller; it is bounded by the
	// fetch timeout. Each caller stops waiting when its own ctx ends.
	ch := x.flight.DoChan(canonical, func() (any, error) {
		return x.extract(context.WithoutCancel(ctx), canonical, batchID)
	})
	select {
	case <-ctx.Done():
		return nil, x.fail(canonical, types.ClassCancelled, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			x.logger.Debug("extraction shared with concurrent caller", "url", canonical)
		}
		return res.Val.(*types.Article).Clone(), nil
	}
}

func (x *Extractor) extract(ctx context.Context, canonical, batchID string) (*types.Article, error) {
	existing, ok, err := x.gate.Resolve(ctx, canonical)
	if err != nil {
		return nil, x.fail(canonical, types.ClassStorage, err)
	}
	if ok {
		x.stats.DedupHits.Add(1)
		x.metrics.DedupHit()
		x.logger.Debug("article already stored", "url", canonical)
		return existing, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, x.fail(canonical, types.ClassCancelled, err)
	}

	req, err := types.NewRequest(canonical)
	if err != nil {
		return nil, x.fail(canonical, types.ClassInvalidURL, err)
	}
	req.Tag = types.TagArticle
	req.Timeout = x.timeout

	x.stats.Fetches.Add(1)
	start := time.Now()
	resp, err := x.fetcher.Fetch(ctx, req)
	if err != nil {
		x.metrics.ObserveFetch(fetchResult(err), time.Since(start))
		if ctx.Err() != nil {
			return nil, x.fail(canonical, types.ClassCancelled, err)
		}
		return nil, x.fail(canonical, types.ClassNetwork, err)
	}
	x.metrics.ObserveFetch("ok", resp.FetchDuration)

	doc, err := resp.Document()
	if err != nil {
		return nil, x.fail(canonical, types.ClassExtraction, &types.ExtractionError{
			URL:    canonical,
			Reason: types.ReasonBadDocument,
			Err:    err,
		})
	}

	parsed, err := x.parser.Parse(doc, canonical)
	if err != nil {
		return nil, x.fail(canonical, types.ClassExtraction, err)
	}

	article := &types.Article{
		ID:                uuid.NewString(),
		URL:               canonical,
		Title:             parsed.Title,
		Source:            parsed.Source,
		PublishTime:       parsed.PublishTime,
		PublishTimeSource: parsed.PublishTimeSource,
		Content:           parsed.Content,
		ContentMissing:    parsed.ContentMissing,
		Keywords:          parsed.Keywords,
		FetchTime:         resp.FetchedAt,
		BatchID:           batchID,
	}
	if article.PublishTimeSource == types.PublishTimeFetchTime {
		article.PublishTime = article.FetchTime
	}

	if x.pipeline != nil {
		processed, stage, err := x.pipeline.Process(article)
		if err != nil {
			return nil, x.fail(canonical, types.ClassExtraction, err)
		}
		if processed == nil {
			return nil, x.fail(canonical, types.ClassExtraction, &types.ExtractionError{
				URL:    canonical,
				Reason: types.ReasonRejected,
				Err:    fmt.Errorf("rejected by %s", stage),
			})
		}
		article = processed
	}

	saved, err := x.store.Save(ctx, article)
	if errors.Is(err, types.ErrDuplicateURL) {
		// Another writer stored the URL first; its record wins.
		winner, findErr := x.store.FindByURL(ctx, canonical)
		if findErr != nil {
			return nil, x.fail(canonical, types.ClassStorage, findErr)
		}
		x.logger.Debug("lost store race, using persisted article", "url", canonical)
		return winner, nil
	}
	if err != nil {
		return nil, x.fail(canonical, types.ClassStorage, err)
	}

	x.stats.ArticlesStored.Add(1)
	x.metrics.ArticleStored()
	x.logger.Info("article stored",
		"url", canonical,
		"title", saved.Title,
		"publish_time_source", saved.PublishTimeSource,
		"content_missing", saved.ContentMissing,
	)
	return saved, nil
}

func (x *Extractor) fail(rawURL string, class types.CrawlErrorClass, err error) error {
	x.stats.Failures.Add(1)
	x.metrics.ExtractionFailed(string(class))
	x.logger.Warn("extraction failed", "url", rawURL, "class", class, "error", err)
	return &types.CrawlError{URL: rawURL, Class: class, Err: err}
}

// fetchResult names a fetch error for metrics labels.
func fetchResult(err error) string {
	var fe *types.FetchError
	if errors.As(err, &fe) {
		return fe.Kind.String()
	}
	return "error"
}
