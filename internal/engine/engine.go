package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/NewsHarvest/internal/config"
	"github.com/IshaanNene/NewsHarvest/internal/fetcher"
	"github.com/IshaanNene/NewsHarvest/internal/history"
	"github.com/IshaanNene/NewsHarvest/internal/observability"
	"github.com/IshaanNene/NewsHarvest/internal/parser"
	"github.com/IshaanNene/NewsHarvest/internal/pipeline"
	"github.com/IshaanNene/NewsHarvest/internal/storage"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// Mode selects how a trigger was started.
type Mode int

const (
	ModeScheduled Mode = iota
	ModeManual
)

func (m Mode) String() string {
	switch m {
	case ModeScheduled:
		return "scheduled"
	case ModeManual:
		return "manual"
	default:
		return "unknown"
	}
}

// Stats tracks crawl statistics for the lifetime of the engine.
type Stats struct {
	Fetches        atomic.Int64
	DedupHits      atomic.Int64
	ArticlesStored atomic.Int64
	Failures       atomic.Int64
	Batches        atomic.Int64
	StartTime      time.Time
}

// Snapshot returns a copy of stats safe for reading.
func (s *Stats) Snapshot() map[string]any {
	return map[string]any{
		"fetches":         s.Fetches.Load(),
		"dedup_hits":      s.DedupHits.Load(),
		"articles_stored": s.ArticlesStored.Load(),
		"failures":        s.Failures.Load(),
		"batches":         s.Batches.Load(),
		"elapsed":         time.Since(s.StartTime).String(),
	}
}

// HistoryRecorder persists one history entry per crawl invocation.
type HistoryRecorder interface {
	Record(ctx context.Context, d history.Draft) (*types.HistoryEntry, error)
}

// BatchOutcome is what a batch operation reports to its caller.
type BatchOutcome struct {
	EntryURL string
	Keyword  string
	Result   *BatchResult
	Summary  Summary
	// History is nil only when the history entry could not be written.
	History *types.HistoryEntry
}

// Engine exposes the crawl operations. Every operation writes exactly one
// history entry.
type Engine struct {
	cfg        *config.Config
	store      storage.ArticleStore
	recorder   HistoryRecorder
	extractor  *Extractor
	discoverer *Discoverer
	runner     *Runner
	stats      *Stats
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// New creates an Engine. The site's article patterns are compiled once here.
func New(cfg *config.Config, f fetcher.Fetcher, p parser.Parser, store storage.ArticleStore, recorder HistoryRecorder, metrics *observability.Metrics, logger *slog.Logger) (*Engine, error) {
	patterns, err := cfg.Site.CompilePatterns()
	if err != nil {
		return nil, err
	}

	stats := &Stats{StartTime: time.Now()}
	extractor := NewExtractor(f, p, store, cfg.Fetcher.Timeout, stats, metrics, logger)
	extractor.pipeline = pipeline.Default(logger)

	discoverer := NewDiscoverer(f, patterns, cfg.Fetcher.IndexTimeout, metrics, logger)
	if cfg.Engine.RespectRobots {
		discoverer.robots = NewRobotsPolicy(f, logger)
	}

	return &Engine{
		cfg:        cfg,
		store:      store,
		recorder:   recorder,
		extractor:  extractor,
		discoverer: discoverer,
		runner:     NewRunner(extractor, cfg.Engine.Concurrency, cfg.Engine.PolitenessDelay, cfg.Engine.BatchTimeout, logger),
		stats:      stats,
		metrics:    metrics,
		logger:     logger.With("component", "engine"),
	}, nil
}

// Stats returns the live statistics.
func (e *Engine) Stats() *Stats {
	return e.stats
}

// Extractor returns the single-article extractor.
func (e *Engine) Extractor() *Extractor {
	return e.extractor
}

// Discoverer returns the link discoverer.
func (e *Engine) Discoverer() *Discoverer {
	return e.discoverer
}

// Runner returns the batch runner.
func (e *Engine) Runner() *Runner {
	return e.runner
}

// CrawlSingle extracts one article for initiator. The first hard error is
// returned as a *types.CrawlError. Malformed URLs are rejected before any
// I/O and leave no history.
func (e *Engine) CrawlSingle(ctx context.Context, initiator, rawURL string) (*types.Article, error) {
	if err := rejectInvalid(rawURL); err != nil {
		return nil, err
	}
	done := e.metrics.BatchStarted(string(types.KindSingle))
	start := time.Now()

	article, err := e.extractor.Extract(ctx, rawURL, "")
	done(err == nil)

	params := map[string]any{
		"url":           rawURL,
		"executionTime": time.Since(start).Milliseconds(),
	}
	title := "Single article crawl failed"
	if err == nil {
		params["title"] = article.Title
		params["source"] = article.Source
		title = "Single article: " + article.Title
	}

	e.record(ctx, history.Draft{
		InitiatorID: initiator,
		Kind:        types.KindSingle,
		TargetURL:   rawURL,
		Title:       title,
		Params:      params,
		Err:         err,
	})
	return article, err
}

// CrawlIndex discovers and extracts every article linked from indexURL.
// It fails only when discovery itself fails.
func (e *Engine) CrawlIndex(ctx context.Context, initiator, indexURL string) (*BatchOutcome, error) {
	return e.crawlBatch(ctx, batchSpec{
		initiator: initiator,
		kind:      types.KindIndex,
		entryURL:  indexURL,
		title:     "Index crawl",
	})
}

// CrawlKeyword is CrawlIndex restricted to links whose text contains keyword.
// An empty indexURL uses the configured entry page.
func (e *Engine) CrawlKeyword(ctx context.Context, initiator, keyword, indexURL string) (*BatchOutcome, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, types.ErrEmptyKeyword
	}
	if strings.TrimSpace(indexURL) == "" {
		indexURL = e.cfg.Site.EntryURL
	}
	return e.crawlBatch(ctx, batchSpec{
		initiator: initiator,
		kind:      types.KindKeyword,
		entryURL:  indexURL,
		keyword:   keyword,
		title:     fmt.Sprintf("Keyword crawl %q", keyword),
	})
}

// Trigger crawls the configured entry page. Scheduled runs are attributed to
// the system identity; manual runs to the requesting initiator.
func (e *Engine) Trigger(ctx context.Context, initiator string, mode Mode) (*BatchOutcome, error) {
	spec := batchSpec{
		initiator: initiator,
		kind:      types.KindIndex,
		entryURL:  e.cfg.Site.EntryURL,
		title:     "Manual crawl",
		extra: map[string]any{
			"isScheduled": mode == ModeScheduled,
			"triggeredBy": initiator,
		},
	}
	if mode == ModeScheduled {
		spec.initiator = e.cfg.Schedule.SystemInitiator
		spec.kind = types.KindScheduled
		spec.title = "Scheduled crawl"
		spec.extra["triggeredBy"] = spec.initiator
	}

	e.logger.Info("trigger fired", "mode", mode, "initiator", spec.initiator)
	return e.crawlBatch(ctx, spec)
}

type batchSpec struct {
	initiator string
	kind      types.CrawlKind
	entryURL  string
	keyword   string
	title     string
	extra     map[string]any
}

func (e *Engine) crawlBatch(ctx context.Context, spec batchSpec) (*BatchOutcome, error) {
	if err := rejectInvalid(spec.entryURL); err != nil {
		return nil, err
	}
	done := e.metrics.BatchStarted(string(spec.kind))
	e.stats.Batches.Add(1)
	start := time.Now()
	batchID := uuid.NewString()

	params := map[string]any{
		"entryUrl": spec.entryURL,
	}
	if spec.keyword != "" {
		params["keyword"] = spec.keyword
	}
	for k, v := range spec.extra {
		params[k] = v
	}

	outcome := &BatchOutcome{EntryURL: spec.entryURL, Keyword: spec.keyword}

	candidates, err := e.discoverer.Discover(ctx, spec.entryURL, spec.keyword)
	if err != nil {
		done(false)
		params["executionTime"] = time.Since(start).Milliseconds()
		outcome.History = e.record(ctx, history.Draft{
			ID:          batchID,
			InitiatorID: spec.initiator,
			Kind:        spec.kind,
			TargetURL:   spec.entryURL,
			Title:       spec.title + " failed",
			Params:      params,
			Err:         err,
		})
		return outcome, err
	}

	outcome.Result = e.runner.Run(ctx, candidates, batchID)
	outcome.Summary = outcome.Result.Summary(e.cfg.Engine.SampleSize)
	done(true)

	params["candidateCount"] = len(candidates)
	params["totalCount"] = outcome.Summary.Count
	params["failedCount"] = outcome.Summary.FailedCount
	params["sampleUrls"] = outcome.Summary.SampleURLs
	params["sampleTitles"] = outcome.Summary.SampleTitles
	params["executionTime"] = time.Since(start).Milliseconds()

	outcome.History = e.record(ctx, history.Draft{
		ID:          batchID,
		InitiatorID: spec.initiator,
		Kind:        spec.kind,
		TargetURL:   spec.entryURL,
		Title:       fmt.Sprintf("%s: %d articles", spec.title, outcome.Summary.Count),
		Params:      params,
	})
	return outcome, nil
}

func rejectInvalid(rawURL string) error {
	if _, err := types.ParseHTTPURL(rawURL); err != nil {
		return &types.CrawlError{URL: rawURL, Class: types.ClassInvalidURL, Err: err}
	}
	return nil
}

// record writes a history entry. A failed write is logged and does not
// change the outcome of the crawl itself.
func (e *Engine) record(ctx context.Context, d history.Draft) *types.HistoryEntry {
	if e.recorder == nil {
		return nil
	}
	// The entry is written even when the crawl was cancelled.
	ctx = context.WithoutCancel(ctx)
	entry, err := e.recorder.Record(ctx, d)
	if err != nil {
		e.logger.Error("history write failed", "kind", d.Kind, "initiator", d.InitiatorID, "error", err)
		return nil
	}
	return entry
}

// FindArticle looks up a stored article by URL. The raw value is tried
// first, then its canonical form.
func (e *Engine) FindArticle(ctx context.Context, rawURL string) (*types.Article, error) {
	article, err := e.store.FindByURL(ctx, rawURL)
	if !errors.Is(err, types.ErrNotFound) {
		return article, err
	}
	canonical, cerr := CanonicalizeURL(rawURL)
	if cerr != nil || canonical == rawURL {
		return nil, err
	}
	return e.store.FindByURL(ctx, canonical)
}

// BatchArticles returns the articles created by a batch.
func (e *Engine) BatchArticles(ctx context.Context, batchID string) ([]*types.Article, error) {
	return e.store.FindByBatch(ctx, batchID)
}
