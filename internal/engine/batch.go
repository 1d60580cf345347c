package engine

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// Failure is one candidate that could not be extracted.
type Failure struct {
	URL string `json:"url"`
	Err error  `json:"-"`
}

// BatchResult holds the outcome of a batch in discovery order.
type BatchResult struct {
	Succeeded []*types.Article
	Failed    []Failure
	Duration  time.Duration
}

// Summary is the condensed form of a batch written to history.
type Summary struct {
	Count        int      `json:"totalCount"`
	FailedCount  int      `json:"failedCount"`
	SampleURLs   []string `json:"sampleUrls"`
	SampleTitles []string `json:"sampleTitles"`
}

// Summary returns counts and up to n sample URLs and titles.
func (r *BatchResult) Summary(n int) Summary {
	s := Summary{
		Count:        len(r.Succeeded),
		FailedCount:  len(r.Failed),
		SampleURLs:   []string{},
		SampleTitles: []string{},
	}
	for i, a := range r.Succeeded {
		if i >= n {
			break
		}
		s.SampleURLs = append(s.SampleURLs, a.URL)
		s.SampleTitles = append(s.SampleTitles, a.Title)
	}
	return s
}

// Runner drives candidates through the extractor with a bounded pool.
type Runner struct {
	extractor   *Extractor
	concurrency int
	delay       time.Duration
	timeout     time.Duration
	logger      *slog.Logger
}

// NewRunner creates a batch runner. delay spaces out extraction starts;
// timeout, when positive, bounds the whole batch.
func NewRunner(x *Extractor, concurrency int, delay, timeout time.Duration, logger *slog.Logger) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		extractor:   x,
		concurrency: concurrency,
		delay:       delay,
		timeout:     timeout,
		logger:      logger.With("component", "batch"),
	}
}

type batchSlot struct {
	article *types.Article
	err     error
}

// Run extracts every candidate independently. A failing candidate never
// affects the others, and nothing is retried. Results keep discovery order
// whatever order the workers finish in.
func (r *Runner) Run(ctx context.Context, candidates []Candidate, batchID string) *BatchResult {
	start := time.Now()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	limit := rate.Inf
	if r.delay > 0 {
		limit = rate.Every(r.delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	slots := make([]batchSlot, len(candidates))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, c := range candidates {
		g.Go(func() error {
			if err := limiter.Wait(ctx); err != nil {
				slots[i].err = &types.CrawlError{URL: c.URL, Class: types.ClassCancelled, Err: err}
				return nil
			}
			slots[i].article, slots[i].err = r.extractor.Extract(ctx, c.URL, batchID)
			return nil
		})
	}
	_ = g.Wait()

	result := &BatchResult{Duration: time.Since(start)}
	for i, s := range slots {
		if s.err != nil {
			result.Failed = append(result.Failed, Failure{URL: candidates[i].URL, Err: s.err})
			continue
		}
		result.Succeeded = append(result.Succeeded, s.article)
	}

	r.logger.Info("batch complete",
		"batch_id", batchID,
		"candidates", len(candidates),
		"succeeded", len(result.Succeeded),
		"failed", len(result.Failed),
		"duration", result.Duration,
	)
	return result
}
