// Package schedule runs the periodic entry-page crawl.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/IshaanNene/NewsHarvest/internal/config"
	"github.com/IshaanNene/NewsHarvest/internal/engine"
)

// Triggerer runs one crawl of the entry page.
type Triggerer interface {
	Trigger(ctx context.Context, initiator string, mode engine.Mode) (*engine.BatchOutcome, error)
}

// Status describes the scheduler for status endpoints.
type Status struct {
	Enabled     bool      `json:"enabled"`
	Spec        string    `json:"spec"`
	Running     bool      `json:"running"`
	NextRun     time.Time `json:"nextRun,omitempty"`
	LastRun     time.Time `json:"lastRun,omitempty"`
	LastSuccess bool      `json:"lastSuccess"`
	LastCount   int       `json:"lastCount"`
	LastError   string    `json:"lastError,omitempty"`
}

// Scheduler fires scheduled triggers on a cron spec. Overlapping runs are
// skipped and panics inside a run are recovered.
type Scheduler struct {
	cron      *cron.Cron
	spec      string
	enabled   bool
	initiator string
	trigger   Triggerer
	entryID   cron.EntryID
	logger    *slog.Logger

	// ctx is cancelled by Stop once the running crawl has finished or the
	// shutdown deadline has passed, whichever comes first.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
	last    Status
}

// New creates a scheduler. It does not start until Start is called.
func New(cfg config.ScheduleConfig, trig Triggerer, logger *slog.Logger) (*Scheduler, error) {
	logger = logger.With("component", "scheduler")
	cronLogger := cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))

	c := cron.New(
		cron.WithParser(config.CronParser),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:      c,
		spec:      cfg.Cron,
		enabled:   cfg.Enabled,
		initiator: cfg.SystemInitiator,
		trigger:   trig,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}

	if !cfg.Enabled {
		return s, nil
	}

	id, err := c.AddFunc(cfg.Cron, s.run)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("schedule.cron %q: %w", cfg.Cron, err)
	}
	s.entryID = id
	return s, nil
}

// Start begins firing scheduled runs.
func (s *Scheduler) Start() {
	if !s.enabled {
		s.logger.Info("scheduled crawling disabled")
		return
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "spec", s.spec, "next_run", s.cron.Entry(s.entryID).Next)
}

// Stop stops the cron and waits for a running crawl to finish or for ctx
// to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

// RunNow fires one scheduled run synchronously.
func (s *Scheduler) RunNow() {
	s.run()
}

func (s *Scheduler) run() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("scheduled crawl already running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()

	start := time.Now()
	s.logger.Info("scheduled crawl starting")
	outcome, err := s.trigger.Trigger(s.ctx, s.initiator, engine.ModeScheduled)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.last.LastRun = start
	s.last.LastSuccess = err == nil
	s.last.LastError = ""
	s.last.LastCount = 0
	if err != nil {
		s.last.LastError = err.Error()
		s.logger.Error("scheduled crawl failed", "error", err, "duration", time.Since(start))
		return
	}
	if outcome != nil {
		s.last.LastCount = outcome.Summary.Count
	}
	s.logger.Info("scheduled crawl finished", "count", s.last.LastCount, "duration", time.Since(start))
}

// Status reports the schedule and the outcome of the last run.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	st := s.last
	st.Running = s.running
	s.mu.Unlock()

	st.Enabled = s.enabled
	st.Spec = s.spec
	if s.enabled {
		st.NextRun = s.cron.Entry(s.entryID).Next
	}
	return st
}
