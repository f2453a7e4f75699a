package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/prabhatkmr/beema-sub003/pipeline"
	"github.com/prabhatkmr/beema-sub003/value"
)

// TriggerFunc is the callback the scheduler uses to start runs.
// This breaks the import cycle: the engine provides the implementation.
type TriggerFunc func(ctx context.Context, jobName, tenantID string, params pipeline.Params) (pipeline.Summary, error)

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickInterval sets how often the scheduler checks for due entries.
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.tickInterval = d }
}

// WithMaxConcurrentFires caps how many due entries fire in parallel on
// one tick.
func WithMaxConcurrentFires(n int) SchedulerOption {
	return func(s *Scheduler) { s.maxConcurrent = n }
}

// cronParser supports standard 5-field cron and descriptors like "@every 30m".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression and returns the schedule.
// Exported for use by engine.RegisterCron.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	return cronParser.Parse(expr)
}

// Scheduler fires due cron entries on a tick loop. It is single-process:
// there is no cross-instance coordination, so exactly one scheduler may
// run against a store.
type Scheduler struct {
	store   Store
	trigger TriggerFunc
	logger  *slog.Logger

	tickInterval  time.Duration
	maxConcurrent int

	// parsedSchedules caches parsed cron expressions.
	parsedMu sync.RWMutex
	parsed   map[string]cronlib.Schedule

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler.
func NewScheduler(store Store, trigger TriggerFunc, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		store:         store,
		trigger:       trigger,
		logger:        logger,
		tickInterval:  1 * time.Second,
		maxConcurrent: 8,
		parsed:        make(map[string]cronlib.Schedule),
		stopCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the tick goroutine.
func (s *Scheduler) Start(_ context.Context) error {
	s.wg.Add(1)
	go s.tickLoop()
	s.logger.Info("cron scheduler started",
		slog.Duration("tick_interval", s.tickInterval),
	)
	return nil
}

// Stop signals the scheduler to stop and waits for in-flight fires.
func (s *Scheduler) Stop(_ context.Context) error {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("cron scheduler stopped")
	return nil
}

// tickLoop fires on each tick interval and processes due cron entries.
func (s *Scheduler) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Tick(context.Background())
		}
	}
}

// Tick evaluates all entries once and fires the due ones concurrently.
// Exported so tests and one-shot callers can drive the scheduler
// without the tick loop.
func (s *Scheduler) Tick(ctx context.Context) {
	entries, err := s.store.ListCrons(ctx)
	if err != nil {
		s.logger.Error("list crons error", slog.String("error", err.Error()))
		return
	}

	now := time.Now().UTC()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for _, entry := range entries {
		if !entry.Due(now) {
			continue
		}
		g.Go(func() error {
			s.fireEntry(gctx, entry, now)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Scheduler) fireEntry(ctx context.Context, entry *Entry, now time.Time) {
	// Advance NextRunAt before triggering so a slow run cannot make the
	// same due time fire twice on the next tick.
	sched, parseErr := s.getOrParseSchedule(entry.Schedule)
	if parseErr != nil {
		s.logger.Error("parse cron schedule error",
			slog.String("cron_name", entry.Name),
			slog.String("schedule", entry.Schedule),
			slog.String("error", parseErr.Error()),
		)
		return
	}
	next := sched.Next(now)
	entry.NextRunAt = &next
	if err := s.store.UpdateCronEntry(ctx, entry); err != nil {
		s.logger.Error("update cron next run error",
			slog.String("cron_id", entry.ID.String()),
			slog.String("error", err.Error()),
		)
		return
	}

	params, err := paramsFromObject(entry.Params)
	if err != nil {
		s.logger.Error("cron params error",
			slog.String("cron_name", entry.Name),
			slog.String("error", err.Error()),
		)
		return
	}

	summary, trigErr := s.trigger(ctx, entry.JobName, entry.TenantID, params)
	if trigErr != nil {
		s.logger.Error("cron trigger error",
			slog.String("cron_name", entry.Name),
			slog.String("job_name", entry.JobName),
			slog.String("error", trigErr.Error()),
		)
		return
	}

	if err := s.store.UpdateCronLastRun(ctx, entry.ID, now); err != nil {
		s.logger.Error("update cron last run error",
			slog.String("cron_id", entry.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("cron fired",
		slog.String("cron_name", entry.Name),
		slog.String("job_name", entry.JobName),
		slog.Int("read", summary.ReadCount),
		slog.Int("written", summary.WriteCount),
	)
}

// paramsFromObject converts an entry's stored params into run params.
func paramsFromObject(obj value.Object) (pipeline.Params, error) {
	if len(obj) == 0 {
		return nil, nil
	}
	params := make(pipeline.Params, len(obj))
	for _, key := range obj.Keys() {
		p, err := pipeline.ParamFromValue(obj[key])
		if err != nil {
			return nil, err
		}
		params[key] = p
	}
	return params, nil
}

// getOrParseSchedule caches parsed cron expressions.
func (s *Scheduler) getOrParseSchedule(expr string) (cronlib.Schedule, error) {
	s.parsedMu.RLock()
	sched, ok := s.parsed[expr]
	s.parsedMu.RUnlock()
	if ok {
		return sched, nil
	}

	sched, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}

	s.parsedMu.Lock()
	s.parsed[expr] = sched
	s.parsedMu.Unlock()
	return sched, nil
}
