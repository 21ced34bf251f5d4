package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethpandaops/indexopt/pkg/observability"
	"github.com/ethpandaops/indexopt/pkg/optimizer"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Runner performs a single optimization pass
type Runner interface {
	Run(ctx context.Context) (*optimizer.Summary, error)
}

// RunRecord describes the most recent scheduled run
type RunRecord struct {
	Summary    *optimizer.Summary
	Err        error
	FinishedAt time.Time
}

// RunHistory shares run records between replicas
type RunHistory interface {
	Save(ctx context.Context, record *RunRecord) error
	Last(ctx context.Context) (*RunRecord, error)
}

const historyTimeout = 5 * time.Second

// Scheduler triggers a Runner on a cron schedule. Runs never overlap; a tick
// that fires while a run is still in progress is skipped.
type Scheduler struct {
	log     logrus.FieldLogger
	runner  Runner
	config  *Config
	elector LeaderElector
	history RunHistory

	mu      sync.Mutex
	cron    *cron.Cron
	running bool

	lastMu  sync.RWMutex
	lastRun *RunRecord
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithLeaderElector restricts runs to the replica holding leadership
func WithLeaderElector(elector LeaderElector) Option {
	return func(s *Scheduler) {
		s.elector = elector
	}
}

// WithRunHistory publishes every run to history and reports the newest
// record across replicas from LastRun
func WithRunHistory(history RunHistory) Option {
	return func(s *Scheduler) {
		s.history = history
	}
}

// NewScheduler creates a new scheduler
func NewScheduler(log logrus.FieldLogger, runner Runner, cfg *Config, opts ...Option) *Scheduler {
	log = log.WithField("component", "scheduler")

	s := &Scheduler{
		log:    log,
		runner: runner,
		config: cfg,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log)))),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start registers the schedule and starts the cron loop. The scheduler stops
// on its own once ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if s.elector != nil {
		if err := s.elector.Start(ctx); err != nil {
			return fmt.Errorf("failed to start leader election: %w", err)
		}
	}

	if _, err := s.cron.AddFunc(s.config.Schedule, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule optimization: %w", err)
	}

	if s.config.RunOnStart {
		s.cron.Schedule(&onceSchedule{}, s.cron.Entries()[0].WrappedJob)
	}

	s.cron.Start()
	s.running = true
	observability.RecordSchedulerActive(true)

	s.log.WithField("schedule", s.config.Schedule).Info("Scheduler started")

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the scheduler and waits for an in-flight run to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	<-s.cron.Stop().Done()

	if s.elector != nil {
		if err := s.elector.Stop(); err != nil {
			s.log.WithError(err).Warn("Failed to stop leader election")
		}
	}

	s.running = false
	observability.RecordSchedulerActive(false)

	s.log.Info("Scheduler stopped")
}

// IsRunning returns true if the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled run, or nil when nothing is scheduled
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next *time.Time

	for _, entry := range s.cron.Entries() {
		if entry.Next.IsZero() {
			continue
		}

		if next == nil || entry.Next.Before(*next) {
			t := entry.Next
			next = &t
		}
	}

	return next
}

// IsLeader reports whether this replica may run. Without an elector it
// always may.
func (s *Scheduler) IsLeader() bool {
	return s.elector == nil || s.elector.IsLeader()
}

// LastRun returns the most recent run, or nil. Without a run history only
// runs of this replica are known.
func (s *Scheduler) LastRun() *RunRecord {
	s.lastMu.RLock()
	local := s.lastRun
	s.lastMu.RUnlock()

	if s.history == nil {
		return local
	}

	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()

	shared, err := s.history.Last(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Failed to read run history")

		return local
	}

	if shared == nil || (local != nil && !shared.FinishedAt.After(local.FinishedAt)) {
		return local
	}

	return shared
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	if !s.IsLeader() {
		s.log.Debug("Not the leader, skipping scheduled optimization run")

		return
	}

	s.log.Info("Starting scheduled optimization run")

	summary, err := s.runner.Run(ctx)

	record := &RunRecord{Summary: summary, Err: err, FinishedAt: time.Now()}

	s.lastMu.Lock()
	s.lastRun = record
	s.lastMu.Unlock()

	s.publish(record)

	if err != nil {
		observability.RecordError("scheduler", "run")
		s.log.WithError(err).Error("Scheduled optimization run failed")

		return
	}

	entry := s.log.WithFields(logrus.Fields{
		"run_id":    summary.RunID,
		"optimized": summary.Optimized,
		"failed":    summary.Failed,
	})

	if summary.Failed > 0 {
		entry.Warn("Scheduled optimization run completed with failures")

		return
	}

	entry.Info("Scheduled optimization run completed")
}

func (s *Scheduler) publish(record *RunRecord) {
	if s.history == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()

	if err := s.history.Save(ctx, record); err != nil {
		observability.RecordError("scheduler", "history")
		s.log.WithError(err).Warn("Failed to save run history")
	}
}

// onceSchedule fires a single time, as soon as the cron loop starts
type onceSchedule struct {
	fired bool
}

func (o *onceSchedule) Next(t time.Time) time.Time {
	if o.fired {
		return time.Time{}
	}

	o.fired = true

	return t
}
