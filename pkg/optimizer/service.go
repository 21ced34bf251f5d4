package optimizer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ethpandaops/indexopt/pkg/elasticsearch"
	"github.com/ethpandaops/indexopt/pkg/observability"
	"github.com/ethpandaops/indexopt/pkg/selector"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrRunCanceled is returned when the context is canceled part way through a run
	ErrRunCanceled = errors.New("optimization run canceled")
)

// Dispatcher hands a selected index to a worker instead of force-merging it
// in-process. It reports false when the index is already queued.
type Dispatcher interface {
	Dispatch(ctx context.Context, index, granularity, runID string) (bool, error)
}

// Summary describes what a run did
type Summary struct {
	RunID         string
	Considered    int
	Selected      int
	Optimized     int
	Enqueued      int
	Failed        int
	Skipped       int
	DryRun        bool
	FailedIndices []string
	Duration      time.Duration
}

// Service lists indices, selects the ones within their retention window and
// force-merges them one at a time
type Service struct {
	log    logrus.FieldLogger
	client elasticsearch.ClientInterface
	config *Config
	clock  func() time.Time

	dispatcher Dispatcher
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the wall clock used to compute cutoffs
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithDispatcher enqueues selected indices on d rather than optimizing them
func WithDispatcher(d Dispatcher) Option {
	return func(s *Service) {
		s.dispatcher = d
	}
}

// NewService creates a new optimizer service
func NewService(log logrus.FieldLogger, client elasticsearch.ClientInterface, cfg *Config, opts ...Option) *Service {
	s := &Service{
		log:    log.WithField("component", "optimizer"),
		client: client,
		config: cfg,
		clock:  time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Plan lists the cluster's indices and returns every selector decision
// without optimizing anything
func (s *Service) Plan(ctx context.Context) ([]selector.Decision, error) {
	names, err := s.client.ListIndices(ctx)
	if err != nil {
		observability.RecordError("optimizer", "list_indices")

		return nil, err
	}

	observability.RecordIndicesListed(len(names))

	return slices.Collect(selector.Select(names, s.config.Selector, s.now())), nil
}

// Run performs one optimization pass. Only a failure to list indices or a
// canceled context fails the run; individual force-merge failures are
// reported in the summary.
func (s *Service) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	summary := &Summary{
		RunID:  uuid.New().String(),
		DryRun: s.config.DryRun,
	}
	log := s.log.WithField("run_id", summary.RunID)

	s.logWindows(log)

	names, err := s.client.ListIndices(ctx)
	if err != nil {
		observability.RecordError("optimizer", "list_indices")
		s.finish(log, summary, start, "failed")

		return nil, err
	}

	observability.RecordIndicesListed(len(names))
	log.WithField("indices", len(names)).Debug("Listed indices")

	for d := range selector.Select(names, s.config.Selector, s.now()) {
		summary.Considered++

		granularity := granularityLabel(d)
		observability.RecordDecision(granularity, d.Outcome.String())

		entry := log.WithFields(logrus.Fields{
			"index":       d.Index,
			"granularity": granularity,
			"outcome":     d.Outcome.String(),
		})
		if d.Err != nil {
			entry = entry.WithError(d.Err)
		}

		if !d.Selected() {
			summary.Skipped++
			entry.Log(d.Level(), d.Message())

			continue
		}

		summary.Selected++
		entry.Debug(d.Message())

		if err := ctx.Err(); err != nil {
			s.finish(log, summary, start, "failed")

			return summary, fmt.Errorf("%w: %w", ErrRunCanceled, err)
		}

		if s.config.DryRun {
			observability.RecordDryRun(granularity)
			entry.Infof("Would have attempted optimizing index %s because it is %s newer than the calculated cutoff", d.Index, -d.Offset)

			continue
		}

		if s.dispatcher != nil {
			s.dispatch(ctx, entry, summary, d)

			continue
		}

		s.optimize(ctx, entry, summary, d)
	}

	s.finish(log, summary, start, "success")

	return summary, nil
}

func (s *Service) optimize(ctx context.Context, log *logrus.Entry, summary *Summary, d selector.Decision) {
	granularity := granularityLabel(d)

	log.Infof("Optimizing index %s because it is %s newer than cutoff", d.Index, -d.Offset)

	start := time.Now()
	result, err := s.client.Optimize(ctx, d.Index)
	elapsed := time.Since(start)

	switch {
	case err != nil:
		log.WithError(err).Errorf("Error optimizing index: %s", d.Index)
	case !result.Success:
		log.WithField("detail", result.Detail).Errorf("Error optimizing index: %s", d.Index)
	default:
		summary.Optimized++
		observability.RecordOptimize(granularity, "success", elapsed.Seconds())
		log.WithField("duration", elapsed).Infof("Successfully optimized index: %s", d.Index)

		return
	}

	summary.Failed++
	summary.FailedIndices = append(summary.FailedIndices, d.Index)
	observability.RecordOptimize(granularity, "failed", elapsed.Seconds())
	observability.RecordError("optimizer", "optimize")
}

func (s *Service) dispatch(ctx context.Context, log *logrus.Entry, summary *Summary, d selector.Decision) {
	enqueued, err := s.dispatcher.Dispatch(ctx, d.Index, granularityLabel(d), summary.RunID)
	if err != nil {
		summary.Failed++
		summary.FailedIndices = append(summary.FailedIndices, d.Index)
		observability.RecordError("optimizer", "enqueue")
		log.WithError(err).Errorf("Error enqueueing index: %s", d.Index)

		return
	}

	if !enqueued {
		log.Infof("Index %s is already queued for optimization", d.Index)

		return
	}

	summary.Enqueued++
	log.Infof("Enqueued index %s because it is %s newer than cutoff", d.Index, -d.Offset)
}

func (s *Service) finish(log logrus.FieldLogger, summary *Summary, start time.Time, status string) {
	summary.Duration = time.Since(start)

	observability.RecordRun(status, summary.Duration.Seconds(), float64(time.Now().Unix()))

	log.WithFields(logrus.Fields{
		"considered": summary.Considered,
		"selected":   summary.Selected,
		"optimized":  summary.Optimized,
		"enqueued":   summary.Enqueued,
		"failed":     summary.Failed,
		"skipped":    summary.Skipped,
		"dry_run":    summary.DryRun,
	}).Infof("Done in %s", summary.Duration)
}

func (s *Service) logWindows(log logrus.FieldLogger) {
	cfg := s.config.Selector

	if cfg.DaysToOptimize > 0 {
		log.Infof("Optimizing daily indices newer than %d days", cfg.DaysToOptimize)
	}

	if cfg.HoursToOptimize > 0 {
		log.Infof("Optimizing hourly indices newer than %d hours", cfg.HoursToOptimize)
	}
}

func (s *Service) now() time.Time {
	return selector.AdjustedNow(s.clock())
}

// granularityLabel is "unknown" for indices whose suffix was never parsed
func granularityLabel(d selector.Decision) string {
	if d.Outcome == selector.OutcomeMissingPrefix || d.Outcome == selector.OutcomeInvalidTimestamp {
		return "unknown"
	}

	return d.Granularity.String()
}
