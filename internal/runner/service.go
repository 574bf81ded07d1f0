// Package runner orchestrates dataset runs: each run item is fed through the
// configured evaluator set and the run's status is rolled up when all items
// have been processed.
package runner

import (
	"context"
	"fmt"

	"github.com/agentlens/agentlens/internal/evaluators"
	"github.com/agentlens/agentlens/internal/metrics"
	"github.com/agentlens/agentlens/internal/models"
	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"
)

// Store is the persistence surface the runner needs. Satisfied by
// *store.Store.
type Store interface {
	GetDatasetRun(ctx context.Context, id int64) (*models.DatasetRun, error)
	TransitionDatasetRun(ctx context.Context, id int64, from []models.RunStatus, to models.RunStatus) (bool, error)
	ListRunItems(ctx context.Context, datasetRunID int64) ([]models.RunItem, error)
	MarkRunItemEvaluated(ctx context.Context, itemID int64, outputMatch *bool) error
	UpsertScore(ctx context.Context, score *models.Score) error
}

// Service runs dataset evaluations.
type Service struct {
	store      Store
	evaluators []evaluators.Evaluator
	workers    int
}

// Option configures a Service.
type Option func(*Service)

// WithWorkers bounds per-item parallelism. The default is sequential
// processing.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// New creates a runner service over the given evaluator set.
func New(st Store, evs []evaluators.Evaluator, opts ...Option) *Service {
	s := &Service{
		store:      st,
		evaluators: evs,
		workers:    1,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run evaluates every item of the dataset run and rolls the run status up to
// completed. A run already in a terminal state is a no-op. The pending →
// running transition is a conditional single-record update: losing that race
// to a concurrent delivery also ends as a no-op, and the score upsert key
// keeps the persisted state convergent even when two deliveries slip past
// the check simultaneously. Unexpected errors leave the run in running and
// propagate to the job layer, which owns retry and terminal bookkeeping.
func (s *Service) Run(ctx context.Context, datasetRunID int64) error {
	log := clog.FromContext(ctx).With("dataset_run_id", datasetRunID)

	run, err := s.store.GetDatasetRun(ctx, datasetRunID)
	if err != nil {
		return err
	}

	if run.Status.Terminal() {
		log.Info("dataset run already finished, nothing to do", "status", run.Status)
		return nil
	}

	if run.Status == models.RunStatusPending {
		started, err := s.store.TransitionDatasetRun(ctx, datasetRunID,
			[]models.RunStatus{models.RunStatusPending}, models.RunStatusRunning)
		if err != nil {
			return err
		}
		if !started {
			log.Info("dataset run claimed by a concurrent execution")
			return nil
		}
	}

	items, err := s.store.ListRunItems(ctx, datasetRunID)
	if err != nil {
		return err
	}

	log.Info("evaluating dataset run", "items", len(items), "evaluators", len(s.evaluators))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range items {
		item := &items[i]
		g.Go(func() error {
			return s.evaluateItem(gctx, item)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	completed, err := s.store.TransitionDatasetRun(ctx, datasetRunID,
		[]models.RunStatus{models.RunStatusRunning}, models.RunStatusCompleted)
	if err != nil {
		return err
	}
	if completed {
		log.Info("dataset run completed")
	}
	return nil
}

// evaluateItem runs every evaluator against one item and records the derived
// output-match result. Evaluator "not applicable" answers are normal; only
// genuinely unexpected conditions surface as errors.
func (s *Service) evaluateItem(ctx context.Context, item *models.RunItem) error {
	for _, ev := range s.evaluators {
		value, err := evaluators.Apply(ctx, ev, item, s.store)
		if err != nil {
			return fmt.Errorf("run item %d: %w", item.ID, err)
		}
		if value != nil {
			metrics.RecordScoreWritten(ev.Name())
		}
	}

	var match *bool
	if !item.ExpectedOutput.IsEmpty() {
		m := item.OutputMatches()
		match = &m
	}
	if err := s.store.MarkRunItemEvaluated(ctx, item.ID, match); err != nil {
		return fmt.Errorf("run item %d: %w", item.ID, err)
	}
	return nil
}
