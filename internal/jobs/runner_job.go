package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentlens/agentlens/internal/models"
	"github.com/agentlens/agentlens/internal/store"
	"github.com/chainguard-dev/clog"
)

// RunnerPayload is the queue payload for dataset run jobs.
type RunnerPayload struct {
	DatasetRunID int64 `json:"dataset_run_id"`
}

// RunnerStore is the persistence surface the runner job needs beyond the
// service itself.
type RunnerStore interface {
	GetDatasetRun(ctx context.Context, id int64) (*models.DatasetRun, error)
	MarkDatasetRunFailed(ctx context.Context, id int64, diag models.Metadata) error
}

// RunnerService executes one dataset run. Satisfied by *runner.Service.
type RunnerService interface {
	Run(ctx context.Context, datasetRunID int64) error
}

// RunnerJob is the asynchronous wrapper around the runner service. Delivery
// is at-least-once; the status pre-check plus the score upsert key make
// duplicate deliveries converge.
type RunnerJob struct {
	store   RunnerStore
	service RunnerService
	retry   RetryPolicy
}

// NewRunnerJob creates a runner job with the default retry policy.
func NewRunnerJob(st RunnerStore, svc RunnerService) *RunnerJob {
	return &RunnerJob{
		store:   st,
		service: svc,
		retry: DefaultRetryPolicy(func(err error) Class {
			if errors.Is(err, store.ErrNotFound) {
				return ClassDiscard
			}
			return ClassTransient
		}),
	}
}

// Execute runs the dataset evaluation for one run id. Runs that are already
// running or finished are skipped (idempotent no-op on duplicate delivery).
// Transient failures retry per policy; on exhaustion the run is marked failed
// with diagnostic metadata and the error is returned for queue bookkeeping.
func (j *RunnerJob) Execute(ctx context.Context, datasetRunID int64) error {
	log := clog.FromContext(ctx).With("dataset_run_id", datasetRunID)

	run, err := j.store.GetDatasetRun(ctx, datasetRunID)
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("dataset run no longer exists, discarding job")
		return nil
	}
	if err != nil {
		return err
	}

	if run.Status.Terminal() || run.Status == models.RunStatusRunning {
		log.Info("dataset run already in progress or finished, skipping", "status", run.Status)
		return nil
	}

	err = j.retry.Do(ctx, fmt.Sprintf("dataset run %d", datasetRunID), func(ctx context.Context) error {
		return j.service.Run(ctx, datasetRunID)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("dataset run disappeared during evaluation, discarding job")
		return nil
	}

	j.markFailed(ctx, datasetRunID, err)
	return err
}

// markFailed is the terminal-failure handler: it re-fetches the run and, when
// still present, marks it failed with diagnostics merged into its metadata.
// It is the last line of defense and never reports an error of its own.
func (j *RunnerJob) markFailed(ctx context.Context, datasetRunID int64, cause error) {
	log := clog.FromContext(ctx).With("dataset_run_id", datasetRunID)

	if _, err := j.store.GetDatasetRun(ctx, datasetRunID); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Error("could not fetch dataset run for failure bookkeeping", "error", err)
		}
		return
	}

	diag := models.Metadata{
		models.MetaKeyError:            cause.Error(),
		models.MetaKeyErrorClass:       errorClass(cause),
		models.MetaKeyFailedAt:         time.Now().UTC().Format(time.RFC3339),
		models.MetaKeyRetriesExhausted: true,
	}
	if err := j.store.MarkDatasetRunFailed(ctx, datasetRunID, diag); err != nil {
		log.Error("could not mark dataset run failed", "error", err)
		return
	}
	log.Error("dataset run failed terminally", "error", cause)
}

// errorClass derives a stable classification tag from the innermost error's
// concrete type.
func errorClass(err error) string {
	for {
		inner := errors.Unwrap(err)
		if inner == nil {
			return fmt.Sprintf("%T", err)
		}
		err = inner
	}
}
