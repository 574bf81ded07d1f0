package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/agentlens/agentlens/internal/metrics"
	"github.com/agentlens/agentlens/internal/store"
	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
)

// Queue is the claim/finish surface of the background job table.
type Queue interface {
	ClaimJob(ctx context.Context) (*store.Job, error)
	CompleteJob(ctx context.Context, id uuid.UUID) error
	FailJob(ctx context.Context, id uuid.UUID, errMsg string) error
}

// Worker polls the queue and dispatches claimed jobs to their handlers.
type Worker struct {
	queue        Queue
	runner       *RunnerJob
	guardrail    *GuardrailJob
	concurrency  int
	pollInterval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker creates a worker pool. Concurrency below 1 is raised to 1 and a
// non-positive poll interval falls back to one second.
func NewWorker(queue Queue, runner *RunnerJob, guardrail *GuardrailJob, concurrency int, pollInterval time.Duration) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Worker{
		queue:        queue,
		runner:       runner,
		guardrail:    guardrail,
		concurrency:  concurrency,
		pollInterval: pollInterval,
	}
}

// Start launches the worker goroutines. It returns immediately; call Stop to
// drain.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	clog.FromContext(ctx).
		With("concurrency", w.concurrency).
		With("poll_interval", w.pollInterval).
		Info("starting background workers")

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.loop(clog.WithLogger(ctx, clog.FromContext(ctx).With("worker", id)))
		}(i)
	}
}

// Stop signals the workers and waits for in-flight jobs to finish.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Worker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		// Drain the queue before going back to sleep.
		for {
			if ctx.Err() != nil {
				return
			}
			job, err := w.queue.ClaimJob(ctx)
			if err != nil {
				clog.FromContext(ctx).Error("failed to claim job", "error", err)
				break
			}
			if job == nil {
				break
			}
			w.process(ctx, job)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// process dispatches one claimed job and records its outcome on both the
// queue row and the metrics.
func (w *Worker) process(ctx context.Context, job *store.Job) {
	log := clog.FromContext(ctx).With("job_id", job.ID).With("job_type", job.Type)
	ctx = clog.WithLogger(ctx, log)
	start := time.Now()

	err := w.dispatch(ctx, job)

	metrics.ObserveJobDuration(job.Type, time.Since(start).Seconds())
	if err != nil {
		metrics.RecordJobProcessed(job.Type, store.JobStatusFailed)
		log.Error("job failed", "error", err, "duration", time.Since(start))
		if failErr := w.queue.FailJob(ctx, job.ID, err.Error()); failErr != nil {
			log.Error("failed to record job failure", "error", failErr)
		}
		return
	}

	metrics.RecordJobProcessed(job.Type, store.JobStatusDone)
	log.Info("job completed", "duration", time.Since(start))
	if err := w.queue.CompleteJob(ctx, job.ID); err != nil {
		log.Error("failed to record job completion", "error", err)
	}
}

func (w *Worker) dispatch(ctx context.Context, job *store.Job) error {
	switch job.Type {
	case JobTypeDatasetRun:
		var payload RunnerPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("failed to decode dataset run payload: %w", err)
		}
		return w.runner.Execute(ctx, payload.DatasetRunID)
	case JobTypeModeration:
		args, err := ParseGuardrailArgs(job.Payload)
		if err != nil {
			return err
		}
		return w.guardrail.Execute(ctx, args)
	default:
		return fmt.Errorf("unknown job type %q", job.Type)
	}
}
