package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/events"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/metrics"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/store"
)

// ErrUnknownJobType marks a job whose type has no registered handler. The
// job fails terminally; the worker keeps running.
var ErrUnknownJobType = errors.New("unknown job type")

// Handler performs the work for one job. A nil return completes the job;
// an error routes it through retry-then-terminal-failure.
type Handler func(ctx context.Context, job *store.Job) error

// Registry maps the closed set of job types to handlers. Registration of an
// unlisted type fails at startup rather than at dispatch time.
type Registry struct {
	handlers map[store.JobType]Handler
}

var knownTypes = map[store.JobType]bool{
	store.JobRescore:          true,
	store.JobReportGeneration: true,
	store.JobDataSync:         true,
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[store.JobType]Handler)}
}

func (r *Registry) Register(t store.JobType, h Handler) error {
	if !knownTypes[t] {
		return fmt.Errorf("%w: %s", ErrUnknownJobType, t)
	}
	if _, dup := r.handlers[t]; dup {
		return fmt.Errorf("handler already registered for %s", t)
	}
	r.handlers[t] = h
	return nil
}

func (r *Registry) handler(t store.JobType) (Handler, bool) {
	h, ok := r.handlers[t]
	return h, ok
}

// Config tunes the polling worker.
type Config struct {
	PollInterval      time.Duration
	BatchSize         int
	JobTimeout        time.Duration
	RetryBackoff      time.Duration // base; doubles per attempt
	StuckAfter        time.Duration // processing longer than this gets requeued
	ReconcileInterval time.Duration
}

// Worker polls the job table, claims due jobs in bounded batches, and
// dispatches them by type. Delivery is at-least-once: the reconciler loop
// requeues jobs orphaned by a crash between claim and completion.
type Worker struct {
	store    store.Store
	registry *Registry
	events   events.Client
	cfg      Config
	logger   *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewWorker(s store.Store, registry *Registry, ev events.Client, cfg Config, logger *slog.Logger) *Worker {
	return &Worker{
		store:    s,
		registry: registry,
		events:   ev,
		cfg:      cfg,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(2)
	go w.pollLoop(ctx)
	go w.reconcileLoop(ctx)
}

func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

func (w *Worker) pollLoop(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch claims and runs one bounded batch of due jobs. Exported so a
// single poll can be driven directly in tests and tooling.
func (w *Worker) ProcessBatch(ctx context.Context) {
	jobs, err := w.store.ClaimDueJobs(ctx, time.Now().UTC(), w.cfg.BatchSize)
	if err != nil {
		w.logger.Error("failed to claim jobs", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}
	w.logger.Info("claimed jobs", "count", len(jobs))

	var batch sync.WaitGroup
	for _, job := range jobs {
		batch.Add(1)
		go func(job *store.Job) {
			defer batch.Done()
			w.runJob(ctx, job)
		}(job)
	}
	batch.Wait()
}

func (w *Worker) runJob(ctx context.Context, job *store.Job) {
	handler, ok := w.registry.handler(job.Type)
	if !ok {
		// A bad type is that job's failure, not the worker's.
		msg := fmt.Sprintf("%v: %s", ErrUnknownJobType, job.Type)
		if err := w.store.FailJob(ctx, job.ID, msg); err != nil {
			w.logger.Error("failed to mark unknown-type job failed", "job_id", job.ID, "error", err)
			return
		}
		metrics.JobsProcessed.WithLabelValues(string(job.Type), "failed").Inc()
		w.publishFailed(job, msg)
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
	err := w.safeRun(jobCtx, handler, job)
	cancel()

	if err == nil {
		if err := w.store.CompleteJob(ctx, job.ID); err != nil {
			w.logger.Error("failed to complete job", "job_id", job.ID, "error", err)
			return
		}
		metrics.JobsProcessed.WithLabelValues(string(job.Type), "completed").Inc()
		if w.events != nil {
			_ = w.events.Publish(events.SubjectJobCompleted(job.ID.String()), events.JobCompletedEvent{
				JobID:    job.ID.String(),
				Type:     string(job.Type),
				Attempts: job.Attempts,
			})
		}
		w.logger.Info("job completed", "job_id", job.ID, "type", job.Type, "attempts", job.Attempts)
		return
	}

	if job.Attempts < job.MaxAttempts {
		nextRun := time.Now().UTC().Add(w.backoff(job.Attempts))
		if rerr := w.store.RetryJob(ctx, job.ID, err.Error(), nextRun); rerr != nil {
			w.logger.Error("failed to requeue job", "job_id", job.ID, "error", rerr)
			return
		}
		metrics.JobsProcessed.WithLabelValues(string(job.Type), "retried").Inc()
		if w.events != nil {
			_ = w.events.Publish(events.SubjectJobRetried(job.ID.String()), events.JobRetriedEvent{
				JobID:       job.ID.String(),
				Type:        string(job.Type),
				Attempts:    job.Attempts,
				MaxAttempts: job.MaxAttempts,
				NextRunAt:   nextRun,
				Error:       err.Error(),
			})
		}
		w.logger.Warn("job failed, requeued", "job_id", job.ID, "type", job.Type,
			"attempts", job.Attempts, "max_attempts", job.MaxAttempts, "error", err)
		return
	}

	if ferr := w.store.FailJob(ctx, job.ID, err.Error()); ferr != nil {
		w.logger.Error("failed to mark job failed", "job_id", job.ID, "error", ferr)
		return
	}
	metrics.JobsProcessed.WithLabelValues(string(job.Type), "failed").Inc()
	w.publishFailed(job, err.Error())
	w.logger.Error("job failed permanently", "job_id", job.ID, "type", job.Type,
		"attempts", job.Attempts, "error", err)
}

// safeRun keeps a panicking handler from taking the worker down with it.
func (w *Worker) safeRun(ctx context.Context, handler Handler, job *store.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, job)
}

// backoff grows per attempt so a flapping dependency is not hammered:
// base, 2*base, 4*base, ...
func (w *Worker) backoff(attempts int) time.Duration {
	d := w.cfg.RetryBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
	}
	return d
}

func (w *Worker) publishFailed(job *store.Job, msg string) {
	if w.events == nil {
		return
	}
	_ = w.events.Publish(events.SubjectJobFailed(job.ID.String()), events.JobFailedEvent{
		JobID:    job.ID.String(),
		Type:     string(job.Type),
		Attempts: job.Attempts,
		Error:    msg,
	})
}

func (w *Worker) reconcileLoop(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-w.cfg.StuckAfter)
			n, err := w.store.RequeueStuckJobs(ctx, cutoff)
			if err != nil {
				w.logger.Error("stuck-job reconciliation failed", "error", err)
				continue
			}
			if n > 0 {
				metrics.JobsRequeued.Add(float64(n))
				w.logger.Warn("requeued stuck jobs", "count", n)
			}
		}
	}
}
