package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"polizalab/internal/policy/extraction"
	"polizalab/internal/policy/jobs"
)

// Watcher polls the extractor for jobs whose callback never arrived.
// It is a backstop to the webhook, not the primary completion path.
type Watcher struct {
	service   *Service
	extractor extraction.Client
	registry  jobs.Registry
	logger    *slog.Logger
	interval  time.Duration
	// fetches per sweep run concurrently up to this bound
	concurrency int
}

func NewWatcher(svc *Service, extractor extraction.Client, registry jobs.Registry, logger *slog.Logger, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Watcher{
		service:     svc,
		extractor:   extractor,
		registry:    registry,
		logger:      logger,
		interval:    interval,
		concurrency: 4,
	}
}

// Run sweeps pending jobs until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Watcher) sweep(ctx context.Context) {
	pending, err := w.registry.Pending(ctx)
	if err != nil {
		w.logger.WarnContext(ctx, "failed to list pending extraction jobs", "error", err.Error())
		return
	}
	if len(pending) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, job := range pending {
		job := job
		g.Go(func() error {
			w.check(gctx, job)
			return nil
		})
	}
	_ = g.Wait()
}

func (w *Watcher) check(ctx context.Context, job jobs.Job) {
	result, err := w.extractor.FetchResult(ctx, job.JobID)
	if err != nil {
		w.logger.WarnContext(ctx, "extraction status fetch failed",
			"policy_id", job.PolicyID,
			"job_id", job.JobID,
			"error", err.Error(),
		)
		return
	}
	if result.State == extraction.StatePending {
		return
	}
	if err := w.service.CompleteExtraction(ctx, job.PolicyID, result); err != nil {
		// A conflict here means the callback won the race; drop the
		// registry entry either way so we stop re-checking.
		w.logger.InfoContext(ctx, "extraction completion skipped",
			"policy_id", job.PolicyID,
			"job_id", job.JobID,
			"reason", err.Error(),
		)
		_ = w.registry.Remove(ctx, job.PolicyID)
	}
}
