package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roughcut/roughcut-agent/internal/run"
)

// Runner polls the repository for pending runs and executes them one at a
// time. Concurrency lives inside a run (the director pool), not across runs,
// so two runs never contend for the local model.
type Runner struct {
	pipeline     *Pipeline
	repo         run.Repository
	logger       *slog.Logger
	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool
}

func NewRunner(pipeline *Pipeline, repo run.Repository, logger *slog.Logger) *Runner {
	return &Runner{
		pipeline:     pipeline,
		repo:         repo,
		logger:       logger,
		pollInterval: 5 * time.Second,
	}
}

// Start blocks, polling for pending runs until the context is cancelled.
func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("run runner started", "poll_interval", r.pollInterval)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("run runner stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.processNextRun(ctx)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("run runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("run runner resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

func (r *Runner) processNextRun(ctx context.Context) {
	pending, err := r.repo.ListPendingRuns(ctx)
	if err != nil {
		r.logger.Error("failed to list pending runs", "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	next := pending[0]
	r.logger.Info("processing run", "run_id", next.ID, "stage", next.Stage)

	// Execute marks the run failed itself; the error here is for the log.
	if err := r.pipeline.Execute(ctx, next); err != nil {
		r.logger.Error("run execution failed", "run_id", next.ID, "error", err)
	}
}
