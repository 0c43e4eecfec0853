package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/phrazzld/biotrack-api/internal/domain"
)

// WorkerPool manages a pool of worker goroutines that process reminders
// from the queue. Each worker claims the firing first and notifies second,
// so a reminder enqueued twice is delivered at most once: the second claim
// fails the stale-trigger guard and is dropped.
type WorkerPool struct {
	queue       QueueReader
	triggerer   Triggerer
	notifier    Notifier
	workerCount int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	logger      *slog.Logger
}

// WorkerPoolConfig holds configuration options for the worker pool.
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to
	// start. If zero or negative, defaults to 1.
	WorkerCount int
}

// NewWorkerPool creates a new worker pool with the specified configuration.
func NewWorkerPool(
	queue QueueReader,
	triggerer Triggerer,
	notifier Notifier,
	config WorkerPoolConfig,
	logger *slog.Logger,
) *WorkerPool {
	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		queue:       queue,
		triggerer:   triggerer,
		notifier:    notifier,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// Start launches the worker goroutines.
func (p *WorkerPool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("worker pool started", "worker_count", p.workerCount)
}

// Stop signals the workers to finish and waits for them to exit.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("stopping worker", "worker_id", id)
			return

		case r, ok := <-p.queue.GetChannel():
			if !ok {
				p.logger.Debug("reminder channel closed, stopping worker", "worker_id", id)
				return
			}
			p.process(r, id)
		}
	}
}

// process claims and delivers a single reminder.
func (p *WorkerPool) process(r Reminder, workerID int) {
	ctx := p.ctx
	log := p.logger.With(
		"reminder_id", r.ID,
		"schedule_id", r.Schedule.ID,
		"worker_id", workerID,
	)

	// Claim before notifying. Only one worker can advance the trigger past
	// a given occurrence; the loser sees a stale trigger and drops the
	// duplicate without notifying.
	updated, err := p.triggerer.MarkTriggered(ctx, r.Schedule, r.DueAt)
	if err != nil {
		if errors.Is(err, domain.ErrStaleTrigger) {
			log.Debug("reminder already claimed, dropping duplicate")
			return
		}
		log.Error("failed to record reminder firing", "error", err)
		return
	}

	r.Schedule = updated
	if err := p.notifier.Notify(ctx, r); err != nil {
		// The firing is recorded; delivery failure is reported, not
		// retried, since retrying would fail the stale-trigger guard.
		log.Error("reminder notification failed", "error", err)
		return
	}

	log.Info("reminder delivered", "due_at", r.DueAt)
}
