package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DispatcherConfig holds configuration for the reminder dispatcher.
type DispatcherConfig struct {
	// TickInterval is how often schedules are evaluated for dueness.
	// If zero, defaults to one minute.
	TickInterval time.Duration
}

// Dispatcher owns the evaluation tick: on each tick it asks the schedule
// source for everything due and enqueues a reminder per due schedule.
// Dueness is evaluated against wall-clock now on every tick, so a late
// tick (sleep, suspend, slow host) catches up naturally: occurrences due
// during the gap are still due and are picked up by the next evaluation.
type Dispatcher struct {
	source ScheduleSource
	queue  QueueWriter
	config DispatcherConfig
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// now is swappable for tests.
	now func() time.Time
}

// NewDispatcher creates a dispatcher with the given dependencies.
func NewDispatcher(source ScheduleSource, queue QueueWriter, config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if config.TickInterval <= 0 {
		config.TickInterval = time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		source: source,
		queue:  queue,
		config: config,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Start launches the tick loop. An immediate evaluation runs before the
// first tick so reminders missed while the process was down go out at
// startup rather than one interval later.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
	d.logger.Info("dispatcher started", "tick_interval", d.config.TickInterval)
}

// Stop halts the tick loop and waits for it to exit. The queue is left
// open; the caller closes it once the workers should drain and stop.
func (d *Dispatcher) Stop() {
	d.cancel()
	d.wg.Wait()
	d.logger.Info("dispatcher stopped")
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.TickInterval)
	defer ticker.Stop()

	d.Evaluate(d.ctx)

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.Evaluate(d.ctx)
		}
	}
}

// Evaluate runs one dueness pass: every schedule due as of now is turned
// into a reminder and enqueued. Exported for tests and for callers that
// want an on-demand pass outside the tick.
func (d *Dispatcher) Evaluate(ctx context.Context) {
	asOf := d.now()
	due, err := d.source.DueSchedules(ctx, asOf)
	if err != nil {
		d.logger.Error("failed to evaluate due schedules", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	enqueued := 0
	for _, sched := range due {
		occ, ok := d.source.NextOccurrence(sched, asOf)
		if !ok {
			continue
		}
		if err := d.queue.Enqueue(NewReminder(sched, occ)); err != nil {
			if errors.Is(err, ErrQueueClosed) {
				return
			}
			// A full queue is back-pressure, not data loss: the schedule
			// stays untriggered and the next tick re-evaluates it.
			d.logger.Warn("failed to enqueue reminder",
				"schedule_id", sched.ID, "error", err)
			continue
		}
		enqueued++
	}
	d.logger.Info("dueness pass complete",
		"as_of", asOf, "due_count", len(due), "enqueued", enqueued)
}
