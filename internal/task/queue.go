package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Common errors returned by the ReminderQueue.
var (
	ErrQueueClosed = errors.New("reminder queue is closed")
	ErrQueueFull   = errors.New("reminder queue is full")
)

// ReminderQueue implements a buffered reminder queue that satisfies both
// the QueueReader and QueueWriter interfaces.
type ReminderQueue struct {
	reminders chan Reminder
	logger    *slog.Logger
	mu        sync.Mutex
	closed    bool
}

// NewReminderQueue creates a new reminder queue with the specified buffer
// size.
func NewReminderQueue(size int, logger *slog.Logger) *ReminderQueue {
	return &ReminderQueue{
		reminders: make(chan Reminder, size),
		logger:    logger,
	}
}

// Enqueue adds a reminder to the queue for processing.
// Returns an error if the queue is full or closed.
func (q *ReminderQueue) Enqueue(r Reminder) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.reminders <- r:
		q.logger.Debug("reminder enqueued",
			"reminder_id", r.ID,
			"schedule_id", r.Schedule.ID,
			"due_at", r.DueAt,
			"queue_len", len(q.reminders),
			"queue_cap", cap(q.reminders))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.reminders))
	}
}

// Close closes the reminder queue, preventing further submission. Workers
// drain what remains on the channel.
func (q *ReminderQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.reminders)
		q.logger.Info("reminder queue closed")
	}
}

// GetChannel returns a read-only channel for consuming reminders.
func (q *ReminderQueue) GetChannel() <-chan Reminder {
	return q.reminders
}
