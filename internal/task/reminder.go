// Package task runs the reminder dispatch pipeline: a ticker evaluates
// schedules for dueness, due schedules become reminders on a buffered
// queue, and a worker pool claims each reminder and notifies.
package task

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/biotrack-api/internal/domain"
)

// Reminder is a unit of dispatch work: one due occurrence of one schedule.
type Reminder struct {
	// ID identifies this dispatch attempt, not the schedule.
	ID uuid.UUID

	// Schedule is the due schedule as loaded at evaluation time.
	Schedule *domain.Schedule

	// DueAt is the occurrence that made the schedule due.
	DueAt time.Time

	// EnqueuedAt is when the dispatcher put the reminder on the queue.
	EnqueuedAt time.Time
}

// NewReminder builds a reminder for the given due occurrence.
func NewReminder(sched *domain.Schedule, dueAt time.Time) Reminder {
	return Reminder{
		ID:         uuid.New(),
		Schedule:   sched,
		DueAt:      dueAt,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Notifier delivers a claimed reminder to the user-facing surface.
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, r Reminder) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, r Reminder) error {
	return f(ctx, r)
}

// ScheduleSource supplies due schedules for dispatch.
type ScheduleSource interface {
	// DueSchedules returns every schedule due as of asOf; empty when
	// nothing is due.
	DueSchedules(ctx context.Context, asOf time.Time) ([]*domain.Schedule, error)

	// NextOccurrence reports the schedule's earliest untriggered
	// occurrence at or after asOf.
	NextOccurrence(s *domain.Schedule, asOf time.Time) (time.Time, bool)
}

// Triggerer records a firing. Implementations enforce the monotonic
// stale-trigger guard, so a reminder claimed by two workers is recorded
// exactly once.
type Triggerer interface {
	MarkTriggered(ctx context.Context, s *domain.Schedule, firedAt time.Time) (*domain.Schedule, error)
}

// QueueReader provides read-only access to the reminder channel, allowing
// workers to consume reminders without the ability to enqueue.
type QueueReader interface {
	GetChannel() <-chan Reminder
}

// QueueWriter provides write access to the reminder queue.
type QueueWriter interface {
	// Enqueue adds a reminder to the queue for processing.
	// Returns an error if the queue is full or closed.
	Enqueue(r Reminder) error

	// Close closes the queue, preventing further submission.
	Close()
}
