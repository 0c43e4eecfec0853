package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/biotrack-api/internal/domain"
	"github.com/phrazzld/biotrack-api/internal/domain/recurrence"
	"github.com/phrazzld/biotrack-api/internal/store"
)

// ReminderService evaluates schedules for dueness and records firings. It
// pairs the pure recurrence engine with the store's monotonic trigger
// update, so the dispatcher never touches either directly.
type ReminderService struct {
	schedules store.ScheduleStore
	txRunner  store.TxRunner
	logger    *slog.Logger
}

// NewReminderService creates a ReminderService with the given dependencies.
// Panics if any dependency is nil, since that is a programming error.
func NewReminderService(schedules store.ScheduleStore, txRunner store.TxRunner, logger *slog.Logger) *ReminderService {
	if schedules == nil {
		panic("schedule store cannot be nil")
	}
	if txRunner == nil {
		panic("transaction runner cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &ReminderService{
		schedules: schedules,
		txRunner:  txRunner,
		logger:    logger.With("component", "reminder_service"),
	}
}

// DueSchedules returns every schedule with an occurrence at or before
// asOf that has not yet been recorded. "Nothing due" is an empty result,
// never an error.
func (s *ReminderService) DueSchedules(ctx context.Context, asOf time.Time) ([]*domain.Schedule, error) {
	active, err := s.schedules.ListActive(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to list active schedules: %w", err)
	}
	var due []*domain.Schedule
	for _, sched := range active {
		if recurrence.IsDue(sched, asOf) {
			due = append(due, sched)
		}
	}
	return due, nil
}

// NextOccurrence reports the schedule's earliest untriggered occurrence at
// or after asOf. The second return value is false when none remains.
func (s *ReminderService) NextOccurrence(sched *domain.Schedule, asOf time.Time) (time.Time, bool) {
	return recurrence.NextOccurrence(sched, asOf)
}

// MarkTriggered records a firing of the schedule at firedAt. The domain
// check and the persisted advancement run inside one write transaction, so
// concurrent firings of the same schedule serialize and only the first
// passes; later duplicates fail with domain.ErrStaleTrigger. Recording an
// identical firedAt twice is an idempotent no-op.
func (s *ReminderService) MarkTriggered(ctx context.Context, sched *domain.Schedule, firedAt time.Time) (*domain.Schedule, error) {
	var updated *domain.Schedule
	err := s.txRunner.RunInWriteTx(ctx, func(ctx context.Context, st store.Stores) error {
		// Re-read inside the transaction: the in-memory copy may lag a
		// firing recorded since it was loaded.
		current, err := st.Schedules.GetByID(ctx, sched.ID)
		if err != nil {
			return err
		}
		next, err := recurrence.MarkTriggered(current, firedAt)
		if err != nil {
			return err
		}
		if err := st.Schedules.UpdateLastTriggered(ctx, sched.ID, firedAt.UTC()); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	if missed := recurrence.MissedOccurrences(sched, firedAt); missed > 0 {
		s.logger.Info("catch-up firing recorded",
			"schedule_id", sched.ID, "missed_occurrences", missed)
	} else {
		s.logger.Debug("firing recorded", "schedule_id", sched.ID, "fired_at", firedAt)
	}
	return updated, nil
}
