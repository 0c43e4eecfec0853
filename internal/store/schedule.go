package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/biotrack-api/internal/domain"
)

// ScheduleStore defines the interface for schedule persistence.
type ScheduleStore interface {
	// Create saves a new schedule. Returns ErrReferentialIntegrity if the
	// owning person does not exist.
	Create(ctx context.Context, s *domain.Schedule) error

	// GetByID retrieves a schedule by ID.
	// Returns ErrScheduleNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error)

	// Update replaces the schedule's full record except the last-triggered
	// field, which only advances through UpdateLastTriggered. This keeps a
	// stale full-record write from regressing a recorded firing.
	// Returns ErrScheduleNotFound if absent.
	Update(ctx context.Context, s *domain.Schedule) error

	// UpdateLastTriggered advances the last-triggered field to firedAt.
	// The update is monotonic: a firedAt at or before the stored value
	// leaves the row unchanged and returns domain.ErrStaleTrigger, except
	// that repeating the stored value exactly is an idempotent no-op.
	UpdateLastTriggered(ctx context.Context, id uuid.UUID, firedAt time.Time) error

	// Delete removes a schedule. Datapoints are never cascaded from here.
	// Returns ErrScheduleNotFound if absent.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListForPerson returns the person's schedules ordered by creation time.
	ListForPerson(ctx context.Context, personID uuid.UUID) ([]*domain.Schedule, error)

	// ListActive returns all schedules that are neither suspended nor past
	// their end date as of asOf; the dispatcher evaluates these for dueness.
	ListActive(ctx context.Context, asOf time.Time) ([]*domain.Schedule, error)

	// WithTx returns a ScheduleStore bound to the given transaction.
	WithTx(tx *sql.Tx) ScheduleStore
}
