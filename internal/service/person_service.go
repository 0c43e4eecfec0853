// Package service composes the domain model with the persistence layer
// into the operations the application surfaces: people and their tracking
// configuration, recorded readings, and reminder dispatch.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/biotrack-api/internal/domain"
	"github.com/phrazzld/biotrack-api/internal/store"
)

// PersonService manages people, their tracking configurations, and their
// schedules.
type PersonService struct {
	people    store.PersonStore
	schedules store.ScheduleStore
	txRunner  store.TxRunner
	logger    *slog.Logger
}

// NewPersonService creates a PersonService with the given dependencies.
// Panics if any dependency is nil, since that is a programming error.
func NewPersonService(
	people store.PersonStore,
	schedules store.ScheduleStore,
	txRunner store.TxRunner,
	logger *slog.Logger,
) *PersonService {
	if people == nil {
		panic("person store cannot be nil")
	}
	if schedules == nil {
		panic("schedule store cannot be nil")
	}
	if txRunner == nil {
		panic("transaction runner cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &PersonService{
		people:    people,
		schedules: schedules,
		txRunner:  txRunner,
		logger:    logger.With("component", "person_service"),
	}
}

// Register creates a new person.
func (s *PersonService) Register(ctx context.Context, name string, dateOfBirth time.Time) (*domain.Person, error) {
	person, err := domain.NewPerson(name, dateOfBirth)
	if err != nil {
		return nil, err
	}
	if err := s.people.Create(ctx, person); err != nil {
		return nil, fmt.Errorf("failed to create person: %w", err)
	}
	s.logger.Info("person registered", "person_id", person.ID, "name", person.Name)
	return person, nil
}

// Get retrieves a person with tracking configurations and schedules loaded.
func (s *PersonService) Get(ctx context.Context, id uuid.UUID) (*domain.Person, error) {
	return s.people.GetByID(ctx, id)
}

// List returns all people ordered by name.
func (s *PersonService) List(ctx context.Context) ([]*domain.Person, error) {
	return s.people.List(ctx)
}

// Rename updates the person's identity fields.
func (s *PersonService) Rename(ctx context.Context, id uuid.UUID, name string, dateOfBirth time.Time) (*domain.Person, error) {
	person, err := s.people.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	person.Name = name
	person.DateOfBirth = domain.DateOf(dateOfBirth)
	person.UpdatedAt = time.Now().UTC()
	if err := person.Validate(); err != nil {
		return nil, err
	}
	if err := s.people.Update(ctx, person); err != nil {
		return nil, fmt.Errorf("failed to update person: %w", err)
	}
	return person, nil
}

// Delete removes a person together with their tracking configurations,
// schedules, and datapoints in a single transaction.
func (s *PersonService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.txRunner.RunInWriteTx(ctx, func(ctx context.Context, st store.Stores) error {
		return st.People.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("person deleted", "person_id", id)
	return nil
}

// AddTrackedType starts tracking a datapoint type for the person in the
// given unit, persisting the configuration. Returns
// domain.ErrAlreadyTracked when a configuration for the type exists.
func (s *PersonService) AddTrackedType(ctx context.Context, personID uuid.UUID, t domain.DatapointType, unit domain.Unit) error {
	person, err := s.people.GetByID(ctx, personID)
	if err != nil {
		return err
	}
	if err := person.AddTrackedType(t, unit); err != nil {
		return err
	}
	cfg := domain.TrackingConfig{PersonID: personID, Type: t, Tracked: true, Unit: unit}
	if err := s.people.SaveTrackingConfig(ctx, cfg); err != nil {
		return fmt.Errorf("failed to save tracking config: %w", err)
	}
	s.logger.Info("tracked type added", "person_id", personID, "type", t, "unit", unit)
	return nil
}

// RemoveTrackedType stops tracking a datapoint type. Recorded datapoints
// of the type stay in place. Returns domain.ErrNotTracked when no
// configuration exists.
func (s *PersonService) RemoveTrackedType(ctx context.Context, personID uuid.UUID, t domain.DatapointType) error {
	person, err := s.people.GetByID(ctx, personID)
	if err != nil {
		return err
	}
	if err := person.RemoveTrackedType(t); err != nil {
		return err
	}
	if err := s.people.DeleteTrackingConfig(ctx, personID, t); err != nil {
		return fmt.Errorf("failed to delete tracking config: %w", err)
	}
	s.logger.Info("tracked type removed", "person_id", personID, "type", t)
	return nil
}

// AddSchedule creates and persists a reminder schedule for the person.
func (s *PersonService) AddSchedule(
	ctx context.Context,
	personID uuid.UUID,
	t domain.DatapointType,
	freq domain.Frequency,
	weekdays domain.WeekdaySet,
	startsOn, endsOn time.Time,
	at domain.TimeOfDay,
	note string,
) (*domain.Schedule, error) {
	sched, err := domain.NewSchedule(personID, t, freq, weekdays, startsOn, endsOn, at, note)
	if err != nil {
		return nil, err
	}
	if err := s.schedules.Create(ctx, sched); err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}
	s.logger.Info("schedule added", "person_id", personID, "schedule_id", sched.ID, "frequency", freq)
	return sched, nil
}

// RemoveSchedule deletes a schedule. Datapoints are never affected.
func (s *PersonService) RemoveSchedule(ctx context.Context, scheduleID uuid.UUID) error {
	return s.schedules.Delete(ctx, scheduleID)
}

// SetScheduleSuspended flips the schedule's suspended flag. A suspended
// schedule is never due but keeps its recurrence state.
func (s *PersonService) SetScheduleSuspended(ctx context.Context, scheduleID uuid.UUID, suspended bool) error {
	sched, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return err
	}
	if sched.Suspended == suspended {
		return nil
	}
	sched.Suspended = suspended
	sched.UpdatedAt = time.Now().UTC()
	if err := s.schedules.Update(ctx, sched); err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	s.logger.Info("schedule suspension changed", "schedule_id", scheduleID, "suspended", suspended)
	return nil
}
