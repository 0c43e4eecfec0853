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

// ReadingService records and manages biometric readings. Readings are only
// accepted for datapoint types the person currently tracks; a reading
// entered without a unit takes the person's configured unit for the type.
type ReadingService struct {
	people     store.PersonStore
	datapoints store.DatapointStore
	logger     *slog.Logger
}

// NewReadingService creates a ReadingService with the given dependencies.
// Panics if any dependency is nil, since that is a programming error.
func NewReadingService(people store.PersonStore, datapoints store.DatapointStore, logger *slog.Logger) *ReadingService {
	if people == nil {
		panic("person store cannot be nil")
	}
	if datapoints == nil {
		panic("datapoint store cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &ReadingService{
		people:     people,
		datapoints: datapoints,
		logger:     logger.With("component", "reading_service"),
	}
}

// Record validates and persists a reading. An empty unit defaults to the
// person's configured unit for the type; a type the person does not track
// fails with domain.ErrNotTracked.
func (s *ReadingService) Record(
	ctx context.Context,
	personID uuid.UUID,
	t domain.DatapointType,
	taken time.Time,
	value, secondary float64,
	unit domain.Unit,
	note string,
) (domain.Datapoint, error) {
	person, err := s.people.GetByID(ctx, personID)
	if err != nil {
		return domain.Datapoint{}, err
	}
	if !person.IsTracked(t) {
		return domain.Datapoint{}, fmt.Errorf("%w: %s for person %s", domain.ErrNotTracked, t, personID)
	}
	if unit == "" {
		configured, ok := person.TrackedUnit(t)
		if !ok {
			return domain.Datapoint{}, fmt.Errorf("%w: %s for person %s", domain.ErrNotTracked, t, personID)
		}
		unit = configured
	}

	dp, err := domain.NewDatapoint(personID, t, taken, value, secondary, unit, note)
	if err != nil {
		return domain.Datapoint{}, err
	}
	if err := s.datapoints.Create(ctx, dp); err != nil {
		return domain.Datapoint{}, fmt.Errorf("failed to create datapoint: %w", err)
	}
	s.logger.Info("reading recorded",
		"person_id", personID, "type", t, "taken", dp.Taken, "unit", unit)
	return dp, nil
}

// Get retrieves a reading by natural key.
func (s *ReadingService) Get(ctx context.Context, key domain.DatapointKey) (domain.Datapoint, error) {
	return s.datapoints.Get(ctx, key)
}

// History returns the person's readings within [from, to], one type or all
// when t is empty, ordered by timestamp.
func (s *ReadingService) History(ctx context.Context, personID uuid.UUID, t domain.DatapointType, from, to time.Time) ([]domain.Datapoint, error) {
	return s.datapoints.List(ctx, personID, t, from, to)
}

// Revise replaces the reading identified by key with a corrected record,
// which may carry a new timestamp.
func (s *ReadingService) Revise(ctx context.Context, key domain.DatapointKey, dp domain.Datapoint) error {
	if err := s.datapoints.Update(ctx, key, dp); err != nil {
		return fmt.Errorf("failed to update datapoint: %w", err)
	}
	return nil
}

// Remove deletes a single reading by natural key.
func (s *ReadingService) Remove(ctx context.Context, key domain.DatapointKey) error {
	return s.datapoints.Delete(ctx, key)
}

// RemoveAll deletes every reading belonging to the person.
func (s *ReadingService) RemoveAll(ctx context.Context, personID uuid.UUID) error {
	if err := s.datapoints.DeleteForPerson(ctx, personID); err != nil {
		return fmt.Errorf("failed to delete datapoints: %w", err)
	}
	s.logger.Info("readings removed", "person_id", personID)
	return nil
}
