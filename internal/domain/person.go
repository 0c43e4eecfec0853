package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// TrackingConfig records, per person and datapoint type, whether the type
// is tracked and the unit readings are recorded in. At most one
// configuration exists per (person, type) pair.
type TrackingConfig struct {
	PersonID uuid.UUID
	Type     DatapointType
	Tracked  bool
	Unit     Unit
}

// Validate checks the configuration's type/unit agreement.
func (c TrackingConfig) Validate() error {
	if c.PersonID == uuid.Nil {
		return fmt.Errorf("%w: person ID cannot be empty", ErrInvalidPerson)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownDatapointType, c.Type)
	}
	if !c.Unit.Valid() || c.Unit.Family() != c.Type.Family() {
		return fmt.Errorf(
			"%w: unit %s does not measure %s",
			ErrIncompatibleUnitFamily, c.Unit, c.Type,
		)
	}
	return nil
}

// Person is the aggregate root: identity, the tracking configurations for
// the datapoint types recorded for them, and the schedules reminding them
// to take readings. Tracking configurations and schedules are exclusively
// owned and deleted with the person; datapoints are associated by ID and
// cascaded explicitly at the persistence layer.
type Person struct {
	ID          uuid.UUID
	Name        string
	DateOfBirth time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	tracked   map[DatapointType]TrackingConfig
	schedules map[uuid.UUID]*Schedule
}

// NewPerson creates a validated person with a fresh ID and no tracked types.
func NewPerson(name string, dateOfBirth time.Time) (*Person, error) {
	now := time.Now().UTC()
	p := &Person{
		ID:          uuid.New(),
		Name:        name,
		DateOfBirth: DateOf(dateOfBirth),
		CreatedAt:   now,
		UpdatedAt:   now,
		tracked:     make(map[DatapointType]TrackingConfig),
		schedules:   make(map[uuid.UUID]*Schedule),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// RehydratePerson reconstructs a person from stored fields. Used by the
// persistence layer; callers should prefer NewPerson.
func RehydratePerson(id uuid.UUID, name string, dateOfBirth, createdAt, updatedAt time.Time) *Person {
	return &Person{
		ID:          id,
		Name:        name,
		DateOfBirth: dateOfBirth,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		tracked:     make(map[DatapointType]TrackingConfig),
		schedules:   make(map[uuid.UUID]*Schedule),
	}
}

// Validate checks the person's identity fields.
func (p *Person) Validate() error {
	if p.ID == uuid.Nil {
		return fmt.Errorf("%w: ID cannot be empty", ErrInvalidPerson)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidPerson)
	}
	if p.DateOfBirth.IsZero() || p.DateOfBirth.After(time.Now().UTC()) {
		return fmt.Errorf("%w: implausible date of birth", ErrInvalidPerson)
	}
	return nil
}

// Age returns the person's age in whole years as of the given date.
func (p *Person) Age(asOf time.Time) int {
	years := asOf.Year() - p.DateOfBirth.Year()
	anniversary := p.DateOfBirth.AddDate(years, 0, 0)
	if anniversary.After(asOf) {
		years--
	}
	return years
}

// AddTrackedType starts tracking a datapoint type in the given unit.
// Returns ErrAlreadyTracked if a configuration for the type exists.
func (p *Person) AddTrackedType(t DatapointType, unit Unit) error {
	if _, exists := p.tracked[t]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyTracked, t)
	}
	cfg := TrackingConfig{PersonID: p.ID, Type: t, Tracked: true, Unit: unit}
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.tracked[t] = cfg
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// RemoveTrackedType stops tracking a datapoint type. Historical datapoints
// of the type are detached, not deleted: history is preserved even when
// tracking is turned off. Returns ErrNotTracked if no configuration exists.
func (p *Person) RemoveTrackedType(t DatapointType) error {
	if _, exists := p.tracked[t]; !exists {
		return fmt.Errorf("%w: %s", ErrNotTracked, t)
	}
	delete(p.tracked, t)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// IsTracked reports whether a configuration exists for the type with
// tracked set.
func (p *Person) IsTracked(t DatapointType) bool {
	cfg, ok := p.tracked[t]
	return ok && cfg.Tracked
}

// TrackedUnit returns the unit configured for the type, if tracked.
func (p *Person) TrackedUnit(t DatapointType) (Unit, bool) {
	cfg, ok := p.tracked[t]
	if !ok {
		return "", false
	}
	return cfg.Unit, true
}

// SetTrackingConfig installs a stored configuration, replacing any existing
// one for the type. Used by the persistence layer during rehydration.
func (p *Person) SetTrackingConfig(cfg TrackingConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.tracked[cfg.Type] = cfg
	return nil
}

// TrackingConfigs lists the person's configurations in type display order.
func (p *Person) TrackingConfigs() []TrackingConfig {
	out := make([]TrackingConfig, 0, len(p.tracked))
	for _, t := range DatapointTypes {
		if cfg, ok := p.tracked[t]; ok {
			out = append(out, cfg)
		}
	}
	return out
}

// AddSchedule attaches a schedule to the person's ownership list. Validity
// of the recurrence rule itself is the schedule's concern.
func (p *Person) AddSchedule(s *Schedule) error {
	if s.PersonID != p.ID {
		return fmt.Errorf("%w: schedule belongs to another person", ErrInvalidSchedule)
	}
	if err := s.Validate(); err != nil {
		return err
	}
	p.schedules[s.ID] = s
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// AttachSchedule installs a stored schedule, replacing any existing one
// with the same ID. Used by the persistence layer during rehydration.
func (p *Person) AttachSchedule(s *Schedule) error {
	if s.PersonID != p.ID {
		return fmt.Errorf("%w: schedule belongs to another person", ErrInvalidSchedule)
	}
	p.schedules[s.ID] = s
	return nil
}

// RemoveSchedule detaches a schedule by ID. Removing a schedule never
// touches datapoints.
func (p *Person) RemoveSchedule(id uuid.UUID) error {
	if _, ok := p.schedules[id]; !ok {
		return fmt.Errorf("%w: no schedule %s", ErrInvalidSchedule, id)
	}
	delete(p.schedules, id)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Schedules lists the person's schedules ordered by creation time.
func (p *Person) Schedules() []*Schedule {
	out := make([]*Schedule, 0, len(p.schedules))
	for _, s := range p.schedules {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (p *Person) String() string {
	return fmt.Sprintf("ID: %s Name: %s D.O.B: %s", p.ID, p.Name, p.DateOfBirth.Format("2006-01-02"))
}
