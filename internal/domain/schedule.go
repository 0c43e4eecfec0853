package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Frequency tags how often a schedule recurs.
type Frequency string

// Supported frequencies.
const (
	FrequencyOneTime Frequency = "one_time"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Valid reports whether the tag names a supported frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOneTime, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// WeekdaySet is a bit set of applicable weekdays, one bit per time.Weekday
// (Sunday = bit 0). It is meaningful only for weekly schedules.
type WeekdaySet uint8

// NewWeekdaySet builds a set from the given weekdays.
func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.Add(d)
	}
	return s
}

// Add returns the set with the given weekday included.
func (s WeekdaySet) Add(d time.Weekday) WeekdaySet {
	return s | 1<<uint(d)
}

// Has reports whether the weekday is in the set.
func (s WeekdaySet) Has(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

// Empty reports whether no weekday is set.
func (s WeekdaySet) Empty() bool {
	return s == 0
}

// Days lists the weekdays in the set in calendar order.
func (s WeekdaySet) Days() []time.Weekday {
	var days []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

// String renders the set as comma-joined weekday names.
func (s WeekdaySet) String() string {
	names := make([]string, 0, 7)
	for _, d := range s.Days() {
		names = append(names, d.String())
	}
	return strings.Join(names, ",")
}

// TimeOfDay is a wall-clock time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var tod TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &tod.Hour, &tod.Minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: malformed time of day %q", ErrInvalidSchedule, s)
	}
	if tod.Hour < 0 || tod.Hour > 23 || tod.Minute < 0 || tod.Minute > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: time of day %q out of range", ErrInvalidSchedule, s)
	}
	return tod, nil
}

// String renders "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On anchors the time of day to the given calendar date in UTC.
func (t TimeOfDay) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour, t.Minute, 0, 0, time.UTC)
}

// DateOf truncates a timestamp to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Schedule is a reminder recurrence rule owned by a person. LastTriggered
// records the most recent firing; it advances monotonically and only
// through the dedicated trigger path, never through a full-record update.
type Schedule struct {
	ID            uuid.UUID
	PersonID      uuid.UUID
	Type          DatapointType
	Frequency     Frequency
	Weekdays      WeekdaySet
	StartsOn      time.Time // calendar date
	EndsOn        time.Time // calendar date; zero means open-ended
	At            TimeOfDay
	Note          string
	Suspended     bool
	LastTriggered *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewSchedule creates a validated schedule with a fresh ID.
func NewSchedule(personID uuid.UUID, t DatapointType, freq Frequency, weekdays WeekdaySet,
	startsOn, endsOn time.Time, at TimeOfDay, note string) (*Schedule, error) {
	now := time.Now().UTC()
	s := &Schedule{
		ID:        uuid.New(),
		PersonID:  personID,
		Type:      t,
		Frequency: freq,
		Weekdays:  weekdays,
		StartsOn:  DateOf(startsOn),
		At:        at,
		Note:      note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !endsOn.IsZero() {
		s.EndsOn = DateOf(endsOn)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the recurrence rule's invariants.
func (s *Schedule) Validate() error {
	if s.ID == uuid.Nil {
		return fmt.Errorf("%w: schedule ID cannot be empty", ErrInvalidSchedule)
	}
	if s.PersonID == uuid.Nil {
		return fmt.Errorf("%w: person ID cannot be empty", ErrInvalidSchedule)
	}
	if !s.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownDatapointType, s.Type)
	}
	if !s.Frequency.Valid() {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidSchedule, s.Frequency)
	}
	if s.StartsOn.IsZero() {
		return fmt.Errorf("%w: start date cannot be zero", ErrInvalidSchedule)
	}
	if s.Frequency == FrequencyWeekly && s.Weekdays.Empty() {
		return fmt.Errorf("%w: weekly schedule requires a non-empty weekday set", ErrInvalidSchedule)
	}
	if !s.EndsOn.IsZero() && s.EndsOn.Before(s.StartsOn) {
		return fmt.Errorf("%w: end date precedes start date", ErrInvalidSchedule)
	}
	return nil
}

// Clone returns a deep copy. Used by the trigger path to honor the
// replace-not-mutate discipline of the domain's value objects.
func (s *Schedule) Clone() *Schedule {
	out := *s
	if s.LastTriggered != nil {
		lt := *s.LastTriggered
		out.LastTriggered = &lt
	}
	return &out
}

func (s *Schedule) String() string {
	stub := fmt.Sprintf("%s %s %s", s.Type.Label(), s.Frequency, s.At)
	if s.Frequency == FrequencyWeekly {
		stub = fmt.Sprintf("%s on %s", stub, s.Weekdays)
	}
	if s.Suspended {
		stub += " (suspended)"
	}
	return stub
}
