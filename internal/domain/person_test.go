package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPerson(t *testing.T) {
	t.Parallel()

	dob := time.Date(1985, 3, 12, 0, 0, 0, 0, time.UTC)

	person, err := NewPerson("Ada", dob)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, person.ID)
	assert.Equal(t, "Ada", person.Name)
	assert.Equal(t, dob, person.DateOfBirth)

	_, err = NewPerson("", dob)
	assert.ErrorIs(t, err, ErrInvalidPerson)

	_, err = NewPerson("Ada", time.Now().UTC().AddDate(1, 0, 0))
	assert.ErrorIs(t, err, ErrInvalidPerson)
}

func TestPersonAge(t *testing.T) {
	t.Parallel()

	person, err := NewPerson("Ada", time.Date(1985, 3, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, 40, person.Age(time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 39, person.Age(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 40, person.Age(time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)))
}

func TestPersonTrackedTypes(t *testing.T) {
	t.Parallel()

	person, err := NewPerson("Ada", time.Date(1985, 3, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.NoError(t, person.AddTrackedType(TypeBodyWeight, UnitKilograms))
	assert.True(t, person.IsTracked(TypeBodyWeight))

	unit, ok := person.TrackedUnit(TypeBodyWeight)
	require.True(t, ok)
	assert.Equal(t, UnitKilograms, unit)

	// A second configuration for the same type is rejected.
	err = person.AddTrackedType(TypeBodyWeight, UnitPounds)
	assert.ErrorIs(t, err, ErrAlreadyTracked)

	// Unit must measure the type.
	err = person.AddTrackedType(TypeBloodGlucose, UnitKilograms)
	assert.ErrorIs(t, err, ErrIncompatibleUnitFamily)
	assert.False(t, person.IsTracked(TypeBloodGlucose))

	require.NoError(t, person.RemoveTrackedType(TypeBodyWeight))
	assert.False(t, person.IsTracked(TypeBodyWeight))

	err = person.RemoveTrackedType(TypeBodyWeight)
	assert.ErrorIs(t, err, ErrNotTracked)
}

func TestPersonTrackingConfigsOrdered(t *testing.T) {
	t.Parallel()

	person, err := NewPerson("Ada", time.Date(1985, 3, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.NoError(t, person.AddTrackedType(TypeBodyWeight, UnitKilograms))
	require.NoError(t, person.AddTrackedType(TypeBloodPressure, UnitMmHg))
	require.NoError(t, person.AddTrackedType(TypePulse, UnitBeatsPerMin))

	configs := person.TrackingConfigs()
	require.Len(t, configs, 3)
	assert.Equal(t, TypeBloodPressure, configs[0].Type)
	assert.Equal(t, TypePulse, configs[1].Type)
	assert.Equal(t, TypeBodyWeight, configs[2].Type)
}

func TestPersonSchedules(t *testing.T) {
	t.Parallel()

	person, err := NewPerson("Ada", time.Date(1985, 3, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	sched, err := NewSchedule(person.ID, TypeBodyWeight, FrequencyDaily, 0,
		start, time.Time{}, TimeOfDay{Hour: 7}, "before breakfast")
	require.NoError(t, err)

	require.NoError(t, person.AddSchedule(sched))
	require.Len(t, person.Schedules(), 1)

	// A schedule owned by someone else is rejected.
	other, err := NewSchedule(uuid.New(), TypeBodyWeight, FrequencyDaily, 0,
		start, time.Time{}, TimeOfDay{Hour: 7}, "")
	require.NoError(t, err)
	assert.ErrorIs(t, person.AddSchedule(other), ErrInvalidSchedule)

	require.NoError(t, person.RemoveSchedule(sched.ID))
	assert.Empty(t, person.Schedules())

	assert.ErrorIs(t, person.RemoveSchedule(sched.ID), ErrInvalidSchedule)
}

func TestTrackingConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := TrackingConfig{PersonID: uuid.New(), Type: TypeBloodGlucose, Tracked: true, Unit: UnitMmolPerL}
	assert.NoError(t, cfg.Validate())

	cfg.Unit = UnitFahrenheit
	assert.ErrorIs(t, cfg.Validate(), ErrIncompatibleUnitFamily)

	cfg = TrackingConfig{PersonID: uuid.Nil, Type: TypeBloodGlucose, Unit: UnitMmolPerL}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidPerson)
}
