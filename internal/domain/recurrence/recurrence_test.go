package recurrence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/biotrack-api/internal/domain"
)

// 2025-01-01 is a Wednesday.
var testStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newSchedule(t *testing.T, freq domain.Frequency, weekdays domain.WeekdaySet, startsOn, endsOn time.Time, at domain.TimeOfDay) *domain.Schedule {
	t.Helper()
	sched, err := domain.NewSchedule(uuid.New(), domain.TypeBloodPressure, freq, weekdays,
		startsOn, endsOn, at, "")
	require.NoError(t, err)
	return sched
}

func TestNextOccurrenceOneTime(t *testing.T) {
	t.Parallel()

	at := domain.TimeOfDay{Hour: 9}
	sched := newSchedule(t, domain.FrequencyOneTime, 0, testStart, time.Time{}, at)

	occ, ok := NextOccurrence(sched, testStart)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC), occ)

	// The occurrence does not move as time passes it.
	occ, ok = NextOccurrence(sched, testStart.AddDate(0, 0, 10))
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC), occ)

	// Once fired, a one-time schedule is terminal.
	fired := occ
	sched.LastTriggered = &fired
	_, ok = NextOccurrence(sched, fired)
	assert.False(t, ok)
	assert.Equal(t, StateTerminal, Evaluate(sched, fired))
}

func TestNextOccurrenceDaily(t *testing.T) {
	t.Parallel()

	at := domain.TimeOfDay{Hour: 7, Minute: 30}
	sched := newSchedule(t, domain.FrequencyDaily, 0, testStart, time.Time{}, at)

	// Before the start date, the first occurrence is on the start date.
	occ, ok := NextOccurrence(sched, testStart.AddDate(0, 0, -5))
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 1, 7, 30, 0, 0, time.UTC), occ)

	// After a firing, the next occurrence is the following day even when
	// asked earlier the same day.
	fired := time.Date(2025, 1, 3, 7, 30, 0, 0, time.UTC)
	sched.LastTriggered = &fired
	occ, ok = NextOccurrence(sched, fired.Add(time.Minute))
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 4, 7, 30, 0, 0, time.UTC), occ)
}

func TestNextOccurrenceWeekly(t *testing.T) {
	t.Parallel()

	weekdays := domain.NewWeekdaySet(time.Monday, time.Thursday)
	at := domain.TimeOfDay{Hour: 9}
	sched := newSchedule(t, domain.FrequencyWeekly, weekdays, testStart, time.Time{}, at)

	// Start date is a Wednesday; the first occurrence is the Thursday
	// right after it.
	occ, ok := NextOccurrence(sched, testStart)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC), occ)
	assert.Equal(t, time.Thursday, occ.Weekday())

	// After firing on that Thursday the next occurrence is Monday.
	fired := occ
	sched.LastTriggered = &fired
	occ, ok = NextOccurrence(sched, fired)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC), occ)
	assert.Equal(t, time.Monday, occ.Weekday())
}

func TestNextOccurrenceMonthlyClamp(t *testing.T) {
	t.Parallel()

	// Anchored on the 31st.
	start := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	at := domain.TimeOfDay{Hour: 8}
	sched := newSchedule(t, domain.FrequencyMonthly, 0, start, time.Time{}, at)

	tests := []struct {
		name     string
		asOf     time.Time
		expected time.Time
	}{
		{
			name:     "february clamps to the 28th",
			asOf:     time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			expected: time.Date(2025, 2, 28, 8, 0, 0, 0, time.UTC),
		},
		{
			name:     "april clamps to the 30th",
			asOf:     time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
			expected: time.Date(2025, 4, 30, 8, 0, 0, 0, time.UTC),
		},
		{
			name:     "march keeps the anchor day",
			asOf:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			expected: time.Date(2025, 3, 31, 8, 0, 0, 0, time.UTC),
		},
		{
			name:     "past this month's day rolls to next month",
			asOf:     time.Date(2025, 3, 31, 9, 0, 0, 0, time.UTC).AddDate(0, 0, 1),
			expected: time.Date(2025, 4, 30, 8, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			occ, ok := NextOccurrence(sched, tc.asOf)
			require.True(t, ok)
			assert.Equal(t, tc.expected, occ)
		})
	}
}

func TestNextOccurrenceEndDate(t *testing.T) {
	t.Parallel()

	at := domain.TimeOfDay{Hour: 9}
	end := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	sched := newSchedule(t, domain.FrequencyDaily, 0, testStart, end, at)

	occ, ok := NextOccurrence(sched, end)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC), occ)

	// Past the end date there is no occurrence, and that is a value, not
	// an error.
	_, ok = NextOccurrence(sched, end.AddDate(0, 0, 1))
	assert.False(t, ok)
	assert.Equal(t, StateTerminal, Evaluate(sched, end.AddDate(0, 0, 1)))
}

func TestNextOccurrenceSuspended(t *testing.T) {
	t.Parallel()

	at := domain.TimeOfDay{Hour: 9}
	sched := newSchedule(t, domain.FrequencyDaily, 0, testStart, time.Time{}, at)
	sched.Suspended = true

	_, ok := NextOccurrence(sched, testStart)
	assert.False(t, ok)
	assert.False(t, IsDue(sched, testStart.AddDate(0, 0, 5)))
}

func TestWeekdayDatesFourteenDayRange(t *testing.T) {
	t.Parallel()

	weekdays := domain.NewWeekdaySet(time.Monday, time.Thursday)
	at := domain.TimeOfDay{Hour: 9}
	sched := newSchedule(t, domain.FrequencyWeekly, weekdays, testStart, time.Time{}, at)

	// Wednesday Jan 1 through Tuesday Jan 14, inclusive both ends.
	dates := WeekdayDates(sched, testStart, time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC))

	expected := []time.Time{
		time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC),  // Thursday
		time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC),  // Monday
		time.Date(2025, 1, 9, 9, 0, 0, 0, time.UTC),  // Thursday
		time.Date(2025, 1, 13, 9, 0, 0, 0, time.UTC), // Monday
	}
	assert.Equal(t, expected, dates)
}

func TestWeekdayDatesRestartable(t *testing.T) {
	t.Parallel()

	weekdays := domain.NewWeekdaySet(time.Monday, time.Thursday)
	at := domain.TimeOfDay{Hour: 9}
	sched := newSchedule(t, domain.FrequencyWeekly, weekdays, testStart, time.Time{}, at)

	full := WeekdayDates(sched, testStart, time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC))
	head := WeekdayDates(sched, testStart, time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC))
	tail := WeekdayDates(sched, time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, full, append(head, tail...))
}

func TestWeekdayDatesClippedToScheduleBounds(t *testing.T) {
	t.Parallel()

	weekdays := domain.NewWeekdaySet(time.Monday)
	at := domain.TimeOfDay{Hour: 9}
	end := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	sched := newSchedule(t, domain.FrequencyWeekly, weekdays, testStart, end, at)

	// Range wider than the schedule on both sides.
	dates := WeekdayDates(sched,
		time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, []time.Time{time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)}, dates)
}

func TestMarkTriggered(t *testing.T) {
	t.Parallel()

	at := domain.TimeOfDay{Hour: 9}

	t.Run("records a due firing", func(t *testing.T) {
		t.Parallel()
		sched := newSchedule(t, domain.FrequencyDaily, 0, testStart, time.Time{}, at)
		fired := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)

		updated, err := MarkTriggered(sched, fired)
		require.NoError(t, err)
		require.NotNil(t, updated.LastTriggered)
		assert.True(t, updated.LastTriggered.Equal(fired))
		// The input schedule is not mutated.
		assert.Nil(t, sched.LastTriggered)
	})

	t.Run("idempotent on the identical timestamp", func(t *testing.T) {
		t.Parallel()
		sched := newSchedule(t, domain.FrequencyDaily, 0, testStart, time.Time{}, at)
		fired := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)

		first, err := MarkTriggered(sched, fired)
		require.NoError(t, err)
		second, err := MarkTriggered(first, fired)
		require.NoError(t, err)
		assert.True(t, second.LastTriggered.Equal(fired))
	})

	t.Run("rejects a firing before the last trigger", func(t *testing.T) {
		t.Parallel()
		sched := newSchedule(t, domain.FrequencyDaily, 0, testStart, time.Time{}, at)
		fired := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)

		updated, err := MarkTriggered(sched, fired)
		require.NoError(t, err)
		_, err = MarkTriggered(updated, fired.Add(-time.Hour))
		assert.ErrorIs(t, err, domain.ErrStaleTrigger)
	})

	t.Run("rejects a second firing the same day", func(t *testing.T) {
		t.Parallel()
		sched := newSchedule(t, domain.FrequencyDaily, 0, testStart, time.Time{}, at)
		fired := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)

		updated, err := MarkTriggered(sched, fired)
		require.NoError(t, err)
		// Later the same day, but the next occurrence is tomorrow.
		_, err = MarkTriggered(updated, fired.Add(2*time.Hour))
		assert.ErrorIs(t, err, domain.ErrStaleTrigger)
	})

	t.Run("rejects a firing before the first occurrence", func(t *testing.T) {
		t.Parallel()
		sched := newSchedule(t, domain.FrequencyDaily, 0, testStart, time.Time{}, at)
		_, err := MarkTriggered(sched, time.Date(2024, 12, 31, 9, 0, 0, 0, time.UTC))
		assert.ErrorIs(t, err, domain.ErrStaleTrigger)
	})

	t.Run("rejects firing a terminal schedule", func(t *testing.T) {
		t.Parallel()
		sched := newSchedule(t, domain.FrequencyOneTime, 0, testStart, time.Time{}, at)
		fired := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

		updated, err := MarkTriggered(sched, fired)
		require.NoError(t, err)
		_, err = MarkTriggered(updated, fired.AddDate(0, 0, 1))
		assert.ErrorIs(t, err, domain.ErrStaleTrigger)
	})
}

func TestEvaluateLifecycle(t *testing.T) {
	t.Parallel()

	at := domain.TimeOfDay{Hour: 9}
	sched := newSchedule(t, domain.FrequencyDaily, 0, testStart, time.Time{}, at)

	// Before the occurrence time: pending.
	assert.Equal(t, StatePending, Evaluate(sched, time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)))

	// At and after the occurrence time: due.
	assert.Equal(t, StateDue, Evaluate(sched, time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, StateDue, Evaluate(sched, time.Date(2025, 1, 1, 22, 0, 0, 0, time.UTC)))

	// After a firing the schedule returns to pending for the next day.
	updated, err := MarkTriggered(sched, time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, StatePending, Evaluate(updated, time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)))
}

func TestMissedOccurrences(t *testing.T) {
	t.Parallel()

	weekdays := domain.NewWeekdaySet(time.Monday, time.Thursday)
	at := domain.TimeOfDay{Hour: 9}
	sched := newSchedule(t, domain.FrequencyWeekly, weekdays, testStart, time.Time{}, at)

	fired := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC) // Thursday
	sched.LastTriggered = &fired

	// Application resumes on Jan 14: Mon Jan 6, Thu Jan 9, Mon Jan 13 missed.
	missed := MissedOccurrences(sched, time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 3, missed)

	// Nothing missed immediately after firing.
	assert.Equal(t, 0, MissedOccurrences(sched, fired.Add(time.Hour)))
}
