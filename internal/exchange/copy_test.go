package exchange

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/biotrack-api/internal/domain"
	"github.com/phrazzld/biotrack-api/internal/store"
	"github.com/phrazzld/biotrack-api/internal/store/storetest"
)

func TestCopierPreservesKeysAndTriggerState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := storetest.New().Stores()
	dst := storetest.New().Stores()

	person, err := domain.NewPerson("Ada", time.Date(1985, 3, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, person.AddTrackedType(domain.TypeBodyWeight, domain.UnitPounds))

	sched, err := domain.NewSchedule(person.ID, domain.TypeBodyWeight, domain.FrequencyDaily, 0,
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Time{}, domain.TimeOfDay{Hour: 9}, "weigh in")
	require.NoError(t, err)
	require.NoError(t, person.AddSchedule(sched))
	require.NoError(t, src.People.Create(ctx, person))

	firedAt := time.Date(2025, 1, 1, 9, 5, 0, 0, time.UTC)
	require.NoError(t, src.Schedules.UpdateLastTriggered(ctx, sched.ID, firedAt))

	dp, err := domain.NewBodyWeight(person.ID,
		time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC), 180.5, domain.UnitPounds, "morning")
	require.NoError(t, err)
	require.NoError(t, src.Datapoints.Create(ctx, dp))

	report, err := NewCopier(testLogger()).Copy(ctx, src, dst)
	require.NoError(t, err)
	assert.Equal(t, CopyReport{People: 1, Schedules: 1, Datapoints: 1}, report)

	// Person id and tracking configuration survive intact.
	copied, err := dst.People.GetByID(ctx, person.ID)
	require.NoError(t, err)
	assert.Equal(t, person.Name, copied.Name)
	unit, ok := copied.TrackedUnit(domain.TypeBodyWeight)
	require.True(t, ok)
	assert.Equal(t, domain.UnitPounds, unit)

	// Schedule id and trigger state survive, so reminders do not re-fire
	// for occurrences already recorded on the source.
	copiedSched, err := dst.Schedules.GetByID(ctx, sched.ID)
	require.NoError(t, err)
	require.NotNil(t, copiedSched.LastTriggered)
	assert.True(t, copiedSched.LastTriggered.Equal(firedAt))

	// Datapoint natural key survives.
	copiedDp, err := dst.Datapoints.Get(ctx, dp.Key())
	require.NoError(t, err)
	assert.True(t, dp.Equal(copiedDp))
	assert.Equal(t, dp.Value, copiedDp.Value)
}

func TestCopierStopsOnKeyClash(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := storetest.New().Stores()
	dst := storetest.New().Stores()

	person, err := domain.NewPerson("Ada", time.Date(1985, 3, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, src.People.Create(ctx, person))
	require.NoError(t, dst.People.Create(ctx, person))

	_, err = NewCopier(testLogger()).Copy(ctx, src, dst)
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestCopierEmptySource(t *testing.T) {
	t.Parallel()

	src := storetest.New().Stores()
	dst := storetest.New().Stores()

	report, err := NewCopier(testLogger()).Copy(context.Background(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, CopyReport{}, report)
}
