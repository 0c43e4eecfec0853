package service

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

func newReadingFixture(t *testing.T) (*ReadingService, *domain.Person, store.Stores) {
	t.Helper()
	mem := storetest.New()
	stores := mem.Stores()

	person, err := domain.NewPerson("Grace", testDOB)
	require.NoError(t, err)
	require.NoError(t, person.AddTrackedType(domain.TypeBodyWeight, domain.UnitPounds))
	require.NoError(t, stores.People.Create(context.Background(), person))

	return NewReadingService(stores.People, stores.Datapoints, testLogger()), person, stores
}

func TestReadingServiceRecord(t *testing.T) {
	t.Parallel()

	svc, person, _ := newReadingFixture(t)
	ctx := context.Background()
	taken := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	dp, err := svc.Record(ctx, person.ID, domain.TypeBodyWeight, taken, 180.5, 0, domain.UnitPounds, "morning")
	require.NoError(t, err)
	assert.Equal(t, 180.5, dp.Value)
	assert.Equal(t, domain.UnitPounds, dp.Unit)

	loaded, err := svc.Get(ctx, dp.Key())
	require.NoError(t, err)
	assert.True(t, dp.Equal(loaded))
}

func TestReadingServiceRecordDefaultsUnit(t *testing.T) {
	t.Parallel()

	svc, person, _ := newReadingFixture(t)
	ctx := context.Background()
	taken := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	// An empty unit falls back to the person's configured unit for the type.
	dp, err := svc.Record(ctx, person.ID, domain.TypeBodyWeight, taken, 180.5, 0, "", "")
	require.NoError(t, err)
	assert.Equal(t, domain.UnitPounds, dp.Unit)
}

func TestReadingServiceRecordRejectsUntrackedType(t *testing.T) {
	t.Parallel()

	svc, person, _ := newReadingFixture(t)
	ctx := context.Background()
	taken := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	_, err := svc.Record(ctx, person.ID, domain.TypePulse, taken, 60, 0, domain.UnitBeatsPerMin, "")
	assert.ErrorIs(t, err, domain.ErrNotTracked)
}

func TestReadingServiceHistoryAndRemoveAll(t *testing.T) {
	t.Parallel()

	svc, person, _ := newReadingFixture(t)
	ctx := context.Background()

	for day := 1; day <= 3; day++ {
		taken := time.Date(2025, 6, day, 8, 0, 0, 0, time.UTC)
		_, err := svc.Record(ctx, person.ID, domain.TypeBodyWeight, taken, 180+float64(day), 0, domain.UnitPounds, "")
		require.NoError(t, err)
	}

	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 2, 23, 0, 0, 0, time.UTC)
	history, err := svc.History(ctx, person.ID, domain.TypeBodyWeight, from, to)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].Taken.Before(history[1].Taken))

	require.NoError(t, svc.RemoveAll(ctx, person.ID))
	history, err = svc.History(ctx, person.ID, domain.TypeBodyWeight, from, to.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestReadingServiceRevise(t *testing.T) {
	t.Parallel()

	svc, person, _ := newReadingFixture(t)
	ctx := context.Background()
	taken := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	dp, err := svc.Record(ctx, person.ID, domain.TypeBodyWeight, taken, 180.5, 0, domain.UnitPounds, "")
	require.NoError(t, err)

	// Revision may move the timestamp; the old key must disappear.
	revised, err := domain.NewBodyWeight(person.ID, taken.Add(time.Hour), 181, domain.UnitPounds, "corrected")
	require.NoError(t, err)
	require.NoError(t, svc.Revise(ctx, dp.Key(), revised))

	_, err = svc.Get(ctx, dp.Key())
	assert.ErrorIs(t, err, store.ErrDatapointNotFound)

	loaded, err := svc.Get(ctx, revised.Key())
	require.NoError(t, err)
	assert.Equal(t, 181.0, loaded.Value)
	assert.Equal(t, "corrected", loaded.Note)
}
