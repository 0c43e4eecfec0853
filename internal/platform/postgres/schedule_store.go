package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/biotrack-api/internal/domain"
	"github.com/phrazzld/biotrack-api/internal/platform/logger"
	"github.com/phrazzld/biotrack-api/internal/store"
)

// scheduleColumns is the SELECT column list shared by every schedule query.
const scheduleColumns = `id, person_id, dp_type, frequency, weekdays, starts_on, ends_on,
	when_time, note, suspended, last_triggered, created_at, updated_at`

// ScheduleStore implements store.ScheduleStore on PostgreSQL.
type ScheduleStore struct {
	db   store.DBTX
	base *DB
}

// NewScheduleStore creates a PostgreSQL implementation of store.ScheduleStore.
func NewScheduleStore(db *DB) *ScheduleStore {
	return &ScheduleStore{db: db.sql, base: db}
}

// Ensure ScheduleStore implements store.ScheduleStore.
var _ store.ScheduleStore = (*ScheduleStore)(nil)

// WithTx returns a ScheduleStore bound to the given transaction.
func (s *ScheduleStore) WithTx(tx *sql.Tx) store.ScheduleStore {
	return &ScheduleStore{db: tx}
}

func (s *ScheduleStore) inWriteTx(ctx context.Context, fn func(ctx context.Context, txStore *ScheduleStore) error) error {
	if s.base == nil {
		return fn(ctx, s)
	}
	return s.base.InWriteTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, &ScheduleStore{db: tx})
	})
}

// Create implements store.ScheduleStore.Create.
func (s *ScheduleStore) Create(ctx context.Context, sched *domain.Schedule) error {
	if err := sched.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	return s.inWriteTx(ctx, func(ctx context.Context, txStore *ScheduleStore) error {
		return insertSchedule(ctx, txStore.db, sched)
	})
}

func insertSchedule(ctx context.Context, db store.DBTX, sched *domain.Schedule) error {
	query := `
		INSERT INTO schedules (id, person_id, dp_type, frequency, weekdays, starts_on,
			ends_on, when_time, note, suspended, last_triggered, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := db.ExecContext(ctx, query,
		sched.ID,
		sched.PersonID,
		string(sched.Type),
		string(sched.Frequency),
		int16(sched.Weekdays),
		sched.StartsOn,
		nullableDate(sched.EndsOn),
		sched.At.String(),
		sched.Note,
		sched.Suspended,
		sched.LastTriggered,
		sched.CreatedAt,
		sched.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: person %s does not exist", store.ErrReferentialIntegrity, sched.PersonID)
		}
		return MapError(err)
	}
	return nil
}

// GetByID implements store.ScheduleStore.GetByID.
func (s *ScheduleStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`
	sched, err := scanSchedule(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrScheduleNotFound, id)
		}
		return nil, err
	}
	return sched, nil
}

// Update implements store.ScheduleStore.Update. The last-triggered column
// is deliberately absent from the SET list.
func (s *ScheduleStore) Update(ctx context.Context, sched *domain.Schedule) error {
	if err := sched.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	return s.inWriteTx(ctx, func(ctx context.Context, txStore *ScheduleStore) error {
		query := `
			UPDATE schedules
			SET dp_type = $1, frequency = $2, weekdays = $3, starts_on = $4,
				ends_on = $5, when_time = $6, note = $7, suspended = $8, updated_at = $9
			WHERE id = $10
		`
		result, err := txStore.db.ExecContext(ctx, query,
			string(sched.Type),
			string(sched.Frequency),
			int16(sched.Weekdays),
			sched.StartsOn,
			nullableDate(sched.EndsOn),
			sched.At.String(),
			sched.Note,
			sched.Suspended,
			sched.UpdatedAt,
			sched.ID,
		)
		if err != nil {
			return MapError(err)
		}
		if err := CheckRowsAffected(result, "schedule"); err != nil {
			return fmt.Errorf("%w: %s", store.ErrScheduleNotFound, sched.ID)
		}
		return nil
	})
}

// UpdateLastTriggered implements store.ScheduleStore.UpdateLastTriggered.
// The WHERE clause enforces monotonic advancement, so a concurrent or
// replayed firing with an older timestamp cannot regress the column.
func (s *ScheduleStore) UpdateLastTriggered(ctx context.Context, id uuid.UUID, firedAt time.Time) error {
	return s.inWriteTx(ctx, func(ctx context.Context, txStore *ScheduleStore) error {
		query := `
			UPDATE schedules
			SET last_triggered = $1, updated_at = now()
			WHERE id = $2 AND (last_triggered IS NULL OR last_triggered < $1)
		`
		result, err := txStore.db.ExecContext(ctx, query, firedAt, id)
		if err != nil {
			return MapError(err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows > 0 {
			return nil
		}

		// No row advanced: distinguish a missing schedule from a stale or
		// repeated firing.
		var stored sql.NullTime
		err = txStore.db.QueryRowContext(ctx,
			`SELECT last_triggered FROM schedules WHERE id = $1`, id).Scan(&stored)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", store.ErrScheduleNotFound, id)
			}
			return MapError(err)
		}
		if stored.Valid && stored.Time.Equal(firedAt) {
			// Idempotent retry of the recorded firing.
			return nil
		}
		logger.FromContext(ctx).Warn("rejected stale trigger",
			"schedule_id", id,
			"fired_at", firedAt,
			"last_triggered", stored.Time)
		return fmt.Errorf("%w: schedule %s already triggered at %s",
			domain.ErrStaleTrigger, id, stored.Time.UTC().Format(time.RFC3339))
	})
}

// Delete implements store.ScheduleStore.Delete.
func (s *ScheduleStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.inWriteTx(ctx, func(ctx context.Context, txStore *ScheduleStore) error {
		result, err := txStore.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
		if err != nil {
			return MapError(err)
		}
		if err := CheckRowsAffected(result, "schedule"); err != nil {
			return fmt.Errorf("%w: %s", store.ErrScheduleNotFound, id)
		}
		return nil
	})
}

// ListForPerson implements store.ScheduleStore.ListForPerson.
func (s *ScheduleStore) ListForPerson(ctx context.Context, personID uuid.UUID) ([]*domain.Schedule, error) {
	return schedulesForPerson(ctx, s.db, personID)
}

func schedulesForPerson(ctx context.Context, db store.DBTX, personID uuid.UUID) ([]*domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE person_id = $1 ORDER BY created_at, id`
	rows, err := db.QueryContext(ctx, query, personID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()
	return scanSchedules(rows)
}

// ListActive implements store.ScheduleStore.ListActive.
func (s *ScheduleStore) ListActive(ctx context.Context, asOf time.Time) ([]*domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE NOT suspended AND (ends_on IS NULL OR ends_on >= $1)
		ORDER BY person_id, created_at, id`
	rows, err := s.db.QueryContext(ctx, query, domain.DateOf(asOf))
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()
	return scanSchedules(rows)
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*domain.Schedule, error) {
	var (
		sched         domain.Schedule
		typeTag       string
		freqTag       string
		weekdays      int16
		endsOn        sql.NullTime
		whenTime      string
		lastTriggered sql.NullTime
	)
	err := row.Scan(
		&sched.ID,
		&sched.PersonID,
		&typeTag,
		&freqTag,
		&weekdays,
		&sched.StartsOn,
		&endsOn,
		&whenTime,
		&sched.Note,
		&sched.Suspended,
		&lastTriggered,
		&sched.CreatedAt,
		&sched.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, MapError(err)
	}

	t, err := domain.ParseDatapointType(typeTag)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	sched.Type = t
	sched.Frequency = domain.Frequency(freqTag)
	sched.Weekdays = domain.WeekdaySet(weekdays)
	sched.StartsOn = domain.DateOf(sched.StartsOn)
	if endsOn.Valid {
		sched.EndsOn = domain.DateOf(endsOn.Time)
	}
	at, err := domain.ParseTimeOfDay(whenTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	sched.At = at
	if lastTriggered.Valid {
		lt := lastTriggered.Time.UTC()
		sched.LastTriggered = &lt
	}
	sched.CreatedAt = sched.CreatedAt.UTC()
	sched.UpdatedAt = sched.UpdatedAt.UTC()
	return &sched, nil
}

func scanSchedules(rows *sql.Rows) ([]*domain.Schedule, error) {
	var schedules []*domain.Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, sched)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return schedules, nil
}

// nullableDate maps a zero time to NULL; schedules use the zero value for
// open-ended recurrences.
func nullableDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
