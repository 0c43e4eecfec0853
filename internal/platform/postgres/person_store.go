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

// PersonStore implements store.PersonStore on PostgreSQL.
type PersonStore struct {
	db store.DBTX
	// base is the owning DB when not transaction-bound; write operations
	// route through it to take the writer mutex. Nil inside a transaction,
	// where the caller already holds it.
	base *DB
}

// NewPersonStore creates a PostgreSQL implementation of store.PersonStore.
func NewPersonStore(db *DB) *PersonStore {
	return &PersonStore{db: db.sql, base: db}
}

// Ensure PersonStore implements store.PersonStore.
var _ store.PersonStore = (*PersonStore)(nil)

// WithTx returns a PersonStore bound to the given transaction.
func (s *PersonStore) WithTx(tx *sql.Tx) store.PersonStore {
	return &PersonStore{db: tx}
}

// inWriteTx runs fn against a transaction-bound copy of the store, taking
// the writer mutex when this store is not already inside a transaction.
func (s *PersonStore) inWriteTx(ctx context.Context, fn func(ctx context.Context, txStore *PersonStore) error) error {
	if s.base == nil {
		return fn(ctx, s)
	}
	return s.base.InWriteTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, &PersonStore{db: tx})
	})
}

// Create implements store.PersonStore.Create.
func (s *PersonStore) Create(ctx context.Context, person *domain.Person) error {
	if err := person.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	return s.inWriteTx(ctx, func(ctx context.Context, txStore *PersonStore) error {
		query := `
			INSERT INTO people (id, name, date_of_birth, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`
		_, err := txStore.db.ExecContext(ctx, query,
			person.ID, person.Name, person.DateOfBirth, person.CreatedAt, person.UpdatedAt)
		if err != nil {
			return MapError(err)
		}
		for _, cfg := range person.TrackingConfigs() {
			if err := txStore.insertTrackingConfig(ctx, cfg); err != nil {
				return err
			}
		}
		for _, sched := range person.Schedules() {
			if err := insertSchedule(ctx, txStore.db, sched); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID implements store.PersonStore.GetByID. Tracking configurations and
// schedules are loaded with the person.
func (s *PersonStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Person, error) {
	query := `
		SELECT id, name, date_of_birth, created_at, updated_at
		FROM people
		WHERE id = $1
	`
	var (
		name                 string
		dob                  time.Time
		createdAt, updatedAt time.Time
	)
	var pid uuid.UUID
	err := s.db.QueryRowContext(ctx, query, id).Scan(&pid, &name, &dob, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrPersonNotFound, id)
		}
		return nil, MapError(err)
	}

	person := domain.RehydratePerson(pid, name, dob.UTC(), createdAt.UTC(), updatedAt.UTC())

	configs, err := s.ListTrackingConfigs(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, cfg := range configs {
		if err := person.SetTrackingConfig(cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
	}

	schedules, err := schedulesForPerson(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	for _, sched := range schedules {
		if err := person.AttachSchedule(sched); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
	}

	return person, nil
}

// Update implements store.PersonStore.Update: the full record is replaced,
// tracking configurations included.
func (s *PersonStore) Update(ctx context.Context, person *domain.Person) error {
	if err := person.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	return s.inWriteTx(ctx, func(ctx context.Context, txStore *PersonStore) error {
		query := `
			UPDATE people
			SET name = $1, date_of_birth = $2, updated_at = $3
			WHERE id = $4
		`
		result, err := txStore.db.ExecContext(ctx, query,
			person.Name, person.DateOfBirth, person.UpdatedAt, person.ID)
		if err != nil {
			return MapError(err)
		}
		if err := CheckRowsAffected(result, "person"); err != nil {
			return fmt.Errorf("%w: %s", store.ErrPersonNotFound, person.ID)
		}

		// Replace the configuration set wholesale; per-pair uniqueness is
		// enforced by the primary key on reinsert.
		if _, err := txStore.db.ExecContext(ctx,
			`DELETE FROM tracking_configs WHERE person_id = $1`, person.ID); err != nil {
			return MapError(err)
		}
		for _, cfg := range person.TrackingConfigs() {
			if err := txStore.insertTrackingConfig(ctx, cfg); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete implements store.PersonStore.Delete. Tracking configurations and
// schedules cascade through their foreign keys; datapoints are deleted
// explicitly first, in the same transaction.
func (s *PersonStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.inWriteTx(ctx, func(ctx context.Context, txStore *PersonStore) error {
		if _, err := txStore.db.ExecContext(ctx,
			`DELETE FROM datapoints WHERE person_id = $1`, id); err != nil {
			return MapError(err)
		}
		result, err := txStore.db.ExecContext(ctx, `DELETE FROM people WHERE id = $1`, id)
		if err != nil {
			return MapError(err)
		}
		if err := CheckRowsAffected(result, "person"); err != nil {
			return fmt.Errorf("%w: %s", store.ErrPersonNotFound, id)
		}
		logger.FromContext(ctx).Info("person deleted with owned records", "person_id", id)
		return nil
	})
}

// List implements store.PersonStore.List, ordered by name. Each person is
// returned with tracking configurations and schedules loaded, the same
// shape GetByID returns.
func (s *PersonStore) List(ctx context.Context) ([]*domain.Person, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM people ORDER BY name, id`)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, MapError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	people := make([]*domain.Person, 0, len(ids))
	for _, id := range ids {
		person, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		people = append(people, person)
	}
	return people, nil
}

// SaveTrackingConfig implements store.PersonStore.SaveTrackingConfig.
func (s *PersonStore) SaveTrackingConfig(ctx context.Context, cfg domain.TrackingConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	return s.inWriteTx(ctx, func(ctx context.Context, txStore *PersonStore) error {
		return txStore.insertTrackingConfig(ctx, cfg)
	})
}

func (s *PersonStore) insertTrackingConfig(ctx context.Context, cfg domain.TrackingConfig) error {
	query := `
		INSERT INTO tracking_configs (person_id, dp_type, tracked, unit)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.ExecContext(ctx, query, cfg.PersonID, string(cfg.Type), cfg.Tracked, string(cfg.Unit))
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: person %s type %s", store.ErrTrackingConfigExists, cfg.PersonID, cfg.Type)
		}
		return MapError(err)
	}
	return nil
}

// DeleteTrackingConfig implements store.PersonStore.DeleteTrackingConfig.
func (s *PersonStore) DeleteTrackingConfig(ctx context.Context, personID uuid.UUID, t domain.DatapointType) error {
	return s.inWriteTx(ctx, func(ctx context.Context, txStore *PersonStore) error {
		result, err := txStore.db.ExecContext(ctx,
			`DELETE FROM tracking_configs WHERE person_id = $1 AND dp_type = $2`,
			personID, string(t))
		if err != nil {
			return MapError(err)
		}
		return CheckRowsAffected(result, "tracking config")
	})
}

// ListTrackingConfigs implements store.PersonStore.ListTrackingConfigs.
func (s *PersonStore) ListTrackingConfigs(ctx context.Context, personID uuid.UUID) ([]domain.TrackingConfig, error) {
	query := `
		SELECT person_id, dp_type, tracked, unit
		FROM tracking_configs
		WHERE person_id = $1
		ORDER BY dp_type
	`
	rows, err := s.db.QueryContext(ctx, query, personID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var configs []domain.TrackingConfig
	for rows.Next() {
		var (
			pid     uuid.UUID
			typeTag string
			tracked bool
			unitTag string
		)
		if err := rows.Scan(&pid, &typeTag, &tracked, &unitTag); err != nil {
			return nil, MapError(err)
		}
		t, err := domain.ParseDatapointType(typeTag)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
		unit, err := domain.ParseUnit(unitTag)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
		configs = append(configs, domain.TrackingConfig{
			PersonID: pid, Type: t, Tracked: tracked, Unit: unit,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return configs, nil
}
