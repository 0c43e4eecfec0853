package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/biotrack-api/internal/domain"
	"github.com/phrazzld/biotrack-api/internal/store"
)

const datapointColumns = `person_id, dp_type, taken, value, secondary, unit, note`

// DatapointStore implements store.DatapointStore on PostgreSQL.
type DatapointStore struct {
	db   store.DBTX
	base *DB
}

// NewDatapointStore creates a PostgreSQL implementation of store.DatapointStore.
func NewDatapointStore(db *DB) *DatapointStore {
	return &DatapointStore{db: db.sql, base: db}
}

// Ensure DatapointStore implements store.DatapointStore.
var _ store.DatapointStore = (*DatapointStore)(nil)

// WithTx returns a DatapointStore bound to the given transaction.
func (s *DatapointStore) WithTx(tx *sql.Tx) store.DatapointStore {
	return &DatapointStore{db: tx}
}

func (s *DatapointStore) inWriteTx(ctx context.Context, fn func(ctx context.Context, txStore *DatapointStore) error) error {
	if s.base == nil {
		return fn(ctx, s)
	}
	return s.base.InWriteTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, &DatapointStore{db: tx})
	})
}

// Create implements store.DatapointStore.Create.
func (s *DatapointStore) Create(ctx context.Context, dp domain.Datapoint) error {
	if err := dp.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	return s.inWriteTx(ctx, func(ctx context.Context, txStore *DatapointStore) error {
		return insertDatapoint(ctx, txStore.db, dp)
	})
}

func insertDatapoint(ctx context.Context, db store.DBTX, dp domain.Datapoint) error {
	query := `
		INSERT INTO datapoints (person_id, dp_type, taken, value, secondary, unit, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := db.ExecContext(ctx, query,
		dp.PersonID,
		string(dp.Type),
		dp.Taken,
		dp.Value,
		nullableSecondary(dp),
		string(dp.Unit),
		dp.Note,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: person %s type %s at %s",
				store.ErrDatapointExists, dp.PersonID, dp.Type, dp.Taken.UTC().Format(time.RFC3339))
		}
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: person %s does not exist", store.ErrReferentialIntegrity, dp.PersonID)
		}
		return MapError(err)
	}
	return nil
}

// Get implements store.DatapointStore.Get.
func (s *DatapointStore) Get(ctx context.Context, key domain.DatapointKey) (domain.Datapoint, error) {
	query := `SELECT ` + datapointColumns + `
		FROM datapoints
		WHERE person_id = $1 AND dp_type = $2 AND taken = $3`
	dp, err := scanDatapoint(s.db.QueryRowContext(ctx, query, key.PersonID, string(key.Type), key.Taken))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Datapoint{}, fmt.Errorf("%w: person %s type %s at %s",
				store.ErrDatapointNotFound, key.PersonID, key.Type, key.Taken.UTC().Format(time.RFC3339))
		}
		return domain.Datapoint{}, err
	}
	return dp, nil
}

// Update implements store.DatapointStore.Update. The replacement record
// may move the timestamp, so the old key is deleted and the new record
// inserted in one transaction.
func (s *DatapointStore) Update(ctx context.Context, key domain.DatapointKey, dp domain.Datapoint) error {
	if err := dp.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	return s.inWriteTx(ctx, func(ctx context.Context, txStore *DatapointStore) error {
		result, err := txStore.db.ExecContext(ctx,
			`DELETE FROM datapoints WHERE person_id = $1 AND dp_type = $2 AND taken = $3`,
			key.PersonID, string(key.Type), key.Taken)
		if err != nil {
			return MapError(err)
		}
		if err := CheckRowsAffected(result, "datapoint"); err != nil {
			return fmt.Errorf("%w: person %s type %s at %s",
				store.ErrDatapointNotFound, key.PersonID, key.Type, key.Taken.UTC().Format(time.RFC3339))
		}
		return insertDatapoint(ctx, txStore.db, dp)
	})
}

// Delete implements store.DatapointStore.Delete.
func (s *DatapointStore) Delete(ctx context.Context, key domain.DatapointKey) error {
	return s.inWriteTx(ctx, func(ctx context.Context, txStore *DatapointStore) error {
		result, err := txStore.db.ExecContext(ctx,
			`DELETE FROM datapoints WHERE person_id = $1 AND dp_type = $2 AND taken = $3`,
			key.PersonID, string(key.Type), key.Taken)
		if err != nil {
			return MapError(err)
		}
		if err := CheckRowsAffected(result, "datapoint"); err != nil {
			return fmt.Errorf("%w: person %s type %s at %s",
				store.ErrDatapointNotFound, key.PersonID, key.Type, key.Taken.UTC().Format(time.RFC3339))
		}
		return nil
	})
}

// DeleteForPerson implements store.DatapointStore.DeleteForPerson.
// Deleting zero rows is not an error.
func (s *DatapointStore) DeleteForPerson(ctx context.Context, personID uuid.UUID) error {
	return s.inWriteTx(ctx, func(ctx context.Context, txStore *DatapointStore) error {
		if _, err := txStore.db.ExecContext(ctx,
			`DELETE FROM datapoints WHERE person_id = $1`, personID); err != nil {
			return MapError(err)
		}
		return nil
	})
}

// List implements store.DatapointStore.List. An empty type matches all
// types; the range is inclusive at both ends.
func (s *DatapointStore) List(ctx context.Context, personID uuid.UUID, t domain.DatapointType, from, to time.Time) ([]domain.Datapoint, error) {
	query := `SELECT ` + datapointColumns + `
		FROM datapoints
		WHERE person_id = $1 AND taken >= $2 AND taken <= $3`
	args := []any{personID, from, to}
	if t != "" {
		query += ` AND dp_type = $4`
		args = append(args, string(t))
	}
	query += ` ORDER BY taken, dp_type`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var datapoints []domain.Datapoint
	for rows.Next() {
		dp, err := scanDatapoint(rows)
		if err != nil {
			return nil, err
		}
		datapoints = append(datapoints, dp)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return datapoints, nil
}

func scanDatapoint(row rowScanner) (domain.Datapoint, error) {
	var (
		dp        domain.Datapoint
		typeTag   string
		secondary sql.NullFloat64
		unitTag   string
	)
	err := row.Scan(&dp.PersonID, &typeTag, &dp.Taken, &dp.Value, &secondary, &unitTag, &dp.Note)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Datapoint{}, err
		}
		return domain.Datapoint{}, MapError(err)
	}

	t, err := domain.ParseDatapointType(typeTag)
	if err != nil {
		return domain.Datapoint{}, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	dp.Type = t
	unit, err := domain.ParseUnit(unitTag)
	if err != nil {
		return domain.Datapoint{}, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	dp.Unit = unit
	if secondary.Valid {
		dp.Secondary = secondary.Float64
	}
	dp.Taken = dp.Taken.UTC()
	return dp, nil
}

// nullableSecondary maps the absent secondary value to NULL. Only blood
// pressure carries a secondary reading.
func nullableSecondary(dp domain.Datapoint) any {
	if dp.Type != domain.TypeBloodPressure {
		return nil
	}
	return dp.Secondary
}
