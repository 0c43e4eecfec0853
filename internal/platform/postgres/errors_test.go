package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/biotrack-api/internal/store"
)

func pgError(code, constraint string) *pgconn.PgError {
	return &pgconn.PgError{Code: code, ConstraintName: constraint}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "nil passes through", err: nil, expected: nil},
		{name: "no rows to not found", err: sql.ErrNoRows, expected: store.ErrNotFound},
		{name: "wrapped no rows", err: fmt.Errorf("scan: %w", sql.ErrNoRows), expected: store.ErrNotFound},
		{name: "unique violation to duplicate", err: pgError("23505", "datapoints_pkey"), expected: store.ErrDuplicate},
		{name: "fk violation to referential integrity", err: pgError("23503", "datapoints_person_id_fkey"), expected: store.ErrReferentialIntegrity},
		{name: "check violation to invalid entity", err: pgError("23514", "schedules_weekly_weekdays"), expected: store.ErrInvalidEntity},
		{name: "not null violation to invalid entity", err: pgError("23502", ""), expected: store.ErrInvalidEntity},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			mapped := MapError(tc.err)
			if tc.expected == nil {
				assert.NoError(t, mapped)
				return
			}
			assert.ErrorIs(t, mapped, tc.expected)
		})
	}
}

func TestMapErrorPassesUnknownThrough(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	assert.Equal(t, cause, MapError(cause))

	// Unknown postgres codes are not remapped.
	serialization := pgError("40001", "")
	assert.Equal(t, error(serialization), MapError(serialization))
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(pgError("23505", "x")))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", pgError("23505", "x"))))
	assert.False(t, IsUniqueViolation(pgError("23503", "x")))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
}

func TestIsForeignKeyViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsForeignKeyViolation(pgError("23503", "x")))
	assert.False(t, IsForeignKeyViolation(pgError("23505", "x")))
}
