package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityErrorsUnwrapToCommonSentinels(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, ErrPersonNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrScheduleNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrDatapointNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrTrackingConfigExists, ErrDuplicate)
	assert.ErrorIs(t, ErrDatapointExists, ErrDuplicate)
}

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("loading person: %w", ErrPersonNotFound)
	assert.True(t, IsNotFoundError(wrapped))
	assert.False(t, IsNotFoundError(ErrDuplicate))
	assert.False(t, IsNotFoundError(nil))
}

func TestIsDuplicateError(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("saving config: %w", ErrTrackingConfigExists)
	assert.True(t, IsDuplicateError(wrapped))
	assert.False(t, IsDuplicateError(ErrNotFound))
}

func TestStoreError(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := NewStoreError("person", "create", "insert failed", cause)

	assert.Contains(t, err.Error(), "create operation on person failed")
	assert.Contains(t, err.Error(), "connection reset")
	assert.ErrorIs(t, err, cause)

	bare := NewStoreError("schedule", "delete", "no rows", nil)
	assert.Equal(t, "delete operation on schedule failed: no rows", bare.Error())
}
