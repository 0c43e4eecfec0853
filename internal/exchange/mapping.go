// Package exchange moves datapoints across process boundaries: CSV import
// and export with a configurable column mapping, a JSON codec surface, and
// store-to-store copy. Imports commit row by row, so one bad row never
// poisons the rest of a file; failures come back in a per-row report.
package exchange

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/biotrack-api/internal/domain"
)

// ErrInvalidMapping indicates a column mapping that cannot drive an import
// or export.
var ErrInvalidMapping = errors.New("invalid column mapping")

// ColumnAbsent marks an optional column as not present in the file.
const ColumnAbsent = -1

// ColumnMapping describes how CSV columns map onto datapoint fields for a
// single datapoint type. Required columns carry zero-based indexes;
// optional columns use ColumnAbsent when the file does not have them.
//
// When the unit column is absent, each row takes the person's configured
// unit for the type. When the secondary column is absent, blood pressure
// rows may carry both readings in the value column as "systolic/diastolic".
type ColumnMapping struct {
	// Type is the datapoint variant the file contains.
	Type domain.DatapointType `validate:"required"`

	// Timestamp is the index of the reading-time column.
	Timestamp int `validate:"min=0"`

	// Value is the index of the value column.
	Value int `validate:"min=0"`

	// Secondary is the index of the diastolic column, ColumnAbsent if none.
	Secondary int `validate:"min=-1"`

	// Unit is the index of the unit-tag column, ColumnAbsent if none.
	Unit int `validate:"min=-1"`

	// Note is the index of the note column, ColumnAbsent if none.
	Note int `validate:"min=-1"`

	// TimestampLayout is the time.Parse layout for the timestamp column.
	// Empty defaults to RFC 3339.
	TimestampLayout string

	// HasHeader indicates the first row is a header and is skipped on
	// import and written on export.
	HasHeader bool
}

var validate = validator.New()

// Layout returns the timestamp layout, defaulted.
func (m ColumnMapping) Layout() string {
	if m.TimestampLayout == "" {
		return time.RFC3339
	}
	return m.TimestampLayout
}

// Validate checks that the mapping can drive an import: a known type,
// in-range indexes, and no two fields sharing a column.
func (m ColumnMapping) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}
	if !m.Type.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidMapping,
			fmt.Errorf("%w: %q", domain.ErrUnknownDatapointType, m.Type))
	}
	seen := map[int]string{}
	for name, idx := range map[string]int{
		"timestamp": m.Timestamp,
		"value":     m.Value,
		"secondary": m.Secondary,
		"unit":      m.Unit,
		"note":      m.Note,
	} {
		if idx == ColumnAbsent {
			continue
		}
		if other, dup := seen[idx]; dup {
			return fmt.Errorf("%w: columns %s and %s both mapped to index %d",
				ErrInvalidMapping, other, name, idx)
		}
		seen[idx] = name
	}
	return nil
}

// width returns the minimum record length the mapping requires.
func (m ColumnMapping) width() int {
	max := m.Timestamp
	for _, idx := range []int{m.Value, m.Secondary, m.Unit, m.Note} {
		if idx > max {
			max = idx
		}
	}
	return max + 1
}

// headerName maps a column index to its header label, empty for unmapped
// columns.
func (m ColumnMapping) headerName(idx int) string {
	switch idx {
	case m.Timestamp:
		return "taken"
	case m.Value:
		return "value"
	case m.Secondary:
		return "secondary"
	case m.Unit:
		return "unit"
	case m.Note:
		return "note"
	}
	return ""
}
