package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrInvalidReading is returned when a datapoint's values are not
	// physically plausible (for example a systolic pressure at or below
	// the diastolic). It rejects the single entry and is recoverable.
	ErrInvalidReading = errors.New("invalid reading")

	// ErrIncompatibleUnitFamily is returned when a conversion is requested
	// between units of different physical-quantity families. This is a
	// programming or configuration error, not a runtime condition to coerce.
	ErrIncompatibleUnitFamily = errors.New("incompatible unit family")

	// ErrAlreadyTracked is returned when a tracking configuration is added
	// for a datapoint type the person already tracks.
	ErrAlreadyTracked = errors.New("datapoint type already tracked")

	// ErrNotTracked is returned when a tracking operation references a
	// datapoint type the person has no configuration for.
	ErrNotTracked = errors.New("datapoint type not tracked")

	// ErrStaleTrigger is returned when a firing is recorded at a time that
	// precedes the schedule's computed next occurrence or its recorded
	// last trigger. Dispatchers should treat it as "already handled".
	ErrStaleTrigger = errors.New("stale trigger")

	// ErrUnknownDatapointType is returned when a serialized record carries
	// a type tag outside the closed variant set.
	ErrUnknownDatapointType = errors.New("unknown datapoint type")

	// ErrInvalidSchedule is returned when a schedule's recurrence rule is
	// malformed (for example a weekly frequency with an empty weekday set).
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrInvalidPerson is returned when a person fails validation.
	ErrInvalidPerson = errors.New("invalid person")
)
