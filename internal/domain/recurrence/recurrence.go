// Package recurrence implements the scheduling algorithms for reminder
// schedules: occurrence enumeration, next-occurrence computation, and the
// idempotent trigger-advancement used to record firings.
//
// All functions here are pure calendar arithmetic over domain.Schedule
// values. They hold no locks and touch no storage, so they may be invoked
// freely from any goroutine.
package recurrence

import (
	"fmt"
	"time"

	"github.com/phrazzld/biotrack-api/internal/domain"
)

// State describes where a schedule sits in its firing lifecycle.
type State string

// Schedule lifecycle states. Fired is transient: recording a firing moves a
// recurring schedule back to Pending and a one-time schedule to Terminal.
const (
	StatePending  State = "pending"
	StateDue      State = "due"
	StateTerminal State = "terminal"
)

// NextOccurrence computes the earliest occurrence of the schedule at or
// after asOf that has not already been triggered. The second return value
// is false when no further occurrence exists: one-time schedules that have
// fired, schedules past their end date, and suspended schedules.
//
// Monthly schedules anchor on the start date's day-of-month; when a
// candidate month is too short the occurrence clamps to that month's last
// day (a documented policy, not an error), so a schedule anchored on the
// 31st fires on April 30th rather than skipping April.
func NextOccurrence(s *domain.Schedule, asOf time.Time) (time.Time, bool) {
	if s.Suspended {
		return time.Time{}, false
	}

	switch s.Frequency {
	case domain.FrequencyOneTime:
		if s.LastTriggered != nil {
			return time.Time{}, false
		}
		occ := s.At.On(s.StartsOn)
		if pastEnd(s, domain.DateOf(occ)) {
			return time.Time{}, false
		}
		return occ, true

	case domain.FrequencyDaily:
		day := laterDate(s.StartsOn, domain.DateOf(asOf))
		day = laterDate(day, dayAfterTrigger(s))
		if pastEnd(s, day) {
			return time.Time{}, false
		}
		return s.At.On(day), true

	case domain.FrequencyWeekly:
		day := laterDate(s.StartsOn, domain.DateOf(asOf))
		day = laterDate(day, dayAfterTrigger(s))
		// Scan forward day by day; the earliest matching calendar date wins.
		for i := 0; i < 7; i++ {
			if s.Weekdays.Has(day.Weekday()) {
				if pastEnd(s, day) {
					return time.Time{}, false
				}
				return s.At.On(day), true
			}
			day = day.AddDate(0, 0, 1)
		}
		// Validate() guarantees a non-empty weekday set for weekly schedules.
		return time.Time{}, false

	case domain.FrequencyMonthly:
		lower := laterDate(s.StartsOn, domain.DateOf(asOf))
		lower = laterDate(lower, dayAfterTrigger(s))
		anchor := s.StartsOn.Day()
		day := monthlyOccurrence(lower.Year(), lower.Month(), anchor)
		if day.Before(lower) {
			next := lower.AddDate(0, 0, -lower.Day()+1).AddDate(0, 1, 0)
			day = monthlyOccurrence(next.Year(), next.Month(), anchor)
		}
		if pastEnd(s, day) {
			return time.Time{}, false
		}
		return s.At.On(day), true
	}

	return time.Time{}, false
}

// WeekdayDates enumerates, in ascending order, every date in
// [rangeStart, rangeEnd] whose weekday is in the schedule's configured set,
// each anchored at the schedule's time of day. The enumeration is finite
// and restartable: calling it again with a later rangeStart resumes the
// sequence. It is used both by NextOccurrence's callers and to back-fill
// reminders missed while the application was not running.
//
// Dates before the schedule's start or after its end are excluded.
func WeekdayDates(s *domain.Schedule, rangeStart, rangeEnd time.Time) []time.Time {
	start := laterDate(domain.DateOf(rangeStart), s.StartsOn)
	end := domain.DateOf(rangeEnd)
	if !s.EndsOn.IsZero() && end.After(s.EndsOn) {
		end = s.EndsOn
	}

	var dates []time.Time
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if s.Weekdays.Has(day.Weekday()) {
			dates = append(dates, s.At.On(day))
		}
	}
	return dates
}

// MissedOccurrences counts occurrences strictly between the last trigger
// and asOf that were never fired. Dispatchers use it to report the size of
// a catch-up after the application was down.
func MissedOccurrences(s *domain.Schedule, asOf time.Time) int {
	if s.LastTriggered == nil || s.Frequency != domain.FrequencyWeekly {
		return 0
	}
	from := domain.DateOf(*s.LastTriggered).AddDate(0, 0, 1)
	missed := 0
	for _, occ := range WeekdayDates(s, from, asOf) {
		if occ.Before(asOf) {
			missed++
		}
	}
	return missed
}

// Evaluate returns the schedule's lifecycle state as of the given time.
func Evaluate(s *domain.Schedule, asOf time.Time) State {
	occ, ok := NextOccurrence(s, asOf)
	if !ok {
		return StateTerminal
	}
	if !asOf.Before(occ) {
		return StateDue
	}
	return StatePending
}

// IsDue reports whether the schedule has an occurrence at or before asOf.
// "Not due yet" is a false value, never an error.
func IsDue(s *domain.Schedule, asOf time.Time) bool {
	return Evaluate(s, asOf) == StateDue
}

// MarkTriggered records a firing at firedAt, returning a new schedule value
// with LastTriggered advanced; the input is never mutated.
//
// The call is idempotent: recording the same firedAt twice returns an
// unchanged copy and no error. A firedAt that precedes the schedule's own
// computed next occurrence, or its recorded last trigger, fails with
// ErrStaleTrigger; this guards against double-firing from clock skew or
// concurrent dispatch.
func MarkTriggered(s *domain.Schedule, firedAt time.Time) (*domain.Schedule, error) {
	firedAt = firedAt.UTC()

	if s.LastTriggered != nil {
		if firedAt.Equal(*s.LastTriggered) {
			return s.Clone(), nil
		}
		if firedAt.Before(*s.LastTriggered) {
			return nil, fmt.Errorf(
				"%w: fired at %s precedes last trigger %s",
				domain.ErrStaleTrigger, firedAt.Format(time.RFC3339), s.LastTriggered.Format(time.RFC3339),
			)
		}
	}

	occ, ok := NextOccurrence(s, firedAt)
	if !ok {
		return nil, fmt.Errorf("%w: schedule has no further occurrence", domain.ErrStaleTrigger)
	}
	if firedAt.Before(occ) {
		return nil, fmt.Errorf(
			"%w: fired at %s precedes next occurrence %s",
			domain.ErrStaleTrigger, firedAt.Format(time.RFC3339), occ.Format(time.RFC3339),
		)
	}

	out := s.Clone()
	out.LastTriggered = &firedAt
	out.UpdatedAt = time.Now().UTC()
	return out, nil
}

// pastEnd reports whether the candidate day falls after the schedule's end
// date. An open-ended schedule never passes its end.
func pastEnd(s *domain.Schedule, day time.Time) bool {
	return !s.EndsOn.IsZero() && day.After(s.EndsOn)
}

// dayAfterTrigger returns the day after the last trigger's date, the lower
// bound for the next occurrence of a recurring schedule. Zero when the
// schedule has never fired.
func dayAfterTrigger(s *domain.Schedule) time.Time {
	if s.LastTriggered == nil {
		return time.Time{}
	}
	return domain.DateOf(*s.LastTriggered).AddDate(0, 0, 1)
}

func laterDate(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// monthlyOccurrence resolves the anchor day-of-month within a month,
// clamping to the month's last day when the month is too short.
func monthlyOccurrence(year int, month time.Month, anchorDay int) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	day := anchorDay
	if day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
