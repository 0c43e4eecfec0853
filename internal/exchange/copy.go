package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/biotrack-api/internal/store"
)

// CopyReport counts the entities moved by a store-to-store copy.
type CopyReport struct {
	People     int
	Schedules  int
	Datapoints int
}

// Copier moves a full dataset between stores, preserving every primary
// key: person and schedule ids, datapoint natural keys, and recorded
// trigger state survive the copy intact. It backs backup/restore and
// migration between databases.
type Copier struct {
	logger *slog.Logger
}

// NewCopier creates a Copier.
func NewCopier(logger *slog.Logger) *Copier {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Copier{logger: logger.With("component", "copier")}
}

// datapointRange spans every representable reading time.
var (
	datapointRangeStart = time.Time{}.Add(time.Nanosecond)
	datapointRangeEnd   = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
)

// Copy replicates every person, with their tracking configurations,
// schedules, and datapoints, from src into dst. The destination must not
// already contain the copied keys; a clash aborts with the store's
// duplicate error and leaves the partial copy in place for inspection.
func (c *Copier) Copy(ctx context.Context, src, dst store.Stores) (CopyReport, error) {
	var report CopyReport

	people, err := src.People.List(ctx)
	if err != nil {
		return report, fmt.Errorf("listing source people: %w", err)
	}

	for _, person := range people {
		if err := dst.People.Create(ctx, person); err != nil {
			return report, fmt.Errorf("copying person %s: %w", person.ID, err)
		}
		report.People++
		report.Schedules += len(person.Schedules())

		datapoints, err := src.Datapoints.List(ctx, person.ID, "", datapointRangeStart, datapointRangeEnd)
		if err != nil {
			return report, fmt.Errorf("listing datapoints for person %s: %w", person.ID, err)
		}
		for _, dp := range datapoints {
			if err := dst.Datapoints.Create(ctx, dp); err != nil {
				return report, fmt.Errorf("copying datapoint %s/%s/%s: %w",
					dp.PersonID, dp.Type, dp.Taken.UTC().Format(time.RFC3339), err)
			}
			report.Datapoints++
		}
	}

	c.logger.Info("store copy finished",
		"people", report.People,
		"schedules", report.Schedules,
		"datapoints", report.Datapoints)
	return report, nil
}
