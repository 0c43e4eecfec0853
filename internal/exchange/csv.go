package exchange

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/biotrack-api/internal/domain"
	"github.com/phrazzld/biotrack-api/internal/store"
)

// RowError records a single row that failed to import.
type RowError struct {
	// Row is the 1-based position in the file, header included.
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e RowError) Unwrap() error {
	return e.Err
}

// ImportReport summarizes an import: rows committed and rows rejected.
// Failed rows never roll back committed ones.
type ImportReport struct {
	Committed int
	Failed    []RowError
}

// Clean reports whether every row committed.
func (r ImportReport) Clean() bool {
	return len(r.Failed) == 0
}

// CSVImporter reads datapoints from CSV, validating and committing each row
// independently.
type CSVImporter struct {
	people     store.PersonStore
	datapoints store.DatapointStore
	logger     *slog.Logger
}

// NewCSVImporter creates a CSVImporter with the given dependencies.
func NewCSVImporter(people store.PersonStore, datapoints store.DatapointStore, logger *slog.Logger) *CSVImporter {
	if people == nil {
		panic("person store cannot be nil")
	}
	if datapoints == nil {
		panic("datapoint store cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &CSVImporter{
		people:     people,
		datapoints: datapoints,
		logger:     logger.With("component", "csv_importer"),
	}
}

// Import reads rows from r and records them as datapoints for the person.
// Rows parse, validate, and commit independently: a failed row lands in
// the report with its cause and the import moves on. The error return is
// reserved for whole-import failures (bad mapping, unknown person, a type
// the person does not track, unreadable input).
func (i *CSVImporter) Import(ctx context.Context, r io.Reader, personID uuid.UUID, mapping ColumnMapping) (ImportReport, error) {
	if err := mapping.Validate(); err != nil {
		return ImportReport{}, err
	}
	person, err := i.people.GetByID(ctx, personID)
	if err != nil {
		return ImportReport{}, err
	}
	if !person.IsTracked(mapping.Type) {
		return ImportReport{}, fmt.Errorf("%w: %s for person %s", domain.ErrNotTracked, mapping.Type, personID)
	}
	defaultUnit, _ := person.TrackedUnit(mapping.Type)

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var report ImportReport
	row := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				report.Failed = append(report.Failed, RowError{Row: row, Err: err})
				continue
			}
			return report, fmt.Errorf("reading csv: %w", err)
		}
		if row == 1 && mapping.HasHeader {
			continue
		}

		dp, err := i.parseRow(record, personID, mapping, defaultUnit)
		if err != nil {
			report.Failed = append(report.Failed, RowError{Row: row, Err: err})
			continue
		}
		if err := i.datapoints.Create(ctx, dp); err != nil {
			report.Failed = append(report.Failed, RowError{Row: row, Err: err})
			continue
		}
		report.Committed++
	}

	i.logger.Info("csv import finished",
		"person_id", personID,
		"type", mapping.Type,
		"committed", report.Committed,
		"failed", len(report.Failed))
	return report, nil
}

func (i *CSVImporter) parseRow(record []string, personID uuid.UUID, mapping ColumnMapping, defaultUnit domain.Unit) (domain.Datapoint, error) {
	if len(record) < mapping.width() {
		return domain.Datapoint{}, fmt.Errorf("%w: %d columns, need %d",
			domain.ErrInvalidReading, len(record), mapping.width())
	}

	taken, err := time.Parse(mapping.Layout(), strings.TrimSpace(record[mapping.Timestamp]))
	if err != nil {
		return domain.Datapoint{}, fmt.Errorf("%w: bad timestamp %q: %v",
			domain.ErrInvalidReading, record[mapping.Timestamp], err)
	}

	rawValue := strings.TrimSpace(record[mapping.Value])
	var value, secondary float64
	switch {
	case mapping.Secondary != ColumnAbsent:
		value, err = strconv.ParseFloat(rawValue, 64)
		if err != nil {
			return domain.Datapoint{}, fmt.Errorf("%w: bad value %q", domain.ErrInvalidReading, rawValue)
		}
		raw := strings.TrimSpace(record[mapping.Secondary])
		if raw != "" {
			secondary, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				return domain.Datapoint{}, fmt.Errorf("%w: bad secondary value %q", domain.ErrInvalidReading, raw)
			}
		}
	case mapping.Type == domain.TypeBloodPressure && strings.Contains(rawValue, "/"):
		// Compact form "systolic/diastolic" in a single column.
		parts := strings.SplitN(rawValue, "/", 2)
		value, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err == nil {
			secondary, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		}
		if err != nil {
			return domain.Datapoint{}, fmt.Errorf("%w: bad blood pressure %q", domain.ErrInvalidReading, rawValue)
		}
	default:
		value, err = strconv.ParseFloat(rawValue, 64)
		if err != nil {
			return domain.Datapoint{}, fmt.Errorf("%w: bad value %q", domain.ErrInvalidReading, rawValue)
		}
	}

	unit := defaultUnit
	if mapping.Unit != ColumnAbsent {
		raw := strings.TrimSpace(record[mapping.Unit])
		if raw != "" {
			unit, err = domain.ParseUnit(raw)
			if err != nil {
				return domain.Datapoint{}, err
			}
		}
	}

	note := ""
	if mapping.Note != ColumnAbsent {
		note = strings.TrimSpace(record[mapping.Note])
	}

	return domain.NewDatapoint(personID, mapping.Type, taken, value, secondary, unit, note)
}

// CSVExporter writes datapoints as CSV using the same column vocabulary
// the importer reads, so an exported file re-imports unchanged.
type CSVExporter struct {
	datapoints store.DatapointStore
	logger     *slog.Logger
}

// NewCSVExporter creates a CSVExporter with the given dependencies.
func NewCSVExporter(datapoints store.DatapointStore, logger *slog.Logger) *CSVExporter {
	if datapoints == nil {
		panic("datapoint store cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &CSVExporter{
		datapoints: datapoints,
		logger:     logger.With("component", "csv_exporter"),
	}
}

// Export writes the person's datapoints of the mapping's type within
// [from, to] to w, columns laid out per the mapping. Returns the number of
// rows written, the header excluded.
func (e *CSVExporter) Export(ctx context.Context, w io.Writer, personID uuid.UUID, mapping ColumnMapping, from, to time.Time) (int, error) {
	if err := mapping.Validate(); err != nil {
		return 0, err
	}
	datapoints, err := e.datapoints.List(ctx, personID, mapping.Type, from, to)
	if err != nil {
		return 0, err
	}

	writer := csv.NewWriter(w)
	width := mapping.width()

	if mapping.HasHeader {
		header := make([]string, width)
		for idx := range header {
			header[idx] = mapping.headerName(idx)
		}
		if err := writer.Write(header); err != nil {
			return 0, fmt.Errorf("writing csv header: %w", err)
		}
	}

	for _, dp := range datapoints {
		record := make([]string, width)
		record[mapping.Timestamp] = dp.Taken.UTC().Format(mapping.Layout())
		record[mapping.Value] = formatValue(dp.Value)
		if mapping.Secondary != ColumnAbsent {
			if dp.Type == domain.TypeBloodPressure {
				record[mapping.Secondary] = formatValue(dp.Secondary)
			}
		} else if dp.Type == domain.TypeBloodPressure {
			record[mapping.Value] = fmt.Sprintf("%s/%s", formatValue(dp.Value), formatValue(dp.Secondary))
		}
		if mapping.Unit != ColumnAbsent {
			record[mapping.Unit] = string(dp.Unit)
		}
		if mapping.Note != ColumnAbsent {
			record[mapping.Note] = dp.Note
		}
		if err := writer.Write(record); err != nil {
			return 0, fmt.Errorf("writing csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, fmt.Errorf("flushing csv: %w", err)
	}
	e.logger.Info("csv export finished",
		"person_id", personID, "type", mapping.Type, "rows", len(datapoints))
	return len(datapoints), nil
}

// formatValue renders a float without trailing zero noise.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
