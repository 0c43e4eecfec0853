package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DatapointType tags one of the closed set of measurement variants.
// Persistence and serialization switch exhaustively over this tag.
type DatapointType string

// The supported datapoint variants.
const (
	TypeBloodPressure   DatapointType = "blood_pressure"
	TypeBloodGlucose    DatapointType = "blood_glucose"
	TypePulse           DatapointType = "pulse"
	TypeBodyTemperature DatapointType = "body_temperature"
	TypeBodyWeight      DatapointType = "body_weight"
)

// DatapointTypes lists every variant in display order.
var DatapointTypes = []DatapointType{
	TypeBloodPressure,
	TypeBloodGlucose,
	TypePulse,
	TypeBodyTemperature,
	TypeBodyWeight,
}

var typeFamilies = map[DatapointType]UnitFamily{
	TypeBloodPressure:   FamilyPressure,
	TypeBloodGlucose:    FamilyConcentration,
	TypePulse:           FamilyCount,
	TypeBodyTemperature: FamilyTemperature,
	TypeBodyWeight:      FamilyMass,
}

// canonicalUnits maps each type to the unit its plausibility range is
// expressed in. Values are validated after converting into this unit; the
// stored value itself stays in the unit as entered.
var canonicalUnits = map[DatapointType]Unit{
	TypeBloodPressure:   UnitMmHg,
	TypeBloodGlucose:    UnitMgPerDl,
	TypePulse:           UnitBeatsPerMin,
	TypeBodyTemperature: UnitCelsius,
	TypeBodyWeight:      UnitKilograms,
}

var typeLabels = map[DatapointType]string{
	TypeBloodPressure:   "Blood Pressure",
	TypeBloodGlucose:    "Blood Glucose",
	TypePulse:           "Pulse",
	TypeBodyTemperature: "Temperature",
	TypeBodyWeight:      "Body Weight",
}

// readingRange bounds a physically plausible reading in the canonical unit.
type readingRange struct {
	min, max float64
}

var plausibleRanges = map[DatapointType]readingRange{
	TypeBloodPressure:   {min: 20, max: 300},
	TypeBloodGlucose:    {min: 10, max: 1000},
	TypePulse:           {min: 20, max: 300},
	TypeBodyTemperature: {min: 25, max: 45},
	TypeBodyWeight:      {min: 0.5, max: 700},
}

// Family returns the physical-quantity family the type is measured in.
func (t DatapointType) Family() UnitFamily {
	return typeFamilies[t]
}

// CanonicalUnit returns the unit the type's plausibility range is defined in.
func (t DatapointType) CanonicalUnit() Unit {
	return canonicalUnits[t]
}

// Label returns the display label for the type.
func (t DatapointType) Label() string {
	return typeLabels[t]
}

// Valid reports whether the tag names a supported datapoint type.
func (t DatapointType) Valid() bool {
	_, ok := typeFamilies[t]
	return ok
}

// ParseDatapointType maps a stored tag to a DatapointType.
// Returns ErrUnknownDatapointType for tags outside the variant set.
func ParseDatapointType(tag string) (DatapointType, error) {
	t := DatapointType(tag)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDatapointType, tag)
	}
	return t, nil
}

// DatapointKey is the natural key of a datapoint, used for equality,
// de-duplication during import, and addressing in the store.
type DatapointKey struct {
	PersonID uuid.UUID
	Type     DatapointType
	Taken    time.Time
}

// Datapoint is a recorded biometric reading. It is a value object: edits
// replace the record rather than mutating it in place. Value and Secondary
// are stored in the unit as entered; conversion for display or export is
// computed on read and never rewrites stored data.
//
// Secondary is meaningful only for blood pressure, where Value is the
// systolic and Secondary the diastolic reading.
type Datapoint struct {
	PersonID  uuid.UUID
	Type      DatapointType
	Taken     time.Time
	Value     float64
	Secondary float64
	Unit      Unit
	Note      string
}

// NewBloodPressure constructs a validated blood pressure reading.
func NewBloodPressure(personID uuid.UUID, taken time.Time, systolic, diastolic float64, unit Unit, note string) (Datapoint, error) {
	dp := Datapoint{
		PersonID:  personID,
		Type:      TypeBloodPressure,
		Taken:     taken.UTC(),
		Value:     systolic,
		Secondary: diastolic,
		Unit:      unit,
		Note:      note,
	}
	if err := dp.Validate(); err != nil {
		return Datapoint{}, err
	}
	return dp, nil
}

// NewBloodGlucose constructs a validated blood glucose reading.
func NewBloodGlucose(personID uuid.UUID, taken time.Time, value float64, unit Unit, note string) (Datapoint, error) {
	return newSingleValue(personID, TypeBloodGlucose, taken, value, unit, note)
}

// NewPulse constructs a validated pulse reading.
func NewPulse(personID uuid.UUID, taken time.Time, value float64, unit Unit, note string) (Datapoint, error) {
	return newSingleValue(personID, TypePulse, taken, value, unit, note)
}

// NewBodyTemperature constructs a validated body temperature reading.
func NewBodyTemperature(personID uuid.UUID, taken time.Time, value float64, unit Unit, note string) (Datapoint, error) {
	return newSingleValue(personID, TypeBodyTemperature, taken, value, unit, note)
}

// NewBodyWeight constructs a validated body weight reading.
func NewBodyWeight(personID uuid.UUID, taken time.Time, value float64, unit Unit, note string) (Datapoint, error) {
	return newSingleValue(personID, TypeBodyWeight, taken, value, unit, note)
}

func newSingleValue(personID uuid.UUID, t DatapointType, taken time.Time, value float64, unit Unit, note string) (Datapoint, error) {
	dp := Datapoint{
		PersonID: personID,
		Type:     t,
		Taken:    taken.UTC(),
		Value:    value,
		Unit:     unit,
		Note:     note,
	}
	if err := dp.Validate(); err != nil {
		return Datapoint{}, err
	}
	return dp, nil
}

// NewDatapoint constructs a validated reading dispatching on the type tag.
// Secondary is ignored for every type but blood pressure.
func NewDatapoint(personID uuid.UUID, t DatapointType, taken time.Time, value, secondary float64, unit Unit, note string) (Datapoint, error) {
	switch t {
	case TypeBloodPressure:
		return NewBloodPressure(personID, taken, value, secondary, unit, note)
	case TypeBloodGlucose:
		return NewBloodGlucose(personID, taken, value, unit, note)
	case TypePulse:
		return NewPulse(personID, taken, value, unit, note)
	case TypeBodyTemperature:
		return NewBodyTemperature(personID, taken, value, unit, note)
	case TypeBodyWeight:
		return NewBodyWeight(personID, taken, value, unit, note)
	default:
		return Datapoint{}, fmt.Errorf("%w: %q", ErrUnknownDatapointType, t)
	}
}

// Validate checks identity fields, unit/type family agreement, and that the
// values are physically plausible. Returns ErrInvalidReading for implausible
// values and ErrIncompatibleUnitFamily for a unit outside the type's family.
func (d Datapoint) Validate() error {
	if d.PersonID == uuid.Nil {
		return fmt.Errorf("%w: person ID cannot be empty", ErrInvalidReading)
	}
	if !d.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownDatapointType, d.Type)
	}
	if d.Taken.IsZero() {
		return fmt.Errorf("%w: timestamp cannot be zero", ErrInvalidReading)
	}
	if !d.Unit.Valid() || d.Unit.Family() != d.Type.Family() {
		return fmt.Errorf(
			"%w: unit %s does not measure %s",
			ErrIncompatibleUnitFamily, d.Unit, d.Type,
		)
	}

	canonical := d.Type.CanonicalUnit()
	value, err := Convert(d.Value, d.Unit, canonical)
	if err != nil {
		return err
	}
	bounds := plausibleRanges[d.Type]
	if value < bounds.min || value > bounds.max {
		return fmt.Errorf(
			"%w: %s value %.2f %s outside plausible range",
			ErrInvalidReading, d.Type, d.Value, d.Unit.Abbreviation(),
		)
	}

	if d.Type == TypeBloodPressure {
		if d.Secondary < bounds.min || d.Secondary > bounds.max {
			return fmt.Errorf(
				"%w: diastolic value %.2f outside plausible range",
				ErrInvalidReading, d.Secondary,
			)
		}
		if d.Value <= d.Secondary {
			return fmt.Errorf(
				"%w: systolic %.0f must exceed diastolic %.0f",
				ErrInvalidReading, d.Value, d.Secondary,
			)
		}
	} else if d.Secondary != 0 {
		return fmt.Errorf("%w: %s carries no secondary value", ErrInvalidReading, d.Type)
	}

	return nil
}

// Key returns the datapoint's natural key.
func (d Datapoint) Key() DatapointKey {
	return DatapointKey{PersonID: d.PersonID, Type: d.Type, Taken: d.Taken}
}

// Equal reports natural-key equality: same person, type, and timestamp.
func (d Datapoint) Equal(other Datapoint) bool {
	return d.PersonID == other.PersonID &&
		d.Type == other.Type &&
		d.Taken.Equal(other.Taken)
}

// DisplayValue renders the reading converted into the requested unit, with
// the unit abbreviation appended. Stored values are never modified.
func (d Datapoint) DisplayValue(in Unit) (string, error) {
	value, err := Convert(d.Value, d.Unit, in)
	if err != nil {
		return "", err
	}
	if d.Type == TypeBloodPressure {
		secondary, err := Convert(d.Secondary, d.Unit, in)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%.0f/%.0f %s", value, secondary, in.Abbreviation()), nil
	}
	return fmt.Sprintf("%.1f %s", value, in.Abbreviation()), nil
}

// String renders the reading in its stored unit.
func (d Datapoint) String() string {
	s, err := d.DisplayValue(d.Unit)
	if err != nil {
		return fmt.Sprintf("%s <%v>", d.Type.Label(), err)
	}
	return fmt.Sprintf("%s %s %s", d.Taken.Format("2006-01-02 15:04"), d.Type.Label(), s)
}
