package domain

import "fmt"

// UnitFamily identifies a physical-quantity family. Conversion is only
// defined between units of the same family.
type UnitFamily string

// Supported unit families.
const (
	FamilyPressure      UnitFamily = "pressure"
	FamilyConcentration UnitFamily = "concentration"
	FamilyTemperature   UnitFamily = "temperature"
	FamilyMass          UnitFamily = "mass"
	FamilyCount         UnitFamily = "count"
)

// Unit is an enumerated unit-of-measure tag scoped to a family.
type Unit string

// Supported units.
const (
	UnitMmHg        Unit = "mmhg"
	UnitMgPerDl     Unit = "mg_per_dl"
	UnitMmolPerL    Unit = "mmol_per_l"
	UnitCelsius     Unit = "celsius"
	UnitFahrenheit  Unit = "fahrenheit"
	UnitPounds      Unit = "lb"
	UnitKilograms   Unit = "kg"
	UnitBeatsPerMin Unit = "bpm"
)

// Conversion constants. Mass and concentration convert by exact ratio;
// temperature is an affine transform, not a pure scale.
const (
	poundsPerKilogram = 2.2046226218487757
	mgPerDlPerMmolL   = 18.0182 // glucose, molar mass 180.182 g/mol
)

var unitFamilies = map[Unit]UnitFamily{
	UnitMmHg:        FamilyPressure,
	UnitMgPerDl:     FamilyConcentration,
	UnitMmolPerL:    FamilyConcentration,
	UnitCelsius:     FamilyTemperature,
	UnitFahrenheit:  FamilyTemperature,
	UnitPounds:      FamilyMass,
	UnitKilograms:   FamilyMass,
	UnitBeatsPerMin: FamilyCount,
}

var unitAbbreviations = map[Unit]string{
	UnitMmHg:        "mmHg",
	UnitMgPerDl:     "mg/dL",
	UnitMmolPerL:    "mmol/L",
	UnitCelsius:     "°C",
	UnitFahrenheit:  "°F",
	UnitPounds:      "lbs",
	UnitKilograms:   "kg",
	UnitBeatsPerMin: "b/m",
}

// Family returns the unit's physical-quantity family, or the empty string
// for an unknown unit tag.
func (u Unit) Family() UnitFamily {
	return unitFamilies[u]
}

// Abbreviation returns the display abbreviation for the unit, e.g. "lbs"
// for pounds.
func (u Unit) Abbreviation() string {
	if abbr, ok := unitAbbreviations[u]; ok {
		return abbr
	}
	return "?"
}

// Valid reports whether the tag names a supported unit.
func (u Unit) Valid() bool {
	_, ok := unitFamilies[u]
	return ok
}

// ParseUnit maps a stored tag to a Unit, accepting only known tags.
func ParseUnit(tag string) (Unit, error) {
	u := Unit(tag)
	if !u.Valid() {
		return "", fmt.Errorf("%w: unknown unit %q", ErrIncompatibleUnitFamily, tag)
	}
	return u, nil
}

// Convert converts a value between two units of the same family. It is a
// pure function with no side effects. Returns ErrIncompatibleUnitFamily if
// the units belong to different families or either tag is unknown.
func Convert(value float64, from, to Unit) (float64, error) {
	if !from.Valid() || !to.Valid() {
		return 0, fmt.Errorf("%w: %q -> %q", ErrIncompatibleUnitFamily, from, to)
	}
	if from.Family() != to.Family() {
		return 0, fmt.Errorf(
			"%w: cannot convert %s (%s) to %s (%s)",
			ErrIncompatibleUnitFamily,
			from, from.Family(),
			to, to.Family(),
		)
	}
	if from == to {
		return value, nil
	}

	switch {
	case from == UnitPounds && to == UnitKilograms:
		return value / poundsPerKilogram, nil
	case from == UnitKilograms && to == UnitPounds:
		return value * poundsPerKilogram, nil
	case from == UnitMgPerDl && to == UnitMmolPerL:
		return value / mgPerDlPerMmolL, nil
	case from == UnitMmolPerL && to == UnitMgPerDl:
		return value * mgPerDlPerMmolL, nil
	case from == UnitCelsius && to == UnitFahrenheit:
		return value*9.0/5.0 + 32.0, nil
	case from == UnitFahrenheit && to == UnitCelsius:
		return (value - 32.0) * 5.0 / 9.0, nil
	}

	// Same family, same unit is handled above; single-unit families
	// (pressure, count) never reach here.
	return 0, fmt.Errorf("%w: no conversion from %s to %s", ErrIncompatibleUnitFamily, from, to)
}
